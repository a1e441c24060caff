package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hyperjump/clausedraft/internal/models"
	"github.com/xuri/excelize/v2"
)

// sheetColumns maps accepted header names to clause fields.
var sheetColumns = map[string]string{
	"id":             "id",
	"clause_id":      "id",
	"document_type":  "document_type",
	"type":           "document_type",
	"clause_title":   "clause_title",
	"title":          "clause_title",
	"clause_content": "clause_content",
	"content":        "clause_content",
	"jurisdiction":   "jurisdiction",
	"keywords":       "keywords",
}

// SheetRow is a clause read from a spreadsheet row, with its sheet and 1-based row number.
type SheetRow struct {
	Sheet  string
	Row    int
	Clause models.Clause
}

// ReadClauseSheets reads clauses from every sheet of an XLSX workbook. The first row of a sheet
// names the columns (see sheetColumns; matching ignores case and spaces). Sheets without a
// content column are skipped, as are rows with empty content.
func ReadClauseSheets(content []byte) ([]SheetRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var out []SheetRow
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		if len(rows) < 2 {
			continue
		}
		cols := headerColumns(rows[0])
		if _, ok := cols["clause_content"]; !ok {
			continue
		}
		for i, row := range rows[1:] {
			c := rowClause(row, cols)
			if strings.TrimSpace(c.ClauseContent) == "" {
				continue
			}
			out = append(out, SheetRow{Sheet: sheet, Row: i + 2, Clause: c})
		}
	}
	return out, nil
}

func headerColumns(header []string) map[string]int {
	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", "_"))
		if field, ok := sheetColumns[key]; ok {
			if _, dup := cols[field]; !dup {
				cols[field] = i
			}
		}
	}
	return cols
}

func rowClause(row []string, cols map[string]int) models.Clause {
	cell := func(field string) string {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	return models.Clause{
		ID:            cell("id"),
		DocumentType:  cell("document_type"),
		ClauseTitle:   cell("clause_title"),
		ClauseContent: cell("clause_content"),
		Jurisdiction:  cell("jurisdiction"),
		Keywords:      SplitKeywords(cell("keywords")),
	}
}

// SplitKeywords splits a comma- or semicolon-separated keyword list, dropping empty entries.
func SplitKeywords(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
