// Package prompt renders retrieved clauses as a text block for an LLM drafting prompt.
package prompt

import (
	"fmt"
	"strings"

	"github.com/hyperjump/clausedraft/internal/models"
)

const (
	// NoClauses is returned when there is nothing to format.
	NoClauses = "No relevant clauses found in database."
	header    = "RELEVANT LEGAL CLAUSES FROM DATABASE:\n\n"
	missing   = "N/A"
)

var rule = strings.Repeat("-", 50)

// FormatClauses numbers each result from 1 and prints its title, document type, jurisdiction and
// content, each clause followed by a rule line. Metadata keys that are absent print as "N/A".
func FormatClauses(results []*models.RetrievalResult) string {
	if len(results) == 0 {
		return NoClauses
	}
	var b strings.Builder
	b.WriteString(header)
	for i, r := range results {
		if r == nil {
			r = &models.RetrievalResult{}
		}
		fmt.Fprintf(&b, "CLAUSE %d:\n", i+1)
		fmt.Fprintf(&b, "Title: %s\n", meta(r.Metadata, models.MetaClauseTitle))
		fmt.Fprintf(&b, "Document Type: %s\n", meta(r.Metadata, models.MetaDocumentType))
		fmt.Fprintf(&b, "Jurisdiction: %s\n", meta(r.Metadata, models.MetaJurisdiction))
		fmt.Fprintf(&b, "Content:\n%s\n", r.Content)
		b.WriteString(rule)
		b.WriteString("\n\n")
	}
	return b.String()
}

func meta(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return missing
}
