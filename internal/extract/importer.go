package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/hyperjump/clausedraft/internal/fileid"
	"github.com/hyperjump/clausedraft/internal/models"
	"github.com/hyperjump/clausedraft/pkg/utils"
	"go.uber.org/zap"
)

// Defaults fill clause fields an imported file does not provide.
type Defaults struct {
	DocumentType string
	Jurisdiction string
	Keywords     []string
}

// Importer turns documents and spreadsheets into clauses.
type Importer struct {
	extractor *Extractor
	logger    *zap.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithLogger sets a logger for skipped files and rows.
func WithLogger(l *zap.Logger) ImporterOption {
	return func(im *Importer) { im.logger = l }
}

// NewImporter returns an importer using extractor for document text.
func NewImporter(extractor *Extractor, opts ...ImporterOption) *Importer {
	im := &Importer{extractor: extractor}
	for _, opt := range opts {
		opt(im)
	}
	im.logger = utils.OrNop(im.logger)
	return im
}

// ImportFile reads clauses from path. A spreadsheet (.xlsx) yields one clause per row; any other
// supported document yields a single clause titled after the file name and holding its full text.
func (im *Importer) ImportFile(path string, d Defaults) ([]models.Clause, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if ext == ".xlsx" {
		return im.importSheet(absPath, d)
	}
	if !Supported(ext) {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}

	text, err := im.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", filepath.Base(absPath), models.ErrEmptyContent)
	}
	c := models.Clause{
		ID:            fileid.ImportClauseID(absPath),
		DocumentType:  d.DocumentType,
		ClauseTitle:   TitleFromFileName(absPath),
		ClauseContent: text,
		Jurisdiction:  d.Jurisdiction,
		Keywords:      append([]string(nil), d.Keywords...),
	}
	c.Normalize()
	im.logger.Debug("imported document", zap.String("path", absPath), zap.String("id", c.ID))
	return []models.Clause{c}, nil
}

func (im *Importer) importSheet(absPath string, d Defaults) ([]models.Clause, error) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	rows, err := ReadClauseSheets(content)
	if err != nil {
		return nil, err
	}
	clauses := make([]models.Clause, 0, len(rows))
	for _, r := range rows {
		c := r.Clause
		if c.ID == "" {
			c.ID = fileid.DerivedClauseID(fmt.Sprintf("%s!%s", filepath.Base(absPath), r.Sheet), r.Row)
		}
		if c.DocumentType == "" {
			c.DocumentType = d.DocumentType
		}
		if c.Jurisdiction == "" {
			c.Jurisdiction = d.Jurisdiction
		}
		if len(c.Keywords) == 0 {
			c.Keywords = append([]string(nil), d.Keywords...)
		}
		c.Normalize()
		clauses = append(clauses, c)
	}
	im.logger.Debug("imported spreadsheet", zap.String("path", absPath), zap.Int("clauses", len(clauses)))
	return clauses, nil
}

// ImportDirectory imports every supported file directly inside dir, in lexical order.
// Files that fail are logged and skipped.
func (im *Importer) ImportDirectory(dir string, d Defaults) ([]models.Clause, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var clauses []models.Clause
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".xlsx" && !Supported(ext)) {
			continue
		}
		got, err := im.ImportFile(filepath.Join(dir, e.Name()), d)
		if err != nil {
			im.logger.Warn("skipping file", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		clauses = append(clauses, got...)
	}
	return clauses, nil
}

// TitleFromFileName turns "governing_law-clause.pdf" into "Governing Law Clause".
func TitleFromFileName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '_' || r == '-' || unicode.IsSpace(r) })
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
