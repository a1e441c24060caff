// Package extract reads clause text out of office documents and spreadsheets for import.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// DocumentExtensions lists the single-document formats Extract understands.
var DocumentExtensions = []string{".pdf", ".docx", ".odt", ".rtf", ".txt", ".md"}

// Extract reads the file at path and returns its text content.
// Returns an error if the file cannot be read or the format is unsupported.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractWithCat(content, ext)
	case ".txt", ".md", "":
		return extractPlain(content)
	default:
		return "", fmt.Errorf("unsupported document format %q", ext)
	}
}

// Supported reports whether Extract handles files with extension ext.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range DocumentExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
