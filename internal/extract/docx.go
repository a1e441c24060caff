package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

const (
	docxDefaultPart  = "word/document.xml"
	docxContentTypes = "[Content_Types].xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	overrideRe  = regexp.MustCompile(`<Override\b[^>]*>`)
	partNameRe  = regexp.MustCompile(`PartName="([^"]+)"`)
	paragraphRe = regexp.MustCompile(`(?s)<w:p[\s>].*?</w:p>`)
	// textRunRe matches <w:t>, including xml:space="preserve" and other attributes.
	textRunRe = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
)

// extractDOCX returns the body text of a .docx file, one line per non-empty paragraph.
// Runs inside a paragraph are concatenated as stored.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	part := docxMainPart(zr)
	body, err := readZipEntry(zr, part)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}

	var paragraphs []string
	for _, p := range paragraphRe.FindAllString(string(body), -1) {
		var b strings.Builder
		for _, run := range textRunRe.FindAllStringSubmatch(p, -1) {
			b.WriteString(run[1])
		}
		if text := strings.TrimSpace(html.UnescapeString(b.String())); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

// docxMainPart locates the main document part through [Content_Types].xml, falling back to
// word/document.xml.
func docxMainPart(zr *zip.Reader) string {
	types, err := readZipEntry(zr, docxContentTypes)
	if err != nil {
		return docxDefaultPart
	}
	for _, override := range overrideRe.FindAllString(string(types), -1) {
		if !strings.Contains(override, `ContentType="`+docxMainType+`"`) {
			continue
		}
		if m := partNameRe.FindStringSubmatch(override); m != nil {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return docxDefaultPart
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}
