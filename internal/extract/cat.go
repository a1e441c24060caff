package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/lu4p/cat"
)

// extractWithCat reads OpenDocument text and RTF. cat detects the format from the file name,
// so content is staged in a temp file carrying ext.
func extractWithCat(content []byte, ext string) (string, error) {
	tmp, err := os.CreateTemp("", "clause-import-*"+strings.ToLower(ext))
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", ext, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("stage %s: %w", ext, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("stage %s: %w", ext, err)
	}
	text, err := cat.File(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", ext, err)
	}
	return strings.TrimSpace(text), nil
}
