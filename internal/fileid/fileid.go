// Package fileid derives stable names and IDs for clause files, clauses, and index chunks.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	clauseFileSuffix = "_clauses.json"
	fallbackType     = "general"
)

// ClauseFileName returns the corpus file that holds clauses of documentType, e.g.
// "rental_agreement_clauses.json". Characters outside [A-Za-z0-9_-] become '_' so the type
// cannot escape the clause directory.
func ClauseFileName(documentType string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(documentType) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		name = fallbackType
	}
	return name + clauseFileSuffix
}

// DerivedClauseID returns a stable ID for a clause that was stored without one, based on the
// file it came from and its position in that file. Reloading the same corpus yields the same IDs.
func DerivedClauseID(fileName string, position int) string {
	key := fmt.Sprintf("%s#%d", filepath.Base(fileName), position)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// NewClauseID returns a fresh random clause ID.
func NewClauseID() string {
	return uuid.NewString()
}

// ImportClauseID returns a stable clause ID for a document imported from absolutePath,
// so re-importing the same file is detected as a duplicate.
func ImportClauseID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return "file_" + hex.EncodeToString(hash[:8])
}

// ChunkID returns the index ID of the chunkIndex-th chunk of a clause.
func ChunkID(clauseID string, chunkIndex int) string {
	return fmt.Sprintf("%s#%d", clauseID, chunkIndex)
}
