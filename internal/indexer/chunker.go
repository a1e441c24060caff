// Package indexer turns clauses into chunk embeddings and persists them as an index snapshot.
package indexer

import (
	"strings"

	"github.com/hyperjump/clausedraft/internal/fileid"
	"github.com/hyperjump/clausedraft/internal/models"
	"github.com/tmc/langchaingo/textsplitter"
)

// DescribeClause renders the text that is embedded for a clause: one labeled line per field.
func DescribeClause(c models.Clause) string {
	lines := []string{
		"Document Type: " + c.DocumentType,
		"Clause Title: " + c.ClauseTitle,
		"Content: " + c.ClauseContent,
		"Jurisdiction: " + c.Jurisdiction,
		"Keywords: " + strings.Join(c.Keywords, ", "),
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Chunker splits clause descriptions into overlapping windows, preferring paragraph, then line,
// then word boundaries. Sizes are measured in runes.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewChunker creates a chunker with the given size and overlap (in runes).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
			textsplitter.WithKeepSeparator(true),
		),
	}
}

// Chunk splits the clause description. Every chunk carries a copy of the clause metadata.
// A description the splitter cannot split is kept whole as a single chunk.
func (c *Chunker) Chunk(clause models.Clause) []models.IndexedChunk {
	blob := DescribeClause(clause)
	parts, err := c.splitter.SplitText(blob)
	if err != nil || len(parts) == 0 {
		parts = []string{blob}
	}
	chunks := make([]models.IndexedChunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, models.IndexedChunk{
			ID:         fileid.ChunkID(clause.ID, i),
			ClauseID:   clause.ID,
			ChunkIndex: i,
			Content:    part,
			Metadata:   clause.Metadata(),
		})
	}
	return chunks
}
