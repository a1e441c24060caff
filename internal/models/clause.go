// Package models defines core data structures for clauses, index chunks, queries, and retrieval results.
package models

import (
	"errors"
	"strings"
)

// DefaultTag is the document type and jurisdiction applied when a clause omits them.
// A clause with jurisdiction "general" matches any jurisdiction filter.
const DefaultTag = "general"

// ErrEmptyContent is returned when a clause has no clause_content.
var ErrEmptyContent = errors.New("clause_content cannot be empty")

// Clause is a unit of retrievable legal text. The JSON field names are the on-disk corpus format.
type Clause struct {
	ID            string   `json:"id"`
	DocumentType  string   `json:"document_type"`
	ClauseTitle   string   `json:"clause_title"`
	ClauseContent string   `json:"clause_content"`
	Jurisdiction  string   `json:"jurisdiction"`
	Keywords      []string `json:"keywords"`
}

// Normalize trims the tag fields and fills document_type and jurisdiction with "general" when empty.
func (c *Clause) Normalize() {
	c.ID = strings.TrimSpace(c.ID)
	c.DocumentType = strings.TrimSpace(c.DocumentType)
	c.Jurisdiction = strings.TrimSpace(c.Jurisdiction)
	if c.DocumentType == "" {
		c.DocumentType = DefaultTag
	}
	if c.Jurisdiction == "" {
		c.Jurisdiction = DefaultTag
	}
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
}

// Validate returns ErrEmptyContent when the clause has no content.
func (c *Clause) Validate() error {
	if strings.TrimSpace(c.ClauseContent) == "" {
		return ErrEmptyContent
	}
	return nil
}

// Metadata keys copied from a clause onto each of its indexed chunks.
const (
	MetaDocumentType = "document_type"
	MetaClauseTitle  = "clause_title"
	MetaJurisdiction = "jurisdiction"
	MetaClauseID     = "clause_id"
	MetaKeywords     = "keywords"
)

// Metadata returns the chunk metadata derived from the clause.
func (c *Clause) Metadata() map[string]string {
	return map[string]string{
		MetaDocumentType: c.DocumentType,
		MetaClauseTitle:  c.ClauseTitle,
		MetaJurisdiction: c.Jurisdiction,
		MetaClauseID:     c.ID,
		MetaKeywords:     strings.Join(c.Keywords, ", "),
	}
}

// IndexedChunk is a fragment of a clause's descriptive text plus the originating clause's metadata.
type IndexedChunk struct {
	ID         string            `json:"id"`
	ClauseID   string            `json:"clause_id"`
	ChunkIndex int               `json:"chunk_index"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata"`
}
