// Package storage persists the clause corpus as flat JSON files.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/clausedraft/internal/models"
)

// ErrDuplicateID is returned when a clause is added with an ID already in the corpus.
var ErrDuplicateID = errors.New("clause id already exists")

// Storage defines clause corpus operations.
type Storage interface {
	// Load rereads the corpus from disk and returns it. It never fails; unreadable files are
	// skipped and an empty corpus yields the default clauses.
	Load(ctx context.Context) []models.Clause
	// Clauses returns a copy of the in-memory corpus.
	Clauses() []models.Clause
	// Add persists clause and appends it to the in-memory corpus, returning the stored clause.
	Add(ctx context.Context, clause models.Clause) (models.Clause, error)
	// UsingDefaults reports whether the in-memory corpus is the built-in default set.
	UsingDefaults() bool
	// Dir returns the directory holding the corpus files.
	Dir() string
}
