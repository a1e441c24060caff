package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hyperjump/clausedraft/internal/fileid"
	"github.com/hyperjump/clausedraft/internal/models"
	"github.com/hyperjump/clausedraft/pkg/utils"
	"go.uber.org/zap"
)

// JSONStore keeps the corpus in a directory of *.json files. Each file holds a single clause
// object or an array of clauses; Add writes to <document_type>_clauses.json.
type JSONStore struct {
	dir      string
	logger   *zap.Logger
	mu       sync.RWMutex
	clauses  []models.Clause
	defaults bool
}

// JSONStoreOption configures a JSONStore.
type JSONStoreOption func(*JSONStore)

// WithLogger sets the logger for load warnings and writes.
func WithLogger(l *zap.Logger) JSONStoreOption {
	return func(s *JSONStore) { s.logger = l }
}

// NewJSONStore returns a store over dir. Call Load to read the corpus.
func NewJSONStore(dir string, opts ...JSONStoreOption) *JSONStore {
	s := &JSONStore{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// Dir returns the corpus directory.
func (s *JSONStore) Dir() string {
	return s.dir
}

// Load reads every *.json file in lexical order. Malformed files and clauses without content are
// skipped with a warning, as are repeated IDs after the first. When nothing usable is found the
// default clauses are served; they are never written to disk.
func (s *JSONStore) Load(ctx context.Context) []models.Clause {
	clauses := s.readDir(ctx)
	defaults := false
	if len(clauses) == 0 {
		s.logger.Info("no clauses on disk, using default clauses", zap.String("dir", s.dir))
		clauses = DefaultClauses()
		defaults = true
	}

	s.mu.Lock()
	s.clauses = clauses
	s.defaults = defaults
	s.mu.Unlock()
	return cloneClauses(clauses)
}

func (s *JSONStore) readDir(ctx context.Context) []models.Clause {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read clause directory", zap.String("dir", s.dir), zap.Error(err))
		} else {
			s.logger.Warn("clause directory not found", zap.String("dir", s.dir))
		}
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	seen := make(map[string]bool)
	var clauses []models.Clause
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		fileClauses, err := readClauseFile(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn("skipping clause file", zap.String("file", name), zap.Error(err))
			continue
		}
		loaded := 0
		for i, c := range fileClauses {
			c.Normalize()
			if err := c.Validate(); err != nil {
				s.logger.Warn("skipping clause", zap.String("file", name), zap.Int("position", i), zap.Error(err))
				continue
			}
			if c.ID == "" {
				c.ID = fileid.DerivedClauseID(name, i)
			}
			if seen[c.ID] {
				s.logger.Warn("skipping duplicate clause id", zap.String("file", name), zap.String("id", c.ID))
				continue
			}
			seen[c.ID] = true
			clauses = append(clauses, c)
			loaded++
		}
		s.logger.Debug("loaded clauses", zap.String("file", name), zap.Int("count", loaded))
	}
	return clauses
}

// readClauseFile decodes a file holding either one clause object or an array of clauses.
func readClauseFile(path string) ([]models.Clause, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var list []models.Clause
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("parse clause array: %w", err)
		}
		return list, nil
	}
	var one models.Clause
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("parse clause: %w", err)
	}
	return []models.Clause{one}, nil
}

// Clauses returns a copy of the in-memory corpus.
func (s *JSONStore) Clauses() []models.Clause {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneClauses(s.clauses)
}

// UsingDefaults reports whether the built-in default clauses are being served.
func (s *JSONStore) UsingDefaults() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

// Add validates clause, assigns an ID when missing, appends it to its document type's file and
// then to memory. A failed write leaves the in-memory corpus unchanged. When the defaults were
// being served they are replaced by the on-disk corpus.
func (s *JSONStore) Add(ctx context.Context, clause models.Clause) (models.Clause, error) {
	clause.Normalize()
	if err := clause.Validate(); err != nil {
		return models.Clause{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Clause{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if clause.ID == "" {
		clause.ID = fileid.NewClauseID()
	}
	if !s.defaults {
		for _, c := range s.clauses {
			if c.ID == clause.ID {
				return models.Clause{}, fmt.Errorf("%w: %s", ErrDuplicateID, clause.ID)
			}
		}
	}

	name := fileid.ClauseFileName(clause.DocumentType)
	path := filepath.Join(s.dir, name)
	if err := appendClause(path, clause); err != nil {
		return models.Clause{}, fmt.Errorf("write %s: %w", name, err)
	}
	if s.defaults {
		s.clauses = nil
		s.defaults = false
	}
	s.clauses = append(s.clauses, clause)
	s.logger.Info("added clause", zap.String("id", clause.ID), zap.String("file", name))
	return clause, nil
}

// appendClause rewrites path with clause appended, through a temp file and rename.
func appendClause(path string, clause models.Clause) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	existing, err := readClauseFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	existing = append(existing, clause)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(existing); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".clauses-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func cloneClauses(in []models.Clause) []models.Clause {
	out := make([]models.Clause, len(in))
	for i, c := range in {
		c.Keywords = append(make([]string, 0, len(c.Keywords)), c.Keywords...)
		out[i] = c
	}
	return out
}
