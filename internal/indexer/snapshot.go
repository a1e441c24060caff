package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperjump/clausedraft/internal/models"
	"github.com/hyperjump/clausedraft/internal/vector"
)

// Files inside a snapshot directory.
const (
	IndexFile    = "index.bin"
	ChunksFile   = "chunks.json"
	ManifestFile = "manifest.json"
)

// ErrSnapshotMismatch is returned when a snapshot's chunks and vectors disagree.
var ErrSnapshotMismatch = errors.New("snapshot chunks do not match index")

// Manifest describes how a snapshot was built.
type Manifest struct {
	Embedder   string    `json:"embedder"`
	Dimensions int       `json:"dimensions"`
	Clauses    int       `json:"clauses"`
	Chunks     int       `json:"chunks"`
	CorpusHash string    `json:"corpus_hash"`
	BuiltAt    time.Time `json:"built_at"`
}

// Snapshot is an immutable searchable index: vectors keyed by chunk ID plus the chunks themselves.
type Snapshot struct {
	Index    vector.Index
	Chunks   map[string]models.IndexedChunk
	Manifest Manifest
}

// Matches reports whether the snapshot was built by embedderName over the corpus with corpusHash.
func (s *Snapshot) Matches(embedderName string, dimensions int, corpusHash string) bool {
	return s.Manifest.Embedder == embedderName &&
		s.Manifest.Dimensions == dimensions &&
		s.Manifest.CorpusHash == corpusHash
}

// SaveSnapshot writes snap into dir. Files are written to a sibling temp directory that then
// replaces dir, so a crash never leaves a half-written snapshot behind.
func SaveSnapshot(dir string, snap *Snapshot) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("create snapshot parent: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+"-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := snap.Index.Save(filepath.Join(tmp, IndexFile)); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}
	chunks := make([]models.IndexedChunk, 0, len(snap.Chunks))
	for _, c := range snap.Chunks {
		chunks = append(chunks, c)
	}
	sortChunks(chunks)
	if err := writeJSON(filepath.Join(tmp, ChunksFile), chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}
	if err := writeJSON(filepath.Join(tmp, ManifestFile), snap.Manifest); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}

	old := dir + ".old"
	_ = os.RemoveAll(old)
	if err := os.Rename(dir, old); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("move old snapshot: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		_ = os.Rename(old, dir)
		return fmt.Errorf("install snapshot: %w", err)
	}
	_ = os.RemoveAll(old)
	return nil
}

// LoadSnapshot reads a snapshot written by SaveSnapshot.
func LoadSnapshot(dir string) (*Snapshot, error) {
	var manifest Manifest
	if err := readJSON(filepath.Join(dir, ManifestFile), &manifest); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var chunks []models.IndexedChunk
	if err := readJSON(filepath.Join(dir, ChunksFile), &chunks); err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}
	idx, err := vector.LoadMemoryIndex(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, err
	}
	if idx.Size() != len(chunks) || idx.Dimensions() != manifest.Dimensions {
		return nil, fmt.Errorf("%w: %d vectors of dim %d, %d chunks, manifest dim %d",
			ErrSnapshotMismatch, idx.Size(), idx.Dimensions(), len(chunks), manifest.Dimensions)
	}
	byID := make(map[string]models.IndexedChunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}
	return &Snapshot{Index: idx, Chunks: byID, Manifest: manifest}, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
