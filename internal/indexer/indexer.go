package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hyperjump/clausedraft/internal/embedding"
	"github.com/hyperjump/clausedraft/internal/models"
	"github.com/hyperjump/clausedraft/internal/vector"
	"github.com/hyperjump/clausedraft/pkg/utils"
	"go.uber.org/zap"
)

// ErrNoClauses is returned when a build is requested for an empty corpus.
var ErrNoClauses = errors.New("no clauses to index")

// Indexer builds index snapshots from clauses.
type Indexer struct {
	embedder  embedding.Embedder
	chunker   *Chunker
	batchSize int
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for build progress.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithBatchSize sets how many chunks are sent to the embedder per call.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// NewIndexer creates an indexer that embeds with embedder and splits with chunker.
func NewIndexer(embedder embedding.Embedder, chunker *Chunker, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		embedder:  embedder,
		chunker:   chunker,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx
}

// EmbedderName returns the name of the embedder snapshots are built with.
func (idx *Indexer) EmbedderName() string {
	return idx.embedder.Name()
}

// Dimensions returns the embedding dimension of built snapshots.
func (idx *Indexer) Dimensions() int {
	return idx.embedder.Dimensions()
}

// Build chunks and embeds every clause into a new in-memory snapshot.
func (idx *Indexer) Build(ctx context.Context, clauses []models.Clause) (*Snapshot, error) {
	if len(clauses) == 0 {
		return nil, ErrNoClauses
	}
	began := time.Now()
	var chunks []models.IndexedChunk
	for _, c := range clauses {
		chunks = append(chunks, idx.chunker.Chunk(c)...)
	}

	index, err := vector.NewMemoryIndex(idx.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	for lo := 0; lo < len(chunks); lo += idx.batchSize {
		hi := lo + idx.batchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}
		batch := chunks[lo:hi]
		texts := make([]string, len(batch))
		ids := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Content
			ids[i] = ch.ID
		}
		vecs, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		if err := index.Add(ctx, ids, vecs); err != nil {
			return nil, fmt.Errorf("add chunks to index: %w", err)
		}
	}

	byID := make(map[string]models.IndexedChunk, len(chunks))
	for _, ch := range chunks {
		byID[ch.ID] = ch
	}
	snap := &Snapshot{
		Index:  index,
		Chunks: byID,
		Manifest: Manifest{
			Embedder:   idx.embedder.Name(),
			Dimensions: idx.embedder.Dimensions(),
			Clauses:    len(clauses),
			Chunks:     len(chunks),
			CorpusHash: CorpusHash(clauses),
			BuiltAt:    time.Now().UTC(),
		},
	}
	idx.logger.Info("built clause index",
		zap.Int("clauses", len(clauses)),
		zap.Int("chunks", len(chunks)),
		zap.String("embedder", snap.Manifest.Embedder),
		zap.Duration("took", time.Since(began)),
	)
	return snap, nil
}

// CorpusHash fingerprints the clause list so a persisted snapshot can be matched to the corpus.
func CorpusHash(clauses []models.Clause) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, c := range clauses {
		if err := enc.Encode(c); err != nil {
			// Unreachable: clause fields are strings and hash writes never fail.
			return ""
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sortChunks(chunks []models.IndexedChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].ClauseID != chunks[j].ClauseID {
			return chunks[i].ClauseID < chunks[j].ClauseID
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
}
