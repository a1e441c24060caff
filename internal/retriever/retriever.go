// Package retriever serves clause retrieval over the current index snapshot, degrading to a fixed
// fallback clause set when no index is available.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperjump/clausedraft/internal/embedding"
	"github.com/hyperjump/clausedraft/internal/indexer"
	"github.com/hyperjump/clausedraft/internal/models"
	"github.com/hyperjump/clausedraft/internal/storage"
	"github.com/hyperjump/clausedraft/pkg/utils"
	"go.uber.org/zap"
)

// ErrOffline is returned by Rebuild when no embedding model is loaded.
var ErrOffline = errors.New("retriever is offline")

// Retriever owns the clause store, the embedder and the live index snapshot.
type Retriever struct {
	store     storage.Storage
	embedder  embedding.Embedder
	indexer   *indexer.Indexer
	indexPath string
	maxK      int
	logger    *zap.Logger

	snapshot atomic.Pointer[indexer.Snapshot]
	status   atomic.Pointer[models.Status]
	// rebuildMu serializes build and save; searches never take it.
	rebuildMu sync.Mutex
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// WithIndexPath sets the snapshot directory. Without it snapshots are kept in memory only.
func WithIndexPath(path string) Option {
	return func(r *Retriever) { r.indexPath = path }
}

// WithMaxK caps the number of candidates a query may request.
func WithMaxK(k int) Option {
	return func(r *Retriever) { r.maxK = k }
}

// New returns a live retriever that indexes with idx. Call Init before serving.
func New(store storage.Storage, embedder embedding.Embedder, idx *indexer.Indexer, opts ...Option) *Retriever {
	r := &Retriever{store: store, embedder: embedder, indexer: idx}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = utils.OrNop(r.logger)
	r.setStatus(models.StateError, "not initialized")
	return r
}

// NewOffline returns a retriever without an embedding model; reason explains why.
func NewOffline(store storage.Storage, reason string, opts ...Option) *Retriever {
	r := New(store, nil, nil, opts...)
	r.setStatus(models.StateOffline, reason)
	return r
}

// Init loads the clause corpus and makes an index available: the persisted snapshot when it
// was built by the same embedder over the same corpus, otherwise a fresh build which is then
// persisted. It never fails; the outcome is reported through the returned Status.
func (r *Retriever) Init(ctx context.Context) models.Status {
	clauses := r.store.Load(ctx)
	if r.indexer == nil {
		st := r.Status()
		r.logger.Warn("running in offline mode without clause index", zap.String("reason", st.Reason))
		return st
	}

	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()

	if r.indexPath != "" {
		snap, err := indexer.LoadSnapshot(r.indexPath)
		switch {
		case err != nil:
			r.logger.Info("no usable clause index on disk, building", zap.String("path", r.indexPath), zap.Error(err))
		case !snap.Matches(r.indexer.EmbedderName(), r.indexer.Dimensions(), indexer.CorpusHash(clauses)):
			r.logger.Info("clause index is stale, rebuilding",
				zap.String("path", r.indexPath),
				zap.String("built_with", snap.Manifest.Embedder))
		default:
			r.snapshot.Store(snap)
			r.setStatus(models.StateReady, "")
			r.logger.Info("loaded clause index", zap.String("path", r.indexPath), zap.Int("chunks", snap.Index.Size()))
			return r.Status()
		}
	}

	if err := r.buildLocked(ctx, clauses); err != nil {
		r.logger.Error("failed to build clause index", zap.Error(err))
		if r.snapshot.Load() == nil {
			r.setStatus(models.StateError, err.Error())
		}
	}
	return r.Status()
}

// Rebuild reloads the corpus from disk and replaces the index with a full rebuild.
func (r *Retriever) Rebuild(ctx context.Context) error {
	if r.indexer == nil {
		r.store.Load(ctx)
		return ErrOffline
	}
	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()
	return r.buildLocked(ctx, r.store.Load(ctx))
}

// buildLocked builds, installs and persists a snapshot. Callers hold rebuildMu. A failed build
// leaves the previous snapshot live; a failed save still serves the new one from memory.
func (r *Retriever) buildLocked(ctx context.Context, clauses []models.Clause) error {
	snap, err := r.indexer.Build(ctx, clauses)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	r.snapshot.Store(snap)
	r.setStatus(models.StateReady, "")
	if r.indexPath == "" {
		return nil
	}
	if err := indexer.SaveSnapshot(r.indexPath, snap); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	r.logger.Info("saved clause index", zap.String("path", r.indexPath))
	return nil
}

// AddClause persists clause and rebuilds the index. It reports false when the clause is invalid
// or cannot be written, or when the rebuild fails. In offline mode a successful write is enough.
func (r *Retriever) AddClause(ctx context.Context, clause models.Clause) bool {
	_, ok := r.AddClauseWithID(ctx, clause)
	return ok
}

// AddClauseWithID is AddClause that also returns the stored clause, including any generated ID.
// A non-empty ID with false means the clause was persisted but the rebuild failed.
func (r *Retriever) AddClauseWithID(ctx context.Context, clause models.Clause) (models.Clause, bool) {
	stored, err := r.store.Add(ctx, clause)
	if err != nil {
		r.logger.Error("failed to add clause to database", zap.Error(err))
		return models.Clause{}, false
	}
	if r.indexer == nil {
		r.logger.Info("clause stored without reindexing (offline)", zap.String("id", stored.ID))
		return stored, true
	}

	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()
	if err := r.buildLocked(ctx, r.store.Clauses()); err != nil {
		r.logger.Error("failed to rebuild index after adding clause", zap.String("id", stored.ID), zap.Error(err))
		return stored, false
	}
	return stored, true
}

// Retrieve returns up to q.K clauses relevant to q, best first. Without a live index it returns
// the fallback clause set. Search failures are logged and yield an empty result.
func (r *Retriever) Retrieve(ctx context.Context, q models.RetrieveQuery) []*models.RetrievalResult {
	if err := q.Validate(r.maxK); err != nil {
		r.logger.Warn("invalid retrieval query", zap.Error(err))
		return []*models.RetrievalResult{}
	}
	snap := r.snapshot.Load()
	if snap == nil || r.embedder == nil {
		r.logger.Warn("clause index not available, serving fallback clauses", zap.String("state", string(r.Status().State)))
		return fallbackResults(q.DocumentType, q.K)
	}

	start := time.Now()
	results, err := r.search(ctx, snap, &q)
	if err != nil {
		r.logger.Error("error retrieving clauses", zap.String("query", utils.Truncate(q.Query, 50)), zap.Error(err))
		return []*models.RetrievalResult{}
	}
	r.logger.Info("retrieved relevant clauses",
		zap.Int("count", len(results)),
		zap.String("query", utils.Truncate(q.Query, 50)),
		zap.Duration("took", time.Since(start)))
	return results
}

func (r *Retriever) search(ctx context.Context, snap *indexer.Snapshot, q *models.RetrieveQuery) ([]*models.RetrievalResult, error) {
	vec, err := r.embedder.Embed(ctx, EnhancedQuery(q))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := snap.Index.Search(ctx, vec, q.K)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	docType := q.DocumentType
	jurisdiction := q.JurisdictionOrEmpty()
	results := make([]*models.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		chunk, ok := snap.Chunks[h.ID]
		if !ok {
			return nil, fmt.Errorf("index references unknown chunk %q", h.ID)
		}
		if docType != "" && chunk.Metadata[models.MetaDocumentType] != docType {
			continue
		}
		if j := chunk.Metadata[models.MetaJurisdiction]; jurisdiction != "" && j != jurisdiction && j != models.DefaultTag {
			continue
		}
		results = append(results, &models.RetrievalResult{
			Content:  chunk.Content,
			Metadata: cloneMetadata(chunk.Metadata),
			Score:    h.Score,
		})
	}
	return results, nil
}

// EnhancedQuery is the text embedded for a query: the raw query labeled with the requested
// document type and jurisdiction.
func EnhancedQuery(q *models.RetrieveQuery) string {
	docType := q.DocumentType
	if docType == "" {
		docType = "Not specified"
	}
	return fmt.Sprintf("Legal document generation query:\n%s\nDocument Type: %s\nJurisdiction: %s",
		q.Query, docType, q.JurisdictionOrEmpty())
}

// Status reports whether a live index is serving searches.
func (r *Retriever) Status() models.Status {
	return *r.status.Load()
}

// Manifest returns the manifest of the live snapshot, or false when there is none.
func (r *Retriever) Manifest() (indexer.Manifest, bool) {
	snap := r.snapshot.Load()
	if snap == nil {
		return indexer.Manifest{}, false
	}
	return snap.Manifest, true
}

// Clauses returns the current corpus.
func (r *Retriever) Clauses() []models.Clause {
	return r.store.Clauses()
}

// Close releases the embedder.
func (r *Retriever) Close() error {
	if r.embedder != nil {
		return r.embedder.Close()
	}
	return nil
}

func (r *Retriever) setStatus(state models.State, reason string) {
	r.status.Store(&models.Status{State: state, Reason: reason})
}

func cloneMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
