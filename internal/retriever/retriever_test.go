package retriever

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hyperjump/clausedraft/internal/embedding"
	"github.com/hyperjump/clausedraft/internal/indexer"
	"github.com/hyperjump/clausedraft/internal/models"
	"github.com/hyperjump/clausedraft/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const corpus = `[
	{"id": "dep_in", "document_type": "rental_agreement", "clause_title": "Security Deposit", "clause_content": "The Tenant shall pay a refundable security deposit.", "jurisdiction": "IN", "keywords": ["deposit"]},
	{"id": "dep_loan", "document_type": "loan_agreement", "clause_title": "Security Deposit", "clause_content": "The Tenant shall pay a refundable security deposit.", "jurisdiction": "IN", "keywords": ["deposit"]},
	{"id": "dep_us", "document_type": "rental_agreement", "clause_title": "Security Deposit", "clause_content": "The Tenant shall pay a refundable security deposit under state law.", "jurisdiction": "US", "keywords": ["deposit"]},
	{"id": "law", "document_type": "rental_agreement", "clause_title": "Governing Law", "clause_content": "This agreement is governed by the laws of the jurisdiction.", "jurisdiction": "general", "keywords": ["law"]}
]`

// countingEmbedder wraps an embedder and can be switched to fail.
type countingEmbedder struct {
	embedding.Embedder
	mu      sync.Mutex
	batches int
	fail    bool
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches++
	fail := e.fail
	e.mu.Unlock()
	if fail {
		return nil, errors.New("model unavailable")
	}
	return e.Embedder.EmbedBatch(ctx, texts)
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	fail := e.fail
	e.mu.Unlock()
	if fail {
		return nil, errors.New("model unavailable")
	}
	return e.Embedder.Embed(ctx, text)
}

func (e *countingEmbedder) setFail(v bool) {
	e.mu.Lock()
	e.fail = v
	e.mu.Unlock()
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	clauseDir := filepath.Join(dir, "clauses")
	require.NoError(t, os.MkdirAll(clauseDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(clauseDir, "corpus.json"), []byte(corpus), 0644))
	return dir
}

func newLive(t *testing.T, dir string) (*Retriever, *countingEmbedder) {
	t.Helper()
	emb := &countingEmbedder{Embedder: embedding.NewHashEmbedder(256)}
	store := storage.NewJSONStore(filepath.Join(dir, "clauses"))
	idx := indexer.NewIndexer(emb, indexer.NewChunker(500, 50))
	r := New(store, emb, idx, WithIndexPath(filepath.Join(dir, "index")), WithMaxK(50))
	st := r.Init(context.Background())
	require.Equal(t, models.StateReady, st.State, st.Reason)
	return r, emb
}

func clauseIDs(results []*models.RetrievalResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Metadata[models.MetaClauseID]
	}
	return ids
}

func TestRetrieve_NeverMoreThanK(t *testing.T) {
	r, _ := newLive(t, writeCorpus(t))
	ctx := context.Background()
	for k := 1; k <= 6; k++ {
		res := r.Retrieve(ctx, models.RetrieveQuery{Query: "security deposit", Jurisdiction: models.StringPtr(""), K: k})
		assert.LessOrEqual(t, len(res), k)
	}
	res := r.Retrieve(ctx, models.RetrieveQuery{Query: "security deposit", Jurisdiction: models.StringPtr(""), K: 10})
	assert.Len(t, res, 4)
}

func TestRetrieve_JurisdictionFilter(t *testing.T) {
	r, _ := newLive(t, writeCorpus(t))
	res := r.Retrieve(context.Background(), models.RetrieveQuery{Query: "security deposit governing law", K: 10})
	ids := clauseIDs(res)
	assert.NotContains(t, ids, "dep_us", "US clause dropped for the default IN jurisdiction")
	assert.Contains(t, ids, "law", "general clause kept for any jurisdiction")
	assert.Contains(t, ids, "dep_in")

	res = r.Retrieve(context.Background(), models.RetrieveQuery{Query: "security deposit governing law", Jurisdiction: models.StringPtr("US"), K: 10})
	ids = clauseIDs(res)
	assert.Contains(t, ids, "dep_us")
	assert.Contains(t, ids, "law")
	assert.NotContains(t, ids, "dep_in")
}

func TestRetrieve_DocumentTypeFilter(t *testing.T) {
	r, _ := newLive(t, writeCorpus(t))
	ctx := context.Background()

	res := r.Retrieve(ctx, models.RetrieveQuery{Query: "security deposit", DocumentType: "loan_agreement", K: 10})
	assert.Equal(t, []string{"dep_loan"}, clauseIDs(res))

	res = r.Retrieve(ctx, models.RetrieveQuery{Query: "security deposit", DocumentType: "rental_agreement", K: 10})
	ids := clauseIDs(res)
	assert.Contains(t, ids, "dep_in")
	assert.NotContains(t, ids, "dep_loan")
	for _, x := range res {
		assert.Equal(t, "rental_agreement", x.Metadata[models.MetaDocumentType])
	}
}

func TestRetrieve_FilteringPreservesRanking(t *testing.T) {
	r, _ := newLive(t, writeCorpus(t))
	ctx := context.Background()
	all := r.Retrieve(ctx, models.RetrieveQuery{Query: "refundable security deposit", Jurisdiction: models.StringPtr(""), K: 10})
	filtered := r.Retrieve(ctx, models.RetrieveQuery{Query: "refundable security deposit", Jurisdiction: models.StringPtr(""), DocumentType: "rental_agreement", K: 10})

	var want []string
	for _, x := range all {
		if x.Metadata[models.MetaDocumentType] == "rental_agreement" {
			want = append(want, x.Metadata[models.MetaClauseID])
		}
	}
	assert.Equal(t, want, clauseIDs(filtered))
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score)
	}
}

func TestRetrieve_Idempotent(t *testing.T) {
	r, _ := newLive(t, writeCorpus(t))
	q := models.RetrieveQuery{Query: "deposit refund", K: 5}
	first := r.Retrieve(context.Background(), q)
	second := r.Retrieve(context.Background(), q)
	assert.Equal(t, first, second)
}

func TestRetrieve_SearchErrorYieldsEmpty(t *testing.T) {
	r, emb := newLive(t, writeCorpus(t))
	emb.setFail(true)
	res := r.Retrieve(context.Background(), models.RetrieveQuery{Query: "uncached deposit query"})
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	r, _ := newLive(t, writeCorpus(t))
	assert.Empty(t, r.Retrieve(context.Background(), models.RetrieveQuery{Query: "   "}))
}

func TestRetrieve_Offline(t *testing.T) {
	store := storage.NewJSONStore(filepath.Join(t.TempDir(), "none"))
	r := NewOffline(store, "no model")
	st := r.Init(context.Background())
	assert.Equal(t, models.Status{State: models.StateOffline, Reason: "no model"}, st)
	ctx := context.Background()

	all := r.Retrieve(ctx, models.RetrieveQuery{Query: "anything"})
	assert.Equal(t, []string{"default_1", "default_2", "default_3"}, clauseIDs(all))
	for _, x := range all {
		assert.Equal(t, models.FallbackScore, x.Score)
	}

	loan := r.Retrieve(ctx, models.RetrieveQuery{Query: "loan", DocumentType: "loan_agreement"})
	assert.Equal(t, []string{"default_3"}, clauseIDs(loan))

	svc := r.Retrieve(ctx, models.RetrieveQuery{Query: "svc", DocumentType: "service_agreement"})
	assert.Equal(t, []string{"default_1", "default_3"}, clauseIDs(svc))

	unknown := r.Retrieve(ctx, models.RetrieveQuery{Query: "x", DocumentType: "partnership_deed"})
	assert.Equal(t, []string{"default_1", "default_2"}, clauseIDs(unknown))

	assert.ErrorIs(t, r.Rebuild(ctx), ErrOffline)
}

func TestRetrieve_OfflineHonorsK(t *testing.T) {
	r := NewOffline(storage.NewJSONStore(filepath.Join(t.TempDir(), "none")), "no model")
	r.Init(context.Background())
	ctx := context.Background()

	for _, docType := range []string{"", "service_agreement", "partnership_deed"} {
		got := r.Retrieve(ctx, models.RetrieveQuery{Query: "x", DocumentType: docType, K: 1})
		assert.Equal(t, []string{"default_1"}, clauseIDs(got), docType)
	}

	two := r.Retrieve(ctx, models.RetrieveQuery{Query: "x", K: 2})
	assert.Equal(t, []string{"default_1", "default_2"}, clauseIDs(two))

	loan := r.Retrieve(ctx, models.RetrieveQuery{Query: "loan", DocumentType: "loan_agreement", K: 1})
	assert.Equal(t, []string{"default_3"}, clauseIDs(loan))
}

func TestAddClause_RoundTripAndRebuild(t *testing.T) {
	dir := writeCorpus(t)
	r, _ := newLive(t, dir)
	ctx := context.Background()

	ok := r.AddClause(ctx, models.Clause{
		ID:            "arb",
		DocumentType:  "rental_agreement",
		ClauseTitle:   "Arbitration",
		ClauseContent: "Disputes shall be referred to arbitration under the Arbitration and Conciliation Act.",
		Jurisdiction:  "IN",
	})
	require.True(t, ok)

	m, live := r.Manifest()
	require.True(t, live)
	assert.Equal(t, 5, m.Clauses)

	res := r.Retrieve(ctx, models.RetrieveQuery{Query: "arbitration disputes conciliation", K: 1})
	require.Len(t, res, 1)
	assert.Equal(t, "arb", res[0].Metadata[models.MetaClauseID])

	reloaded := storage.NewJSONStore(filepath.Join(dir, "clauses")).Load(ctx)
	count := 0
	for _, c := range reloaded {
		if c.ID == "arb" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	persisted, err := indexer.LoadSnapshot(filepath.Join(dir, "index"))
	require.NoError(t, err)
	assert.Equal(t, 5, persisted.Manifest.Clauses)
}

func TestAddClause_Invalid(t *testing.T) {
	r, _ := newLive(t, writeCorpus(t))
	assert.False(t, r.AddClause(context.Background(), models.Clause{ClauseTitle: "Empty"}))
	assert.False(t, r.AddClause(context.Background(), models.Clause{ID: "law", ClauseContent: "dup"}))
}

func TestAddClause_RebuildFailure(t *testing.T) {
	r, emb := newLive(t, writeCorpus(t))
	emb.setFail(true)
	ok := r.AddClause(context.Background(), models.Clause{ID: "new", ClauseContent: "Fresh clause."})
	assert.False(t, ok)
	assert.Equal(t, models.StateReady, r.Status().State, "previous snapshot stays live")
	assert.Len(t, r.Clauses(), 5, "the stored clause is kept")

	stored, ok := r.AddClauseWithID(context.Background(), models.Clause{DocumentType: "nda", ClauseContent: "Second clause."})
	assert.False(t, ok)
	assert.NotEmpty(t, stored.ID, "a persisted clause reports its ID even when indexing fails")
	assert.Len(t, r.Clauses(), 6)
}

func TestAddClause_Offline(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewJSONStore(dir)
	r := NewOffline(store, "no model")
	r.Init(context.Background())
	assert.True(t, r.AddClause(context.Background(), models.Clause{DocumentType: "nda", ClauseContent: "Keep secrets."}))
	_, err := os.Stat(filepath.Join(dir, "nda_clauses.json"))
	assert.NoError(t, err)
}

func TestInit_ReusesMatchingSnapshot(t *testing.T) {
	dir := writeCorpus(t)
	_, first := newLive(t, dir)
	assert.Equal(t, 1, first.batches)

	_, second := newLive(t, dir)
	assert.Equal(t, 0, second.batches, "matching snapshot is loaded without re-embedding")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "clauses", "extra.json"),
		[]byte(`{"id": "extra", "clause_content": "An extra clause."}`), 0644))
	_, third := newLive(t, dir)
	assert.Equal(t, 1, third.batches, "corpus change forces a rebuild")
}

func TestInit_ManifestMismatchForcesRebuild(t *testing.T) {
	dir := writeCorpus(t)
	newLive(t, dir)

	emb := &countingEmbedder{Embedder: embedding.NewHashEmbedder(128)}
	store := storage.NewJSONStore(filepath.Join(dir, "clauses"))
	r := New(store, emb, indexer.NewIndexer(emb, indexer.NewChunker(500, 50)), WithIndexPath(filepath.Join(dir, "index")))
	require.Equal(t, models.StateReady, r.Init(context.Background()).State)
	assert.Equal(t, 1, emb.batches)
	m, _ := r.Manifest()
	assert.Equal(t, 128, m.Dimensions)
}

func TestInit_BuildFailureIsErrorState(t *testing.T) {
	dir := writeCorpus(t)
	emb := &countingEmbedder{Embedder: embedding.NewHashEmbedder(32), fail: true}
	store := storage.NewJSONStore(filepath.Join(dir, "clauses"))
	r := New(store, emb, indexer.NewIndexer(emb, indexer.NewChunker(500, 50)))
	st := r.Init(context.Background())
	assert.Equal(t, models.StateError, st.State)
	assert.NotEmpty(t, st.Reason)

	res := r.Retrieve(context.Background(), models.RetrieveQuery{Query: "deposit"})
	assert.Len(t, res, 3, "fallback clauses are served when the index could not be built")
}

func TestRetrieve_ConcurrentWithRebuild(t *testing.T) {
	r, _ := newLive(t, writeCorpus(t))
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				res := r.Retrieve(ctx, models.RetrieveQuery{Query: "security deposit", K: 3})
				assert.LessOrEqual(t, len(res), 3)
			}
		}()
	}
	for i := 0; i < 3; i++ {
		assert.NoError(t, r.Rebuild(ctx))
	}
	wg.Wait()
}

func TestEnhancedQuery(t *testing.T) {
	q := &models.RetrieveQuery{Query: "rent terms", Jurisdiction: models.StringPtr("IN")}
	assert.Equal(t, "Legal document generation query:\nrent terms\nDocument Type: Not specified\nJurisdiction: IN", EnhancedQuery(q))
	q.DocumentType = "rental_agreement"
	assert.Contains(t, EnhancedQuery(q), "Document Type: rental_agreement\n")
}
