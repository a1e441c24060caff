package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/clausedraft/internal/cli"
	"github.com/hyperjump/clausedraft/internal/config"
	"github.com/hyperjump/clausedraft/internal/models"
	"github.com/hyperjump/clausedraft/internal/prompt"
	"github.com/hyperjump/clausedraft/internal/retriever"
	"github.com/hyperjump/clausedraft/internal/storage"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var query models.RetrieveQuery
	if !s.decode(w, r, &query) {
		return
	}
	if query.K <= 0 {
		query.K = s.config.Retrieval.DefaultK
	}
	if err := query.Validate(s.config.Retrieval.MaxK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("retrieve request",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("document_type", query.DocumentType),
		zap.Int("k", query.K))

	start := time.Now()
	results := s.svc.Retrieve(r.Context(), query)
	s.respondJSON(w, http.StatusOK, &models.RetrieveResponse{
		Query:     query.Query,
		Results:   results,
		Total:     len(results),
		Formatted: prompt.FormatClauses(results),
		Status:    s.svc.Status(),
		QueryTime: time.Since(start).Milliseconds(),
	})
}

type formatRequest struct {
	Results []*models.RetrievalResult `json:"results"`
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"formatted": prompt.FormatClauses(req.Results)})
}

func (s *Server) handleAddClause(w http.ResponseWriter, r *http.Request) {
	var clause models.Clause
	if !s.decode(w, r, &clause) {
		return
	}
	if err := clause.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	stored, ok := s.svc.AddClauseWithID(r.Context(), clause)
	if !ok && stored.ID == "" {
		s.respondError(w, http.StatusInternalServerError, "failed to add clause")
		return
	}
	if !ok {
		// Persisted, but the index still serves the previous corpus until a rebuild succeeds.
		s.logger.Warn("clause stored but not indexed", zap.String("id", stored.ID))
		s.respondJSON(w, http.StatusAccepted, map[string]any{
			"id":     stored.ID,
			"status": "stored_not_indexed",
			"index":  s.svc.Status(),
		})
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{
		"id":     stored.ID,
		"status": "added",
		"index":  s.svc.Status(),
	})
}

func (s *Server) handleListClauses(w http.ResponseWriter, r *http.Request) {
	docType := r.URL.Query().Get("document_type")
	jurisdiction := r.URL.Query().Get("jurisdiction")
	clauses := make([]models.Clause, 0)
	for _, c := range s.svc.Clauses() {
		if docType != "" && c.DocumentType != docType {
			continue
		}
		if jurisdiction != "" && c.Jurisdiction != jurisdiction && c.Jurisdiction != models.DefaultTag {
			continue
		}
		clauses = append(clauses, c)
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"clauses": clauses, "total": len(clauses)})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Rebuild(r.Context())
	switch {
	case errors.Is(err, retriever.ErrOffline):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		s.logger.Error("rebuild failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	default:
		s.respondJSON(w, http.StatusOK, map[string]any{"status": "rebuilt", "index": s.svc.Status()})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, Report(s.svc, s.config))
}

// Report collects the retrieval status, index manifest, effective configuration and disk usage.
func Report(svc ClauseService, cfg *config.Config) *cli.StatusReport {
	report := &cli.StatusReport{
		Index:   svc.Status(),
		Clauses: len(svc.Clauses()),
		Config: map[string]any{
			"embedding_provider":   cfg.Embedding.Provider,
			"embedding_model":      cfg.Embedding.Model,
			"embedding_dimensions": cfg.Embedding.Dimensions,
			"chunk_size":           cfg.Index.ChunkSize,
			"chunk_overlap":        cfg.Index.ChunkOverlap,
			"clause_dir":           cfg.Clauses.Dir,
			"index_path":           cfg.Index.Path,
			"max_k":                cfg.Retrieval.MaxK,
		},
	}
	if m, ok := svc.Manifest(); ok {
		report.Manifest = &m
	}
	if u, err := storage.DiskUsage(cfg.Clauses.Dir); err == nil {
		report.ClauseDirUsage = &u
	}
	if u, err := storage.DiskUsage(cfg.Index.Path); err == nil {
		report.IndexUsage = &u
	}
	return report
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
