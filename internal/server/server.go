// Package server provides the HTTP API for clause retrieval.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/clausedraft/internal/config"
	"github.com/hyperjump/clausedraft/internal/indexer"
	"github.com/hyperjump/clausedraft/internal/models"
	"github.com/hyperjump/clausedraft/pkg/utils"
	"go.uber.org/zap"
)

// ClauseService is the retrieval core the API serves.
type ClauseService interface {
	Retrieve(ctx context.Context, q models.RetrieveQuery) []*models.RetrievalResult
	AddClauseWithID(ctx context.Context, clause models.Clause) (models.Clause, bool)
	Rebuild(ctx context.Context) error
	Clauses() []models.Clause
	Status() models.Status
	Manifest() (indexer.Manifest, bool)
}

// Server is the HTTP server for the clause API.
type Server struct {
	svc    ClauseService
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(svc ClauseService, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		svc:    svc,
		config: cfg,
		logger: utils.OrNop(logger),
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/clauses/retrieve", s.handleRetrieve)
		r.Post("/clauses/format", s.handleFormat)
		r.Post("/clauses", s.handleAddClause)
		r.Get("/clauses", s.handleListClauses)
		r.Post("/index/rebuild", s.handleRebuild)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
