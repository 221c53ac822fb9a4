// Package queryapi exposes the Query Engine as a small local JSON API:
// a thin HTTP surface for callers that want to issue a search without
// linking the Go package directly. It is not a search front-end; the
// response carries a request ID and the ranked url/score pairs Search
// returns, with no rendering or extra ranking.
package queryapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/searchcore/searchcore/internal/query"
)

const defaultK = 5

// Server serves search queries over HTTP.
type Server struct {
	engine *query.Engine
	logger *slog.Logger
	router *chi.Mux
	server *http.Server
}

// New builds a Server bound to addr, answering queries against engine.
func New(addr string, engine *query.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine: engine,
		logger: logger,
		router: chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/search", s.handleSearch)
	})

	s.server = &http.Server{Addr: addr, Handler: s.router}
	return s
}

// Start blocks serving HTTP until the listener errors or is shut down.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchResponse struct {
	RequestID string          `json:"request_id"`
	Results   []searchResult  `json:"results"`
}

type searchResult struct {
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "missing required query parameter \"q\"")
		return
	}

	k := defaultK
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		parsed, err := strconv.Atoi(kStr)
		if err != nil || parsed <= 0 {
			s.respondError(w, http.StatusBadRequest, "\"k\" must be a positive integer")
			return
		}
		k = parsed
	}

	requestID := uuid.NewString()

	results, err := s.engine.Search(r.Context(), q, k)
	if err != nil {
		s.logger.Warn("search failed", "request_id", requestID, "query", q, "cause", err)
		s.respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	out := make([]searchResult, 0, len(results))
	for _, res := range results {
		out = append(out, searchResult{URL: res.URL, Score: res.Score})
	}

	s.respondJSON(w, http.StatusOK, searchResponse{RequestID: requestID, Results: out})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
