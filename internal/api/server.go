// Package api provides the HTTP handlers exposing grid operations: table
// state submission, facet fetches, and selection publishes.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"duck-grid/internal/facet"
	"duck-grid/internal/selection"
	"duck-grid/internal/table"
)

// Grid bundles one table client with its facet registry.
type Grid struct {
	Client *table.Client
	Facets *facet.Registry
}

// Server owns the live grids and shared selections. The grid core is
// single-threaded: one hub mutex serializes every mutating handler, since
// grids publishing to a shared selection trigger synchronous callbacks into
// their peers.
type Server struct {
	// QueryTimeout bounds the engine work done for one request; zero leaves
	// requests unbounded.
	QueryTimeout time.Duration

	logger *slog.Logger

	mu         sync.Mutex
	grids      map[string]*Grid
	selections map[string]*selection.Selection
	// sources maps "selection/source" to a stable bus identity so repeated
	// publishes from the same external source replace its contribution.
	sources map[string]selection.ClientID
}

// NewServer creates an empty Server.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:     logger.With("component", "api"),
		grids:      make(map[string]*Grid),
		selections: make(map[string]*selection.Selection),
		sources:    make(map[string]selection.ClientID),
	}
}

// RegisterGrid adds a connected grid under name.
func (s *Server) RegisterGrid(name string, g *Grid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grids[name] = g
}

// RegisterSelection adds a shared selection so the selection endpoints can
// publish to it.
func (s *Server) RegisterSelection(sel *selection.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections[sel.Name()] = sel
}

// Routes builds the router for the grid API.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Route("/tables/{table}", func(r chi.Router) {
			r.Get("/", s.handleTableGet)
			r.Post("/query", s.handleTableQuery)
			r.Get("/facets/{column}", s.handleFacet)
		})
		r.Route("/selections/{name}", func(r chi.Router) {
			r.Get("/", s.handleSelectionGet)
			r.Post("/", s.handleSelectionPublish)
			r.Delete("/", s.handleSelectionReset)
		})
	})
	return r
}

func (s *Server) grid(name string) (*Grid, bool) {
	g, ok := s.grids[name]
	return g, ok
}

// Locker exposes the hub mutex so background work (debounced facet fetches)
// can serialize with the handlers.
func (s *Server) Locker() sync.Locker { return &s.mu }

// requestCtx applies the configured query timeout to the request context.
func (s *Server) requestCtx(r *http.Request) (context.Context, context.CancelFunc) {
	if s.QueryTimeout <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), s.QueryTimeout)
}

func (s *Server) sourceID(sel, source string) selection.ClientID {
	key := sel + "/" + source
	if id, ok := s.sources[key]; ok {
		return id
	}
	id := selection.NewClientID(source)
	s.sources[key] = id
	return id
}
