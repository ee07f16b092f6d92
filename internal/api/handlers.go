package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"duck-grid/internal/colmap"
	"duck-grid/internal/domain"
	"duck-grid/internal/facet"
	"duck-grid/internal/selection"
	"duck-grid/internal/sqlast"
	"duck-grid/internal/table"
)

// tableResponse is the row payload for table endpoints.
type tableResponse struct {
	Rows  []map[string]any `json:"rows"`
	Total int64            `json:"total"`
	State table.State      `json:"state"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTableGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.grid(chi.URLParam(r, "table"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown table")
		return
	}
	writeJSON(w, http.StatusOK, tableResponse{
		Rows:  g.Client.Rows(),
		Total: g.Client.TotalRows(),
		State: g.Client.State(),
	})
}

// handleTableQuery applies a full table state and returns the fresh window.
func (s *Server) handleTableQuery(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.grid(chi.URLParam(r, "table"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown table")
		return
	}

	var state table.State
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		writeError(w, http.StatusBadRequest, "invalid table state: "+err.Error())
		return
	}

	ctx, cancel := s.requestCtx(r)
	defer cancel()
	if err := g.Client.SetState(ctx, state); err != nil {
		s.logger.Error("table query failed", "table", chi.URLParam(r, "table"), "error", err)
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tableResponse{
		Rows:  g.Client.Rows(),
		Total: g.Client.TotalRows(),
		State: g.Client.State(),
	})
}

// facetResponse is the union payload for all facet kinds.
type facetResponse struct {
	Kind    facet.Kind     `json:"kind"`
	Options []facet.Option `json:"options,omitempty"`
	HasMore bool           `json:"hasMore,omitempty"`
	Min     any            `json:"min,omitempty"`
	Max     any            `json:"max,omitempty"`
	Total   int64          `json:"total,omitempty"`
}

func (s *Server) handleFacet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.grid(chi.URLParam(r, "table"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown table")
		return
	}
	column := chi.URLParam(r, "column")
	_, def, ok := g.Client.Column(column)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown column")
		return
	}

	kind := facetKind(r.URL.Query().Get("kind"), def)
	opts := facet.Options{ColumnID: column, Kind: kind}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = n
	}
	if r.URL.Query().Get("sort") == "alpha" {
		opts.SortMode = facet.SortAlpha
	}

	ctx, cancel := s.requestCtx(r)
	defer cancel()

	sc, live := g.Facets.Get(opts.Key())
	if !live {
		sc = g.Facets.Register(opts)
		g.Client.AddSidecar(sc)
	}
	// A changed limit on a live sidecar refetches; the follow-up request is
	// how the HTTP surface loads more values.
	var err error
	refetched := false
	if live && opts.Limit > 0 && opts.Limit != sc.Limit() {
		err = sc.SetLimit(ctx, opts.Limit)
		refetched = err == nil
	}
	if err == nil {
		if term, ok := searchParam(r); ok {
			err = sc.SetSearch(ctx, term)
		} else if !refetched {
			err = sc.Refresh(ctx)
		}
	}
	if err != nil {
		s.logger.Error("facet fetch failed", "column", column, "kind", kind, "error", err)
		writeError(w, statusFromError(err), err.Error())
		return
	}

	resp := facetResponse{Kind: kind}
	switch kind {
	case facet.KindMinMax:
		resp.Min, resp.Max = sc.MinMax()
	case facet.KindTotalCount:
		resp.Total = sc.Total()
	default:
		resp.Options = sc.Options()
		resp.HasMore = sc.HasMore()
	}
	writeJSON(w, http.StatusOK, resp)
}

// facetKind resolves the requested kind, falling back to the column's
// configured facet, then to unique values.
func facetKind(param string, def colmap.ColumnConfig) facet.Kind {
	if param != "" {
		return facet.Kind(param)
	}
	if def.Facet != "" {
		return facet.Kind(def.Facet)
	}
	return facet.KindUnique
}

func searchParam(r *http.Request) (string, bool) {
	if !r.URL.Query().Has("search") {
		return "", false
	}
	return r.URL.Query().Get("search"), true
}

// selectionRequest publishes one source's contribution to a shared selection.
type selectionRequest struct {
	// Source labels the external writer; repeated publishes from the same
	// source replace its clause.
	Source string `json:"source"`
	// Column is the SQL column the values constrain.
	Column string `json:"column"`
	// Values are the chosen values; empty clears the contribution.
	Values []any `json:"values"`
	// List marks Column as a DuckDB list column (overlap semantics).
	List bool `json:"list"`
}

type selectionResponse struct {
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	Predicate string `json:"predicate,omitempty"`
	Value     any    `json:"value,omitempty"`
}

func (s *Server) handleSelectionGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.selections[chi.URLParam(r, "name")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown selection")
		return
	}
	writeJSON(w, http.StatusOK, selectionState(sel))
}

func (s *Server) handleSelectionPublish(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.selections[chi.URLParam(r, "name")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown selection")
		return
	}

	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid selection request: "+err.Error())
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}
	ident, err := sqlast.NewIdent(req.Column)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	mgr := selection.NewManager(sel, s.sourceID(sel.Name(), req.Source), ident, req.List)
	mgr.Select(req.Values)
	writeJSON(w, http.StatusOK, selectionState(sel))
}

func (s *Server) handleSelectionReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.selections[chi.URLParam(r, "name")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown selection")
		return
	}
	sel.Reset()
	writeJSON(w, http.StatusOK, selectionState(sel))
}

func selectionState(sel *selection.Selection) selectionResponse {
	resp := selectionResponse{
		Name:   sel.Name(),
		Active: sel.Active(),
		Value:  sel.Value(),
	}
	if pred := sel.PredicateFor(""); pred != nil {
		resp.Predicate = sqlast.FormatExpr(pred)
	}
	return resp
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFromError maps domain errors to HTTP status codes.
func statusFromError(err error) int {
	var validation *domain.ValidationError
	var query *domain.QueryError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &query):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
