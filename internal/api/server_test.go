package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-grid/internal/colmap"
	"duck-grid/internal/engine"
	"duck-grid/internal/facet"
	"duck-grid/internal/selection"
	"duck-grid/internal/table"
	"duck-grid/internal/testutil"
)

func newTestServer(t *testing.T) (*Server, *testutil.MockEngine, *selection.Selection) {
	t.Helper()
	eng := &testutil.MockEngine{Scripts: []testutil.Script{
		{Contains: `COUNT(*) AS "__total"`, Result: testutil.CountResult(table.TotalAlias, 3)},
		{Contains: "GROUP BY", Result: engine.NewResult(
			[]string{"value", "count"},
			[][]any{{"active", int64(2)}, {"closed", int64(1)}},
		)},
		{Contains: "SELECT", Result: engine.NewResult(
			[]string{"id", "status"},
			[][]any{{int64(1), "active"}, {int64(2), "active"}, {int64(3), "closed"}},
		)},
	}}

	filter := selection.New("crossfilter")
	client, err := table.NewClient(table.Options{
		Name:   "orders",
		Engine: eng,
		Columns: []colmap.ColumnConfig{
			{ID: "id"},
			{ID: "status", Facet: colmap.FacetUnique},
		},
		Source:         table.NamedSource{Name: "orders"},
		Filter:         filter,
		SubmitOnChange: true,
	})
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))

	srv := NewServer(nil)
	srv.RegisterGrid("orders", &Grid{
		Client: client,
		Facets: facet.NewRegistry(client, eng, nil),
	})
	srv.RegisterSelection(filter)
	return srv, eng, filter
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Routes(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestTableQuery(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	router := srv.Routes()

	rec := doJSON(t, router, http.MethodPost, "/api/tables/orders/query", map[string]any{
		"pagination":    map[string]int{"pageIndex": 0, "pageSize": 10},
		"columnFilters": map[string]any{"status": "active"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Total)
	assert.Len(t, resp.Rows, 3)
	assert.Equal(t, 10, resp.State.Pagination.PageSize)

	assert.NotEmpty(t, eng.QueriesContaining(`"status" = 'active'`))
}

func TestTableQueryUnknownTable(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Routes(), http.MethodPost, "/api/tables/nope/query", map[string]any{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTableQueryBadBody(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/tables/orders/query", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTableGetReturnsCurrentWindow(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Routes(), http.MethodGet, "/api/tables/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Total)
	assert.Len(t, resp.Rows, 3)
}

func TestFacetUnique(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	rec := doJSON(t, srv.Routes(), http.MethodGet, "/api/tables/orders/facets/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp facetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, facet.KindUnique, resp.Kind)
	require.Len(t, resp.Options, 2)
	assert.Equal(t, "active", resp.Options[0].Value)

	// The facet query excludes its own column's filter but runs GROUP BY.
	assert.NotEmpty(t, eng.QueriesContaining(`GROUP BY "status"`))
}

func TestFacetSearch(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	rec := doJSON(t, srv.Routes(), http.MethodGet, "/api/tables/orders/facets/status?search=act", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, eng.QueriesContaining("ILIKE '%act%'"))
}

func TestFacetUnknownColumn(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Routes(), http.MethodGet, "/api/tables/orders/facets/bogus", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFacetLimitAppliesToLiveSidecar(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	router := srv.Routes()

	rec := doJSON(t, router, http.MethodGet, "/api/tables/orders/facets/status?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, eng.LastQuery(), "LIMIT 3")

	// A follow-up request with a larger limit refetches the existing sidecar
	// under the new limit rather than keeping the old one.
	rec = doJSON(t, router, http.MethodGet, "/api/tables/orders/facets/status?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, eng.LastQuery(), "LIMIT 11")

	// An unchanged limit refetches exactly once.
	n := eng.QueryCount()
	rec = doJSON(t, router, http.MethodGet, "/api/tables/orders/facets/status?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, n+1, eng.QueryCount())
}

func TestQueryTimeoutBoundsRequests(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	srv.QueryTimeout = time.Minute

	deadlines := 0
	eng.QueryFn = func(ctx context.Context, sql string) (*engine.Result, error) {
		if _, ok := ctx.Deadline(); ok {
			deadlines++
		}
		return engine.NewResult(nil, nil), nil
	}

	rec := doJSON(t, srv.Routes(), http.MethodPost, "/api/tables/orders/query", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	// Both the row query and the count companion ran under the deadline.
	assert.Equal(t, 2, deadlines)

	rec = doJSON(t, srv.Routes(), http.MethodGet, "/api/tables/orders/facets/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, deadlines)
}

func TestFacetBadLimit(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Routes(), http.MethodGet, "/api/tables/orders/facets/status?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelectionPublishAndReset(t *testing.T) {
	srv, eng, filter := newTestServer(t)
	router := srv.Routes()

	rec := doJSON(t, router, http.MethodPost, "/api/selections/crossfilter", selectionRequest{
		Source: "map-widget",
		Column: "status",
		Values: []any{"active", "closed"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp selectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Active)
	assert.Equal(t, `"status" IN ('active', 'closed')`, resp.Predicate)

	// The publish drove the subscribed grid to re-query under the predicate.
	assert.NotEmpty(t, eng.QueriesContaining(`"status" IN ('active', 'closed')`))
	assert.True(t, filter.Active())

	// Publishing again from the same source replaces the clause.
	rec = doJSON(t, router, http.MethodPost, "/api/selections/crossfilter", selectionRequest{
		Source: "map-widget",
		Column: "status",
		Values: []any{"active"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var replaced selectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replaced))
	assert.Equal(t, `"status" = 'active'`, replaced.Predicate)

	rec = doJSON(t, router, http.MethodDelete, "/api/selections/crossfilter", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reset selectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reset))
	assert.False(t, reset.Active)
	assert.Empty(t, reset.Predicate)
	// The predicate field is omitted entirely after reset.
	assert.NotContains(t, rec.Body.String(), "predicate")
	assert.Nil(t, filter.PredicateFor(""))
}

func TestSelectionPublishValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Routes()

	rec := doJSON(t, router, http.MethodPost, "/api/selections/crossfilter", selectionRequest{
		Column: "status",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/selections/crossfilter", selectionRequest{
		Source: "widget",
		Column: `status"; DROP TABLE x`,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/selections/nope", selectionRequest{
		Source: "widget",
		Column: "status",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
