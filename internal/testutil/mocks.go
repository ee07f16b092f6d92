// Package testutil provides shared mock implementations for use in tests
// across the codebase. This follows the Go convention of a shared test
// utility package (like net/http/httptest).
package testutil

import (
	"context"
	"strings"
	"sync"

	"duck-grid/internal/engine"
)

// === Engine Mock ===

// MockEngine implements engine.Engine for testing. Queries are recorded for
// assertions; responses are scripted by substring match, first match wins.
type MockEngine struct {
	QueryFn func(ctx context.Context, sql string) (*engine.Result, error)
	Scripts []Script
	// Queries collects every submitted statement in order. Guarded by mu;
	// use the accessors when another goroutine may still be querying.
	Queries []string

	mu sync.Mutex
}

// Script is one canned response, keyed by a substring of the statement.
type Script struct {
	Contains string
	Result   *engine.Result
	Err      error
}

// Query implements the interface method for testing.
func (m *MockEngine) Query(ctx context.Context, sql string) (*engine.Result, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, sql)
	m.mu.Unlock()
	if m.QueryFn != nil {
		return m.QueryFn(ctx, sql)
	}
	for _, s := range m.Scripts {
		if strings.Contains(sql, s.Contains) {
			return s.Result, s.Err
		}
	}
	return engine.NewResult(nil, nil), nil
}

// LastQuery returns the most recently submitted statement, or "" if none.
func (m *MockEngine) LastQuery() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Queries) == 0 {
		return ""
	}
	return m.Queries[len(m.Queries)-1]
}

// QueryCount returns the number of statements submitted so far.
func (m *MockEngine) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// QueriesContaining returns every recorded statement containing sub.
func (m *MockEngine) QueriesContaining(sub string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, q := range m.Queries {
		if strings.Contains(q, sub) {
			out = append(out, q)
		}
	}
	return out
}

// CountResult builds a one-row result carrying a total-count column.
func CountResult(alias string, n int64) *engine.Result {
	return engine.NewResult([]string{alias}, [][]any{{n}})
}
