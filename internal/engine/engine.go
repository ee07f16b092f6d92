// Package engine defines the external SQL engine contract the grid core
// submits statements to, and the columnar result shape it consumes.
package engine

import (
	"context"
)

// Engine accepts a serialized SELECT statement and returns a tabular result,
// or reports an asynchronous error. Implementations own cancellation and
// timeout policy; the grid core only requires that results be full snapshots.
type Engine interface {
	Query(ctx context.Context, sql string) (*Result, error)
}

// Result is a columnar result set: named columns with indexable row access.
type Result struct {
	Columns []string
	Rows    [][]any

	index map[string]int
}

// NewResult builds a Result and its column index.
func NewResult(columns []string, rows [][]any) *Result {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	return &Result{Columns: columns, Rows: rows, index: idx}
}

// RowCount returns the number of rows.
func (r *Result) RowCount() int { return len(r.Rows) }

// Value returns the cell at (row, column name); nil when either is unknown.
func (r *Result) Value(row int, column string) any {
	if row < 0 || row >= len(r.Rows) {
		return nil
	}
	i, ok := r.index[column]
	if !ok || i >= len(r.Rows[row]) {
		return nil
	}
	return r.Rows[row][i]
}

// Record returns row i keyed by column name.
func (r *Result) Record(i int) map[string]any {
	if i < 0 || i >= len(r.Rows) {
		return nil
	}
	rec := make(map[string]any, len(r.Columns))
	for j, c := range r.Columns {
		if j < len(r.Rows[i]) {
			rec[c] = r.Rows[i][j]
		}
	}
	return rec
}
