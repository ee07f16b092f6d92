package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Compile-time check.
var _ Engine = (*DuckDB)(nil)

// DuckDB adapts a *sql.DB (duckdb driver) to the Engine contract.
type DuckDB struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDuckDB wraps an open DuckDB connection.
func NewDuckDB(db *sql.DB, logger *slog.Logger) *DuckDB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DuckDB{db: db, logger: logger.With("component", "engine")}
}

// Query executes the statement and scans the full result set.
func (e *DuckDB) Query(ctx context.Context, sqlQuery string) (*Result, error) {
	start := time.Now()
	rows, err := e.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan results: %w", err)
	}
	e.logger.Debug("query executed",
		"rows", result.RowCount(),
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// scanRows reads a *sql.Rows into a columnar Result. Byte slices become
// strings so results serialize cleanly to JSON.
func scanRows(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var resultRows [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]any, len(vals))
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			} else {
				row[i] = v
			}
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return NewResult(cols, resultRows), nil
}
