// Package facet implements the per-column auxiliary clients that fetch
// unique values or min/max bounds for filter widgets. Each sidecar queries
// under cascading exclusion: the in-grid filter for its own column is omitted
// from the WHERE clause it builds, so a dropdown for column A always shows
// what A could become given every other active filter.
package facet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"duck-grid/internal/colmap"
	"duck-grid/internal/engine"
	"duck-grid/internal/sqlast"
)

// Kind selects what metadata a sidecar fetches.
type Kind string

// Facet kinds.
const (
	KindUnique     Kind = "unique"
	KindMinMax     Kind = "minmax"
	KindTotalCount Kind = "totalCount"
	KindCustom     Kind = "custom"
)

// SortMode orders the unique-value option list.
type SortMode string

// Sort modes for unique facets.
const (
	SortByCount SortMode = "count"
	SortAlpha   SortMode = "alpha"
)

// DefaultLimit is the initial unique-value fetch limit.
const DefaultLimit = 20

// CascadeSource supplies the base FROM/WHERE for auxiliary queries. The table
// client implements it.
type CascadeSource interface {
	// CascadeBase returns the resolved source and the combined predicate of
	// the cross-filter plus every in-grid filter except excludeColumn's.
	CascadeBase(excludeColumn string) (sqlast.FromItem, sqlast.Expr, error)
	// Column resolves a logical column identifier and its configuration.
	Column(id string) (sqlast.Ident, colmap.ColumnConfig, bool)
}

// Option is one unique-value entry with its row count.
type Option struct {
	Value any   `json:"value"`
	Count int64 `json:"count"`
	// Selected marks values currently chosen in the UI, including ones
	// unioned back in from outside the fetched window.
	Selected bool `json:"selected,omitempty"`
}

// Options configures one sidecar.
type Options struct {
	ColumnID string
	Kind     Kind
	Limit    int
	SortMode SortMode
	// Debounce delays search-term fetches; zero fetches synchronously.
	Debounce time.Duration
	// Custom builds the statement for KindCustom facets.
	Custom func(from sqlast.FromItem, where sqlast.Expr) *sqlast.SelectStmt
}

// Key is the registry key for a column/kind pair.
func (o Options) Key() string { return o.ColumnID + "/" + string(o.Kind) }

// Sidecar is one live auxiliary client.
type Sidecar struct {
	opts   Options
	source CascadeSource
	eng    engine.Engine
	logger *slog.Logger
	flight *singleflight.Group
	// guard serializes debounced fetches with the cascade source's owner;
	// synchronous fetches run under the caller's own serialization.
	guard sync.Locker

	// mu guards all state below; the debounce timer refetches on its own
	// goroutine.
	mu        sync.Mutex
	connected bool
	limit     int
	search    string
	selected  []any
	timer     *time.Timer

	options []Option
	hasMore bool
	min     any
	max     any
	total   int64
}

// Key returns the sidecar's registry key.
func (s *Sidecar) Key() string { return s.opts.Key() }

// Options returns the last fetched unique-value list.
func (s *Sidecar) Options() []Option {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Option(nil), s.options...)
}

// HasMore reports whether the last fetch hit the limit+1 probe.
func (s *Sidecar) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// MinMax returns the last fetched bounds.
func (s *Sidecar) MinMax() (any, any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.min, s.max
}

// Total returns the last fetched total count.
func (s *Sidecar) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Limit returns the current fetch limit.
func (s *Sidecar) Limit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit
}

// Disconnect stops the sidecar; further refreshes are no-ops.
func (s *Sidecar) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// SetSelected records the values currently chosen in the UI. Chosen values
// outside the fetched window are unioned back into the option list so an
// existing choice never silently disappears.
func (s *Sidecar) SetSelected(values []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = append([]any(nil), values...)
	s.decorate()
}

// SetSearch updates the substring filter, resets the fetch limit, and
// refetches (debounced when configured). The current selection is kept.
func (s *Sidecar) SetSearch(ctx context.Context, term string) error {
	s.mu.Lock()
	if term == s.search {
		s.mu.Unlock()
		return nil
	}
	s.search = term
	s.limit = s.baseLimit()
	if s.opts.Debounce > 0 {
		if s.timer != nil {
			s.timer.Stop()
		}
		// The timer outlives the caller; its fetch must not inherit the
		// caller's cancellation.
		fetchCtx := context.WithoutCancel(ctx)
		s.timer = time.AfterFunc(s.opts.Debounce, func() {
			if s.guard != nil {
				s.guard.Lock()
				defer s.guard.Unlock()
			}
			if err := s.Refresh(fetchCtx); err != nil {
				s.logger.Error("debounced facet fetch failed", "error", err)
			}
		})
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SetLimit replaces the fetch limit and refetches when it changed; values at
// or below zero reset to the base limit.
func (s *Sidecar) SetLimit(ctx context.Context, limit int) error {
	s.mu.Lock()
	if limit <= 0 {
		limit = s.baseLimit()
	}
	if limit == s.limit {
		s.mu.Unlock()
		return nil
	}
	s.limit = limit
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// LoadMore extends the fetch limit by the base step and refetches, keeping
// the current selection.
func (s *Sidecar) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	s.limit += s.baseLimit()
	s.mu.Unlock()
	return s.Refresh(ctx)
}

func (s *Sidecar) baseLimit() int {
	if s.opts.Limit > 0 {
		return s.opts.Limit
	}
	return DefaultLimit
}

// Refresh fetches the facet data. Concurrent refreshes for the same key share
// one in-flight request. A disconnected sidecar is a no-op.
func (s *Sidecar) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	_, err, _ := s.flight.Do(s.Key(), func() (any, error) {
		return nil, s.fetch(ctx)
	})
	return err
}

func (s *Sidecar) fetch(ctx context.Context) error {
	switch s.opts.Kind {
	case KindUnique:
		return s.fetchUnique(ctx)
	case KindMinMax:
		return s.fetchMinMax(ctx)
	case KindTotalCount:
		return s.fetchTotal(ctx)
	case KindCustom:
		return s.fetchCustom(ctx)
	default:
		return fmt.Errorf("unknown facet kind %q", s.opts.Kind)
	}
}

// fetchUnique queries the distinct values of the column, grouped with counts,
// optionally substring-filtered, capped at limit+1 to detect more rows.
func (s *Sidecar) fetchUnique(ctx context.Context) error {
	from, where, err := s.source.CascadeBase(s.opts.ColumnID)
	if err != nil {
		return err
	}
	ident, _, ok := s.source.Column(s.opts.ColumnID)
	if !ok {
		return fmt.Errorf("facet column %q is not mapped", s.opts.ColumnID)
	}
	col := sqlast.Col(ident)

	s.mu.Lock()
	search := s.search
	limit := s.limit
	s.mu.Unlock()

	if search != "" {
		where = sqlast.And(where, searchPredicate(col, search))
	}

	probe := limit + 1
	stmt := &sqlast.SelectStmt{
		Columns: []sqlast.SelectItem{
			{Expr: col, Alias: "value"},
			{Expr: &sqlast.FuncCall{Name: "COUNT", Star: true}, Alias: "count"},
		},
		From:    from,
		Where:   where,
		GroupBy: []sqlast.Expr{col},
		OrderBy: s.orderBy(col),
		Limit:   &probe,
	}

	res, err := s.query(ctx, stmt)
	if err != nil {
		return err
	}

	n := res.RowCount()
	if n > limit {
		n = limit
	}
	opts := make([]Option, 0, n)
	for i := 0; i < n; i++ {
		opts = append(opts, Option{
			Value: res.Value(i, "value"),
			Count: asInt64(res.Value(i, "count")),
		})
	}

	s.mu.Lock()
	s.hasMore = res.RowCount() > limit
	s.options = opts
	s.decorate()
	s.mu.Unlock()
	return nil
}

// orderBy sorts by frequency (count DESC, value as tiebreak) or
// alphabetically by value.
func (s *Sidecar) orderBy(col sqlast.Expr) []sqlast.OrderByItem {
	if s.opts.SortMode == SortAlpha {
		return []sqlast.OrderByItem{{Expr: col}}
	}
	return []sqlast.OrderByItem{
		{Expr: &sqlast.FuncCall{Name: "COUNT", Star: true}, Desc: true},
		{Expr: col},
	}
}

func (s *Sidecar) fetchMinMax(ctx context.Context) error {
	from, where, err := s.source.CascadeBase(s.opts.ColumnID)
	if err != nil {
		return err
	}
	ident, _, ok := s.source.Column(s.opts.ColumnID)
	if !ok {
		return fmt.Errorf("facet column %q is not mapped", s.opts.ColumnID)
	}
	col := sqlast.Col(ident)

	stmt := &sqlast.SelectStmt{
		Columns: []sqlast.SelectItem{
			{Expr: &sqlast.FuncCall{Name: "MIN", Args: []sqlast.Expr{col}}, Alias: "min"},
			{Expr: &sqlast.FuncCall{Name: "MAX", Args: []sqlast.Expr{col}}, Alias: "max"},
		},
		From:  from,
		Where: where,
	}

	res, err := s.query(ctx, stmt)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.min = res.Value(0, "min")
	s.max = res.Value(0, "max")
	s.mu.Unlock()
	return nil
}

// fetchTotal counts rows under the full filter set; no column is excluded.
func (s *Sidecar) fetchTotal(ctx context.Context) error {
	from, where, err := s.source.CascadeBase("")
	if err != nil {
		return err
	}
	stmt := &sqlast.SelectStmt{
		Columns: []sqlast.SelectItem{
			{Expr: &sqlast.FuncCall{Name: "COUNT", Star: true}, Alias: "total"},
		},
		From:  from,
		Where: where,
	}
	res, err := s.query(ctx, stmt)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.total = asInt64(res.Value(0, "total"))
	s.mu.Unlock()
	return nil
}

func (s *Sidecar) fetchCustom(ctx context.Context) error {
	if s.opts.Custom == nil {
		return fmt.Errorf("custom facet %q has no statement builder", s.opts.ColumnID)
	}
	from, where, err := s.source.CascadeBase(s.opts.ColumnID)
	if err != nil {
		return err
	}
	_, err = s.query(ctx, s.opts.Custom(from, where))
	return err
}

func (s *Sidecar) query(ctx context.Context, stmt *sqlast.SelectStmt) (*engine.Result, error) {
	sql := sqlast.Format(stmt)
	res, err := s.eng.Query(ctx, sql)
	if err != nil {
		s.logger.Error("facet query failed", "error", err, "statement", sql)
		return nil, err
	}
	return res, nil
}

// decorate marks selected options and unions selected-but-absent values back
// into the displayed list. The caller holds s.mu.
func (s *Sidecar) decorate() {
	present := make(map[string]bool, len(s.options))
	for i := range s.options {
		key := fmt.Sprint(s.options[i].Value)
		s.options[i].Selected = false
		present[key] = true
	}
	for _, sel := range s.selected {
		key := fmt.Sprint(sel)
		if present[key] {
			for i := range s.options {
				if fmt.Sprint(s.options[i].Value) == key {
					s.options[i].Selected = true
				}
			}
			continue
		}
		s.options = append(s.options, Option{Value: sel, Selected: true})
	}
}

// searchPredicate matches the column's text form against the term as a
// case-insensitive substring, with LIKE metacharacters in the term escaped.
func searchPredicate(col sqlast.Expr, term string) sqlast.Expr {
	text := &sqlast.CastExpr{Expr: col, Type: "VARCHAR"}
	return &sqlast.LikeExpr{
		Expr:    text,
		Pattern: sqlast.String("%" + likeEscape(term) + "%"),
		ILike:   true,
		Escape:  `\`,
	}
}

func likeEscape(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
