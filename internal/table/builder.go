package table

import (
	"duck-grid/internal/colmap"
	"duck-grid/internal/filters"
	"duck-grid/internal/sqlast"
)

// HighlightAlias is the SELECT alias of the boolean-as-0/1 highlight column.
const HighlightAlias = "__highlight"

// TotalAlias is the SELECT alias of the sentinel window-count column.
const TotalAlias = "__total"

// Builder assembles one SELECT statement per render cycle from the mapped
// columns, the table state, and the active cross-filter predicate.
type Builder struct {
	mapper *colmap.Mapper
	source Source
}

// NewBuilder creates a Builder over a mapper and a source.
func NewBuilder(mapper *colmap.Mapper, source Source) *Builder {
	return &Builder{mapper: mapper, source: source}
}

// Mapper returns the current column mapper.
func (b *Builder) Mapper() *colmap.Mapper { return b.mapper }

// SetMapper swaps the mapper wholesale (schema inference rebuilds it).
func (b *Builder) SetMapper(m *colmap.Mapper) { b.mapper = m }

// BuildOptions carries the per-cycle inputs beyond the table state.
type BuildOptions struct {
	// CrossFilter is the merged predicate read from peer selections. It goes
	// into the WHERE clause ahead of in-grid filters, and forces the
	// highlight expression to the constant "all highlighted".
	CrossFilter sqlast.Expr
	// Highlight is the highlight predicate for the 0/1 emphasis column.
	Highlight sqlast.Expr
	// WithHighlight appends the highlight column to the SELECT list.
	WithHighlight bool
	// WithWindowCount appends a COUNT(*) OVER () sentinel column instead of
	// relying on the split companion count query.
	WithWindowCount bool
	// ExcludeColumn omits that column's in-grid filter (cascading exclusion,
	// used when building facet queries).
	ExcludeColumn string
	// NoPagination drops LIMIT/OFFSET (facet and count queries).
	NoPagination bool
}

// Built is the assembly output for one cycle.
type Built struct {
	// Stmt is the assembled statement.
	Stmt *sqlast.SelectStmt
	// InternalFilter is the AND-combination of all in-grid filter predicates,
	// re-published to the table's outbound selection after each cycle.
	InternalFilter sqlast.Expr
	// From is the resolved source, shared with companion statements.
	From sqlast.FromItem
	// Where is the row query's full WHERE clause, shared verbatim with the
	// split-count companion.
	Where sqlast.Expr
}

// Build runs the per-cycle assembly: resolve source, SELECT list and optional
// highlight column, WHERE from filters (cross-filter first), ORDER BY from
// sort state in declaration order, LIMIT/OFFSET from pagination.
func (b *Builder) Build(state State, opts BuildOptions) (Built, error) {
	from, err := b.source.resolve(opts.CrossFilter)
	if err != nil {
		return Built{}, err
	}

	cols := b.mapper.SelectList()
	if opts.WithHighlight {
		cols = append(cols, sqlast.SelectItem{Expr: b.highlightExpr(opts), Alias: HighlightAlias})
	}
	if opts.WithWindowCount {
		cols = append(cols, sqlast.SelectItem{
			Expr:  &sqlast.FuncCall{Name: "COUNT", Star: true, Window: true},
			Alias: TotalAlias,
		})
	}

	internal := b.InternalFilter(state, opts.ExcludeColumn)

	// Factory sources already carry the cross-filter inside their statement.
	outerCross := opts.CrossFilter
	if b.source.consumesFilter() {
		outerCross = nil
	}

	where := sqlast.And(outerCross, internal)
	stmt := &sqlast.SelectStmt{
		Columns: cols,
		From:    from,
		Where:   where,
		OrderBy: b.orderBy(state),
	}
	if !opts.NoPagination {
		limit, offset := state.limitOffset()
		stmt.Limit = &limit
		if offset > 0 {
			stmt.Offset = &offset
		}
	}

	return Built{Stmt: stmt, InternalFilter: internal, From: from, Where: where}, nil
}

// InternalFilter folds the in-grid column filters (minus the excluded column)
// into one predicate. Targeted filtering is disabled in search-all mode.
func (b *Builder) InternalFilter(state State, excludeColumn string) sqlast.Expr {
	if b.mapper.Mode() == colmap.ModeInferred || b.mapper.Len() == 0 {
		return nil
	}
	var parts []sqlast.Expr
	for _, e := range b.mapper.Entries() {
		id := e.Config.ID
		if id == excludeColumn {
			continue
		}
		raw, ok := state.ColumnFilters[id]
		if !ok {
			continue
		}
		pred := filters.Build(e.Config.Filter, sqlast.Col(e.Ident), raw)
		if pred != nil {
			parts = append(parts, pred)
		}
	}
	return sqlast.And(parts...)
}

// highlightExpr is the 0/1 emphasis column. An active cross-filter forces the
// constant form: the highlight predicate may reference columns that do not
// exist in a cross-filtered/aggregated projection.
func (b *Builder) highlightExpr(opts BuildOptions) sqlast.Expr {
	if opts.CrossFilter != nil || opts.Highlight == nil {
		return sqlast.Number("1")
	}
	return &sqlast.FuncCall{
		Name: "MAX",
		Args: []sqlast.Expr{&sqlast.CaseExpr{
			Whens: []sqlast.WhenClause{{Cond: opts.Highlight, Result: sqlast.Number("1")}},
			Else:  sqlast.Number("0"),
		}},
	}
}

// orderBy translates the sort-state sequence in specified order; entries for
// unknown columns are skipped, ties keep declaration order.
func (b *Builder) orderBy(state State) []sqlast.OrderByItem {
	var items []sqlast.OrderByItem
	for _, s := range state.Sorting {
		ident, ok := b.mapper.SQLColumn(s.ColumnID)
		if !ok {
			continue
		}
		items = append(items, sqlast.OrderByItem{Expr: sqlast.Col(ident), Desc: s.Desc})
	}
	return items
}

// CountStmt builds the split-counting companion: SELECT COUNT(*) sharing the
// row query's WHERE clause verbatim.
func (b *Builder) CountStmt(built Built) *sqlast.SelectStmt {
	return &sqlast.SelectStmt{
		Columns: []sqlast.SelectItem{{Expr: &sqlast.FuncCall{Name: "COUNT", Star: true}, Alias: TotalAlias}},
		From:    built.From,
		Where:   built.Where,
	}
}
