package table

import (
	"context"
	"fmt"
	"log/slog"

	"duck-grid/internal/colmap"
	"duck-grid/internal/domain"
	"duck-grid/internal/engine"
	"duck-grid/internal/selection"
	"duck-grid/internal/sqlast"
)

// Sidecar is the client-facing surface of a facet client: refreshed when the
// grid's filters change, torn down with the grid.
type Sidecar interface {
	Refresh(ctx context.Context) error
	Disconnect()
}

// Options configures a Client.
type Options struct {
	// Name labels the client for logging and its selection identity.
	Name string
	// Engine executes the generated statements.
	Engine engine.Engine
	// Columns is the ordered column configuration; empty means inferred mode.
	Columns []colmap.ColumnConfig
	// Source is the grid's data source.
	Source Source
	// Filter is the shared cross-filter selection this grid reads and
	// publishes to. Optional.
	Filter *selection.Selection
	// Outbound receives the re-published conjunction of in-grid filters after
	// each query cycle. Defaults to Filter.
	Outbound *selection.Selection
	// RowSelection is the peer row-selection broadcast, mirrored by value.
	// Optional.
	RowSelection *selection.Selection
	// RowKeyColumn is the logical column whose values key row selection.
	RowKeyColumn string
	// Highlight appends the 0/1 highlight column to every row query.
	Highlight bool
	// WindowCount switches total counting from the split companion query to
	// the COUNT(*) OVER () sentinel column.
	WindowCount bool
	// SubmitOnChange re-submits the query on every state change. When false,
	// state changes only mark the client dirty and the host calls Refresh.
	SubmitOnChange bool
	Logger         *slog.Logger
}

// Client is the reactive engine owning one grid's UI state. It regenerates
// and submits the query on state changes, applies results, and listens for
// externally-driven selection changes.
type Client struct {
	opts    Options
	id      selection.ClientID
	logger  *slog.Logger
	builder *Builder

	state     State
	connected bool
	dirty     bool

	// generation tags each submission; a late result whose generation no
	// longer matches is dropped instead of overwriting newer state.
	generation uint64

	rows  []map[string]any
	total int64

	// lastPublished is the rendered form of the last outbound republication,
	// kept to suppress no-change publishes that would otherwise ping-pong
	// between peer clients.
	lastPublished string

	highlight sqlast.Expr

	sidecars []Sidecar
	unsubs   []func()
}

// NewClient validates the column configuration and creates a disconnected
// client.
func NewClient(opts Options) (*Client, error) {
	if opts.Engine == nil {
		return nil, domain.ErrValidation("client %q: engine is required", opts.Name)
	}
	if opts.Source == nil {
		return nil, domain.ErrValidation("client %q: source is required", opts.Name)
	}
	mapper, err := colmap.New(opts.Columns)
	if err != nil {
		return nil, err
	}
	if opts.Outbound == nil {
		opts.Outbound = opts.Filter
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.Name
	if name == "" {
		name = "table"
	}
	return &Client{
		opts:    opts,
		id:      selection.NewClientID(name),
		logger:  logger.With("component", "table", "table", name),
		builder: NewBuilder(mapper, opts.Source),
		state:   State{Pagination: Pagination{PageSize: DefaultPageSize}},
	}, nil
}

// ID returns the client's identity on the selection bus.
func (c *Client) ID() selection.ClientID { return c.id }

// State returns a snapshot of the current table state.
func (c *Client) State() State { return c.state.clone() }

// Rows returns the rows applied by the last successful query.
func (c *Client) Rows() []map[string]any { return c.rows }

// TotalRows returns the last known total row count.
func (c *Client) TotalRows() int64 { return c.total }

// Connected reports the lifecycle state.
func (c *Client) Connected() bool { return c.connected }

// AddSidecar registers a facet client for refresh and teardown.
func (c *Client) AddSidecar(s Sidecar) { c.sidecars = append(c.sidecars, s) }

// Connect attaches the client to the engine and to all configured selections,
// runs schema inference when needed, and submits the initial query.
func (c *Client) Connect(ctx context.Context) error {
	if c.connected {
		return nil
	}
	c.connected = true

	if c.opts.Filter != nil {
		off := c.opts.Filter.OnValue(c.id, func(source selection.ClientID) {
			c.onFilterChange(ctx, source)
		})
		c.unsubs = append(c.unsubs, off)
	}
	if c.opts.RowSelection != nil {
		off := c.opts.RowSelection.OnValue(c.id, func(selection.ClientID) {
			c.mirrorRowSelection()
		})
		c.unsubs = append(c.unsubs, off)
	}

	if c.builder.Mapper().Mode() == colmap.ModeInferred {
		if err := c.inferSchema(ctx); err != nil {
			return err
		}
	}
	return c.Refresh(ctx)
}

// Disconnect removes all listeners and tears down sidecars. Requests made
// while disconnected degrade to no-ops.
func (c *Client) Disconnect() {
	if !c.connected {
		return
	}
	c.connected = false
	for _, off := range c.unsubs {
		off()
	}
	c.unsubs = nil
	for _, s := range c.sidecars {
		s.Disconnect()
	}
	c.generation++
}

// SetState is the single state-change entry point. Filter changes refresh all
// registered sidecars; the query is re-submitted immediately or the client is
// marked dirty, per configuration.
func (c *Client) SetState(ctx context.Context, next State) error {
	if !c.connected {
		return nil
	}
	prev := c.state
	c.state = next.clone()

	if filtersChanged(prev.ColumnFilters, next.ColumnFilters) {
		c.refreshSidecars(ctx)
	}
	if !c.opts.SubmitOnChange {
		c.dirty = true
		return nil
	}
	return c.Refresh(ctx)
}

// Dirty reports whether a state change is awaiting an explicit Refresh.
func (c *Client) Dirty() bool { return c.dirty }

// Refresh rebuilds and submits the query for the current state, applies the
// result, and re-publishes the internal filter conjunction. A no-op while
// disconnected. Engine failures leave prior rows in place.
func (c *Client) Refresh(ctx context.Context) error {
	if !c.connected {
		return nil
	}
	c.dirty = false
	c.generation++
	gen := c.generation

	crossFilter := c.crossFilter()
	built, err := c.builder.Build(c.state, BuildOptions{
		CrossFilter:     crossFilter,
		Highlight:       c.highlight,
		WithHighlight:   c.opts.Highlight,
		WithWindowCount: c.opts.WindowCount,
	})
	if err != nil {
		return err
	}

	stmt := sqlast.Format(built.Stmt)
	res, err := c.opts.Engine.Query(ctx, stmt)
	if err != nil {
		qerr := domain.ErrQuery(stmt, err)
		c.logger.Error("row query failed", "error", err, "statement", stmt)
		return qerr
	}

	total := int64(-1)
	if !c.opts.WindowCount {
		countSQL := sqlast.Format(c.builder.CountStmt(built))
		countRes, err := c.opts.Engine.Query(ctx, countSQL)
		if err != nil {
			c.logger.Error("count query failed", "error", err, "statement", countSQL)
			return domain.ErrQuery(countSQL, err)
		}
		total = asInt64(countRes.Value(0, TotalAlias))
	}

	c.apply(gen, res, total)
	c.republish(built.InternalFilter)
	return nil
}

// apply replaces rows wholesale. Results from a superseded generation are
// dropped so an out-of-order arrival never overwrites newer state.
func (c *Client) apply(gen uint64, res *engine.Result, total int64) {
	if gen != c.generation || !c.connected {
		return
	}
	rows := make([]map[string]any, res.RowCount())
	for i := range rows {
		rows[i] = res.Record(i)
	}
	c.rows = rows
	if c.opts.WindowCount {
		if res.RowCount() > 0 {
			c.total = asInt64(res.Value(0, TotalAlias))
		} else {
			c.total = 0
		}
	} else if total >= 0 {
		c.total = total
	}
}

// republish pushes the in-grid filter conjunction to the outbound selection
// so peer clients can filter by what this grid currently shows.
func (c *Client) republish(internal sqlast.Expr) {
	if c.opts.Outbound == nil {
		return
	}
	rendered := ""
	if internal != nil {
		rendered = sqlast.FormatExpr(internal)
	}
	if rendered == c.lastPublished {
		return
	}
	c.lastPublished = rendered
	var value any
	if internal != nil {
		value = c.state.ColumnFilters
	}
	c.opts.Outbound.Update(selection.Update{
		Source:        c.id,
		Value:         value,
		Predicate:     internal,
		ExcludeSource: true,
	})
}

// SetHighlight publishes a highlight predicate. The change is self-sourced:
// the client re-queries without resetting pagination, and peers observe the
// predicate for their own emphasis rendering.
func (c *Client) SetHighlight(ctx context.Context, pred sqlast.Expr) error {
	if !c.connected {
		return nil
	}
	c.highlight = pred
	if c.opts.Filter != nil {
		var value any
		if pred != nil {
			value = "highlight"
		}
		c.opts.Filter.Update(selection.Update{Source: c.id, Value: value, Predicate: pred})
		return nil
	}
	return c.Refresh(ctx)
}

// onFilterChange handles a cross-filter selection change: externally-sourced
// changes reset pagination to page 0; a self-sourced change (the client's own
// highlight toggle) re-queries in place.
func (c *Client) onFilterChange(ctx context.Context, source selection.ClientID) {
	if !c.connected {
		return
	}
	if source != c.id {
		c.state.Pagination.PageIndex = 0
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.Error("re-query after selection change failed", "error", err)
	}
}

// mirrorRowSelection copies a peer's row-selection broadcast into local state
// by value, so selection survives pagination.
func (c *Client) mirrorRowSelection() {
	if !c.connected {
		return
	}
	vals, ok := c.opts.RowSelection.ValueFor(c.id).([]any)
	if !ok {
		c.state.RowSelection = nil
		return
	}
	sel := make(map[string]bool, len(vals))
	for _, v := range vals {
		sel[fmt.Sprint(v)] = true
	}
	c.state.RowSelection = sel
}

// PublishRowSelection broadcasts the values of the selected rows' key column
// to the peer row-selection group.
func (c *Client) PublishRowSelection(keys []any) {
	if !c.connected || c.opts.RowSelection == nil {
		return
	}
	if len(keys) > 0 && c.opts.RowKeyColumn != "" {
		if ident, ok := c.builder.Mapper().SQLColumn(c.opts.RowKeyColumn); ok {
			mgr := selection.NewManager(c.opts.RowSelection, c.id, ident, false)
			mgr.Select(keys)
			return
		}
	}
	var value any
	if len(keys) > 0 {
		value = keys
	}
	c.opts.RowSelection.Update(selection.Update{
		Source:        c.id,
		Value:         value,
		ExcludeSource: true,
	})
}

// crossFilter reads the peer predicate, excluding this client's own
// contribution.
func (c *Client) crossFilter() sqlast.Expr {
	if c.opts.Filter == nil {
		return nil
	}
	return c.opts.Filter.PredicateFor(c.id)
}

// CascadeBase resolves the source and the WHERE clause for an auxiliary query
// that excludes one column's own filter (cascading exclusion). Facet sidecars
// build their statements on top of it.
func (c *Client) CascadeBase(excludeColumn string) (sqlast.FromItem, sqlast.Expr, error) {
	crossFilter := c.crossFilter()
	from, err := c.opts.Source.resolve(crossFilter)
	if err != nil {
		return nil, nil, err
	}
	outerCross := crossFilter
	if c.opts.Source.consumesFilter() {
		outerCross = nil
	}
	where := sqlast.And(outerCross, c.builder.InternalFilter(c.state, excludeColumn))
	return from, where, nil
}

// Column resolves a logical column for facet clients.
func (c *Client) Column(id string) (sqlast.Ident, colmap.ColumnConfig, bool) {
	ident, ok := c.builder.Mapper().SQLColumn(id)
	if !ok {
		return sqlast.Ident{}, colmap.ColumnConfig{}, false
	}
	def, _ := c.builder.Mapper().ColumnDef(ident.Raw())
	return ident, def, true
}

func (c *Client) refreshSidecars(ctx context.Context) {
	for _, s := range c.sidecars {
		if err := s.Refresh(ctx); err != nil {
			c.logger.Error("sidecar refresh failed", "error", err)
		}
	}
}

// inferSchema runs the DESCRIBE probe and rebuilds the mapper from the
// engine-reported fields.
func (c *Client) inferSchema(ctx context.Context) error {
	from, err := c.opts.Source.resolve(nil)
	if err != nil {
		return err
	}
	probe := c.builder.Mapper().IntrospectionSQL(from)
	res, err := c.opts.Engine.Query(ctx, probe)
	if err != nil {
		c.logger.Error("schema probe failed", "error", err, "statement", probe)
		return domain.ErrQuery(probe, err)
	}
	fields := make([]colmap.SchemaField, 0, res.RowCount())
	for i := 0; i < res.RowCount(); i++ {
		name, _ := res.Value(i, "column_name").(string)
		typ, _ := res.Value(i, "column_type").(string)
		if name == "" {
			continue
		}
		fields = append(fields, colmap.SchemaField{Name: name, Type: typ})
	}
	mapper, err := c.builder.Mapper().ApplySchema(fields)
	if err != nil {
		return err
	}
	c.builder.SetMapper(mapper)
	return nil
}

// asInt64 coerces engine count values, which arrive as int64 or other
// numeric widths depending on the driver.
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
