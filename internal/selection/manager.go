package selection

import (
	"reflect"

	"duck-grid/internal/sqlast"
)

// Manager owns the toggle/select/clear semantics for one column against one
// shared selection. Values are always tracked as a list; an empty list is the
// cleared state. Every publish sets the manager's own client identity as
// source and excludes it from the notification set, so the owning grid never
// filters itself by its own click.
type Manager struct {
	sel    *Selection
	client ClientID
	column sqlast.Ident
	// listColumn marks an array-typed column: the predicate becomes a
	// list-intersection test instead of equality/IN.
	listColumn bool

	values []any
}

// NewManager creates a manager for one (selection, column) pair.
func NewManager(sel *Selection, client ClientID, column sqlast.Ident, listColumn bool) *Manager {
	return &Manager{sel: sel, client: client, column: column, listColumn: listColumn}
}

// Values returns the tracked value list (empty = cleared).
func (m *Manager) Values() []any { return m.values }

// Toggle adds v to the tracked list, or removes it when already present.
// A nil v clears the selection.
func (m *Manager) Toggle(v any) {
	if v == nil {
		m.Clear()
		return
	}
	for i, cur := range m.values {
		if reflect.DeepEqual(cur, v) {
			m.values = append(m.values[:i], m.values[i+1:]...)
			m.publish()
			return
		}
	}
	m.values = append(m.values, v)
	m.publish()
}

// Select replaces the tracked list wholesale: nil clears, a slice replaces,
// a scalar becomes a single-element list.
func (m *Manager) Select(v any) {
	switch val := v.(type) {
	case nil:
		m.values = nil
	case []any:
		m.values = append([]any(nil), val...)
	default:
		m.values = []any{val}
	}
	m.publish()
}

// Clear empties the tracked list and retracts the published clause.
func (m *Manager) Clear() {
	m.values = nil
	m.publish()
}

// publish re-derives the predicate from the tracked list and pushes it to the
// shared selection.
func (m *Manager) publish() {
	if len(m.values) == 0 {
		m.sel.Update(Update{Source: m.client, ExcludeSource: true})
		return
	}
	m.sel.Update(Update{
		Source:        m.client,
		Value:         append([]any(nil), m.values...),
		Predicate:     m.Predicate(),
		ExcludeSource: true,
	})
}

// Predicate derives the clause for the current value list:
// one scalar → equality; several scalars → IN-list; array-typed column →
// list intersection over a bracketed list literal. Empty list → nil.
func (m *Manager) Predicate() sqlast.Expr {
	if len(m.values) == 0 {
		return nil
	}
	col := sqlast.Col(m.column)

	if m.listColumn {
		items := make([]sqlast.Expr, len(m.values))
		for i, v := range m.values {
			items[i] = sqlast.Lit(v)
		}
		return &sqlast.FuncCall{Name: "list_has_any", Args: []sqlast.Expr{col, &sqlast.ListExpr{Items: items}}}
	}

	if len(m.values) == 1 {
		return &sqlast.BinaryExpr{Left: col, Op: sqlast.OpEq, Right: sqlast.Lit(m.values[0])}
	}

	list := make([]sqlast.Expr, len(m.values))
	for i, v := range m.values {
		list[i] = sqlast.Lit(v)
	}
	return &sqlast.InExpr{Expr: col, List: list}
}
