// Package table owns the grid-side state machine: the table state, the
// per-cycle SELECT assembly, and the orchestrator client that submits queries
// and coordinates with shared selections.
package table

// Pagination is the current page window.
type Pagination struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
}

// SortEntry is one ORDER BY request, in user-specified order.
type SortEntry struct {
	ColumnID string `json:"id"`
	Desc     bool   `json:"desc"`
}

// State is the full UI state of one grid. It is owned exclusively by the
// Client and mutated only through its state-change entry point.
type State struct {
	Pagination       Pagination      `json:"pagination"`
	Sorting          []SortEntry     `json:"sorting"`
	ColumnFilters    map[string]any  `json:"columnFilters"`
	RowSelection     map[string]bool `json:"rowSelection"`
	ColumnVisibility map[string]bool `json:"columnVisibility"`
	ColumnOrder      []string        `json:"columnOrder"`
}

// DefaultPageSize is used when the state carries no page size.
const DefaultPageSize = 25

// limitOffset derives LIMIT/OFFSET from the pagination window.
func (s State) limitOffset() (limit, offset int) {
	size := s.Pagination.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	page := s.Pagination.PageIndex
	if page < 0 {
		page = 0
	}
	return size, page * size
}

// clone deep-copies the state so snapshots handed to callers cannot alias the
// client's own store.
func (s State) clone() State {
	out := s
	out.Sorting = append([]SortEntry(nil), s.Sorting...)
	out.ColumnOrder = append([]string(nil), s.ColumnOrder...)
	if s.ColumnFilters != nil {
		out.ColumnFilters = make(map[string]any, len(s.ColumnFilters))
		for k, v := range s.ColumnFilters {
			out.ColumnFilters[k] = v
		}
	}
	if s.RowSelection != nil {
		out.RowSelection = make(map[string]bool, len(s.RowSelection))
		for k, v := range s.RowSelection {
			out.RowSelection[k] = v
		}
	}
	if s.ColumnVisibility != nil {
		out.ColumnVisibility = make(map[string]bool, len(s.ColumnVisibility))
		for k, v := range s.ColumnVisibility {
			out.ColumnVisibility[k] = v
		}
	}
	return out
}

// filtersChanged reports whether two filter maps differ in keys or shallow
// values. Refresh decisions only need to know that the rendered predicates
// would differ.
func filtersChanged(a, b map[string]any) bool {
	if len(a) != len(b) {
		return true
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return true
		}
		if !shallowEqual(av, bv) {
			return true
		}
	}
	return false
}

func shallowEqual(a, b any) bool {
	switch av := a.(type) {
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !shallowEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
