// Package colmap maps logical grid column identifiers to SQL column
// expressions. It owns the per-column configuration (mapping kind, declared
// type, filter kind, facet kind), derives the SELECT list and the schema
// introspection probe, and provides the reverse lookup from SQL name back to
// the column definition.
package colmap

import (
	"fmt"

	"duck-grid/internal/domain"
	"duck-grid/internal/sqlast"
)

// MappingKind classifies how a column's SQL expression is derived.
type MappingKind string

// Mapping kinds.
const (
	// KindIdentity maps the logical ID directly to a SQL column of the same name.
	KindIdentity MappingKind = "identity"
	// KindOverride maps the logical ID to an explicitly named SQL column.
	KindOverride MappingKind = "override"
	// KindComputed marks a derived column; an explicit SQLColumn is mandatory.
	KindComputed MappingKind = "computed"
)

// FilterKind selects the predicate strategy for a column.
type FilterKind string

// Filter kinds.
const (
	FilterEquals       FilterKind = "equals"
	FilterRange        FilterKind = "range"
	FilterLike         FilterKind = "like"
	FilterILike        FilterKind = "ilike"
	FilterPartialLike  FilterKind = "partial_like"
	FilterPartialILike FilterKind = "partial_ilike"
)

// FacetKind selects what auxiliary metadata a column's sidecar fetches.
type FacetKind string

// Facet kinds.
const (
	FacetNone   FacetKind = ""
	FacetUnique FacetKind = "unique"
	FacetMinMax FacetKind = "minmax"
)

// ColumnConfig describes one grid column. It is a closed, tagged struct
// validated once at mapper construction, never interpreted ad hoc at query
// time.
type ColumnConfig struct {
	// ID is the logical column identifier used by grid state.
	ID string `yaml:"id"`
	// Kind selects how SQLColumn is derived. Empty defaults to identity.
	Kind MappingKind `yaml:"kind,omitempty"`
	// SQLColumn is the SQL column name or dotted struct path. Required for
	// override and computed columns; ignored for identity columns.
	SQLColumn string `yaml:"sql,omitempty"`
	// Type is the declared SQL type, informational for facet clients.
	Type string `yaml:"type,omitempty"`
	// List marks an array-typed column (selection uses list membership).
	List bool `yaml:"list,omitempty"`
	// Filter is the column's filter kind. Empty defaults to equals.
	Filter FilterKind `yaml:"filter,omitempty"`
	// Facet is the column's facet kind, if any.
	Facet FacetKind `yaml:"facet,omitempty"`
}

// Mode is the mapper's two-state schema mode.
type Mode int

const (
	// ModeConfigured means columns were declared explicitly.
	ModeConfigured Mode = iota
	// ModeInferred means no columns were configured: the mapper selects *
	// until ApplySchema rebuilds it from engine-reported fields.
	ModeInferred
)

// Entry is one resolved column mapping. Immutable once built.
type Entry struct {
	Config ColumnConfig
	Ident  sqlast.Ident
	// Alias is the SELECT alias; equals the logical ID. Result rows are keyed
	// by this alias.
	Alias string
}

// Mapper holds the bidirectional logical-to-SQL column mapping.
// Rebuilt wholesale when column configuration changes.
type Mapper struct {
	mode    Mode
	entries []Entry
	byID    map[string]*Entry
	bySQL   map[string]*Entry
}

// New builds a Mapper from the ordered column configurations.
// Fails with a configuration-time error when a computed column lacks an
// explicit SQL mapping, a column has no derivable identifier, or an
// identifier is unsafe. Zero configurations yields an Inferred-mode mapper
// that selects * and disables targeted filtering.
func New(cols []ColumnConfig) (*Mapper, error) {
	m := &Mapper{}
	if len(cols) == 0 {
		m.mode = ModeInferred
		m.byID = map[string]*Entry{}
		m.bySQL = map[string]*Entry{}
		return m, nil
	}

	seen := make(map[string]bool, len(cols))
	for _, cfg := range cols {
		if cfg.Kind == "" {
			cfg.Kind = KindIdentity
		}
		if cfg.Filter == "" {
			cfg.Filter = FilterEquals
		}

		sqlName := cfg.SQLColumn
		switch cfg.Kind {
		case KindIdentity:
			sqlName = cfg.ID
		case KindOverride:
			if sqlName == "" {
				sqlName = cfg.ID
			}
		case KindComputed:
			// A computed column with no mapping would force SELECT * and
			// defeat filtering; refuse at configuration time.
			if sqlName == "" {
				return nil, domain.ErrValidation("computed column %q requires an explicit SQL mapping", cfg.ID)
			}
		default:
			return nil, domain.ErrValidation("column %q: unknown mapping kind %q", cfg.ID, cfg.Kind)
		}
		if cfg.ID == "" {
			return nil, domain.ErrValidation("column with SQL mapping %q has no identifier", sqlName)
		}

		ident, err := sqlast.NewIdent(sqlName)
		if err != nil {
			return nil, domain.ErrValidation("column %q: %v", cfg.ID, err)
		}
		if seen[cfg.ID] {
			return nil, domain.ErrValidation("duplicate column identifier %q", cfg.ID)
		}
		seen[cfg.ID] = true

		m.entries = append(m.entries, Entry{Config: cfg, Ident: ident, Alias: cfg.ID})
	}

	m.byID = make(map[string]*Entry, len(m.entries))
	m.bySQL = make(map[string]*Entry, len(m.entries))
	for i := range m.entries {
		e := &m.entries[i]
		m.byID[e.Config.ID] = e
		m.bySQL[e.Ident.Raw()] = e
	}
	return m, nil
}

// Mode returns whether the mapper was configured explicitly or is inferring
// its schema from the engine.
func (m *Mapper) Mode() Mode { return m.mode }

// Len returns the number of mapped columns.
func (m *Mapper) Len() int { return len(m.entries) }

// Entries returns the ordered column entries.
func (m *Mapper) Entries() []Entry { return m.entries }

// SQLColumn resolves a logical column ID to its validated SQL identifier.
func (m *Mapper) SQLColumn(id string) (sqlast.Ident, bool) {
	e, ok := m.byID[id]
	if !ok {
		return sqlast.Ident{}, false
	}
	return e.Ident, true
}

// ColumnDef is the reverse lookup: SQL column name back to its configuration.
func (m *Mapper) ColumnDef(sqlName string) (ColumnConfig, bool) {
	e, ok := m.bySQL[sqlName]
	if !ok {
		return ColumnConfig{}, false
	}
	return e.Config, true
}

// SelectList builds the ordered SELECT list. In Inferred mode (or when no
// columns mapped) it is a bare *, signalling search-all. Nested paths are
// aliased to the logical ID so result rows stay keyed by logical identifiers.
func (m *Mapper) SelectList() []sqlast.SelectItem {
	if m.mode == ModeInferred || len(m.entries) == 0 {
		return []sqlast.SelectItem{{Expr: &sqlast.StarExpr{}}}
	}
	items := make([]sqlast.SelectItem, 0, len(m.entries))
	for i := range m.entries {
		e := &m.entries[i]
		item := sqlast.SelectItem{Expr: sqlast.Col(e.Ident)}
		if e.Ident.Raw() != e.Alias {
			item.Alias = e.Alias
		}
		items = append(items, item)
	}
	return items
}

// IntrospectionSQL returns the schema probe for the given source: a DESCRIBE
// over a zero-row projection of the mapped columns (or * in Inferred mode).
func (m *Mapper) IntrospectionSQL(from sqlast.FromItem) string {
	zero := 0
	probe := &sqlast.SelectStmt{
		Columns: m.SelectList(),
		From:    from,
		Limit:   &zero,
	}
	return "DESCRIBE " + sqlast.Format(probe)
}

// ApplySchema rebuilds the mapper from engine-reported schema fields.
// Only meaningful in Inferred mode; a configured mapper is returned unchanged.
func (m *Mapper) ApplySchema(fields []SchemaField) (*Mapper, error) {
	if m.mode == ModeConfigured {
		return m, nil
	}
	cols := make([]ColumnConfig, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, ColumnConfig{ID: f.Name, Kind: KindIdentity, Type: f.Type})
	}
	rebuilt, err := New(cols)
	if err != nil {
		return nil, fmt.Errorf("apply inferred schema: %w", err)
	}
	return rebuilt, nil
}

// SchemaField is one engine-reported column (name + SQL type).
type SchemaField struct {
	Name string
	Type string
}
