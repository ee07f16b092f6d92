package table

import (
	"duck-grid/internal/domain"
	"duck-grid/internal/sqlast"
)

// Source is the data source contract: a literal table/view name, a late-bound
// parameter reference, or a factory producing a full SELECT for precomputed
// or aggregated sources. Every query site resolves all three uniformly.
type Source interface {
	// resolve produces the FROM item for one query cycle. filter carries the
	// current external (cross-filter) predicate so factories can bake it into
	// their inner statement; name/param sources ignore it.
	resolve(filter sqlast.Expr) (sqlast.FromItem, error)
	// consumesFilter reports whether resolve bakes the cross-filter into the
	// source itself, in which case the outer WHERE must not repeat it.
	consumesFilter() bool
}

// NamedSource references a table or view by name.
type NamedSource struct {
	Name string
}

func (s NamedSource) consumesFilter() bool { return false }

func (s NamedSource) resolve(sqlast.Expr) (sqlast.FromItem, error) {
	ident, err := sqlast.NewIdent(s.Name)
	if err != nil {
		return nil, domain.ErrValidation("source table: %v", err)
	}
	return &sqlast.TableRef{Ident: ident}, nil
}

// ParamSource references a late-bound parameter, rendered verbatim.
type ParamSource struct {
	Name string
}

func (s ParamSource) consumesFilter() bool { return false }

func (s ParamSource) resolve(sqlast.Expr) (sqlast.FromItem, error) {
	if s.Name == "" {
		return nil, domain.ErrValidation("param source requires a name")
	}
	return &sqlast.ParamRef{Name: s.Name}, nil
}

// FactorySource invokes fn with the current cross-filter predicate and wraps
// the produced SELECT as a subquery source.
type FactorySource struct {
	Fn func(filter sqlast.Expr) *sqlast.SelectStmt
	// Alias names the subquery; defaults to "source".
	Alias string
}

func (s FactorySource) consumesFilter() bool { return true }

func (s FactorySource) resolve(filter sqlast.Expr) (sqlast.FromItem, error) {
	if s.Fn == nil {
		return nil, domain.ErrValidation("factory source requires a function")
	}
	stmt := s.Fn(filter)
	if stmt == nil {
		return nil, domain.ErrValidation("factory source returned no statement")
	}
	alias := s.Alias
	if alias == "" {
		alias = "source"
	}
	return &sqlast.SubqueryRef{Select: stmt, Alias: alias}, nil
}
