// Package sqlast provides composition and formatting of DuckDB SELECT
// statements: expression nodes, a single SelectStmt shape, and identifier
// quoting. It is a builder, not a parser — statements are assembled from
// typed nodes and rendered with Format.
package sqlast

// Node is the common interface of all AST nodes.
type Node interface {
	node()
}

// Expr is the interface of all expression nodes.
type Expr interface {
	Node
	exprNode()
}

// === Expression Nodes ===

// ColumnRef references a column through a validated identifier, rendering
// each dotted path segment as a separate quoted identifier.
type ColumnRef struct {
	Ident Ident
}

func (*ColumnRef) node()     {}
func (*ColumnRef) exprNode() {}

// Col is shorthand for a ColumnRef over an already-validated identifier.
func Col(id Ident) *ColumnRef { return &ColumnRef{Ident: id} }

// LiteralType classifies a literal value.
type LiteralType int

// Literal kinds.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
)

// Literal represents a literal value (number, string, bool, null).
type Literal struct {
	Type  LiteralType
	Value string
}

func (*Literal) node()     {}
func (*Literal) exprNode() {}

// String returns a string literal node.
func String(v string) *Literal { return &Literal{Type: LiteralString, Value: v} }

// Number returns a numeric literal node from its SQL text.
func Number(v string) *Literal { return &Literal{Type: LiteralNumber, Value: v} }

// Null is the NULL literal.
func Null() *Literal { return &Literal{Type: LiteralNull} }

// Bool returns a boolean literal node.
func Bool(v bool) *Literal {
	if v {
		return &Literal{Type: LiteralBool, Value: "true"}
	}
	return &Literal{Type: LiteralBool, Value: "false"}
}

// BinaryOp is a binary operator token.
type BinaryOp string

// Binary operators used by the grid core.
const (
	OpEq  BinaryOp = "="
	OpNe  BinaryOp = "<>"
	OpLt  BinaryOp = "<"
	OpLe  BinaryOp = "<="
	OpGt  BinaryOp = ">"
	OpGe  BinaryOp = ">="
	OpAnd BinaryOp = "AND"
	OpOr  BinaryOp = "OR"
)

// BinaryExpr represents left op right.
type BinaryExpr struct {
	Left  Expr
	Op    BinaryOp
	Right Expr
}

func (*BinaryExpr) node()     {}
func (*BinaryExpr) exprNode() {}

// UnaryExpr represents NOT x.
type UnaryExpr struct {
	Op   string // "NOT"
	Expr Expr
}

func (*UnaryExpr) node()     {}
func (*UnaryExpr) exprNode() {}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	Expr Expr
}

func (*ParenExpr) node()     {}
func (*ParenExpr) exprNode() {}

// InExpr represents expr IN (a, b, c).
type InExpr struct {
	Expr Expr
	List []Expr
	Not  bool
}

func (*InExpr) node()     {}
func (*InExpr) exprNode() {}

// BetweenExpr represents expr BETWEEN low AND high.
type BetweenExpr struct {
	Expr Expr
	Low  Expr
	High Expr
	Not  bool
}

func (*BetweenExpr) node()     {}
func (*BetweenExpr) exprNode() {}

// LikeExpr represents expr LIKE pattern, optionally case-insensitive (ILIKE)
// and with an ESCAPE clause.
type LikeExpr struct {
	Expr    Expr
	Pattern Expr
	ILike   bool
	Not     bool
	Escape  string // ESCAPE character, empty = no ESCAPE clause
}

func (*LikeExpr) node()     {}
func (*LikeExpr) exprNode() {}

// FuncCall represents a function call, optionally with an OVER () window.
type FuncCall struct {
	Name   string
	Args   []Expr
	Star   bool // COUNT(*)
	Window bool // trailing empty OVER ()
}

func (*FuncCall) node()     {}
func (*FuncCall) exprNode() {}

// WhenClause is a single WHEN cond THEN result arm of a CASE expression.
type WhenClause struct {
	Cond   Expr
	Result Expr
}

// CaseExpr represents a searched CASE expression.
type CaseExpr struct {
	Whens []WhenClause
	Else  Expr
}

func (*CaseExpr) node()     {}
func (*CaseExpr) exprNode() {}

// CastExpr represents CAST(expr AS type).
type CastExpr struct {
	Expr Expr
	Type string
}

func (*CastExpr) node()     {}
func (*CastExpr) exprNode() {}

// ListExpr represents a DuckDB bracketed list: [a, b, c].
type ListExpr struct {
	Items []Expr
}

func (*ListExpr) node()     {}
func (*ListExpr) exprNode() {}

// RawExpr carries an opaque SQL fragment verbatim. Used for predicates that
// arrive pre-rendered over the selection bus.
type RawExpr struct {
	SQL string
}

func (*RawExpr) node()     {}
func (*RawExpr) exprNode() {}

// StarExpr represents the bare * projection.
type StarExpr struct{}

func (*StarExpr) node()     {}
func (*StarExpr) exprNode() {}

// === Statement Nodes ===

// SelectItem is one projected column, optionally aliased.
type SelectItem struct {
	Expr  Expr
	Alias string // empty = no alias
}

// OrderByItem is one ORDER BY entry.
type OrderByItem struct {
	Expr Expr
	Desc bool
}

// TableRef names a table or view through a validated identifier.
type TableRef struct {
	Ident Ident
}

func (*TableRef) node() {}

func (*TableRef) fromNode() {}

// ParamRef is a late-bound source reference rendered verbatim, e.g. a DuckDB
// prepared-statement parameter or a session variable.
type ParamRef struct {
	Name string
}

func (*ParamRef) node() {}

func (*ParamRef) fromNode() {}

// SubqueryRef wraps a nested SELECT used as the FROM source.
type SubqueryRef struct {
	Select *SelectStmt
	Alias  string
}

func (*SubqueryRef) node() {}

func (*SubqueryRef) fromNode() {}

// FromItem is the interface of FROM-clause sources.
type FromItem interface {
	Node
	fromNode()
}

// SelectStmt represents one SELECT statement.
type SelectStmt struct {
	Columns []SelectItem
	From    FromItem
	Where   Expr
	GroupBy []Expr
	OrderBy []OrderByItem
	Limit   *int
	Offset  *int
}

func (*SelectStmt) node() {}

// And folds the non-nil expressions into a left-associated AND chain.
// Zero non-nil inputs yield nil; one yields the expression unchanged.
func And(exprs ...Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = &BinaryExpr{Left: out, Op: OpAnd, Right: e}
	}
	return out
}

// Or folds the non-nil expressions into a left-associated OR chain.
func Or(exprs ...Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = &BinaryExpr{Left: out, Op: OpOr, Right: e}
	}
	return out
}
