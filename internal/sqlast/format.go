package sqlast

import (
	"strconv"
	"strings"
)

// Format renders a SELECT statement as a flat SQL string.
// Identifiers are always double-quoted.
func Format(stmt *SelectStmt) string {
	f := &formatter{}
	f.formatSelect(stmt)
	return strings.TrimSpace(f.buf.String())
}

// FormatExpr renders an expression as a SQL string.
func FormatExpr(expr Expr) string {
	f := &formatter{}
	f.formatExpr(expr)
	return strings.TrimSpace(f.buf.String())
}

// formatter is a simple SQL string builder. No indentation or pretty-printing.
type formatter struct {
	buf strings.Builder
}

func (f *formatter) write(s string) {
	f.buf.WriteString(s)
}

func (f *formatter) space() {
	f.buf.WriteByte(' ')
}

// commaSep writes items separated by ", ".
func (f *formatter) commaSep(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		if i > 0 {
			f.write(", ")
		}
		fn(i)
	}
}

func (f *formatter) formatSelect(stmt *SelectStmt) {
	if stmt == nil {
		return
	}
	f.write("SELECT ")
	if len(stmt.Columns) == 0 {
		f.write("*")
	} else {
		f.commaSep(len(stmt.Columns), func(i int) {
			item := stmt.Columns[i]
			f.formatExpr(item.Expr)
			if item.Alias != "" {
				f.write(" AS ")
				f.write(QuoteIdentifier(item.Alias))
			}
		})
	}
	if stmt.From != nil {
		f.write(" FROM ")
		f.formatFrom(stmt.From)
	}
	if stmt.Where != nil {
		f.write(" WHERE ")
		f.formatExpr(stmt.Where)
	}
	if len(stmt.GroupBy) > 0 {
		f.write(" GROUP BY ")
		f.commaSep(len(stmt.GroupBy), func(i int) {
			f.formatExpr(stmt.GroupBy[i])
		})
	}
	if len(stmt.OrderBy) > 0 {
		f.write(" ORDER BY ")
		f.commaSep(len(stmt.OrderBy), func(i int) {
			item := stmt.OrderBy[i]
			f.formatExpr(item.Expr)
			if item.Desc {
				f.write(" DESC")
			}
		})
	}
	if stmt.Limit != nil {
		f.write(" LIMIT ")
		f.write(strconv.Itoa(*stmt.Limit))
	}
	if stmt.Offset != nil {
		f.write(" OFFSET ")
		f.write(strconv.Itoa(*stmt.Offset))
	}
}

func (f *formatter) formatFrom(from FromItem) {
	switch src := from.(type) {
	case *TableRef:
		f.write(src.Ident.SQL())
	case *ParamRef:
		f.write(src.Name)
	case *SubqueryRef:
		f.write("(")
		f.formatSelect(src.Select)
		f.write(")")
		if src.Alias != "" {
			f.write(" AS ")
			f.write(QuoteIdentifier(src.Alias))
		}
	}
}

// formatExpr dispatches expression formatting by type.
func (f *formatter) formatExpr(e Expr) {
	if e == nil {
		return
	}

	switch expr := e.(type) {
	case *Literal:
		f.formatLiteral(expr)
	case *ColumnRef:
		f.write(expr.Ident.SQL())
	case *BinaryExpr:
		f.formatExpr(expr.Left)
		f.space()
		f.write(string(expr.Op))
		f.space()
		f.formatExpr(expr.Right)
	case *UnaryExpr:
		f.write(expr.Op)
		f.space()
		f.formatExpr(expr.Expr)
	case *ParenExpr:
		f.write("(")
		f.formatExpr(expr.Expr)
		f.write(")")
	case *InExpr:
		f.formatExpr(expr.Expr)
		if expr.Not {
			f.write(" NOT")
		}
		f.write(" IN (")
		f.commaSep(len(expr.List), func(i int) {
			f.formatExpr(expr.List[i])
		})
		f.write(")")
	case *BetweenExpr:
		f.formatExpr(expr.Expr)
		if expr.Not {
			f.write(" NOT")
		}
		f.write(" BETWEEN ")
		f.formatExpr(expr.Low)
		f.write(" AND ")
		f.formatExpr(expr.High)
	case *LikeExpr:
		f.formatExpr(expr.Expr)
		if expr.Not {
			f.write(" NOT")
		}
		if expr.ILike {
			f.write(" ILIKE ")
		} else {
			f.write(" LIKE ")
		}
		f.formatExpr(expr.Pattern)
		if expr.Escape != "" {
			f.write(" ESCAPE ")
			f.write(QuoteLiteral(expr.Escape))
		}
	case *FuncCall:
		f.write(expr.Name)
		f.write("(")
		if expr.Star {
			f.write("*")
		} else {
			f.commaSep(len(expr.Args), func(i int) {
				f.formatExpr(expr.Args[i])
			})
		}
		f.write(")")
		if expr.Window {
			f.write(" OVER ()")
		}
	case *CaseExpr:
		f.write("CASE")
		for _, when := range expr.Whens {
			f.write(" WHEN ")
			f.formatExpr(when.Cond)
			f.write(" THEN ")
			f.formatExpr(when.Result)
		}
		if expr.Else != nil {
			f.write(" ELSE ")
			f.formatExpr(expr.Else)
		}
		f.write(" END")
	case *CastExpr:
		f.write("CAST(")
		f.formatExpr(expr.Expr)
		f.write(" AS ")
		f.write(expr.Type)
		f.write(")")
	case *ListExpr:
		f.write("[")
		f.commaSep(len(expr.Items), func(i int) {
			f.formatExpr(expr.Items[i])
		})
		f.write("]")
	case *RawExpr:
		f.write(expr.SQL)
	case *StarExpr:
		f.write("*")
	}
}

func (f *formatter) formatLiteral(lit *Literal) {
	switch lit.Type {
	case LiteralString:
		f.write(QuoteLiteral(lit.Value))
	case LiteralBool:
		f.write(strings.ToUpper(lit.Value))
	case LiteralNull:
		f.write("NULL")
	default:
		// Number
		f.write(lit.Value)
	}
}
