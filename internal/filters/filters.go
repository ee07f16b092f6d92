// Package filters turns (filter kind, raw UI value) pairs into SQL predicate
// expressions. Strategies are pure: a malformed value degrades to "no
// predicate" (nil) rather than an error, because filters are advisory UI
// state, not structurally guaranteed input.
package filters

import (
	"strconv"
	"strings"
	"time"

	"duck-grid/internal/colmap"
	"duck-grid/internal/sqlast"
)

// Strategy builds a predicate for one column expression from a raw UI value.
// A nil return means the filter is inert for this value.
type Strategy func(expr sqlast.Expr, raw any) sqlast.Expr

// registry maps filter kinds to strategies. Unknown kinds fall back to equals.
var registry = map[colmap.FilterKind]Strategy{
	colmap.FilterEquals:       buildEquals,
	colmap.FilterRange:        buildRange,
	colmap.FilterLike:         like(false, false),
	colmap.FilterILike:        like(true, false),
	colmap.FilterPartialLike:  like(false, true),
	colmap.FilterPartialILike: like(true, true),
}

// Build resolves the strategy for kind and applies it.
func Build(kind colmap.FilterKind, expr sqlast.Expr, raw any) sqlast.Expr {
	strat, ok := registry[kind]
	if !ok {
		strat = buildEquals
	}
	return strat(expr, raw)
}

// buildEquals emits expr = value. Null, empty-string, and array values are
// inert: an empty filter box must not become "match nothing".
func buildEquals(expr sqlast.Expr, raw any) sqlast.Expr {
	if raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil
		}
	case []any, []string, []float64, []int:
		// Array values belong to range or membership filters.
		return nil
	}
	return &sqlast.BinaryExpr{Left: expr, Op: sqlast.OpEq, Right: sqlast.Lit(raw)}
}

// buildRange expects a 2-element [min, max] with independently nullable
// bounds. One bound yields >= or <=, both yield BETWEEN, neither yields nil.
func buildRange(expr sqlast.Expr, raw any) sqlast.Expr {
	lo, hi, ok := rangeBounds(raw)
	if !ok {
		return nil
	}
	low := coerceBound(lo)
	high := coerceBound(hi)
	switch {
	case low != nil && high != nil:
		return &sqlast.BetweenExpr{Expr: expr, Low: low, High: high}
	case low != nil:
		return &sqlast.BinaryExpr{Left: expr, Op: sqlast.OpGe, Right: low}
	case high != nil:
		return &sqlast.BinaryExpr{Left: expr, Op: sqlast.OpLe, Right: high}
	default:
		return nil
	}
}

// rangeBounds extracts the two bounds from the supported slice shapes.
func rangeBounds(raw any) (lo, hi any, ok bool) {
	switch v := raw.(type) {
	case []any:
		if len(v) != 2 {
			return nil, nil, false
		}
		return v[0], v[1], true
	case []float64:
		if len(v) != 2 {
			return nil, nil, false
		}
		return v[0], v[1], true
	case []string:
		if len(v) != 2 {
			return nil, nil, false
		}
		return v[0], v[1], true
	default:
		return nil, nil, false
	}
}

// coerceBound converts one range bound into a literal expression, or nil when
// the bound is absent or unusable. Strings coerce to number first, then date.
func coerceBound(v any) sqlast.Expr {
	switch b := v.(type) {
	case nil:
		return nil
	case string:
		if b == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(b, 64); err == nil {
			return sqlast.Number(strconv.FormatFloat(f, 'g', -1, 64))
		}
		if ts, err := time.Parse("2006-01-02", b); err == nil {
			return &sqlast.RawExpr{SQL: "DATE " + sqlast.QuoteLiteral(ts.Format("2006-01-02"))}
		}
		if ts, err := time.Parse(time.RFC3339, b); err == nil {
			return sqlast.Lit(ts)
		}
		return nil
	case float64, float32, int, int8, int16, int32, int64, uint, uint64:
		return sqlast.Lit(b)
	case time.Time:
		return sqlast.Lit(b)
	default:
		return nil
	}
}

// likeEscape neutralizes the three LIKE metacharacters so user input with a
// literal %, _ or \ matches itself instead of acting as a wildcard.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// like returns the strategy for the four LIKE variants. Partial variants
// escape metacharacters and wrap the value in wildcards; plain variants pass
// the raw pattern through untouched.
func like(insensitive, partial bool) Strategy {
	return func(expr sqlast.Expr, raw any) sqlast.Expr {
		s, ok := raw.(string)
		if !ok || s == "" {
			return nil
		}
		node := &sqlast.LikeExpr{Expr: expr, ILike: insensitive}
		if partial {
			node.Pattern = sqlast.String("%" + likeEscape(s) + "%")
			node.Escape = `\`
		} else {
			node.Pattern = sqlast.String(s)
		}
		return node
	}
}
