package sqlast

import (
	"fmt"
	"time"
)

// Lit converts a Go value to a literal expression node.
// Unsupported types fall back to their string form; callers that need strict
// behavior should coerce first.
func Lit(v any) Expr {
	switch val := v.(type) {
	case nil:
		return Null()
	case int:
		return Number(fmt.Sprintf("%d", val))
	case int8:
		return Number(fmt.Sprintf("%d", val))
	case int16:
		return Number(fmt.Sprintf("%d", val))
	case int32:
		return Number(fmt.Sprintf("%d", val))
	case int64:
		return Number(fmt.Sprintf("%d", val))
	case uint:
		return Number(fmt.Sprintf("%d", val))
	case uint64:
		return Number(fmt.Sprintf("%d", val))
	case float32:
		return Number(fmt.Sprintf("%g", val))
	case float64:
		return Number(fmt.Sprintf("%g", val))
	case bool:
		return Bool(val)
	case time.Time:
		// DuckDB typed literal: TIMESTAMP '2024-01-02 03:04:05'
		return &RawExpr{SQL: "TIMESTAMP " + QuoteLiteral(val.UTC().Format("2006-01-02 15:04:05"))}
	case string:
		return String(val)
	default:
		return String(fmt.Sprintf("%v", val))
	}
}
