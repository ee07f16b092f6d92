package sqlast

import (
	"fmt"
	"strings"
)

// maxIdentLen is the maximum length allowed for a SQL identifier.
const maxIdentLen = 256

// Ident is a validated SQL identifier. Construction via NewIdent is the only
// validation point: once built, an Ident is safe to quote into generated SQL.
// Two Idents with equal raw strings are interchangeable.
//
// Dots are reserved for struct/nested field access and split into separately
// quoted path segments (a.b.c → "a"."b"."c"), so a dotted raw string is a
// path, never a single column containing a dot.
type Ident struct {
	raw string
}

// NewIdent validates raw and returns it as an Ident.
// Rejected: empty strings, double quotes, semicolons, SQL comment sequences
// (-- and /*), and control characters. Everything else is accepted — names
// with leading digits, spaces, or colons are fine because generated SQL
// always quotes identifiers.
func NewIdent(raw string) (Ident, error) {
	if raw == "" {
		return Ident{}, fmt.Errorf("identifier is required")
	}
	if len(raw) > maxIdentLen {
		return Ident{}, fmt.Errorf("identifier must be at most %d characters", maxIdentLen)
	}
	if strings.ContainsAny(raw, `";`) {
		return Ident{}, fmt.Errorf("identifier %q contains unsafe characters", raw)
	}
	if strings.Contains(raw, "--") || strings.Contains(raw, "/*") {
		return Ident{}, fmt.Errorf("identifier %q contains a SQL comment sequence", raw)
	}
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			return Ident{}, fmt.Errorf("identifier %q contains a control character", raw)
		}
	}
	return Ident{raw: raw}, nil
}

// MustIdent is NewIdent for statically known names; it panics on invalid input.
func MustIdent(raw string) Ident {
	id, err := NewIdent(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// Raw returns the original identifier string.
func (id Ident) Raw() string { return id.raw }

// IsZero reports whether the Ident is the zero value (never produced by NewIdent).
func (id Ident) IsZero() bool { return id.raw == "" }

// Path returns the dotted segments of the identifier. A plain column name
// yields a single segment.
func (id Ident) Path() []string {
	return strings.Split(id.raw, ".")
}

// SQL renders the identifier as quoted SQL, one quoted segment per dotted
// path element: `a.b` → `"a"."b"`.
func (id Ident) SQL() string {
	segs := id.Path()
	for i, s := range segs {
		segs[i] = QuoteIdentifier(s)
	}
	return strings.Join(segs, ".")
}

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double-quote characters by doubling them (standard SQL).
//
// Always quotes unconditionally — the caller should validate first if needed.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral wraps a string value in single quotes, escaping any
// embedded single-quote characters by doubling them (standard SQL).
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
