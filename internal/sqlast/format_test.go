package sqlast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intp(v int) *int { return &v }

func TestFormatExpr(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{
			name: "equality",
			expr: &BinaryExpr{Left: Col(MustIdent("status")), Op: OpEq, Right: String("active")},
			want: `"status" = 'active'`,
		},
		{
			name: "nested_column",
			expr: &BinaryExpr{Left: Col(MustIdent("address.city")), Op: OpEq, Right: String("Oslo")},
			want: `"address"."city" = 'Oslo'`,
		},
		{
			name: "and_chain",
			expr: And(
				&BinaryExpr{Left: Col(MustIdent("a")), Op: OpGt, Right: Number("1")},
				&BinaryExpr{Left: Col(MustIdent("b")), Op: OpLe, Right: Number("2")},
			),
			want: `"a" > 1 AND "b" <= 2`,
		},
		{
			name: "in_list",
			expr: &InExpr{Expr: Col(MustIdent("country")), List: []Expr{String("US"), String("DE")}},
			want: `"country" IN ('US', 'DE')`,
		},
		{
			name: "between",
			expr: &BetweenExpr{Expr: Col(MustIdent("price")), Low: Number("10"), High: Number("20")},
			want: `"price" BETWEEN 10 AND 20`,
		},
		{
			name: "like_with_escape",
			expr: &LikeExpr{Expr: Col(MustIdent("name")), Pattern: String(`%50\%%`), Escape: `\`},
			want: `"name" LIKE '%50\%%' ESCAPE '\'`,
		},
		{
			name: "ilike",
			expr: &LikeExpr{Expr: Col(MustIdent("name")), Pattern: String("%abc%"), ILike: true},
			want: `"name" ILIKE '%abc%'`,
		},
		{
			name: "count_star_window",
			expr: &FuncCall{Name: "COUNT", Star: true, Window: true},
			want: `COUNT(*) OVER ()`,
		},
		{
			name: "highlight_case",
			expr: &FuncCall{Name: "MAX", Args: []Expr{&CaseExpr{
				Whens: []WhenClause{{Cond: &RawExpr{SQL: `"x" > 1`}, Result: Number("1")}},
				Else:  Number("0"),
			}}},
			want: `MAX(CASE WHEN "x" > 1 THEN 1 ELSE 0 END)`,
		},
		{
			name: "bracketed_list",
			expr: &ListExpr{Items: []Expr{String("a"), String("b")}},
			want: `['a', 'b']`,
		},
		{
			name: "string_escaping",
			expr: &BinaryExpr{Left: Col(MustIdent("name")), Op: OpEq, Right: String("O'Brien")},
			want: `"name" = 'O''Brien'`,
		},
		{
			name: "not",
			expr: &UnaryExpr{Op: "NOT", Expr: &ParenExpr{Expr: &BinaryExpr{Left: Col(MustIdent("x")), Op: OpEq, Right: Number("1")}}},
			want: `NOT ("x" = 1)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatExpr(tt.expr))
		})
	}
}

func TestFormatSelect(t *testing.T) {
	tests := []struct {
		name string
		stmt *SelectStmt
		want string
	}{
		{
			name: "star_no_clauses",
			stmt: &SelectStmt{From: &TableRef{Ident: MustIdent("orders")}},
			want: `SELECT * FROM "orders"`,
		},
		{
			name: "full_statement",
			stmt: &SelectStmt{
				Columns: []SelectItem{
					{Expr: Col(MustIdent("id"))},
					{Expr: Col(MustIdent("address.city")), Alias: "city"},
				},
				From:    &TableRef{Ident: MustIdent("orders")},
				Where:   &BinaryExpr{Left: Col(MustIdent("status")), Op: OpEq, Right: String("active")},
				OrderBy: []OrderByItem{{Expr: Col(MustIdent("created_at")), Desc: true}},
				Limit:   intp(20),
				Offset:  intp(20),
			},
			want: `SELECT "id", "address"."city" AS "city" FROM "orders" WHERE "status" = 'active' ORDER BY "created_at" DESC LIMIT 20 OFFSET 20`,
		},
		{
			name: "group_by_subquery",
			stmt: &SelectStmt{
				Columns: []SelectItem{
					{Expr: Col(MustIdent("country"))},
					{Expr: &FuncCall{Name: "COUNT", Star: true}, Alias: "n"},
				},
				From: &SubqueryRef{
					Select: &SelectStmt{From: &TableRef{Ident: MustIdent("orders")}},
					Alias:  "src",
				},
				GroupBy: []Expr{Col(MustIdent("country"))},
			},
			want: `SELECT "country", COUNT(*) AS "n" FROM (SELECT * FROM "orders") AS "src" GROUP BY "country"`,
		},
		{
			name: "param_source",
			stmt: &SelectStmt{From: &ParamRef{Name: "$source"}},
			want: `SELECT * FROM $source`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.stmt))
		})
	}
}

func TestAndSkipsNil(t *testing.T) {
	assert.Nil(t, And(nil, nil))
	one := &BinaryExpr{Left: Col(MustIdent("a")), Op: OpEq, Right: Number("1")}
	assert.Equal(t, Expr(one), And(nil, one, nil))
}
