// Package query implements the typed SQL AST (tree.go), its filter/join
// building blocks (where.go, join.go), a stateless emitter (this file) that
// turns a finished tree into parameterized SQL text, and the composable
// query-builder surface consumers use (builder.go).
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ashgate/pgframe/internal/orm/value"
)

// Emit renders tree to SQL text. It is a pure function: placeholder
// numbering was already finalized when the tree was built.
func Emit(t *Tree) (string, error) {
	switch t.Kind {
	case KindSelect:
		return emitSelect(t), nil
	case KindInsert:
		return emitInsert(t), nil
	case KindUpdate:
		return emitUpdate(t), nil
	case KindRaw:
		return t.RawSQL, nil
	case KindUpsert:
		// Diagnostic only: the builder executes Select then Insert as two
		// statements. ToSQL on an upsert tree shows the probing SELECT.
		return emitSelect(t.UpsertSelect), nil
	default:
		return "", fmt.Errorf("query: unknown tree kind %d", t.Kind)
	}
}

func emitSelect(t *Tree) string {
	var b strings.Builder

	if len(t.CTEs) > 0 {
		b.WriteString("WITH ")
		parts := make([]string, len(t.CTEs))
		for i, c := range t.CTEs {
			parts[i] = value.QuoteIdent(c.Name) + " AS (" + emitSelect(c.Tree) + ")"
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(" ")
	}

	b.WriteString("SELECT ")
	switch {
	case t.CountStar:
		b.WriteString("COUNT(*) AS count")
	case t.Explain && false:
		// placeholder branch kept for symmetry; EXPLAIN is prefixed by caller
	case len(t.Columns) > 0:
		parts := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			parts[i] = emitColumn(c)
		}
		b.WriteString(strings.Join(parts, ", "))
	case len(t.Joins) > 0 && t.StarTable != "":
		// A join constrains the SELECT list to the driving table's columns
		// to avoid ambiguous column names in the row decoder.
		b.WriteString(value.QuoteIdent(t.StarTable) + ".*")
	default:
		b.WriteString("*")
	}

	b.WriteString(" FROM ")
	b.WriteString(value.QuoteIdent(t.Table))

	for _, j := range t.Joins {
		b.WriteString(" ")
		b.WriteString(emitJoin(j))
	}

	if t.Where != nil {
		b.WriteString(" WHERE ")
		b.WriteString(emitWhere(t.Where))
	}

	if len(t.GroupBy) > 0 {
		parts := make([]string, len(t.GroupBy))
		for i, c := range t.GroupBy {
			parts[i] = emitColumn(c)
		}
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(parts, ", "))
	}

	if len(t.Order) > 0 {
		parts := make([]string, len(t.Order))
		for i, o := range t.Order {
			if o.Raw != "" {
				parts[i] = o.Raw
				continue
			}
			dir := "ASC"
			if o.Dir == Desc {
				dir = "DESC"
			}
			parts[i] = emitColumn(o.Col) + " " + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}

	if t.Limit != nil {
		b.WriteString(" LIMIT " + strconv.Itoa(*t.Limit))
	}
	if t.Offset != nil {
		b.WriteString(" OFFSET " + strconv.Itoa(*t.Offset))
	}

	if t.Lock {
		b.WriteString(" FOR UPDATE")
		if t.SkipLocked {
			b.WriteString(" SKIP LOCKED")
		}
	}

	for _, c := range t.Combines {
		b.WriteString(" ")
		b.WriteString(combineKeyword(c.Kind))
		b.WriteString(" ")
		b.WriteString(emitSelect(c.With))
	}

	return b.String()
}

func combineKeyword(k CombineKind) string {
	switch k {
	case CombineUnionAll:
		return "UNION ALL"
	case CombineIntersect:
		return "INTERSECT"
	case CombineExcept:
		return "EXCEPT"
	default:
		return "UNION"
	}
}

func emitInsert(t *Tree) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(value.QuoteIdent(t.Table))
	b.WriteString(" (")
	cols := make([]string, len(t.InsertColumns))
	for i, c := range t.InsertColumns {
		cols[i] = value.QuoteIdent(c)
	}
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES (")
	vals := make([]string, len(t.InsertValues))
	for i, v := range t.InsertValues {
		vals[i] = v.Literal()
	}
	b.WriteString(strings.Join(vals, ", "))
	b.WriteString(")")

	if t.OnConflict != nil {
		b.WriteString(" ON CONFLICT (")
		cols := make([]string, len(t.OnConflict.UniqueBy))
		for i, c := range t.OnConflict.UniqueBy {
			cols[i] = value.QuoteIdent(c)
		}
		b.WriteString(strings.Join(cols, ", "))
		b.WriteString(") DO UPDATE SET ")
		sets := make([]string, len(t.InsertColumns))
		for i, c := range t.InsertColumns {
			q := value.QuoteIdent(c)
			sets[i] = q + " = EXCLUDED." + q
		}
		b.WriteString(strings.Join(sets, ", "))
	}

	b.WriteString(" RETURNING *")
	return b.String()
}

func emitUpdate(t *Tree) string {
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(value.QuoteIdent(t.Table))
	b.WriteString(" SET ")
	sets := make([]string, len(t.SetColumns))
	for i, c := range t.SetColumns {
		sets[i] = value.QuoteIdent(c) + " = " + t.SetValues[i].Literal()
	}
	b.WriteString(strings.Join(sets, ", "))

	if t.UpdateWhere != nil {
		b.WriteString(" WHERE ")
		b.WriteString(emitWhere(t.UpdateWhere))
	}
	b.WriteString(" RETURNING *")
	return b.String()
}
