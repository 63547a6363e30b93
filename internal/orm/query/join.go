package query

import "github.com/ashgate/pgframe/internal/orm/value"

// JoinKind identifies the SQL join variant.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinOuter
)

func (k JoinKind) sql() string {
	switch k {
	case JoinLeft:
		return "LEFT JOIN"
	case JoinOuter:
		return "FULL OUTER JOIN"
	default:
		return "INNER JOIN"
	}
}

// Join is a four-tuple: kind, joined table, left column, right column.
// Associations resolve left/right automatically from model PK/FK metadata;
// callers may also build one by hand for ad hoc joins.
type Join struct {
	Kind     JoinKind
	Table    string
	LeftCol  value.Value
	RightCol value.Value
}

func emitJoin(j Join) string {
	return j.Kind.sql() + " " + value.QuoteIdent(j.Table) +
		" ON " + emitColumn(j.LeftCol) + " = " + emitColumn(j.RightCol)
}
