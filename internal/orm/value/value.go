// Package value implements the tagged-union SQL operand type shared by the
// query emitter and builder: every column, literal, and bind parameter that
// can appear in a generated statement is represented as a Value.
package value

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies which variant of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTimestamp
	KindTimestampNoZone
	KindIP
	KindUUID
	KindJSON
	KindList
	KindRecord
	KindRange
	KindPlaceholder
	KindColumn
	KindFunction
	KindOptional
)

// Value is an immutable tagged union of everything that can appear as a SQL
// operand. Zero value is Null.
type Value struct {
	kind Kind

	str   string
	i64   int64
	f64   float64
	b     bool
	t     time.Time
	ip    net.IP
	id    uuid.UUID
	raw   json.RawMessage
	list  []Value
	rng   [2]Value
	n     int // placeholder position, 1-based
	table string
	col   string
	fn    string
	args  []Value

	// optional wraps an inner value; present iff kind == KindOptional.
	inner    *Value
	optional bool
}

// Null is the untyped SQL NULL.
var Null = Value{kind: KindNull}

func String(s string) Value        { return Value{kind: KindString, str: s} }
func Int(i int64) Value            { return Value{kind: KindInt, i64: i} }
func Float(f float64) Value        { return Value{kind: KindFloat, f64: f} }
func Bool(b bool) Value            { return Value{kind: KindBool, b: b} }
func Timestamp(t time.Time) Value  { return Value{kind: KindTimestamp, t: t} }
func TimestampNoZone(t time.Time) Value {
	return Value{kind: KindTimestampNoZone, t: t}
}
func IP(ip net.IP) Value   { return Value{kind: KindIP, ip: ip} }
func UUID(id uuid.UUID) Value { return Value{kind: KindUUID, id: id} }
func JSON(raw json.RawMessage) Value {
	return Value{kind: KindJSON, raw: raw}
}
func List(items ...Value) Value { return Value{kind: KindList, list: items} }
func Record(items ...Value) Value {
	return Value{kind: KindRecord, list: items}
}
func Range(lo, hi Value) Value { return Value{kind: KindRange, rng: [2]Value{lo, hi}} }

// Placeholder constructs a 1-based positional bind parameter reference.
// Callers never build these directly; Placeholders.Add does.
func Placeholder(n int) Value { return Value{kind: KindPlaceholder, n: n} }

// Column constructs a (table, column) reference. table may be empty for an
// unqualified reference.
func Column(table, col string) Value {
	return Value{kind: KindColumn, table: table, col: col}
}

// Function constructs a SQL function-call operand: name(args...).
func Function(name string, args ...Value) Value {
	return Value{kind: KindFunction, fn: name, args: args}
}

// Optional wraps v, or signals an absent value when present is false.
func Optional(v Value, present bool) Value {
	if !present {
		return Value{kind: KindOptional, optional: false}
	}
	return Value{kind: KindOptional, inner: &v, optional: true}
}

func (v Value) Kind() Kind { return v.kind }

// IsNull collapses both Null and an empty Optional to true.
func (v Value) IsNull() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindOptional:
		return !v.optional
	default:
		return false
	}
}

// Table returns the qualifying table name of a Column value, or "".
func (v Value) Table() string { return v.table }

// Col returns the column name of a Column value.
func (v Value) Col() string { return v.col }

// Position returns the 1-based position of a Placeholder value.
func (v Value) Position() int { return v.n }

// unwrap returns the contained value for Optional, or v itself otherwise.
func (v Value) unwrap() Value {
	if v.kind == KindOptional {
		if !v.optional {
			return Null
		}
		return *v.inner
	}
	return v
}

// Bind returns the representation pgx should bind for this value. Optional
// and Null both bind to nil. Placeholder, Column, Function, Record and Range
// have no bind representation and return an error wrapping ErrNotBindable.
func (v Value) Bind() (any, error) {
	v = v.unwrap()
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindString:
		return v.str, nil
	case KindInt:
		return v.i64, nil
	case KindFloat:
		return v.f64, nil
	case KindBool:
		return v.b, nil
	case KindTimestamp, KindTimestampNoZone:
		return v.t, nil
	case KindIP:
		return v.ip, nil
	case KindUUID:
		return v.id, nil
	case KindJSON:
		return v.raw, nil
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			b, err := e.Bind()
			if err != nil {
				return nil, err
			}
			out[i] = b
		}
		return out, nil
	case KindPlaceholder, KindColumn, KindFunction, KindRecord, KindRange:
		return nil, fmt.Errorf("%w: kind %d has no bind representation", ErrNotBindable, v.kind)
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrNotBindable, v.kind)
	}
}

// ErrNotBindable is returned by Bind for structural values used only in
// SQL text (columns, functions, placeholders themselves).
var ErrNotBindable = fmt.Errorf("value has no bind representation")

// Literal renders the SQL-literal form used for diagnostics, EXPLAIN, and
// logs. Single quotes are doubled inside string literals; double quotes are
// doubled inside identifiers.
func (v Value) Literal() string {
	v = v.unwrap()
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindString:
		return quoteLiteral(v.str)
	case KindInt:
		return strconv.FormatInt(v.i64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f64, 'g', -1, 64)
	case KindBool:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	case KindTimestamp, KindTimestampNoZone:
		return quoteLiteral(v.t.Format(time.RFC3339Nano))
	case KindIP:
		return quoteLiteral(v.ip.String())
	case KindUUID:
		return quoteLiteral(v.id.String())
	case KindJSON:
		return quoteLiteral(string(v.raw))
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.Literal()
		}
		return "{" + strings.Join(parts, ",") + "}"
	case KindRecord:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.Literal()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindRange:
		return fmt.Sprintf("BETWEEN %s AND %s", v.rng[0].Literal(), v.rng[1].Literal())
	case KindPlaceholder:
		return "$" + strconv.Itoa(v.n)
	case KindColumn:
		return QuoteIdent(v.col)
	case KindFunction:
		parts := make([]string, len(v.args))
		for i, a := range v.args {
			parts[i] = a.Literal()
		}
		return QuoteIdent(strings.ToLower(v.fn)) + "(" + strings.Join(parts, ", ") + ")"
	default:
		return "NULL"
	}
}

// QuoteIdent double-quotes a SQL identifier, escaping embedded double quotes
// by doubling them.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
