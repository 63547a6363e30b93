package query

import (
	"strings"

	"github.com/ashgate/pgframe/internal/orm/value"
)

// LeafOp identifies the comparison a Where leaf performs.
type LeafOp int

const (
	OpEq LeafOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpEqAny  // column = ANY($n), used for list-valued filters
	OpNotAny // column <> ALL($n)
	OpIsNull
)

// boolOp identifies how a non-leaf Where node combines its children.
type boolOp int

const (
	boolAnd boolOp = iota
	boolOr
)

// Where is a node in the filter tree: either a leaf comparison or an
// AND/OR combination of child nodes. A nil *Where means "no filter".
type Where struct {
	leaf bool
	op   LeafOp
	col  value.Value
	val  value.Value

	boolOp   boolOp
	children []*Where
	negate   bool
}

// Leaf builds a single comparison node.
func Leaf(col value.Value, op LeafOp, val value.Value) *Where {
	return &Where{leaf: true, op: op, col: col, val: val}
}

// And combines children with AND. A single child is returned unwrapped.
func And(children ...*Where) *Where {
	children = compactWhere(children)
	if len(children) == 1 {
		return children[0]
	}
	if len(children) == 0 {
		return nil
	}
	return &Where{boolOp: boolAnd, children: children}
}

// Or combines children with OR.
func Or(children ...*Where) *Where {
	children = compactWhere(children)
	if len(children) == 1 {
		return children[0]
	}
	if len(children) == 0 {
		return nil
	}
	return &Where{boolOp: boolOr, children: children}
}

func compactWhere(in []*Where) []*Where {
	out := make([]*Where, 0, len(in))
	for _, w := range in {
		if w != nil {
			out = append(out, w)
		}
	}
	return out
}

// Add AND-joins leaf onto root, matching Query.Filter semantics: repeated
// calls keep ANDing.
func (root *Where) Add(leaf *Where) *Where {
	if root == nil {
		return leaf
	}
	if leaf == nil {
		return root
	}
	if root.boolOp == boolAnd && !root.leaf && !root.negate {
		root.children = append(root.children, leaf)
		return root
	}
	return And(root, leaf)
}

// Not negates leaf and AND-joins it onto root.
func (root *Where) Not(leaf *Where) *Where {
	negated := &Where{boolOp: boolAnd, children: []*Where{leaf}, negate: true}
	return root.Add(negated)
}

// Or wraps the existing tree and sub as the two operands of a new OR node,
// per spec §3: "or(subfilter) wraps the existing tree and the new subfilter
// as two operands of an OR."
func (root *Where) Or(sub *Where) *Where {
	if root == nil {
		return sub
	}
	if sub == nil {
		return root
	}
	return Or(root, sub)
}

// Concat AND-joins two independently built trees.
func (root *Where) Concat(other *Where) *Where {
	return root.Add(other)
}

// Clone deep-copies the tree so a scope can be reused without aliasing.
func (w *Where) Clone() *Where {
	if w == nil {
		return nil
	}
	cp := *w
	if len(w.children) > 0 {
		cp.children = make([]*Where, len(w.children))
		for i, c := range w.children {
			cp.children[i] = c.Clone()
		}
	}
	return &cp
}

// withOffset returns a clone of w with every embedded Placeholder's position
// shifted by offset. A subquery built against its own, zero-based
// Placeholders vector numbers its leaves starting at $1; once that vector's
// values have been appended onto a parent's via Placeholders.AppendOffset,
// the subquery's tree must be renumbered by the returned offset before it
// is combined into the parent, or the two trees' placeholders collide.
func (w *Where) withOffset(offset int) *Where {
	cp := w.Clone()
	if offset != 0 {
		shiftPlaceholders(cp, offset)
	}
	return cp
}

func shiftPlaceholders(w *Where, offset int) {
	if w == nil {
		return
	}
	if w.leaf {
		if w.val.Kind() == value.KindPlaceholder {
			w.val = value.Placeholder(w.val.Position() + offset)
		}
		return
	}
	for _, c := range w.children {
		shiftPlaceholders(c, offset)
	}
}

func emitColumn(c value.Value) string {
	if c.Table() != "" {
		return value.QuoteIdent(c.Table()) + "." + value.QuoteIdent(c.Col())
	}
	return value.QuoteIdent(c.Col())
}

func emitWhere(w *Where) string {
	if w == nil {
		return ""
	}
	return emitWhereNode(w)
}

func emitWhereNode(w *Where) string {
	if w.leaf {
		return emitLeaf(w)
	}

	parts := make([]string, len(w.children))
	for i, c := range w.children {
		parts[i] = emitWhereNode(c)
		if !c.leaf && len(c.children) > 1 {
			parts[i] = "(" + parts[i] + ")"
		}
	}

	joiner := " AND "
	if w.boolOp == boolOr {
		joiner = " OR "
	}
	expr := strings.Join(parts, joiner)
	if w.negate {
		return "NOT (" + expr + ")"
	}
	return expr
}

func emitLeaf(w *Where) string {
	col := emitColumn(w.col)
	switch w.op {
	case OpIsNull:
		return col + " IS NULL"
	case OpEq:
		return col + " = " + w.val.Literal()
	case OpNeq:
		return col + " != " + w.val.Literal()
	case OpLt:
		return col + " < " + w.val.Literal()
	case OpLte:
		return col + " <= " + w.val.Literal()
	case OpGt:
		return col + " > " + w.val.Literal()
	case OpGte:
		return col + " >= " + w.val.Literal()
	case OpEqAny:
		return col + " = ANY(" + w.val.Literal() + ")"
	case OpNotAny:
		return col + " <> ALL(" + w.val.Literal() + ")"
	default:
		return col
	}
}
