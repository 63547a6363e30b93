package query

import "github.com/ashgate/pgframe/internal/orm/value"

// TreeKind discriminates which statement shape a Tree represents.
type TreeKind int

const (
	KindSelect TreeKind = iota
	KindInsert
	KindUpdate
	KindUpsert
	KindRaw
)

// OrderDir is ascending or descending.
type OrderDir int

const (
	Asc OrderDir = iota
	Desc
)

// OrderTerm is one column in an ORDER BY list. Raw, when non-empty, is
// emitted verbatim (free-form ordering strings from Query.OrderRaw).
type OrderTerm struct {
	Col value.Value
	Dir OrderDir
	Raw string
}

// CombineKind identifies a set operation joining two SELECTs.
type CombineKind int

const (
	CombineUnion CombineKind = iota
	CombineUnionAll
	CombineIntersect
	CombineExcept
)

// Combine pairs a set operator with the tree it combines against.
type Combine struct {
	Kind CombineKind
	With *Tree
}

// CTE is one named entry of a WITH clause.
type CTE struct {
	Name string
	Tree *Tree
}

// OnConflict represents ON CONFLICT (cols) DO UPDATE SET col = EXCLUDED.col.
type OnConflict struct {
	UniqueBy []string
}

// Tree is the top-level query AST. Exactly one of the per-kind field groups
// is populated, selected by Kind. Placeholder numbering is finalized by the
// time a Tree is built; Emit is a pure function of the tree.
type Tree struct {
	Kind  TreeKind
	Table string

	// Placeholders is shared across this tree and any subqueries glued into
	// it (Upsert's Select+Insert, Combine.With) so bind ordering stays a
	// single increasing sequence.
	Placeholders *Placeholders

	// Select
	Columns    []value.Value
	StarTable  string // when set, SELECT "table".* instead of an explicit list
	CountStar  bool
	Joins      []Join
	Where      *Where
	Order      []OrderTerm
	Limit      *int
	Offset     *int
	Lock       bool
	SkipLocked bool
	GroupBy    []value.Value
	Combines   []Combine
	CTEs       []CTE

	// Insert
	InsertColumns []string
	InsertValues  []value.Value
	OnConflict    *OnConflict

	// Update
	SetColumns  []string
	SetValues   []value.Value
	UpdateWhere *Where

	// Upsert: Select runs first; if empty, Insert runs.
	UpsertSelect *Tree
	UpsertInsert *Tree

	// Raw
	RawSQL  string
	RawArgs []value.Value

	Explain bool
}

// NewSelect starts a SELECT tree rooted at table, sharing ph for
// placeholder numbering.
func NewSelect(table string, ph *Placeholders) *Tree {
	return &Tree{Kind: KindSelect, Table: table, Placeholders: ph, StarTable: table}
}

// Clone deep-copies the tree so a named scope can be reused without
// aliasing its caller's mutations. The Placeholders vector is NOT copied —
// clones are expected to be re-attached to a fresh vector by the caller
// before further mutation, since placeholder numbering must stay a single
// increasing sequence per statement.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Columns = append([]value.Value(nil), t.Columns...)
	cp.Joins = append([]Join(nil), t.Joins...)
	cp.Where = t.Where.Clone()
	cp.Order = append([]OrderTerm(nil), t.Order...)
	cp.GroupBy = append([]value.Value(nil), t.GroupBy...)
	cp.Combines = append([]Combine(nil), t.Combines...)
	cp.CTEs = append([]CTE(nil), t.CTEs...)
	cp.InsertColumns = append([]string(nil), t.InsertColumns...)
	cp.InsertValues = append([]value.Value(nil), t.InsertValues...)
	cp.SetColumns = append([]string(nil), t.SetColumns...)
	cp.SetValues = append([]value.Value(nil), t.SetValues...)
	cp.UpdateWhere = t.UpdateWhere.Clone()
	return &cp
}
