package query

import (
	"context"

	"github.com/ashgate/pgframe/internal/dberr"
	"github.com/ashgate/pgframe/internal/orm/callback"
	"github.com/ashgate/pgframe/internal/orm/value"
)

// Query is a composable, clonable query scope for model type M. The zero
// value is not usable; construct one via All, Find, FindBy, TakeOne/Many,
// FirstOne/Many, Create, or FindOrCreateBy.
type Query[M Model] struct {
	t     *Tree
	scan  RowScanner[M]
	table string
	pk    string
}

// All returns a scope selecting every row of M's table, unordered.
func All[M Model](proto M, scan RowScanner[M]) *Query[M] {
	return &Query[M]{
		t:     NewSelect(proto.TableName(), NewPlaceholders()),
		scan:  scan,
		table: proto.TableName(),
		pk:    proto.PrimaryKeyColumn(),
	}
}

// Find returns a scope for the single row with the given primary key,
// matching spec §8 law 2 exactly: SELECT * FROM "table" WHERE "table"."pk" = $1 LIMIT 1.
func Find[M Model](proto M, scan RowScanner[M], id value.Value) *Query[M] {
	q := All(proto, scan)
	ph := q.t.Placeholders.Add(id)
	q.t.Where = Leaf(value.Column(q.table, q.pk), OpEq, ph)
	one := 1
	q.t.Limit = &one
	return q
}

// FindBy returns a scope filtered by one column, limited to one row.
func FindBy[M Model](proto M, scan RowScanner[M], column string, v value.Value) *Query[M] {
	q := All(proto, scan)
	q.Filter(column, v)
	one := 1
	q.t.Limit = &one
	return q
}

// FirstOne orders by primary key ascending and limits to one row.
func FirstOne[M Model](proto M, scan RowScanner[M]) *Query[M] {
	q := All(proto, scan)
	q.Order(q.pk)
	one := 1
	q.t.Limit = &one
	return q
}

// FirstMany orders by primary key ascending and limits to n rows.
func FirstMany[M Model](proto M, scan RowScanner[M], n int) *Query[M] {
	q := All(proto, scan)
	q.Order(q.pk)
	q.Limit(n)
	return q
}

// TakeOne imposes no order and limits to one row.
func TakeOne[M Model](proto M, scan RowScanner[M]) *Query[M] {
	q := All(proto, scan)
	q.Limit(1)
	return q
}

// TakeMany imposes no order and limits to n rows.
func TakeMany[M Model](proto M, scan RowScanner[M], n int) *Query[M] {
	q := All(proto, scan)
	q.Limit(n)
	return q
}

// Filter ANDs an equality predicate onto the scope. A List value produces
// "column = ANY($n)"; a Null value produces "column IS NULL".
func (q *Query[M]) Filter(column string, v value.Value) *Query[M] {
	return q.addLeaf(column, v, OpEq, false)
}

func (q *Query[M]) FilterGt(column string, v value.Value) *Query[M] {
	return q.addLeaf(column, v, OpGt, false)
}

func (q *Query[M]) FilterGte(column string, v value.Value) *Query[M] {
	return q.addLeaf(column, v, OpGte, false)
}

func (q *Query[M]) FilterLt(column string, v value.Value) *Query[M] {
	return q.addLeaf(column, v, OpLt, false)
}

func (q *Query[M]) FilterLte(column string, v value.Value) *Query[M] {
	return q.addLeaf(column, v, OpLte, false)
}

// Not ANDs the negation of an equality predicate onto the scope.
func (q *Query[M]) Not(column string, v value.Value) *Query[M] {
	return q.addLeaf(column, v, OpEq, true)
}

func (q *Query[M]) addLeaf(column string, v value.Value, op LeafOp, negate bool) *Query[M] {
	col := value.Column(q.table, column)

	var leaf *Where
	switch {
	case v.IsNull():
		leaf = Leaf(col, OpIsNull, value.Null)
	case v.Kind() == value.KindList:
		ph := q.t.Placeholders.Add(v)
		aop := OpEqAny
		if op != OpEq || negate {
			aop = OpNotAny
		}
		leaf = Leaf(col, aop, ph)
		negate = false // already encoded in the operator choice
	default:
		ph := q.t.Placeholders.Add(v)
		leaf = Leaf(col, op, ph)
	}

	if negate {
		q.t.Where = q.t.Where.Not(leaf)
	} else {
		q.t.Where = q.t.Where.Add(leaf)
	}
	return q
}

// Or wraps the existing tree and sub's tree as the two operands of an OR.
// sub was built against its own, independently-numbered Placeholders
// vector, so its values are appended onto q's vector first and its Where
// tree's embedded placeholder positions are shifted by the resulting
// offset before the two trees are combined.
func (q *Query[M]) Or(sub *Query[M]) *Query[M] {
	offset := q.t.Placeholders.AppendOffset(sub.t.Placeholders)
	q.t.Where = q.t.Where.Or(sub.t.Where.withOffset(offset))
	return q
}

// OrNot is Or combined with negation of the supplied predicate.
func (q *Query[M]) OrNot(column string, v value.Value) *Query[M] {
	col := value.Column(q.table, column)
	var leaf *Where
	if v.IsNull() {
		leaf = Leaf(col, OpIsNull, value.Null)
	} else {
		ph := q.t.Placeholders.Add(v)
		leaf = Leaf(col, OpEq, ph)
	}
	negated := &Where{boolOp: boolAnd, children: []*Where{leaf}, negate: true}
	q.t.Where = q.t.Where.Or(negated)
	return q
}

// Order appends an ascending ordering column.
func (q *Query[M]) Order(column string) *Query[M] {
	q.t.Order = append(q.t.Order, OrderTerm{Col: value.Column(q.table, column), Dir: Asc})
	return q
}

// OrderDesc appends a descending ordering column.
func (q *Query[M]) OrderDesc(column string) *Query[M] {
	q.t.Order = append(q.t.Order, OrderTerm{Col: value.Column(q.table, column), Dir: Desc})
	return q
}

// OrderRaw appends a free-form ORDER BY fragment, emitted verbatim.
func (q *Query[M]) OrderRaw(raw string) *Query[M] {
	q.t.Order = append(q.t.Order, OrderTerm{Raw: raw})
	return q
}

func (q *Query[M]) Limit(n int) *Query[M] {
	q.t.Limit = &n
	return q
}

func (q *Query[M]) Offset(n int) *Query[M] {
	q.t.Offset = &n
	return q
}

// Lock appends FOR UPDATE. Meaningful only inside a transaction; the
// builder does not enforce that.
func (q *Query[M]) Lock() *Query[M] {
	q.t.Lock = true
	return q
}

// SkipLocked appends SKIP LOCKED. It implies Lock regardless of call order,
// per spec §8 law 4.
func (q *Query[M]) SkipLocked() *Query[M] {
	q.t.Lock = true
	q.t.SkipLocked = true
	return q
}

// Join adds the join the association registry declares between M's table
// and right's table.
func (q *Query[M]) Join(right Model) *Query[M] {
	j, err := LookupAssociation(q.table, right.TableName())
	if err != nil {
		// An undeclared association panics here: Join is a pure builder
		// step with no error return to report the lookup failure through.
		panic(err)
	}
	q.t.Joins = append(q.t.Joins, j)
	return q
}

// JoinNested composes a multi-hop join chain, each hop looked up between
// the previous hop's table and the next model.
func (q *Query[M]) JoinNested(path ...Model) *Query[M] {
	prevTable := q.table
	for _, m := range path {
		j, err := LookupAssociation(prevTable, m.TableName())
		if err != nil {
			panic(err)
		}
		q.t.Joins = append(q.t.Joins, j)
		prevTable = m.TableName()
	}
	return q
}

// Clone deep-copies the scope so it can be reused as a named, reusable
// query without aliasing a caller's subsequent mutations.
func (q *Query[M]) Clone() *Query[M] {
	cp := *q
	cp.t = q.t.Clone()
	cp.t.Placeholders = &Placeholders{values: append([]value.Value(nil), q.t.Placeholders.Values()...)}
	return &cp
}

// ToSQL returns the emitted SQL text without executing it.
func (q *Query[M]) ToSQL() (string, error) {
	return Emit(q.t)
}

// Count rewrites the SELECT list to COUNT(*) AS count, dropping order and
// limit/offset, and preserves where/join/filters.
func (q *Query[M]) Count(ctx context.Context, exec Executor) (int64, error) {
	cp := q.Clone()
	cp.t.CountStar = true
	cp.t.Order = nil
	cp.t.Limit = nil
	cp.t.Offset = nil

	sql, err := Emit(cp.t)
	if err != nil {
		return 0, err
	}
	args, err := cp.t.Placeholders.Bind()
	if err != nil {
		return 0, &dberr.SerializationError{Reason: err.Error()}
	}
	rows, err := exec.QueryCached(ctx, sql, args...)
	if err != nil {
		return 0, &dberr.DatabaseError{SQL: sql, Err: err}
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, &dberr.ConversionError{Column: "count", Err: err}
		}
	}
	return n, rows.Err()
}

// Exists is Count > 0.
func (q *Query[M]) Exists(ctx context.Context, exec Executor) (bool, error) {
	n, err := q.Count(ctx, exec)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Explain prepends EXPLAIN and returns the driver's plan text.
func (q *Query[M]) Explain(ctx context.Context, exec Executor) (string, error) {
	sql, err := Emit(q.t)
	if err != nil {
		return "", err
	}
	args, err := q.t.Placeholders.Bind()
	if err != nil {
		return "", &dberr.SerializationError{Reason: err.Error()}
	}
	rows, err := exec.QueryCached(ctx, "EXPLAIN "+sql, args...)
	if err != nil {
		return "", &dberr.DatabaseError{SQL: sql, Err: err}
	}
	defer rows.Close()

	var plan string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return "", err
		}
		if plan != "" {
			plan += "\n"
		}
		plan += line
	}
	return plan, rows.Err()
}

// Fetch returns the first row, or dberr.ErrNotFound when the result set is
// empty. Upsert scopes run their probing Select first, then their Insert.
// Insert and Update scopes fire the matching callback.Event pair (Before/
// AfterCreate or Before/AfterUpdate, plus Before/AfterSave either way)
// registered for the scope's table, with the statement's bound args as the
// callback's values; a Before* callback returning an error aborts the
// statement before it reaches exec.
func (q *Query[M]) Fetch(ctx context.Context, exec Executor) (M, error) {
	var zero M

	if q.t.Kind == KindUpsert {
		return q.fetchUpsert(ctx, exec)
	}

	sql, err := Emit(q.t)
	if err != nil {
		return zero, err
	}
	args, err := q.t.Placeholders.Bind()
	if err != nil {
		return zero, &dberr.SerializationError{Reason: err.Error()}
	}

	if err := q.fireBefore(args); err != nil {
		return zero, err
	}

	rows, err := exec.QueryCached(ctx, sql, args...)
	if err != nil {
		return zero, &dberr.DatabaseError{SQL: sql, Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		return zero, dberr.ErrNotFound
	}
	adapter, err := newRowAdapter(rows)
	if err != nil {
		return zero, err
	}
	m, err := q.scan(adapter)
	if err != nil {
		return zero, err
	}

	if err := q.fireAfter(args); err != nil {
		return zero, err
	}
	return m, nil
}

// fireBefore fires the Before* callback.Event pair for an Insert or Update
// scope; Select and Raw scopes have no corresponding event and are a no-op.
func (q *Query[M]) fireBefore(args []any) error {
	switch q.t.Kind {
	case KindInsert:
		if err := callback.Fire(q.table, callback.BeforeCreate, args); err != nil {
			return err
		}
		return callback.Fire(q.table, callback.BeforeSave, args)
	case KindUpdate:
		if err := callback.Fire(q.table, callback.BeforeUpdate, args); err != nil {
			return err
		}
		return callback.Fire(q.table, callback.BeforeSave, args)
	default:
		return nil
	}
}

// fireAfter is fireBefore's After* counterpart, run once the row has been
// scanned successfully.
func (q *Query[M]) fireAfter(args []any) error {
	switch q.t.Kind {
	case KindInsert:
		if err := callback.Fire(q.table, callback.AfterCreate, args); err != nil {
			return err
		}
		return callback.Fire(q.table, callback.AfterSave, args)
	case KindUpdate:
		if err := callback.Fire(q.table, callback.AfterUpdate, args); err != nil {
			return err
		}
		return callback.Fire(q.table, callback.AfterSave, args)
	default:
		return nil
	}
}

func (q *Query[M]) fetchUpsert(ctx context.Context, exec Executor) (M, error) {
	selectQ := &Query[M]{t: q.t.UpsertSelect, scan: q.scan, table: q.table, pk: q.pk}
	found, err := selectQ.Fetch(ctx, exec)
	if err == nil {
		return found, nil
	}
	if err != dberr.ErrNotFound {
		var zero M
		return zero, err
	}

	insertQ := &Query[M]{t: q.t.UpsertInsert, scan: q.scan, table: q.table, pk: q.pk}
	return insertQ.Fetch(ctx, exec)
}

// FetchOptional wraps ErrNotFound into a (zero, false, nil) result.
func (q *Query[M]) FetchOptional(ctx context.Context, exec Executor) (M, bool, error) {
	m, err := q.Fetch(ctx, exec)
	if err == dberr.ErrNotFound {
		var zero M
		return zero, false, nil
	}
	if err != nil {
		var zero M
		return zero, false, err
	}
	return m, true, nil
}

// FetchAll returns every matching row.
func (q *Query[M]) FetchAll(ctx context.Context, exec Executor) ([]M, error) {
	sql, err := Emit(q.t)
	if err != nil {
		return nil, err
	}
	args, err := q.t.Placeholders.Bind()
	if err != nil {
		return nil, &dberr.SerializationError{Reason: err.Error()}
	}
	rows, err := exec.QueryCached(ctx, sql, args...)
	if err != nil {
		return nil, &dberr.DatabaseError{SQL: sql, Err: err}
	}
	defer rows.Close()

	var out []M
	for rows.Next() {
		adapter, err := newRowAdapter(rows)
		if err != nil {
			return nil, err
		}
		m, err := q.scan(adapter)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Create builds an Insert scope for the given columns/values.
func Create[M Model](proto M, scan RowScanner[M], columns []string, values []value.Value) *Query[M] {
	ph := NewPlaceholders()
	vals := make([]value.Value, len(values))
	for i, v := range values {
		vals[i] = ph.Add(v)
	}
	t := &Tree{
		Kind:          KindInsert,
		Table:         proto.TableName(),
		Placeholders:  ph,
		InsertColumns: columns,
		InsertValues:  vals,
	}
	return &Query[M]{t: t, scan: scan, table: proto.TableName(), pk: proto.PrimaryKeyColumn()}
}

// UniqueBy converts an Insert scope into an upsert with
// ON CONFLICT (cols) DO UPDATE SET col = EXCLUDED.col for each column.
func (q *Query[M]) UniqueBy(columns ...string) *Query[M] {
	q.t.OnConflict = &OnConflict{UniqueBy: columns}
	return q
}

// FindOrCreateBy builds an Upsert scope: a Select filtered by every given
// column, and an Insert of the same columns, sharing one placeholder
// sequence. At Fetch time the Select runs first; if it finds nothing, the
// Insert runs and its row is returned.
func FindOrCreateBy[M Model](proto M, scan RowScanner[M], columns []string, values []value.Value) *Query[M] {
	ph := NewPlaceholders()

	sel := NewSelect(proto.TableName(), ph)
	for i, col := range columns {
		leaf := Leaf(value.Column(proto.TableName(), col), OpEq, ph.Add(values[i]))
		sel.Where = sel.Where.Add(leaf)
	}
	one := 1
	sel.Limit = &one

	insVals := make([]value.Value, len(values))
	for i, v := range values {
		insVals[i] = ph.Add(v)
	}
	ins := &Tree{
		Kind:          KindInsert,
		Table:         proto.TableName(),
		Placeholders:  ph,
		InsertColumns: columns,
		InsertValues:  insVals,
	}

	t := &Tree{
		Kind:         KindUpsert,
		Table:        proto.TableName(),
		Placeholders: ph,
		UpsertSelect: sel,
		UpsertInsert: ins,
	}
	return &Query[M]{t: t, scan: scan, table: proto.TableName(), pk: proto.PrimaryKeyColumn()}
}

// Save routes to Update when instance has a primary key set, Insert
// otherwise.
func Save[M Model](instance M, scan RowScanner[M]) *Query[M] {
	cols := instance.ColumnNames()
	vals := instance.Values()

	if instance.ID().IsNull() {
		return Create(instance, scan, cols, vals)
	}

	ph := NewPlaceholders()
	setVals := make([]value.Value, len(vals))
	for i, v := range vals {
		setVals[i] = ph.Add(v)
	}
	idPh := ph.Add(instance.ID())
	t := &Tree{
		Kind:         KindUpdate,
		Table:        instance.TableName(),
		Placeholders: ph,
		SetColumns:   cols,
		SetValues:    setVals,
		UpdateWhere:  Leaf(value.Column(instance.TableName(), instance.PrimaryKeyColumn()), OpEq, idPh),
	}
	return &Query[M]{t: t, scan: scan, table: instance.TableName(), pk: instance.PrimaryKeyColumn()}
}

// Related fetches associated child rows for a batch of parent models as a
// single "WHERE fk = ANY($1)" query, avoiding N+1 round trips.
func Related[P Model, C Model](parents []P, childProto C, scan RowScanner[C]) (*Query[C], error) {
	j, err := LookupAssociation(parentTable(parents), childProto.TableName())
	if err != nil {
		return nil, err
	}

	ids := make([]value.Value, len(parents))
	for i, p := range parents {
		ids[i] = p.ID()
	}

	q := All(childProto, scan)
	ph := q.t.Placeholders.Add(value.List(ids...))
	q.t.Where = Leaf(j.RightCol, OpEqAny, ph)
	return q, nil
}

func parentTable[P Model](parents []P) string {
	if len(parents) == 0 {
		var zero P
		return zero.TableName()
	}
	return parents[0].TableName()
}

// Raw builds a Raw tree from caller-supplied SQL and a placeholder vector.
func Raw[M Model](proto M, scan RowScanner[M], sql string, args ...value.Value) *Query[M] {
	ph := NewPlaceholders()
	for _, a := range args {
		ph.Add(a)
	}
	t := &Tree{Kind: KindRaw, Placeholders: ph, RawSQL: sql, RawArgs: args}
	return &Query[M]{t: t, scan: scan, table: proto.TableName(), pk: proto.PrimaryKeyColumn()}
}
