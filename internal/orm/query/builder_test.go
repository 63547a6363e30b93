package query

import (
	"testing"

	"github.com/ashgate/pgframe/internal/orm/callback"
	"github.com/ashgate/pgframe/internal/orm/value"
)

func TestQuery_All_ToSQL(t *testing.T) {
	q := All(widget{}, scanWidget)
	got, err := q.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL() error = %v", err)
	}
	if want := `SELECT * FROM "widgets"`; got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestQuery_Find_MatchesLaw2(t *testing.T) {
	q := Find(widget{}, scanWidget, value.Int(7))
	got, err := q.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL() error = %v", err)
	}
	want := `SELECT * FROM "widgets" WHERE "widgets"."id" = $1 LIMIT 1`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
	args, _ := q.t.Placeholders.Bind()
	if len(args) != 1 || args[0] != int64(7) {
		t.Errorf("bind args = %#v, want [7]", args)
	}
}

func TestQuery_FindBy(t *testing.T) {
	q := FindBy(widget{}, scanWidget, "name", value.String("gizmo"))
	got, _ := q.ToSQL()
	want := `SELECT * FROM "widgets" WHERE "widgets"."name" = $1 LIMIT 1`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestQuery_FirstOne_OrdersByPK(t *testing.T) {
	q := FirstOne(widget{}, scanWidget)
	got, _ := q.ToSQL()
	want := `SELECT * FROM "widgets" ORDER BY "widgets"."id" ASC LIMIT 1`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestQuery_FirstMany(t *testing.T) {
	q := FirstMany(widget{}, scanWidget, 3)
	got, _ := q.ToSQL()
	want := `SELECT * FROM "widgets" ORDER BY "widgets"."id" ASC LIMIT 3`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestQuery_TakeOne_NoOrder(t *testing.T) {
	q := TakeOne(widget{}, scanWidget)
	got, _ := q.ToSQL()
	want := `SELECT * FROM "widgets" LIMIT 1`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestQuery_Filter_ChainsWithAnd(t *testing.T) {
	q := All(widget{}, scanWidget).
		Filter("name", value.String("a")).
		FilterGt("id", value.Int(5))
	got, _ := q.ToSQL()
	want := `SELECT * FROM "widgets" WHERE "widgets"."name" = $1 AND "widgets"."id" > $2`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestQuery_Filter_Null(t *testing.T) {
	q := All(widget{}, scanWidget).Filter("name", value.Null)
	got, _ := q.ToSQL()
	want := `SELECT * FROM "widgets" WHERE "widgets"."name" IS NULL`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
	if q.t.Placeholders.Len() != 0 {
		t.Errorf("Filter(Null) should not consume a placeholder, Len() = %d", q.t.Placeholders.Len())
	}
}

func TestQuery_Filter_List(t *testing.T) {
	q := All(widget{}, scanWidget).Filter("id", value.List(value.Int(1), value.Int(2)))
	got, _ := q.ToSQL()
	want := `SELECT * FROM "widgets" WHERE "widgets"."id" = ANY($1)`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestQuery_Not(t *testing.T) {
	q := All(widget{}, scanWidget).Not("name", value.String("a"))
	got, _ := q.ToSQL()
	want := `SELECT * FROM "widgets" WHERE NOT ("widgets"."name" = $1)`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestQuery_Or(t *testing.T) {
	a := All(widget{}, scanWidget).Filter("name", value.String("a"))
	b := All(widget{}, scanWidget).Filter("name", value.String("b"))
	a.Or(b)

	got, _ := a.ToSQL()
	want := `SELECT * FROM "widgets" WHERE "widgets"."name" = $1 OR "widgets"."name" = $2`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}

	args, err := a.t.Placeholders.Bind()
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if len(args) != 2 || args[0] != "a" || args[1] != "b" {
		t.Errorf("bind args = %#v, want [a b]", args)
	}
}

func TestQuery_Or_RenumbersEveryPlaceholderInSub(t *testing.T) {
	a := All(widget{}, scanWidget).
		Filter("name", value.String("a")).
		FilterGt("id", value.Int(1))
	b := All(widget{}, scanWidget).
		Filter("name", value.String("b")).
		FilterGt("id", value.Int(2))
	a.Or(b)

	got, _ := a.ToSQL()
	want := `SELECT * FROM "widgets" WHERE ("widgets"."name" = $1 AND "widgets"."id" > $2) OR ("widgets"."name" = $3 AND "widgets"."id" > $4)`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}

	args, err := a.t.Placeholders.Bind()
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if len(args) != 4 || args[0] != "a" || args[1] != int64(1) || args[2] != "b" || args[3] != int64(2) {
		t.Errorf("bind args = %#v, want [a 1 b 2]", args)
	}
}

func TestQuery_OrderDesc_And_OrderRaw(t *testing.T) {
	q := All(widget{}, scanWidget).OrderDesc("id").OrderRaw("random()")
	got, _ := q.ToSQL()
	want := `SELECT * FROM "widgets" ORDER BY "widgets"."id" DESC, random()`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestQuery_Limit_Offset(t *testing.T) {
	q := All(widget{}, scanWidget).Limit(10).Offset(20)
	got, _ := q.ToSQL()
	want := `SELECT * FROM "widgets" LIMIT 10 OFFSET 20`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestQuery_SkipLocked_ImpliesLock(t *testing.T) {
	q := All(widget{}, scanWidget).SkipLocked()
	got, _ := q.ToSQL()
	want := `SELECT * FROM "widgets" FOR UPDATE SKIP LOCKED`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestQuery_Join(t *testing.T) {
	RegisterAssociation(BelongsTo, part{}, widget{})
	q := All(part{}, scanPart).Join(widget{})
	got, _ := q.ToSQL()
	want := `SELECT "parts".* FROM "parts" INNER JOIN "widgets" ON "parts"."widget_id" = "widgets"."id"`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestQuery_Clone_Independence(t *testing.T) {
	base := All(widget{}, scanWidget).Filter("name", value.String("a"))
	clone := base.Clone()
	clone.Filter("id", value.Int(1))

	baseSQL, _ := base.ToSQL()
	cloneSQL, _ := clone.ToSQL()

	if baseSQL == cloneSQL {
		t.Error("mutating a clone should not affect the original scope's SQL")
	}
	if base.t.Placeholders.Len() != 1 {
		t.Errorf("base placeholders leaked clone mutation: Len() = %d, want 1", base.t.Placeholders.Len())
	}
}

func TestCreate_ToSQL(t *testing.T) {
	q := Create(widget{}, scanWidget, []string{"name"}, []value.Value{value.String("gizmo")})
	got, _ := q.ToSQL()
	want := `INSERT INTO "widgets" ("name") VALUES ($1) RETURNING *`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestCreate_UniqueBy_ProducesUpsertInsertSQL(t *testing.T) {
	q := Create(widget{}, scanWidget, []string{"name"}, []value.Value{value.String("gizmo")}).
		UniqueBy("name")
	got, _ := q.ToSQL()
	want := `INSERT INTO "widgets" ("name") VALUES ($1) ON CONFLICT ("name") DO UPDATE SET "name" = EXCLUDED."name" RETURNING *`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestFindOrCreateBy_ProbesWithSelectFirst(t *testing.T) {
	q := FindOrCreateBy(widget{}, scanWidget, []string{"name"}, []value.Value{value.String("gizmo")})
	got, err := q.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL() error = %v", err)
	}
	want := `SELECT * FROM "widgets" WHERE "widgets"."name" = $1 LIMIT 1`
	if got != want {
		t.Errorf("ToSQL() (probing select) = %q, want %q", got, want)
	}
	if q.t.UpsertInsert == nil {
		t.Fatal("expected UpsertInsert to be populated")
	}
	insertSQL, err := Emit(q.t.UpsertInsert)
	if err != nil {
		t.Fatalf("Emit(UpsertInsert) error = %v", err)
	}
	if want := `INSERT INTO "widgets" ("name") VALUES ($2) RETURNING *`; insertSQL != want {
		t.Errorf("UpsertInsert SQL = %q, want %q", insertSQL, want)
	}
}

func TestSave_NewRecordInserts(t *testing.T) {
	w := newWidget(0, "gizmo")
	w.id = value.Null
	q := Save[widget](w, scanWidget)
	if q.t.Kind != KindInsert {
		t.Fatalf("Save() on unsaved model built Kind = %v, want KindInsert", q.t.Kind)
	}
}

func TestSave_ExistingRecordUpdates(t *testing.T) {
	w := newWidget(9, "gizmo")
	q := Save[widget](w, scanWidget)
	if q.t.Kind != KindUpdate {
		t.Fatalf("Save() on a saved model built Kind = %v, want KindUpdate", q.t.Kind)
	}
	got, _ := q.ToSQL()
	want := `UPDATE "widgets" SET "name" = $1 WHERE "widgets"."id" = $2 RETURNING *`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestRelated_BuildsFKAnyQuery(t *testing.T) {
	RegisterAssociation(HasMany, widget{}, part{})
	parents := []widget{newWidget(1, "a"), newWidget(2, "b")}

	q, err := Related[widget, part](parents, part{}, scanPart)
	if err != nil {
		t.Fatalf("Related() error = %v", err)
	}
	got, _ := q.ToSQL()
	want := `SELECT * FROM "parts" WHERE "parts"."widget_id" = ANY($1)`
	if got != want {
		t.Errorf("ToSQL() = %q, want %q", got, want)
	}
}

func TestRelated_UndeclaredAssociationErrors(t *testing.T) {
	parents := []widget{newWidget(1, "a")}
	if _, err := Related[widget, gizmo](parents, gizmo{}, func(Row) (gizmo, error) { return gizmo{}, nil }); err == nil {
		t.Fatal("expected an error for an undeclared association")
	}
}

func TestRaw_ToSQL(t *testing.T) {
	q := Raw(widget{}, scanWidget, "SELECT * FROM widgets WHERE id = $1", value.Int(3))
	got, err := q.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL() error = %v", err)
	}
	if got != "SELECT * FROM widgets WHERE id = $1" {
		t.Errorf("ToSQL() = %q", got)
	}
	args, _ := q.t.Placeholders.Bind()
	if len(args) != 1 || args[0] != int64(3) {
		t.Errorf("bind args = %#v, want [3]", args)
	}
}

func TestFetch_Insert_FiresCreateAndSaveCallbacks(t *testing.T) {
	t.Cleanup(callback.Clear)

	var before, after []string
	callback.Register("widgets", callback.BeforeCreate, func(values []any) error {
		before = append(before, "create")
		return nil
	})
	callback.Register("widgets", callback.BeforeSave, func(values []any) error {
		before = append(before, "save")
		return nil
	})
	callback.Register("widgets", callback.AfterCreate, func(values []any) error {
		after = append(after, "create")
		return nil
	})
	callback.Register("widgets", callback.AfterSave, func(values []any) error {
		after = append(after, "save")
		return nil
	})

	q := Create(widget{}, scanWidget, []string{"name"}, []value.Value{value.String("gizmo")})
	args, _ := q.t.Placeholders.Bind()

	if err := q.fireBefore(args); err != nil {
		t.Fatalf("fireBefore() error = %v", err)
	}
	if len(before) != 2 || before[0] != "create" || before[1] != "save" {
		t.Errorf("before callbacks = %v, want [create save]", before)
	}

	if err := q.fireAfter(args); err != nil {
		t.Fatalf("fireAfter() error = %v", err)
	}
	if len(after) != 2 || after[0] != "create" || after[1] != "save" {
		t.Errorf("after callbacks = %v, want [create save]", after)
	}
}

func TestFetch_Update_FiresUpdateAndSaveCallbacks(t *testing.T) {
	t.Cleanup(callback.Clear)

	var fired []string
	callback.Register("widgets", callback.BeforeUpdate, func(values []any) error {
		fired = append(fired, "before_update")
		return nil
	})
	callback.Register("widgets", callback.AfterUpdate, func(values []any) error {
		fired = append(fired, "after_update")
		return nil
	})

	w := newWidget(1, "gizmo")
	q := Save(w, scanWidget)
	args, _ := q.t.Placeholders.Bind()

	if err := q.fireBefore(args); err != nil {
		t.Fatalf("fireBefore() error = %v", err)
	}
	if err := q.fireAfter(args); err != nil {
		t.Fatalf("fireAfter() error = %v", err)
	}
	if len(fired) != 2 || fired[0] != "before_update" || fired[1] != "after_update" {
		t.Errorf("fired = %v, want [before_update after_update]", fired)
	}
}

func TestFetch_Select_DoesNotFireCallbacks(t *testing.T) {
	t.Cleanup(callback.Clear)

	var fired bool
	callback.Register("widgets", callback.BeforeCreate, func(values []any) error {
		fired = true
		return nil
	})

	q := All(widget{}, scanWidget)
	if err := q.fireBefore(nil); err != nil {
		t.Fatalf("fireBefore() error = %v", err)
	}
	if err := q.fireAfter(nil); err != nil {
		t.Fatalf("fireAfter() error = %v", err)
	}
	if fired {
		t.Error("expected a Select scope not to fire Insert callbacks")
	}
}

func TestFetch_Insert_BeforeCallbackErrorAbortsStatement(t *testing.T) {
	t.Cleanup(callback.Clear)

	wantErr := errorBoom{}
	callback.Register("widgets", callback.BeforeCreate, func(values []any) error {
		return wantErr
	})

	q := Create(widget{}, scanWidget, []string{"name"}, []value.Value{value.String("gizmo")})
	args, _ := q.t.Placeholders.Bind()

	if err := q.fireBefore(args); err != wantErr {
		t.Errorf("fireBefore() error = %v, want %v", err, wantErr)
	}
}

type errorBoom struct{}

func (errorBoom) Error() string { return "boom" }
