package query

import (
	"testing"

	"github.com/ashgate/pgframe/internal/orm/value"
)

func TestEmit_Select_Star(t *testing.T) {
	tr := NewSelect("widgets", NewPlaceholders())
	got, err := Emit(tr)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if want := `SELECT * FROM "widgets"`; got != want {
		t.Errorf("Emit() = %q, want %q", got, want)
	}
}

func TestEmit_Select_WithJoinUsesStarTable(t *testing.T) {
	RegisterAssociation(BelongsTo, part{}, widget{})
	j, err := LookupAssociation("parts", "widgets")
	if err != nil {
		t.Fatal(err)
	}

	tr := NewSelect("parts", NewPlaceholders())
	tr.Joins = []Join{j}

	got, err := Emit(tr)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	want := `SELECT "parts".* FROM "parts" INNER JOIN "widgets" ON "parts"."widget_id" = "widgets"."id"`
	if got != want {
		t.Errorf("Emit() = %q, want %q", got, want)
	}
}

func TestEmit_Select_FullShape(t *testing.T) {
	ph := NewPlaceholders()
	tr := NewSelect("widgets", ph)
	tr.Where = Leaf(value.Column("widgets", "active"), OpEq, ph.Add(value.Bool(true)))
	one := 5
	off := 10
	tr.Limit = &one
	tr.Offset = &off
	tr.Order = []OrderTerm{{Col: value.Column("widgets", "id"), Dir: Desc}}
	tr.Lock = true
	tr.SkipLocked = true

	got, err := Emit(tr)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	want := `SELECT * FROM "widgets" WHERE "widgets"."active" = $1 ORDER BY "widgets"."id" DESC LIMIT 5 OFFSET 10 FOR UPDATE SKIP LOCKED`
	if got != want {
		t.Errorf("Emit() = %q, want %q", got, want)
	}
}

func TestEmit_Select_CountStar(t *testing.T) {
	tr := NewSelect("widgets", NewPlaceholders())
	tr.CountStar = true
	got, _ := Emit(tr)
	if want := `SELECT COUNT(*) AS count FROM "widgets"`; got != want {
		t.Errorf("Emit() = %q, want %q", got, want)
	}
}

func TestEmit_Select_Combines(t *testing.T) {
	ph := NewPlaceholders()
	left := NewSelect("widgets", ph)
	right := NewSelect("widgets", ph)
	left.Combines = []Combine{{Kind: CombineUnionAll, With: right}}

	got, _ := Emit(left)
	want := `SELECT * FROM "widgets" UNION ALL SELECT * FROM "widgets"`
	if got != want {
		t.Errorf("Emit() = %q, want %q", got, want)
	}
}

func TestEmit_Select_CTE(t *testing.T) {
	ph := NewPlaceholders()
	inner := NewSelect("widgets", ph)
	outer := NewSelect("recent", ph)
	outer.CTEs = []CTE{{Name: "recent", Tree: inner}}

	got, _ := Emit(outer)
	want := `WITH "recent" AS (SELECT * FROM "widgets") SELECT * FROM "recent"`
	if got != want {
		t.Errorf("Emit() = %q, want %q", got, want)
	}
}

func TestEmit_Insert(t *testing.T) {
	ph := NewPlaceholders()
	tr := &Tree{
		Kind:          KindInsert,
		Table:         "widgets",
		Placeholders:  ph,
		InsertColumns: []string{"name"},
		InsertValues:  []value.Value{ph.Add(value.String("gizmo"))},
	}
	got, err := Emit(tr)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	want := `INSERT INTO "widgets" ("name") VALUES ($1) RETURNING *`
	if got != want {
		t.Errorf("Emit() = %q, want %q", got, want)
	}
}

func TestEmit_Insert_OnConflict(t *testing.T) {
	ph := NewPlaceholders()
	tr := &Tree{
		Kind:          KindInsert,
		Table:         "widgets",
		Placeholders:  ph,
		InsertColumns: []string{"name"},
		InsertValues:  []value.Value{ph.Add(value.String("gizmo"))},
		OnConflict:    &OnConflict{UniqueBy: []string{"name"}},
	}
	got, _ := Emit(tr)
	want := `INSERT INTO "widgets" ("name") VALUES ($1) ON CONFLICT ("name") DO UPDATE SET "name" = EXCLUDED."name" RETURNING *`
	if got != want {
		t.Errorf("Emit() = %q, want %q", got, want)
	}
}

func TestEmit_Update(t *testing.T) {
	ph := NewPlaceholders()
	idPh := ph.Add(value.Int(1))
	namePh := ph.Add(value.String("new"))
	tr := &Tree{
		Kind:         KindUpdate,
		Table:        "widgets",
		Placeholders: ph,
		SetColumns:   []string{"name"},
		SetValues:    []value.Value{namePh},
		UpdateWhere:  Leaf(value.Column("widgets", "id"), OpEq, idPh),
	}
	got, _ := Emit(tr)
	want := `UPDATE "widgets" SET "name" = $2 WHERE "widgets"."id" = $1 RETURNING *`
	if got != want {
		t.Errorf("Emit() = %q, want %q", got, want)
	}
}

func TestEmit_Raw(t *testing.T) {
	tr := &Tree{Kind: KindRaw, RawSQL: "SELECT 1"}
	got, err := Emit(tr)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if got != "SELECT 1" {
		t.Errorf("Emit() = %q, want %q", got, "SELECT 1")
	}
}
