package query

import "github.com/ashgate/pgframe/internal/orm/value"

// widget is a minimal Model fixture used across this package's tests.
type widget struct {
	id   value.Value
	name string
	tags value.Value
}

func (w widget) TableName() string         { return "widgets" }
func (w widget) PrimaryKeyColumn() string  { return "id" }
func (w widget) ForeignKeyColumn() string  { return "widget_id" }
func (w widget) ColumnNames() []string     { return []string{"name"} }
func (w widget) ID() value.Value           { return w.id }
func (w widget) Values() []value.Value     { return []value.Value{value.String(w.name)} }

func newWidget(id int64, name string) widget {
	return widget{id: value.Int(id), name: name}
}

func scanWidget(r Row) (widget, error) {
	idVal, err := r.Get("id")
	if err != nil {
		return widget{}, err
	}
	nameVal, err := r.Get("name")
	if err != nil {
		return widget{}, err
	}
	return widget{id: value.Int(idVal.(int64)), name: nameVal.(string)}, nil
}

// part is a second fixture, related to widget via HasMany/BelongsTo.
type part struct {
	id       value.Value
	widgetID value.Value
}

func (p part) TableName() string        { return "parts" }
func (p part) PrimaryKeyColumn() string { return "id" }
func (p part) ForeignKeyColumn() string { return "part_id" }
func (p part) ColumnNames() []string    { return []string{"widget_id"} }
func (p part) ID() value.Value          { return p.id }
func (p part) Values() []value.Value    { return []value.Value{p.widgetID} }

func scanPart(r Row) (part, error) { return part{}, nil }

// gizmo never appears in a RegisterAssociation call; it exists to exercise
// the undeclared-association error/panic paths without depending on test
// execution order mutating the package-level association registry.
type gizmo struct{}

func (gizmo) TableName() string        { return "gizmos" }
func (gizmo) PrimaryKeyColumn() string { return "id" }
func (gizmo) ForeignKeyColumn() string { return "gizmo_id" }
func (gizmo) ColumnNames() []string    { return nil }
func (gizmo) ID() value.Value          { return value.Null }
func (gizmo) Values() []value.Value    { return nil }
