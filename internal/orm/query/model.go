package query

import "github.com/ashgate/pgframe/internal/orm/value"

// Row is the minimal row-reading contract the builder needs from a driver
// result row: read a column by name. pgx.Rows satisfies this via the thin
// rowAdapter in this package's exec.go.
type Row interface {
	// Get returns the raw driver value for the named column, or an error if
	// the column is absent.
	Get(column string) (any, error)
}

// Model is the contract a user-defined record type satisfies to
// participate in the query builder and ORM.
type Model interface {
	// TableName returns the SQL table backing this model.
	TableName() string

	// PrimaryKeyColumn returns the primary key column name.
	PrimaryKeyColumn() string

	// ForeignKeyColumn returns the column name other tables use to
	// reference this model (commonly "<table_singular>_id").
	ForeignKeyColumn() string

	// ColumnNames returns the ordered list of non-primary-key columns.
	ColumnNames() []string

	// ID returns the primary key value, or a null Value for a new,
	// unsaved row.
	ID() value.Value

	// Values returns the ordered list of non-primary-key values, in the
	// same order as ColumnNames.
	Values() []value.Value
}

// RowScanner is implemented by a model type's package to construct an
// instance of M from a decoded row, propagating conversion errors.
type RowScanner[M Model] func(Row) (M, error)
