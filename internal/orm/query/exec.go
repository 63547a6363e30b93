package query

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Executor is satisfied structurally by both *db.Conn and *db.Tx: any type
// exposing QueryCached with this signature can run queries built here,
// without internal/orm/query importing internal/db.
type Executor interface {
	QueryCached(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// rowAdapter exposes one already-advanced pgx.Rows as a query.Row, letting
// model FromRow functions read columns by name via Get.
type rowAdapter struct {
	fields []pgconn.FieldDescription
	values []any
}

func newRowAdapter(rows pgx.Rows) (*rowAdapter, error) {
	vals, err := rows.Values()
	if err != nil {
		return nil, err
	}
	return &rowAdapter{fields: rows.FieldDescriptions(), values: vals}, nil
}

func (r *rowAdapter) Get(column string) (any, error) {
	for i, f := range r.fields {
		if f.Name == column {
			return r.values[i], nil
		}
	}
	return nil, &columnNotFound{column: column}
}

type columnNotFound struct{ column string }

func (e *columnNotFound) Error() string { return "column not found: " + e.column }
