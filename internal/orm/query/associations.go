package query

import (
	"fmt"
	"sync"

	"github.com/ashgate/pgframe/internal/orm/value"
)

// AssocKind distinguishes the three declarable relationship shapes.
type AssocKind int

const (
	BelongsTo AssocKind = iota
	HasMany
	HasOne
)

type assocKey struct{ left, right string }

var (
	assocMu  sync.RWMutex
	assocReg = map[assocKey]Join{}
)

// RegisterAssociation declares an edge from left to right, computing the
// join columns from each model's declared PK/FK metadata. Call this once
// at startup (e.g. from an init func in the model's package); registration
// after the application begins serving is unsupported and racy.
func RegisterAssociation(kind AssocKind, left, right Model) {
	var j Join
	switch kind {
	case BelongsTo:
		// left's column named by right's fk references right.<pk>
		j = Join{
			Kind:     JoinInner,
			Table:    right.TableName(),
			LeftCol:  value.Column(left.TableName(), right.ForeignKeyColumn()),
			RightCol: value.Column(right.TableName(), right.PrimaryKeyColumn()),
		}
	case HasMany, HasOne:
		// right's column named by left's fk references left.<pk>
		j = Join{
			Kind:     JoinLeft,
			Table:    right.TableName(),
			LeftCol:  value.Column(left.TableName(), left.PrimaryKeyColumn()),
			RightCol: value.Column(right.TableName(), left.ForeignKeyColumn()),
		}
	}

	assocMu.Lock()
	defer assocMu.Unlock()
	assocReg[assocKey{left.TableName(), right.TableName()}] = j
}

// LookupAssociation returns the join declared between two tables, or an
// error if no association was registered (a runtime error is acceptable
// per spec §9 — compile-time checking is not required).
func LookupAssociation(leftTable, rightTable string) (Join, error) {
	assocMu.RLock()
	defer assocMu.RUnlock()
	j, ok := assocReg[assocKey{leftTable, rightTable}]
	if !ok {
		return Join{}, fmt.Errorf("query: no association registered from %q to %q", leftTable, rightTable)
	}
	return j, nil
}
