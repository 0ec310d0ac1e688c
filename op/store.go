package op

import (
	"sort"

	"github.com/nickyhof/RouteDB/core"
)

// Store is the physical storage behind a db.Engine. Implementations
// return core.ErrTableExists and core.ErrTableNotFound for the obvious
// cases and keep records of a table in insertion (ID) order.
type Store interface {
	CreateTable(table core.Table) error
	GetTable(name string) (core.Table, error)
	PutTable(table core.Table) error
	RenameTable(from, to string) error
	DropTable(name string) error
	ListTables() ([]string, error)

	Scan(table string) ([]core.Record, error)
	Insert(table string, rows []map[string]any) ([]int64, error)
	Update(table string, records []core.Record) error
	Delete(table string, ids []int64) error
}

// Versioned is implemented by stores that can name the revision their
// last write produced.
type Versioned interface {
	Head() string
}

// TableNames lists the tables of a store in lexicographic order.
func TableNames(store Store) ([]string, error) {
	names, err := store.ListTables()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Revision returns the store's current revision, or "" for stores that
// are not versioned.
func Revision(store Store) string {
	if versioned, ok := store.(Versioned); ok {
		return versioned.Head()
	}
	return ""
}
