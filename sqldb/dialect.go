package sqldb

import (
	stdsql "database/sql"
	"sort"
	"sync"
)

// Dialect describes how to open and introspect one database/sql driver.
type Dialect struct {
	Name   string
	Driver string

	// ListTables returns one table name per row.
	ListTables string
	// ListColumns takes the table name as its only argument and returns
	// (name, type) rows in declaration order.
	ListColumns string
	// Version returns a single version string.
	Version string

	// Prepare tunes a freshly opened pool, may be nil.
	Prepare func(db *stdsql.DB)
	// Classify maps driver errors onto db sentinels, may be nil.
	Classify func(err error) error
}

var (
	dialects  = make(map[string]Dialect)
	dialectMu sync.RWMutex
)

// RegisterDialect makes a dialect available to Open by name
func RegisterDialect(dialect Dialect) {
	dialectMu.Lock()
	defer dialectMu.Unlock()
	dialects[dialect.Name] = dialect
}

// LookupDialect returns a registered dialect
func LookupDialect(name string) (Dialect, bool) {
	dialectMu.RLock()
	defer dialectMu.RUnlock()
	dialect, ok := dialects[name]
	return dialect, ok
}

// Dialects lists the registered dialect names, sorted.
func Dialects() []string {
	dialectMu.RLock()
	defer dialectMu.RUnlock()

	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
