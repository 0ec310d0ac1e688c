package sqldb

import (
	stdsql "database/sql"
	"fmt"
	"strings"

	"github.com/nickyhof/RouteDB/db"

	// SQLite driver
	_ "modernc.org/sqlite"
)

func init() {
	RegisterDialect(Dialect{
		Name:        "sqlite",
		Driver:      "sqlite",
		ListTables:  "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
		ListColumns: "SELECT name, type FROM pragma_table_info(?) ORDER BY cid",
		Version:     "SELECT sqlite_version()",
		// An in-memory database lives in a single connection
		Prepare: func(pool *stdsql.DB) {
			pool.SetMaxOpenConns(1)
		},
		Classify: classifySQLite,
	})
}

func classifySQLite(err error) error {
	message := err.Error()
	switch {
	case strings.Contains(message, "no such table"):
		return fmt.Errorf("%w: %w", db.ErrTableNotFound, err)
	case strings.Contains(message, "already exists"):
		return fmt.Errorf("%w: %w", db.ErrTableExists, err)
	case strings.Contains(message, "no such column"):
		return fmt.Errorf("%w: %w", db.ErrColumnNotFound, err)
	case strings.Contains(message, "syntax error"):
		return fmt.Errorf("%w: %w", db.ErrUnsupported, err)
	default:
		return err
	}
}
