//go:build duckdb

package sqldb

import (
	"fmt"
	"strings"

	"github.com/nickyhof/RouteDB/db"

	// DuckDB driver (cgo)
	_ "github.com/duckdb/duckdb-go/v2"
)

func init() {
	RegisterDialect(Dialect{
		Name:       "duckdb",
		Driver:     "duckdb",
		ListTables: "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name",
		ListColumns: "SELECT column_name, data_type FROM information_schema.columns " +
			"WHERE table_schema = current_schema() AND table_name = ? ORDER BY ordinal_position",
		Version:  "SELECT version()",
		Classify: classifyDuckDB,
	})
}

func classifyDuckDB(err error) error {
	message := err.Error()
	switch {
	case strings.Contains(message, "does not exist"):
		return fmt.Errorf("%w: %w", db.ErrTableNotFound, err)
	case strings.Contains(message, "already exists"):
		return fmt.Errorf("%w: %w", db.ErrTableExists, err)
	default:
		return err
	}
}
