package sqldb

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nickyhof/RouteDB/db"

	// PostgreSQL driver, registered as "pgx"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgreSQL error codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgDuplicateTable  = "42P07"
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
	pgDuplicateColumn = "42701"
	pgSyntaxError     = "42601"
)

func init() {
	RegisterDialect(Dialect{
		Name:       "postgres",
		Driver:     "pgx",
		ListTables: "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name",
		ListColumns: "SELECT column_name, data_type FROM information_schema.columns " +
			"WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position",
		Version:  "SHOW server_version",
		Classify: classifyPostgres,
	})
}

func classifyPostgres(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgDuplicateTable:
		return fmt.Errorf("%w: %w", db.ErrTableExists, err)
	case pgUndefinedTable:
		return fmt.Errorf("%w: %w", db.ErrTableNotFound, err)
	case pgUndefinedColumn:
		return fmt.Errorf("%w: %w", db.ErrColumnNotFound, err)
	case pgDuplicateColumn:
		return fmt.Errorf("%w: %w", db.ErrColumnExists, err)
	case pgSyntaxError:
		return fmt.Errorf("%w: %w", db.ErrUnsupported, err)
	default:
		return err
	}
}
