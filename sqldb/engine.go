package sqldb

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/nickyhof/RouteDB/core"
	"github.com/nickyhof/RouteDB/db"
	"github.com/nickyhof/RouteDB/sql"
)

// Engine passes statements through to a database/sql pool and shapes what
// comes back into db results.
type Engine struct {
	pool    *stdsql.DB
	dialect Dialect
}

// Open connects to dsn with the named dialect and verifies the connection.
func Open(ctx context.Context, dialectName, dsn string) (*Engine, error) {
	dialect, ok := LookupDialect(dialectName)
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q (have %v)", dialectName, Dialects())
	}

	pool, err := stdsql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect.Prepare != nil {
		dialect.Prepare(pool)
	}

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(pool, dialect), nil
}

// New wraps an already opened pool.
func New(pool *stdsql.DB, dialect Dialect) *Engine {
	return &Engine{pool: pool, dialect: dialect}
}

func (engine *Engine) Dialect() string {
	return engine.dialect.Name
}

func (engine *Engine) Close() error {
	return engine.pool.Close()
}

func (engine *Engine) classify(err error) error {
	if err == nil || engine.dialect.Classify == nil {
		return err
	}
	return engine.dialect.Classify(err)
}

func (engine *Engine) Execute(ctx context.Context, statement sql.Statement) (db.Result, error) {
	switch s := statement.(type) {
	case sql.SelectStatement:
		return engine.query(ctx, s.SQL())
	case sql.InsertStatement, sql.UpdateStatement:
		return engine.exec(ctx, s.SQL(), func(result *db.CommitResult, n int) { result.RecordsWritten = n })
	case sql.DeleteStatement:
		return engine.exec(ctx, s.SQL(), func(result *db.CommitResult, n int) { result.RecordsDeleted = n })
	case sql.CreateTableStatement:
		if s.IfNotExists {
			if exists, err := engine.tableExists(ctx, s.Table); err != nil || exists {
				return &db.CommitResult{}, err
			}
		}
		return engine.exec(ctx, s.Body(), func(result *db.CommitResult, _ int) { result.TablesCreated = 1 })
	case sql.DropTableStatement:
		if s.IfExists {
			if exists, err := engine.tableExists(ctx, s.Table); err != nil || !exists {
				return &db.CommitResult{}, err
			}
		}
		return engine.exec(ctx, s.SQL(), func(result *db.CommitResult, _ int) { result.TablesDeleted = 1 })
	case sql.AlterTableStatement:
		return engine.exec(ctx, s.SQL(), func(result *db.CommitResult, _ int) { result.TablesAltered = 1 })
	case sql.ShowTablesStatement:
		tables, err := engine.listTables(ctx)
		if err != nil {
			return nil, err
		}
		return &db.TablesResult{Tables: tables}, nil
	case sql.ShowColumnsStatement:
		return engine.listColumns(ctx, s.Table)
	case sql.ShowVersionStatement:
		var version string
		if err := engine.pool.QueryRowContext(ctx, engine.dialect.Version).Scan(&version); err != nil {
			return nil, engine.classify(err)
		}
		return &db.VersionResult{Version: version}, nil
	default:
		return nil, fmt.Errorf("%w: %v", db.ErrUnsupported, statement.Type())
	}
}

func (engine *Engine) exec(ctx context.Context, text string, record func(*db.CommitResult, int)) (db.Result, error) {
	startTime := time.Now()

	res, err := engine.pool.ExecContext(ctx, text)
	if err != nil {
		return nil, engine.classify(err)
	}

	affected, err := res.RowsAffected()
	if err != nil || affected < 0 {
		affected = 0
	}

	result := &db.CommitResult{}
	record(result, int(affected))
	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	return result, nil
}

func (engine *Engine) query(ctx context.Context, text string) (db.Result, error) {
	startTime := time.Now()

	rows, err := engine.pool.QueryContext(ctx, text)
	if err != nil {
		return nil, engine.classify(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	data := [][]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, value := range values {
			values[i] = core.Normalize(value)
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, engine.classify(err)
	}

	return &db.QueryResult{
		Columns:          columns,
		Rows:             data,
		RecordsRead:      len(data),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// listTables returns table names in lexicographic order regardless of the
// server's collation.
func (engine *Engine) listTables(ctx context.Context) ([]string, error) {
	rows, err := engine.pool.QueryContext(ctx, engine.dialect.ListTables)
	if err != nil {
		return nil, engine.classify(err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Strings(tables)
	return tables, nil
}

func (engine *Engine) tableExists(ctx context.Context, table string) (bool, error) {
	tables, err := engine.listTables(ctx)
	if err != nil {
		return false, err
	}
	i := sort.SearchStrings(tables, table)
	return i < len(tables) && tables[i] == table, nil
}

func (engine *Engine) listColumns(ctx context.Context, table string) (db.Result, error) {
	rows, err := engine.pool.QueryContext(ctx, engine.dialect.ListColumns, table)
	if err != nil {
		return nil, engine.classify(err)
	}
	defer rows.Close()

	columns := []db.ColumnInfo{}
	for rows.Next() {
		var column db.ColumnInfo
		var columnType stdsql.NullString
		if err := rows.Scan(&column.Name, &columnType); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		column.Type = columnType.String
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Introspection returns nothing for a missing table
	if len(columns) == 0 {
		exists, err := engine.tableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", db.ErrTableNotFound, table)
		}
	}

	return &db.ColumnsResult{Columns: columns}, nil
}

// Ping checks that the pool still reaches the database.
func (engine *Engine) Ping(ctx context.Context) error {
	return engine.pool.PingContext(ctx)
}
