package sqldb

import (
	"context"
	"errors"
	"testing"

	"github.com/nickyhof/RouteDB/db"
	"github.com/nickyhof/RouteDB/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *Engine {
	t.Helper()
	engine, err := Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func run(t *testing.T, engine *Engine, text string) (db.Result, error) {
	t.Helper()
	statement, err := sql.Parse(text)
	require.NoError(t, err, text)
	return engine.Execute(context.Background(), statement)
}

func mustRun(t *testing.T, engine *Engine, text string) db.Result {
	t.Helper()
	result, err := run(t, engine, text)
	require.NoError(t, err, text)
	return result
}

func TestOpenUnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "")
	assert.ErrorContains(t, err, "unknown dialect")
}

func TestDialectsRegistered(t *testing.T) {
	assert.Contains(t, Dialects(), "sqlite")
	assert.Contains(t, Dialects(), "postgres")
}

func TestSQLiteRoundTrip(t *testing.T) {
	engine := openSQLite(t)

	created := mustRun(t, engine, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT) ENGINE = disk")
	assert.Equal(t, 1, created.(*db.CommitResult).TablesCreated)

	inserted := mustRun(t, engine, "INSERT INTO users (id, name) VALUES (1, 'alice'), (2, 'bob')")
	assert.Equal(t, 2, inserted.(*db.CommitResult).RecordsWritten)

	updated := mustRun(t, engine, "UPDATE users SET name = 'carol' WHERE id = 2")
	assert.Equal(t, 1, updated.(*db.CommitResult).RecordsWritten)

	selected := mustRun(t, engine, "SELECT id, name FROM users ORDER BY id").(*db.QueryResult)
	assert.Equal(t, []string{"id", "name"}, selected.Columns)
	assert.Equal(t, [][]any{{int64(1), "alice"}, {int64(2), "carol"}}, selected.Rows)

	deleted := mustRun(t, engine, "DELETE FROM users WHERE id = 1")
	assert.Equal(t, 1, deleted.(*db.CommitResult).RecordsDeleted)
}

func TestSQLiteShowStatements(t *testing.T) {
	engine := openSQLite(t)
	mustRun(t, engine, "CREATE TABLE zeta (id INTEGER)")
	mustRun(t, engine, "CREATE TABLE alpha (id INTEGER, label TEXT)")

	tables := mustRun(t, engine, "SHOW TABLES").(*db.TablesResult)
	assert.Equal(t, []string{"alpha", "zeta"}, tables.Tables)

	columns := mustRun(t, engine, "SHOW COLUMNS FROM alpha").(*db.ColumnsResult)
	assert.Equal(t, []db.ColumnInfo{{Name: "id", Type: "INTEGER"}, {Name: "label", Type: "TEXT"}}, columns.Columns)

	version := mustRun(t, engine, "SHOW VERSION").(*db.VersionResult)
	assert.NotEmpty(t, version.Version)
}

func TestSQLiteIfExistsGuards(t *testing.T) {
	engine := openSQLite(t)
	mustRun(t, engine, "CREATE TABLE t (id INTEGER)")

	again := mustRun(t, engine, "CREATE TABLE IF NOT EXISTS t (id INTEGER)")
	assert.Equal(t, 0, again.(*db.CommitResult).TablesCreated)

	dropped := mustRun(t, engine, "DROP TABLE t")
	assert.Equal(t, 1, dropped.(*db.CommitResult).TablesDeleted)

	missing := mustRun(t, engine, "DROP TABLE IF EXISTS t")
	assert.Equal(t, 0, missing.(*db.CommitResult).TablesDeleted)
}

func TestSQLiteAlterTable(t *testing.T) {
	engine := openSQLite(t)
	mustRun(t, engine, "CREATE TABLE t (id INTEGER)")

	altered := mustRun(t, engine, "ALTER TABLE t ADD COLUMN note TEXT")
	assert.Equal(t, 1, altered.(*db.CommitResult).TablesAltered)

	mustRun(t, engine, "ALTER TABLE t RENAME TO u")
	tables := mustRun(t, engine, "SHOW TABLES").(*db.TablesResult)
	assert.Equal(t, []string{"u"}, tables.Tables)
}

func TestSQLiteErrorClassification(t *testing.T) {
	engine := openSQLite(t)
	mustRun(t, engine, "CREATE TABLE t (id INTEGER)")

	_, err := run(t, engine, "CREATE TABLE t (id INTEGER)")
	assert.True(t, errors.Is(err, db.ErrTableExists), "got %v", err)

	_, err = run(t, engine, "SELECT * FROM missing")
	assert.True(t, errors.Is(err, db.ErrTableNotFound), "got %v", err)

	_, err = run(t, engine, "SHOW COLUMNS FROM missing")
	assert.True(t, errors.Is(err, db.ErrTableNotFound), "got %v", err)
}

func TestSQLiteSchemalessCreateFails(t *testing.T) {
	engine := openSQLite(t)

	_, err := run(t, engine, "CREATE TABLE bare")
	assert.Error(t, err)
}
