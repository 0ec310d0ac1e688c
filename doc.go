// Package RouteDB routes batches of SQL statements across several
// storage engines.
//
// Each engine is registered under a name. CREATE TABLE may pick one with
// an ENGINE clause; every later statement on that table goes to the same
// engine, and statements on unknown tables go to the default engine.
//
// # Quick Start
//
//	instance, err := RouteDB.Open(ctx, config.Default())
//	if err != nil {
//		return err
//	}
//	defer instance.Close()
//
//	payloads, err := instance.Query(ctx, `
//		CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT) ENGINE = localStorage;
//		CREATE TABLE scratch;
//		INSERT INTO users VALUES (1, 'Alice');
//		SELECT * FROM users;
//	`)
//
// config.Default() registers three engines:
//   - memory: the default, a plain in-memory store
//   - sessionStorage: an in-memory store shared by every Instance in the process
//   - localStorage: a git-versioned store, one commit per change
//
// SQLite, PostgreSQL and DuckDB databases can be added as pass-through
// engines through the sqlite, postgres and duckdb kinds.
//
// # Supported SQL
//
//   - CREATE TABLE [IF NOT EXISTS] ... [ENGINE = name], DROP TABLE [IF EXISTS]
//   - ALTER TABLE ... RENAME TO / ADD COLUMN / DROP COLUMN
//   - INSERT, SELECT, UPDATE, DELETE
//   - WHERE, ORDER BY, LIMIT, OFFSET
//   - SHOW TABLES, SHOW COLUMNS FROM, SHOW VERSION
package RouteDB
