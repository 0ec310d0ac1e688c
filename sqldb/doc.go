// Package sqldb runs statements on an external SQL database through
// database/sql.
//
// Statement text goes to the database unchanged, except that CREATE TABLE
// loses its ENGINE clause. Results are shaped into the same db result
// types the built-in engine returns, so the router treats both alike.
//
// Dialects:
//
//	sqlite    modernc.org/sqlite, pure Go
//	postgres  github.com/jackc/pgx/v5/stdlib
//	duckdb    github.com/duckdb/duckdb-go/v2, needs cgo and -tags duckdb
//
// Example:
//
//	engine, err := sqldb.Open(ctx, "sqlite", "file:app.db")
package sqldb
