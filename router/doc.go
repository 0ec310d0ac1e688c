// Package router dispatches batches of SQL statements to pluggable
// storage engines.
//
// A Router owns a Registry of named engines (plus an optional default)
// and a Catalog recording which engine created each live table. Query
// splits its input into statements and, for each one in order, resolves
// the engine, executes the statement and turns the raw result into a
// canonical Payload.
//
// # Routing
//
// The first applicable rule picks the engine:
//
//	CREATE TABLE t (...) ENGINE = name   the named engine
//	statement on a table in the catalog  the engine that created it
//	anything else                        the default engine
//
// Tables are sticky: changing the default never moves an existing table.
// DROP TABLE releases the name; ALTER TABLE ... RENAME TO moves the
// binding to the new name.
//
// # Failures
//
// A batch stops at the first failing statement and returns a single
// *QueryError carrying the 1-based statement position. Statements that
// already succeeded are not rolled back.
//
//	payloads, err := r.Query(ctx, "CREATE TABLE Foo (id INTEGER); INSERT INTO Foo VALUES (1)")
//	if errors.Is(err, router.ErrEngineNotLoaded) {
//		// register an engine first
//	}
package router
