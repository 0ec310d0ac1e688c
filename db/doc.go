// Package db provides the built-in SQL execution engine.
//
// An Engine executes classified statements against a physical store and
// returns raw results. It does not split scripts or route between
// engines; that is the router's job.
//
// # Engine Usage
//
//	engine := db.NewEngine(ps.NewMemoryStore())
//	result, err := engine.Run(ctx, "SELECT * FROM users WHERE age > 30")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Result Types
//
//   - QueryResult: SELECT
//   - CommitResult: CREATE, DROP, ALTER, INSERT, UPDATE, DELETE
//   - TablesResult: SHOW TABLES
//   - ColumnsResult: SHOW COLUMNS
//   - VersionResult: SHOW VERSION
//
// Results are returned as pointers.
package db
