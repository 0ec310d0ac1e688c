// Package sql provides statement splitting, lexing and classification for
// RouteDB.
//
// # Splitting
//
// Split breaks a batch into individual statements:
//
//	statements, err := sql.Split("CREATE TABLE Foo (id INTEGER); INSERT INTO Foo VALUES (1)")
//
// Semicolons inside quoted strings, quoted identifiers and comments are
// not statement boundaries.
//
// # Parser Usage
//
//	statement, err := sql.Parse("SELECT * FROM Foo WHERE id = 1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(statement.Type(), statement.Tables())
//
// # Supported Statements
//
//   - SelectStatement
//   - InsertStatement
//   - UpdateStatement
//   - DeleteStatement
//   - CreateTableStatement, with an optional ENGINE = name directive
//   - DropTableStatement
//   - AlterTableStatement (RENAME TO, ADD COLUMN, DROP COLUMN)
//   - ShowTablesStatement, ShowColumnsStatement, ShowVersionStatement
package sql
