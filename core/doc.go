// Package core provides core types used throughout RouteDB.
//
// The package defines table schemas, stored records and the canonical
// value set shared by every storage engine.
//
// # Values
//
// Values crossing engine boundaries are normalized to one of:
//   - nil (SQL NULL)
//   - int64
//   - float64
//   - string
//   - bool
//
// Normalize folds driver values (int32, []byte, time.Time, json.Number)
// into that set. Coerce converts a value into a column's storage type and
// Compare orders two values, treating NULL as incomparable.
//
// # Table Definition
//
//	table := core.Table{
//	    Name: "users",
//	    Columns: []core.Column{
//	        {Name: "id", Type: core.IntType, PrimaryKey: true},
//	        {Name: "name", Type: core.StringType},
//	        {Name: "active", Type: core.BoolType},
//	    },
//	}
//
// A table created without a column list is schemaless; its columns are
// learned from the column lists of later INSERT statements.
package core
