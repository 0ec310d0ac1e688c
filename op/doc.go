// Package op provides table-level operations over a physical Store.
//
// The op package sits between the statement executor (db/) and the
// physical stores (ps/), so the executor never deals with a particular
// store's layout.
//
// # TableOp
//
//	tableOp, err := op.GetTable("users", store)
//
//	// Read operations
//	records, err := tableOp.Records()   // insertion order
//	count, err := tableOp.Count()
//
//	// Write operations
//	ids, err := tableOp.Insert([]map[string]any{{"id": int64(1)}})
//	err = tableOp.Put(records)
//	err = tableOp.Delete(ids)
//
//	// Schema changes
//	err = tableOp.AddColumn(core.Column{Name: "flag", Type: core.BoolType})
//	err = tableOp.DropColumn("flag")
//	err = tableOp.Rename("people")
//
// # Architecture
//
// The layering is:
//
//	Router (router/)
//	     ↓
//	Statement executor (db/)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	Stores (ps/): memory, shared, git
package op
