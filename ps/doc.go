// Package ps provides the physical stores behind the built-in engines.
//
// # Memory Store
//
// Tables live in process memory and vanish with it:
//
//	store := ps.NewMemoryStore()
//
// # Shared Store
//
// A memory store registered under a process-wide name. Every engine opened
// on the same name sees the same tables:
//
//	store := ps.Shared("sessionStorage")
//
// # Git Persistence
//
// Schemas and records are JSON blobs in a Git tree and every write is one
// commit, written through the plumbing API without touching a worktree:
//
//	persistence, err := ps.NewMemoryPersistence()
//	persistence, err := ps.NewFilePersistence("/path/to/data")
//
// The tree layout is:
//
//	tables/<name>/schema.json
//	tables/<name>/rows/<zero-padded id>
//
// # Transaction Batching
//
// Several writes can be grouped into one commit:
//
//	txn, _ := persistence.BeginTransaction()
//	txn.AddWrite("path/a", data1)
//	txn.AddDelete("path/b")
//	result, _ := txn.Commit("message")
package ps
