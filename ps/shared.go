package ps

import (
	"sync"

	"github.com/nickyhof/RouteDB/op"
)

var (
	sharedMu     sync.Mutex
	sharedStores = map[string]*MemoryStore{}
)

// Shared returns the process-wide memory store registered under name,
// creating it on first use. Every engine built on the same name sees the
// same tables, the way browser tabs share one sessionStorage.
func Shared(name string) *MemoryStore {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	store, ok := sharedStores[name]
	if !ok {
		store = NewMemoryStore()
		sharedStores[name] = store
	}
	return store
}

// ReleaseShared forgets the shared store registered under name.
func ReleaseShared(name string) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	delete(sharedStores, name)
}

var (
	_ op.Store     = (*MemoryStore)(nil)
	_ op.Store     = (*Persistence)(nil)
	_ op.Versioned = (*Persistence)(nil)
)
