package RouteDB

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nickyhof/RouteDB/config"
	"github.com/nickyhof/RouteDB/core"
	"github.com/nickyhof/RouteDB/db"
	"github.com/nickyhof/RouteDB/ps"
	"github.com/nickyhof/RouteDB/router"
	"github.com/nickyhof/RouteDB/sqldb"
)

// Factory builds an engine from its configuration. Engines that hold
// resources may implement io.Closer; Instance.Close closes them.
type Factory func(ctx context.Context, cfg config.EngineConfig) (router.Engine, error)

var (
	factories = make(map[string]Factory)
	factoryMu sync.RWMutex
)

// RegisterFactory makes an engine kind available to Open and LoadEngine.
// Registering an existing kind replaces it.
func RegisterFactory(kind string, factory Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[kind] = factory
}

func lookupFactory(kind string) (Factory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	factory, ok := factories[kind]
	return factory, ok
}

// Kinds lists the registered engine kinds, sorted.
func Kinds() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func init() {
	RegisterFactory(config.KindMemory, newMemoryEngine)
	RegisterFactory(config.KindShared, newSharedEngine)
	RegisterFactory(config.KindGit, newGitEngine)
	RegisterFactory(config.KindSQLite, newSQLEngine)
	RegisterFactory(config.KindPostgres, newSQLEngine)
	RegisterFactory(config.KindDuckDB, newSQLEngine)
}

func newMemoryEngine(_ context.Context, _ config.EngineConfig) (router.Engine, error) {
	return db.NewEngine(ps.NewMemoryStore()), nil
}

// newSharedEngine attaches to the process-wide store named by Share, or
// by the engine name.
func newSharedEngine(_ context.Context, cfg config.EngineConfig) (router.Engine, error) {
	share := cfg.Share
	if share == "" {
		share = cfg.Name
	}
	return db.NewEngine(ps.Shared(share)), nil
}

func newGitEngine(_ context.Context, cfg config.EngineConfig) (router.Engine, error) {
	var (
		persistence *ps.Persistence
		err         error
	)
	if cfg.Path == "" {
		persistence, err = ps.NewMemoryPersistence()
	} else {
		persistence, err = ps.NewFilePersistence(cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open git store for %s: %w", cfg.Name, err)
	}
	if cfg.AuthorName != "" {
		persistence.SetIdentity(core.Identity{Name: cfg.AuthorName, Email: cfg.AuthorEmail})
	}
	return db.NewEngine(persistence), nil
}

// newSQLEngine opens a pass-through engine; the kind names the dialect.
func newSQLEngine(ctx context.Context, cfg config.EngineConfig) (router.Engine, error) {
	return sqldb.Open(ctx, cfg.Kind, cfg.DSN)
}
