package router

import (
	"github.com/nickyhof/RouteDB/sql"
)

// Resolver picks the engine for each statement of a batch.
type Resolver struct {
	registry *Registry
	catalog  *Catalog
}

func NewResolver(registry *Registry, catalog *Catalog) *Resolver {
	return &Resolver{registry: registry, catalog: catalog}
}

// Resolve applies the routing rules in order:
//
//  1. CREATE TABLE ... ENGINE = name uses the named engine.
//  2. A statement referencing a bound table uses that table's owner.
//  3. Anything else uses the default engine.
//
// When none applies the statement fails with KindEngineNotLoaded.
func (r *Resolver) Resolve(statement sql.Statement) (Engine, error) {
	if create, ok := statement.(sql.CreateTableStatement); ok && create.Engine != "" {
		engine, found := r.registry.ResolveNamed(create.Engine)
		if !found {
			return nil, unknownEngine(create.Engine).WithTable(create.Table)
		}
		return engine, nil
	}

	for _, table := range statement.Tables() {
		if owner, ok := r.catalog.OwnerOf(table); ok {
			return owner, nil
		}
	}

	if engine, ok := r.registry.ResolveDefault(); ok {
		return engine, nil
	}

	err := engineNotLoaded("no engine owns the statement's tables and no default engine is set")
	if tables := statement.Tables(); len(tables) > 0 {
		err.WithTable(tables[0])
	}
	return nil, err
}
