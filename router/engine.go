package router

import (
	"context"

	"github.com/nickyhof/RouteDB/db"
	"github.com/nickyhof/RouteDB/sql"
)

// Engine executes one classified statement and returns its raw result.
// Engines are compared by identity, so implementations must be comparable
// (pointer types in practice).
type Engine interface {
	Execute(ctx context.Context, statement sql.Statement) (db.Result, error)
}

var (
	_ Engine = (*db.Engine)(nil)
)
