package router

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nickyhof/RouteDB/db"
	"github.com/nickyhof/RouteDB/sql"
	"github.com/nickyhof/RouteDB/telemetry"
)

// Router is the query facade. It owns a Registry and a Catalog and
// serializes every call with one lock, so a batch observes the catalog
// bindings made by its own earlier statements and nothing else.
type Router struct {
	mu       sync.Mutex
	registry *Registry
	catalog  *Catalog
	resolver *Resolver
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
}

type Option func(*Router)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Router) {
		r.logger = logger.With().Str("component", "router").Logger()
	}
}

// WithMetrics records statement and batch metrics.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(r *Router) {
		r.metrics = metrics
	}
}

// WithDefaultEngine seeds the registry with a default engine.
func WithDefaultEngine(engine Engine) Option {
	return func(r *Router) {
		r.registry.SetDefault(engine)
	}
}

func New(opts ...Option) *Router {
	registry := NewRegistry()
	catalog := NewCatalog()
	r := &Router{
		registry: registry,
		catalog:  catalog,
		resolver: NewResolver(registry, catalog),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterEngine binds name to engine, replacing any earlier binding. A
// nil engine removes the name. Tables already in the catalog keep the
// engine they were created on.
func (r *Router) RegisterEngine(name string, engine Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registry.Register(name, engine)
	if engine == nil {
		r.logger.Debug().Str("engine", name).Msg("engine unregistered")
		return
	}
	r.logger.Debug().Str("engine", name).Msg("engine registered")
}

// AttachEngine registers engine under name. With adopt set, the tables
// the engine already holds are bound to it as well. If any of them
// belongs to another engine, nothing changes: name keeps its previous
// engine and no table is bound. It returns the number of tables bound.
func (r *Router) AttachEngine(ctx context.Context, name string, engine Engine, adopt bool) (int, error) {
	if engine == nil {
		return 0, unknownEngine(name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var tables []string
	if adopt {
		var err error
		if tables, err = r.tablesOf(ctx, name, engine); err != nil {
			return 0, err
		}
		if err := r.checkAll(name, engine, tables); err != nil {
			return 0, err
		}
	}

	r.registry.Register(name, engine)
	for _, table := range tables {
		_ = r.catalog.Bind(table, engine)
	}
	r.logger.Debug().Str("engine", name).Int("tables", len(tables)).Msg("engine attached")
	return len(tables), nil
}

// SetDefaultEngine replaces the default engine.
func (r *Router) SetDefaultEngine(engine Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registry.SetDefault(engine)
	r.logger.Debug().Str("engine", r.registry.NameOf(engine)).Msg("default engine set")
}

// Engine returns the engine registered under name.
func (r *Router) Engine(name string) (Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.ResolveNamed(name)
}

// Engines returns the registered engine names, sorted.
func (r *Router) Engines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.Names()
}

// Tables returns the names of the tables in the catalog, sorted.
func (r *Router) Tables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.catalog.Tables()
}

// Owner returns the registry label of the engine owning table.
func (r *Router) Owner(table string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	engine, ok := r.catalog.OwnerOf(table)
	if !ok {
		return "", false
	}
	return r.registry.NameOf(engine), true
}

// AdoptTables binds every table the named engine already holds, so tables
// created before this Router existed stay on their engine. It returns the
// number of tables bound.
func (r *Router) AdoptTables(ctx context.Context, name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	engine, ok := r.registry.ResolveNamed(name)
	if !ok {
		return 0, unknownEngine(name)
	}

	tables, err := r.tablesOf(ctx, name, engine)
	if err != nil {
		return 0, err
	}
	if err := r.checkAll(name, engine, tables); err != nil {
		return 0, err
	}
	for _, table := range tables {
		_ = r.catalog.Bind(table, engine)
	}
	r.logger.Info().Str("engine", name).Int("tables", len(tables)).Msg("tables adopted")
	return len(tables), nil
}

// tablesOf asks engine for the tables it holds.
func (r *Router) tablesOf(ctx context.Context, name string, engine Engine) ([]string, error) {
	statement := sql.ShowTablesStatement{Text: "SHOW TABLES"}
	result, err := engine.Execute(ctx, statement)
	if err != nil {
		return nil, newQueryError(KindExecution, "", err).WithEngine(name)
	}
	payload, err := Build(statement, result)
	if err != nil {
		return nil, asQueryError(err, KindMalformedResult).WithEngine(name)
	}
	return payload.(ShowTables).Tables, nil
}

// checkAll fails if any of tables is bound to an engine other than engine.
func (r *Router) checkAll(name string, engine Engine, tables []string) error {
	for _, table := range tables {
		if err := r.catalog.Check(table, engine); err != nil {
			owner, _ := r.catalog.OwnerOf(table)
			return engineConflict(table, r.registry.NameOf(owner)).WithEngine(name)
		}
	}
	return nil
}

// Query runs every statement in text in order and returns one payload per
// statement. The first failure aborts the batch: no payloads are returned,
// and statements that already ran stay applied.
func (r *Router) Query(ctx context.Context, text string) ([]Payload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payloads, err := r.query(ctx, text)
	r.record(err)
	if err != nil {
		return nil, err
	}
	return payloads, nil
}

func (r *Router) query(ctx context.Context, text string) ([]Payload, error) {
	if r.registry.Empty() {
		return nil, engineNotLoaded("no engine is registered")
	}

	texts, err := sql.Split(text)
	if err != nil {
		return nil, newQueryError(KindSyntax, "", err)
	}

	logger := r.logger.With().Str("batch", uuid.NewString()).Logger()
	logger.Debug().Int("statements", len(texts)).Msg("batch started")

	payloads := make([]Payload, 0, len(texts))
	for i, statementText := range texts {
		if err := ctx.Err(); err != nil {
			return nil, newQueryError(KindExecution, "", err).WithStatement(i+1, statementText)
		}

		payload, err := r.run(ctx, logger, statementText)
		if err != nil {
			queryErr := asQueryError(err, KindExecution).WithStatement(i+1, statementText)
			logger.Warn().
				Int("position", i+1).
				Str("kind", string(queryErr.Kind)).
				Str("engine", queryErr.Engine).
				Err(queryErr).
				Msg("statement failed")
			return nil, queryErr
		}
		payloads = append(payloads, payload)
	}

	logger.Debug().Int("statements", len(payloads)).Msg("batch finished")
	return payloads, nil
}

// run handles one statement: classify, resolve, check, execute, build and
// finally update the catalog.
func (r *Router) run(ctx context.Context, logger zerolog.Logger, text string) (Payload, error) {
	statement, err := sql.Parse(text)
	if err != nil {
		return nil, newQueryError(KindSyntax, "", err)
	}

	engine, err := r.resolver.Resolve(statement)
	if err != nil {
		return nil, err
	}
	name := r.registry.NameOf(engine)

	if table, ok := claimedTable(statement); ok {
		if err := r.catalog.Check(table, engine); err != nil {
			owner, _ := r.catalog.OwnerOf(table)
			return nil, engineConflict(table, r.registry.NameOf(owner)).WithEngine(name)
		}
	}

	start := time.Now()
	result, err := engine.Execute(ctx, statement)
	elapsed := time.Since(start)
	if err != nil {
		queryErr := newQueryError(KindExecution, "", err).WithEngine(name)
		if tables := statement.Tables(); len(tables) > 0 {
			queryErr.WithTable(tables[0])
		}
		return nil, queryErr
	}

	payload, err := Build(statement, result)
	if err != nil {
		return nil, asQueryError(err, KindMalformedResult).WithEngine(name)
	}

	if err := r.apply(statement, engine); err != nil {
		return nil, err
	}

	r.metrics.RecordStatement(name, statement.Type().String(), elapsed)
	event := logger.Debug().
		Str("kind", statement.Type().String()).
		Str("engine", name).
		Dur("elapsed", elapsed)
	if commit, ok := result.(*db.CommitResult); ok {
		event = event.Str("changes", commit.Summary())
	}
	event.Msg("statement executed")
	return payload, nil
}

// claimedTable returns the table name a statement is about to bind.
func claimedTable(statement sql.Statement) (string, bool) {
	switch s := statement.(type) {
	case sql.CreateTableStatement:
		return s.Table, true
	case sql.AlterTableStatement:
		if s.Action == sql.AlterRenameTable {
			return s.NewName, true
		}
	}
	return "", false
}

// apply records the catalog change of a statement that succeeded.
func (r *Router) apply(statement sql.Statement, engine Engine) error {
	switch s := statement.(type) {
	case sql.CreateTableStatement:
		return r.bind(s.Table, engine)
	case sql.DropTableStatement:
		r.catalog.Unbind(s.Table)
	case sql.AlterTableStatement:
		if s.Action == sql.AlterRenameTable {
			r.catalog.Unbind(s.Table)
			return r.bind(s.NewName, engine)
		}
	}
	return nil
}

func (r *Router) bind(table string, engine Engine) error {
	if err := r.catalog.Bind(table, engine); err != nil {
		owner, _ := r.catalog.OwnerOf(table)
		return engineConflict(table, r.registry.NameOf(owner)).WithEngine(r.registry.NameOf(engine))
	}
	return nil
}

func (r *Router) record(err error) {
	if err == nil {
		r.metrics.RecordBatch("")
		return
	}
	kind, ok := KindOf(err)
	if !ok {
		kind = KindExecution
	}
	r.metrics.RecordBatch(string(kind))
}
