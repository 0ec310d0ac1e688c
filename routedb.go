package RouteDB

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nickyhof/RouteDB/config"
	"github.com/nickyhof/RouteDB/router"
	"github.com/nickyhof/RouteDB/telemetry"
)

// Instance is an opened set of engines behind one Router.
type Instance struct {
	router  *router.Router
	logger  zerolog.Logger
	mu      sync.Mutex
	engines map[string]router.Engine
	// retired holds engines replaced by LoadEngine. Tables created on
	// them stay routed there until Close.
	retired []router.Engine
}

type Option func(*options)

type options struct {
	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// Open builds every configured engine, registers it under its name and
// makes cfg.Default the default engine. Engines with adopt set have their
// existing tables bound to them. A nil cfg means config.Default().
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Instance, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	instance := &Instance{
		router:  router.New(router.WithLogger(o.logger), router.WithMetrics(o.metrics)),
		logger:  o.logger,
		engines: make(map[string]router.Engine),
	}

	for _, engineCfg := range cfg.Engines {
		if err := instance.LoadEngine(ctx, engineCfg); err != nil {
			instance.Close()
			return nil, err
		}
	}
	if cfg.Default != "" {
		if err := instance.SetDefaultEngine(cfg.Default); err != nil {
			instance.Close()
			return nil, err
		}
	}
	return instance, nil
}

// LoadEngine builds one more engine and registers it, replacing an
// engine of the same name for tables created from now on. If the engine
// cannot be attached, it is closed and the previous engine of that name
// stays registered.
func (instance *Instance) LoadEngine(ctx context.Context, cfg config.EngineConfig) error {
	factory, ok := lookupFactory(cfg.Kind)
	if !ok {
		return fmt.Errorf("unknown engine kind %q (have %v)", cfg.Kind, Kinds())
	}

	engine, err := factory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open engine %s: %w", cfg.Name, err)
	}

	adopted, err := instance.router.AttachEngine(ctx, cfg.Name, engine, cfg.Adopt)
	if err != nil {
		if closeErr := closeEngine(engine); closeErr != nil {
			instance.logger.Warn().Err(closeErr).Str("engine", cfg.Name).Msg("failed to close rejected engine")
		}
		return fmt.Errorf("failed to attach engine %s: %w", cfg.Name, err)
	}

	instance.mu.Lock()
	if previous, ok := instance.engines[cfg.Name]; ok && previous != engine {
		instance.retired = append(instance.retired, previous)
	}
	instance.engines[cfg.Name] = engine
	instance.mu.Unlock()

	instance.logger.Info().
		Str("engine", cfg.Name).
		Str("kind", cfg.Kind).
		Int("adopted", adopted).
		Msg("engine loaded")
	return nil
}

// SetDefaultEngine makes the named engine the default. Tables keep the
// engine they were created on.
func (instance *Instance) SetDefaultEngine(name string) error {
	engine, ok := instance.router.Engine(name)
	if !ok {
		return &router.QueryError{
			Kind:    router.KindUnknownEngine,
			Engine:  name,
			Message: fmt.Sprintf("engine %q is not registered", name),
		}
	}
	instance.router.SetDefaultEngine(engine)
	return nil
}

// Query runs a batch of statements; see router.Router.Query.
func (instance *Instance) Query(ctx context.Context, text string) ([]router.Payload, error) {
	return instance.router.Query(ctx, text)
}

func (instance *Instance) Router() *router.Router {
	return instance.router
}

// Close releases engines that hold resources, such as database pools.
func (instance *Instance) Close() error {
	instance.mu.Lock()
	defer instance.mu.Unlock()

	var errs []error
	for name, engine := range instance.engines {
		if err := closeEngine(engine); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	for _, engine := range instance.retired {
		if err := closeEngine(engine); err != nil {
			errs = append(errs, fmt.Errorf("close replaced engine: %w", err))
		}
	}
	instance.engines = make(map[string]router.Engine)
	instance.retired = nil
	return errors.Join(errs...)
}

func closeEngine(engine router.Engine) error {
	if closer, ok := engine.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
