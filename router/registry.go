package router

import "sort"

// DefaultName labels a default engine that was never registered by name.
const DefaultName = "default"

// Registry holds named engines and an optional default. A handle may be
// both named and the default. Registry is not safe for concurrent use on
// its own; Router serializes access to it.
type Registry struct {
	named         map[string]Engine
	defaultEngine Engine
}

func NewRegistry() *Registry {
	return &Registry{named: make(map[string]Engine)}
}

// Register binds name to engine, replacing any previous binding. A nil
// engine removes the binding.
func (r *Registry) Register(name string, engine Engine) {
	if engine == nil {
		delete(r.named, name)
		return
	}
	r.named[name] = engine
}

// SetDefault replaces the default engine. A nil engine clears it.
func (r *Registry) SetDefault(engine Engine) {
	r.defaultEngine = engine
}

func (r *Registry) ResolveNamed(name string) (Engine, bool) {
	engine, ok := r.named[name]
	return engine, ok
}

func (r *Registry) ResolveDefault() (Engine, bool) {
	return r.defaultEngine, r.defaultEngine != nil
}

// Names returns the registered names in lexicographic order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.named))
	for name := range r.named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NameOf returns a label for engine in logs and errors: its first
// registered name in lexicographic order, DefaultName for an unnamed
// default, or "" for a handle the registry does not know.
func (r *Registry) NameOf(engine Engine) string {
	for _, name := range r.Names() {
		if r.named[name] == engine {
			return name
		}
	}
	if engine != nil && engine == r.defaultEngine {
		return DefaultName
	}
	return ""
}

// Empty reports whether no engine can ever be resolved.
func (r *Registry) Empty() bool {
	return len(r.named) == 0 && r.defaultEngine == nil
}
