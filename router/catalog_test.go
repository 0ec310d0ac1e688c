package router

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/nickyhof/RouteDB/db"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	assert.True(t, registry.Empty())

	a, b := newMemoryEngine(), newMemoryEngine()
	registry.Register("b", b)
	registry.Register("a", a)
	assert.False(t, registry.Empty())
	assert.Equal(t, []string{"a", "b"}, registry.Names())

	_, ok := registry.ResolveDefault()
	assert.False(t, ok)

	registry.Register("a", b)
	engine, ok := registry.ResolveNamed("a")
	require.True(t, ok)
	assert.Same(t, b, engine)
	assert.Equal(t, "a", registry.NameOf(b))
	assert.Equal(t, "", registry.NameOf(a))

	unnamed := newMemoryEngine()
	registry.SetDefault(unnamed)
	assert.Equal(t, DefaultName, registry.NameOf(unnamed))
	engine, ok = registry.ResolveDefault()
	require.True(t, ok)
	assert.Same(t, unnamed, engine)

	registry.SetDefault(b)
	assert.Equal(t, "a", registry.NameOf(b))
}

func TestRegistryDefaultOnly(t *testing.T) {
	registry := NewRegistry()
	registry.SetDefault(newMemoryEngine())
	assert.False(t, registry.Empty())
	assert.Empty(t, registry.Names())
}

func TestCatalog(t *testing.T) {
	catalog := NewCatalog()
	a, b := newMemoryEngine(), newMemoryEngine()

	require.NoError(t, catalog.Bind("Foo", a))
	require.NoError(t, catalog.Bind("Foo", a), "rebinding to the same engine is idempotent")
	assert.ErrorIs(t, catalog.Bind("Foo", b), ErrEngineConflict)
	assert.ErrorIs(t, catalog.Check("Foo", b), ErrEngineConflict)
	assert.NoError(t, catalog.Check("Bar", b))

	owner, ok := catalog.OwnerOf("Foo")
	require.True(t, ok)
	assert.Same(t, a, owner)

	_, ok = catalog.OwnerOf("foo")
	assert.False(t, ok, "names are case-sensitive")

	catalog.Unbind("Foo")
	catalog.Unbind("Foo")
	require.NoError(t, catalog.Bind("Foo", b))
	require.NoError(t, catalog.Bind("Alpha", a))
	assert.Equal(t, []string{"Alpha", "Foo"}, catalog.Tables())
	assert.Equal(t, 2, catalog.Len())
}

func TestResolver(t *testing.T) {
	registry, catalog := NewRegistry(), NewCatalog()
	resolver := NewResolver(registry, catalog)
	named, fallback := newMemoryEngine(), newMemoryEngine()
	registry.Register("named", named)

	_, err := resolver.Resolve(mustParse(t, "SELECT * FROM Foo"))
	assert.ErrorIs(t, err, ErrEngineNotLoaded)

	registry.SetDefault(fallback)
	engine, err := resolver.Resolve(mustParse(t, "SELECT * FROM Foo"))
	require.NoError(t, err)
	assert.Same(t, fallback, engine)

	require.NoError(t, catalog.Bind("Foo", named))
	engine, err = resolver.Resolve(mustParse(t, "SELECT * FROM Foo"))
	require.NoError(t, err)
	assert.Same(t, named, engine)

	// The directive wins even over an existing binding; the router's
	// conflict check then rejects the mismatch.
	registry.Register("other", fallback)
	engine, err = resolver.Resolve(mustParse(t, "CREATE TABLE Foo ENGINE = other"))
	require.NoError(t, err)
	assert.Same(t, fallback, engine)

	_, err = resolver.Resolve(mustParse(t, "CREATE TABLE Foo ENGINE = missing"))
	assert.ErrorIs(t, err, ErrUnknownEngine)

	engine, err = resolver.Resolve(mustParse(t, "SHOW TABLES"))
	require.NoError(t, err)
	assert.Same(t, fallback, engine)
}

// Switching the default engine any number of times never moves a table
// away from the engine that created it.
func TestStickinessProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		engines := []*db.Engine{newMemoryEngine(), newMemoryEngine(), newMemoryEngine()}
		names := []string{"localStorage", "sessionStorage", "memory"}

		r := New(WithDefaultEngine(engines[0]))
		for i, engine := range engines {
			r.RegisterEngine(names[i], engine)
		}

		home := rapid.IntRange(0, len(engines)-1).Draw(t, "home")
		if _, err := r.Query(ctx, fmt.Sprintf("CREATE TABLE T (n INTEGER) ENGINE = %s", names[home])); err != nil {
			t.Fatalf("create: %v", err)
		}

		inserted := 0
		steps := rapid.SliceOfN(rapid.IntRange(-1, len(engines)-1), 1, 20).Draw(t, "steps")
		for _, step := range steps {
			if step < 0 {
				if _, err := r.Query(ctx, fmt.Sprintf("INSERT INTO T VALUES (%d)", inserted)); err != nil {
					t.Fatalf("insert: %v", err)
				}
				inserted++
				continue
			}
			r.SetDefaultEngine(engines[step])
		}

		owner, ok := r.Owner("T")
		if !ok || owner != names[home] {
			t.Fatalf("T is owned by %q, want %q", owner, names[home])
		}
		result, err := engines[home].Run(ctx, "SELECT * FROM T")
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if got := len(result.(*db.QueryResult).Rows); got != inserted {
			t.Fatalf("home engine holds %d rows, want %d", got, inserted)
		}
	})
}
