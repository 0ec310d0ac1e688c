package router

import (
	"fmt"
	"sort"
)

// Catalog maps each live table name to the engine that created it.
// Names are case-sensitive.
type Catalog struct {
	owners map[string]Engine
}

func NewCatalog() *Catalog {
	return &Catalog{owners: make(map[string]Engine)}
}

// Check reports the conflict Bind would return, without binding.
func (c *Catalog) Check(table string, engine Engine) error {
	if owner, ok := c.owners[table]; ok && owner != engine {
		return fmt.Errorf("%w: table %q is owned by another engine", ErrEngineConflict, table)
	}
	return nil
}

// Bind records engine as the owner of table. Binding a table to the
// engine that already owns it is a no-op.
func (c *Catalog) Bind(table string, engine Engine) error {
	if err := c.Check(table, engine); err != nil {
		return err
	}
	c.owners[table] = engine
	return nil
}

// Unbind forgets table. Unknown tables are ignored.
func (c *Catalog) Unbind(table string) {
	delete(c.owners, table)
}

func (c *Catalog) OwnerOf(table string) (Engine, bool) {
	engine, ok := c.owners[table]
	return engine, ok
}

// Tables returns the bound table names in lexicographic order.
func (c *Catalog) Tables() []string {
	tables := make([]string, 0, len(c.owners))
	for table := range c.owners {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	return tables
}

func (c *Catalog) Len() int {
	return len(c.owners)
}
