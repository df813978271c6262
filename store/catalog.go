package store

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/crmkit/crm-data-apis/filter"
)

// Entity pairs the field registry of an entity with the repository holding
// its records.
type Entity struct {
	Registry   *filter.Registry
	Repository Repository
}

func (e *Entity) Name() string {
	return e.Registry.Entity()
}

// Catalog is the set of entities served by the API. Its version changes on
// every modification so that derived state, like the GraphQL schema, can be
// rebuilt.
type Catalog struct {
	mu       sync.RWMutex
	entities map[string]*Entity
	order    []string
	version  atomic.Int64
}

func NewCatalog(entities ...*Entity) (*Catalog, error) {
	c := &Catalog{entities: make(map[string]*Entity)}
	if err := c.Replace(entities...); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace swaps all the entities at once.
func (c *Catalog) Replace(entities ...*Entity) error {
	next := make(map[string]*Entity, len(entities))
	order := make([]string, 0, len(entities))
	for _, e := range entities {
		if e == nil || e.Registry == nil || e.Repository == nil {
			return fmt.Errorf("entity requires a registry and a repository")
		}
		if _, ok := next[e.Name()]; ok {
			return fmt.Errorf("duplicate entity %s", e.Name())
		}
		next[e.Name()] = e
		order = append(order, e.Name())
	}

	c.mu.Lock()
	c.entities = next
	c.order = order
	c.mu.Unlock()
	c.version.Inc()
	return nil
}

// Put adds or replaces one entity.
func (c *Catalog) Put(e *Entity) {
	c.mu.Lock()
	if _, ok := c.entities[e.Name()]; !ok {
		c.order = append(c.order, e.Name())
	}
	c.entities[e.Name()] = e
	c.mu.Unlock()
	c.version.Inc()
}

func (c *Catalog) Entity(name string) (*Entity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return e, nil
}

// Entities returns the entities in registration order.
func (c *Catalog) Entities() []*Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]*Entity, 0, len(c.order))
	for _, name := range c.order {
		result = append(result, c.entities[name])
	}
	return result
}

// FieldNames maps every entity to the names of its declared fields.
func (c *Catalog) FieldNames() map[string][]string {
	result := make(map[string][]string)
	for _, e := range c.Entities() {
		result[e.Name()] = e.Registry.Names()
	}
	return result
}

func (c *Catalog) Version() int64 {
	return c.version.Load()
}
