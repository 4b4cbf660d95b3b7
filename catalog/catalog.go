package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hookline/hookline/internal/entity"
)

// Catalog is the in-memory cached service over registered event types and
// source modules.
type Catalog struct {
	store    Store
	cacheTTL time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	types    map[string]*EventType
	modules  map[string]*SourceModule
	lastLoad time.Time
}

// Config configures the catalog service.
type Config struct {
	CacheTTL time.Duration
}

// New creates a new Catalog backed by the given store.
func New(store Store, cfg Config, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		store:    store,
		cacheTTL: cfg.CacheTTL,
		logger:   logger,
		types:    make(map[string]*EventType),
		modules:  make(map[string]*SourceModule),
	}
}

// RegisterEventType registers or updates an event type definition.
func (c *Catalog) RegisterEventType(ctx context.Context, def EventTypeDefinition) (*EventType, error) {
	et := &EventType{
		Entity:     entity.New(),
		Definition: def,
	}

	if err := c.store.RegisterEventType(ctx, et); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.types[def.Name] = et
	c.mu.Unlock()

	return et, nil
}

// RegisterSourceModule registers or updates a source module.
func (c *Catalog) RegisterSourceModule(ctx context.Context, name, description string) (*SourceModule, error) {
	sm := &SourceModule{
		Entity:      entity.New(),
		Name:        name,
		Description: description,
	}

	if err := c.store.RegisterSourceModule(ctx, sm); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.modules[name] = sm
	c.mu.Unlock()

	return sm, nil
}

// GetEventType returns an event type by name, using the cache when fresh.
func (c *Catalog) GetEventType(ctx context.Context, name string) (*EventType, error) {
	c.mu.RLock()
	if et, ok := c.types[name]; ok && !c.cacheExpired() {
		c.mu.RUnlock()
		return et, nil
	}
	c.mu.RUnlock()

	et, err := c.store.GetEventType(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.types[name] = et
	c.lastLoad = time.Now()
	c.mu.Unlock()

	return et, nil
}

// GetSourceModule returns a source module by name, using the cache when fresh.
func (c *Catalog) GetSourceModule(ctx context.Context, name string) (*SourceModule, error) {
	c.mu.RLock()
	if sm, ok := c.modules[name]; ok && !c.cacheExpired() {
		c.mu.RUnlock()
		return sm, nil
	}
	c.mu.RUnlock()

	sm, err := c.store.GetSourceModule(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.modules[name] = sm
	c.lastLoad = time.Now()
	c.mu.Unlock()

	return sm, nil
}

// ListEventTypes returns registered event types.
func (c *Catalog) ListEventTypes(ctx context.Context, opts ListOpts) ([]*EventType, error) {
	return c.store.ListEventTypes(ctx, opts)
}

// ListSourceModules returns registered source modules.
func (c *Catalog) ListSourceModules(ctx context.Context, opts ListOpts) ([]*SourceModule, error) {
	return c.store.ListSourceModules(ctx, opts)
}

// DeprecateEventType marks an event type as no longer accepting new events.
func (c *Catalog) DeprecateEventType(ctx context.Context, name string) error {
	if err := c.store.DeprecateEventType(ctx, name); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.types, name)
	c.mu.Unlock()

	return nil
}

// cacheExpired reports whether the cache has outlived its TTL.
// Caller must hold at least a read lock.
func (c *Catalog) cacheExpired() bool {
	if c.cacheTTL == 0 {
		return true
	}
	return time.Since(c.lastLoad) > c.cacheTTL
}
