package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/runkit/cache"
	apperrors "github.com/kbukum/runkit/errors"
	"github.com/kbukum/runkit/logger"
	"github.com/kbukum/runkit/observability"
	"github.com/kbukum/runkit/runnable"
)

// Catalog builds chains from a loader on first use and keeps the results.
// It is safe for concurrent use.
type Catalog struct {
	registry    *Registry
	loader      Loader
	middlewares []runnable.Middleware[any, any]
	store       cache.Store
	cacheTTL    time.Duration
	log         *logger.Logger

	mu    sync.Mutex
	built map[string]runnable.Runnable[any, any]
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithMiddleware wraps every built chain, first middleware outermost.
func WithMiddleware(mws ...runnable.Middleware[any, any]) CatalogOption {
	return func(c *Catalog) { c.middlewares = append(c.middlewares, mws...) }
}

// WithCacheStore enables result caching for chains whose definition asks
// for it. ttl applies when the definition sets none.
func WithCacheStore(store cache.Store, ttl time.Duration) CatalogOption {
	return func(c *Catalog) {
		c.store = store
		c.cacheTTL = ttl
	}
}

// WithCatalogLogger sets the logger used for build events.
func WithCatalogLogger(log *logger.Logger) CatalogOption {
	return func(c *Catalog) { c.log = log }
}

// NewCatalog creates a catalog of the chains loader can find.
func NewCatalog(registry *Registry, loader Loader, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		registry: registry,
		loader:   loader,
		log:      logger.Nop(),
		built:    make(map[string]runnable.Runnable[any, any]),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("chain")
	return c
}

// Get returns the built chain called name. Unknown names fail with a
// NOT_FOUND AppError; broken definitions with INVALID_DEFINITION.
func (c *Catalog) Get(name string) (runnable.Runnable[any, any], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.built[name]; ok {
		return r, nil
	}

	def, err := c.Definition(name)
	if err != nil {
		return nil, err
	}
	r, err := Build(def, c.registry, c.loader)
	if err != nil {
		c.log.Error("chain build failed", map[string]interface{}{
			logger.FieldChain: name,
			logger.FieldError: err.Error(),
		})
		return nil, err
	}
	if def.Cache != nil && c.store != nil {
		ttl := def.Cache.TTL
		if ttl <= 0 {
			ttl = c.cacheTTL
		}
		r = cache.WithCache[any, any](c.store, cache.Options[any]{TTL: ttl, Logger: c.log})(r)
	}
	r = runnable.Apply(r, c.middlewares...)

	c.built[name] = r
	c.log.Debug("chain built", map[string]interface{}{
		logger.FieldChain: name,
		"steps":           len(def.Steps),
	})
	return r, nil
}

// Definition loads the definition of name without building it.
func (c *Catalog) Definition(name string) (*Definition, error) {
	def, err := c.loader.Load(name)
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.NotFound("chain", name).WithCause(err)
	}
	if err != nil {
		return nil, apperrors.InvalidDefinition(name, err.Error()).WithCause(err)
	}
	return def, nil
}

// Names lists the chains the loader can find.
func (c *Catalog) Names() ([]string, error) {
	lister, ok := c.loader.(Lister)
	if !ok {
		return nil, fmt.Errorf("chain: loader %T cannot list chains", c.loader)
	}
	return lister.List()
}

// Summary describes a chain for listings.
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Steps       int    `json:"steps"`
	Error       string `json:"error,omitempty"`
}

// Summaries describes every chain, including ones that fail to load or
// validate.
func (c *Catalog) Summaries() ([]Summary, error) {
	names, err := c.Names()
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(names))
	for _, name := range names {
		s := Summary{Name: name}
		if def, err := c.Definition(name); err != nil {
			s.Error = err.Error()
		} else {
			s.Description = def.Description
			s.Steps = len(def.Steps)
			if err := Validate(def); err != nil {
				s.Error = err.Error()
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// Reset drops every built chain so the next Get rebuilds from the loader.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.built = make(map[string]runnable.Runnable[any, any])
}

// CheckHealth implements observability.HealthChecker. The catalog is down
// when it cannot list chains and degraded while any definition is broken.
func (c *Catalog) CheckHealth(context.Context) observability.Health {
	h := observability.Health{Name: "chains", Status: observability.HealthStatusUp}
	summaries, err := c.Summaries()
	if err != nil {
		h.Status = observability.HealthStatusDown
		h.Message = err.Error()
		return h
	}
	var broken []string
	for _, s := range summaries {
		if s.Error != "" {
			broken = append(broken, s.Name)
		}
	}
	h.Details = map[string]string{"chains": strconv.Itoa(len(summaries))}
	if len(broken) > 0 {
		h.Status = observability.HealthStatusDegraded
		h.Message = "broken definitions: " + strings.Join(broken, ", ")
	}
	return h
}
