package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/envelope/internal/planner"
)

// Options consumed by the registry.
const (
	// OptionPlanner names the strategy to resolve.
	OptionPlanner = "planner"

	// OptionCached reuses a single resolved instance across Resolve calls
	// when the registry has a Cache.
	OptionCached = "planner.cached"
)

// Factory constructs a strategy from the shared configuration.
type Factory func(cfg planner.Config, opts ...planner.Option) (planner.Planner, error)

// Registry maps strategy names to factories.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	cache     *Cache
	opts      []planner.Option
}

// Option configures a Registry.
type Option func(*Registry)

// WithCache enables single-instance reuse for configurations that set
// planner.cached=true.
func WithCache(c *Cache) Option {
	return func(r *Registry) {
		r.cache = c
	}
}

// WithPlannerOptions passes collaborators (clock, key generator, logger)
// to every strategy the registry constructs.
func WithPlannerOptions(opts ...planner.Option) Option {
	return func(r *Registry) {
		r.opts = append(r.opts, opts...)
	}
}

// New creates a Registry with the built-in strategies registered.
func New(opts ...Option) *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	for _, opt := range opts {
		opt(r)
	}

	r.factories[planner.NameInsertOnly] = func(cfg planner.Config, opts ...planner.Option) (planner.Planner, error) {
		return planner.NewInsertOnlyPlanner(cfg, opts...)
	}
	r.factories[planner.NameUpsert] = func(cfg planner.Config, opts ...planner.Option) (planner.Planner, error) {
		return planner.NewUpsertPlanner(cfg, opts...)
	}
	r.factories[planner.NameEventTimeHistory] = func(cfg planner.Config, opts ...planner.Option) (planner.Planner, error) {
		return planner.NewEventTimeHistoryPlanner(cfg, opts...)
	}
	return r
}

// Register adds an external strategy. Names are unique; registering a name
// twice, including a built-in one, is a DUPLICATE_STRATEGY error.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" || f == nil {
		return &planner.ConfigurationError{
			Code:     planner.ErrCodeInvalidOption,
			Strategy: name,
			Message:  "strategy registration needs a name and a factory",
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return &planner.ConfigurationError{
			Code:     planner.ErrCodeDuplicateStrategy,
			Strategy: name,
			Message:  "strategy already registered",
		}
	}
	r.factories[name] = f
	return nil
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Cache returns the registry's cache, or nil when caching is not enabled.
func (r *Registry) Cache() *Cache {
	return r.cache
}

// Resolve constructs the strategy named by cfg["planner"]. When
// planner.cached is true and the registry has a Cache, the first resolved
// instance is reused by every later call.
func (r *Registry) Resolve(cfg planner.Config) (planner.Planner, error) {
	name := cfg.String(OptionPlanner, "")
	if name == "" {
		return nil, &planner.ConfigurationError{
			Code:    planner.ErrCodeInvalidOption,
			Option:  OptionPlanner,
			Message: "no strategy configured",
		}
	}

	cached, err := cfg.Bool(OptionCached, false)
	if err != nil {
		return nil, err
	}
	if cached && r.cache != nil {
		return r.cache.Get(name, func() (planner.Planner, error) {
			return r.Build(name, cfg)
		})
	}
	return r.Build(name, cfg)
}

// Build constructs a fresh instance of the named strategy, bypassing the
// cache. Every failure is a ConfigurationError.
func (r *Registry) Build(name string, cfg planner.Config) (p planner.Planner, err error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &planner.ConfigurationError{
			Code:     planner.ErrCodeUnknownStrategy,
			Strategy: name,
			Message:  fmt.Sprintf("no strategy registered; known: %v", r.Names()),
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			p = nil
			err = &planner.ConfigurationError{
				Code:     planner.ErrCodeConstructionFailed,
				Strategy: name,
				Message:  fmt.Sprintf("constructor panicked: %v", rec),
			}
		}
	}()

	p, err = f(cfg, r.opts...)
	if err != nil {
		var ce *planner.ConfigurationError
		if errors.As(err, &ce) {
			if ce.Strategy == "" {
				ce.Strategy = name
			}
			return nil, ce
		}
		return nil, &planner.ConfigurationError{
			Code:     planner.ErrCodeConstructionFailed,
			Strategy: name,
			Message:  "constructor failed",
			Err:      err,
		}
	}
	if p == nil {
		return nil, &planner.ConfigurationError{
			Code:     planner.ErrCodeConstructionFailed,
			Strategy: name,
			Message:  "constructor returned no planner",
		}
	}
	if err := checkEmitted(name, p); err != nil {
		return nil, err
	}
	return p, nil
}

// checkEmitted rejects strategies whose declared operation types a writer
// could not honour.
func checkEmitted(name string, p planner.Planner) error {
	ops := p.EmittedOperationTypes()
	if len(ops) == 0 {
		return &planner.ConfigurationError{
			Code:     planner.ErrCodeConstructionFailed,
			Strategy: name,
			Message:  "strategy declares no operation types",
		}
	}
	for op := range ops {
		if !op.Valid() {
			return &planner.ConfigurationError{
				Code:     planner.ErrCodeConstructionFailed,
				Strategy: name,
				Message:  fmt.Sprintf("strategy declares unknown operation type %q", op),
			}
		}
	}
	return nil
}
