package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/envelope/internal/config"
	"github.com/roach88/envelope/internal/ir"
	"github.com/roach88/envelope/internal/planner"
	"github.com/roach88/envelope/internal/registry"
	"github.com/roach88/envelope/internal/store"
	"github.com/roach88/envelope/internal/translate"
)

// Context is the application state shared by every batch.
//
// Build it once with NewContext and pass it by reference. Fields are not
// modified after construction except Store, which OpenStore fills.
type Context struct {
	Config      planner.Config
	App         config.Application
	Model       *ir.RecordModel
	Registry    *registry.Registry
	Translators *translate.Registry
	Store       *store.Store
	Logger      *slog.Logger

	ownsStore bool
}

type contextOptions struct {
	logger      *slog.Logger
	registry    *registry.Registry
	translators *translate.Registry
	store       *store.Store
	planner     []planner.Option
}

// ContextOption configures NewContext.
type ContextOption func(*contextOptions)

// WithLogger sets the logger for the context, the store, and the planners.
func WithLogger(l *slog.Logger) ContextOption {
	return func(o *contextOptions) {
		o.logger = l
	}
}

// WithRegistry supplies a strategy registry, for example one with external
// strategies registered. Planner options given to NewContext do not apply
// to a supplied registry.
func WithRegistry(r *registry.Registry) ContextOption {
	return func(o *contextOptions) {
		o.registry = r
	}
}

// WithTranslators supplies a translator registry.
func WithTranslators(r *translate.Registry) ContextOption {
	return func(o *contextOptions) {
		o.translators = r
	}
}

// WithStore supplies an open store. The caller keeps ownership.
func WithStore(s *store.Store) ContextOption {
	return func(o *contextOptions) {
		o.store = s
	}
}

// WithPlannerOptions passes collaborators such as a clock or key generator
// to every planner the default registry constructs.
func WithPlannerOptions(opts ...planner.Option) ContextOption {
	return func(o *contextOptions) {
		o.planner = append(o.planner, opts...)
	}
}

// NewContext validates cfg and builds the application context.
//
// The configured planner is resolved once so configuration errors surface
// here rather than on the first batch.
func NewContext(cfg planner.Config, opts ...ContextOption) (*Context, error) {
	o := contextOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	app, err := config.ApplicationSettings(cfg)
	if err != nil {
		return nil, err
	}
	model, err := config.Model(cfg)
	if err != nil {
		return nil, err
	}

	reg := o.registry
	if reg == nil {
		popts := append([]planner.Option{planner.WithLogger(o.logger)}, o.planner...)
		reg = registry.New(
			registry.WithCache(registry.NewCache()),
			registry.WithPlannerOptions(popts...),
		)
	}
	translators := o.translators
	if translators == nil {
		translators = translate.NewRegistry()
	}

	c := &Context{
		Config:      cfg.Clone(),
		App:         app,
		Model:       model,
		Registry:    reg,
		Translators: translators,
		Store:       o.store,
		Logger:      o.logger,
	}

	if _, err := c.Planner(); err != nil {
		return nil, err
	}
	return c, nil
}

// Planner resolves the configured strategy.
func (c *Context) Planner() (planner.Planner, error) {
	return c.Registry.Resolve(c.Config)
}

// Translator resolves the configured translator.
func (c *Context) Translator() (translate.Translator, error) {
	return c.Translators.Resolve(c.Config)
}

// OpenStore opens the store named by the store.* settings unless one is
// already set. A store opened here is closed by Close.
func (c *Context) OpenStore(ctx context.Context) error {
	if c.Store != nil {
		return nil
	}
	s, err := store.Open(ctx, c.App.StoreDriver, c.App.StoreDSN,
		store.WithTable(c.App.StoreTable),
		store.WithLogger(c.Logger))
	if err != nil {
		return err
	}
	c.Store = s
	c.ownsStore = true
	return nil
}

// Close releases resources the context opened itself.
func (c *Context) Close() error {
	var errs []error
	if c.ownsStore && c.Store != nil {
		errs = append(errs, c.Store.Close())
		c.Store = nil
		c.ownsStore = false
	}
	return errors.Join(errs...)
}
