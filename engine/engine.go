// Package engine hosts committed workflows behind a single run entry point.
//
// The engine initializes from configuration via New: it opens the history
// store, loads declarative definitions against its Catalog, and registers
// the resulting workflows. Programmatic workflows are added with Register.
//
//	eng, err := engine.New(cfg)
//	result, err := eng.Run(ctx, "conditional-content-workflow", input)
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tailored-agentic-units/flow/history"
	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
)

// Option configures an Engine after config-driven initialization.
type Option func(*Engine)

// WithCatalog replaces the engine's empty catalog. Definitions listed in
// the config are built against it.
func WithCatalog(c *Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithHistoryStore overrides the config-created history store.
func WithHistoryStore(s history.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithObserver overrides the observer resolved from the workflow config.
func WithObserver(o observability.Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the logger used for history failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine is a registry of committed workflows.
type Engine struct {
	cfg      Config
	catalog  *Catalog
	store    history.Store
	recorder *history.Recorder
	observer observability.Observer
	logger   *slog.Logger

	mu        sync.RWMutex
	workflows map[string]*workflows.Workflow
}

// New creates an Engine from configuration and loads its definitions.
func New(cfg *Config, opts ...Option) (eng *Engine, err error) {
	store, err := history.NewStore(&cfg.History)
	if err != nil {
		return nil, fmt.Errorf("failed to create history store: %w", err)
	}

	e := &Engine{
		cfg:       *cfg,
		catalog:   NewCatalog(),
		store:     store,
		logger:    slog.Default(),
		workflows: make(map[string]*workflows.Workflow),
	}

	for _, opt := range opts {
		opt(e)
	}
	if store != nil && e.store != store {
		store.Close()
	}

	defer func() {
		if err != nil && e.store != nil {
			e.store.Close()
		}
	}()

	if e.observer == nil {
		observer, err := observability.GetObserver(cfg.Workflow.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		e.observer = observer
	}

	if e.store != nil {
		e.recorder = history.NewRecorder(e.store, e.logger)
	}

	for _, path := range cfg.Definitions {
		def, err := LoadDefinition(path)
		if err != nil {
			return nil, err
		}
		if err := e.RegisterDefinition(def); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", path, err)
		}
	}

	return e, nil
}

// Catalog returns the catalog definitions are built against.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// History returns the run history store, or nil when history is disabled.
func (e *Engine) History() history.Store {
	return e.store
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// WorkflowOptions returns the options that give a workflow the engine's
// configuration and observer.
func (e *Engine) WorkflowOptions() []workflows.Option {
	return []workflows.Option{
		workflows.WithConfig(e.cfg.Workflow),
		workflows.WithObserver(e.observer),
	}
}

// Register commits wf if needed and adds it under its id.
func (e *Engine) Register(wf *workflows.Workflow) error {
	if err := wf.Commit(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.workflows[wf.ID()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateWorkflow, wf.ID())
	}
	e.workflows[wf.ID()] = wf

	e.observer.OnEvent(context.Background(), observability.Event{
		Type:      EventWorkflowRegistered,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "engine.Register",
		Data: map[string]any{
			observability.AttrWorkflowID: wf.ID(),
			"stages":                     len(wf.Stages()),
			"warnings":                   len(wf.Warnings()),
		},
	})
	return nil
}

// RegisterDefinition builds def against the catalog with the engine's
// workflow options and registers the result.
func (e *Engine) RegisterDefinition(def *Definition) error {
	wf, err := Build(def, e.catalog, e.WorkflowOptions()...)
	if err != nil {
		return err
	}
	return e.Register(wf)
}

// Workflow returns the registered workflow with id.
func (e *Engine) Workflow(id string) (*workflows.Workflow, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	wf, ok := e.workflows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrWorkflowNotFound, id)
	}
	return wf, nil
}

// Workflows returns the registered workflow ids, sorted.
func (e *Engine) Workflows() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Sorted(maps.Keys(e.workflows))
}

// Run executes the workflow registered under id. When history is enabled
// the run is recorded whether it succeeds or fails.
func (e *Engine) Run(ctx context.Context, id string, input any, opts ...workflows.RunOption) (workflows.Result, error) {
	wf, err := e.Workflow(id)
	if err != nil {
		e.observer.OnEvent(ctx, observability.Event{
			Type:      EventRunRejected,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    "engine.Run",
			Data: map[string]any{
				observability.AttrWorkflowID: id,
				"error":                      err.Error(),
			},
		})
		return workflows.Result{}, err
	}

	if e.recorder != nil {
		opts = append(opts, workflows.WithRunObserver(e.recorder))
	}
	return wf.Run(ctx, input, opts...)
}

// Close releases the history store.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Close(); err != nil {
		return fmt.Errorf("failed to close history store: %w", err)
	}
	return nil
}
