package hook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Registry manages registered hooks and dispatches notifications.
// It uses type-cached discovery so emission never walks hooks that don't
// implement the channel being fired.
//
// Dispatch is synchronous and in registration order: listeners run inline
// on the goroutine that emits, which for adapter notifications is the
// adapter's single dispatch goroutine. There is no buffering and no
// replay — a listener registered after an event fired does not observe it.
type Registry struct {
	mu     sync.RWMutex
	hooks  []Hook
	logger *slog.Logger

	// Type-cached hook lists
	onInit                []OnInit
	onShutdown            []OnShutdown
	onInitResult          []OnInitResult
	onPurchaseResult      []OnPurchaseResult
	onRestoreRequested    []OnRestoreRequested
	onTransactionRecorded []OnTransactionRecorded
}

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a hook to the registry and caches its interfaces.
func (r *Registry) Register(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.hooks {
		if existing.Name() == h.Name() {
			return fmt.Errorf("hook: duplicate registration: %s", h.Name())
		}
	}

	r.hooks = append(r.hooks, h)

	if v, ok := h.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := h.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := h.(OnInitResult); ok {
		r.onInitResult = append(r.onInitResult, v)
	}
	if v, ok := h.(OnPurchaseResult); ok {
		r.onPurchaseResult = append(r.onPurchaseResult, v)
	}
	if v, ok := h.(OnRestoreRequested); ok {
		r.onRestoreRequested = append(r.onRestoreRequested, v)
	}
	if v, ok := h.(OnTransactionRecorded); ok {
		r.onTransactionRecorded = append(r.onTransactionRecorded, v)
	}

	r.logger.Debug("hook registered", "name", h.Name())

	return nil
}

// Get returns a hook by name, or nil.
func (r *Registry) Get(name string) Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.hooks {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

// List returns all registered hooks.
func (r *Registry) List() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Hook, len(r.hooks))
	copy(result, r.hooks)
	return result
}

// Count returns the number of registered hooks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all hooks that implement it.
func (r *Registry) EmitInit(ctx context.Context, adapter interface{}) {
	r.mu.RLock()
	hooks := r.onInit
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := h.OnInit(ctx, adapter); err != nil {
			r.logger.Warn("hook OnInit failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all hooks that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onShutdown
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := h.OnShutdown(ctx); err != nil {
			r.logger.Warn("hook OnShutdown failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitInitResult fires the initialization-result channel.
func (r *Registry) EmitInitResult(ctx context.Context, result interface{}) {
	r.mu.RLock()
	hooks := r.onInitResult
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := h.OnInitResult(ctx, result); err != nil {
			r.logger.Warn("hook OnInitResult failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitPurchaseResult fires the purchase-result channel.
func (r *Registry) EmitPurchaseResult(ctx context.Context, result interface{}) {
	r.mu.RLock()
	hooks := r.onPurchaseResult
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := h.OnPurchaseResult(ctx, result); err != nil {
			r.logger.Warn("hook OnPurchaseResult failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitRestoreRequested emits a restoration sweep notification.
func (r *Registry) EmitRestoreRequested(ctx context.Context, store string) {
	r.mu.RLock()
	hooks := r.onRestoreRequested
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := h.OnRestoreRequested(ctx, store); err != nil {
			r.logger.Warn("hook OnRestoreRequested failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitTransactionRecorded emits a journal write notification.
func (r *Registry) EmitTransactionRecorded(ctx context.Context, entry interface{}) {
	r.mu.RLock()
	hooks := r.onTransactionRecorded
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := h.OnTransactionRecorded(ctx, entry); err != nil {
			r.logger.Warn("hook OnTransactionRecorded failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}
