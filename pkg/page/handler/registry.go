// Package handler runs the hooks executed around each page transition.
package handler

import (
	"context"
	"errors"
	"sync"

	"github.com/imago-dev/imago/pkg/page"
)

// ErrNotInitialized is returned when a Registry is used before Init.
var ErrNotInitialized = errors.New("handler: registry is not initialized")

// Handler is a hook run before and after each page transition.
type Handler interface {
	Init() error

	// HandlePreManagedState runs before the current page is torn down.
	// next is the page about to be managed.
	HandlePreManagedState(ctx context.Context, current, next *page.ManagedPage, action page.Action) error

	// HandlePostManagedState runs once the new page has been rendered.
	HandlePostManagedState(ctx context.Context, current, previous *page.ManagedPage, action page.Action) error

	Destroy()
}

// Registry runs its handlers in registration order, each one completing
// before the next starts.
type Registry struct {
	mu          sync.Mutex
	handlers    []Handler
	initialized bool
}

// NewRegistry creates a registry of handlers.
func NewRegistry(handlers ...Handler) *Registry {
	return &Registry{handlers: handlers}
}

// Init initializes every handler.
func (r *Registry) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.handlers {
		if err := h.Init(); err != nil {
			return err
		}
	}
	r.initialized = true
	return nil
}

// HandlePreManagedState runs the pre-transition hooks.
func (r *Registry) HandlePreManagedState(ctx context.Context, current, next *page.ManagedPage, action page.Action) error {
	handlers, err := r.snapshot()
	if err != nil {
		return err
	}
	for _, h := range handlers {
		if err := h.HandlePreManagedState(ctx, current, next, action); err != nil {
			return err
		}
	}
	return nil
}

// HandlePostManagedState runs the post-transition hooks.
func (r *Registry) HandlePostManagedState(ctx context.Context, current, previous *page.ManagedPage, action page.Action) error {
	handlers, err := r.snapshot()
	if err != nil {
		return err
	}
	for _, h := range handlers {
		if err := h.HandlePostManagedState(ctx, current, previous, action); err != nil {
			return err
		}
	}
	return nil
}

// Destroy destroys every handler. The registry must be initialized again
// before further use.
func (r *Registry) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.handlers {
		h.Destroy()
	}
	r.initialized = false
}

func (r *Registry) snapshot() ([]Handler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return nil, ErrNotInitialized
	}
	return append([]Handler(nil), r.handlers...), nil
}
