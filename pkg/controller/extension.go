package controller

import (
	"context"
	"sync"

	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/state"
)

// BaseExtension is an embeddable Extension with no-op lifecycle methods.
type BaseExtension struct {
	mu      sync.RWMutex
	params  route.Params
	states  state.Manager
	partial state.State
}

var _ Extension = (*BaseExtension)(nil)

func (e *BaseExtension) Init() error { return nil }

func (e *BaseExtension) Load(context.Context) (map[string]any, error) { return nil, nil }

// Update returns no resources.
func (e *BaseExtension) Update(context.Context, route.Params) (map[string]any, error) {
	return map[string]any{}, nil
}

func (e *BaseExtension) Activate()   {}
func (e *BaseExtension) Deactivate() {}
func (e *BaseExtension) Destroy()    {}

// AllowedStateKeys declares no keys.
func (e *BaseExtension) AllowedStateKeys() []string { return nil }

func (e *BaseExtension) SetRouteParams(params route.Params) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = params
}

func (e *BaseExtension) RouteParams() route.Params {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.params == nil {
		return route.Params{}
	}
	return e.params
}

func (e *BaseExtension) SetPageStateManager(m state.Manager) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states = m
}

// State returns the page state overlaid with the partial state.
func (e *BaseExtension) State() state.State {
	e.mu.RLock()
	m, partial := e.states, e.partial
	e.mu.RUnlock()

	var current state.State
	if m != nil {
		current = m.GetState()
	}
	return state.Merge(current, partial)
}

// SetState patches the page state through the extension's (scoped) state
// manager.
func (e *BaseExtension) SetState(patch state.State) error {
	e.mu.RLock()
	m := e.states
	e.mu.RUnlock()
	if m == nil {
		return nil
	}
	return m.SetState(patch)
}

func (e *BaseExtension) SetPartialState(s state.State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.partial = s.Clone()
}

func (e *BaseExtension) PartialState() state.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.partial == nil {
		return state.State{}
	}
	return e.partial
}

func (e *BaseExtension) ClearPartialState() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.partial = nil
}
