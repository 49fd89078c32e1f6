package event

import (
	"log/slog"
	"sync"
)

// Listener handles data fired with an event.
type Listener func(data any)

// Handle identifies one registered (listener, scope) pair.
type Handle struct {
	event string
	id    uint64
}

// Event returns the event name the handle was registered for.
func (h Handle) Event() string { return h.event }

type registration struct {
	id       uint64
	scope    any
	listener Listener
}

// Dispatcher is a synchronous publish/subscribe bus keyed by event name.
// Listeners run on the goroutine calling Fire, in registration order.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]registration
	nextID    uint64
	logger    *slog.Logger
	debug     bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger used for misuse warnings.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithDebug enables warnings that are only useful during development.
func WithDebug(debug bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.debug = debug
	}
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		listeners: make(map[string][]registration),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Listen registers listener for event. The scope identifies the owner of
// the listener and must be comparable; UnlistenScope removes every listener
// registered with it.
func (d *Dispatcher) Listen(event string, scope any, listener Listener) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	d.listeners[event] = append(d.listeners[event], registration{
		id:       d.nextID,
		scope:    scope,
		listener: listener,
	})
	return Handle{event: event, id: d.nextID}
}

// Unlisten removes the listener identified by h. Removing a listener that is
// not registered only logs a warning in debug mode.
func (d *Dispatcher) Unlisten(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	regs := d.listeners[h.event]
	for i, reg := range regs {
		if reg.id == h.id {
			d.listeners[h.event] = append(regs[:i:i], regs[i+1:]...)
			if len(d.listeners[h.event]) == 0 {
				delete(d.listeners, h.event)
			}
			return
		}
	}

	if d.debug {
		d.logger.Warn("dispatcher: unlisten of unregistered listener", "event", h.event)
	}
}

// UnlistenScope removes every listener of event registered with scope.
func (d *Dispatcher) UnlistenScope(event string, scope any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	regs := d.listeners[event]
	kept := regs[:0:0]
	for _, reg := range regs {
		if reg.scope != scope {
			kept = append(kept, reg)
		}
	}

	if len(kept) == len(regs) {
		if d.debug {
			d.logger.Warn("dispatcher: unlisten of unregistered scope", "event", event)
		}
		return
	}
	if len(kept) == 0 {
		delete(d.listeners, event)
		return
	}
	d.listeners[event] = kept
}

// Fire calls every listener of event with data. Firing an event nobody
// listens to logs a warning unless internal is set; framework events are
// fired as internal.
func (d *Dispatcher) Fire(event string, data any, internal bool) {
	d.mu.RLock()
	regs := append([]registration(nil), d.listeners[event]...)
	d.mu.RUnlock()

	if len(regs) == 0 {
		if !internal {
			d.logger.Warn("dispatcher: event has no listeners", "event", event)
		}
		return
	}

	for _, reg := range regs {
		reg.listener(data)
	}
}

// ListenerCount returns the number of listeners registered for event.
func (d *Dispatcher) ListenerCount(event string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[event])
}

// Clear removes all listeners.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	d.listeners = make(map[string][]registration)
	d.mu.Unlock()
}
