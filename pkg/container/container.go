package container

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
)

// BindingState is a bootstrap phase.
type BindingState string

const (
	StateNone   BindingState = ""
	StateIMA    BindingState = "ima"
	StatePlugin BindingState = "plugin"
	StateApp    BindingState = "app"
)

func (s BindingState) rank() int {
	switch s {
	case StateIMA:
		return 1
	case StatePlugin:
		return 2
	case StateApp:
		return 3
	default:
		return 0
	}
}

type entry struct {
	class     *Class
	deps      []any
	shared    any
	hasShared bool
	referrer  string
	writeable bool
	overrides int
}

func (e *entry) setDependencies(deps []any) error {
	if !e.writeable {
		return ErrNotWriteable
	}
	if e.overrides >= 1 {
		return ErrOverriddenTwice
	}
	e.deps = deps
	e.overrides++
	return nil
}

// Container resolves keys to instances. It is safe for concurrent use.
type Container struct {
	mu      sync.Mutex
	entries map[Key]*entry
	ns      *Namespace
	state   BindingState
	plugin  string
	debug   bool
	logger  *slog.Logger
}

// Option configures a Container.
type Option func(*Container)

// WithDebug enables the checks that only run during development, such as
// interface conformance in Provide.
func WithDebug(debug bool) Option {
	return func(c *Container) {
		c.debug = debug
	}
}

// WithLogger sets the container logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// New creates a container resolving unbound names through ns. ns may be nil.
func New(ns *Namespace, opts ...Option) *Container {
	c := &Container{
		entries: make(map[Key]*entry),
		ns:      ns,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

func (c *Container) referrer() string {
	if c.state == StatePlugin && c.plugin != "" {
		return string(c.state) + ":" + c.plugin
	}
	return string(c.state)
}

// SetBindingState moves the container to the next bootstrap phase. Phases
// only move forward; entering the app phase twice is an error.
func (c *Container) SetBindingState(state BindingState, pluginName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateApp && state == StateApp {
		return fmt.Errorf("%w: already in app state", ErrBindingState)
	}
	if state.rank() == 0 || state.rank() < c.state.rank() {
		return fmt.Errorf("%w: %q -> %q", ErrBindingState, c.state, state)
	}

	c.state = state
	c.plugin = ""
	if state == StatePlugin {
		c.plugin = pluginName
	}
	return nil
}

// BindingState returns the current phase and plugin name.
func (c *Container) BindingState() (BindingState, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.plugin
}

// Bind registers alias for target, a *Class, an *Interface or another alias.
// Without deps the alias shares the instance of target; with deps it gets
// its own entry.
func (c *Container) Bind(alias string, target Key, deps ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[alias]; !exists && c.state == StatePlugin {
		return &EntryError{Key: alias, Op: "bind", Err: ErrLocked}
	}

	switch t := target.(type) {
	case *Class:
		if t == nil {
			return &EntryError{Key: alias, Op: "bind", Err: ErrInvalidKey}
		}
		classEntry, ok := c.entries[t]
		if !ok {
			classEntry = c.newEntry(t, deps)
			c.entries[t] = classEntry
		}
		if len(deps) > 0 {
			c.entries[alias] = c.newEntry(t, deps)
		} else {
			c.entries[alias] = classEntry
		}
	case string, *Interface:
		e, err := c.lookup(t, true)
		if err != nil {
			return &EntryError{Key: alias, Op: "bind", Err: err}
		}
		if len(deps) > 0 {
			c.entries[alias] = c.newEntry(e.class, deps)
		} else {
			c.entries[alias] = e
		}
	default:
		return &EntryError{Key: alias, Op: "bind", Err: ErrInvalidKey}
	}
	return nil
}

// Constant registers an immutable value. Names containing dots are reachable
// as paths into map values: after Constant("$Settings", map[string]any{
// "api": map[string]any{"url": u}}), Get("$Settings.api.url") returns u.
func (c *Container) Constant(name string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[name]; exists {
		return &EntryError{Key: name, Op: "constant", Err: ErrConstantExists}
	}
	if _, ok := c.constantPath(name); ok {
		return &EntryError{Key: name, Op: "constant", Err: ErrConstantExists}
	}
	if c.state == StatePlugin {
		return &EntryError{Key: name, Op: "constant", Err: ErrLocked}
	}

	c.entries[name] = &entry{
		shared:    value,
		hasShared: true,
		referrer:  c.referrer(),
	}
	return nil
}

// Inject registers class with deps, or overrides the dependencies of an
// already registered class. A class may be overridden only once.
func (c *Container) Inject(class *Class, deps ...any) error {
	if class == nil {
		return &EntryError{Key: class, Op: "inject", Err: ErrInvalidKey}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[class]; ok {
		if len(deps) == 0 {
			return nil
		}
		if err := e.setDependencies(deps); err != nil {
			return &EntryError{Key: class, Op: "inject", Err: err}
		}
		c.logger.Debug("container: dependencies overridden",
			"class", class.Name, "referrer", e.referrer, "by", c.referrer())
		return nil
	}
	c.entries[class] = c.newEntry(class, deps)
	return nil
}

// Provide binds class as the implementation of iface. In debug mode the
// class's declared type must implement the interface.
func (c *Container) Provide(iface *Interface, class *Class, deps ...any) error {
	if iface == nil || class == nil {
		return &EntryError{Key: iface, Op: "provide", Err: ErrInvalidKey}
	}
	if c.debug && !class.Satisfies(iface) {
		return &EntryError{
			Key: iface,
			Op:  "provide",
			Err: fmt.Errorf("%w: %s does not implement %s", ErrNotImplemented, class, iface.Type),
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The interface shares the entry of its implementation. Providing
	// another class repoints it and leaves the previous class entry alone.
	classEntry, ok := c.entries[class]
	switch {
	case !ok:
		classEntry = c.newEntry(class, deps)
		c.entries[class] = classEntry
	case len(deps) > 0:
		if err := classEntry.setDependencies(deps); err != nil {
			return &EntryError{Key: iface, Op: "provide", Err: err}
		}
	}
	c.entries[iface] = classEntry
	return nil
}

func (c *Container) newEntry(class *Class, deps []any) *entry {
	if len(deps) == 0 && class != nil {
		deps = class.Dependencies
	}
	return &entry{
		class:     class,
		deps:      deps,
		referrer:  c.referrer(),
		writeable: true,
	}
}

// Has reports whether key resolves to something.
func (c *Container) Has(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.lookup(key, false)
	return err == nil
}

// GetConstructorOf returns the class an entry builds, or nil for constants
// and unknown keys.
func (c *Container) GetConstructorOf(key Key) *Class {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.lookup(key, false)
	if err != nil {
		return nil
	}
	return e.class
}

// Clear removes every entry and resets the binding state.
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*entry)
	c.state = StateNone
	c.plugin = ""
}

// Get returns the shared instance for key, building it on first use.
func (c *Container) Get(key Key) (any, error) {
	return c.get(key, nil)
}

// Create always builds a fresh instance. Without deps the entry's
// dependencies are used.
func (c *Container) Create(key Key, deps ...any) (any, error) {
	c.mu.Lock()
	e, err := c.lookup(key, true)
	c.mu.Unlock()
	if err != nil {
		return nil, &EntryError{Key: key, Op: "create", Err: err}
	}
	if e.class == nil {
		// Constants have nothing to construct.
		return e.shared, nil
	}
	if len(deps) == 0 {
		deps = e.deps
	}
	return c.build(key, e.class, deps, nil)
}

func (c *Container) get(key Key, resolving []Key) (any, error) {
	if !validKey(key) {
		return nil, &EntryError{Key: key, Op: "get", Err: ErrInvalidKey}
	}
	for _, k := range resolving {
		if k == key {
			return nil, &EntryError{Key: key, Op: "get", Err: ErrCircular}
		}
	}

	c.mu.Lock()
	e, err := c.lookup(key, true)
	if err != nil {
		c.mu.Unlock()
		return nil, &EntryError{Key: key, Op: "get", Err: err}
	}
	if e.hasShared {
		v := e.shared
		c.mu.Unlock()
		return v, nil
	}
	class, deps := e.class, e.deps
	c.mu.Unlock()

	instance, err := c.build(key, class, deps, resolving)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e.hasShared {
		// Another goroutine finished first; keep a single shared instance.
		return e.shared, nil
	}
	e.shared, e.hasShared = instance, true
	return instance, nil
}

func (c *Container) build(key Key, class *Class, deps []any, resolving []Key) (any, error) {
	if class == nil || class.New == nil {
		return nil, &EntryError{Key: key, Op: "build", Err: ErrNotFound}
	}

	resolving = append(resolving, key)
	args := make([]any, len(deps))
	for i, dep := range deps {
		if name, ok := dep.(string); ok && strings.HasPrefix(name, "?") {
			v, err := c.get(name[1:], resolving)
			if err == nil {
				args[i] = v
			}
			continue
		}
		v, err := c.get(dep, resolving)
		if err != nil {
			return nil, &EntryError{Key: key, Op: "build", Err: err}
		}
		args[i] = v
	}

	instance, err := class.New(args)
	if err != nil {
		return nil, &EntryError{Key: key, Op: "build", Err: err}
	}
	return instance, nil
}

// lookup finds the entry for key. When register is set, entries discovered
// through the namespace or a bare class are stored. Callers hold c.mu.
func (c *Container) lookup(key Key, register bool) (*entry, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}

	if e, ok := c.entries[key]; ok {
		return e, nil
	}

	switch k := key.(type) {
	case string:
		if v, ok := c.constantPath(k); ok {
			return &entry{shared: v, hasShared: true}, nil
		}
		if class, ok := c.ns.Lookup(k); ok {
			if e, ok := c.entries[class]; ok {
				return e, nil
			}
			e := c.newEntry(class, nil)
			if register {
				c.entries[class] = e
			}
			return e, nil
		}
	case *Class:
		if k == nil {
			return nil, ErrInvalidKey
		}
		e := c.newEntry(k, nil)
		if register {
			c.entries[k] = e
		}
		return e, nil
	}
	return nil, ErrNotFound
}

func validKey(key Key) bool {
	switch key.(type) {
	case string, *Class, *Interface:
		return true
	default:
		return false
	}
}

// constantPath resolves "name.a.b" into nested maps of a constant.
func (c *Container) constantPath(name string) (any, bool) {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return nil, false
	}
	root, ok := c.entries[parts[0]]
	if !ok || root.writeable || !root.hasShared {
		return nil, false
	}

	current := root.shared
	for _, part := range parts[1:] {
		next, ok := mapValue(current, part)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func mapValue(v any, key string) (any, bool) {
	if m, ok := v.(map[string]any); ok {
		out, ok := m[key]
		return out, ok
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
	if !out.IsValid() {
		return nil, false
	}
	return out.Interface(), true
}

// Resolve returns the shared instance for key as T.
func Resolve[T any](c *Container, key Key) (T, error) {
	var zero T
	v, err := c.Get(key)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, &EntryError{Key: key, Op: "resolve", Err: fmt.Errorf("%T is not %s", v, reflect.TypeFor[T]())}
	}
	return out, nil
}

// Make builds a fresh instance for key as T.
func Make[T any](c *Container, key Key, deps ...any) (T, error) {
	var zero T
	v, err := c.Create(key, deps...)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, &EntryError{Key: key, Op: "make", Err: fmt.Errorf("%T is not %s", v, reflect.TypeFor[T]())}
	}
	return out, nil
}
