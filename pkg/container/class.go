package container

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Key identifies an entry: a string alias or constant name, a *Class or an
// *Interface.
type Key = any

// Class describes how to build instances of one Go type.
type Class struct {
	// Name is used in error messages and as the default namespace path.
	Name string

	// Type is the Go type New returns. Provide checks it against the
	// provided interface.
	Type reflect.Type

	// New builds an instance from resolved dependencies.
	New func(deps []any) (any, error)

	// Dependencies are the default dependency keys.
	Dependencies []any
}

// NewClass creates a Class producing T.
func NewClass[T any](name string, ctor func(deps []any) (T, error), deps ...any) *Class {
	return &Class{
		Name: name,
		Type: reflect.TypeFor[T](),
		New: func(d []any) (any, error) {
			return ctor(d)
		},
		Dependencies: deps,
	}
}

// Func creates a Class without dependencies from a plain constructor.
func Func[T any](name string, ctor func() T) *Class {
	return NewClass(name, func([]any) (T, error) {
		return ctor(), nil
	})
}

// String returns the class name.
func (c *Class) String() string {
	if c == nil {
		return "<nil class>"
	}
	return c.Name
}

// Interface is a key standing for a Go interface type. Provide binds an
// implementing Class to it.
type Interface struct {
	Name string
	Type reflect.Type
}

// InterfaceOf creates an Interface key for the interface type T.
func InterfaceOf[T any](name string) *Interface {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Interface {
		panic(fmt.Sprintf("container: InterfaceOf[%s]: not an interface type", t))
	}
	return &Interface{Name: name, Type: t}
}

// String returns the interface name.
func (i *Interface) String() string {
	return i.Name
}

// Satisfies reports whether instances of c implement i. A class with no
// declared type never satisfies an interface.
func (c *Class) Satisfies(i *Interface) bool {
	if c == nil || c.Type == nil || i == nil || i.Type == nil {
		return false
	}
	return c.Type.Implements(i.Type)
}

// Namespace is the explicit table of classes resolvable by dotted path.
type Namespace struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// NewNamespace creates an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{classes: make(map[string]*Class)}
}

// Register adds class under path (for example "app.page.home.Controller").
func (n *Namespace) Register(path string, class *Class) *Namespace {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.classes[strings.TrimSpace(path)] = class
	return n
}

// Lookup returns the class registered under path.
func (n *Namespace) Lookup(path string) (*Class, bool) {
	if n == nil {
		return nil, false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	c, ok := n.classes[path]
	return c, ok
}
