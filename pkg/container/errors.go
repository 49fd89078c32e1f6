package container

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the container.
var (
	// ErrNotFound is returned when a key resolves to nothing.
	ErrNotFound = errors.New("container: entry not found")

	// ErrConstantExists is returned when a constant name is already in use.
	ErrConstantExists = errors.New("container: constant already declared")

	// ErrLocked is returned when a plugin tries to create an alias or constant.
	ErrLocked = errors.New("container: locked in plugin binding state")

	// ErrNotWriteable is returned when dependencies of a constant are set.
	ErrNotWriteable = errors.New("container: entry is constant")

	// ErrOverriddenTwice is returned on a second dependency override.
	ErrOverriddenTwice = errors.New("container: dependencies overridden more than once")

	// ErrBindingState is returned on an invalid binding state transition.
	ErrBindingState = errors.New("container: invalid binding state transition")

	// ErrNotImplemented is returned by Provide when the class does not
	// implement the interface.
	ErrNotImplemented = errors.New("container: class does not implement interface")

	// ErrCircular is returned when resolving a key requires itself.
	ErrCircular = errors.New("container: circular dependency")

	// ErrInvalidKey is returned for keys of an unsupported type.
	ErrInvalidKey = errors.New("container: invalid key")
)

// EntryError wraps an error with the key being resolved.
type EntryError struct {
	Key Key
	Op  string
	Err error
}

// Error returns the error message.
func (e *EntryError) Error() string {
	return fmt.Sprintf("container: %s %s: %v", e.Op, keyName(e.Key), e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *EntryError) Unwrap() error {
	return e.Err
}

func keyName(k Key) string {
	switch v := k.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case *Class:
		return v.String()
	case *Interface:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
