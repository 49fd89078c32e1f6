package state

import (
	"fmt"
	"slices"

	"github.com/imago-dev/imago/pkg/imaerr"
)

// KeyNotAllowedError is returned when a scoped manager receives a patch with
// a key its owner did not declare.
type KeyNotAllowedError struct {
	Key     string
	Allowed []string
}

// Error returns the error message.
func (e *KeyNotAllowedError) Error() string {
	return fmt.Sprintf("state: key %q is not allowed (allowed: %v)", e.Key, e.Allowed)
}

// Scoped is a Manager that only accepts patches whose keys are declared.
// Extensions receive a Scoped manager so they cannot overwrite state they
// do not own.
type Scoped struct {
	Manager
	allowed []string
	debug   bool
}

// Restrict wraps m so that SetState rejects keys outside allowed. The check
// only runs in debug mode; otherwise patches pass through unchanged.
func Restrict(m Manager, allowed []string, debug bool) *Scoped {
	return &Scoped{
		Manager: m,
		allowed: slices.Clone(allowed),
		debug:   debug,
	}
}

// AllowedKeys returns the declared keys.
func (s *Scoped) AllowedKeys() []string {
	return slices.Clone(s.allowed)
}

// SetState validates the patch keys and forwards the patch.
func (s *Scoped) SetState(patch State) error {
	if s.debug {
		if err := s.Check(patch); err != nil {
			return err
		}
	}
	return s.Manager.SetState(patch)
}

// Check returns an error for the first key of patch (in sorted order) that
// is not allowed.
func (s *Scoped) Check(patch State) error {
	for _, key := range patch.Keys() {
		if !slices.Contains(s.allowed, key) {
			return imaerr.WithStatus(500, "state: patch outside allowed keys", map[string]any{
				"key": key,
			}).Wrap(&KeyNotAllowedError{Key: key, Allowed: s.AllowedKeys()})
		}
	}
	return nil
}
