package resource

import (
	"context"
	"fmt"
)

// Split separates values into those available now and pending resources.
// A resource that already settled successfully counts as available; a
// settled failure stays in pending so the caller observes its error.
func Split(values map[string]any) (ready map[string]any, pending map[string]*Resource) {
	ready = make(map[string]any, len(values))
	pending = make(map[string]*Resource)

	for key, v := range values {
		res, ok := v.(*Resource)
		if !ok {
			ready[key] = v
			continue
		}
		if res.Settled() {
			if value, err := res.Result(); err == nil {
				ready[key] = value
				continue
			}
		}
		pending[key] = res
	}
	return ready, pending
}

// AwaitAll waits for every resource in values and returns a map of plain
// values. The first failure encountered is returned wrapped with its key.
func AwaitAll(ctx context.Context, values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for key, v := range values {
		res, ok := v.(*Resource)
		if !ok {
			out[key] = v
			continue
		}
		value, err := res.Await(ctx)
		if err != nil {
			return nil, &LoadError{Key: key, Err: err}
		}
		out[key] = value
	}
	return out, nil
}

// LoadError reports which resource failed.
type LoadError struct {
	Key string
	Err error
}

// Error returns the error message.
func (e *LoadError) Error() string {
	return fmt.Sprintf("resource %q: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *LoadError) Unwrap() error {
	return e.Err
}
