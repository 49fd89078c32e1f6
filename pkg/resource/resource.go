package resource

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the current state of a resource.
type State int

const (
	Pending State = iota // Created, fetch not finished
	Ready                // Value successfully loaded
	Error                // Fetch failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Fetcher produces the value of a resource.
type Fetcher func(ctx context.Context) (any, error)

// Resource is a value that settles exactly once.
type Resource struct {
	mu    sync.Mutex
	state State
	value any
	err   error
	done  chan struct{}

	retryCount int
	retryDelay time.Duration
}

// Option configures a Resource created with New.
type Option func(*Resource)

// RetryOnError sets the number of retries and the delay between them.
func RetryOnError(count int, delay time.Duration) Option {
	return func(r *Resource) {
		r.retryCount = count
		r.retryDelay = delay
	}
}

// New starts fetch on a new goroutine and returns the pending resource.
// The fetch runs with context.Background(); use NewContext to bind it to a
// request.
func New(fetch Fetcher, opts ...Option) *Resource {
	return NewContext(context.Background(), fetch, opts...)
}

// NewContext starts fetch bound to ctx.
func NewContext(ctx context.Context, fetch Fetcher, opts ...Option) *Resource {
	r := &Resource{done: make(chan struct{})}
	for _, opt := range opts {
		opt(r)
	}

	go func() {
		var value any
		var err error

		for i := 0; i <= r.retryCount; i++ {
			if i > 0 {
				select {
				case <-time.After(r.retryDelay):
				case <-ctx.Done():
					r.settle(nil, ctx.Err())
					return
				}
			}
			value, err = fetch(ctx)
			if err == nil {
				break
			}
		}
		r.settle(value, err)
	}()

	return r
}

// Resolved returns a resource already settled with value.
func Resolved(value any) *Resource {
	r := &Resource{done: make(chan struct{})}
	r.settle(value, nil)
	return r
}

// Rejected returns a resource already settled with err.
func Rejected(err error) *Resource {
	if err == nil {
		err = errors.New("resource: rejected without error")
	}
	r := &Resource{done: make(chan struct{})}
	r.settle(nil, err)
	return r
}

// Deferred returns a pending resource together with the function that
// settles it. Calls after the first are ignored.
func Deferred() (*Resource, func(value any, err error)) {
	r := &Resource{done: make(chan struct{})}
	return r, r.settle
}

func (r *Resource) settle(value any, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case <-r.done:
		return
	default:
	}

	if err != nil {
		r.err = err
		r.state = Error
	} else {
		r.value = value
		r.state = Ready
	}
	close(r.done)
}

// Done returns a channel closed once the resource settles.
func (r *Resource) Done() <-chan struct{} {
	return r.done
}

// State returns the current state.
func (r *Resource) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Settled reports whether the resource is ready or failed.
func (r *Resource) Settled() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Result returns the value and error. Both are zero while pending.
func (r *Resource) Result() (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value, r.err
}

// Await blocks until the resource settles or ctx is done.
func (r *Resource) Await(ctx context.Context) (any, error) {
	select {
	case <-r.done:
		return r.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
