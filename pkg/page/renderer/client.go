package renderer

import (
	"context"
	"sync"
	"time"

	"github.com/imago-dev/imago/pkg/controller"
	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/page/factory"
	"github.com/imago-dev/imago/pkg/resource"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/state"
	"github.com/imago-dev/imago/pkg/view"
	"github.com/imago-dev/imago/pkg/window"
)

// DefaultHydrateDelay is how long the first mount over server markup
// waits before patching the document.
const DefaultHydrateDelay = 100 * time.Millisecond

// ClientOptions configure a Client renderer.
type ClientOptions struct {
	Window window.Window

	// HydrateDelay lets the browser paint the server markup before it is
	// patched. Zero uses DefaultHydrateDelay; negative disables the delay.
	HydrateDelay time.Duration
}

// Client renders pages into the window document.
//
// The first mount of an application hydrates the server markup: it waits
// for every resource, then patches the existing document. Later mounts
// paint the resources already available at once and patch each pending
// resource into the state as it resolves. Patches apply in arrival order,
// so for the same key the resource resolving last wins.
//
// Re-rendering on state changes is driven by SetState, which the page
// manager registers as the page state manager's change callback.
type Client struct {
	base
	win          window.Window
	hydrateDelay time.Duration

	mu         sync.Mutex
	firstTime  bool
	mounted    bool
	view       view.View
	opts       route.Options
	state      state.State
	generation uint64

	// patchMu makes each resource patch a single step.
	patchMu sync.Mutex
}

var _ Renderer = (*Client)(nil)

// NewClient creates a client renderer.
func NewClient(cfg Config, opts ClientOptions) *Client {
	delay := opts.HydrateDelay
	if delay == 0 {
		delay = DefaultHydrateDelay
	}
	return &Client{
		base:         newBase(cfg),
		win:          opts.Window,
		hydrateDelay: max(delay, 0),
		firstTime:    true,
		state:        state.State{},
	}
}

// Mount renders a new page.
func (r *Client) Mount(ctx context.Context, c *factory.ControllerDecorator, v view.View, resources map[string]any, opts route.Options) (*page.Response, error) {
	r.mu.Lock()
	r.generation++
	gen := r.generation
	first := r.firstTime
	r.view = v
	r.opts = opts
	r.mu.Unlock()

	ctrl := c.Controller()
	ready, pending := resource.Split(resources)

	if first {
		loaded, err := awaitPending(ctx, pending)
		if err != nil {
			r.fire(EventError, nil, err)
			return nil, err
		}
		if err := ctrl.SetState(state.Merge(ready, loaded)); err != nil {
			return nil, err
		}
		c.SetMetaParams(ctrl.State())
		if err := r.paint(ctx, ctrl.State(), true); err != nil {
			r.fire(EventError, nil, err)
			return nil, err
		}
		r.mu.Lock()
		r.firstTime = false
		r.mu.Unlock()
	} else {
		if err := ctrl.SetState(ready); err != nil {
			return nil, err
		}
		if err := r.paint(ctx, ctrl.State(), false); err != nil {
			r.fire(EventError, nil, err)
			return nil, err
		}
		if err := r.patchPending(ctx, gen, ctrl, pending); err != nil {
			r.fire(EventError, ctrl.State(), err)
			return nil, err
		}
		c.SetMetaParams(ctrl.State())
	}

	r.updateMeta(c)
	resp := response(c, "")
	r.fire(EventMounted, resp.PageState, nil)
	return resp, nil
}

// Update patches the resources of an only-update navigation.
func (r *Client) Update(ctx context.Context, c *factory.ControllerDecorator, v view.View, resources map[string]any, opts route.Options) (*page.Response, error) {
	r.mu.Lock()
	gen := r.generation
	r.view = v
	r.opts = opts
	r.mu.Unlock()

	ctrl := c.Controller()
	ready, pending := resource.Split(resources)
	if err := ctrl.SetState(ready); err != nil {
		return nil, err
	}
	if err := r.patchPending(ctx, gen, ctrl, pending); err != nil {
		r.fire(EventError, ctrl.State(), err)
		return nil, err
	}
	c.SetMetaParams(ctrl.State())
	r.updateMeta(c)

	resp := response(c, "")
	r.fire(EventUpdated, resp.PageState, nil)
	return resp, nil
}

// Unmount empties the mount element.
func (r *Client) Unmount() {
	r.mu.Lock()
	wasMounted := r.mounted
	if r.mounted {
		if mount := r.win.ElementByID(view.MountID); mount != nil {
			mount.Children = nil
		}
	}
	r.mounted = false
	r.view = nil
	r.generation++
	r.mu.Unlock()

	if wasMounted {
		r.fire(EventUnmounted, nil, nil)
	}
}

// SetState re-renders the mounted page with s.
func (r *Client) SetState(s state.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s.Clone()
	if !r.mounted || r.view == nil {
		return
	}
	if err := r.render(); err != nil {
		r.cfg.Logger.Warn("renderer: re-render failed", "error", err)
	}
}

// ClearState empties the rendered state and invalidates pending resource
// patches of the current page.
func (r *Client) ClearState() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state.State{}
	r.generation++
}

// Mounted reports whether a page is rendered.
func (r *Client) Mounted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mounted
}

// paint renders s. On the first mount over existing markup it waits for the
// hydrate delay and patches the document; an empty mount element is
// rendered into directly.
func (r *Client) paint(ctx context.Context, s state.State, first bool) error {
	mount := r.win.ElementByID(view.MountID)
	if mount == nil {
		return ErrNoMountElement
	}

	if first && len(mount.Children) > 0 && r.hydrateDelay > 0 {
		timer := time.NewTimer(r.hydrateDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s.Clone()
	if err := r.render(); err != nil {
		return err
	}
	r.mounted = true
	return nil
}

// render must be called with mu held.
func (r *Client) render() error {
	mount := r.win.ElementByID(view.MountID)
	if mount == nil {
		return ErrNoMountElement
	}
	tree, err := r.compose(r.view, r.opts, r.state)
	if err != nil {
		return err
	}

	var children []*view.Node
	if tree != nil {
		children = []*view.Node{tree}
	}
	if !r.mounted && len(mount.Children) == 0 {
		for _, child := range children {
			mount.Children = append(mount.Children, child.Clone())
		}
		return nil
	}

	next := &view.Node{Kind: mount.Kind, Tag: mount.Tag, Attrs: mount.Attrs, Children: children}
	return view.Apply(mount, view.Diff(mount, next))
}

// patchPending patches each pending resource into the controller state as
// it resolves. Patches of a page that has been replaced are dropped.
func (r *Client) patchPending(ctx context.Context, gen uint64, ctrl controller.Controller, pending map[string]*resource.Resource) error {
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for key, res := range pending {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := res.Await(ctx)
			if err != nil {
				errOnce.Do(func() { firstErr = &resource.LoadError{Key: key, Err: err} })
				return
			}

			r.patchMu.Lock()
			defer r.patchMu.Unlock()
			r.mu.Lock()
			stale := gen != r.generation
			r.mu.Unlock()
			if stale {
				return
			}
			if err := ctrl.SetState(state.State{key: value}); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}()
	}
	wg.Wait()
	return firstErr
}

func (r *Client) updateMeta(c *factory.ControllerDecorator) {
	if title := c.MetaManager().Title(); title != "" {
		r.win.SetTitle(title)
	}
}

func awaitPending(ctx context.Context, pending map[string]*resource.Resource) (map[string]any, error) {
	values := make(map[string]any, len(pending))
	for k, res := range pending {
		values[k] = res
	}
	return resource.AwaitAll(ctx, values)
}
