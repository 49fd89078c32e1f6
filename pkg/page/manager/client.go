package manager

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/imago-dev/imago/pkg/event"
	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/route"
)

// Client manages the pages of a client session. Rendered pages are
// activated, and events fired on the event target are dispatched to the
// controller and its extensions: an event "addToCart" calls the first of
// them with a method OnAddToCart. The method takes no argument or the
// event data.
type Client struct {
	*Manager
	bus    *event.EventBus
	target any
	sub    *event.Subscription
}

// NewClient creates a client page manager listening to events fired on
// target, usually the window.
func NewClient(cfg Config, bus *event.EventBus, target any) *Client {
	return &Client{Manager: New(cfg), bus: bus, target: target}
}

// Init initializes the manager and subscribes to events.
func (c *Client) Init() error {
	if err := c.Manager.Init(); err != nil {
		return err
	}
	if c.sub == nil {
		c.sub = c.bus.ListenAll(c.target, c.handleEvent)
	}
	return nil
}

// Manage renders the page of h and activates it.
func (c *Client) Manage(ctx context.Context, h route.Handler, options route.Options, params route.Params, action page.Action) (*page.Response, error) {
	resp, err := c.Manager.Manage(ctx, h, options, params, action)
	if err != nil {
		return nil, err
	}
	c.activate()
	return resp, nil
}

// Destroy unsubscribes from events and tears the page down.
func (c *Client) Destroy() {
	c.sub.Unsubscribe()
	c.sub = nil
	c.Manager.Destroy()
}

func (c *Client) handleEvent(e event.Event) {
	c.mu.Lock()
	p := c.current
	c.mu.Unlock()
	if p.IsEmpty() {
		return
	}

	method := EventMethod(e.Name)
	handled, err := invoke(p.Controller, method, e.Data)
	for _, ext := range p.Controller.Extensions() {
		if handled {
			break
		}
		handled, err = invoke(ext, method, e.Data)
	}

	switch {
	case err != nil:
		c.cfg.Logger.Warn("manager: event handler failed", "event", e.Name, "method", method, "error", err)
	case !handled && c.cfg.Debug:
		c.cfg.Logger.Warn("manager: event not handled by the controller or its extensions", "event", e.Name, "method", method)
	}
}

// EventMethod returns the handler method name of an event: "On" followed
// by the name in camel case, so "addToCart" and "add-to-cart" both map to
// OnAddToCart.
func EventMethod(name string) string {
	var b strings.Builder
	b.WriteString("On")
	upper := true
	for _, r := range name {
		if r == '-' || r == '_' || r == ':' || r == '.' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// invoke calls the named method of target with data. It reports whether
// the method exists.
func invoke(target any, name string, data any) (bool, error) {
	m := reflect.ValueOf(target).MethodByName(name)
	if !m.IsValid() {
		return false, nil
	}

	t := m.Type()
	var args []reflect.Value
	switch t.NumIn() {
	case 0:
	case 1:
		in := t.In(0)
		arg := reflect.ValueOf(data)
		switch {
		case !arg.IsValid():
			arg = reflect.Zero(in)
		case arg.Type().AssignableTo(in):
		case arg.Type().ConvertibleTo(in):
			arg = arg.Convert(in)
		default:
			return true, fmt.Errorf("manager: %s cannot take %T", name, data)
		}
		args = []reflect.Value{arg}
	default:
		return true, fmt.Errorf("manager: %s must take at most one argument", name)
	}

	out := m.Call(args)
	if len(out) > 0 {
		if err, ok := out[len(out)-1].Interface().(error); ok {
			return true, err
		}
	}
	return true, nil
}
