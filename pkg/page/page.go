// Package page holds the value types shared by the page manager, the page
// handlers and the router: the managed page and navigation actions.
package page

import (
	"errors"

	"github.com/imago-dev/imago/pkg/controller"
	"github.com/imago-dev/imago/pkg/page/factory"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/state"
	"github.com/imago-dev/imago/pkg/view"
)

// ActionType says what triggered a navigation.
type ActionType string

const (
	ActionRedirect ActionType = "redirect"
	ActionClick    ActionType = "click"
	ActionPopState ActionType = "popstate"
	ActionError    ActionType = "error"
)

// ErrNavigationAborted is returned by a page manager when a newer
// navigation superseded the one being managed.
var ErrNavigationAborted = errors.New("page: navigation aborted")

// Action describes what triggered a navigation.
type Action struct {
	Type ActionType

	// URL is the navigation target.
	URL string

	// Event is the window event that caused the navigation, if any.
	Event any
}

// Response is the outcome of managing a page.
type Response struct {
	Status int

	// Content is the rendered document. It is only set at the server.
	Content string

	PageState state.State

	// Err is the routing error an error or not-found page was rendered
	// for.
	Err error
}

// PageState is the lifecycle state of a managed page.
type PageState struct {
	Activated bool
}

// ManagedPage is the controller, view and route currently managed by a
// page manager. The zero value is the empty page.
type ManagedPage struct {
	ControllerKey any
	Controller    controller.Controller
	Decorated     *factory.ControllerDecorator
	ViewKey       any
	View          view.View
	Route         route.Handler
	Options       route.Options
	Params        route.Params
	State         PageState
}

// IsEmpty reports whether no page is managed.
func (p *ManagedPage) IsEmpty() bool {
	return p == nil || p.Controller == nil
}

// Snapshot returns a copy of p whose params can be modified independently.
func (p *ManagedPage) Snapshot() *ManagedPage {
	if p == nil {
		return &ManagedPage{}
	}
	out := *p
	out.Params = p.Params.Clone()
	out.Options = p.Options.With()
	return &out
}

// Reset turns p back into the empty page.
func (p *ManagedPage) Reset() {
	*p = ManagedPage{}
}

// SameViews reports whether next renders through the same document view,
// managed root view and view adapter as p, in which case the rendered
// document can be kept between the two pages.
func (p *ManagedPage) SameViews(next *ManagedPage) bool {
	if p.IsEmpty() || next == nil {
		return false
	}
	return p.Options.DocumentView == next.Options.DocumentView &&
		p.Options.ManagedRootView == next.Options.ManagedRootView &&
		p.Options.ViewAdapter == next.Options.ViewAdapter
}
