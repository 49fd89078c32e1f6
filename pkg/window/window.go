// Package window abstracts the environment a page is rendered in.
//
// The server side uses ServerWindow, whose methods are inert. The client
// side runs against Memory, an in-process browser model with a location,
// a history stack, a document tree, event listeners and a scroll position.
package window

import "github.com/imago-dev/imago/pkg/view"

// Well-known window event names.
const (
	EventClick    = "click"
	EventPopState = "popstate"
)

// Event is an event dispatched to window listeners.
type Event struct {
	Type string

	// Target is the node the event originated from (click).
	Target *view.Node

	// Anchor is the nearest <a> element enclosing Target (click).
	Anchor *view.Node

	// State is the history state of the entry being restored (popstate).
	State any

	// Button is the mouse button of a click, 0 being the main button.
	Button   int
	CtrlKey  bool
	MetaKey  bool
	ShiftKey bool
	AltKey   bool

	defaultPrevented bool
}

// PreventDefault cancels the default action of the event.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault has been called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// Listener handles a window event.
type Listener func(e *Event)

// Window is the environment a page is rendered in.
type Window interface {
	// IsClient reports whether the window is a live client window.
	IsClient() bool

	Title() string
	SetTitle(title string)

	// Scroll returns the current scroll position.
	Scroll() (x, y int)
	ScrollTo(x, y int)

	// Domain returns the protocol and host, e.g. "https://example.com".
	Domain() string
	Host() string

	// Path returns the path and query of the current location.
	Path() string

	// URL returns the full current location.
	URL() string

	// ElementByID returns the element of the current document with the
	// given id, or nil.
	ElementByID(id string) *view.Node

	// Redirect performs a hard navigation to url.
	Redirect(url string)

	PushState(state any, title, url string)
	ReplaceState(state any, title, url string)

	// AddEventListener registers fn for the event and returns a function
	// removing it.
	AddEventListener(event string, fn Listener) (remove func())
}
