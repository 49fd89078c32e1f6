package handler

import (
	"context"

	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/window"
)

// HistoryState is stored with each history entry the navigation handler
// creates, so the scroll position can be restored on back/forward.
type HistoryState struct {
	URL     string
	ScrollX int
	ScrollY int
}

// NavigationHandler keeps the address bar and the scroll position in sync
// with client navigations.
type NavigationHandler struct {
	win window.Window
}

var _ Handler = (*NavigationHandler)(nil)

// NewNavigationHandler creates a handler driving win.
func NewNavigationHandler(win window.Window) *NavigationHandler {
	return &NavigationHandler{win: win}
}

func (h *NavigationHandler) Init() error { return nil }

func (h *NavigationHandler) Destroy() {}

// HandlePreManagedState stores the scroll position of the page being left
// and records the navigation in history. Pop-state and error navigations
// already have their entry.
func (h *NavigationHandler) HandlePreManagedState(_ context.Context, current, _ *page.ManagedPage, action page.Action) error {
	if !h.win.IsClient() || current.IsEmpty() || action.URL == "" {
		return nil
	}
	if action.Type != page.ActionClick && action.Type != page.ActionRedirect {
		return nil
	}

	// A redirect to the current location must not add a duplicate entry.
	h.saveScroll()
	state := HistoryState{URL: action.URL}
	if action.Type == page.ActionRedirect && action.URL == h.win.URL() {
		h.win.ReplaceState(state, "", action.URL)
	} else {
		h.win.PushState(state, "", action.URL)
	}
	return nil
}

// HandlePostManagedState restores the scroll position of a pop-state
// navigation, or scrolls to the top when the route asks for it.
func (h *NavigationHandler) HandlePostManagedState(_ context.Context, current, _ *page.ManagedPage, action page.Action) error {
	if !h.win.IsClient() {
		return nil
	}
	if e, ok := action.Event.(*window.Event); ok {
		if s, ok := e.State.(HistoryState); ok {
			h.win.ScrollTo(s.ScrollX, s.ScrollY)
			return nil
		}
	}
	if current != nil && current.Options.AutoScroll {
		h.win.ScrollTo(0, 0)
	}
	return nil
}

func (h *NavigationHandler) saveScroll() {
	x, y := h.win.Scroll()
	url := h.win.URL()
	h.win.ReplaceState(HistoryState{URL: url, ScrollX: x, ScrollY: y}, "", url)
}
