package window

import (
	"net/url"
	"slices"
	"sync"

	"github.com/imago-dev/imago/pkg/view"
)

type historyEntry struct {
	url   string
	state any
	title string
}

type listener struct {
	fn Listener
}

// Memory is an in-process client window. Navigations, history and events
// behave like their browser counterparts, which makes the client side of
// an application executable without a browser.
type Memory struct {
	mu        sync.Mutex
	location  *url.URL
	title     string
	scrollX   int
	scrollY   int
	document  *view.Node
	history   []historyEntry
	index     int
	listeners map[string][]*listener
	loads     []string
	onLoad    func(url string)
}

var _ Window = (*Memory)(nil)

// NewMemory creates a window whose location is rawURL. The document starts
// as an empty page with a mount element.
func NewMemory(rawURL string) (*Memory, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	m := &Memory{
		location:  u,
		document:  view.Html(view.Body(view.Div(view.ID(view.MountID)))),
		history:   []historyEntry{{url: u.String()}},
		listeners: make(map[string][]*listener),
	}
	return m, nil
}

// IsClient returns true.
func (m *Memory) IsClient() bool { return true }

func (m *Memory) Title() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.title
}

func (m *Memory) SetTitle(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.title = title
}

func (m *Memory) Scroll() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scrollX, m.scrollY
}

func (m *Memory) ScrollTo(x, y int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scrollX, m.scrollY = x, y
}

func (m *Memory) Domain() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.location.Scheme + "://" + m.location.Host
}

func (m *Memory) Host() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.location.Host
}

func (m *Memory) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.location.RequestURI()
}

func (m *Memory) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.location.String()
}

// Document returns the current document tree.
func (m *Memory) Document() *view.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.document
}

// SetDocument replaces the document, as a server-rendered page load does.
func (m *Memory) SetDocument(doc *view.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.document = doc
}

// LoadHTML replaces the document with a parsed HTML document, as a page
// load of server-rendered markup does.
func (m *Memory) LoadHTML(document string) error {
	doc, err := view.Parse(document)
	if err != nil {
		return err
	}
	m.SetDocument(doc)
	return nil
}

func (m *Memory) ElementByID(id string) *view.Node {
	return m.Document().FindByID(id)
}

// OnLoad sets the hook invoked after every hard navigation.
func (m *Memory) OnLoad(fn func(url string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLoad = fn
}

// Redirect performs a hard navigation: the location changes, a history
// entry is pushed and the load is recorded.
func (m *Memory) Redirect(rawURL string) {
	m.mu.Lock()
	u := m.resolve(rawURL)
	m.push(historyEntry{url: u.String()})
	m.location = u
	m.loads = append(m.loads, u.String())
	m.scrollX, m.scrollY = 0, 0
	onLoad := m.onLoad
	m.mu.Unlock()

	if onLoad != nil {
		onLoad(u.String())
	}
}

// Loads returns the URLs of all hard navigations so far.
func (m *Memory) Loads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.loads)
}

func (m *Memory) PushState(state any, title, rawURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.resolve(rawURL)
	m.push(historyEntry{url: u.String(), state: state, title: title})
	m.location = u
}

func (m *Memory) ReplaceState(state any, title, rawURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.resolve(rawURL)
	m.history[m.index] = historyEntry{url: u.String(), state: state, title: title}
	m.location = u
}

// HistoryState returns the state of the current history entry.
func (m *Memory) HistoryState() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history[m.index].state
}

// HistoryLength returns the number of entries in the history stack.
func (m *Memory) HistoryLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// Back moves one entry back in history.
func (m *Memory) Back() bool { return m.Go(-1) }

// Forward moves one entry forward in history.
func (m *Memory) Forward() bool { return m.Go(1) }

// Go moves delta entries through history and fires popstate. It returns
// false when the target entry does not exist.
func (m *Memory) Go(delta int) bool {
	m.mu.Lock()
	target := m.index + delta
	if delta == 0 || target < 0 || target >= len(m.history) {
		m.mu.Unlock()
		return false
	}
	m.index = target
	entry := m.history[target]
	if u, err := url.Parse(entry.url); err == nil {
		m.location = u
	}
	m.mu.Unlock()

	m.Dispatch(&Event{Type: EventPopState, State: entry.state})
	return true
}

func (m *Memory) AddEventListener(event string, fn Listener) func() {
	l := &listener{fn: fn}
	m.mu.Lock()
	m.listeners[event] = append(m.listeners[event], l)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.listeners[event] = slices.DeleteFunc(m.listeners[event], func(c *listener) bool {
			return c == l
		})
	}
}

// ListenerCount returns the number of listeners bound to the event.
func (m *Memory) ListenerCount(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners[event])
}

// Dispatch delivers e to the listeners of its type, in registration order.
func (m *Memory) Dispatch(e *Event) {
	m.mu.Lock()
	ls := slices.Clone(m.listeners[e.Type])
	m.mu.Unlock()

	for _, l := range ls {
		l.fn(e)
	}
}

// Click dispatches a click on target. Unless a listener prevents the
// default action, a click inside an anchor navigates to its href. It
// returns false when the default action was prevented.
func (m *Memory) Click(target *view.Node, opts ...func(*Event)) bool {
	e := &Event{Type: EventClick, Target: target, Anchor: m.ClosestAnchor(target)}
	for _, opt := range opts {
		opt(e)
	}
	m.Dispatch(e)
	if e.DefaultPrevented() {
		return false
	}

	if a := e.Anchor; a != nil && a.Attr("href") != "" {
		m.Redirect(a.Attr("href"))
	}
	return true
}

// ClosestAnchor returns the nearest <a> element enclosing node, node
// included.
func (m *Memory) ClosestAnchor(node *view.Node) *view.Node {
	doc := m.Document()
	for n := node; n != nil; n = doc.Parent(n) {
		if n.Kind == view.KindElement && n.Tag == "a" {
			return n
		}
	}
	return nil
}

// push must be called with mu held.
func (m *Memory) push(e historyEntry) {
	m.history = append(m.history[:m.index+1], e)
	m.index = len(m.history) - 1
}

// resolve must be called with mu held.
func (m *Memory) resolve(rawURL string) *url.URL {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return m.location
	}
	return m.location.ResolveReference(ref)
}

// WithModifiers marks a click as made with the given modifier keys held.
func WithModifiers(ctrl, meta, shift, alt bool) func(*Event) {
	return func(e *Event) {
		e.CtrlKey, e.MetaKey, e.ShiftKey, e.AltKey = ctrl, meta, shift, alt
	}
}

// WithButton sets the mouse button of a click.
func WithButton(button int) func(*Event) {
	return func(e *Event) {
		e.Button = button
	}
}
