// Package devtools streams the events of a running application to
// development tools over a WebSocket.
//
// Every event fired on the event bus and every watched dispatcher event is
// broadcast as a JSON Message. Clients connecting later first receive the
// most recent messages.
//
//	dt := devtools.NewServer(bus, dispatcher)
//	defer dt.Close()
//	mux.HandleFunc("/_imago/devtools", dt.HandleWebSocket)
package devtools

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/imago-dev/imago/pkg/event"
	"github.com/imago-dev/imago/pkg/page/renderer"
	"github.com/imago-dev/imago/pkg/router"
	"github.com/imago-dev/imago/pkg/state"
)

// Source says where a message comes from.
type Source string

const (
	SourceBus        Source = "bus"
	SourceDispatcher Source = "dispatcher"
)

// DefaultHistory is how many messages are replayed to a new client.
const DefaultHistory = 100

// DefaultEvents are the dispatcher events watched by default.
var DefaultEvents = []string{
	router.EventBeforeHandleRoute,
	router.EventAfterHandleRoute,
	renderer.EventMounted,
	renderer.EventUpdated,
	renderer.EventUnmounted,
	renderer.EventError,
	state.EventAfterChangeState,
}

// Message is sent to clients.
type Message struct {
	Source Source          `json:"source"`
	Name   string          `json:"name"`
	Target string          `json:"target,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Time   time.Time       `json:"time"`
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Option configures a Server.
type Option func(*Server)

// WithEvents sets the watched dispatcher events.
func WithEvents(events ...string) Option {
	return func(s *Server) {
		s.events = events
	}
}

// WithHistory sets how many messages are replayed to a new client.
func WithHistory(n int) Option {
	return func(s *Server) {
		s.historySize = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server broadcasts application events to WebSocket clients.
type Server struct {
	upgrader    websocket.Upgrader
	events      []string
	historySize int
	logger      *slog.Logger

	dispatcher *event.Dispatcher
	handles    []event.Handle
	sub        *event.Subscription
	done       chan struct{}

	mu      sync.Mutex
	clients map[*client]struct{}
	history [][]byte
	closed  bool
}

// NewServer creates a server streaming the events of bus and dispatcher.
// Either may be nil.
func NewServer(bus *event.EventBus, dispatcher *event.Dispatcher, opts ...Option) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // development only
			},
		},
		events:      DefaultEvents,
		historySize: DefaultHistory,
		logger:      slog.Default(),
		dispatcher:  dispatcher,
		done:        make(chan struct{}),
		clients:     make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if dispatcher != nil {
		for _, name := range s.events {
			s.handles = append(s.handles, dispatcher.Listen(name, s, func(data any) {
				s.broadcast(Message{Source: SourceDispatcher, Name: name, Data: encode(data), Time: time.Now()})
			}))
		}
	}

	if bus == nil {
		close(s.done)
		return s
	}
	ch, sub := bus.Stream(256)
	s.sub = sub
	go func() {
		defer close(s.done)
		for e := range ch {
			s.broadcast(Message{
				Source: SourceBus,
				Name:   e.Name,
				Target: targetName(e.Target),
				Data:   encode(e.Data),
				Time:   time.Now(),
			})
		}
	}()
	return s
}

// HandleWebSocket upgrades the request and streams messages until the
// client disconnects.
func (s *Server) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		s.logger.Debug("devtools: upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	for _, data := range s.history {
		if err := c.write(data); err != nil {
			s.mu.Unlock()
			conn.Close()
			return
		}
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	// Clients only listen; reading detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.drop(c)
}

func (s *Server) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn("devtools: cannot encode message", "name", msg.Name, "error", err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.historySize > 0 {
		s.history = append(s.history, data)
		if len(s.history) > s.historySize {
			s.history = append(s.history[:0:0], s.history[len(s.history)-s.historySize:]...)
		}
	}
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			s.drop(c)
		}
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.conn.Close()
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close stops streaming and disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	clients := s.clients
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	if s.dispatcher != nil {
		for _, h := range s.handles {
			s.dispatcher.Unlisten(h)
		}
	}
	s.sub.Unsubscribe()
	<-s.done

	for c := range clients {
		c.conn.Close()
	}
}

func targetName(target any) string {
	if target == nil {
		return ""
	}
	if s, ok := target.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", target)
}

// encode summarizes event data as JSON. Values that cannot be encoded are
// sent as their printed form.
func encode(data any) json.RawMessage {
	switch d := data.(type) {
	case nil:
		return nil
	case router.RouteEvent:
		summary := map[string]any{
			"path":   d.Path,
			"params": d.Params,
			"action": d.Action.Type,
		}
		if d.Route != nil {
			summary["route"] = d.Route.Name()
		}
		if d.Response != nil {
			summary["status"] = d.Response.Status
		}
		data = summary
	case renderer.Event:
		summary := map[string]any{"pageState": d.PageState}
		if d.Err != nil {
			summary["error"] = d.Err.Error()
		}
		data = summary
	case error:
		data = d.Error()
	}

	out, err := json.Marshal(data)
	if err != nil {
		out, _ = json.Marshal(fmt.Sprint(data))
	}
	return out
}
