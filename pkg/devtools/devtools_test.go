package devtools

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/imago-dev/imago/pkg/event"
	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/router"
)

var errBoom = errors.New("boom")

type button struct{}

func (button) String() string { return "button#buy" }

func dial(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(s.HandleWebSocket))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", s.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func TestStreamsBusAndDispatcherEvents(t *testing.T) {
	bus := event.NewEventBus()
	d := event.NewDispatcher()
	s := NewServer(bus, d)
	defer s.Close()

	conn := dial(t, s)
	waitForClients(t, s, 1)

	bus.Fire(button{}, "addToCart", map[string]any{"id": 5})
	msg := read(t, conn)
	if msg.Source != SourceBus || msg.Name != "addToCart" || msg.Target != "button#buy" {
		t.Errorf("bus message = %+v", msg)
	}
	if diff := cmp.Diff(`{"id":5}`, string(msg.Data)); diff != "" {
		t.Errorf("data (-want +got):\n%s", diff)
	}

	d.Fire(router.EventAfterHandleRoute, router.RouteEvent{
		Route:    route.New("article", "/articles/:id", nil, nil),
		Params:   route.Params{"id": "5"},
		Path:     "/articles/5",
		Action:   page.Action{Type: page.ActionClick},
		Response: &page.Response{Status: http.StatusOK},
	}, true)
	msg = read(t, conn)
	if msg.Source != SourceDispatcher || msg.Name != router.EventAfterHandleRoute {
		t.Errorf("dispatcher message = %+v", msg)
	}
	var summary map[string]any
	if err := json.Unmarshal(msg.Data, &summary); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"route":  "article",
		"path":   "/articles/5",
		"params": map[string]any{"id": "5"},
		"action": "click",
		"status": float64(200),
	}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Errorf("route event (-want +got):\n%s", diff)
	}
}

func TestReplaysHistory(t *testing.T) {
	bus := event.NewEventBus()
	s := NewServer(bus, nil, WithHistory(2))
	defer s.Close()

	for _, name := range []string{"a", "b", "c"} {
		bus.Fire(button{}, name, nil)
	}

	// Broadcasting happens on a goroutine; wait until it caught up.
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		n := len(s.history)
		last := ""
		if n > 0 {
			last = string(s.history[n-1])
		}
		s.mu.Unlock()
		if strings.Contains(last, `"name":"c"`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("history never caught up")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn := dial(t, s)
	var names []string
	for range 2 {
		names = append(names, read(t, conn).Name)
	}
	if diff := cmp.Diff([]string{"b", "c"}, names); diff != "" {
		t.Errorf("replayed (-want +got):\n%s", diff)
	}
}

func TestClose(t *testing.T) {
	bus := event.NewEventBus()
	d := event.NewDispatcher()
	s := NewServer(bus, d, WithEvents("custom"))
	if got := d.ListenerCount("custom"); got != 1 {
		t.Fatalf("ListenerCount() = %d, want 1", got)
	}

	conn := dial(t, s)
	waitForClients(t, s, 1)

	s.Close()
	s.Close()

	if got := d.ListenerCount("custom"); got != 0 {
		t.Errorf("ListenerCount() after Close = %d, want 0", got)
	}
	if s.ClientCount() != 0 {
		t.Errorf("ClientCount() after Close = %d", s.ClientCount())
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection still open after Close")
	}
	bus.Fire(button{}, "late", nil) // must not panic
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{name: "nil", data: nil, want: ""},
		{name: "map", data: map[string]int{"a": 1}, want: `{"a":1}`},
		{name: "error", data: errBoom, want: `"boom"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(encode(tt.data)); got != tt.want {
				t.Errorf("encode() = %s, want %s", got, tt.want)
			}
		})
	}

	// Functions cannot be encoded; their printed form is sent instead.
	if got := string(encode(func() {})); !strings.HasPrefix(got, `"0x`) {
		t.Errorf("encode(func) = %s", got)
	}
}
