package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/imago-dev/imago/pkg/storage"
)

type clock struct{ now int64 }

func (c *clock) Now() int64 { return c.now }

func (c *clock) Advance(d time.Duration) { c.now += int64(d) }

func TestCacheTTL(t *testing.T) {
	clk := &clock{now: 1}
	c := New(storage.NewMapStorage(), WithClock(clk.Now), WithDefaultTTL(time.Minute))

	c.Set("short", "s", time.Second)
	c.Set("long", "l", 0)

	clk.Advance(2 * time.Second)
	if c.Has("short") {
		t.Error("short should have expired")
	}
	if v, ok := c.Get("long"); !ok || v != "l" {
		t.Errorf("Get(long) = %v, %v", v, ok)
	}

	clk.Advance(time.Minute)
	if c.Has("long") {
		t.Error("long should have expired after the default TTL")
	}
}

func TestCacheDisable(t *testing.T) {
	c := New(storage.NewMapStorage())
	c.Set("a", 1, 0)

	c.Disable()
	if c.Has("a") {
		t.Error("disabled cache should report keys as missing")
	}
	c.Set("b", 2, 0)

	c.Enable()
	if !c.Has("a") {
		t.Error("entries should survive disabling")
	}
	if c.Has("b") {
		t.Error("disabled cache should ignore writes")
	}
}

func TestCacheSerializeRoundTrip(t *testing.T) {
	clk := &clock{now: 1}
	server := New(storage.NewMapStorage(), WithClock(clk.Now))
	server.Set("articles", []any{1.0, 2.0, 3.0}, 10*time.Second)
	server.Set("gone", "x", time.Millisecond)
	clk.Advance(time.Second)

	data, err := server.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if data != `{"articles":{"value":[1,2,3],"ttl":10000}}` {
		t.Errorf("Serialize() = %s", data)
	}

	client := New(storage.NewMapStorage())
	if err := client.Deserialize(data); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	v, ok := client.Get("articles")
	if !ok {
		t.Fatal("revived cache misses articles")
	}
	if diff := cmp.Diff([]any{1.0, 2.0, 3.0}, v); diff != "" {
		t.Errorf("revived value mismatch (-want +got):\n%s", diff)
	}

	if err := client.Deserialize("not json"); err == nil {
		t.Error("Deserialize() of garbage should fail")
	}
}

func TestCacheOnBoltStorage(t *testing.T) {
	s, err := storage.OpenBolt(filepath.Join(t.TempDir(), "cache.db"), "")
	if err != nil {
		t.Fatalf("OpenBolt() error = %v", err)
	}
	defer s.Close()

	c := New(s)
	if err := c.Set("user", map[string]any{"name": "ada"}, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok := c.Get("user")
	if !ok {
		t.Fatal("Get(user) missed")
	}
	if diff := cmp.Diff(map[string]any{"name": "ada"}, v); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}
