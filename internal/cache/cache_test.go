package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache[int], *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := New[int](ttl)
	c.now = clock.Now
	t.Cleanup(c.Close)
	return c, clock
}

func TestCache_SetGetExpire(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("Get on empty cache returned ok")
	}

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = (%d, %v); want (1, true)", v, ok)
	}

	clock.Advance(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired before ttl")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry still visible at ttl")
	}
}

func TestCache_Delete(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")

	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = (%d, %v); want (2, true)", v, ok)
	}
}

func TestCache_RemoveExpired(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)
	c.Set("old", 1)
	clock.Advance(30 * time.Second)
	c.Set("new", 2)
	clock.Advance(45 * time.Second)

	c.removeExpired()

	if c.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", c.Len())
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("unexpired entry swept")
	}
}

func TestCache_CloseIdempotent(t *testing.T) {
	c := New[string](time.Second)
	c.Close()
	c.Close()
}
