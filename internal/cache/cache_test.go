package cache

import (
	"testing"
	"time"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("empty cache must miss")
	}
	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %d (%v)", v, ok)
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // touch a, b becomes LRU
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should survive")
	}
}

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRU[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expired entry must miss")
	}
}

func TestLRUCleanExpired(t *testing.T) {
	c := NewLRU[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("c", 3)
	if cleaned := c.CleanExpired(); cleaned != 2 {
		t.Fatalf("expected 2 cleaned, got %d", cleaned)
	}
	if c.Size() != 1 {
		t.Fatalf("expected 1 entry left, got %d", c.Size())
	}
}

func TestLRUPurge(t *testing.T) {
	c := NewLRU[string](10, time.Minute)
	c.Set("a", "x")
	c.Set("b", "y")
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("purge must empty the cache, size=%d", c.Size())
	}
}

func TestLRUOverwrite(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Fatalf("expected overwrite to 2, got %d", v)
	}
	if c.Size() != 1 {
		t.Fatalf("overwrite must not grow the cache")
	}
}
