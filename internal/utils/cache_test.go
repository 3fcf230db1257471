package utils

import (
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	c, err := NewTTLCache[string](2, time.Minute)
	if err != nil {
		t.Fatalf("NewTTLCache: %v", err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("AB12CD", "Ford")
	if v, ok := c.Get("AB12CD"); !ok || v != "Ford" {
		t.Fatalf("Get = %q, %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("AB12CD"); ok {
		t.Error("entry should have expired")
	}
}

func TestTTLCacheEviction(t *testing.T) {
	c, _ := NewTTLCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	if _, ok := c.Get("a"); ok {
		t.Error("least recently used entry should be evicted")
	}
	c.Delete("b")
	if _, ok := c.Get("b"); ok {
		t.Error("deleted entry still present")
	}
}
