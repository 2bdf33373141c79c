package cache

import (
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(0, 0)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss on empty cache")
	}

	c.Set("a", []int{1, 2}, 0)
	v, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got := v.([]int); len(got) != 2 || got[1] != 2 {
		t.Errorf("unexpected value %v", got)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 item, got %d", c.Len())
	}
}

func TestMemoryCache_DeleteClear(t *testing.T) {
	c := NewMemoryCache(time.Hour, 0)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be deleted")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after Clear, got %d", c.Len())
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(0, 0)
	c.Set("short", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestMemoryCache_ZeroTTLUsesDefault(t *testing.T) {
	c := NewMemoryCache(time.Millisecond, 0)
	c.Set("default", "v", 0)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("default"); ok {
		t.Error("expected entry stored with zero TTL to expire with the default")
	}

	forever := NewMemoryCache(0, 0)
	forever.Set("kept", "v", 0)
	time.Sleep(5 * time.Millisecond)
	if _, ok := forever.Get("kept"); !ok {
		t.Error("expected entry to be kept when the default is no expiration")
	}
}

func TestKey(t *testing.T) {
	if Key("sub", "ab", "c") == Key("sub", "a", "bc") {
		t.Error("expected different keys for different part boundaries")
	}
	if Key("sub", "x") != Key("sub", "x") {
		t.Error("expected stable keys")
	}
	if Key("sub", "x") == Key("other", "x") {
		t.Error("expected namespace to separate keys")
	}
}
