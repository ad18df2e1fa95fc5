package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c, err := New("memory", Options{Size: 10, TTL: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if v, ok := c.Get(ctx, "missing"); ok || v != nil {
		t.Fatalf("Expected miss, got %q, %v", v, ok)
	}

	c.Set(ctx, "k", []byte("one"))
	c.Set(ctx, "k", []byte("two"))
	v, ok := c.Get(ctx, "k")
	if !ok || string(v) != "two" {
		t.Fatalf("Expected overwritten value 'two', got %q, %v", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Expected Len 1, got %d", c.Len())
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	ctx := context.Background()
	var evicted []string
	c, err := New("memory", Options{Size: 2, TTL: time.Hour, OnEvict: func(key string) {
		evicted = append(evicted, key)
	}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))
	c.Get(ctx, "a") // a is now more recent than b
	c.Set(ctx, "c", []byte("3"))

	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("Expected least recently used key 'b' to be evicted")
	}
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Error("Expected recently read key 'a' to survive")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Errorf("Expected eviction callback for 'b', got %v", evicted)
	}
}

func TestMemoryCache_TTL(t *testing.T) {
	ctx := context.Background()
	c, err := New("memory", Options{Size: 10, TTL: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set(ctx, "short", []byte("lived"))
	time.Sleep(150 * time.Millisecond)

	if _, ok := c.Get(ctx, "short"); ok {
		t.Error("Expected entry to expire")
	}
}

func TestMemoryCache_ReadDoesNotExtendTTL(t *testing.T) {
	ctx := context.Background()
	c, err := New("memory", Options{Size: 10, TTL: 200 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set(ctx, "read", []byte("often"))
	time.Sleep(120 * time.Millisecond)
	if _, ok := c.Get(ctx, "read"); !ok {
		t.Fatal("Expected entry to be alive before its TTL")
	}

	time.Sleep(120 * time.Millisecond)
	if _, ok := c.Get(ctx, "read"); ok {
		t.Error("Expected entry to expire counting from the write, not the last read")
	}
}
