package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

func init() {
	Register("memory", newMemoryCache)
}

// memoryCache keeps entries in process with an expirable LRU.
type memoryCache struct {
	lru *lru.LRU[string, []byte]
}

func newMemoryCache(opts Options) (Cache, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("cache: memory backend needs a positive size, got %d", opts.Size)
	}

	var onEvict func(string, []byte)
	if opts.OnEvict != nil {
		onEvict = func(key string, _ []byte) { opts.OnEvict(key) }
	}
	return &memoryCache{lru: lru.NewLRU[string, []byte](opts.Size, onEvict, opts.TTL)}, nil
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	return m.lru.Get(key)
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte) {
	m.lru.Add(key, value)
}

func (m *memoryCache) Len() int {
	return m.lru.Len()
}

func (m *memoryCache) Close() error {
	return nil
}
