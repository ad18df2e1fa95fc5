package cache

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Belphemur/ImageTranslate/internal/config"
)

// Options configure a cache backend.
type Options struct {
	// Size is the maximum number of entries kept.
	Size int

	// TTL is how long an entry lives after it was last written. Reads do not extend it.
	TTL time.Duration

	// OnEvict is called for entries dropped to respect Size.
	OnEvict EvictCallback

	// Redis connection, used by the "redis" backend only.
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// Group labels the cache_* metrics. When set the cache is wrapped with instrumentation.
	Group string
}

// Backend builds a Cache from Options.
type Backend func(opts Options) (Cache, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]Backend{}
)

// Register makes a backend available under name. It panics on duplicates.
func Register(name string, b Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	if b == nil {
		panic("cache: nil backend for " + name)
	}
	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("cache: backend %q registered twice", name))
	}
	backends[name] = b
}

// New opens the named backend. A non-empty opts.Group adds hit, miss and eviction
// counters and an entries gauge for that group.
func New(name string, opts Options) (Cache, error) {
	backendsMu.RLock()
	b, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("cache: unknown backend %q (available: %v)", name, Backends())
	}

	if opts.Group == "" {
		return b(opts)
	}

	group := opts.Group
	next := opts.OnEvict
	opts.OnEvict = func(key string) {
		EvictionsTotal.WithLabelValues(group).Inc()
		if next != nil {
			next(key)
		}
	}

	inner, err := b(opts)
	if err != nil {
		return nil, err
	}
	return newInstrumentedCache(inner, group), nil
}

// Backends lists the registered backend names in order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// OptionsFromConfig maps the cache section of the configuration to Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Size:          cfg.Cache.Size,
		TTL:           config.ParseDuration("cache.ttl", cfg.Cache.TTL, time.Hour),
		RedisAddress:  cfg.Cache.Redis.Address,
		RedisPassword: cfg.Cache.Redis.Password,
		RedisDB:       cfg.Cache.Redis.DB,
		Group:         "results",
	}
}
