package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Belphemur/ImageTranslate/internal/config"
)

const (
	redisKeyPrefix = "imgtr:"
	redisTimeout   = 2 * time.Second
)

func init() {
	Register("redis", newRedisCache)
}

// redisCache stores each value under its own key with a sliding PX expiry, which keeps
// large image payloads out of a single hash. A sorted set indexes the keys by last
// access time (µs) and is what enforces Size.
//
// Eviction deletes keys not named in KEYS, so the backend targets a single Redis or
// Valkey instance, not a cluster.
type redisCache struct {
	client   *redis.Client
	ttl      time.Duration
	size     int
	onEvict  EvictCallback
	logger   zerolog.Logger
	indexKey string
}

// readAndTouch returns the value and, on a hit, refreshes its recency. The expiry set
// on write is left alone. A miss drops the key from the index.
//
// KEYS[1] = entry, KEYS[2] = index
// ARGV[1] = now µs
var readAndTouch = redis.NewScript(`
local value = redis.call('GET', KEYS[1])
if value then
    redis.call('ZADD', KEYS[2], ARGV[1], KEYS[1])
else
    redis.call('ZREM', KEYS[2], KEYS[1])
end
return value
`)

// writeAndTrim stores the value and drops the least recently used entries beyond size.
// Returns the dropped keys.
//
// KEYS[1] = entry, KEYS[2] = index
// ARGV[1] = value, ARGV[2] = now µs, ARGV[3] = ttl ms, ARGV[4] = size
var writeAndTrim = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
redis.call('ZADD', KEYS[2], ARGV[2], KEYS[1])

local dropped = {}
local excess = redis.call('ZCARD', KEYS[2]) - tonumber(ARGV[4])
if excess > 0 then
    local oldest = redis.call('ZPOPMIN', KEYS[2], excess)
    for i = 1, #oldest, 2 do
        redis.call('DEL', oldest[i])
        table.insert(dropped, oldest[i])
    end
end
return dropped
`)

func newRedisCache(opts Options) (Cache, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("cache: redis backend needs a positive size, got %d", opts.Size)
	}
	if opts.TTL <= 0 {
		return nil, fmt.Errorf("cache: redis backend needs a positive ttl, got %s", opts.TTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddress,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &redisCache{
		client:   client,
		ttl:      opts.TTL,
		size:     opts.Size,
		onEvict:  opts.OnEvict,
		logger:   config.GetLogger().With().Str("component", "cache").Logger(),
		indexKey: redisKeyPrefix + "index",
	}, nil
}

func (r *redisCache) entryKey(key string) string {
	return redisKeyPrefix + "entry:" + key
}

func (r *redisCache) nowMicros() string {
	return strconv.FormatInt(time.Now().UnixMicro(), 10)
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	value, err := readAndTouch.Run(ctx, r.client,
		[]string{r.entryKey(key), r.indexKey},
		r.nowMicros(),
	).Text()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn().Err(err).Msg("Redis cache read failed")
		}
		return nil, false
	}
	return []byte(value), true
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte) {
	// A cancelled request still leaves a useful result behind.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), redisTimeout)
	defer cancel()

	dropped, err := writeAndTrim.Run(ctx, r.client,
		[]string{r.entryKey(key), r.indexKey},
		value, r.nowMicros(), r.ttl.Milliseconds(), r.size,
	).StringSlice()
	if err != nil {
		r.logger.Warn().Err(err).Msg("Redis cache write failed")
		return
	}

	if r.onEvict == nil {
		return
	}
	prefix := r.entryKey("")
	for _, k := range dropped {
		r.onEvict(strings.TrimPrefix(k, prefix))
	}
}

// Len prunes index members not touched within the TTL and counts the rest. An entry
// read shortly before its write-based expiry stays counted until its next read or trim.
func (r *redisCache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	expiredBefore := time.Now().Add(-r.ttl).UnixMicro()
	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, r.indexKey, "-inf", "("+strconv.FormatInt(expiredBefore, 10))
	count := pipe.ZCard(ctx, r.indexKey)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("Redis cache count failed")
		return 0
	}
	return int(count.Val())
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
