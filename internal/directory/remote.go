// internal/directory/remote.go
//
// Second-level cache shared between processes.
//
// Context
// -------
// Several API and CLI processes may serve the same install.  When
// cache.redis_addr is set, network and site rows are mirrored into Redis
// as JSON under `{prefix}wpmn:{kind}:{id}` so a cold process does not hit
// the database for every lookup, and an invalidation in one process is
// seen by the others on their next local miss.
//
// Notes
// -----
//   - Redis failures are logged and treated as misses.  The database stays
//     the source of truth.
//   - Oxford commas, two spaces after periods.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Remote is a key-value cache level behind the in-process maps.
type Remote interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, v any)
	Del(ctx context.Context, keys ...string)
}

// RedisRemote implements Remote on go-redis.
type RedisRemote struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	log    *zap.SugaredLogger
}

// NewRedisRemote wraps rdb.  prefix namespaces keys per install; ttl
// bounds staleness when an invalidation is missed.
func NewRedisRemote(rdb redis.UniversalClient, prefix string, ttl time.Duration, log *zap.SugaredLogger) *RedisRemote {
	if log == nil {
		log = zap.S()
	}
	return &RedisRemote{rdb: rdb, prefix: prefix + "wpmn:", ttl: ttl, log: log}
}

// Get decodes key into dst and reports a hit.
func (r *RedisRemote) Get(ctx context.Context, key string, dst any) bool {
	raw, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warnw("redis get", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.log.Warnw("redis decode", "key", key, "err", err)
		return false
	}
	return true
}

// Set stores v under key with the configured TTL.
func (r *RedisRemote) Set(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		r.log.Warnw("redis encode", "key", key, "err", err)
		return
	}
	if err := r.rdb.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		r.log.Warnw("redis set", "key", key, "err", err)
	}
}

// Del removes keys.
func (r *RedisRemote) Del(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	if err := r.rdb.Del(ctx, full...).Err(); err != nil {
		r.log.Warnw("redis del", "keys", keys, "err", err)
	}
}
