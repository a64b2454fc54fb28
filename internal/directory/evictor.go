// evictor.go houses the eviction loop for Cache.  Every EvictInterval it
// scans the map and removes:
//
//   - networks idle longer than idleTTL
//   - least-recently-used networks when map size exceeds maxEntries
//
// Each eviction is logged at debug level and updates Prometheus counters.
package directory

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/stuttter/wp-multi-network-sub000/internal/metrics"
)

func (c *Cache) evictLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.evictTicker.C:
			c.evict(time.Now())
		}
	}
}

// evict runs one idle pass and one LRU pass as of now.
func (c *Cache) evict(now time.Time) {
	var count int

	// ----------------------------------------------------------------
	// Idle eviction pass
	// ----------------------------------------------------------------
	c.m.Range(func(key, value any) bool {
		ent := value.(*entry)
		idle := time.Duration(now.UnixNano() - atomic.LoadInt64(&ent.lastSeen))
		if idle > c.idleTTL {
			if _, ok := c.m.LoadAndDelete(key); ok {
				c.log.Debugw("network evicted", "id", key, "idle", idle.Truncate(time.Second))
				metrics.CacheEvictTotal.WithLabelValues("idle").Inc()
				metrics.CachedNetworks.Dec()
			}
			return true
		}
		count++
		return true
	})

	// ----------------------------------------------------------------
	// LRU eviction pass
	// ----------------------------------------------------------------
	if c.maxEntries <= 0 || count <= c.maxEntries {
		return
	}
	type kv struct {
		key int64
		at  int64
	}
	all := make([]kv, 0, count)
	c.m.Range(func(key, value any) bool {
		all = append(all, kv{key: key.(int64), at: atomic.LoadInt64(&value.(*entry).lastSeen)})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
	for i := 0; i < len(all)-c.maxEntries; i++ {
		if _, ok := c.m.LoadAndDelete(all[i].key); ok {
			c.log.Debugw("network evicted (LRU pressure)", "id", all[i].key)
			metrics.CacheEvictTotal.WithLabelValues("lru").Inc()
			metrics.CachedNetworks.Dec()
		}
	}
}
