// internal/directory/cache.go
//
// Read-through cache over Store.
//
// Context
// -------
// Context switching loads the same few networks over and over, so network
// rows (with their main site and site name filled in) live in a sync.Map
// with idle and LRU eviction.  Site rows sit in a bounded LRU.  An
// optional Remote (Redis) acts as a second level shared between
// processes.
//
// Workflow
// --------
//  1. Network(ctx, id) checks the map, then the Remote, then loads from
//     the Store under a singleflight barrier so concurrent misses for one
//     id hit the database once.
//  2. NetworkMeta / SetNetworkMeta remember option values (absent ones
//     too) on the entry of a cached network; the values go when the
//     entry goes.
//  3. Mutations call ForgetNetwork / ForgetSite after they commit.
//  4. evictLoop (evictor.go) trims idle and excess entries.
//
// Notes
// -----
//   - Every getter returns a copy; callers may modify it freely.
//   - Misses are not cached, so a network created after a failed lookup is
//     visible immediately.
//   - Inside a Store.Tx callback use the transactional Store directly,
//     never the Cache; a cache miss would wait on the pool the transaction
//     already holds.
//   - Oxford commas, two spaces after periods.
package directory

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/stuttter/wp-multi-network-sub000/internal/cache"
	"github.com/stuttter/wp-multi-network-sub000/internal/metrics"
)

// Defaults used when CacheOptions leaves a field zero.
const (
	DefaultIdleTTL       = 30 * time.Minute
	DefaultMaxEntries    = 100
	DefaultSiteLRU       = 1024
	DefaultEvictInterval = 5 * time.Minute
)

// CacheOptions tunes a Cache.
type CacheOptions struct {
	IdleTTL       time.Duration
	MaxEntries    int
	SiteLRU       int
	EvictInterval time.Duration
	Remote        Remote
	Logger        *zap.SugaredLogger
}

type entry struct {
	network  Network
	lastSeen int64 // UnixNano

	metaMu sync.Mutex
	meta   map[string]metaValue
}

type metaValue struct {
	value string
	ok    bool
}

func (e *entry) lookup(key string) (metaValue, bool) {
	e.metaMu.Lock()
	defer e.metaMu.Unlock()
	mv, hit := e.meta[key]
	return mv, hit
}

func (e *entry) remember(key, value string, ok bool) {
	e.metaMu.Lock()
	if e.meta == nil {
		e.meta = make(map[string]metaValue)
	}
	e.meta[key] = metaValue{value: value, ok: ok}
	e.metaMu.Unlock()
}

// Cache lazily loads networks and sites.
type Cache struct {
	store *Store
	sfg   singleflight.Group
	m     sync.Map // int64 → *entry

	siteMu sync.Mutex
	sites  *cache.LRU[int64, Site]

	remote      Remote
	log         *zap.SugaredLogger
	evictTicker *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
	idleTTL     time.Duration
	maxEntries  int
}

// NewCache constructs a Cache and starts the background evictor.
func NewCache(store *Store, o CacheOptions) *Cache {
	if o.IdleTTL <= 0 {
		o.IdleTTL = DefaultIdleTTL
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	if o.SiteLRU <= 0 {
		o.SiteLRU = DefaultSiteLRU
	}
	if o.EvictInterval <= 0 {
		o.EvictInterval = DefaultEvictInterval
	}
	if o.Logger == nil {
		o.Logger = zap.S()
	}
	c := &Cache{
		store:      store,
		sites:      cache.New[int64, Site](o.SiteLRU),
		remote:     o.Remote,
		log:        o.Logger,
		done:       make(chan struct{}),
		idleTTL:    o.IdleTTL,
		maxEntries: o.MaxEntries,
	}
	c.evictTicker = time.NewTicker(o.EvictInterval)
	go c.evictLoop()
	return c
}

// Store exposes the underlying Store.
func (c *Cache) Store() *Store { return c.store }

// Close stops the evictor.  Safe to call more than once.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		c.evictTicker.Stop()
		close(c.done)
	})
}

// Network returns network id, loading it on demand.
func (c *Cache) Network(ctx context.Context, id int64) (*Network, error) {
	if n, ok := c.load(id); ok {
		return n, nil
	}

	v, err, _ := c.sfg.Do("network:"+strconv.FormatInt(id, 10), func() (any, error) {
		// Double-check after singleflight barrier.
		if n, ok := c.load(id); ok {
			return n, nil
		}
		if c.remote != nil {
			var n Network
			if c.remote.Get(ctx, networkKey(id), &n) {
				c.put(n)
				metrics.CacheLoadTotal.WithLabelValues("network", "remote").Inc()
				return &n, nil
			}
		}
		n, err := c.store.Network(ctx, id)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				metrics.CacheLoadErrorsTotal.WithLabelValues("network").Inc()
			}
			return nil, err
		}
		if err := c.Populate(ctx, n); err != nil {
			metrics.CacheLoadErrorsTotal.WithLabelValues("network").Inc()
			return nil, err
		}
		c.put(*n)
		if c.remote != nil {
			c.remote.Set(ctx, networkKey(id), n)
		}
		metrics.CacheLoadTotal.WithLabelValues("network", "store").Inc()
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	cp := *v.(*Network)
	return &cp, nil
}

// Populate fills the derived fields of n: MainSiteID and SiteName.  A
// network without a main site keeps MainSiteID at zero.
func (c *Cache) Populate(ctx context.Context, n *Network) error {
	return Populate(ctx, c.store, n)
}

// Populate is the Store-level form of Cache.Populate, usable inside a
// transaction.
func Populate(ctx context.Context, s *Store, n *Network) error {
	id, err := s.MainSiteID(ctx, *n)
	switch {
	case err == nil:
		n.MainSiteID = id
	case errors.Is(err, ErrNotFound):
		n.MainSiteID = 0
	default:
		return err
	}
	name, _, err := s.NetworkMeta(ctx, n.ID, "site_name")
	if err != nil {
		return err
	}
	n.SiteName = name
	return nil
}

// NetworkMeta reads key of networkID.  Networks that are not cached read
// straight through to the Store.
func (c *Cache) NetworkMeta(ctx context.Context, networkID int64, key string) (string, bool, error) {
	ent := c.entry(networkID)
	if ent != nil {
		if mv, hit := ent.lookup(key); hit {
			return mv.value, mv.ok, nil
		}
	}
	v, ok, err := c.store.NetworkMeta(ctx, networkID, key)
	if err != nil {
		return "", false, err
	}
	if ent != nil {
		ent.remember(key, v, ok)
	}
	return v, ok, nil
}

// SetNetworkMeta writes key through to the Store, then updates the cached
// value.  site_name feeds Network.SiteName, so it drops the network
// instead.
func (c *Cache) SetNetworkMeta(ctx context.Context, networkID int64, key, value string) error {
	if err := c.store.SetNetworkMeta(ctx, networkID, key, value); err != nil {
		return err
	}
	if key == "site_name" {
		c.ForgetNetwork(ctx, networkID)
		return nil
	}
	if ent := c.entry(networkID); ent != nil {
		ent.remember(key, value, true)
	}
	return nil
}

// Site returns site id, loading it on demand.
func (c *Cache) Site(ctx context.Context, id int64) (*Site, error) {
	c.siteMu.Lock()
	s, ok := c.sites.Get(id)
	c.siteMu.Unlock()
	if ok {
		return &s, nil
	}

	v, err, _ := c.sfg.Do("site:"+strconv.FormatInt(id, 10), func() (any, error) {
		if c.remote != nil {
			var s Site
			if c.remote.Get(ctx, siteKey(id), &s) {
				c.putSite(s)
				metrics.CacheLoadTotal.WithLabelValues("site", "remote").Inc()
				return &s, nil
			}
		}
		s, err := c.store.Site(ctx, id)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				metrics.CacheLoadErrorsTotal.WithLabelValues("site").Inc()
			}
			return nil, err
		}
		c.putSite(*s)
		if c.remote != nil {
			c.remote.Set(ctx, siteKey(id), s)
		}
		metrics.CacheLoadTotal.WithLabelValues("site", "store").Inc()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	cp := *v.(*Site)
	return &cp, nil
}

// ForgetNetwork drops network id from both cache levels.
func (c *Cache) ForgetNetwork(ctx context.Context, id int64) {
	if _, ok := c.m.LoadAndDelete(id); ok {
		metrics.CacheEvictTotal.WithLabelValues("invalidate").Inc()
		metrics.CachedNetworks.Dec()
	}
	if c.remote != nil {
		c.remote.Del(ctx, networkKey(id))
	}
}

// ForgetSite drops site id from both cache levels.
func (c *Cache) ForgetSite(ctx context.Context, id int64) {
	c.siteMu.Lock()
	c.sites.Remove(id)
	c.siteMu.Unlock()
	if c.remote != nil {
		c.remote.Del(ctx, siteKey(id))
	}
}

// Len reports how many networks are cached locally.
func (c *Cache) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool { n++; return true })
	return n
}

func (c *Cache) entry(id int64) *entry {
	v, ok := c.m.Load(id)
	if !ok {
		return nil
	}
	return v.(*entry)
}

func (c *Cache) load(id int64) (*Network, bool) {
	v, ok := c.m.Load(id)
	if !ok {
		return nil, false
	}
	ent := v.(*entry)
	atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
	cp := ent.network
	return &cp, true
}

func (c *Cache) put(n Network) {
	ent := &entry{network: n, lastSeen: time.Now().UnixNano()}
	if _, loaded := c.m.Swap(n.ID, ent); !loaded {
		metrics.CachedNetworks.Inc()
	}
}

func (c *Cache) putSite(s Site) {
	c.siteMu.Lock()
	c.sites.Add(s.ID, s)
	c.siteMu.Unlock()
}

func networkKey(id int64) string { return "network:" + strconv.FormatInt(id, 10) }
func siteKey(id int64) string    { return "site:" + strconv.FormatInt(id, 10) }
