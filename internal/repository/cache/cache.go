// Package cache is the namespaced result cache shared by the search pipeline,
// the embedding decorator and film lookups. An optional in-process LRU tier sits
// in front of Redis. Store failures degrade to misses and never reach callers.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/filmrag/internal/db"
)

// Namespace partitions cache keys by purpose.
type Namespace string

// Cache namespaces.
const (
	Search Namespace = "search"
	Embed  Namespace = "embed"
	Film   Namespace = "film"
)

// Namespaces lists every namespace in a stable order.
var Namespaces = []Namespace{Search, Embed, Film}

const delChunk = 500

// store is the consumer interface for the L2 tier (ISP).
type store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DelMulti(ctx context.Context, keys []string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Config tunes the cache.
type Config struct {
	Prefix            string
	TTLs              map[Namespace]time.Duration
	L1Size            int           // 0 disables the in-process tier
	OpTimeout         time.Duration // bound on every L2 call
	ReconnectInterval time.Duration // minimum gap between connectivity pings while down
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// Cache is safe for concurrent use.
type Cache struct {
	store   store
	l1      *lru.Cache[string, entry]
	cfg     Config
	now     func() time.Time
	logger  *zap.Logger
	results *prometheus.CounterVec

	connected atomic.Bool
	nextPing  atomic.Int64 // unix nanos
	pingMu    sync.Mutex
	upGauge   prometheus.Gauge

	stats map[Namespace]*counters
}

// New creates a cache. s may be nil, in which case only the L1 tier is used.
// results is a counter vec with labels "namespace" and "result", passed explicitly.
func New(s store, cfg Config, results *prometheus.CounterVec, logger *zap.Logger) *Cache {
	c := &Cache{
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
		results: results,
		stats:   make(map[Namespace]*counters, len(Namespaces)),
	}
	for _, ns := range Namespaces {
		c.stats[ns] = &counters{}
	}
	if s != nil {
		c.store = s
		c.setConnected(true)
	}
	if cfg.L1Size > 0 {
		l1, err := lru.New[string, entry](cfg.L1Size)
		if err == nil {
			c.l1 = l1
		}
	}
	return c
}

// Key derives a content-addressed key: strings are trimmed and lower-cased, the
// tuple is joined by ":" and hashed.
func (c *Cache) Key(ns Namespace, args ...any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			parts[i] = strings.ToLower(strings.TrimSpace(v))
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	h := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return c.nsPrefix(ns) + hex.EncodeToString(h[:])
}

func (c *Cache) nsPrefix(ns Namespace) string {
	return c.cfg.Prefix + string(ns) + ":"
}

// TTL returns the configured TTL of a namespace.
func (c *Cache) TTL(ns Namespace) time.Duration {
	return c.cfg.TTLs[ns]
}

// WithConnectedGauge mirrors Connected into g, 1 while the L2 store is usable.
func (c *Cache) WithConnectedGauge(g prometheus.Gauge) *Cache {
	c.upGauge = g
	c.reportConnected()
	return c
}

// Connected reports whether the L2 store answered the last call.
func (c *Cache) Connected() bool {
	return c.store != nil && c.connected.Load()
}

// setConnected flips the connectivity flag and returns its previous value.
func (c *Cache) setConnected(v bool) bool {
	was := c.connected.Swap(v)
	c.reportConnected()
	return was
}

func (c *Cache) reportConnected() {
	if c.upGauge == nil {
		return
	}
	if c.Connected() {
		c.upGauge.Set(1)
	} else {
		c.upGauge.Set(0)
	}
}

// Get returns the value stored at key. Misses, expired entries and store failures all yield false.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	ns := c.namespaceOf(key)

	if v, ok := c.getL1(key); ok {
		c.record(ns, true)
		return v, true
	}

	if !c.available(ctx) {
		c.record(ns, false)
		return nil, false
	}

	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	data, err := c.store.Get(opCtx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.fail(ctx, "get", err)
		}
		c.record(ns, false)
		return nil, false
	}
	c.record(ns, true)
	return data, true
}

// GetBatch returns values positionally; misses are nil.
func (c *Cache) GetBatch(ctx context.Context, keys []string) [][]byte {
	out := make([][]byte, len(keys))
	var missing []int
	for i, k := range keys {
		if v, ok := c.getL1(k); ok {
			out[i] = v
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 && c.available(ctx) {
		remote := make([]string, len(missing))
		for j, i := range missing {
			remote[j] = keys[i]
		}

		opCtx, cancel := c.opContext(ctx)
		vals, err := c.store.MGet(opCtx, remote)
		cancel()
		if err != nil {
			c.fail(ctx, "mget", err)
		} else {
			for j, i := range missing {
				if j < len(vals) {
					out[i] = vals[j]
				}
			}
		}
	}

	for i, k := range keys {
		c.record(c.namespaceOf(k), out[i] != nil)
	}
	return out
}

// Set stores value at key for ttl (the namespace TTL when ttl <= 0).
// It reports whether any tier accepted the write.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = c.TTL(c.namespaceOf(key))
	}
	if ttl <= 0 {
		return false
	}

	stored := false
	if c.l1 != nil {
		v := make([]byte, len(value))
		copy(v, value)
		c.l1.Add(key, entry{value: v, expiresAt: c.now().Add(ttl)})
		stored = true
	}

	if !c.available(ctx) {
		return stored
	}

	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	if err := c.store.SetWithTTL(opCtx, key, value, ttl); err != nil {
		c.fail(ctx, "set", err)
		return stored
	}
	return true
}

// ClearNamespace removes every entry of ns and returns the number of removed entries.
func (c *Cache) ClearNamespace(ctx context.Context, ns Namespace) int {
	prefix := c.nsPrefix(ns)

	local := 0
	if c.l1 != nil {
		for _, k := range c.l1.Keys() {
			if strings.HasPrefix(k, prefix) && c.l1.Remove(k) {
				local++
			}
		}
	}

	if !c.available(ctx) {
		return local
	}

	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	keys, err := c.store.Scan(opCtx, prefix+"*")
	if err != nil {
		c.fail(ctx, "scan", err)
		return local
	}

	removed := 0
	for start := 0; start < len(keys); start += delChunk {
		end := min(start+delChunk, len(keys))
		n, err := c.store.DelMulti(opCtx, keys[start:end])
		if err != nil {
			c.fail(ctx, "del", err)
			return max(local, removed)
		}
		removed += n
	}

	c.logger.Info("cache namespace cleared", zap.String("namespace", string(ns)), zap.Int("removed", removed))
	return max(local, removed)
}

// ClearAll clears every namespace.
func (c *Cache) ClearAll(ctx context.Context) int {
	total := 0
	for _, ns := range Namespaces {
		total += c.ClearNamespace(ctx, ns)
	}
	return total
}

// NamespaceStats holds lookup counters of one namespace.
type NamespaceStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Connected  bool                      `json:"connected"`
	L1Size     int                       `json:"l1_size"`
	Namespaces map[string]NamespaceStats `json:"namespaces"`
}

// Stats returns lookup counters since process start.
func (c *Cache) Stats() Stats {
	st := Stats{
		Connected:  c.Connected(),
		Namespaces: make(map[string]NamespaceStats, len(c.stats)),
	}
	if c.l1 != nil {
		st.L1Size = c.l1.Len()
	}
	for ns, cnt := range c.stats {
		st.Namespaces[string(ns)] = NamespaceStats{Hits: cnt.hits.Load(), Misses: cnt.misses.Load()}
	}
	return st
}

// HealthCheck pings the L2 store.
func (c *Cache) HealthCheck(ctx context.Context) error {
	if c.store == nil {
		return errors.New("cache store not configured")
	}
	opCtx, cancel := c.opContext(ctx)
	defer cancel()
	if err := c.store.Ping(opCtx); err != nil {
		c.fail(ctx, "ping", err)
		return err
	}
	c.setConnected(true)
	return nil
}

func (c *Cache) getL1(key string) ([]byte, bool) {
	if c.l1 == nil {
		return nil, false
	}
	e, ok := c.l1.Get(key)
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.l1.Remove(key)
		return nil, false
	}
	return e.value, true
}

// available reports whether the L2 tier may be used. While disconnected it
// pings at most once per reconnect interval, on the caller's goroutine.
func (c *Cache) available(ctx context.Context) bool {
	if c.store == nil {
		return false
	}
	if c.connected.Load() {
		return true
	}
	if c.now().UnixNano() < c.nextPing.Load() {
		return false
	}
	if !c.pingMu.TryLock() {
		return false
	}
	defer c.pingMu.Unlock()

	c.nextPing.Store(c.now().Add(c.cfg.ReconnectInterval).UnixNano())

	opCtx, cancel := c.opContext(ctx)
	defer cancel()
	if err := c.store.Ping(opCtx); err != nil {
		c.logger.Debug("cache store still unavailable", zap.Error(err))
		return false
	}
	c.setConnected(true)
	c.logger.Info("cache store reconnected")
	return true
}

// fail marks the store down unless the failure came from the caller abandoning ctx.
func (c *Cache) fail(ctx context.Context, op string, err error) {
	if ctx.Err() != nil {
		return
	}
	c.nextPing.Store(c.now().Add(c.cfg.ReconnectInterval).UnixNano())
	if c.setConnected(false) {
		c.logger.Warn("cache store unavailable, degrading to misses", zap.String("op", op), zap.Error(err))
	}
}

func (c *Cache) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.OpTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.OpTimeout)
}

func (c *Cache) namespaceOf(key string) Namespace {
	rest, ok := strings.CutPrefix(key, c.cfg.Prefix)
	if !ok {
		return ""
	}
	ns, _, _ := strings.Cut(rest, ":")
	return Namespace(ns)
}

func (c *Cache) record(ns Namespace, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	if cnt, ok := c.stats[ns]; ok {
		if hit {
			cnt.hits.Add(1)
		} else {
			cnt.misses.Add(1)
		}
	}
	if c.results != nil && ns != "" {
		c.results.WithLabelValues(string(ns), result).Inc()
	}
}
