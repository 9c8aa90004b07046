// Package rendercache memoizes server-side renders.
//
// Keys are derived from the bundle hash and a stable serialization of the
// request context, so a rebuilt bundle or a different user never sees
// another's markup. Failures are cached too, with a shorter TTL. Concurrent
// misses for one key share a single render.
package rendercache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/vango-dev/routekit/pkg/ssr"
)

// Renderer produces a render result. *ssr.Invoker implements it.
type Renderer interface {
	Render(ctx context.Context, bundlePath string, rc ssr.RenderRequestContext, timeout time.Duration) ssr.Result
}

// Bundle identifies a server bundle.
type Bundle struct {
	Path string

	// Hash is the content hash (see ssr.HashBundle). When empty the path
	// stands in for it, and entries survive a rebuild until they expire.
	Hash string
}

// CacheError reports a failure inside the cache layer. It is never fatal:
// the render goes straight to the renderer and nothing is stored.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("render cache %s: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// Options configures a Cache.
type Options struct {
	// TTL applies to successful renders when GetOrRender gets a zero ttl.
	// Default: 5 minutes
	TTL time.Duration

	// FailureTTL applies to failed renders; it never exceeds the success
	// TTL. Negative disables caching failures.
	// Default: 5 seconds
	FailureTTL time.Duration

	// MaxEntries caps the entry count; least recently used entries go first.
	// Default: 1000
	MaxEntries int

	// RenderTimeout is passed to the renderer. Zero uses its default.
	RenderTimeout time.Duration

	Logger *zap.Logger

	// Registry receives cache metrics. Nil disables them.
	Registry prometheus.Registerer

	// Clock returns the current time.
	// Default: time.Now
	Clock func() time.Time
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		TTL:        5 * time.Minute,
		FailureTTL: 5 * time.Second,
		MaxEntries: 1000,
	}
}

type entry struct {
	key       string
	result    ssr.Result
	expiresAt time.Time
	elem      *list.Element
}

// Cache is safe for concurrent use.
type Cache struct {
	renderer Renderer
	opts     Options
	log      *zap.Logger
	metrics  *metrics

	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List
	flight  singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	renders   atomic.Int64
	collapsed atomic.Int64
	errors    atomic.Int64
}

// New creates a cache in front of r.
func New(r Renderer, opts Options) *Cache {
	defaults := DefaultOptions()
	if opts.TTL <= 0 {
		opts.TTL = defaults.TTL
	}
	if opts.FailureTTL == 0 {
		opts.FailureTTL = defaults.FailureTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaults.MaxEntries
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Cache{
		renderer: r,
		opts:     opts,
		log:      opts.Logger,
		entries:  make(map[string]*entry),
		lru:      list.New(),
	}
	if opts.Registry != nil {
		c.metrics = newMetrics(opts.Registry)
	}
	return c
}

// keyContext is the cached view of a request context. Field order is
// fixed; RequestID is deliberately absent.
type keyContext struct {
	RequestPath string   `json:"requestPath"`
	CSRFToken   string   `json:"csrfToken"`
	CurrentUser ssr.User `json:"currentUser"`
}

// Key computes the cache key for a bundle and context.
func Key(b Bundle, rc ssr.RenderRequestContext) (string, error) {
	data, err := json.Marshal(keyContext{
		RequestPath: rc.RequestPath,
		CSRFToken:   rc.CSRFToken,
		CurrentUser: rc.User(),
	})
	if err != nil {
		return "", &CacheError{Op: "key", Err: err}
	}

	bundleID := b.Hash
	if bundleID == "" {
		bundleID = "path:" + b.Path
	}

	h := sha256.New()
	h.Write([]byte(bundleID))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GetOrRender returns a cached result for (bundle, rc) or renders it. A
// zero ttl uses the configured TTL.
func (c *Cache) GetOrRender(ctx context.Context, b Bundle, rc ssr.RenderRequestContext, ttl time.Duration) ssr.Result {
	if ttl <= 0 {
		ttl = c.opts.TTL
	}

	key, err := Key(b, rc)
	if err != nil {
		c.errors.Add(1)
		c.log.Warn("render cache bypassed", zap.String("path", rc.RequestPath), zap.Error(err))
		return c.renderer.Render(ctx, b.Path, rc, c.opts.RenderTimeout)
	}

	if res, ok := c.get(key); ok {
		return res
	}

	executed := false
	v, _, _ := c.flight.Do(key, func() (any, error) {
		executed = true

		// Filled while this caller waited for the flight.
		if res, ok := c.peek(key); ok {
			return res, nil
		}

		c.renders.Add(1)
		res := c.renderer.Render(ctx, b.Path, rc, c.opts.RenderTimeout)
		c.put(key, res, ttl)
		return res, nil
	})
	res := v.(ssr.Result)

	if !executed {
		c.collapsed.Add(1)
		// The shared render was canceled by its own caller; this one is
		// still live and renders for itself.
		if !res.OK() && res.Failure.Reason == ssr.ReasonCanceled && ctx.Err() == nil {
			c.renders.Add(1)
			res = c.renderer.Render(ctx, b.Path, rc, c.opts.RenderTimeout)
			c.put(key, res, ttl)
		}
	}
	return res
}

// get looks up a live entry, counting the hit or miss.
func (c *Cache) get(key string) (ssr.Result, bool) {
	res, ok := c.peek(key)
	if ok {
		c.hits.Add(1)
		c.metrics.hit()
	} else {
		c.misses.Add(1)
		c.metrics.miss()
	}
	return res, ok
}

func (c *Cache) peek(key string) (ssr.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return ssr.Result{}, false
	}
	if !c.opts.Clock().Before(e.expiresAt) {
		c.removeLocked(e)
		return ssr.Result{}, false
	}
	c.lru.MoveToFront(e.elem)
	return e.result, true
}

func (c *Cache) put(key string, res ssr.Result, ttl time.Duration) {
	if !res.OK() {
		// A canceled render says nothing about the page.
		if res.Failure.Reason == ssr.ReasonCanceled || c.opts.FailureTTL < 0 {
			return
		}
		ttl = min(ttl, c.opts.FailureTTL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.removeLocked(old)
	}
	for len(c.entries) >= c.opts.MaxEntries {
		back := c.lru.Back()
		if back == nil {
			break
		}
		c.removeLocked(back.Value.(*entry))
		c.evictions.Add(1)
		c.metrics.evict()
	}

	e := &entry{key: key, result: res, expiresAt: c.opts.Clock().Add(ttl)}
	e.elem = c.lru.PushFront(e)
	c.entries[key] = e
	c.metrics.setEntries(len(c.entries))
}

func (c *Cache) removeLocked(e *entry) {
	c.lru.Remove(e.elem)
	delete(c.entries, e.key)
	c.metrics.setEntries(len(c.entries))
}

// Purge drops every entry. In-flight renders still store their results.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.lru.Init()
	c.metrics.setEntries(0)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64

	// Renders counts calls into the renderer.
	Renders int64

	// Collapsed counts callers that shared another caller's render.
	Collapsed int64

	// Errors counts CacheErrors (forced misses).
	Errors int64
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()

	return Stats{
		Entries:   n,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Renders:   c.renders.Load(),
		Collapsed: c.collapsed.Load(),
		Errors:    c.errors.Load(),
	}
}

type metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	entries   prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: "routekit", Subsystem: "render_cache", Name: name, Help: help}
	}
	return &metrics{
		hits:      factory.NewCounter(opts("hits_total", "Render cache hits")),
		misses:    factory.NewCounter(opts("misses_total", "Render cache misses")),
		evictions: factory.NewCounter(opts("evictions_total", "Entries evicted to respect the size cap")),
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "routekit",
			Subsystem: "render_cache",
			Name:      "entries",
			Help:      "Entries currently cached",
		}),
	}
}

func (m *metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *metrics) evict() {
	if m != nil {
		m.evictions.Inc()
	}
}

func (m *metrics) setEntries(n int) {
	if m != nil {
		m.entries.Set(float64(n))
	}
}
