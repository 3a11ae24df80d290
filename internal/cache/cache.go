// Package cache memoizes artifacts derived from document snapshots, such as
// region scans, virtual documents and parse trees.
//
// A Cache holds at most one entry per document URI. An entry is valid only
// for the revision it was produced from: a Get with any other revision runs
// the producer again and replaces the entry in place. Entries are also
// bounded by count (least recently accessed evicted first) and by idle age
// (removed by a periodic sweep).
package cache

import (
	"container/list"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/singleflight"

	"github.com/jsvensson/embedls/internal/document"
)

var log = commonlog.GetLogger("embedls.cache")

// ErrInvalidConfig is returned by New when a bound is missing or negative.
var ErrInvalidConfig = errors.New("invalid cache configuration")

// Producer computes the artifact for one document snapshot.
type Producer[T any] interface {
	Produce(doc *document.Document) (T, error)
}

// ProducerFunc adapts a function to the Producer interface.
type ProducerFunc[T any] func(doc *document.Document) (T, error)

func (f ProducerFunc[T]) Produce(doc *document.Document) (T, error) {
	return f(doc)
}

// Config bounds a cache.
type Config struct {
	MaxEntries int
	MaxAge     time.Duration
	// CleanupInterval is the sweep period. Zero means MaxAge/2.
	CleanupInterval time.Duration
}

// NewConfig returns a Config from an entry count and an idle age in
// seconds, the units editor settings use.
func NewConfig(maxEntries, maxAgeSeconds int) Config {
	return Config{
		MaxEntries: maxEntries,
		MaxAge:     time.Duration(maxAgeSeconds) * time.Second,
	}
}

// Validate rejects configurations that would let the cache grow without bound.
func (c Config) Validate() error {
	if c.MaxEntries <= 0 {
		return fmt.Errorf("%w: max entries must be positive, got %d", ErrInvalidConfig, c.MaxEntries)
	}
	if c.MaxAge <= 0 {
		return fmt.Errorf("%w: max age must be positive, got %s", ErrInvalidConfig, c.MaxAge)
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("%w: cleanup interval must not be negative, got %s", ErrInvalidConfig, c.CleanupInterval)
	}
	return nil
}

func (c Config) interval() time.Duration {
	if c.CleanupInterval > 0 {
		return c.CleanupInterval
	}
	if half := c.MaxAge / 2; half > 0 {
		return half
	}
	return c.MaxAge
}

// Stats is a point-in-time view of a cache's counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64 // entries dropped to stay within MaxEntries
	Expirations uint64 // entries dropped by the idle sweep
	Failures    uint64 // producer errors
	Entries     int
}

// Observable is implemented by every Cache regardless of its artifact type.
type Observable interface {
	Name() string
	Stats() Stats
}

type entry[T any] struct {
	uri        string
	value      T
	revision   int64
	lastAccess time.Time
	elem       *list.Element
}

// Cache maps document URIs to artifacts of type T. It is safe for
// concurrent use.
type Cache[T any] struct {
	name     string
	cfg      Config
	producer Producer[T]
	now      func() time.Time

	mu       sync.Mutex
	entries  map[string]*entry[T]
	lru      *list.List // front is most recently accessed
	disposed bool

	group singleflight.Group

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	hits        atomic.Uint64
	misses      atomic.Uint64
	evictions   atomic.Uint64
	expirations atomic.Uint64
	failures    atomic.Uint64
}

// New validates cfg and returns a cache that fills itself from producer.
// Unless WithoutSweeper is given, a background goroutine sweeps idle
// entries until Dispose is called.
func New[T any](cfg Config, producer Producer[T], opts ...Option) (*Cache[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if producer == nil {
		return nil, fmt.Errorf("%w: producer is nil", ErrInvalidConfig)
	}

	o := options{name: "cache", now: time.Now, sweep: true}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[T]{
		name:     o.name,
		cfg:      cfg,
		producer: producer,
		now:      o.now,
		entries:  make(map[string]*entry[T]),
		lru:      list.New(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if o.sweep {
		go c.run(cfg.interval())
	} else {
		close(c.done)
	}
	return c, nil
}

func (c *Cache[T]) Name() string {
	return c.name
}

// Get returns the artifact for doc, producing it if the cached entry is
// missing or belongs to another revision. Concurrent callers for the same
// revision share one production. A producer error is returned and nothing
// is stored.
func (c *Cache[T]) Get(doc *document.Document) (T, error) {
	if v, ok := c.lookup(doc); ok {
		c.hits.Add(1)
		log.Debugf("%s: hit %s@%d", c.name, doc.URI, doc.Revision)
		return v, nil
	}
	c.misses.Add(1)
	log.Debugf("%s: miss %s@%d", c.name, doc.URI, doc.Revision)

	key := doc.URI + "@" + strconv.FormatInt(doc.Revision, 10)
	v, err, _ := c.group.Do(key, func() (any, error) {
		// A caller that finished just before us may already have stored it.
		if v, ok := c.lookup(doc); ok {
			return v, nil
		}
		value, err := c.producer.Produce(doc)
		if err != nil {
			return nil, err
		}
		c.store(doc, value)
		return value, nil
	})
	if err != nil {
		c.failures.Add(1)
		var zero T
		return zero, fmt.Errorf("cache %s: producing %s@%d: %w", c.name, doc.URI, doc.Revision, err)
	}

	value, _ := v.(T)
	return value, nil
}

func (c *Cache[T]) lookup(doc *document.Document) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[doc.URI]
	if !ok || e.revision != doc.Revision {
		var zero T
		return zero, false
	}
	e.lastAccess = c.now()
	c.lru.MoveToFront(e.elem)
	return e.value, true
}

func (c *Cache[T]) store(doc *document.Document, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}

	now := c.now()
	if e, ok := c.entries[doc.URI]; ok {
		// A concurrent Get may have stored a later revision already.
		if e.revision > doc.Revision {
			return
		}
		e.value = value
		e.revision = doc.Revision
		e.lastAccess = now
		c.lru.MoveToFront(e.elem)
		return
	}

	e := &entry[T]{
		uri:        doc.URI,
		value:      value,
		revision:   doc.Revision,
		lastAccess: now,
	}
	e.elem = c.lru.PushFront(e)
	c.entries[doc.URI] = e

	for c.lru.Len() > c.cfg.MaxEntries {
		oldest := c.lru.Back().Value.(*entry[T])
		c.drop(oldest)
		c.evictions.Add(1)
		log.Debugf("%s: evicted %s", c.name, oldest.uri)
	}
}

// drop must be called with mu held.
func (c *Cache[T]) drop(e *entry[T]) {
	c.lru.Remove(e.elem)
	delete(c.entries, e.uri)
}

// Remove discards the entry for uri, if any.
func (c *Cache[T]) Remove(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[uri]; ok {
		c.drop(e)
	}
}

// Contains reports whether uri has an entry, whatever its revision. It does
// not count as an access.
func (c *Cache[T]) Contains(uri string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[uri]
	return ok
}

func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes every entry idle for longer than MaxAge and returns how
// many were removed.
func (c *Cache[T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*entry[T])
		if now.Sub(e.lastAccess) > c.cfg.MaxAge {
			c.drop(e)
			removed++
		}
		el = prev
	}
	c.expirations.Add(uint64(removed))
	return removed
}

func (c *Cache[T]) run(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				log.Debugf("%s: expired %d entries", c.name, n)
			}
		case <-c.stop:
			return
		}
	}
}

// Dispose stops the sweeper and releases every entry. Later calls to Get
// still produce values but no longer store them.
func (c *Cache[T]) Dispose() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done

	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	clear(c.entries)
	c.lru.Init()
}

func (c *Cache[T]) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
		Failures:    c.failures.Load(),
		Entries:     c.Len(),
	}
}
