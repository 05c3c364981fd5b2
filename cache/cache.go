// Package cache keeps successful remote replies in memory for a short time.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/steel-scraper/models"
)

// Upstream is the collaborator being cached. It matches scraper.Fetcher.
type Upstream interface {
	Scrape(ctx context.Context, req *models.RemoteScrapeRequest) (*models.RemoteReply, error)
	Health(ctx context.Context) error
	Info(ctx context.Context) (*models.RemoteInfo, error)
}

// entry holds a cached reply with its creation timestamp.
type entry struct {
	reply     *models.RemoteReply
	createdAt time.Time
}

// Cache decorates an Upstream, serving repeated identical visits from memory.
// Only 2xx replies are stored. Health and Info pass through. It is safe for
// concurrent use.
type Cache struct {
	upstream   Upstream
	ttl        time.Duration
	maxEntries int
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.RWMutex
	store map[string]*entry

	stop chan struct{}
	once sync.Once
}

// New creates a Cache in front of upstream. A background goroutine evicts
// expired entries every ttl until Close is called.
func New(upstream Upstream, ttl time.Duration, maxEntries int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	c := &Cache{
		upstream:   upstream,
		ttl:        ttl,
		maxEntries: maxEntries,
		logger:     logger,
		now:        time.Now,
		store:      make(map[string]*entry),
		stop:       make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Key derives the cache key from every field that changes the reply.
func Key(req *models.RemoteScrapeRequest) string {
	h := sha256.New()
	parts := []string{
		req.URL,
		strings.Join(req.Format, ","),
		strconv.FormatBool(req.Screenshot),
		strconv.FormatBool(req.PDF),
		req.ProxyURL,
		strconv.FormatFloat(req.Delay, 'f', -1, 64),
	}
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

// Scrape returns a cached reply when a fresh one exists, otherwise calls the
// upstream and stores a successful reply. Requests with a log URL bypass the
// cache so the remote still sees them.
func (c *Cache) Scrape(ctx context.Context, req *models.RemoteScrapeRequest) (*models.RemoteReply, error) {
	if req.LogURL != "" {
		return c.upstream.Scrape(ctx, req)
	}

	key := Key(req)
	if reply, ok := c.Get(key); ok {
		c.logger.Debug("cache hit", "url", req.URL)
		return reply, nil
	}

	reply, err := c.upstream.Scrape(ctx, req)
	if err != nil {
		return nil, err
	}
	if reply.OK() && reply.Body != nil {
		c.Set(key, reply)
	}
	return reply, nil
}

// Health passes through to the upstream.
func (c *Cache) Health(ctx context.Context) error {
	return c.upstream.Health(ctx)
}

// Info passes through to the upstream.
func (c *Cache) Info(ctx context.Context) (*models.RemoteInfo, error) {
	return c.upstream.Info(ctx)
}

// Get retrieves a cached reply if it exists and is younger than the TTL.
func (c *Cache) Get(key string) (*models.RemoteReply, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.createdAt) > c.ttl {
		return nil, false
	}
	return e.reply, true
}

// Set stores a reply. If the cache is at capacity, a random entry is evicted
// to make room.
func (c *Cache) Set(key string, reply *models.RemoteReply) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		reply:     reply,
		createdAt: c.now(),
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache) evictExpired() {
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}
