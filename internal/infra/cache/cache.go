// Package cache provides a small in-memory TTL cache used for quote batches
// and dashboard insights.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemory is a thread-safe in-memory cache with TTL.
type InMemory[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// New creates a new in-memory cache with the given TTL and starts the
// janitor. Call Close to stop it.
func New[T any](ttl time.Duration) *InMemory[T] {
	if ttl <= 0 {
		ttl = time.Minute
	}
	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Get retrieves a value. Returns false if not found or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || c.now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the configured TTL.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Delete removes a value.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len returns the number of live entries.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	now := c.now()
	for _, e := range c.items {
		if !now.After(e.expiresAt) {
			n++
		}
	}
	return n
}

// Close stops the janitor goroutine. Safe to call more than once.
func (c *InMemory[T]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *InMemory[T]) janitor() {
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

func (c *InMemory[T]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, v := range c.items {
		if now.After(v.expiresAt) {
			delete(c.items, k)
		}
	}
}
