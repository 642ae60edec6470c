// Package cache implements the verdict memoization layer behind the
// repository.Cache contract, with in-memory and redis drivers.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"stayonboard-server-go/internal/domain/validation/repository"
)

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

type memoryCache struct {
	mutex    sync.Mutex
	entries  map[string]*list.Element
	order    *list.List
	capacity int
	ttl      time.Duration
	group    singleflight.Group
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory builds an LRU cache with TTL expiry. Least recently used entries
// are evicted once capacity is reached.
func NewMemory(capacity int, ttl time.Duration) repository.Cache {
	if capacity <= 0 {
		capacity = 1024
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &memoryCache{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go c.gcLoop()
	return c
}

func (c *memoryCache) gcLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *memoryCache) evictExpired() {
	now := time.Now()
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if entry := el.Value.(*memoryEntry); now.After(entry.expiresAt) {
			c.order.Remove(el)
			delete(c.entries, entry.key)
		}
		el = prev
	}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	entry := el.Value.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, key)
		return nil, false, nil
	}
	c.order.MoveToFront(el)
	return entry.value, true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(el)
		return nil
	}

	el := c.order.PushFront(&memoryEntry{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
	c.entries[key] = el

	for len(c.entries) > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*memoryEntry).key)
	}
	return nil
}

func (c *memoryCache) ComputeOnce(
	ctx context.Context,
	key string,
	compute func(ctx context.Context) ([]byte, error),
) ([]byte, bool, error) {
	if value, ok, err := c.Get(ctx, key); err == nil && ok {
		return value, true, nil
	}

	type result struct {
		value []byte
		hit   bool
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		// A concurrent caller may have filled the slot while we waited
		// for the flight lock.
		if value, ok, err := c.Get(ctx, key); err == nil && ok {
			return result{value: value, hit: true}, nil
		}
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, key, value); err != nil {
			return nil, err
		}
		return result{value: value}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := v.(result)
	return r.value, r.hit, nil
}

func (c *memoryCache) Invalidate(_ context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
	return nil
}

func (c *memoryCache) Close(_ context.Context) error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}
