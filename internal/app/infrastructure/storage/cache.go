package storage

import (
	"github.com/maypok86/otter/v2"
	"sync"
	"time"
)

// Cache is an in-memory TTL cache that can optionally be mirrored to a JSON
// file so warm entries survive restarts.
type Cache[T any] struct {
	outer *otter.Cache[string, T]
	ttl   time.Duration

	file    *JSONFile[map[string]T]
	flushMu sync.Mutex
}

func NewCache[T any](capacity int, ttl time.Duration, filePath string) (*Cache[T], error) {
	opts := &otter.Options[string, T]{
		InitialCapacity: capacity,
	}
	if ttl > 0 {
		opts.ExpiryCalculator = otter.ExpiryWriting[string, T](ttl)
	}

	c := &Cache[T]{
		outer: otter.Must(opts),
		ttl:   ttl,
	}

	if filePath != "" {
		c.file = NewJSONFile[map[string]T](filePath)
		if err := c.loadFromDisk(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Cache[T]) Set(key string, val T) {
	c.outer.Set(key, val)
}

func (c *Cache[T]) Get(key string) (T, bool) {
	return c.outer.GetIfPresent(key)
}

func (c *Cache[T]) ClearKey(key string) {
	c.outer.Invalidate(key)
}

func (c *Cache[T]) ClearAll() {
	c.outer.InvalidateAll()
}

func (c *Cache[T]) Len() int {
	return c.outer.EstimatedSize()
}

// FlushToDisk writes the live entries to the backing file, if any.
func (c *Cache[T]) FlushToDisk() error {
	if c.file == nil {
		return nil
	}

	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	cacheData := make(map[string]T)
	for k, v := range c.outer.All() {
		cacheData[k] = v
	}
	return c.file.Save(cacheData)
}

func (c *Cache[T]) loadFromDisk() error {
	items, err := c.file.Load()
	if err != nil {
		return err
	}

	for k, v := range items {
		c.outer.Set(k, v)
	}
	return nil
}
