package transform

import (
	"cmp"
	"context"
	"slices"
)

// Cache is the in-memory aggregate table of one transformer. It is not safe
// for concurrent use.
type Cache[K cmp.Ordered, V any] struct {
	items map[K]V
	dirty bool
}

func NewCache[K cmp.Ordered, V any]() *Cache[K, V] {
	return &Cache[K, V]{items: make(map[K]V)}
}

// Hydrate fills an empty table from load. A non-empty table is left alone.
func (c *Cache[K, V]) Hydrate(ctx context.Context, load func(context.Context) (map[K]V, error)) (bool, error) {
	if len(c.items) > 0 {
		return false, nil
	}
	items, err := load(ctx)
	if err != nil {
		return false, err
	}
	for k, v := range items {
		c.items[k] = v
	}
	return true, nil
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.items[key]
	return v, ok
}

func (c *Cache[K, V]) Put(key K, value V) {
	c.items[key] = value
}

func (c *Cache[K, V]) Len() int {
	return len(c.items)
}

// Keys returns the keys in ascending order.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (c *Cache[K, V]) MarkDirty()  { c.dirty = true }
func (c *Cache[K, V]) Dirty() bool { return c.dirty }
func (c *Cache[K, V]) ClearDirty() { c.dirty = false }

// Reset empties the table and clears the dirty flag.
func (c *Cache[K, V]) Reset() {
	c.items = make(map[K]V)
	c.dirty = false
}
