// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package cache implements the shared block cache.
//
// Blocks are keyed by a (fileID, offset) pair. The fileID namespaces block
// offsets and must be stable across re-opening a reader on the same physical
// file, so cached blocks survive reopens; see storage.Readable.UniqueID. The
// cache holds decoded (decompressed) block bytes and charges each entry by
// its byte size.
//
// Entries are evicted in least-recently-used order under capacity pressure. A
// single Cache may be shared by any number of readers; all methods are safe
// for concurrent use.
package cache

import "sync"

// Key identifies one cached block.
type Key struct {
	FileID uint64
	Offset uint64
}

type entry struct {
	key        Key
	value      []byte
	prev, next *entry
}

// Metrics holds counters for the cache.
type Metrics struct {
	// The number of bytes inuse by the cache.
	Size int64
	// The count of objects in the cache.
	Count int64
	// The number of cache hits.
	Hits int64
	// The number of cache misses.
	Misses int64
}

// Cache is a capacity-bounded LRU cache of decoded blocks.
type Cache struct {
	mu       sync.Mutex
	capacity int64
	usage    int64
	table    map[Key]*entry
	// Intrusive circular list. root.next is the most recently used entry,
	// root.prev the eviction candidate.
	root   entry
	hits   int64
	misses int64
}

// New returns a cache holding up to capacity bytes of block data.
func New(capacity int64) *Cache {
	c := &Cache{
		capacity: capacity,
		table:    make(map[Key]*entry),
	}
	c.root.prev = &c.root
	c.root.next = &c.root
	return c
}

func (c *Cache) unlink(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *Cache) pushFront(e *entry) {
	e.prev = &c.root
	e.next = c.root.next
	e.prev.next = e
	e.next.prev = e
}

// Get returns the block cached under k and whether it was present. A present
// block is promoted to most recently used.
func (c *Cache) Get(k Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.table[k]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.unlink(e)
	c.pushFront(e)
	return e.value, true
}

// Set inserts the block under k, charging the cache by len(value). An
// existing entry under the same key is replaced. Insertion may trigger
// eviction, and a value larger than the whole cache is evicted immediately;
// the caller keeps its reference to value either way.
func (c *Cache) Set(k Key, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.table[k]; ok {
		c.usage += int64(len(value)) - int64(len(e.value))
		e.value = value
		c.unlink(e)
		c.pushFront(e)
	} else {
		e := &entry{key: k, value: value}
		c.table[k] = e
		c.pushFront(e)
		c.usage += int64(len(value))
	}
	for c.usage > c.capacity && c.root.prev != &c.root {
		c.evict(c.root.prev)
	}
}

// Delete removes the entry under k, if present.
func (c *Cache) Delete(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.table[k]; ok {
		c.evict(e)
	}
}

// EvictFile removes every entry belonging to the given file. Hosts call this
// when a table file is deleted.
func (c *Cache) EvictFile(fileID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for e := c.root.next; e != &c.root; {
		next := e.next
		if e.key.FileID == fileID {
			c.evict(e)
		}
		e = next
	}
}

func (c *Cache) evict(e *entry) {
	c.unlink(e)
	delete(c.table, e.key)
	c.usage -= int64(len(e.value))
}

// Metrics returns a snapshot of the cache counters.
func (c *Cache) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Metrics{
		Size:   c.usage,
		Count:  int64(len(c.table)),
		Hits:   c.hits,
		Misses: c.misses,
	}
}
