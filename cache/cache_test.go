// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheBasic(t *testing.T) {
	c := New(100)

	_, ok := c.Get(Key{1, 0})
	require.False(t, ok)

	c.Set(Key{1, 0}, []byte("hello"))
	v, ok := c.Get(Key{1, 0})
	require.True(t, ok)
	require.Equal(t, "hello", string(v))

	m := c.Metrics()
	require.Equal(t, int64(5), m.Size)
	require.Equal(t, int64(1), m.Count)
	require.Equal(t, int64(1), m.Hits)
	require.Equal(t, int64(1), m.Misses)
}

func TestCacheReplace(t *testing.T) {
	c := New(100)
	c.Set(Key{1, 0}, []byte("short"))
	c.Set(Key{1, 0}, []byte("a longer value"))

	v, ok := c.Get(Key{1, 0})
	require.True(t, ok)
	require.Equal(t, "a longer value", string(v))

	m := c.Metrics()
	require.Equal(t, int64(1), m.Count)
	require.Equal(t, int64(14), m.Size)
}

func TestCacheEvictionOrder(t *testing.T) {
	c := New(30)
	for i := uint64(0); i < 3; i++ {
		c.Set(Key{1, i * 100}, make([]byte, 10))
	}
	require.Equal(t, int64(3), c.Metrics().Count)

	// Touch the oldest entry so it moves to the front.
	_, ok := c.Get(Key{1, 0})
	require.True(t, ok)

	// Inserting one more evicts the least recently used entry, which is now
	// the one at offset 100.
	c.Set(Key{1, 300}, make([]byte, 10))
	_, ok = c.Get(Key{1, 100})
	require.False(t, ok)
	_, ok = c.Get(Key{1, 0})
	require.True(t, ok)
	_, ok = c.Get(Key{1, 200})
	require.True(t, ok)
	_, ok = c.Get(Key{1, 300})
	require.True(t, ok)
}

func TestCacheChargeByValueSize(t *testing.T) {
	c := New(100)
	c.Set(Key{1, 0}, make([]byte, 60))
	c.Set(Key{1, 100}, make([]byte, 60))

	// The first entry was evicted to make room.
	_, ok := c.Get(Key{1, 0})
	require.False(t, ok)
	_, ok = c.Get(Key{1, 100})
	require.True(t, ok)
	require.Equal(t, int64(60), c.Metrics().Size)
}

func TestCacheOverCapacityValue(t *testing.T) {
	// A value larger than the whole cache evicts everything, itself
	// included.
	c := New(10)
	c.Set(Key{1, 0}, make([]byte, 5))
	c.Set(Key{1, 100}, make([]byte, 50))

	require.Zero(t, c.Metrics().Count)
	require.Zero(t, c.Metrics().Size)
	_, ok := c.Get(Key{1, 100})
	require.False(t, ok)
}

func TestCacheDelete(t *testing.T) {
	c := New(100)
	c.Set(Key{1, 0}, []byte("x"))
	c.Delete(Key{1, 0})
	_, ok := c.Get(Key{1, 0})
	require.False(t, ok)
	require.Zero(t, c.Metrics().Count)

	// Deleting a missing key is a no-op.
	c.Delete(Key{9, 9})
}

func TestCacheEvictFile(t *testing.T) {
	c := New(1000)
	for f := uint64(1); f <= 3; f++ {
		for off := uint64(0); off < 300; off += 100 {
			c.Set(Key{FileID: f, Offset: off}, []byte("block"))
		}
	}
	require.Equal(t, int64(9), c.Metrics().Count)

	c.EvictFile(2)
	require.Equal(t, int64(6), c.Metrics().Count)
	for off := uint64(0); off < 300; off += 100 {
		_, ok := c.Get(Key{FileID: 2, Offset: off})
		require.False(t, ok)
		_, ok = c.Get(Key{FileID: 1, Offset: off})
		require.True(t, ok)
		_, ok = c.Get(Key{FileID: 3, Offset: off})
		require.True(t, ok)
	}
}

func TestCacheDistinctFilesDistinctKeys(t *testing.T) {
	// The same offset under different file ids refers to different blocks.
	c := New(100)
	c.Set(Key{FileID: 1, Offset: 0}, []byte("one"))
	c.Set(Key{FileID: 2, Offset: 0}, []byte("two"))
	v, ok := c.Get(Key{FileID: 1, Offset: 0})
	require.True(t, ok)
	require.Equal(t, "one", string(v))
	v, ok = c.Get(Key{FileID: 2, Offset: 0})
	require.True(t, ok)
	require.Equal(t, "two", string(v))
}

func TestCacheConcurrent(t *testing.T) {
	c := New(1 << 16)
	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 1000; i++ {
				k := Key{FileID: uint64(g), Offset: uint64(i % 37)}
				c.Set(k, []byte(fmt.Sprintf("%d-%d", g, i%37)))
				if v, ok := c.Get(k); ok {
					require.Equal(t, fmt.Sprintf("%d-%d", g, i%37), string(v))
				}
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}
}
