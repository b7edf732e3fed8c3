// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package plain

import (
	"fmt"
	"testing"

	"github.com/shale-db/shale/internal/base"
	"github.com/shale-db/shale/storage"
	"github.com/stretchr/testify/require"
)

func ikey(userKey string, seq uint64, kind base.InternalKeyKind) base.InternalKey {
	return base.MakeInternalKey([]byte(userKey), base.SeqNum(seq), kind)
}

func setKey(userKey string, seq uint64) base.InternalKey {
	return ikey(userKey, seq, base.InternalKeyKindSet)
}

func buildPlainTable(t *testing.T, o WriterOptions, add func(w *Writer)) []byte {
	t.Helper()
	f := &storage.MemFile{}
	w := NewWriter(f, o)
	add(w)
	require.NoError(t, w.Finish())
	require.Equal(t, uint64(len(f.Data())), w.FileSize())
	return f.Data()
}

func openPlainTable(t *testing.T, data []byte, o ReaderOptions) *Reader {
	t.Helper()
	r, err := NewReader(storage.NewMemReadable(data, storage.NextUniqueID()), o)
	require.NoError(t, err)
	return r
}

func TestPlainRoundTrip(t *testing.T) {
	const n = 200
	var keys []base.InternalKey
	var values [][]byte
	for i := 0; i < n; i++ {
		keys = append(keys, setKey(fmt.Sprintf("key%06d", i), 7))
		values = append(values, []byte(fmt.Sprintf("value%d", i)))
	}

	data := buildPlainTable(t, WriterOptions{}, func(w *Writer) {
		for i := range keys {
			require.NoError(t, w.Add(keys[i], values[i]))
		}
	})
	r := openPlainTable(t, data, ReaderOptions{})

	// Forward scan.
	it := r.NewIter()
	for i := 0; i < n; i++ {
		if i == 0 {
			require.True(t, it.First())
		} else {
			require.True(t, it.Next())
		}
		require.Equal(t, keys[i].UserKey, it.Key().UserKey)
		require.Equal(t, values[i], it.Value())
	}
	require.False(t, it.Next())
	require.NoError(t, it.Error())

	// Backward scan.
	for i := n - 1; i >= 0; i-- {
		if i == n-1 {
			require.True(t, it.Last())
		} else {
			require.True(t, it.Prev())
		}
		require.Equal(t, keys[i].UserKey, it.Key().UserKey)
	}
	require.False(t, it.Prev())
	require.NoError(t, it.Error())

	// SeekGE to every key, and to predecessors of every key.
	for i := 0; i < n; i++ {
		require.True(t, it.SeekGE(base.MakeSearchKey(keys[i].UserKey)))
		require.Equal(t, keys[i].UserKey, it.Key().UserKey)

		target := append(append([]byte(nil), keys[i].UserKey...), 0x00)
		if i+1 < n {
			require.True(t, it.SeekGE(base.MakeSearchKey(target)))
			require.Equal(t, keys[i+1].UserKey, it.Key().UserKey)
		} else {
			require.False(t, it.SeekGE(base.MakeSearchKey(target)))
		}
	}
	require.NoError(t, it.Close())

	// Point lookups.
	for i := 0; i < n; i++ {
		v, err := r.Get(keys[i].UserKey)
		require.NoError(t, err)
		require.Equal(t, values[i], v)
	}
	_, err := r.Get([]byte("missing"))
	require.Equal(t, base.ErrNotFound, err)
}

func TestPlainVersionsAndDeletes(t *testing.T) {
	data := buildPlainTable(t, WriterOptions{}, func(w *Writer) {
		// Multiple versions per user key, newest (highest seqnum) first.
		require.NoError(t, w.Add(setKey("apple", 9), []byte("new")))
		require.NoError(t, w.Add(setKey("apple", 3), []byte("old")))
		require.NoError(t, w.Add(ikey("banana", 8, base.InternalKeyKindDelete), nil))
		require.NoError(t, w.Add(setKey("banana", 2), []byte("shadowed")))
		require.NoError(t, w.Add(setKey("cherry", 5), []byte("c")))
	})
	r := openPlainTable(t, data, ReaderOptions{})

	v, err := r.Get([]byte("apple"))
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)

	// The newest version of banana is a deletion.
	_, err = r.Get([]byte("banana"))
	require.Equal(t, base.ErrNotFound, err)

	v, err = r.Get([]byte("cherry"))
	require.NoError(t, err)
	require.Equal(t, []byte("c"), v)

	// A search key seeks to the newest version.
	it := r.NewIter()
	require.True(t, it.SeekGE(base.MakeSearchKey([]byte("apple"))))
	require.Equal(t, base.SeqNum(9), it.Key().SeqNum())
	require.True(t, it.Next())
	require.Equal(t, base.SeqNum(3), it.Key().SeqNum())
	require.NoError(t, it.Close())
}

func TestPlainPrefixMode(t *testing.T) {
	extractor := base.FixedPrefixExtractor(4)
	entries := []struct {
		key   string
		value string
	}{
		{"useA-1", "a1"},
		{"useA-2", "a2"},
		{"useB-1", "b1"},
		{"useB-2", "b2"},
		{"useB-3", "b3"},
		{"useC-1", "c1"},
	}

	data := buildPlainTable(t, WriterOptions{PrefixExtractor: extractor}, func(w *Writer) {
		for _, e := range entries {
			require.NoError(t, w.Add(setKey(e.key, 1), []byte(e.value)))
		}
	})
	r := openPlainTable(t, data, ReaderOptions{PrefixExtractor: extractor})
	require.Equal(t, extractor.Name(), r.Properties().PrefixExtractorName)

	// Seek within a bucket lands on the sought key; the forward scan then
	// crosses bucket boundaries in key order.
	it := r.NewIter()
	require.True(t, it.SeekGE(base.MakeSearchKey([]byte("useB-2"))))
	require.Equal(t, []byte("useB-2"), it.Key().UserKey)
	require.True(t, it.Next())
	require.Equal(t, []byte("useB-3"), it.Key().UserKey)
	require.True(t, it.Next())
	require.Equal(t, []byte("useC-1"), it.Key().UserKey)
	require.False(t, it.Next())

	// Seeking past every key of a bucket exhausts it forward.
	require.True(t, it.SeekGE(base.MakeSearchKey([]byte("useB-9"))))
	require.Equal(t, []byte("useC-1"), it.Key().UserKey)

	// A prefix absent from the bucket table finds nothing, even though
	// larger keys exist in the table.
	require.False(t, it.SeekGE(base.MakeSearchKey([]byte("useD-1"))))
	require.NoError(t, it.Error())

	// First works; Last and Prev are unsupported and report invalid
	// without error.
	require.True(t, it.First())
	require.Equal(t, []byte("useA-1"), it.Key().UserKey)
	require.False(t, it.Last())
	require.NoError(t, it.Error())
	require.True(t, it.SeekGE(base.MakeSearchKey([]byte("useB-1"))))
	require.False(t, it.Prev())
	require.NoError(t, it.Error())
	require.NoError(t, it.Close())

	// Point lookups go through the bucket table too.
	v, err := r.Get([]byte("useB-3"))
	require.NoError(t, err)
	require.Equal(t, []byte("b3"), v)
	_, err = r.Get([]byte("useD-1"))
	require.Equal(t, base.ErrNotFound, err)
}

func TestPlainProperties(t *testing.T) {
	const n = 50
	data := buildPlainTable(t, WriterOptions{}, func(w *Writer) {
		for i := 0; i < n; i++ {
			require.NoError(t, w.Add(setKey(fmt.Sprintf("key%03d", i), 1), []byte("xyz")))
		}
	})
	r := openPlainTable(t, data, ReaderOptions{})

	props := r.Properties()
	require.Equal(t, base.DefaultComparer.Name, props.ComparerName)
	require.Equal(t, uint64(n), props.NumEntries)
	// The data region is a single logical block and there is no persisted
	// index.
	require.Equal(t, uint64(1), props.NumDataBlocks)
	require.Equal(t, uint64(0), props.IndexSize)
	require.Equal(t, uint64(n*(6+8)), props.RawKeySize)
	require.Equal(t, uint64(n*3), props.RawValueSize)
	require.Greater(t, props.DataSize, uint64(0))
	require.Empty(t, props.PrefixExtractorName)
}

func TestPlainApproximateOffset(t *testing.T) {
	big := make([]byte, 100000)
	data := buildPlainTable(t, WriterOptions{}, func(w *Writer) {
		require.NoError(t, w.Add(setKey("k01", 1), []byte("small")))
		require.NoError(t, w.Add(setKey("k02", 1), big))
		require.NoError(t, w.Add(setKey("k03", 1), []byte("small")))
	})
	r := openPlainTable(t, data, ReaderOptions{})

	require.Equal(t, uint64(0), r.ApproximateOffsetOf([]byte("a")))
	require.Equal(t, uint64(0), r.ApproximateOffsetOf([]byte("k01")))
	require.Less(t, r.ApproximateOffsetOf([]byte("k02")), uint64(1000))
	require.Greater(t, r.ApproximateOffsetOf([]byte("k03")), uint64(100000))
	// Past the last key the estimate is the size of the data region.
	require.Equal(t, r.Properties().DataSize, r.ApproximateOffsetOf([]byte("z")))

	// Offsets are monotone in the key.
	var prev uint64
	for _, key := range []string{"a", "k01", "k02", "k03", "z"} {
		off := r.ApproximateOffsetOf([]byte(key))
		require.GreaterOrEqual(t, off, prev)
		prev = off
	}
}

func TestPlainEmptyTable(t *testing.T) {
	data := buildPlainTable(t, WriterOptions{}, func(w *Writer) {})
	r := openPlainTable(t, data, ReaderOptions{})

	require.Equal(t, uint64(0), r.Properties().NumEntries)
	_, err := r.Get([]byte("a"))
	require.Equal(t, base.ErrNotFound, err)

	it := r.NewIter()
	require.False(t, it.First())
	require.False(t, it.Last())
	require.False(t, it.SeekGE(base.MakeSearchKey([]byte("a"))))
	require.NoError(t, it.Close())
}

func TestPlainAbandon(t *testing.T) {
	f := &storage.MemFile{}
	w := NewWriter(f, WriterOptions{})
	require.NoError(t, w.Add(setKey("a", 1), []byte("1")))
	require.NoError(t, w.Abandon())

	// No footer was written; the partial output does not open as a table.
	_, err := NewReader(storage.NewMemReadable(f.Data(), 1), ReaderOptions{})
	require.Error(t, err)
	require.True(t, base.IsCorruptionError(err))

	// The writer is unusable after Abandon.
	require.Error(t, w.Add(setKey("b", 1), []byte("2")))
	require.Error(t, w.Finish())
}

func TestPlainCorruption(t *testing.T) {
	t.Run("bad-magic", func(t *testing.T) {
		data := buildPlainTable(t, WriterOptions{}, func(w *Writer) {
			require.NoError(t, w.Add(setKey("a", 1), []byte("1")))
		})
		data = append([]byte(nil), data...)
		copy(data[len(data)-8:], "notmagic")
		_, err := NewReader(storage.NewMemReadable(data, 1), ReaderOptions{})
		require.Error(t, err)
		require.True(t, base.IsCorruptionError(err))
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := NewReader(storage.NewMemReadable([]byte("short"), 1), ReaderOptions{})
		require.Error(t, err)
		require.True(t, base.IsCorruptionError(err))
	})

	t.Run("malformed-record", func(t *testing.T) {
		data := buildPlainTable(t, WriterOptions{}, func(w *Writer) {
			require.NoError(t, w.Add(setKey("aaaaaaaa", 1), []byte("11111111")))
			require.NoError(t, w.Add(setKey("bbbbbbbb", 1), []byte("22222222")))
		})
		// Blow up the first record's key length so it overruns the data
		// region. The open-time index scan detects it.
		data = append([]byte(nil), data...)
		data[0] = 0xff
		_, err := NewReader(storage.NewMemReadable(data, 1), ReaderOptions{})
		require.Error(t, err)
		require.True(t, base.IsCorruptionError(err))
	})
}
