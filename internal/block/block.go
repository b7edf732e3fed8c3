// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package block implements the sorted-block codec shared by the table
// formats: entries delta-compressed against restart points, the block handle
// and footer wire forms, block trailers with checksums, and the encoding of
// the properties and metaindex meta blocks.
package block

import (
	"encoding/binary"
	"sort"

	"github.com/shale-db/shale/internal/base"
)

// KeyCoder abstracts how keys are stored within a block. Data and index
// blocks store full internal keys; meta blocks (metaindex, properties) store
// raw byte strings.
type KeyCoder interface {
	Size(key *base.InternalKey) int
	Encode(key *base.InternalKey, buf []byte)
	Decode(buf []byte) base.InternalKey
}

type internalKeyCoder struct{}

func (internalKeyCoder) Size(key *base.InternalKey) int { return key.Size() }

func (internalKeyCoder) Encode(key *base.InternalKey, buf []byte) { key.Encode(buf) }

func (internalKeyCoder) Decode(buf []byte) base.InternalKey {
	return base.DecodeInternalKey(buf)
}

type rawKeyCoder struct{}

func (rawKeyCoder) Size(key *base.InternalKey) int { return len(key.UserKey) }

func (rawKeyCoder) Encode(key *base.InternalKey, buf []byte) { copy(buf, key.UserKey) }

func (rawKeyCoder) Decode(buf []byte) base.InternalKey {
	return base.InternalKey{UserKey: buf}
}

// InternalKeyCoder stores keys as encoded internal keys (user key plus
// 8-byte trailer).
var InternalKeyCoder KeyCoder = internalKeyCoder{}

// RawKeyCoder stores keys as raw byte strings.
var RawKeyCoder KeyCoder = rawKeyCoder{}

// Writer builds a single block. Entries must be added in increasing key
// order. Within every span of restartInterval entries keys are stored as
// (shared prefix length, unshared suffix); each span starts with a full key
// whose offset is recorded in the trailing restart point array.
type Writer struct {
	coder           KeyCoder
	restartInterval int
	nEntries        int
	buf             []byte
	restarts        []uint32
	curKey          []byte
	prevKey         []byte
	tmp             [3 * binary.MaxVarintLen64]byte
}

// NewWriter returns a block writer using the given key coder and restart
// interval.
func NewWriter(coder KeyCoder, restartInterval int) *Writer {
	return &Writer{
		coder:           coder,
		restartInterval: restartInterval,
	}
}

// Add appends an entry. The key must be greater than any previously added
// key; this is the caller's responsibility and is not checked.
func (w *Writer) Add(key base.InternalKey, value []byte) {
	w.curKey, w.prevKey = w.prevKey, w.curKey

	size := w.coder.Size(&key)
	if cap(w.curKey) < size {
		w.curKey = make([]byte, 0, size*2)
	}
	w.curKey = w.curKey[:size]
	w.coder.Encode(&key, w.curKey)

	shared := 0
	if w.nEntries%w.restartInterval == 0 {
		w.restarts = append(w.restarts, uint32(len(w.buf)))
	} else {
		shared = base.SharedPrefixLen(w.curKey, w.prevKey)
	}

	n := binary.PutUvarint(w.tmp[0:], uint64(shared))
	n += binary.PutUvarint(w.tmp[n:], uint64(size-shared))
	n += binary.PutUvarint(w.tmp[n:], uint64(len(value)))
	w.buf = append(w.buf, w.tmp[:n]...)
	w.buf = append(w.buf, w.curKey[shared:]...)
	w.buf = append(w.buf, value...)

	w.nEntries++
}

// AddRaw appends an entry keyed by a raw byte string. It is a convenience
// for meta blocks built with RawKeyCoder.
func (w *Writer) AddRaw(key, value []byte) {
	w.Add(base.InternalKey{UserKey: key}, value)
}

// Finish appends the restart point array and returns the finished block. The
// writer retains ownership of the returned slice until Reset.
func (w *Writer) Finish() []byte {
	if w.nEntries == 0 {
		// Every block must have at least one restart point.
		w.restarts = append(w.restarts[:0], 0)
	}
	var tmp4 [4]byte
	for _, x := range w.restarts {
		binary.LittleEndian.PutUint32(tmp4[:], x)
		w.buf = append(w.buf, tmp4[:]...)
	}
	binary.LittleEndian.PutUint32(tmp4[:], uint32(len(w.restarts)))
	w.buf = append(w.buf, tmp4[:]...)
	return w.buf
}

// Size returns the size of the block if it were finished now.
func (w *Writer) Size() int {
	n := len(w.restarts)
	if n == 0 {
		n = 1
	}
	return len(w.buf) + 4*(n+1)
}

// EntryCount returns the number of entries added since the last Reset.
func (w *Writer) EntryCount() int { return w.nEntries }

// Reset clears the writer for reuse.
func (w *Writer) Reset() {
	w.nEntries = 0
	w.buf = w.buf[:0]
	w.restarts = w.restarts[:0]
	w.curKey = w.curKey[:0]
	w.prevKey = w.prevKey[:0]
}

type iterEntry struct {
	offset int
	key    []byte
	val    []byte
}

// Iter is an iterator over a single block. It implements
// base.InternalIterator.
//
// A decode failure latches into the error status: the iterator reports
// invalid until repositioned by a fresh seek. Errors are local to the block;
// other blocks of the same table remain readable.
type Iter struct {
	cmp         base.Compare
	coder       KeyCoder
	data        []byte
	offset      int
	nextOffset  int
	restarts    int
	numRestarts int
	key         []byte
	ikey        base.InternalKey
	val         []byte
	// cached entries between the preceding restart point and the current
	// offset, used to step backward without re-decoding from the restart
	// point on every Prev.
	cached    []iterEntry
	cachedBuf []byte
	err       error
}

var _ base.InternalIterator = (*Iter)(nil)

// NewIter returns an iterator over data, which must be a finished block
// (restart array included, trailer excluded).
func NewIter(cmp base.Compare, coder KeyCoder, data []byte) (*Iter, error) {
	i := &Iter{}
	if err := i.Init(cmp, coder, data); err != nil {
		return nil, err
	}
	return i, nil
}

// Init initializes an iterator in place, allowing reuse across blocks.
func (i *Iter) Init(cmp base.Compare, coder KeyCoder, data []byte) error {
	if len(data) < 4 {
		return base.CorruptionErrorf("shale/block: invalid block (truncated restart count)")
	}
	numRestarts := int(binary.LittleEndian.Uint32(data[len(data)-4:]))
	if numRestarts == 0 {
		return base.CorruptionErrorf("shale/block: invalid block (no restart points)")
	}
	restarts := len(data) - 4*(1+numRestarts)
	if restarts < 0 {
		return base.CorruptionErrorf("shale/block: invalid block (restart array overruns block)")
	}
	*i = Iter{
		cmp:         cmp,
		coder:       coder,
		data:        data,
		offset:      -1,
		restarts:    restarts,
		numRestarts: numRestarts,
		key:         make([]byte, 0, 256),
	}
	return nil
}

func (i *Iter) restartPoint(index int) int {
	return int(binary.LittleEndian.Uint32(i.data[i.restarts+4*index:]))
}

func (i *Iter) corrupt() bool {
	i.err = base.CorruptionErrorf("shale/block: invalid block (malformed entry)")
	i.offset = -1
	return false
}

// readEntry decodes the entry at i.offset, leaving the reconstructed key in
// i.key, the value in i.val and the following entry's offset in
// i.nextOffset. It reports false on malformed data, latching the error.
func (i *Iter) readEntry() bool {
	shared, n0 := binary.Uvarint(i.data[i.offset:i.restarts])
	if n0 <= 0 {
		return i.corrupt()
	}
	o := i.offset + n0
	unshared, n1 := binary.Uvarint(i.data[o:i.restarts])
	if n1 <= 0 {
		return i.corrupt()
	}
	o += n1
	value, n2 := binary.Uvarint(i.data[o:i.restarts])
	if n2 <= 0 {
		return i.corrupt()
	}
	o += n2
	if uint64(shared) > uint64(len(i.key)) ||
		o+int(unshared)+int(value) > i.restarts {
		return i.corrupt()
	}
	i.key = append(i.key[:shared], i.data[o:o+int(unshared)]...)
	i.key = i.key[:len(i.key):len(i.key)]
	o += int(unshared)
	i.val = i.data[o : o+int(value) : o+int(value)]
	i.nextOffset = o + int(value)
	return true
}

func (i *Iter) loadEntry() bool {
	if i.offset < 0 || i.offset >= i.restarts {
		i.offset = -1
		return false
	}
	if !i.readEntry() {
		return false
	}
	i.ikey = i.coder.Decode(i.key)
	return true
}

func (i *Iter) clearCache() {
	i.cached = i.cached[:0]
	i.cachedBuf = i.cachedBuf[:0]
}

func (i *Iter) cacheEntry() {
	i.cachedBuf = append(i.cachedBuf, i.key...)
	i.cached = append(i.cached, iterEntry{
		offset: i.offset,
		key:    i.cachedBuf[len(i.cachedBuf)-len(i.key) : len(i.cachedBuf) : len(i.cachedBuf)],
		val:    i.val,
	})
}

// SeekGE positions the iterator at the first entry whose key is greater than
// or equal to the given key, clearing any latched error.
func (i *Iter) SeekGE(key base.InternalKey) bool {
	i.err = nil
	i.clearCache()

	// Find the index of the smallest restart point whose key is > the key
	// sought; index will be numRestarts if there is no such restart point.
	index := sort.Search(i.numRestarts, func(j int) bool {
		offset := i.restartPoint(j)
		// For a restart point, there are 0 bytes shared with the previous
		// key. The varint encoding of 0 occupies 1 byte.
		offset++
		if offset >= i.restarts {
			return false
		}
		// Decode the key at that restart point, and compare it to the key
		// sought.
		v1, n1 := binary.Uvarint(i.data[offset:i.restarts])
		if n1 <= 0 {
			return false
		}
		_, n2 := binary.Uvarint(i.data[offset+n1 : i.restarts])
		if n2 <= 0 {
			return false
		}
		m := offset + n1 + n2
		if m+int(v1) > i.restarts {
			return false
		}
		s := i.data[m : m+int(v1)]
		return base.InternalCompare(i.cmp, key, i.coder.Decode(s)) < 0
	})

	// Since keys are strictly increasing, if index > 0 then the restart
	// point at index-1 will be the largest whose key is <= the key sought.
	// If index == 0, then all keys in this block are larger than the key
	// sought, and offset remains at zero.
	i.offset = 0
	if index > 0 {
		i.offset = i.restartPoint(index - 1)
	}
	if !i.loadEntry() {
		return false
	}

	// Iterate from that restart point to somewhere >= the key sought.
	for base.InternalCompare(i.cmp, key, i.ikey) > 0 {
		i.offset = i.nextOffset
		if !i.loadEntry() {
			return false
		}
	}
	return true
}

// First positions the iterator at the first entry, clearing any latched
// error.
func (i *Iter) First() bool {
	i.err = nil
	i.clearCache()
	i.offset = 0
	return i.loadEntry()
}

// Last positions the iterator at the last entry, clearing any latched error.
func (i *Iter) Last() bool {
	i.err = nil

	// Seek forward from the last restart point.
	i.offset = i.restartPoint(i.numRestarts - 1)
	if i.offset >= i.restarts {
		i.offset = -1
		return false
	}
	if !i.readEntry() {
		return false
	}
	i.clearCache()
	i.cacheEntry()

	for i.nextOffset < i.restarts {
		i.offset = i.nextOffset
		if !i.readEntry() {
			return false
		}
		i.cacheEntry()
	}

	i.ikey = i.coder.Decode(i.key)
	return true
}

// Next moves the iterator to the next entry.
func (i *Iter) Next() bool {
	if i.err != nil || i.offset < 0 {
		return false
	}
	i.offset = i.nextOffset
	return i.loadEntry()
}

// Prev moves the iterator to the previous entry. When the move crosses a
// restart span boundary the span is re-decoded from its restart point.
func (i *Iter) Prev() bool {
	if i.err != nil || i.offset < 0 {
		return false
	}
	if n := len(i.cached) - 1; n > 0 && i.cached[n].offset == i.offset {
		i.nextOffset = i.offset
		e := &i.cached[n-1]
		i.offset = e.offset
		i.val = e.val
		i.ikey = i.coder.Decode(e.key)
		i.key = append(i.key[:0], e.key...)
		i.cached = i.cached[:n]
		return true
	}

	if i.offset == 0 {
		i.offset = -1
		i.nextOffset = 0
		return false
	}

	targetOffset := i.offset
	index := sort.Search(i.numRestarts, func(j int) bool {
		return i.restartPoint(j) >= targetOffset
	})
	i.offset = 0
	if index > 0 {
		i.offset = i.restartPoint(index - 1)
	}
	if !i.readEntry() {
		return false
	}
	i.clearCache()
	i.cacheEntry()

	for i.nextOffset < targetOffset {
		i.offset = i.nextOffset
		if !i.readEntry() {
			return false
		}
		i.cacheEntry()
	}

	i.ikey = i.coder.Decode(i.key)
	return true
}

// Key returns the key at the current position.
func (i *Iter) Key() base.InternalKey {
	return i.ikey
}

// Value returns the value at the current position.
func (i *Iter) Value() []byte {
	return i.val
}

// Valid reports whether the iterator is positioned at an entry.
func (i *Iter) Valid() bool {
	return i.offset >= 0 && i.offset < i.restarts && i.err == nil
}

// Error returns the latched error, if any.
func (i *Iter) Error() error {
	return i.err
}

// Close implements base.InternalIterator.
func (i *Iter) Close() error {
	i.val = nil
	return i.err
}
