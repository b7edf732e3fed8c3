// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package plain

import (
	"encoding/binary"
	"sort"

	"github.com/shale-db/shale/internal/base"
	"github.com/shale-db/shale/internal/block"
	"github.com/shale-db/shale/storage"
)

// ReaderOptions hold the parameters for reading a plain table. A zero value
// means the default.
type ReaderOptions struct {
	// Comparer orders keys. It must order keys the same way as the comparer
	// the table was written with; this is not verified. The default is
	// base.DefaultComparer.
	Comparer *base.Comparer

	// PrefixExtractor, if non-nil, selects the prefix index: seeks hash the
	// sought key's prefix to its first record and scan forward from there.
	// It must bucket keys the same way as the extractor the table was
	// written for. When nil every record is indexed and iterators support
	// the full contract, including Prev.
	PrefixExtractor base.PrefixExtractor
}

// EnsureDefaults fills in any unset options with their default values.
func (o ReaderOptions) EnsureDefaults() ReaderOptions {
	o.Comparer = o.Comparer.EnsureDefaults()
	return o
}

// Reader reads a plain table. The whole data region is held in memory and
// indexed at open. A Reader is safe for concurrent use.
type Reader struct {
	opts  ReaderOptions
	cmp   *base.Comparer
	props block.Properties

	data []byte
	// offsets holds the start offset of every record, in key order.
	offsets []uint32
	// buckets maps a key prefix to the position (index into offsets) of its
	// first record. Nil unless a prefix extractor is configured.
	buckets map[string]int
}

// NewReader opens the plain table in f. The table's contents are read and
// indexed eagerly; f is closed before NewReader returns.
func NewReader(f storage.Readable, o ReaderOptions) (*Reader, error) {
	defer f.Close()

	r := &Reader{opts: o.EnsureDefaults()}
	r.cmp = r.opts.Comparer

	footer, err := block.ReadFooter(f, plainMagic)
	if err != nil {
		return nil, err
	}
	meta, err := readMetaBlock(f, footer.Checksum, footer.Metaindex)
	if err != nil {
		return nil, err
	}
	metaindex, err := block.DecodeMetaindex(meta)
	if err != nil {
		return nil, err
	}
	propsBH, ok := metaindex[block.PropertiesKey]
	if !ok {
		return nil, base.CorruptionErrorf("shale/plain: invalid table (missing properties)")
	}
	pb, err := readMetaBlock(f, footer.Checksum, propsBH)
	if err != nil {
		return nil, err
	}
	if r.props, err = block.DecodeProperties(pb); err != nil {
		return nil, err
	}

	// The data region ends where the properties block begins.
	r.data = make([]byte, propsBH.Offset)
	if len(r.data) > 0 {
		if _, err := f.ReadAt(r.data, 0); err != nil {
			return nil, err
		}
	}
	if err := r.populateIndex(); err != nil {
		return nil, err
	}
	return r, nil
}

func readMetaBlock(f storage.Readable, t block.ChecksumType, bh block.Handle) ([]byte, error) {
	b := make([]byte, bh.Length+block.TrailerLen)
	if _, err := f.ReadAt(b, int64(bh.Offset)); err != nil {
		return nil, err
	}
	want, err := block.Checksum(t, b[:bh.Length], b[bh.Length])
	if err != nil {
		return nil, err
	}
	if got := binary.LittleEndian.Uint32(b[bh.Length+1:]); got != want {
		return nil, base.CorruptionErrorf(
			"shale/plain: invalid table (checksum mismatch at %d/%d)", bh.Offset, bh.Length)
	}
	return b[:bh.Length], nil
}

// populateIndex scans the data region once, recording every record offset
// and, in prefix mode, the first record of every prefix.
func (r *Reader) populateIndex() error {
	if r.opts.PrefixExtractor != nil {
		r.buckets = make(map[string]int)
	}
	for off := uint32(0); int(off) < len(r.data); {
		key, _, next, err := r.decodeRecord(off)
		if err != nil {
			return err
		}
		if r.buckets != nil {
			p := r.opts.PrefixExtractor.Transform(key.UserKey)
			if _, ok := r.buckets[string(p)]; !ok {
				r.buckets[string(p)] = len(r.offsets)
			}
		}
		r.offsets = append(r.offsets, off)
		off = next
	}
	return nil
}

// decodeRecord decodes the record at off, returning its key, value and the
// offset of the following record.
func (r *Reader) decodeRecord(off uint32) (base.InternalKey, []byte, uint32, error) {
	corrupt := func() (base.InternalKey, []byte, uint32, error) {
		return base.InternalKey{}, nil, 0, base.CorruptionErrorf(
			"shale/plain: invalid table (malformed record at %d)", off)
	}
	b := r.data[off:]
	keyLen, n := binary.Uvarint(b)
	if n <= 0 || uint64(len(b)-n) < keyLen {
		return corrupt()
	}
	b = b[n:]
	ekey := b[:keyLen]
	b = b[keyLen:]
	valLen, m := binary.Uvarint(b)
	if m <= 0 || uint64(len(b)-m) < valLen {
		return corrupt()
	}
	value := b[m : uint64(m)+valLen]
	next := off + uint32(n) + uint32(keyLen) + uint32(m) + uint32(valLen)
	return base.DecodeInternalKey(ekey), value, next, nil
}

func (r *Reader) keyAt(pos int) base.InternalKey {
	key, _, _, _ := r.decodeRecord(r.offsets[pos])
	return key
}

// seekPos returns the position of the first record whose key is >= key, or
// len(offsets) if there is none. In prefix mode a miss in the bucket table
// means no record with the sought prefix exists and -1 is returned.
func (r *Reader) seekPos(key base.InternalKey) int {
	if r.buckets != nil {
		p := r.opts.PrefixExtractor.Transform(key.UserKey)
		start, ok := r.buckets[string(p)]
		if !ok {
			return -1
		}
		pos := start
		for pos < len(r.offsets) &&
			base.InternalCompare(r.cmp.Compare, r.keyAt(pos), key) < 0 {
			pos++
		}
		return pos
	}
	return sort.Search(len(r.offsets), func(i int) bool {
		return base.InternalCompare(r.cmp.Compare, r.keyAt(i), key) >= 0
	})
}

// Get returns the value of the newest visible version of key. It returns
// ErrNotFound if the key is absent or its newest version is a deletion.
func (r *Reader) Get(key []byte) ([]byte, error) {
	pos := r.seekPos(base.MakeSearchKey(key))
	if pos < 0 || pos >= len(r.offsets) {
		return nil, base.ErrNotFound
	}
	k, value, _, err := r.decodeRecord(r.offsets[pos])
	if err != nil {
		return nil, err
	}
	if !r.cmp.Equal(k.UserKey, key) || k.Kind() == base.InternalKeyKindDelete {
		return nil, base.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// ApproximateOffsetOf returns an estimate of the file offset at which the
// data for key begins.
func (r *Reader) ApproximateOffsetOf(key []byte) uint64 {
	pos := r.seekPos(base.MakeSearchKey(key))
	if pos < 0 || pos >= len(r.offsets) {
		return uint64(len(r.data))
	}
	return uint64(r.offsets[pos])
}

// Properties returns the table's properties.
func (r *Reader) Properties() block.Properties {
	return r.props
}

// Close releases the reader's memory. The underlying file was closed by
// NewReader.
func (r *Reader) Close() error {
	r.data = nil
	r.offsets = nil
	r.buckets = nil
	return nil
}

// NewIter returns an iterator over the table's entries. With a prefix
// extractor configured the iterator supports SeekGE, First and forward
// iteration only; Last and Prev report invalid.
func (r *Reader) NewIter() *Iterator {
	return &Iterator{reader: r, pos: -1}
}

// Iterator iterates over the entries of a plain table. It is not safe for
// concurrent use.
type Iterator struct {
	reader *Reader
	pos    int
	ikey   base.InternalKey
	value  []byte
	err    error
}

var _ base.InternalIterator = (*Iterator)(nil)

func (i *Iterator) load() bool {
	r := i.reader
	if i.pos < 0 || i.pos >= len(r.offsets) {
		i.pos = -1
		return false
	}
	key, value, _, err := r.decodeRecord(r.offsets[i.pos])
	if err != nil {
		i.err = err
		i.pos = -1
		return false
	}
	i.ikey, i.value = key, value
	return true
}

// SeekGE positions the iterator at the first entry whose key is greater
// than or equal to key, clearing any latched error. In prefix mode only
// entries sharing the sought key's prefix and entries after them are
// reachable.
func (i *Iterator) SeekGE(key base.InternalKey) bool {
	i.err = nil
	i.pos = i.reader.seekPos(key)
	return i.load()
}

// First positions the iterator at the first entry, clearing any latched
// error.
func (i *Iterator) First() bool {
	i.err = nil
	i.pos = 0
	return i.load()
}

// Last positions the iterator at the last entry. In prefix mode Last is
// unsupported and reports invalid.
func (i *Iterator) Last() bool {
	i.err = nil
	if i.reader.buckets != nil {
		i.pos = -1
		return false
	}
	i.pos = len(i.reader.offsets) - 1
	return i.load()
}

// Next moves the iterator to the next entry.
func (i *Iterator) Next() bool {
	if i.err != nil || i.pos < 0 {
		return false
	}
	i.pos++
	return i.load()
}

// Prev moves the iterator to the previous entry. In prefix mode Prev is
// unsupported and reports invalid.
func (i *Iterator) Prev() bool {
	if i.err != nil || i.pos < 0 {
		return false
	}
	if i.reader.buckets != nil {
		i.pos = -1
		return false
	}
	i.pos--
	return i.load()
}

// Key returns the key at the current position.
func (i *Iterator) Key() base.InternalKey {
	return i.ikey
}

// Value returns the value at the current position.
func (i *Iterator) Value() []byte {
	return i.value
}

// Valid reports whether the iterator is positioned at an entry.
func (i *Iterator) Valid() bool {
	return i.pos >= 0 && i.err == nil
}

// Error returns the latched error, if any.
func (i *Iterator) Error() error {
	return i.err
}

// Close implements base.InternalIterator.
func (i *Iterator) Close() error {
	i.pos = -1
	return i.err
}
