// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"encoding/binary"

	"github.com/shale-db/shale/cache"
	"github.com/shale-db/shale/internal/base"
	"github.com/shale-db/shale/internal/block"
	"github.com/shale-db/shale/stats"
	"github.com/shale-db/shale/storage"
)

// Properties are the aggregate statistics persisted in a table's properties
// block.
type Properties = block.Properties

type blockKind int8

const (
	kindData blockKind = iota
	kindIndex
	kindFilter
	kindMeta
)

// Reader reads an immutable sorted table. It is safe for concurrent use.
type Reader struct {
	file   storage.Readable
	fileID uint64
	opts   ReaderOptions
	cmp    *base.Comparer
	footer block.Footer

	indexBH  block.Handle
	filterBH block.Handle
	propsBH  block.Handle
	props    Properties

	// index and filter hold the pinned copies loaded at open. They are nil
	// when CacheIndexAndFilterBlocks routes these reads through the cache
	// instead.
	index  []byte
	filter filterReader
}

// NewReader opens the table in f. The reader takes ownership of f; closing
// the reader closes it.
func NewReader(f storage.Readable, o ReaderOptions) (*Reader, error) {
	r := &Reader{
		file:   f,
		fileID: f.UniqueID(),
		opts:   o.EnsureDefaults(),
	}
	r.cmp = r.opts.Comparer

	footer, err := block.ReadFooter(f, tableMagic)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.footer = footer
	r.indexBH = footer.Index

	if err := r.readMetaindex(); err != nil {
		_ = f.Close()
		return nil, err
	}

	cacheMeta := r.opts.Cache != nil && r.opts.CacheIndexAndFilterBlocks
	if cacheMeta {
		// Warm the cache with the index and filter blocks. From here on they
		// are ordinary cache citizens: they compete with data blocks for
		// capacity and their accesses are counted.
		if _, err := r.readBlock(r.indexBH, kindIndex); err != nil {
			_ = f.Close()
			return nil, err
		}
		if r.filterBH.Length > 0 {
			if _, err := r.readBlock(r.filterBH, kindFilter); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
	} else {
		b, err := r.readRawBlock(r.indexBH)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		r.index = b
		if r.filterBH.Length > 0 {
			fb, err := r.readRawBlock(r.filterBH)
			if err != nil {
				_ = f.Close()
				return nil, err
			}
			if !r.filter.init(fb, r.opts.FilterPolicy) {
				_ = f.Close()
				return nil, base.CorruptionErrorf("shale/table: invalid table (bad filter block)")
			}
		}
	}
	return r, nil
}

// readMetaindex locates the filter and properties blocks. Meta blocks are
// read directly; they are never cached.
func (r *Reader) readMetaindex() error {
	b, err := r.readRawBlock(r.footer.Metaindex)
	if err != nil {
		return err
	}
	meta, err := block.DecodeMetaindex(b)
	if err != nil {
		return err
	}
	if bh, ok := meta[block.PropertiesKey]; ok {
		r.propsBH = bh
		pb, err := r.readRawBlock(bh)
		if err != nil {
			return err
		}
		props, err := block.DecodeProperties(pb)
		if err != nil {
			return err
		}
		r.props = props
	}
	if r.opts.FilterPolicy != nil {
		if bh, ok := meta["filter."+r.opts.FilterPolicy.Name()]; ok {
			r.filterBH = bh
		}
	}
	return nil
}

// readRawBlock reads, verifies and decompresses the block at bh, bypassing
// the cache.
func (r *Reader) readRawBlock(bh block.Handle) ([]byte, error) {
	b := make([]byte, bh.Length+block.TrailerLen)
	if _, err := r.file.ReadAt(b, int64(bh.Offset)); err != nil {
		return nil, err
	}
	blockType := b[bh.Length]
	want, err := block.Checksum(r.footer.Checksum, b[:bh.Length], blockType)
	if err != nil {
		return nil, err
	}
	got := binary.LittleEndian.Uint32(b[bh.Length+1:])
	if got != want {
		err := base.CorruptionErrorf(
			"shale/table: invalid table (checksum mismatch at %d/%d)", bh.Offset, bh.Length)
		r.opts.Logger.Errorf("%v", err)
		return nil, err
	}
	return decompressBlock(blockType, b[:bh.Length])
}

// readBlock returns the decoded block at bh, consulting the cache when the
// block kind is cacheable under the reader's configuration. Cache hits and
// misses are recorded per kind; reads that bypass the cache are not counted.
func (r *Reader) readBlock(bh block.Handle, kind blockKind) ([]byte, error) {
	useCache := r.opts.Cache != nil &&
		(kind == kindData ||
			(r.opts.CacheIndexAndFilterBlocks && (kind == kindIndex || kind == kindFilter)))
	if !useCache {
		return r.readRawBlock(bh)
	}

	key := cache.Key{FileID: r.fileID, Offset: bh.Offset}
	if b, ok := r.opts.Cache.Get(key); ok {
		r.recordAccess(kind, true)
		return b, nil
	}
	r.recordAccess(kind, false)

	b, err := r.readRawBlock(bh)
	if err != nil {
		return nil, err
	}
	r.opts.Cache.Set(key, b)
	return b, nil
}

func (r *Reader) recordAccess(kind blockKind, hit bool) {
	s := r.opts.Stats
	if s == nil {
		return
	}
	if hit {
		s.Record(stats.BlockCacheHit, 1)
	} else {
		s.Record(stats.BlockCacheMiss, 1)
	}
	switch kind {
	case kindIndex:
		if hit {
			s.Record(stats.BlockCacheIndexHit, 1)
		} else {
			s.Record(stats.BlockCacheIndexMiss, 1)
		}
	case kindFilter:
		if hit {
			s.Record(stats.BlockCacheFilterHit, 1)
		} else {
			s.Record(stats.BlockCacheFilterMiss, 1)
		}
	case kindData:
		if hit {
			s.Record(stats.BlockCacheDataHit, 1)
		} else {
			s.Record(stats.BlockCacheDataMiss, 1)
		}
	}
}

// readIndex returns the index block, from the pinned copy or through the
// cache.
func (r *Reader) readIndex() ([]byte, error) {
	if r.index != nil {
		return r.index, nil
	}
	return r.readBlock(r.indexBH, kindIndex)
}

// mayContain consults the table's filter for the data block at blockOffset.
// It reports true when the table has no usable filter.
func (r *Reader) mayContain(blockOffset uint64, key []byte) (bool, error) {
	if r.filterBH.Length == 0 || r.opts.FilterPolicy == nil {
		return true, nil
	}
	if r.filter.valid {
		return r.filter.mayContain(blockOffset, key), nil
	}
	fb, err := r.readBlock(r.filterBH, kindFilter)
	if err != nil {
		return false, err
	}
	var f filterReader
	if !f.init(fb, r.opts.FilterPolicy) {
		return false, base.CorruptionErrorf("shale/table: invalid table (bad filter block)")
	}
	return f.mayContain(blockOffset, key), nil
}

// Get returns the value of the newest visible version of key. It returns
// ErrNotFound if the key is absent or its newest version is a deletion.
func (r *Reader) Get(key []byte) ([]byte, error) {
	ikey := base.MakeSearchKey(key)

	index, err := r.readIndex()
	if err != nil {
		return nil, err
	}
	var indexIter block.Iter
	if err := indexIter.Init(r.cmp.Compare, block.InternalKeyCoder, index); err != nil {
		return nil, err
	}
	if !indexIter.SeekGE(ikey) {
		if err := indexIter.Error(); err != nil {
			return nil, err
		}
		return nil, base.ErrNotFound
	}
	bh, n := block.DecodeHandle(indexIter.Value())
	if n == 0 {
		return nil, base.CorruptionErrorf("shale/table: invalid table (bad data block handle)")
	}

	ok, err := r.mayContain(bh.Offset, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, base.ErrNotFound
	}

	b, err := r.readBlock(bh, kindData)
	if err != nil {
		return nil, err
	}
	var dataIter block.Iter
	if err := dataIter.Init(r.cmp.Compare, block.InternalKeyCoder, b); err != nil {
		return nil, err
	}
	if !dataIter.SeekGE(ikey) {
		if err := dataIter.Error(); err != nil {
			return nil, err
		}
		return nil, base.ErrNotFound
	}
	k := dataIter.Key()
	if !r.cmp.Equal(k.UserKey, key) || k.Kind() == base.InternalKeyKindDelete {
		return nil, base.ErrNotFound
	}
	// Copy out of the block: it may be shared through the cache.
	return append([]byte(nil), dataIter.Value()...), nil
}

// NewIter returns an iterator over the table's entries.
func (r *Reader) NewIter() (*Iterator, error) {
	index, err := r.readIndex()
	if err != nil {
		return nil, err
	}
	i := &Iterator{reader: r}
	if err := i.index.Init(r.cmp.Compare, block.InternalKeyCoder, index); err != nil {
		return nil, err
	}
	return i, nil
}

// ApproximateOffsetOf returns an estimate of the file offset at which the
// data for key begins. The estimate has data block granularity; keys past
// the end of the table map to the total size of the data blocks.
func (r *Reader) ApproximateOffsetOf(key []byte) uint64 {
	index, err := r.readIndex()
	if err != nil {
		return 0
	}
	var indexIter block.Iter
	if err := indexIter.Init(r.cmp.Compare, block.InternalKeyCoder, index); err != nil {
		return 0
	}
	if indexIter.SeekGE(base.MakeSearchKey(key)) {
		if bh, n := block.DecodeHandle(indexIter.Value()); n > 0 {
			return bh.Offset
		}
	}
	return r.props.DataSize
}

// Properties returns the table's properties.
func (r *Reader) Properties() Properties {
	return r.props
}

// ReadProperties reads the properties block of the table in f without
// opening a full Reader. The caller retains ownership of f.
func ReadProperties(f storage.Readable) (Properties, error) {
	r := &Reader{file: f, opts: ReaderOptions{}.EnsureDefaults()}
	footer, err := block.ReadFooter(f, tableMagic)
	if err != nil {
		return Properties{}, err
	}
	r.footer = footer
	if err := r.readMetaindex(); err != nil {
		return Properties{}, err
	}
	return r.props, nil
}

// Close releases the reader's resources. It does not evict the file's
// blocks from the cache; a reopened reader with the same unique id finds
// them resident.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// EvictFromCache removes all of the file's blocks from the cache. It is for
// use when the table file is about to be removed.
func (r *Reader) EvictFromCache() {
	if r.opts.Cache != nil {
		r.opts.Cache.EvictFile(r.fileID)
	}
}
