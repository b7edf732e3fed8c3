// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"github.com/shale-db/shale/cache"
	"github.com/shale-db/shale/internal/base"
	"github.com/shale-db/shale/internal/block"
	"github.com/shale-db/shale/stats"
)

// ChecksumType identifies the per-block checksum algorithm.
type ChecksumType = block.ChecksumType

// Exported checksum constants.
const (
	ChecksumCRC32c   = block.ChecksumCRC32c
	ChecksumXXHash64 = block.ChecksumXXHash64
)

// Compression is the per-block compression algorithm.
type Compression int

// Exported compression constants.
const (
	DefaultCompression Compression = iota
	NoCompression
	SnappyCompression
	ZstdCompression
)

// String implements fmt.Stringer.
func (c Compression) String() string {
	switch c {
	case DefaultCompression:
		return "default"
	case NoCompression:
		return "none"
	case SnappyCompression:
		return "snappy"
	case ZstdCompression:
		return "zstd"
	default:
		return "unknown"
	}
}

// FlushBlockPolicy decides whether the current data block should be flushed
// before adding another entry. blockSize is the configured target size;
// currentSize is the size of the block if finished now; keyLen and valueLen
// describe the entry about to be added.
type FlushBlockPolicy func(blockSize, currentSize, keyLen, valueLen int) bool

// FlushBlockBySize flushes once the current block has reached the target
// block size. It is the default policy.
func FlushBlockBySize(blockSize, currentSize, keyLen, valueLen int) bool {
	return currentSize >= blockSize
}

// WriterOptions hold the parameters for constructing a table. A zero value
// means the default.
type WriterOptions struct {
	// BlockSize is the target uncompressed size of a data block. The default
	// is 4096.
	BlockSize int

	// BlockRestartInterval is the number of entries between restart points
	// in a data block. The default is 16.
	BlockRestartInterval int

	// Comparer orders keys. The default is base.DefaultComparer. The
	// comparer's name is recorded in the table properties; it is not
	// otherwise verified on read.
	Comparer *base.Comparer

	// Compression is the per-block compression algorithm. A compressed block
	// is kept only if it is at least 12.5% smaller than the uncompressed
	// form. The default is SnappyCompression.
	Compression Compression

	// Checksum selects the trailer checksum algorithm, recorded in the
	// footer. The default is ChecksumCRC32c.
	Checksum ChecksumType

	// FilterPolicy, if non-nil, adds a filter block to the table.
	FilterPolicy base.FilterPolicy

	// FlushBlockPolicy decides when data blocks are cut. The default is
	// FlushBlockBySize.
	FlushBlockPolicy FlushBlockPolicy
}

// EnsureDefaults fills in any unset options with their default values.
func (o WriterOptions) EnsureDefaults() WriterOptions {
	if o.BlockSize <= 0 {
		o.BlockSize = 4096
	}
	if o.BlockRestartInterval <= 0 {
		o.BlockRestartInterval = 16
	}
	o.Comparer = o.Comparer.EnsureDefaults()
	if o.Compression == DefaultCompression {
		o.Compression = SnappyCompression
	}
	if o.Checksum == block.ChecksumNone {
		o.Checksum = ChecksumCRC32c
	}
	if o.FlushBlockPolicy == nil {
		o.FlushBlockPolicy = FlushBlockBySize
	}
	return o
}

// ReaderOptions hold the parameters for reading a table. A zero value means
// the default.
type ReaderOptions struct {
	// Comparer orders keys. It must order keys the same way as the comparer
	// the table was written with; this is not verified. The default is
	// base.DefaultComparer.
	Comparer *base.Comparer

	// FilterPolicy, if non-nil, is consulted for point lookups when the
	// table carries a filter block written by a policy of the same name.
	FilterPolicy base.FilterPolicy

	// Cache, if non-nil, caches decoded blocks across readers, keyed by the
	// file's unique id and the block offset.
	Cache *cache.Cache

	// CacheIndexAndFilterBlocks routes index and filter block reads through
	// the cache, where they compete with data blocks for capacity and are
	// counted in the per-kind statistics. When false the index and filter
	// blocks are read once at open, pinned for the reader's lifetime, and
	// never counted.
	CacheIndexAndFilterBlocks bool

	// Stats, if non-nil, accumulates cache hit and miss counters. Only
	// accesses that go through the cache are counted.
	Stats *stats.Statistics

	// Logger is used for reporting corruption encountered while reading.
	// The default is base.DefaultLogger.
	Logger base.Logger
}

// EnsureDefaults fills in any unset options with their default values.
func (o ReaderOptions) EnsureDefaults() ReaderOptions {
	o.Comparer = o.Comparer.EnsureDefaults()
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
	return o
}
