// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/shale-db/shale/internal/base"
)

// Physical block types, stored in the first byte of the block trailer.
const (
	noCompressionBlockType     byte = 0
	snappyCompressionBlockType byte = 1
	zstdCompressionBlockType   byte = 2
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
)

// compressBlock compresses b according to the configured algorithm,
// returning the physical block type and contents. The compressed form is
// used only when it is at least 12.5% smaller than the input; otherwise the
// block is stored uncompressed.
func compressBlock(c Compression, b, buf []byte) (byte, []byte) {
	var compressed []byte
	var blockType byte
	switch c {
	case SnappyCompression:
		blockType = snappyCompressionBlockType
		compressed = snappy.Encode(buf, b)
	case ZstdCompression:
		blockType = zstdCompressionBlockType
		compressed = zstdEncoder.EncodeAll(b, buf[:0])
	default:
		return noCompressionBlockType, b
	}
	if len(compressed) >= len(b)-len(b)/8 {
		return noCompressionBlockType, b
	}
	return blockType, compressed
}

// decompressBlock returns the logical contents of a physical block.
func decompressBlock(blockType byte, b []byte) ([]byte, error) {
	switch blockType {
	case noCompressionBlockType:
		return b, nil
	case snappyCompressionBlockType:
		decoded, err := snappy.Decode(nil, b)
		if err != nil {
			return nil, base.MarkCorruptionError(err)
		}
		return decoded, nil
	case zstdCompressionBlockType:
		decoded, err := zstdDecoder.DecodeAll(b, nil)
		if err != nil {
			return nil, base.MarkCorruptionError(err)
		}
		return decoded, nil
	default:
		return nil, base.CorruptionErrorf("shale/table: unknown block compression: %d", int(blockType))
	}
}
