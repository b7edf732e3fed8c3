// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package block

import (
	"github.com/cespare/xxhash/v2"
	"github.com/shale-db/shale/internal/base"
	"github.com/shale-db/shale/internal/crc"
)

// TrailerLen is the length of the trailer appended to every physical block:
// a 1-byte compression type followed by a 4-byte checksum of the block
// contents and the type byte.
const TrailerLen = 5

// ChecksumType identifies the checksum algorithm used in block trailers.
// The choice is recorded in the table footer so readers need no
// configuration to verify.
type ChecksumType byte

const (
	ChecksumNone     ChecksumType = 0
	ChecksumCRC32c   ChecksumType = 1
	ChecksumXXHash64 ChecksumType = 2
)

// String implements fmt.Stringer.
func (t ChecksumType) String() string {
	switch t {
	case ChecksumNone:
		return "none"
	case ChecksumCRC32c:
		return "crc32c"
	case ChecksumXXHash64:
		return "xxhash64"
	default:
		return "unknown"
	}
}

// Checksum computes the trailer checksum of a block: the checksum of the
// block contents followed by the compression type byte. CRC32c values are
// masked; xxhash64 values are truncated to their low 32 bits.
func Checksum(t ChecksumType, data []byte, typeByte byte) (uint32, error) {
	switch t {
	case ChecksumCRC32c:
		return crc.New(data).Update([]byte{typeByte}).Value(), nil
	case ChecksumXXHash64:
		d := xxhash.New()
		d.Write(data)
		d.Write([]byte{typeByte})
		return uint32(d.Sum64()), nil
	default:
		return 0, base.CorruptionErrorf("shale/table: unsupported checksum type %d", int(t))
	}
}
