// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package block

import "encoding/binary"

// Handle is the file offset and length of a block. The length does not
// include the block trailer.
type Handle struct {
	Offset uint64
	Length uint64
}

// HandleMaxLen is the maximum encoded length of a Handle.
const HandleMaxLen = 2 * binary.MaxVarintLen64

// EncodeHandle encodes h into buf, returning the number of bytes written.
// buf must be at least HandleMaxLen bytes.
func EncodeHandle(buf []byte, h Handle) int {
	n := binary.PutUvarint(buf, h.Offset)
	return n + binary.PutUvarint(buf[n:], h.Length)
}

// DecodeHandle decodes a Handle from buf, returning the handle and the
// number of bytes consumed. It returns a zero length on failure.
func DecodeHandle(buf []byte) (Handle, int) {
	offset, n := binary.Uvarint(buf)
	if n <= 0 {
		return Handle{}, 0
	}
	length, m := binary.Uvarint(buf[n:])
	if m <= 0 {
		return Handle{}, 0
	}
	return Handle{Offset: offset, Length: length}, n + m
}
