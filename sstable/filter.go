// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"encoding/binary"

	"github.com/shale-db/shale/internal/base"
)

// A filter block holds one filter per aligned 2KB window of data block
// offsets: a data block starting at offset o is covered by filter number
// o>>filterBaseLog. The filters are concatenated and followed by a uint32
// offset per filter, a uint32 locating the offset array, and the base log
// byte.
const filterBaseLog = 11

type filterWriter struct {
	policy base.FilterPolicy

	// block is the accumulated filter data; offsets[i] is the start of
	// filter i within it.
	data    []byte
	offsets []uint32

	// pending keys for the filter being built.
	keys    [][]byte
	keysBuf []byte
}

func newFilterWriter(policy base.FilterPolicy) *filterWriter {
	return &filterWriter{policy: policy}
}

// startBlock is called when a new data block begins at blockOffset. It cuts
// filters so that filter numbering stays aligned with the data offsets.
func (f *filterWriter) startBlock(blockOffset uint64) {
	index := int(blockOffset >> filterBaseLog)
	for index > len(f.offsets) {
		f.generate()
	}
}

func (f *filterWriter) addKey(key []byte) {
	f.keysBuf = append(f.keysBuf, key...)
	f.keys = append(f.keys, f.keysBuf[len(f.keysBuf)-len(key):len(f.keysBuf):len(f.keysBuf)])
}

func (f *filterWriter) generate() {
	f.offsets = append(f.offsets, uint32(len(f.data)))
	if len(f.keys) > 0 {
		f.data = f.policy.AppendFilter(f.data, f.keys)
		f.keys = f.keys[:0]
		f.keysBuf = f.keysBuf[:0]
	}
}

// finish returns the encoded filter block.
func (f *filterWriter) finish() []byte {
	if len(f.keys) > 0 {
		f.generate()
	}
	arrayOffset := uint32(len(f.data))
	var tmp [4]byte
	for _, x := range f.offsets {
		binary.LittleEndian.PutUint32(tmp[:], x)
		f.data = append(f.data, tmp[:]...)
	}
	binary.LittleEndian.PutUint32(tmp[:], arrayOffset)
	f.data = append(f.data, tmp[:]...)
	f.data = append(f.data, filterBaseLog)
	return f.data
}

type filterReader struct {
	policy base.FilterPolicy
	data   []byte
	// offsets holds the per-filter offset array followed by the array
	// offset word, so offsets[4*(i+1):] always delimits filter i.
	offsets []byte
	baseLog uint
	num     int
	valid   bool
}

func (f *filterReader) init(data []byte, policy base.FilterPolicy) bool {
	if len(data) < 5 {
		return false
	}
	f.baseLog = uint(data[len(data)-1])
	arrayOffset := binary.LittleEndian.Uint32(data[len(data)-5:])
	if arrayOffset > uint32(len(data)-5) || (uint32(len(data)-5)-arrayOffset)%4 != 0 {
		return false
	}
	f.policy = policy
	f.num = int(uint32(len(data)-5)-arrayOffset) / 4
	f.data = data
	f.offsets = data[arrayOffset : len(data)-1]
	f.valid = true
	return true
}

// mayContain reports whether the filter covering the data block at
// blockOffset may contain key. It errs on the side of true whenever the
// filter cannot answer.
func (f *filterReader) mayContain(blockOffset uint64, key []byte) bool {
	index := int(blockOffset >> f.baseLog)
	if index >= f.num {
		return true
	}
	start := binary.LittleEndian.Uint32(f.offsets[4*index:])
	limit := binary.LittleEndian.Uint32(f.offsets[4*index+4:])
	if start == limit {
		// Empty filter: no keys in this window.
		return false
	}
	if start > limit || limit > uint32(len(f.data)) {
		return true
	}
	return f.policy.MayContain(f.data[start:limit], key)
}
