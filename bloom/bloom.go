// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package bloom implements a Bloom filter FilterPolicy.
package bloom

import (
	"github.com/shale-db/shale/internal/base"
)

// FilterPolicy is a Bloom filter policy. The integer value is the
// approximate number of bits used per key. A good value is 10, which yields
// a filter with roughly a 1% false positive rate.
type FilterPolicy int

var _ base.FilterPolicy = FilterPolicy(0)

// Name implements base.FilterPolicy.
func (p FilterPolicy) Name() string {
	return "shale.BuiltinBloomFilter"
}

// AppendFilter implements base.FilterPolicy.
func (p FilterPolicy) AppendFilter(dst []byte, keys [][]byte) []byte {
	bitsPerKey := int(p)
	if bitsPerKey < 0 {
		bitsPerKey = 0
	}
	// 0.69 =~ ln(2), the probe count that minimizes the false positive rate
	// for a given number of bits per key.
	numProbes := uint32(bitsPerKey) * 69 / 100
	if numProbes < 1 {
		numProbes = 1
	}
	if numProbes > 30 {
		numProbes = 30
	}
	nBits := len(keys) * bitsPerKey
	// A tiny filter would have a high false positive rate regardless of the
	// number of keys; enforce a floor.
	if nBits < 64 {
		nBits = 64
	}
	nBytes := (nBits + 7) / 8
	nBits = nBytes * 8

	start := len(dst)
	for i := 0; i < nBytes; i++ {
		dst = append(dst, 0)
	}
	filter := dst[start:]
	for _, key := range keys {
		h := hash(key)
		delta := h>>17 | h<<15
		for j := uint32(0); j < numProbes; j++ {
			bitPos := h % uint32(nBits)
			filter[bitPos/8] |= 1 << (bitPos % 8)
			h += delta
		}
	}
	return append(dst, byte(numProbes))
}

// MayContain implements base.FilterPolicy.
func (p FilterPolicy) MayContain(filter, key []byte) bool {
	if len(filter) < 2 {
		return false
	}
	numProbes := uint32(filter[len(filter)-1])
	if numProbes > 30 {
		// Reserved for future encodings; treat as a match.
		return true
	}
	nBits := uint32(len(filter)-1) * 8

	h := hash(key)
	delta := h>>17 | h<<15
	for j := uint32(0); j < numProbes; j++ {
		bitPos := h % nBits
		if filter[bitPos/8]&(1<<(bitPos%8)) == 0 {
			return false
		}
		h += delta
	}
	return true
}

// hash is similar to Murmur. It must not change: it defines the persisted
// filter encoding.
func hash(b []byte) uint32 {
	const (
		seed = 0xbc9f1d34
		m    = 0xc6a4a793
	)
	h := uint32(seed) ^ uint32(len(b))*m
	for ; len(b) >= 4; b = b[4:] {
		h += uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		h *= m
		h ^= h >> 16
	}
	switch len(b) {
	case 3:
		h += uint32(b[2]) << 16
		fallthrough
	case 2:
		h += uint32(b[1]) << 8
		fallthrough
	case 1:
		h += uint32(b[0])
		h *= m
		h ^= h >> 24
	}
	return h
}
