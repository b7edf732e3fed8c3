// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

// FilterPolicy is an algorithm for probabilistically encoding a set of keys.
// The canonical implementation is a Bloom filter; the table formats treat the
// bit construction as an injected capability and only rely on the contract
// below.
//
// A FilterPolicy is used to reject point lookups for keys that are certain to
// be absent from a data block without reading the block.
type FilterPolicy interface {
	// Name names the filter policy. The name is persisted in the table and
	// describes the encoding of the filter data, so the policy used to read a
	// filter must have the same name as the one that wrote it.
	Name() string

	// AppendFilter appends to dst an encoded filter that holds a set of
	// []byte keys and returns the extended slice.
	AppendFilter(dst []byte, keys [][]byte) []byte

	// MayContain returns whether the encoded filter may contain given key.
	// False positives are possible, where it returns true for keys not in the
	// original set.
	MayContain(filter, key []byte) bool
}

// PrefixExtractor maps a user key to its indexing prefix. It is used by the
// plain table format to bucket keys by prefix.
type PrefixExtractor interface {
	// Name names the extractor; persisted in the table properties. A table
	// must be read with an extractor equivalent to the one it was written
	// with.
	Name() string

	// Transform returns the prefix of key. The returned slice must be a
	// prefix of key under the comparer in use, and every key must sort
	// after its own prefix.
	Transform(key []byte) []byte
}

// FixedPrefixExtractor returns the first n bytes of the key, or the whole key
// when it is shorter than n.
type FixedPrefixExtractor int

// Name implements PrefixExtractor.
func (p FixedPrefixExtractor) Name() string {
	return "shale.FixedPrefix"
}

// Transform implements PrefixExtractor.
func (p FixedPrefixExtractor) Transform(key []byte) []byte {
	if len(key) < int(p) {
		return key
	}
	return key[:int(p):int(p)]
}
