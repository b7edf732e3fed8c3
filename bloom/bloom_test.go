// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package bloom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBloomNoFalseNegatives(t *testing.T) {
	policy := FilterPolicy(10)
	for _, n := range []int{1, 10, 100, 1000} {
		var keys [][]byte
		for i := 0; i < n; i++ {
			keys = append(keys, []byte(fmt.Sprintf("key%08d", i)))
		}
		filter := policy.AppendFilter(nil, keys)
		for _, key := range keys {
			require.True(t, policy.MayContain(filter, key),
				"n=%d key=%s", n, key)
		}
	}
}

func TestBloomFalsePositiveRate(t *testing.T) {
	policy := FilterPolicy(10)
	var keys [][]byte
	for i := 0; i < 10000; i++ {
		keys = append(keys, []byte(fmt.Sprintf("key%08d", i)))
	}
	filter := policy.AppendFilter(nil, keys)

	falsePositives := 0
	const probes = 10000
	for i := 0; i < probes; i++ {
		if policy.MayContain(filter, []byte(fmt.Sprintf("other%08d", i))) {
			falsePositives++
		}
	}
	// 10 bits per key gives roughly a 1% false positive rate. Allow a wide
	// margin so the test is not sensitive to the exact key set.
	require.Less(t, falsePositives, probes/20)
}

func TestBloomSmallFilter(t *testing.T) {
	policy := FilterPolicy(10)

	// A single key still produces a filter of at least 64 bits plus the
	// probe count byte.
	filter := policy.AppendFilter(nil, [][]byte{[]byte("a")})
	require.Equal(t, 9, len(filter))
	require.True(t, policy.MayContain(filter, []byte("a")))
	require.False(t, policy.MayContain(filter, []byte("b")))

	// No keys yields a valid filter that matches nothing we probe for.
	filter = policy.AppendFilter(nil, nil)
	require.Equal(t, 9, len(filter))
	for _, key := range []string{"", "a", "hello"} {
		require.False(t, policy.MayContain(filter, []byte(key)))
	}
}

func TestBloomAppend(t *testing.T) {
	policy := FilterPolicy(10)

	// AppendFilter appends to dst without disturbing its prefix.
	dst := []byte("prefix")
	filter := policy.AppendFilter(dst, [][]byte{[]byte("a"), []byte("b")})
	require.Equal(t, []byte("prefix"), filter[:6])
	require.True(t, policy.MayContain(filter[6:], []byte("a")))
	require.True(t, policy.MayContain(filter[6:], []byte("b")))
}

func TestBloomDegenerateFilters(t *testing.T) {
	policy := FilterPolicy(10)

	// Filters too short to hold the encoding never match.
	require.False(t, policy.MayContain(nil, []byte("a")))
	require.False(t, policy.MayContain([]byte{0}, []byte("a")))

	// A probe count beyond the supported range is reserved; err toward a
	// match rather than wrongly skipping a block.
	require.True(t, policy.MayContain([]byte{0, 0, 31}, []byte("a")))
}

func TestBloomProbeCountClamp(t *testing.T) {
	for _, tc := range []struct {
		bitsPerKey int
		numProbes  byte
	}{
		{0, 1},
		{1, 1},
		{2, 1},
		{10, 6},
		{100, 30},
	} {
		policy := FilterPolicy(tc.bitsPerKey)
		filter := policy.AppendFilter(nil, [][]byte{[]byte("a")})
		require.Equal(t, tc.numProbes, filter[len(filter)-1],
			"bitsPerKey=%d", tc.bitsPerKey)
	}
}

func TestBloomHashStability(t *testing.T) {
	// The hash function defines the persisted filter encoding and must not
	// change. These values match the widely deployed leveldb hash.
	for _, tc := range []struct {
		key  string
		want uint32
	}{
		{"", 0xbc9f1d34},
		{"g", 0xd04a8bda},
	} {
		require.Equal(t, tc.want, hash([]byte(tc.key)), "key=%q", tc.key)
	}
}
