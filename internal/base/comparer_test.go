// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultSeparator(t *testing.T) {
	testCases := []struct {
		a, b, want string
	}{
		// If b is a prefix of a (or equal), the key is returned unchanged.
		{"green", "green", "green"},
		{"1357", "", "1357"},
		// If a is a prefix of b, the key is returned unchanged.
		{"a", "a1", "a"},
		{"foo", "foobar", "foo"},
		{"\xff\xff", "\xff\xff\xff", "\xff\xff"},
		// If b is smaller, the key is returned unchanged.
		{"a", "2", "a"},
		// Shortening.
		{"black", "blue", "blb"},
		{"foobar", "foobaz", "foobas"},
		{"abcd", "abd", "abce"},
		{"aa", "ab", "aa"},
	}
	for _, c := range testCases {
		got := DefaultComparer.Separator(nil, []byte(c.a), []byte(c.b))
		require.Equal(t, c.want, string(got), "Separator(%q, %q)", c.a, c.b)
		// A separator s satisfies a <= s < b whenever a < b.
		if bytes.Compare([]byte(c.a), []byte(c.b)) < 0 {
			require.LessOrEqual(t, bytes.Compare([]byte(c.a), got), 0)
			require.Negative(t, bytes.Compare(got, []byte(c.b)))
		}
	}
}

func TestDefaultSuccessor(t *testing.T) {
	testCases := []struct {
		a, want string
	}{
		{"", ""},
		{"hello", "i"},
		{"\xff", "\xff"},
		{"\xff\xff\xff", "\xff\xff\xff"},
		{"\xff\xffabc", "\xff\xffb"},
		{"a\xff", "b"},
	}
	for _, c := range testCases {
		got := DefaultComparer.Successor(nil, []byte(c.a))
		require.Equal(t, c.want, string(got), "Successor(%q)", c.a)
		require.LessOrEqual(t, bytes.Compare([]byte(c.a), got), 0)
	}
}

func TestSharedPrefixLen(t *testing.T) {
	require.Equal(t, 0, SharedPrefixLen([]byte("abc"), []byte("xyz")))
	require.Equal(t, 2, SharedPrefixLen([]byte("abc"), []byte("abd")))
	require.Equal(t, 3, SharedPrefixLen([]byte("abc"), []byte("abc")))
	require.Equal(t, 3, SharedPrefixLen([]byte("abc"), []byte("abcd")))
	require.Equal(t, 0, SharedPrefixLen(nil, []byte("a")))
}

func TestReverseComparer(t *testing.T) {
	keys := [][]byte{
		[]byte(""), []byte("a"), []byte("ba"), []byte("ab"),
		[]byte("cab"), []byte("abc"), []byte("zzz"),
	}
	sorted := make([][]byte, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		return ReverseComparer.Compare(sorted[i], sorted[j]) < 0
	})
	// Reversed contents compare bytewise.
	for i := 1; i < len(sorted); i++ {
		ra := reverseAppend(nil, sorted[i-1])
		rb := reverseAppend(nil, sorted[i])
		require.Negative(t, bytes.Compare(ra, rb))
	}

	// The composed separator and successor honor their contracts under the
	// reverse ordering.
	for i := 1; i < len(sorted); i++ {
		a, b := sorted[i-1], sorted[i]
		sep := ReverseComparer.Separator(nil, a, b)
		require.LessOrEqual(t, ReverseComparer.Compare(a, sep), 0)
		require.Negative(t, ReverseComparer.Compare(sep, b))

		succ := ReverseComparer.Successor(nil, a)
		require.LessOrEqual(t, ReverseComparer.Compare(a, succ), 0)
	}
}

func TestEnsureDefaults(t *testing.T) {
	var c *Comparer
	require.Equal(t, DefaultComparer, c.EnsureDefaults())

	custom := &Comparer{
		Compare:   bytes.Compare,
		Separator: DefaultComparer.Separator,
		Successor: DefaultComparer.Successor,
		Name:      "test",
	}
	filled := custom.EnsureDefaults()
	require.NotNil(t, filled.Equal)
	require.NotNil(t, filled.FormatKey)
	require.True(t, filled.Equal([]byte("a"), []byte("a")))
	require.False(t, filled.Equal([]byte("a"), []byte("b")))
}
