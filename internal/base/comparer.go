// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Compare returns -1, 0, or +1 depending on whether a is 'less than', 'equal
// to' or 'greater than' b. Both a and b must be valid keys.
type Compare func(a, b []byte) int

// Equal returns true if a and b are equivalent. For a given Compare,
// Equal(a,b)=true iff Compare(a,b)=0; that is, Equal is a (potentially
// faster) specialization of Compare.
type Equal func(a, b []byte) bool

// Separator is used to construct table index blocks. A trivial implementation
// is `return append(dst, a...)`, but appending fewer bytes leads to smaller
// tables.
//
// Given keys a, b for which Compare(a, b) < 0, Separator appends to dst a key
// k such that:
//
// 1. Compare(a, k) <= 0, and
// 2. Compare(k, b) < 0.
//
// For example, if a and b are the []byte equivalents of the strings "black"
// and "blue", then the function may append "blb" to dst.
type Separator func(dst, a, b []byte) []byte

// Successor appends to dst a shortened key k given a key a such that
// Compare(a, k) <= 0. A simple implementation may return a unchanged. The
// appended key k must be valid to pass to Compare.
type Successor func(dst, a []byte) []byte

// FormatKey returns a formatter for the user key.
type FormatKey func(key []byte) fmt.Formatter

// DefaultFormatter is the default implementation of user key formatting:
// non-ASCII data is formatted as escaped hexadecimal values.
var DefaultFormatter FormatKey = func(key []byte) fmt.Formatter {
	return FormatBytes(key)
}

// Comparer defines a total ordering over the space of []byte keys: a 'less
// than' relationship.
type Comparer struct {
	Compare   Compare
	Equal     Equal
	Separator Separator
	Successor Successor

	// FormatKey defaults to the DefaultFormatter if it is not specified.
	FormatKey FormatKey

	// Name is the name of the comparer.
	//
	// The on-disk format stores the comparer name in the table properties.
	// Opening a table with a different comparer from the one it was written
	// with produces undefined ordering; it is the caller's responsibility to
	// keep them consistent.
	Name string
}

// EnsureDefaults ensures that all non-optional fields are set.
//
// If c is nil, returns DefaultComparer. If any fields need to be set, returns
// a modified copy of c.
func (c *Comparer) EnsureDefaults() *Comparer {
	if c == nil {
		return DefaultComparer
	}
	if c.Compare == nil || c.Separator == nil || c.Successor == nil || c.Name == "" {
		panic("invalid Comparer: mandatory field not set")
	}
	if c.Equal != nil && c.FormatKey != nil {
		return c
	}
	n := &Comparer{}
	*n = *c
	if n.Equal == nil {
		cmp := n.Compare
		n.Equal = func(a, b []byte) bool { return cmp(a, b) == 0 }
	}
	if n.FormatKey == nil {
		n.FormatKey = DefaultFormatter
	}
	return n
}

// DefaultComparer is the default implementation of the Comparer interface.
// It uses the natural ordering, consistent with bytes.Compare.
var DefaultComparer = &Comparer{
	Compare: bytes.Compare,
	Equal:   bytes.Equal,

	FormatKey: DefaultFormatter,

	Separator: func(dst, a, b []byte) []byte {
		i, n := SharedPrefixLen(a, b), len(dst)
		dst = append(dst, a...)

		min := len(a)
		if min > len(b) {
			min = len(b)
		}
		if i >= min {
			// Do not shorten if one string is a prefix of the other.
			return dst
		}

		if a[i] >= b[i] {
			// b is smaller than a or a is already the shortest possible.
			return dst
		}

		if i < len(b)-1 || a[i]+1 < b[i] {
			i += n
			dst[i]++
			return dst[:i+1]
		}

		i += n + 1
		for ; i < len(dst); i++ {
			if dst[i] != 0xff {
				dst[i]++
				return dst[:i+1]
			}
		}
		return dst
	},

	Successor: func(dst, a []byte) (ret []byte) {
		for i := 0; i < len(a); i++ {
			if a[i] != 0xff {
				dst = append(dst, a[:i+1]...)
				dst[len(dst)-1]++
				return dst
			}
		}
		// a is a run of 0xffs, leave it alone.
		return append(dst, a...)
	},

	// This name mirrors the C++ LevelDB/RocksDB default so tooling can
	// recognize tables written with the natural byte ordering.
	Name: "leveldb.BytewiseComparator",
}

func reverseAppend(dst, a []byte) []byte {
	for i := len(a) - 1; i >= 0; i-- {
		dst = append(dst, a[i])
	}
	return dst
}

// ReverseComparer orders keys by the byte-wise ordering of their reversed
// contents. It composes with DefaultComparer's Separator and Successor by
// operating on a reversed view of the keys.
var ReverseComparer = &Comparer{
	Compare: func(a, b []byte) int {
		ra := reverseAppend(nil, a)
		rb := reverseAppend(nil, b)
		return bytes.Compare(ra, rb)
	},
	Equal: bytes.Equal,

	FormatKey: DefaultFormatter,

	Separator: func(dst, a, b []byte) []byte {
		ra := reverseAppend(nil, a)
		rb := reverseAppend(nil, b)
		sep := DefaultComparer.Separator(nil, ra, rb)
		return reverseAppend(dst, sep)
	},

	Successor: func(dst, a []byte) []byte {
		ra := reverseAppend(nil, a)
		succ := DefaultComparer.Successor(nil, ra)
		return reverseAppend(dst, succ)
	},

	Name: "shale.ReverseBytewiseComparator",
}

// SharedPrefixLen returns the largest i such that a[:i] equals b[:i].
func SharedPrefixLen(a, b []byte) int {
	i, n := 0, len(a)
	if n > len(b) {
		n = len(b)
	}
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// FormatBytes formats a byte slice using hexadecimal escapes for non-ASCII
// data.
type FormatBytes []byte

const lowerhex = "0123456789abcdef"

// Format implements the fmt.Formatter interface.
func (p FormatBytes) Format(s fmt.State, c rune) {
	buf := make([]byte, 0, len(p))
	for _, b := range p {
		if b < utf8.RuneSelf && strconv.IsPrint(rune(b)) {
			buf = append(buf, b)
			continue
		}
		buf = append(buf, `\x`...)
		buf = append(buf, lowerhex[b>>4])
		buf = append(buf, lowerhex[b&0xF])
	}
	s.Write(buf)
}
