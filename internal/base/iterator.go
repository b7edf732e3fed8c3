// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

// InternalIterator iterates over a table's entries in internal key order:
// ascending by user key, and descending by sequence number within a user
// key. The positioning methods return true if the iterator is positioned at
// an entry after the move.
//
// An iterator that encounters corrupt data latches the error: it reports
// invalid, Error returns non-nil, and the relative positioning methods
// (Next, Prev) are no-ops until the iterator is repositioned by an absolute
// move (SeekGE, First, Last). Key and Value are undefined while the iterator
// is not valid.
type InternalIterator interface {
	// SeekGE positions the iterator at the first entry whose key is greater
	// than or equal to the given key.
	SeekGE(key InternalKey) bool

	// First positions the iterator at the first entry.
	First() bool

	// Last positions the iterator at the last entry.
	Last() bool

	// Next moves the iterator to the next entry.
	Next() bool

	// Prev moves the iterator to the previous entry.
	Prev() bool

	// Key returns the key at the current position.
	Key() InternalKey

	// Value returns the value at the current position.
	Value() []byte

	// Valid reports whether the iterator is positioned at an entry.
	Valid() bool

	// Error returns any latched error.
	Error() error

	// Close releases the iterator's resources. It returns any latched
	// error.
	Close() error
}
