// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"github.com/shale-db/shale/internal/base"
	"github.com/shale-db/shale/internal/block"
)

// iterState enumerates the positions of an Iterator. The iterator moves
// between them explicitly; relative moves (Next, Prev) are defined only from
// iterPositioned, except that Next from iterBeforeFirst behaves as First.
type iterState int8

const (
	// iterBeforeFirst is the initial state: no position, no error.
	iterBeforeFirst iterState = iota
	// iterPositioned: the data iterator is valid within the current data
	// block.
	iterPositioned
	// iterExhausted: the iterator ran off either end of the table, or an
	// absolute move failed. Only an absolute move leaves this state.
	iterExhausted
)

// Iterator iterates over the entries of a table: an outer cursor over the
// index block selects a data block, an inner cursor walks its entries. Data
// blocks are read (and cached) lazily as the iterator reaches them.
//
// An Iterator is not safe for concurrent use.
type Iterator struct {
	reader *Reader
	index  block.Iter
	data   block.Iter
	state  iterState
	err    error
}

var _ base.InternalIterator = (*Iterator)(nil)

// loadData reads the data block at the index iterator's current position and
// initializes the inner cursor over it.
func (i *Iterator) loadData() bool {
	bh, n := block.DecodeHandle(i.index.Value())
	if n == 0 {
		i.err = base.CorruptionErrorf("shale/table: invalid table (bad data block handle)")
		i.state = iterExhausted
		return false
	}
	b, err := i.reader.readBlock(bh, kindData)
	if err != nil {
		i.err = err
		i.state = iterExhausted
		return false
	}
	if err := i.data.Init(i.reader.cmp.Compare, block.InternalKeyCoder, b); err != nil {
		i.err = err
		i.state = iterExhausted
		return false
	}
	return true
}

// fail latches err (if the inner or outer cursor has one) and exhausts the
// iterator. It returns false for convenience.
func (i *Iterator) fail(err error) bool {
	i.err = err
	i.state = iterExhausted
	return false
}

// skipForward advances the outer cursor past empty or exhausted data blocks
// until an entry is found or the table ends.
func (i *Iterator) skipForward() bool {
	for {
		if !i.index.Next() {
			return i.fail(i.index.Error())
		}
		if !i.loadData() {
			return false
		}
		if i.data.First() {
			i.state = iterPositioned
			return true
		}
		if err := i.data.Error(); err != nil {
			return i.fail(err)
		}
	}
}

// skipBackward is the reverse of skipForward.
func (i *Iterator) skipBackward() bool {
	for {
		if !i.index.Prev() {
			return i.fail(i.index.Error())
		}
		if !i.loadData() {
			return false
		}
		if i.data.Last() {
			i.state = iterPositioned
			return true
		}
		if err := i.data.Error(); err != nil {
			return i.fail(err)
		}
	}
}

// SeekGE positions the iterator at the first entry whose key is greater than
// or equal to key, clearing any latched error.
func (i *Iterator) SeekGE(key base.InternalKey) bool {
	i.err = nil
	if !i.index.SeekGE(key) {
		return i.fail(i.index.Error())
	}
	if !i.loadData() {
		return false
	}
	if i.data.SeekGE(key) {
		i.state = iterPositioned
		return true
	}
	if err := i.data.Error(); err != nil {
		return i.fail(err)
	}
	// The index separator admitted this block but every entry is smaller
	// than the sought key. The answer, if any, starts the next block.
	return i.skipForward()
}

// First positions the iterator at the first entry of the table, clearing any
// latched error.
func (i *Iterator) First() bool {
	i.err = nil
	if !i.index.First() {
		return i.fail(i.index.Error())
	}
	if !i.loadData() {
		return false
	}
	if i.data.First() {
		i.state = iterPositioned
		return true
	}
	if err := i.data.Error(); err != nil {
		return i.fail(err)
	}
	return i.skipForward()
}

// Last positions the iterator at the last entry of the table, clearing any
// latched error.
func (i *Iterator) Last() bool {
	i.err = nil
	if !i.index.Last() {
		return i.fail(i.index.Error())
	}
	if !i.loadData() {
		return false
	}
	if i.data.Last() {
		i.state = iterPositioned
		return true
	}
	if err := i.data.Error(); err != nil {
		return i.fail(err)
	}
	return i.skipBackward()
}

// Next moves the iterator to the next entry.
func (i *Iterator) Next() bool {
	switch i.state {
	case iterBeforeFirst:
		return i.First()
	case iterExhausted:
		return false
	}
	if i.data.Next() {
		return true
	}
	if err := i.data.Error(); err != nil {
		return i.fail(err)
	}
	return i.skipForward()
}

// Prev moves the iterator to the previous entry.
func (i *Iterator) Prev() bool {
	if i.state != iterPositioned {
		return false
	}
	if i.data.Prev() {
		return true
	}
	if err := i.data.Error(); err != nil {
		return i.fail(err)
	}
	return i.skipBackward()
}

// Key returns the key at the current position.
func (i *Iterator) Key() base.InternalKey {
	return i.data.Key()
}

// Value returns the value at the current position.
func (i *Iterator) Value() []byte {
	return i.data.Value()
}

// Valid reports whether the iterator is positioned at an entry.
func (i *Iterator) Valid() bool {
	return i.state == iterPositioned && i.err == nil
}

// Error returns the latched error, if any.
func (i *Iterator) Error() error {
	if i.err != nil {
		return i.err
	}
	return i.data.Error()
}

// Close implements base.InternalIterator.
func (i *Iterator) Close() error {
	err := i.Error()
	i.reader = nil
	i.state = iterExhausted
	return err
}
