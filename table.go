// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package shale

import (
	"github.com/shale-db/shale/plain"
	"github.com/shale-db/shale/sstable"
	"github.com/shale-db/shale/storage"
)

// TableWriter is the contract shared by the table builders of both formats.
// Entries must be added in strictly increasing internal key order.
type TableWriter interface {
	Add(key InternalKey, value []byte) error
	Finish() error
	Abandon() error
	FileSize() uint64
}

// TableReader is the contract shared by the table readers of both formats.
type TableReader interface {
	NewIter() (InternalIterator, error)
	Get(key []byte) ([]byte, error)
	ApproximateOffsetOf(key []byte) uint64
	Properties() sstable.Properties
	Close() error
}

var (
	_ TableWriter = (*sstable.Writer)(nil)
	_ TableWriter = (*plain.Writer)(nil)
)

// TableWriterFactory constructs a TableWriter over a sink. Hosts choose a
// table format by choosing a factory.
type TableWriterFactory func(f storage.Writable) TableWriter

// TableReaderFactory opens a TableReader over a source holding a table
// built by the matching writer factory.
type TableReaderFactory func(f storage.Readable) (TableReader, error)

// BlockedTableWriterFactory returns a factory for block-based table writers
// configured with o.
func BlockedTableWriterFactory(o sstable.WriterOptions) TableWriterFactory {
	return func(f storage.Writable) TableWriter {
		return sstable.NewWriter(f, o)
	}
}

// BlockedTableReaderFactory returns a factory for block-based table readers
// configured with o.
func BlockedTableReaderFactory(o sstable.ReaderOptions) TableReaderFactory {
	return func(f storage.Readable) (TableReader, error) {
		r, err := sstable.NewReader(f, o)
		if err != nil {
			return nil, err
		}
		return blockedTable{r}, nil
	}
}

// PlainTableWriterFactory returns a factory for plain table writers
// configured with o.
func PlainTableWriterFactory(o plain.WriterOptions) TableWriterFactory {
	return func(f storage.Writable) TableWriter {
		return plain.NewWriter(f, o)
	}
}

// PlainTableReaderFactory returns a factory for plain table readers
// configured with o.
func PlainTableReaderFactory(o plain.ReaderOptions) TableReaderFactory {
	return func(f storage.Readable) (TableReader, error) {
		r, err := plain.NewReader(f, o)
		if err != nil {
			return nil, err
		}
		return plainTable{r}, nil
	}
}

// blockedTable adapts sstable.Reader's iterator constructor to the shared
// interface.
type blockedTable struct {
	*sstable.Reader
}

func (t blockedTable) NewIter() (InternalIterator, error) {
	return t.Reader.NewIter()
}

// plainTable adapts plain.Reader's iterator constructor to the shared
// interface.
type plainTable struct {
	*plain.Reader
}

func (t plainTable) NewIter() (InternalIterator, error) {
	return t.Reader.NewIter(), nil
}
