// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package plain implements readers and writers of plain sorted tables.
//
// A plain table stores its entries as a flat sequence of records with no
// block structure, no compression and no persisted index:
//
//	<record 0> ... <record N-1>
//	<properties block>
//	<metaindex block>
//	<footer>
//
// Each record is a varint-prefixed internal key followed by a
// varint-prefixed value. The index is rebuilt in memory when the table is
// opened, which requires reading the whole data region; the format trades
// open cost and generality for byte-minimal point lookups on small tables.
//
// When a prefix extractor is configured the in-memory index maps key
// prefixes to their first record, and iterators support seeks and forward
// scans only. Without one, every record offset is indexed and the full
// iterator contract holds.
package plain

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/shale-db/shale/internal/base"
	"github.com/shale-db/shale/internal/block"
	"github.com/shale-db/shale/storage"
)

// plainMagic identifies a plain table file, stored in the last 8 bytes of
// the footer.
const plainMagic = "\x41\x9f\x6f\x8c\xe5\xd2\x70\xbb"

var errWriterClosed = errors.New("shale/plain: writer is closed")

// WriterOptions hold the parameters for constructing a plain table. A zero
// value means the default.
type WriterOptions struct {
	// Comparer orders keys. The default is base.DefaultComparer.
	Comparer *base.Comparer

	// Checksum selects the trailer checksum for the meta blocks. The
	// default is crc32c.
	Checksum block.ChecksumType

	// PrefixExtractor, if non-nil, has its name recorded in the table
	// properties. Readers configured with an extractor of the same shape
	// index the table by prefix.
	PrefixExtractor base.PrefixExtractor
}

// EnsureDefaults fills in any unset options with their default values.
func (o WriterOptions) EnsureDefaults() WriterOptions {
	o.Comparer = o.Comparer.EnsureDefaults()
	if o.Checksum == block.ChecksumNone {
		o.Checksum = block.ChecksumCRC32c
	}
	return o
}

// Writer builds a plain table. Entries must be added in strictly increasing
// internal key order; this is not validated.
type Writer struct {
	writer   storage.Writable
	opts     WriterOptions
	props    block.Properties
	offset   uint64
	buf      []byte
	err      error
	finished bool
}

// NewWriter returns a new plain table writer that writes to f. Finish or
// Abandon must be called to release f.
func NewWriter(f storage.Writable, o WriterOptions) *Writer {
	o = o.EnsureDefaults()
	w := &Writer{writer: f, opts: o}
	w.props.ComparerName = o.Comparer.Name
	if o.PrefixExtractor != nil {
		w.props.PrefixExtractorName = o.PrefixExtractor.Name()
	}
	return w
}

// Add appends a key/value pair.
func (w *Writer) Add(key base.InternalKey, value []byte) error {
	if w.err != nil {
		return w.err
	}
	if w.finished {
		w.err = errWriterClosed
		return w.err
	}

	w.buf = w.buf[:0]
	w.buf = binary.AppendUvarint(w.buf, uint64(key.Size()))
	n := len(w.buf)
	w.buf = append(w.buf, make([]byte, key.Size())...)
	key.Encode(w.buf[n:])
	w.buf = binary.AppendUvarint(w.buf, uint64(len(value)))
	w.buf = append(w.buf, value...)

	if err := w.writer.Append(w.buf); err != nil {
		w.err = err
		return w.err
	}
	w.offset += uint64(len(w.buf))

	w.props.NumEntries++
	w.props.RawKeySize += uint64(key.Size())
	w.props.RawValueSize += uint64(len(value))
	return nil
}

// writeMetaBlock appends b with a block trailer. Meta blocks are never
// compressed.
func (w *Writer) writeMetaBlock(b []byte) (block.Handle, error) {
	checksum, err := block.Checksum(w.opts.Checksum, b, 0)
	if err != nil {
		return block.Handle{}, err
	}
	bh := block.Handle{Offset: w.offset, Length: uint64(len(b))}
	if err := w.writer.Append(b); err != nil {
		return block.Handle{}, err
	}
	var trailer [block.TrailerLen]byte
	binary.LittleEndian.PutUint32(trailer[1:], checksum)
	if err := w.writer.Append(trailer[:]); err != nil {
		return block.Handle{}, err
	}
	w.offset += uint64(len(b)) + block.TrailerLen
	return bh, nil
}

// Finish writes the properties and metaindex blocks and the footer, then
// closes the file.
func (w *Writer) Finish() error {
	if w.err != nil {
		return w.err
	}
	if w.finished {
		w.err = errWriterClosed
		return w.err
	}
	w.finished = true

	w.props.DataSize = w.offset
	// The whole data region is one logical block; there is no persisted
	// index.
	w.props.NumDataBlocks = 1
	w.props.IndexSize = 0

	propsBH, err := w.writeMetaBlock(w.props.Encode())
	if err != nil {
		w.err = err
		w.close()
		return w.err
	}
	metaindexBH, err := w.writeMetaBlock(block.EncodeMetaindex(map[string]block.Handle{
		block.PropertiesKey: propsBH,
	}))
	if err != nil {
		w.err = err
		w.close()
		return w.err
	}

	footer := block.Footer{
		Metaindex: metaindexBH,
		Checksum:  w.opts.Checksum,
	}
	if err := w.writer.Append(footer.Encode(nil, plainMagic)); err != nil {
		w.err = err
		w.close()
		return w.err
	}
	w.offset += block.FooterLen

	if err := w.writer.Flush(); err != nil {
		w.err = err
		w.close()
		return w.err
	}
	if err := w.close(); err != nil {
		w.err = err
		return w.err
	}
	return nil
}

// Abandon discards the table being built and closes the file without
// writing a footer.
func (w *Writer) Abandon() error {
	if w.err != nil {
		return w.err
	}
	if w.finished {
		w.err = errWriterClosed
		return w.err
	}
	w.finished = true
	if err := w.close(); err != nil {
		w.err = err
		return w.err
	}
	return nil
}

func (w *Writer) close() error {
	if w.writer == nil {
		return nil
	}
	err := w.writer.Close()
	w.writer = nil
	return err
}

// FileSize returns the number of bytes written to the file so far.
func (w *Writer) FileSize() uint64 {
	return w.offset
}

// Properties returns the properties accumulated so far. They are complete
// only after Finish.
func (w *Writer) Properties() block.Properties {
	return w.props
}
