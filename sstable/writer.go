// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/shale-db/shale/internal/base"
	"github.com/shale-db/shale/internal/block"
	"github.com/shale-db/shale/storage"
)

// tableMagic identifies a block based table file, stored in the last 8 bytes
// of the footer.
const tableMagic = "\x8e\x57\x2d\x31\x9d\xca\x1f\x4e"

// indexBlockRestartInterval is the restart interval of the index block.
// Index entries carry full keys so that binary search over restart points
// sees every separator.
const indexBlockRestartInterval = 1

var errWriterClosed = errors.New("shale/table: writer is closed")

// Writer builds an immutable sorted table. Entries must be added in
// strictly increasing internal key order; this is not validated, and a table
// built out of order has undefined iteration behavior.
type Writer struct {
	writer      storage.Writable
	opts        WriterOptions
	cmp         *base.Comparer
	block       *block.Writer
	indexBlock  *block.Writer
	filter      *filterWriter
	props       Properties
	offset      uint64
	pendingBH   block.Handle
	prevKey     base.InternalKey
	prevKeyBuf  []byte
	compressBuf []byte
	tmp         [block.HandleMaxLen]byte
	err         error
	finished    bool
}

// NewWriter returns a new table writer that writes to f. Finish or Abandon
// must be called to release f.
func NewWriter(f storage.Writable, o WriterOptions) *Writer {
	o = o.EnsureDefaults()
	w := &Writer{
		writer:     f,
		opts:       o,
		cmp:        o.Comparer,
		block:      block.NewWriter(block.InternalKeyCoder, o.BlockRestartInterval),
		indexBlock: block.NewWriter(block.InternalKeyCoder, indexBlockRestartInterval),
	}
	if o.FilterPolicy != nil {
		w.filter = newFilterWriter(o.FilterPolicy)
	}
	w.props.ComparerName = o.Comparer.Name
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

	if w.block.EntryCount() > 0 &&
		w.opts.FlushBlockPolicy(w.opts.BlockSize, w.block.Size(), key.Size(), len(value)) {
		if err := w.finishDataBlock(); err != nil {
			w.err = err
			return w.err
		}
	}
	w.flushPendingBH(key)

	if w.filter != nil {
		if w.block.EntryCount() == 0 {
			w.filter.startBlock(w.offset)
		}
		w.filter.addKey(key.UserKey)
	}
	w.block.Add(key, value)

	w.prevKeyBuf = append(w.prevKeyBuf[:0], key.UserKey...)
	w.prevKey = base.InternalKey{UserKey: w.prevKeyBuf, Trailer: key.Trailer}

	w.props.NumEntries++
	w.props.RawKeySize += uint64(key.Size())
	w.props.RawValueSize += uint64(len(value))
	return nil
}

// finishDataBlock writes out the current data block and records its handle
// for the index entry, which is emitted once the next key (or the end of the
// table) is known.
func (w *Writer) finishDataBlock() error {
	b := w.block.Finish()
	bh, err := w.writeBlock(b, w.opts.Compression)
	if err != nil {
		return err
	}
	w.block.Reset()
	w.pendingBH = bh
	w.props.NumDataBlocks++
	return nil
}

// flushPendingBH adds any pending index entry, keyed by a separator between
// the finished block's last key and the next key to be added.
func (w *Writer) flushPendingBH(key base.InternalKey) {
	if w.pendingBH.Length == 0 {
		return
	}
	sep := w.prevKey.Separator(w.cmp.Compare, w.cmp.Separator, nil, key)
	w.addIndexEntry(sep)
}

// flushLastBH adds the index entry for the final data block, keyed by a
// successor of the table's last key.
func (w *Writer) flushLastBH() {
	if w.pendingBH.Length == 0 {
		return
	}
	sep := w.prevKey.Successor(w.cmp.Compare, w.cmp.Successor, nil)
	w.addIndexEntry(sep)
}

func (w *Writer) addIndexEntry(sep base.InternalKey) {
	n := block.EncodeHandle(w.tmp[:], w.pendingBH)
	w.indexBlock.Add(sep, w.tmp[:n])
	w.pendingBH = block.Handle{}
}

// writeBlock compresses b, appends it with its trailer to the file, and
// returns its handle.
func (w *Writer) writeBlock(b []byte, c Compression) (block.Handle, error) {
	blockType, compressed := compressBlock(c, b, w.compressBuf)
	if blockType != noCompressionBlockType {
		w.compressBuf = compressed[:cap(compressed)]
	}
	checksum, err := block.Checksum(w.opts.Checksum, compressed, blockType)
	if err != nil {
		return block.Handle{}, err
	}

	bh := block.Handle{Offset: w.offset, Length: uint64(len(compressed))}
	if err := w.writer.Append(compressed); err != nil {
		return block.Handle{}, err
	}
	var trailer [block.TrailerLen]byte
	trailer[0] = blockType
	binary.LittleEndian.PutUint32(trailer[1:], checksum)
	if err := w.writer.Append(trailer[:]); err != nil {
		return block.Handle{}, err
	}
	w.offset += uint64(len(compressed)) + block.TrailerLen
	return bh, nil
}

// Finish writes the filter, properties, metaindex and index blocks and the
// footer, then closes the file.
func (w *Writer) Finish() error {
	if w.err != nil {
		return w.err
	}
	if w.finished {
		w.err = errWriterClosed
		return w.err
	}
	w.finished = true

	if w.block.EntryCount() > 0 {
		if err := w.finishDataBlock(); err != nil {
			w.err = err
			w.close()
			return w.err
		}
	}
	w.flushLastBH()
	w.props.DataSize = w.offset

	meta := make(map[string]block.Handle)

	if w.filter != nil {
		bh, err := w.writeBlock(w.filter.finish(), NoCompression)
		if err != nil {
			w.err = err
			w.close()
			return w.err
		}
		meta["filter."+w.opts.FilterPolicy.Name()] = bh
		w.props.FilterPolicyName = w.opts.FilterPolicy.Name()
		w.props.FilterSize = bh.Length + block.TrailerLen
	}

	indexBH, err := w.writeBlock(w.indexBlock.Finish(), w.opts.Compression)
	if err != nil {
		w.err = err
		w.close()
		return w.err
	}
	w.props.IndexSize = indexBH.Length + block.TrailerLen

	propsBH, err := w.writeBlock(w.props.Encode(), NoCompression)
	if err != nil {
		w.err = err
		w.close()
		return w.err
	}
	meta[block.PropertiesKey] = propsBH

	metaindexBH, err := w.writeBlock(block.EncodeMetaindex(meta), NoCompression)
	if err != nil {
		w.err = err
		w.close()
		return w.err
	}

	footer := block.Footer{
		Metaindex: metaindexBH,
		Index:     indexBH,
		Checksum:  w.opts.Checksum,
	}
	if err := w.writer.Append(footer.Encode(nil, tableMagic)); err != nil {
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
// writing a footer. The partial file contents are unspecified; removing the
// file is the caller's responsibility.
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

// Error returns the first error encountered by the writer, if any. Once an
// error is set all further operations fail with it.
func (w *Writer) Error() error {
	return w.err
}

// FileSize returns the number of bytes written to the file so far. After a
// successful Finish it is the size of the finished table.
func (w *Writer) FileSize() uint64 {
	return w.offset
}

// EstimatedSize returns an estimate of the size of the finished table,
// including data buffered but not yet written.
func (w *Writer) EstimatedSize() uint64 {
	return w.offset + uint64(w.block.Size()+w.indexBlock.Size()) + block.FooterLen
}

// Properties returns the properties accumulated so far. They are complete
// only after Finish.
func (w *Writer) Properties() Properties {
	return w.props
}
