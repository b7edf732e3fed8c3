// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package storage defines the narrow I/O capabilities the table formats
// consume from the host: an append-only sink for builders and a positional
// source for readers. The host decides how the bytes are actually stored;
// adapters for os.File and for in-memory buffers are provided here.
package storage

import (
	"bufio"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/shale-db/shale/internal/base"
)

// Writable is an append-only sink for table builders. A builder owns its
// Writable and closes it when finished or abandoned.
type Writable interface {
	// Append appends p to the file. It copies p; the caller may reuse the
	// slice after the call returns.
	Append(p []byte) error
	// Flush pushes buffered bytes to the operating system.
	Flush() error
	// Sync durably persists previously appended bytes.
	Sync() error
	// Close flushes and releases the sink.
	Close() error
}

// Readable is a positional source for table readers. Reads at arbitrary
// offsets may run concurrently.
type Readable interface {
	// ReadAt reads len(p) bytes starting at the given offset. Implementations
	// backed by memory maps may alias internal storage; callers must not
	// modify p afterward in that case.
	ReadAt(p []byte, off int64) (int, error)
	// Size returns the total size of the file in bytes.
	Size() int64
	// UniqueID returns an identifier for the physical file: stable across
	// re-opening a Readable on identical physical content, distinct across
	// different physical files even when their contents are byte-identical.
	// It namespaces block cache keys.
	UniqueID() uint64
	// Close releases the source.
	Close() error
}

var uniqueIDCounter atomic.Uint64

// NextUniqueID returns a process-wide unique file identifier. Hosts that
// track their own stable file numbers should use those instead; this helper
// serves hosts that only need distinctness within one process.
func NextUniqueID() uint64 {
	return uniqueIDCounter.Add(1)
}

// MemFile is an in-memory Writable that accumulates everything appended to
// it. It is the analogue of writing a table to a byte buffer and is used
// extensively in tests.
type MemFile struct {
	data []byte
}

var _ Writable = (*MemFile)(nil)

// Append implements Writable.
func (f *MemFile) Append(p []byte) error {
	f.data = append(f.data, p...)
	return nil
}

// Flush implements Writable.
func (f *MemFile) Flush() error { return nil }

// Sync implements Writable.
func (f *MemFile) Sync() error { return nil }

// Close implements Writable.
func (f *MemFile) Close() error { return nil }

// Data returns the accumulated bytes.
func (f *MemFile) Data() []byte { return f.data }

// MemReadable is an in-memory Readable over a byte slice.
type MemReadable struct {
	data []byte
	id   uint64
}

var _ Readable = (*MemReadable)(nil)

// NewMemReadable returns a Readable serving the given bytes under the given
// unique file identifier.
func NewMemReadable(data []byte, id uint64) *MemReadable {
	return &MemReadable{data: data, id: id}
}

// ReadAt implements Readable.
func (f *MemReadable) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(f.data)) {
		return 0, errors.Wrapf(base.ErrInvalidArgument, "invalid read offset %d", off)
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, errors.Wrapf(base.ErrInvalidArgument,
			"read of %d bytes at offset %d past EOF", len(p), off)
	}
	return n, nil
}

// Size implements Readable.
func (f *MemReadable) Size() int64 { return int64(len(f.data)) }

// UniqueID implements Readable.
func (f *MemReadable) UniqueID() uint64 { return f.id }

// Close implements Readable.
func (f *MemReadable) Close() error { return nil }

// fileWritable adapts an os.File to the Writable interface with buffering.
type fileWritable struct {
	f  *os.File
	bw *bufio.Writer
}

// NewFileWritable returns a buffered Writable over the file.
func NewFileWritable(f *os.File) Writable {
	return &fileWritable{f: f, bw: bufio.NewWriter(f)}
}

func (w *fileWritable) Append(p []byte) error {
	_, err := w.bw.Write(p)
	return err
}

func (w *fileWritable) Flush() error {
	return w.bw.Flush()
}

func (w *fileWritable) Sync() error {
	if err := w.bw.Flush(); err != nil {
		return err
	}
	return w.f.Sync()
}

func (w *fileWritable) Close() error {
	if err := w.bw.Flush(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}

// fileReadable adapts an os.File to the Readable interface.
type fileReadable struct {
	f    *os.File
	size int64
	id   uint64
}

// NewFileReadable returns a Readable over the file. The caller supplies the
// stable unique identifier for the physical file, typically its file number
// in the host's own bookkeeping.
func NewFileReadable(f *os.File, id uint64) (Readable, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return &fileReadable{f: f, size: stat.Size(), id: id}, nil
}

func (r *fileReadable) ReadAt(p []byte, off int64) (int, error) {
	return r.f.ReadAt(p, off)
}

func (r *fileReadable) Size() int64 { return r.size }

func (r *fileReadable) UniqueID() uint64 { return r.id }

func (r *fileReadable) Close() error { return r.f.Close() }
