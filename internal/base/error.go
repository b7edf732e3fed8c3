// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

import "github.com/cockroachdb/errors"

// ErrNotFound means that a get call did not find the requested key. It is a
// valid point-lookup result, not a failure.
var ErrNotFound = errors.New("shale: not found")

// ErrCorruption is a marker error for on-disk corruption: a checksum
// mismatch, malformed restart metadata, a bad magic number or a truncated
// footer. Use errors.Is(err, ErrCorruption) for classification.
var ErrCorruption = errors.New("shale: corruption")

// ErrInvalidArgument is returned for out-of-range read requests and similar
// caller mistakes detectable without touching the file contents.
var ErrInvalidArgument = errors.New("shale: invalid argument")

// CorruptionErrorf formats an error marked as an ErrCorruption.
func CorruptionErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruption)
}

// MarkCorruptionError marks the given error as a corruption error.
func MarkCorruptionError(err error) error {
	if errors.Is(err, ErrCorruption) {
		return err
	}
	return errors.Mark(err, ErrCorruption)
}

// IsCorruptionError returns true if the error indicates on-disk corruption.
func IsCorruptionError(err error) bool {
	return errors.Is(err, ErrCorruption)
}
