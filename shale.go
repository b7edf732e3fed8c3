// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package shale exports the public types shared by the table packages. The
// table implementations themselves live in the sstable and plain packages;
// this package is the home of the key model, the comparer and the errors
// that both speak.
package shale

import (
	"github.com/shale-db/shale/internal/base"
)

// SeqNum exports the base.SeqNum type.
type SeqNum = base.SeqNum

// SeqNumMax is the largest valid sequence number.
const SeqNumMax = base.SeqNumMax

// InternalKeyKind exports the base.InternalKeyKind type.
type InternalKeyKind = base.InternalKeyKind

// These constants are part of the file format, and should not be changed.
const (
	InternalKeyKindDelete    = base.InternalKeyKindDelete
	InternalKeyKindSet       = base.InternalKeyKindSet
	InternalKeyKindSeparator = base.InternalKeyKindSeparator
	InternalKeyKindMax       = base.InternalKeyKindMax
	InternalKeyKindInvalid   = base.InternalKeyKindInvalid
)

// InternalKeyTrailer exports the base.InternalKeyTrailer type.
type InternalKeyTrailer = base.InternalKeyTrailer

// InternalKey exports the base.InternalKey type.
type InternalKey = base.InternalKey

// MakeInternalKey constructs an internal key from a specified user key,
// sequence number and kind.
func MakeInternalKey(userKey []byte, seqNum SeqNum, kind InternalKeyKind) InternalKey {
	return base.MakeInternalKey(userKey, seqNum, kind)
}

// MakeSearchKey constructs an internal key that sorts before any other
// internal key with the same user key, for use as a seek target.
func MakeSearchKey(userKey []byte) InternalKey {
	return base.MakeSearchKey(userKey)
}

// Comparer exports the base.Comparer type.
type Comparer = base.Comparer

// DefaultComparer exports the base.DefaultComparer comparer.
var DefaultComparer = base.DefaultComparer

// ReverseComparer exports the base.ReverseComparer comparer.
var ReverseComparer = base.ReverseComparer

// FilterPolicy exports the base.FilterPolicy type.
type FilterPolicy = base.FilterPolicy

// PrefixExtractor exports the base.PrefixExtractor type.
type PrefixExtractor = base.PrefixExtractor

// FixedPrefixExtractor exports the base.FixedPrefixExtractor type.
type FixedPrefixExtractor = base.FixedPrefixExtractor

// InternalIterator exports the base.InternalIterator type.
type InternalIterator = base.InternalIterator

// Logger exports the base.Logger type.
type Logger = base.Logger

// ErrNotFound means that a get operation did not find the requested key, or
// found a deletion tombstone for it.
var ErrNotFound = base.ErrNotFound

// ErrInvalidArgument marks errors caused by the caller, for example a read
// past the end of a file.
var ErrInvalidArgument = base.ErrInvalidArgument

// IsCorruptionError returns true if the given error indicates on-disk
// corruption.
func IsCorruptionError(err error) bool {
	return base.IsCorruptionError(err)
}
