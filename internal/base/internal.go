// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package base defines the ordering primitives shared by every table format:
// user-key comparers, the internal-key codec that layers multi-version
// semantics over them, and the capability interfaces consumed from the host.
package base

import (
	"encoding/binary"
	"fmt"
)

// SeqNum is a sequence number defining precedence among identical user keys.
// A key with a higher sequence number takes precedence over a key with an
// equal user key of a lower sequence number. Sequence numbers are stored
// durably within the internal key trailer as a 7-byte (uint56) value.
type SeqNum uint64

const (
	// SeqNumZero is the zero sequence number.
	SeqNumZero SeqNum = 0
	// SeqNumMax is the largest valid sequence number.
	SeqNumMax SeqNum = 1<<56 - 1
)

// InternalKeyKind enumerates the kind of key: a deletion tombstone or a set
// value.
type InternalKeyKind uint8

// These constants are part of the file format, and should not be changed.
const (
	InternalKeyKindDelete InternalKeyKind = 0
	InternalKeyKindSet    InternalKeyKind = 1

	// InternalKeyKindSeparator is a key kind used for separator and successor
	// keys written to block indexes. It never appears in data blocks.
	InternalKeyKindSeparator InternalKeyKind = 2

	// InternalKeyKindMax sorts 'less than or equal to' any other valid kind
	// under the descending trailer order, making it the right kind for search
	// keys. Future extensions may increase this value.
	InternalKeyKindMax InternalKeyKind = 2

	// InternalKeyKindInvalid marks a key that failed to decode.
	InternalKeyKindInvalid InternalKeyKind = 255
)

var internalKeyKindNames = map[InternalKeyKind]string{
	InternalKeyKindDelete:    "DEL",
	InternalKeyKindSet:       "SET",
	InternalKeyKindSeparator: "SEPARATOR",
	InternalKeyKindInvalid:   "INVALID",
}

func (k InternalKeyKind) String() string {
	if s, ok := internalKeyKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("UNKNOWN:%d", k)
}

// InternalKeyTrailer encodes a SeqNum and an InternalKeyKind.
type InternalKeyTrailer uint64

// MakeTrailer constructs an internal key trailer from the specified sequence
// number and kind.
func MakeTrailer(seqNum SeqNum, kind InternalKeyKind) InternalKeyTrailer {
	return (InternalKeyTrailer(seqNum) << 8) | InternalKeyTrailer(kind)
}

// SeqNum returns the sequence number component of the trailer.
func (t InternalKeyTrailer) SeqNum() SeqNum {
	return SeqNum(t >> 8)
}

// Kind returns the key kind component of the trailer.
func (t InternalKeyTrailer) Kind() InternalKeyKind {
	return InternalKeyKind(t & 0xff)
}

// String implements the fmt.Stringer interface.
func (t InternalKeyTrailer) String() string {
	return fmt.Sprintf("%d,%s", t.SeqNum(), t.Kind())
}

// InternalKey is a key used inside tables. It consists of the user key (as
// given by the host) followed by 8 bytes of metadata:
//   - 1 byte for the kind of internal key: delete or set,
//   - 7 bytes for a uint56 sequence number, in little-endian format.
//
// Two internal keys compare by ascending user key (via a Comparer), then by
// descending trailer, so that among the versions of one user key the newest
// sorts first.
type InternalKey struct {
	UserKey []byte
	Trailer InternalKeyTrailer
}

// InternalKeyLen is the number of trailer bytes appended to the user key in
// the encoded form.
const InternalKeyLen = 8

// MakeInternalKey constructs an internal key from a specified user key,
// sequence number and kind.
func MakeInternalKey(userKey []byte, seqNum SeqNum, kind InternalKeyKind) InternalKey {
	return InternalKey{
		UserKey: userKey,
		Trailer: MakeTrailer(seqNum, kind),
	}
}

// MakeSearchKey constructs an internal key that is appropriate for searching
// for the specified user key. The search key carries the maximal sequence
// number and kind, ensuring that it sorts before any other internal key with
// the same user key.
func MakeSearchKey(userKey []byte) InternalKey {
	return MakeInternalKey(userKey, SeqNumMax, InternalKeyKindMax)
}

// DecodeInternalKey decodes an encoded internal key. Keys shorter than the
// 8-byte trailer decode to an invalid key.
func DecodeInternalKey(encoded []byte) InternalKey {
	n := len(encoded) - InternalKeyLen
	var trailer InternalKeyTrailer
	if n >= 0 {
		trailer = InternalKeyTrailer(binary.LittleEndian.Uint64(encoded[n:]))
		encoded = encoded[:n:n]
	} else {
		trailer = InternalKeyTrailer(InternalKeyKindInvalid)
		encoded = nil
	}
	return InternalKey{
		UserKey: encoded,
		Trailer: trailer,
	}
}

// InternalCompare compares two internal keys using the specified user-key
// comparison function. For equal user keys, internal keys compare in
// descending trailer order, independent of the user comparer's direction.
func InternalCompare(userCmp Compare, a, b InternalKey) int {
	if x := userCmp(a.UserKey, b.UserKey); x != 0 {
		return x
	}
	switch {
	case a.Trailer > b.Trailer:
		return -1
	case a.Trailer < b.Trailer:
		return 1
	default:
		return 0
	}
}

// Encode encodes the receiver into the buffer. The buffer must be large
// enough to hold the encoded data, see Size.
func (k InternalKey) Encode(buf []byte) {
	i := copy(buf, k.UserKey)
	binary.LittleEndian.PutUint64(buf[i:], uint64(k.Trailer))
}

// Size returns the encoded size of the key.
func (k InternalKey) Size() int {
	return len(k.UserKey) + InternalKeyLen
}

// SeqNum returns the sequence number component of the key.
func (k InternalKey) SeqNum() SeqNum {
	return k.Trailer.SeqNum()
}

// Kind returns the kind component of the key.
func (k InternalKey) Kind() InternalKeyKind {
	return k.Trailer.Kind()
}

// Valid returns true if the key has a valid kind.
func (k InternalKey) Valid() bool {
	return k.Kind() <= InternalKeyKindMax
}

// Clone clones the key, making a copy of the user key.
func (k InternalKey) Clone() InternalKey {
	if len(k.UserKey) == 0 {
		k.UserKey = nil
		return k
	}
	return InternalKey{
		UserKey: append([]byte(nil), k.UserKey...),
		Trailer: k.Trailer,
	}
}

// Separator returns a separator key such that k <= x && x < other, where
// 'less than' is consistent with the Compare function. The buf parameter may
// be used to store the returned InternalKey.UserKey; it is valid to pass nil.
func (k InternalKey) Separator(
	cmp Compare, sep Separator, buf []byte, other InternalKey,
) InternalKey {
	buf = sep(buf, k.UserKey, other.UserKey)
	if len(buf) <= len(k.UserKey) && cmp(k.UserKey, buf) < 0 {
		// The separator user key is physically shorter than k.UserKey (if it
		// is longer, we'll continue to use k), but logically after. Tack on
		// the max sequence number to the shortened user key so it sorts
		// before every version of the keys it separates.
		return MakeInternalKey(buf, SeqNumMax, InternalKeyKindSeparator)
	}
	return k
}

// Successor returns a successor key such that k <= x. A simple implementation
// may return k unchanged. The buf parameter may be used to store the returned
// InternalKey.UserKey; it is valid to pass nil.
func (k InternalKey) Successor(cmp Compare, succ Successor, buf []byte) InternalKey {
	buf = succ(buf, k.UserKey)
	if (len(k.UserKey) == 0 || len(buf) <= len(k.UserKey)) && cmp(k.UserKey, buf) < 0 {
		return MakeInternalKey(buf, SeqNumMax, InternalKeyKindSeparator)
	}
	return k
}

// String implements the fmt.Stringer interface.
func (k InternalKey) String() string {
	return fmt.Sprintf("%s#%d,%s", FormatBytes(k.UserKey), k.SeqNum(), k.Kind())
}

// Pretty returns a formatter for the key.
func (k InternalKey) Pretty(f FormatKey) fmt.Formatter {
	return prettyInternalKey{k, f}
}

type prettyInternalKey struct {
	InternalKey
	formatKey FormatKey
}

func (k prettyInternalKey) Format(s fmt.State, c rune) {
	fmt.Fprintf(s, "%s#%d,%s", k.formatKey(k.UserKey), k.SeqNum(), k.Kind())
}
