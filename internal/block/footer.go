// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package block

import (
	"bytes"

	"github.com/shale-db/shale/internal/base"
	"github.com/shale-db/shale/storage"
)

// FooterLen is the fixed length of a table footer: two block handles
// (padded), a checksum type byte, and an 8-byte magic number.
const FooterLen = 2*HandleMaxLen + 1 + 8

// Footer is the fixed-size tail of a table file. It locates the metaindex
// and index blocks and records the trailer checksum algorithm. Each table
// format uses its own magic number.
type Footer struct {
	Metaindex Handle
	Index     Handle
	Checksum  ChecksumType
}

// Encode appends the footer in its fixed wire form to dst.
func (f Footer) Encode(dst []byte, magic string) []byte {
	var buf [FooterLen]byte
	n := EncodeHandle(buf[0:], f.Metaindex)
	EncodeHandle(buf[n:], f.Index)
	buf[FooterLen-9] = byte(f.Checksum)
	copy(buf[FooterLen-8:], magic)
	return append(dst, buf[:]...)
}

// ReadFooter reads and decodes the footer of f, verifying the magic number.
func ReadFooter(f storage.Readable, magic string) (Footer, error) {
	size := f.Size()
	if size < FooterLen {
		return Footer{}, base.CorruptionErrorf("shale/table: invalid table (file size is too small)")
	}
	var buf [FooterLen]byte
	if _, err := f.ReadAt(buf[:], size-FooterLen); err != nil {
		return Footer{}, err
	}
	if !bytes.Equal(buf[FooterLen-8:], []byte(magic)) {
		return Footer{}, base.CorruptionErrorf("shale/table: invalid table (bad magic number)")
	}

	var footer Footer
	footer.Checksum = ChecksumType(buf[FooterLen-9])
	meta, n := DecodeHandle(buf[0:])
	if n == 0 {
		return Footer{}, base.CorruptionErrorf("shale/table: invalid table (bad metaindex block handle)")
	}
	footer.Metaindex = meta
	index, n := DecodeHandle(buf[n:])
	if n == 0 {
		return Footer{}, base.CorruptionErrorf("shale/table: invalid table (bad index block handle)")
	}
	footer.Index = index
	return footer, nil
}
