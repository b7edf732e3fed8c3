// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"fmt"
	"io"

	"github.com/shale-db/shale/internal/base"
	"github.com/shale-db/shale/internal/block"
)

// Layout describes the block organization of a table file.
type Layout struct {
	Data       []block.Handle
	Index      block.Handle
	Filter     block.Handle
	Properties block.Handle
	Metaindex  block.Handle
	Footer     block.Handle
}

// Layout returns the layout of the table. The data block handles are in key
// order.
func (r *Reader) Layout() (*Layout, error) {
	index, err := r.readIndex()
	if err != nil {
		return nil, err
	}
	l := &Layout{
		Index:      r.indexBH,
		Filter:     r.filterBH,
		Properties: r.propsBH,
		Metaindex:  r.footer.Metaindex,
		Footer: block.Handle{
			Offset: uint64(r.file.Size()) - block.FooterLen,
			Length: block.FooterLen,
		},
	}
	var it block.Iter
	if err := it.Init(r.cmp.Compare, block.InternalKeyCoder, index); err != nil {
		return nil, err
	}
	for valid := it.First(); valid; valid = it.Next() {
		bh, n := block.DecodeHandle(it.Value())
		if n == 0 {
			return nil, base.CorruptionErrorf("shale/table: invalid table (bad data block handle)")
		}
		l.Data = append(l.Data, bh)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return l, nil
}

// Describe writes a human readable description of the layout to w.
func (l *Layout) Describe(w io.Writer) {
	for i, bh := range l.Data {
		fmt.Fprintf(w, "%10d  data block %d (%d bytes)\n", bh.Offset, i, bh.Length)
	}
	if l.Filter.Length > 0 {
		fmt.Fprintf(w, "%10d  filter block (%d bytes)\n", l.Filter.Offset, l.Filter.Length)
	}
	fmt.Fprintf(w, "%10d  index block (%d bytes)\n", l.Index.Offset, l.Index.Length)
	if l.Properties.Length > 0 {
		fmt.Fprintf(w, "%10d  properties block (%d bytes)\n", l.Properties.Offset, l.Properties.Length)
	}
	fmt.Fprintf(w, "%10d  metaindex block (%d bytes)\n", l.Metaindex.Offset, l.Metaindex.Length)
	fmt.Fprintf(w, "%10d  footer (%d bytes)\n", l.Footer.Offset, l.Footer.Length)
}
