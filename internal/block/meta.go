// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package block

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/shale-db/shale/internal/base"
)

// PropertiesKey is the metaindex entry name under which the properties
// block handle is recorded.
const PropertiesKey = "shale.properties"

// metaRestartInterval is the restart interval used for meta blocks. Meta
// blocks are small and read in full, so prefix compression buys little.
const metaRestartInterval = 1

// EncodeMetaindex encodes a metaindex block mapping meta block names to
// their handles.
func EncodeMetaindex(entries map[string]Handle) []byte {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	w := NewWriter(RawKeyCoder, metaRestartInterval)
	var tmp [HandleMaxLen]byte
	for _, name := range names {
		n := EncodeHandle(tmp[:], entries[name])
		w.AddRaw([]byte(name), tmp[:n])
	}
	return w.Finish()
}

// DecodeMetaindex decodes a metaindex block.
func DecodeMetaindex(data []byte) (map[string]Handle, error) {
	i, err := NewIter(bytes.Compare, RawKeyCoder, data)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]Handle)
	for valid := i.First(); valid; valid = i.Next() {
		h, n := DecodeHandle(i.Value())
		if n == 0 {
			return nil, base.CorruptionErrorf("shale/table: invalid table (bad metaindex entry %q)", i.Key().UserKey)
		}
		entries[string(i.Key().UserKey)] = h
	}
	if err := i.Error(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Properties are the aggregate statistics of a table, persisted in its
// properties block and readable without touching any data block.
type Properties struct {
	// ComparerName is the name of the comparer the table was written with.
	// It is recorded for tooling; readers do not verify it against their
	// configured comparer.
	ComparerName string
	// DataSize is the total size of the data blocks, trailers included.
	DataSize uint64
	// FilterPolicyName is the name of the filter policy, or empty when the
	// table carries no filter block.
	FilterPolicyName string
	// FilterSize is the size of the filter block, trailer included.
	FilterSize uint64
	// IndexSize is the size of the index block, trailer included.
	IndexSize uint64
	// NumDataBlocks is the number of data blocks.
	NumDataBlocks uint64
	// NumEntries is the number of entries.
	NumEntries uint64
	// PrefixExtractorName is the name of the prefix extractor, or empty
	// when none was configured.
	PrefixExtractorName string
	// RawKeySize is the total size of all keys, trailers included, before
	// any block encoding.
	RawKeySize uint64
	// RawValueSize is the total size of all values before any block
	// encoding.
	RawValueSize uint64
}

const (
	propComparerName        = "shale.comparer"
	propDataSize            = "shale.data.size"
	propFilterPolicyName    = "shale.filter.policy"
	propFilterSize          = "shale.filter.size"
	propIndexSize           = "shale.index.size"
	propNumDataBlocks       = "shale.num.data.blocks"
	propNumEntries          = "shale.num.entries"
	propPrefixExtractorName = "shale.prefix.extractor"
	propRawKeySize          = "shale.raw.key.size"
	propRawValueSize        = "shale.raw.value.size"
)

// Encode encodes the properties as a meta block. Entries are written in
// name order; string properties with empty values are omitted.
func (p *Properties) Encode() []byte {
	w := NewWriter(RawKeyCoder, metaRestartInterval)
	var tmp [binary.MaxVarintLen64]byte
	addUint := func(name string, v uint64) {
		n := binary.PutUvarint(tmp[:], v)
		w.AddRaw([]byte(name), tmp[:n])
	}
	addString := func(name, v string) {
		if v != "" {
			w.AddRaw([]byte(name), []byte(v))
		}
	}

	addString(propComparerName, p.ComparerName)
	addUint(propDataSize, p.DataSize)
	addString(propFilterPolicyName, p.FilterPolicyName)
	addUint(propFilterSize, p.FilterSize)
	addUint(propIndexSize, p.IndexSize)
	addUint(propNumDataBlocks, p.NumDataBlocks)
	addUint(propNumEntries, p.NumEntries)
	addString(propPrefixExtractorName, p.PrefixExtractorName)
	addUint(propRawKeySize, p.RawKeySize)
	addUint(propRawValueSize, p.RawValueSize)
	return w.Finish()
}

// DecodeProperties decodes a properties meta block. Unknown properties are
// ignored.
func DecodeProperties(data []byte) (Properties, error) {
	var p Properties
	i, err := NewIter(bytes.Compare, RawKeyCoder, data)
	if err != nil {
		return p, err
	}
	for valid := i.First(); valid; valid = i.Next() {
		name := string(i.Key().UserKey)
		value := i.Value()
		switch name {
		case propComparerName:
			p.ComparerName = string(value)
		case propFilterPolicyName:
			p.FilterPolicyName = string(value)
		case propPrefixExtractorName:
			p.PrefixExtractorName = string(value)
		case propDataSize, propFilterSize, propIndexSize, propNumDataBlocks,
			propNumEntries, propRawKeySize, propRawValueSize:
			v, n := binary.Uvarint(value)
			if n <= 0 {
				return p, base.CorruptionErrorf("shale/table: invalid table (bad property %q)", name)
			}
			switch name {
			case propDataSize:
				p.DataSize = v
			case propFilterSize:
				p.FilterSize = v
			case propIndexSize:
				p.IndexSize = v
			case propNumDataBlocks:
				p.NumDataBlocks = v
			case propNumEntries:
				p.NumEntries = v
			case propRawKeySize:
				p.RawKeySize = v
			case propRawValueSize:
				p.RawValueSize = v
			}
		}
	}
	if err := i.Error(); err != nil {
		return p, err
	}
	return p, nil
}
