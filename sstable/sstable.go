// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

/*
Package sstable implements readers and writers of block based sorted tables.

A table is a sequence of keyed blocks followed by a fixed-size footer:

	<data block 0>
	...
	<data block N-1>
	[filter block]
	<index block>
	<properties block>
	<metaindex block>
	<footer>

Keys are internal keys: a user key followed by an 8-byte trailer packing a
sequence number and a kind. Entries are ordered ascending by user key and,
within a user key, descending by trailer, so the newest version of a key is
encountered first.

Each block holds entries in key order, delta-compressed against restart
points: at every restart a full key is stored and its offset recorded in a
trailing uint32 array, so a reader binary searches the restarts and then
decodes forward. Every block is followed by a 5-byte trailer holding a
compression type byte and a checksum of the compressed contents and that
byte.

The index block holds one entry per data block, keyed by a separator at
least as large as every key in the block and smaller than every key in the
following one, with the data block's handle (offset and length as varints)
as its value. The metaindex block maps meta block names ("filter.<policy>",
"shale.properties") to their handles. The footer holds the metaindex and
index handles, the checksum algorithm, and a magic number.
*/
package sstable
