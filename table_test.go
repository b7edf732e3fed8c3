// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package shale_test

import (
	"fmt"
	"testing"

	"github.com/shale-db/shale"
	"github.com/shale-db/shale/plain"
	"github.com/shale-db/shale/sstable"
	"github.com/shale-db/shale/storage"
	"github.com/stretchr/testify/require"
)

// Both formats round-trip the same data through the shared table contract.
func TestTableFactories(t *testing.T) {
	factories := map[string]struct {
		newWriter shale.TableWriterFactory
		newReader shale.TableReaderFactory
	}{
		"blocked": {
			shale.BlockedTableWriterFactory(sstable.WriterOptions{BlockSize: 128}),
			shale.BlockedTableReaderFactory(sstable.ReaderOptions{}),
		},
		"plain": {
			shale.PlainTableWriterFactory(plain.WriterOptions{}),
			shale.PlainTableReaderFactory(plain.ReaderOptions{}),
		},
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			const n = 100
			f := &storage.MemFile{}
			w := factory.newWriter(f)
			for i := 0; i < n; i++ {
				key := shale.MakeInternalKey([]byte(fmt.Sprintf("key%04d", i)), 1, shale.InternalKeyKindSet)
				require.NoError(t, w.Add(key, []byte(fmt.Sprintf("value%d", i))))
			}
			require.NoError(t, w.Finish())
			require.Equal(t, uint64(len(f.Data())), w.FileSize())

			r, err := factory.newReader(storage.NewMemReadable(f.Data(), storage.NextUniqueID()))
			require.NoError(t, err)
			require.Equal(t, uint64(n), r.Properties().NumEntries)

			it, err := r.NewIter()
			require.NoError(t, err)
			for i := 0; i < n; i++ {
				if i == 0 {
					require.True(t, it.First())
				} else {
					require.True(t, it.Next())
				}
				require.Equal(t, []byte(fmt.Sprintf("key%04d", i)), it.Key().UserKey)
				require.Equal(t, []byte(fmt.Sprintf("value%d", i)), it.Value())
			}
			require.False(t, it.Next())
			require.NoError(t, it.Close())

			v, err := r.Get([]byte("key0042"))
			require.NoError(t, err)
			require.Equal(t, []byte("value42"), v)
			_, err = r.Get([]byte("key9999"))
			require.Equal(t, shale.ErrNotFound, err)

			require.LessOrEqual(t,
				r.ApproximateOffsetOf([]byte("key0010")),
				r.ApproximateOffsetOf([]byte("key0090")))
			require.NoError(t, r.Close())
		})
	}
}

// A table whose only entry has an empty user key round-trips in both
// formats.
func TestTableEmptyKey(t *testing.T) {
	factories := map[string]struct {
		newWriter shale.TableWriterFactory
		newReader shale.TableReaderFactory
	}{
		"blocked": {
			shale.BlockedTableWriterFactory(sstable.WriterOptions{}),
			shale.BlockedTableReaderFactory(sstable.ReaderOptions{}),
		},
		"plain": {
			shale.PlainTableWriterFactory(plain.WriterOptions{}),
			shale.PlainTableReaderFactory(plain.ReaderOptions{}),
		},
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			f := &storage.MemFile{}
			w := factory.newWriter(f)
			require.NoError(t, w.Add(shale.MakeInternalKey(nil, 1, shale.InternalKeyKindSet), []byte("v")))
			require.NoError(t, w.Finish())

			r, err := factory.newReader(storage.NewMemReadable(f.Data(), storage.NextUniqueID()))
			require.NoError(t, err)
			v, err := r.Get(nil)
			require.NoError(t, err)
			require.Equal(t, []byte("v"), v)

			it, err := r.NewIter()
			require.NoError(t, err)
			require.True(t, it.First())
			require.Empty(t, it.Key().UserKey)
			require.False(t, it.Next())
			require.NoError(t, it.Close())
			require.NoError(t, r.Close())
		})
	}
}
