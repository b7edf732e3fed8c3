// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package stats

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestStatistics(t *testing.T) {
	s := New()
	require.Zero(t, s.Count(BlockCacheMiss))

	s.Record(BlockCacheMiss, 1)
	s.Record(BlockCacheMiss, 2)
	s.Record(BlockCacheIndexHit, 5)
	require.Equal(t, int64(3), s.Count(BlockCacheMiss))
	require.Equal(t, int64(5), s.Count(BlockCacheIndexHit))
	require.Zero(t, s.Count(BlockCacheHit))
}

func TestStatisticsNil(t *testing.T) {
	// A nil Statistics records nothing and counts zero, so callers need no
	// nil checks.
	var s *Statistics
	s.Record(BlockCacheHit, 1)
	require.Zero(t, s.Count(BlockCacheHit))
}

func TestStatisticsConcurrent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s.Record(BlockCacheDataHit, 1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(8000), s.Count(BlockCacheDataHit))
}

func TestTickerString(t *testing.T) {
	require.Equal(t, "block_cache_miss", BlockCacheMiss.String())
	require.Equal(t, "block_cache_index_hit", BlockCacheIndexHit.String())
}

func TestCollector(t *testing.T) {
	s := New()
	s.Record(BlockCacheMiss, 4)
	s.Record(BlockCacheDataHit, 2)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(s, "shale")))

	families, err := reg.Gather()
	require.NoError(t, err)

	got := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			got[f.GetName()] = m.GetCounter().GetValue()
		}
	}
	require.Equal(t, 4.0, got["shale_table_block_cache_miss"])
	require.Equal(t, 2.0, got["shale_table_block_cache_data_hit"])
}
