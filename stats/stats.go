// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package stats exposes named counters recording table read activity, most
// notably block cache hits and misses split by block kind. A Statistics
// value is shared by every reader the host wires it into; counters are
// cumulative for the lifetime of the value, surviving reader re-opens.
package stats

import "sync/atomic"

// Ticker identifies one cumulative counter.
type Ticker int

// Tickers. The per-kind cache counters sum into the aggregate ones: every
// index hit also bumps BlockCacheHit, and so on.
const (
	BlockCacheMiss Ticker = iota
	BlockCacheHit
	BlockCacheIndexMiss
	BlockCacheIndexHit
	BlockCacheFilterMiss
	BlockCacheFilterHit
	BlockCacheDataMiss
	BlockCacheDataHit

	numTickers
)

var tickerNames = [numTickers]string{
	BlockCacheMiss:       "block_cache_miss",
	BlockCacheHit:        "block_cache_hit",
	BlockCacheIndexMiss:  "block_cache_index_miss",
	BlockCacheIndexHit:   "block_cache_index_hit",
	BlockCacheFilterMiss: "block_cache_filter_miss",
	BlockCacheFilterHit:  "block_cache_filter_hit",
	BlockCacheDataMiss:   "block_cache_data_miss",
	BlockCacheDataHit:    "block_cache_data_hit",
}

// String implements the fmt.Stringer interface.
func (t Ticker) String() string {
	if t >= 0 && t < numTickers {
		return tickerNames[t]
	}
	return "unknown"
}

// Statistics is a set of cumulative counters, safe for concurrent use. The
// zero value is ready to use. A nil *Statistics discards all records, so
// callers holding an optional Statistics need not branch.
type Statistics struct {
	tickers [numTickers]atomic.Int64
}

// New returns an empty Statistics.
func New() *Statistics {
	return &Statistics{}
}

// Record adds n to the ticker.
func (s *Statistics) Record(t Ticker, n int64) {
	if s == nil {
		return
	}
	s.tickers[t].Add(n)
}

// Count returns the current value of the ticker.
func (s *Statistics) Count(t Ticker) int64 {
	if s == nil {
		return 0
	}
	return s.tickers[t].Load()
}
