// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package stats

import "github.com/prometheus/client_golang/prometheus"

// Collector adapts a Statistics to the prometheus.Collector interface,
// exposing each ticker as a counter metric.
type Collector struct {
	stats *Statistics
	descs [numTickers]*prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a prometheus collector over s. Metric names are
// prefixed with the given namespace.
func NewCollector(s *Statistics, namespace string) *Collector {
	c := &Collector{stats: s}
	for t := Ticker(0); t < numTickers; t++ {
		c.descs[t] = prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "table", t.String()),
			"cumulative count of "+t.String()+" events",
			nil, nil,
		)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for t := Ticker(0); t < numTickers; t++ {
		ch <- prometheus.MustNewConstMetric(
			c.descs[t], prometheus.CounterValue, float64(c.stats.Count(t)))
	}
}
