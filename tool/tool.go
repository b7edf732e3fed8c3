// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package tool implements the introspection commands of the shale command
// line tool.
package tool

import (
	"io"
	"os"

	"github.com/shale-db/shale/bloom"
	"github.com/shale-db/shale/internal/base"
	"github.com/spf13/cobra"
)

// Comparer exports the base.Comparer type.
type Comparer = base.Comparer

// FilterPolicy exports the base.FilterPolicy type.
type FilterPolicy = base.FilterPolicy

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// T is the container for all of the introspection tools.
type T struct {
	Commands  []*cobra.Command
	sstable   *sstableT
	comparers map[string]*Comparer
	filters   map[string]FilterPolicy
}

// New creates a new introspection tool.
func New() *T {
	t := &T{
		comparers: make(map[string]*Comparer),
		filters:   make(map[string]FilterPolicy),
	}

	t.RegisterComparer(base.DefaultComparer)
	t.RegisterComparer(base.ReverseComparer)
	t.RegisterFilter(bloom.FilterPolicy(10))

	t.sstable = newSSTable(t.comparers, t.filters)
	t.Commands = []*cobra.Command{
		t.sstable.Root,
	}
	return t
}

// RegisterComparer registers a comparer for use by the introspection tools.
func (t *T) RegisterComparer(c *Comparer) {
	t.comparers[c.Name] = c
}

// RegisterFilter registers a filter policy for use by the introspection
// tools.
func (t *T) RegisterFilter(f FilterPolicy) {
	t.filters[f.Name()] = f
}
