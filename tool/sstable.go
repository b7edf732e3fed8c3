// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package tool

import (
	"fmt"
	"os"

	"github.com/shale-db/shale/internal/base"
	"github.com/shale-db/shale/sstable"
	"github.com/shale-db/shale/storage"
	"github.com/spf13/cobra"
)

// sstableT implements sstable-level tools, including both configuration
// state and the commands themselves.
type sstableT struct {
	Root       *cobra.Command
	Check      *cobra.Command
	Layout     *cobra.Command
	Properties *cobra.Command
	Scan       *cobra.Command

	comparers map[string]*Comparer
	filters   map[string]FilterPolicy

	// Flags.
	comparerName string
	start        string
	end          string
	count        int64
}

func newSSTable(comparers map[string]*Comparer, filters map[string]FilterPolicy) *sstableT {
	s := &sstableT{
		comparers: comparers,
		filters:   filters,
	}

	s.Root = &cobra.Command{
		Use:   "sstable",
		Short: "sstable introspection tools",
	}
	s.Check = &cobra.Command{
		Use:   "check <sstables>",
		Short: "verify checksums and key ordering",
		Long: `
Read every record of the sstables, verifying block checksums along the way,
and report keys that are out of order.
`,
		Args: cobra.MinimumNArgs(1),
		Run:  s.runCheck,
	}
	s.Layout = &cobra.Command{
		Use:   "layout <sstables>",
		Short: "print sstable block layout",
		Args:  cobra.MinimumNArgs(1),
		Run:   s.runLayout,
	}
	s.Properties = &cobra.Command{
		Use:   "properties <sstables>",
		Short: "print sstable properties",
		Args:  cobra.MinimumNArgs(1),
		Run:   s.runProperties,
	}
	s.Scan = &cobra.Command{
		Use:   "scan <sstables>",
		Short: "print sstable records",
		Long: `
Print the records in the sstables. The sstables are scanned in command line
order which means the records will be printed in that order.
`,
		Args: cobra.MinimumNArgs(1),
		Run:  s.runScan,
	}

	s.Root.AddCommand(s.Check, s.Layout, s.Properties, s.Scan)
	for _, cmd := range []*cobra.Command{s.Check, s.Layout, s.Properties, s.Scan} {
		cmd.Flags().StringVar(
			&s.comparerName, "comparer", base.DefaultComparer.Name, "comparer name")
	}
	s.Scan.Flags().StringVar(
		&s.start, "start", "", "start key for the scan")
	s.Scan.Flags().StringVar(
		&s.end, "end", "", "end key for the scan")
	s.Scan.Flags().Int64Var(
		&s.count, "count", 0, "key count for the scan (0 is unlimited)")

	return s
}

func (s *sstableT) newReader(path string) (*sstable.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	readable, err := storage.NewFileReadable(f, storage.NextUniqueID())
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	cmp, ok := s.comparers[s.comparerName]
	if !ok {
		_ = readable.Close()
		return nil, fmt.Errorf("unknown comparer %q", s.comparerName)
	}
	var policy FilterPolicy
	for _, f := range s.filters {
		policy = f
		break
	}
	return sstable.NewReader(readable, sstable.ReaderOptions{
		Comparer:     cmp,
		FilterPolicy: policy,
	})
}

// foreachSSTable opens each argument as an sstable in turn, printing errors
// rather than aborting so a bad file doesn't hide the others.
func (s *sstableT) foreachSSTable(args []string, fn func(arg string, r *sstable.Reader)) {
	for _, arg := range args {
		func() {
			r, err := s.newReader(arg)
			if err != nil {
				fmt.Fprintf(stderr, "%s: %s\n", arg, err)
				return
			}
			defer r.Close()
			fmt.Fprintf(stdout, "%s\n", arg)
			fn(arg, r)
		}()
	}
}

func (s *sstableT) runCheck(cmd *cobra.Command, args []string) {
	s.foreachSSTable(args, func(arg string, r *sstable.Reader) {
		cmp := s.comparers[s.comparerName]
		it, err := r.NewIter()
		if err != nil {
			fmt.Fprintf(stdout, "%s\n", err)
			return
		}
		var count uint64
		var lastKey base.InternalKey
		for valid := it.First(); valid; valid = it.Next() {
			key := it.Key()
			if count > 0 && base.InternalCompare(cmp.Compare, lastKey, key) >= 0 {
				fmt.Fprintf(stdout, "WARNING: OUT OF ORDER KEYS!\n")
				fmt.Fprintf(stdout, "    %s >= %s\n",
					lastKey.Pretty(cmp.FormatKey), key.Pretty(cmp.FormatKey))
			}
			lastKey = key.Clone()
			count++
		}
		if err := it.Close(); err != nil {
			fmt.Fprintf(stdout, "%s\n", err)
			return
		}
		fmt.Fprintf(stdout, "checked %d records\n", count)
	})
}

func (s *sstableT) runLayout(cmd *cobra.Command, args []string) {
	s.foreachSSTable(args, func(arg string, r *sstable.Reader) {
		l, err := r.Layout()
		if err != nil {
			fmt.Fprintf(stdout, "%s\n", err)
			return
		}
		l.Describe(stdout)
	})
}

func (s *sstableT) runProperties(cmd *cobra.Command, args []string) {
	s.foreachSSTable(args, func(arg string, r *sstable.Reader) {
		p := r.Properties()
		fmt.Fprintf(stdout, "  comparer          %s\n", p.ComparerName)
		fmt.Fprintf(stdout, "  entries           %d\n", p.NumEntries)
		fmt.Fprintf(stdout, "  data blocks       %d\n", p.NumDataBlocks)
		fmt.Fprintf(stdout, "  data size         %d\n", p.DataSize)
		fmt.Fprintf(stdout, "  index size        %d\n", p.IndexSize)
		fmt.Fprintf(stdout, "  raw key size      %d\n", p.RawKeySize)
		fmt.Fprintf(stdout, "  raw value size    %d\n", p.RawValueSize)
		if p.FilterPolicyName != "" {
			fmt.Fprintf(stdout, "  filter policy     %s\n", p.FilterPolicyName)
			fmt.Fprintf(stdout, "  filter size       %d\n", p.FilterSize)
		}
		if p.PrefixExtractorName != "" {
			fmt.Fprintf(stdout, "  prefix extractor  %s\n", p.PrefixExtractorName)
		}
	})
}

func (s *sstableT) runScan(cmd *cobra.Command, args []string) {
	s.foreachSSTable(args, func(arg string, r *sstable.Reader) {
		cmp := s.comparers[s.comparerName]
		it, err := r.NewIter()
		if err != nil {
			fmt.Fprintf(stdout, "%s\n", err)
			return
		}
		defer it.Close()

		var valid bool
		if s.start == "" {
			valid = it.First()
		} else {
			valid = it.SeekGE(base.MakeSearchKey([]byte(s.start)))
		}
		var count int64
		for ; valid; valid = it.Next() {
			key := it.Key()
			if s.end != "" && cmp.Compare(key.UserKey, []byte(s.end)) >= 0 {
				break
			}
			fmt.Fprintf(stdout, "%s [%x]\n", key.Pretty(cmp.FormatKey), it.Value())
			count++
			if s.count > 0 && count >= s.count {
				break
			}
		}
		if err := it.Error(); err != nil {
			fmt.Fprintf(stdout, "%s\n", err)
		}
	})
}
