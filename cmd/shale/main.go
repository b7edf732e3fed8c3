// Copyright 2023 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Command shale inspects shale table files.
package main

import (
	"os"

	"github.com/shale-db/shale/tool"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "shale",
		Short: "shale table file introspection",
	}

	t := tool.New()
	root.AddCommand(t.Commands...)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
