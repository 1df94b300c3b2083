// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bpowers/flatrec"
	"github.com/bpowers/flatrec/recordlog"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <path>",
	Short: "print every record in a log",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return dump(args[0])
	},
}

func dump(path string) error {
	r, err := recordlog.NewMmapReaderWithPath(path)
	if err != nil {
		return fmt.Errorf("recordlog.NewMmapReaderWithPath(%s): %w", path, err)
	}
	defer func() {
		_ = r.Close()
	}()

	it := r.Iter()
	defer it.Close()
	for item, ok := it.Next(); ok; item, ok = it.Next() {
		arr, _, err := flatrec.FromBytes(item.Bytes)
		if err != nil {
			return fmt.Errorf("record at offset %d: %w", item.Offset, err)
		}
		fmt.Printf("%d: header=%d len=%d %s\n", item.Offset, arr.Header(), arr.Len(), arr)
	}

	return nil
}
