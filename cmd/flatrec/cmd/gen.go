// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/bpowers/flatrec"
	"github.com/bpowers/flatrec/recordlog"
)

var (
	genCount  int
	genMaxLen int
)

var genCmd = &cobra.Command{
	Use:   "gen <path>",
	Short: "write a log of random float64 arrays, for testing",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return gen(args[0], genCount, genMaxLen)
	},
}

func init() {
	genCmd.Flags().IntVar(&genCount, "count", 1000, "number of records to write")
	genCmd.Flags().IntVar(&genMaxLen, "max-len", 64, "maximum values per record")
}

func newRand() *rand.Rand {
	var seedBytes [8]byte
	_, _ = crand.Read(seedBytes[:])
	seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))
	return rand.New(rand.NewSource(seed))
}

func gen(path string, count, maxLen int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("os.Create(%s): %w", path, err)
	}
	// backstop for the error paths; the success path closes explicitly
	// below so close errors are reported
	defer func() {
		_ = f.Close()
	}()

	w, err := recordlog.NewWriter(f)
	if err != nil {
		return fmt.Errorf("recordlog.NewWriter: %w", err)
	}

	rng := newRand()
	for i := 0; i < count; i++ {
		vals := make([]float64, rng.Intn(maxLen+1))
		for j := range vals {
			vals[j] = rng.NormFloat64()
		}
		record, err := flatrec.New(vals)
		if err != nil {
			return fmt.Errorf("flatrec.New: %w", err)
		}
		if _, err := w.Append(record); err != nil {
			return fmt.Errorf("w.Append: %w", err)
		}
	}

	if err := w.Finish(); err != nil {
		return fmt.Errorf("w.Finish: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("f.Sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("f.Close: %w", err)
	}

	fmt.Printf("wrote %d records to %s\n", count, path)
	return nil
}
