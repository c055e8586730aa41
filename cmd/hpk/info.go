package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hmtools/hpk"
	"github.com/hmtools/hpk/blockstream"
)

var infoCmd = &cobra.Command{
	Use:   "info <archive>",
	Short: "Show archive header fields and entry statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	if _, err := initRun(); err != nil {
		return err
	}

	a, err := hpk.OpenPath(args[0], hpk.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer a.Close()

	var files, dirs, wrapped int
	var contentBytes uint64
	for _, node := range a.Root().Walk() {
		switch n := node.(type) {
		case *hpk.Directory:
			dirs++
		case *hpk.File:
			files++
			contentBytes += uint64(n.Size())
			if blockstream.Detect(a.Data(n)) {
				wrapped++
			}
		}
	}

	h := a.Header()
	fmt.Printf("header size:   0x%x\n", h.HeaderSize)
	fmt.Printf("file table:    offset 0x%x, %d entries\n", h.FileTableOffset, a.EntryCount())
	if hint, ok := h.EntryCountHint(); ok {
		fmt.Printf("count field:   %d\n", hint)
	}
	fmt.Printf("directories:   %d\n", dirs)
	fmt.Printf("files:         %d (%d block-compressed)\n", files, wrapped)
	fmt.Printf("content bytes: %d\n", contentBytes)
	return nil
}
