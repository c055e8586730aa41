package main

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hmtools/hpk"
	"github.com/hmtools/hpk/blockstream"
)

var extractCmd = &cobra.Command{
	Use:   "extract <archive> [dest]",
	Short: "Extract an archive into a directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().IntP("workers", "w", 4, "parallel extraction workers")
	extractCmd.Flags().Bool("raw", false, "write block-compressed assets as stored instead of decoding them")

	viper.BindPFlag("workers", extractCmd.Flags().Lookup("workers"))
	viper.BindPFlag("raw", extractCmd.Flags().Lookup("raw"))

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := initRun()
	if err != nil {
		return err
	}

	dest := "."
	if len(args) == 2 {
		dest = args[1]
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	a, err := hpk.OpenPath(args[0], hpk.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer a.Close()

	// Materialize the directory skeleton up front; the walk yields
	// parents before their children, so files only need the workers.
	type job struct {
		path string
		file *hpk.File
	}
	var jobs []job
	for path, node := range a.Root().Walk() {
		if !fs.ValidPath(path) {
			slog.Warn("skipping unsafe entry name", "path", path)
			continue
		}
		switch n := node.(type) {
		case *hpk.Directory:
			if err := os.MkdirAll(filepath.Join(dest, filepath.FromSlash(path)), 0o755); err != nil {
				return err
			}
		case *hpk.File:
			jobs = append(jobs, job{path: path, file: n})
		}
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	var failed atomic.Int64
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(workers)
	for _, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := extractFile(a, j.file, filepath.Join(dest, filepath.FromSlash(j.path)), cfg.Raw); err != nil {
				failed.Add(1)
				slog.Error("extract failed", "path", j.path, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("extraction complete", "files", len(jobs)-int(failed.Load()), "failed", failed.Load())
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d entries failed", n, len(jobs))
	}
	return nil
}

func extractFile(a *hpk.Archive, f *hpk.File, target string, raw bool) error {
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	src := a.Data(f)
	if !raw && blockstream.Detect(src) {
		r, err := blockstream.Open(src)
		if err != nil {
			out.Close()
			return err
		}
		if _, err := r.WriteTo(out); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	}

	if _, err := io.Copy(out, io.NewSectionReader(src, 0, int64(f.Size()))); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
