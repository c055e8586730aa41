package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hmtools/hpk"
	"github.com/hmtools/hpk/blockstream"
	"github.com/hmtools/hpk/compress"
)

var createCmd = &cobra.Command{
	Use:   "create <dir> <archive>",
	Short: "Build an archive from a directory tree",
	Args:  cobra.ExactArgs(2),
	RunE:  runCreate,
}

func init() {
	createCmd.Flags().StringP("compress", "c", "none", "block-compress file contents (none, zlib, lz4, zstd)")
	createCmd.Flags().Int("block-size", blockstream.DefaultBlockSize, "block granularity for compressed assets")
	createCmd.Flags().Int("min-compress-size", 4096, "only compress files at least this large")

	viper.BindPFlag("compress", createCmd.Flags().Lookup("compress"))
	viper.BindPFlag("block_size", createCmd.Flags().Lookup("block-size"))
	viper.BindPFlag("min_compress_size", createCmd.Flags().Lookup("min-compress-size"))

	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := initRun()
	if err != nil {
		return err
	}

	var codec compress.Codec
	if cfg.Compress != "" && cfg.Compress != "none" {
		c, ok := compress.ByName(cfg.Compress)
		if !ok {
			return fmt.Errorf("unknown codec %q", cfg.Compress)
		}
		codec = c
	}

	fsys := os.DirFS(args[0])

	var out []byte
	if codec == nil {
		out, err = hpk.FromFS(cmd.Context(), fsys, hpk.WithBuilderLogger(slog.Default()))
	} else {
		out, err = buildCompressed(cmd, fsys, codec, cfg)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(args[1], out, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	slog.Info("archive created", "path", args[1], "size", len(out), "codec", cfg.Compress)
	return nil
}

// buildCompressed walks the source tree and wraps each sufficiently
// large file in a block-compressed stream. Files the codec cannot
// shrink are stored as-is.
func buildCompressed(cmd *cobra.Command, fsys fs.FS, codec compress.Codec, cfg *config) ([]byte, error) {
	b := hpk.NewBuilder(hpk.WithBuilderLogger(slog.Default()))

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		if path == "." {
			return nil
		}

		switch {
		case d.IsDir():
			return b.AddDir(path)
		case !d.Type().IsRegular():
			slog.Debug("skipping irregular file", "path", path)
			return nil
		default:
			data, err := fs.ReadFile(fsys, path)
			if err != nil {
				return err
			}
			if len(data) >= cfg.MinSize {
				enc, err := blockstream.Encode(data,
					blockstream.WithCodec(codec),
					blockstream.WithBlockSize(cfg.BlockSize),
				)
				if err != nil {
					return fmt.Errorf("compress %s: %w", path, err)
				}
				if len(enc) < len(data) {
					data = enc
				}
			}
			return b.AddFile(path, data)
		}
	})
	if err != nil {
		return nil, err
	}

	return b.Bytes()
}
