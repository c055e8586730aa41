package main

import (
	"fmt"
	"log/slog"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hmtools/hpk"
	"github.com/hmtools/hpk/blockstream"
)

var listCmd = &cobra.Command{
	Use:   "list <archive>",
	Short: "List the entries of an archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	listCmd.Flags().Bool("digest", false, "print a content digest per file (decoded form)")
	listCmd.Flags().BoolP("long", "l", false, "print file sizes")

	viper.BindPFlag("digest", listCmd.Flags().Lookup("digest"))
	viper.BindPFlag("long", listCmd.Flags().Lookup("long"))

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := initRun()
	if err != nil {
		return err
	}

	a, err := hpk.OpenPath(args[0], hpk.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer a.Close()

	for path, node := range a.Root().Walk() {
		if node.Kind() == hpk.KindDirectory {
			fmt.Println(path + "/")
			continue
		}

		f := node.(*hpk.File)
		line := path
		if cfg.Long {
			line = fmt.Sprintf("%10d  %s", f.Size(), path)
		}
		if cfg.Digest {
			line += "  " + entryDigest(a, path, f)
		}
		fmt.Println(line)
	}
	return nil
}

// entryDigest digests the file's decoded content. Failures are logged
// and rendered as a placeholder so one bad asset does not abort the
// listing.
func entryDigest(a *hpk.Archive, path string, f *hpk.File) string {
	content, err := decodedContent(a, f)
	if err != nil {
		slog.Warn("digest failed", "path", path, "error", err)
		return "-"
	}
	return digest.FromBytes(content).String()
}

// decodedContent returns f's bytes, transparently unwrapping a
// block-compressed asset.
func decodedContent(a *hpk.Archive, f *hpk.File) ([]byte, error) {
	src := a.Data(f)
	if blockstream.Detect(src) {
		r, err := blockstream.Open(src)
		if err != nil {
			return nil, err
		}
		return r.ReadRange(0, r.Size())
	}
	return a.ReadAll(f)
}
