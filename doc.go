// Package hpk reads and writes the HPK game-asset container format: a flat,
// 1-based file table plus per-directory name tables, resolved into a
// navigable tree of named files and directories.
//
// The package operates on fully materialized, randomly-addressable buffers
// (a byte slice or a memory-mapped file) and never performs I/O of its own
// beyond the [ByteSource] handed to it.
//
// # Quick Start
//
// Open an archive and read a file:
//
//	a, err := hpk.OpenPath("textures.hpk")
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	content, err := a.ReadFile("CurrentLanguage/Game.csv")
//
// [Archive] implements [io/fs.FS], so the usual tooling works too:
// fs.WalkDir to enumerate entries, fstest.TestFS in tests, and so on.
//
// Build one:
//
//	b := hpk.NewBuilder()
//	b.AddFile("CurrentLanguage/Game.csv", csvData)
//	archiveBytes, err := b.Bytes()
//
// Large assets inside an archive are often wrapped in a seekable
// block-compressed stream; use the [github.com/hmtools/hpk/blockstream]
// package to decode arbitrary byte ranges of those without inflating the
// whole asset, and [github.com/hmtools/hpk/cache] to layer a decoded-block
// cache over repeated range reads.
package hpk
