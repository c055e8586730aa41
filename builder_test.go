package hpk

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

func buildBytes(t *testing.T, b *Builder) []byte {
	t.Helper()
	out, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes() unexpected error: %v", err)
	}
	return out
}

func TestBuilderRoundTrip(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"CurrentLanguage/Game.csv": sampleCSV,
		"CurrentLanguage/UI.csv":   "ID;Text\nOK;Oui\n",
		"readme.txt":               "game assets",
	}

	b := NewBuilder()
	for _, path := range []string{"CurrentLanguage/Game.csv", "CurrentLanguage/UI.csv", "readme.txt"} {
		if err := b.AddFile(path, []byte(files[path])); err != nil {
			t.Fatalf("AddFile(%q) unexpected error: %v", path, err)
		}
	}
	if err := b.AddDir("empty"); err != nil {
		t.Fatalf("AddDir() unexpected error: %v", err)
	}

	a, err := OpenBytes(buildBytes(t, b))
	if err != nil {
		t.Fatalf("OpenBytes() unexpected error: %v", err)
	}

	var paths []string
	for path, node := range a.Root().Walk() {
		paths = append(paths, path)
		f, ok := node.(*File)
		if !ok {
			continue
		}
		got, err := a.ReadAll(f)
		if err != nil {
			t.Fatalf("ReadAll(%q) unexpected error: %v", path, err)
		}
		if string(got) != files[path] {
			t.Errorf("content of %q = %q, want %q", path, got, files[path])
		}
	}

	want := []string{
		"CurrentLanguage", "CurrentLanguage/Game.csv", "CurrentLanguage/UI.csv",
		"readme.txt", "empty",
	}
	if len(paths) != len(want) {
		t.Fatalf("walk = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("walk[%d] = %q, want %q", i, paths[i], want[i])
		}
	}

	if empty, ok := a.Root().Child("empty").(*Directory); !ok || len(empty.Children()) != 0 {
		t.Errorf("Child(%q) = %v, want empty directory", "empty", a.Root().Child("empty"))
	}
}

func TestBuilderDeterministic(t *testing.T) {
	t.Parallel()

	build := func() *Builder {
		b := NewBuilder()
		if err := b.AddFile("a/one.bin", []byte{1, 2, 3}); err != nil {
			t.Fatalf("AddFile() unexpected error: %v", err)
		}
		if err := b.AddFile("b.bin", []byte{4}); err != nil {
			t.Fatalf("AddFile() unexpected error: %v", err)
		}
		return b
	}

	first := build()
	out1 := buildBytes(t, first)
	if out2 := buildBytes(t, build()); !bytes.Equal(out1, out2) {
		t.Errorf("identical add sequences produced different archives")
	}
	// Bytes is repeatable on the same builder too.
	if again := buildBytes(t, first); !bytes.Equal(out1, again) {
		t.Errorf("second Bytes() call produced a different archive")
	}
}

func TestBuilderLayout(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	if err := b.AddFile("CurrentLanguage/Game.csv", []byte(sampleCSV)); err != nil {
		t.Fatalf("AddFile() unexpected error: %v", err)
	}
	out := buildBytes(t, b)
	src := NewBytesSource(out)

	h, err := ParseHeader(src)
	if err != nil {
		t.Fatalf("ParseHeader() unexpected error: %v", err)
	}
	if h.HeaderSize != 0x24 {
		t.Errorf("header size = 0x%x, want 0x24", h.HeaderSize)
	}
	if h.Reserved != reservedDefaults {
		t.Errorf("reserved = %v, want %v", h.Reserved, reservedDefaults)
	}
	if hint, ok := h.EntryCountHint(); !ok || hint != 3 {
		t.Errorf("EntryCountHint() = (%d, %t), want (3, true)", hint, ok)
	}
	if want := uint32(len(out) - 3*fileEntrySize); h.FileTableOffset != want {
		t.Errorf("table offset = %d, want %d (table last)", h.FileTableOffset, want)
	}

	entries, err := ReadFileTable(src, int64(h.FileTableOffset), 3)
	if err != nil {
		t.Fatalf("ReadFileTable() unexpected error: %v", err)
	}
	if entries[0].Offset != 0x24 {
		t.Errorf("root blob offset = %d, want directly after the header", entries[0].Offset)
	}
	if want := uint32(nameEntryMinSize + len("CurrentLanguage")); entries[0].Size != want {
		t.Errorf("root blob size = %d, want %d", entries[0].Size, want)
	}
	if entries[1].Offset != entries[0].Offset+entries[0].Size {
		t.Errorf("blobs are not back to back: %+v", entries)
	}
	if entries[2].Size != uint32(len(sampleCSV)) {
		t.Errorf("file span size = %d, want %d", entries[2].Size, len(sampleCSV))
	}
}

func TestBuilderAddErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		setup       func(b *Builder)
		op          func(b *Builder) error
		errContains string
	}{
		{
			name:        "parent traversal",
			op:          func(b *Builder) error { return b.AddFile("../escape", nil) },
			errContains: "invalid path",
		},
		{
			name:        "rooted path",
			op:          func(b *Builder) error { return b.AddFile("/abs", nil) },
			errContains: "invalid path",
		},
		{
			name:        "dot path",
			op:          func(b *Builder) error { return b.AddDir(".") },
			errContains: "invalid path",
		},
		{
			name:        "empty segment",
			op:          func(b *Builder) error { return b.AddFile("a//b", nil) },
			errContains: "invalid path",
		},
		{
			name:        "duplicate file",
			setup:       func(b *Builder) { _ = b.AddFile("a.txt", []byte("x")) },
			op:          func(b *Builder) error { return b.AddFile("a.txt", []byte("y")) },
			errContains: "already added",
		},
		{
			name:        "directory over file",
			setup:       func(b *Builder) { _ = b.AddFile("a.txt", nil) },
			op:          func(b *Builder) error { return b.AddDir("a.txt") },
			errContains: "already added as a file",
		},
		{
			name:        "file under file",
			setup:       func(b *Builder) { _ = b.AddFile("a.txt", nil) },
			op:          func(b *Builder) error { return b.AddFile("a.txt/b", nil) },
			errContains: "already added as a file",
		},
		{
			name:        "file over directory",
			setup:       func(b *Builder) { _ = b.AddDir("d") },
			op:          func(b *Builder) error { return b.AddFile("d", nil) },
			errContains: "already added",
		},
		{
			name:        "segment name too long",
			op:          func(b *Builder) error { return b.AddFile(strings.Repeat("n", 1<<16), nil) },
			errContains: "too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := NewBuilder()
			if tt.setup != nil {
				tt.setup(b)
			}
			err := tt.op(b)
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %v, want substring %q", err, tt.errContains)
			}
		})
	}
}

func TestBuilderAddDirIdempotent(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	if err := b.AddFile("assets/map.bin", []byte{1}); err != nil {
		t.Fatalf("AddFile() unexpected error: %v", err)
	}
	// Both over an implicit directory and repeated on an explicit one.
	for range 2 {
		if err := b.AddDir("assets"); err != nil {
			t.Errorf("AddDir() unexpected error: %v", err)
		}
	}

	a, err := OpenBytes(buildBytes(t, b))
	if err != nil {
		t.Fatalf("OpenBytes() unexpected error: %v", err)
	}
	if len(a.Root().Children()) != 1 {
		t.Errorf("root has %d children, want 1", len(a.Root().Children()))
	}
}

func TestBuilderEmpty(t *testing.T) {
	t.Parallel()

	a, err := OpenBytes(buildBytes(t, NewBuilder()))
	if err != nil {
		t.Fatalf("OpenBytes() unexpected error: %v", err)
	}
	if a.EntryCount() != 1 {
		t.Errorf("EntryCount() = %d, want just the root", a.EntryCount())
	}
	if len(a.Root().Children()) != 0 {
		t.Errorf("root children = %v, want none", a.Root().Children())
	}
}

func TestBuilderWriteTo(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	if err := b.AddFile("x.bin", []byte{1, 2, 3}); err != nil {
		t.Fatalf("AddFile() unexpected error: %v", err)
	}
	want := buildBytes(t, b)

	var buf bytes.Buffer
	n, err := b.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo() unexpected error: %v", err)
	}
	if n != int64(len(want)) || !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("WriteTo() wrote %d bytes, want %d identical to Bytes()", n, len(want))
	}
}

func TestFromFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"assets/map.bin":   &fstest.MapFile{Data: []byte{0, 1, 2}},
		"assets/tiles.dat": &fstest.MapFile{Data: []byte("tiles")},
		"empty":            &fstest.MapFile{Mode: fs.ModeDir},
		"link":             &fstest.MapFile{Data: []byte("target"), Mode: fs.ModeSymlink},
		"notes.txt":        &fstest.MapFile{Data: []byte("hi")},
	}

	got, err := FromFS(context.Background(), fsys)
	if err != nil {
		t.Fatalf("FromFS() unexpected error: %v", err)
	}

	// FromFS adds in fs.WalkDir's lexical order; the same adds by hand
	// must produce the identical archive. The symlink is skipped.
	b := NewBuilder()
	for _, add := range []func() error{
		func() error { return b.AddDir("assets") },
		func() error { return b.AddFile("assets/map.bin", []byte{0, 1, 2}) },
		func() error { return b.AddFile("assets/tiles.dat", []byte("tiles")) },
		func() error { return b.AddDir("empty") },
		func() error { return b.AddFile("notes.txt", []byte("hi")) },
	} {
		if err := add(); err != nil {
			t.Fatalf("manual add unexpected error: %v", err)
		}
	}
	if want := buildBytes(t, b); !bytes.Equal(got, want) {
		t.Errorf("FromFS() differs from the equivalent manual build")
	}

	a, err := OpenBytes(got)
	if err != nil {
		t.Fatalf("OpenBytes() unexpected error: %v", err)
	}
	if a.Root().Child("link") != nil {
		t.Errorf("symlink made it into the archive")
	}
}

func TestFromFSCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FromFS(ctx, fstest.MapFS{"a.txt": &fstest.MapFile{Data: []byte("x")}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("FromFS() error = %v, wantErr %v", err, context.Canceled)
	}
}
