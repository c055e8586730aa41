package hpk

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBytesSource(t *testing.T) {
	t.Parallel()

	src := NewBytesSource([]byte("0123456789"))
	if src.Size() != 10 {
		t.Errorf("Size() = %d, want 10", src.Size())
	}

	buf := make([]byte, 4)
	n, err := src.ReadAt(buf, 3)
	if err != nil || n != 4 || string(buf) != "3456" {
		t.Errorf("ReadAt(4@3) = %d %q %v, want 4 %q nil", n, buf, err, "3456")
	}

	// Short read at the tail reports how far it got plus EOF.
	n, err = src.ReadAt(buf, 8)
	if n != 2 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadAt(4@8) = %d %v, want 2 io.EOF", n, err)
	}
	if _, err := src.ReadAt(buf, 10); !errors.Is(err, io.EOF) {
		t.Errorf("ReadAt past end error = %v, want io.EOF", err)
	}
	if _, err := src.ReadAt(buf, -1); err == nil {
		t.Errorf("ReadAt at negative offset succeeded, want error")
	}
}

func TestBytesSourceID(t *testing.T) {
	t.Parallel()

	a := NewBytesSource([]byte("same content"))
	b := NewBytesSource([]byte("same content"))
	c := NewBytesSource([]byte("other content"))

	if a.SourceID() != a.SourceID() {
		t.Errorf("SourceID() changed between calls")
	}
	if a.SourceID() != b.SourceID() {
		t.Errorf("identical content gave different ids: %q vs %q", a.SourceID(), b.SourceID())
	}
	if a.SourceID() == c.SourceID() {
		t.Errorf("different content gave the same id %q", a.SourceID())
	}
	if !strings.HasPrefix(a.SourceID(), "bytes:") {
		t.Errorf("SourceID() = %q, want bytes-backed identifier", a.SourceID())
	}
}

func TestSection(t *testing.T) {
	t.Parallel()

	parent := NewBytesSource([]byte("abcdefghij"))
	view := Section(parent, 2, 5) // "cdefg"

	if view.Size() != 5 {
		t.Errorf("Size() = %d, want 5", view.Size())
	}
	buf := make([]byte, 5)
	if _, err := view.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("ReadAt() unexpected error: %v", err)
	}
	if string(buf) != "cdefg" {
		t.Errorf("window = %q, want %q", buf, "cdefg")
	}

	if _, err := view.ReadAt(buf, 5); !errors.Is(err, io.EOF) {
		t.Errorf("ReadAt past window error = %v, want io.EOF", err)
	}
	if id := view.SourceID(); !strings.Contains(id, parent.SourceID()) {
		t.Errorf("SourceID() = %q, want it derived from the parent id", id)
	}

	// Windows over distinct spans must key differently.
	if Section(parent, 2, 5).SourceID() == Section(parent, 3, 5).SourceID() {
		t.Errorf("distinct windows share a SourceID")
	}
}

func TestMappedFile(t *testing.T) {
	t.Parallel()

	content := []byte("mapped archive bytes")
	path := filepath.Join(t.TempDir(), "asset.hpk")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	m, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() unexpected error: %v", err)
	}
	defer m.Close()

	if m.Size() != int64(len(content)) {
		t.Errorf("Size() = %d, want %d", m.Size(), len(content))
	}
	buf := make([]byte, len(content))
	if _, err := m.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("ReadAt() unexpected error: %v", err)
	}
	if !bytes.Equal(buf, content) {
		t.Errorf("mapped bytes = %q, want %q", buf, content)
	}
	if !strings.HasPrefix(m.SourceID(), "file:") {
		t.Errorf("SourceID() = %q, want file-backed identifier", m.SourceID())
	}

	if _, err := OpenFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("OpenFile() on a missing path succeeded, want error")
	}
}
