package hpk

import (
	"encoding/binary"
	"fmt"

	"github.com/hmtools/hpk/internal/readat"
)

// EntryKind says whether a name-table record names a file or a directory.
type EntryKind uint32

const (
	KindFile      EntryKind = 0
	KindDirectory EntryKind = 1
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return fmt.Sprintf("kind(0x%x)", uint32(k))
	}
}

// NameTableEntry is one variable-length record of a directory's name-table
// blob: the 1-based file-table index it references, the referenced entry's
// kind, and its name.
//
// Names are opaque byte sequences on the wire; no encoding is enforced.
// Index 0 never references a valid entry, but rejecting it is the
// resolver's job, along with all other index validation.
type NameTableEntry struct {
	Index uint32
	Kind  EntryKind
	Name  string
}

// encodedSize returns the record's on-wire length.
func (e NameTableEntry) encodedSize() int {
	return nameEntryMinSize + len(e.Name)
}

// appendBinary serializes the record.
func (e NameTableEntry) appendBinary(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, e.Index)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(e.Kind))
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(e.Name)))
	return append(dst, e.Name...)
}

// ReadNameTable decodes the name-table blob at [blobOffset, blobOffset+blobSize).
// Records are returned in wire order, which is the archive's iteration
// order for the directory's children.
//
// Consumption must land exactly on blobSize at a record boundary: a blob
// with leftover bytes too short for a record, or whose last record
// overshoots the blob, fails with ErrTrailingData. Reads beyond the
// underlying buffer fail with ErrTruncatedInput.
func ReadNameTable(src ByteSource, blobOffset, blobSize int64) ([]NameTableEntry, error) {
	var entries []NameTableEntry
	for cur := int64(0); cur < blobSize; {
		rem := blobSize - cur
		if rem < nameEntryMinSize {
			return nil, fmt.Errorf("%w: %d byte(s) left at offset 0x%x", ErrTrailingData, rem, blobOffset+cur)
		}
		rec, err := readat.Section(src, blobOffset+cur, nameEntryMinSize, ErrTruncatedInput)
		if err != nil {
			return nil, fmt.Errorf("name entry at offset 0x%x: %w", blobOffset+cur, err)
		}

		e := NameTableEntry{
			Index: binary.LittleEndian.Uint32(rec),
			Kind:  EntryKind(binary.LittleEndian.Uint32(rec[4:])),
		}
		if e.Kind != KindFile && e.Kind != KindDirectory {
			return nil, fmt.Errorf("%w: 0x%x at offset 0x%x", ErrUnknownEntryKind, uint32(e.Kind), blobOffset+cur)
		}

		nameLen := int64(binary.LittleEndian.Uint16(rec[8:]))
		if nameEntryMinSize+nameLen > rem {
			return nil, fmt.Errorf("%w: record at offset 0x%x spans outside the blob", ErrTrailingData, blobOffset+cur)
		}
		name, err := readat.Section(src, blobOffset+cur+nameEntryMinSize, nameLen, ErrTruncatedInput)
		if err != nil {
			return nil, fmt.Errorf("name entry at offset 0x%x: %w", blobOffset+cur, err)
		}
		e.Name = string(name)

		entries = append(entries, e)
		cur += nameEntryMinSize + nameLen
	}
	return entries, nil
}
