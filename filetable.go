package hpk

import (
	"encoding/binary"
	"fmt"

	"github.com/hmtools/hpk/internal/readat"
)

// FileTableEntry is one fixed-size record of the file table: the byte span
// holding the indexed entry's data. For a file that is the content; for a
// directory it is the name-table blob describing the children.
//
// Entries carry neither kind nor name. Both come from the name table of the
// directory that references the entry.
type FileTableEntry struct {
	Offset uint32
	Size   uint32
}

// ReadFileTable decodes count 8-byte records starting at tableOffset.
// Indices into the returned slice are 0-based; the archive addresses the
// same records 1-based, so entry i lives at index i-1.
//
// Records are not validated for plausibility here. The table alone does not
// say which entries are files and which are directories, so span checks
// belong to the resolver.
func ReadFileTable(src ByteSource, tableOffset int64, count int) ([]FileTableEntry, error) {
	if count < 0 {
		return nil, fmt.Errorf("hpk: negative file table count %d", count)
	}
	buf, err := readat.Section(src, tableOffset, int64(count)*fileEntrySize, ErrTruncatedInput)
	if err != nil {
		return nil, fmt.Errorf("file table: %w", err)
	}
	entries := make([]FileTableEntry, count)
	for i := range entries {
		rec := buf[i*fileEntrySize:]
		entries[i] = FileTableEntry{
			Offset: binary.LittleEndian.Uint32(rec),
			Size:   binary.LittleEndian.Uint32(rec[4:]),
		}
	}
	return entries, nil
}

// resolveEntryCount picks the file-table entry count for an archive of
// srcSize bytes. The header's count field is used when present and
// plausible; otherwise the count falls back to the number of whole records
// between the table offset and the end of the buffer, which is where the
// table runs in every observed archive.
func resolveEntryCount(h Header, srcSize int64) int {
	avail := srcSize - int64(h.FileTableOffset)
	if avail < 0 {
		avail = 0
	}
	derived := avail / fileEntrySize
	if hint, ok := h.EntryCountHint(); ok {
		if n := int64(hint); n > 0 && n <= derived {
			return int(n)
		}
	}
	return int(derived)
}
