package testutil

import (
	"encoding/binary"
	"math"
	"testing"
)

// Wire-format constants, duplicated here so fixtures do not depend on the
// encoders they are used to test.
const (
	archiveMagic   = 0x4c555042
	testHeaderSize = 0x24
)

// TestRecord holds data for one name-table record. Kind is raw so tests
// can write values the decoder must reject.
type TestRecord struct {
	Index uint32
	Kind  uint32
	Name  string
}

// TestEntry describes one file-table slot of a handcrafted archive. A nil
// Records slice makes the blob raw file content; otherwise the blob is a
// directory name table built from the records.
type TestEntry struct {
	Records []TestRecord
	Data    []byte
}

// AppendRecord appends the wire form of a name-table record.
func AppendRecord(dst []byte, r TestRecord) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, r.Index)
	dst = binary.LittleEndian.AppendUint32(dst, r.Kind)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(r.Name)))
	return append(dst, r.Name...)
}

// BuildTestArchive creates a raw archive image from test entries. Entry i
// of the slice becomes 1-based index i+1, so the first entry is the root
// directory. The layout matches the write path: a 0x24-byte header, entry
// blobs back to back, then the file table.
func BuildTestArchive(tb testing.TB, entries []TestEntry) []byte {
	tb.Helper()

	blobs := make([][]byte, len(entries))
	for i, e := range entries {
		if e.Records == nil {
			blobs[i] = e.Data
			continue
		}
		var blob []byte
		for _, r := range e.Records {
			blob = AppendRecord(blob, r)
		}
		blobs[i] = blob
	}

	offset := int64(testHeaderSize)
	table := make([]byte, 0, 8*len(blobs))
	for _, blob := range blobs {
		if offset > math.MaxUint32 {
			tb.Fatalf("test archive exceeds u32 offsets at %d", offset)
		}
		table = binary.LittleEndian.AppendUint32(table, uint32(offset))
		table = binary.LittleEndian.AppendUint32(table, uint32(len(blob)))
		offset += int64(len(blob))
	}

	out := make([]byte, 0, offset+int64(len(table)))
	out = binary.LittleEndian.AppendUint32(out, archiveMagic)
	out = binary.LittleEndian.AppendUint32(out, testHeaderSize)
	for _, v := range [5]uint32{1, 0xFFFFFFFF, 0, 0, 1} {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	out = binary.LittleEndian.AppendUint32(out, uint32(offset))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(blobs)))
	for _, blob := range blobs {
		out = append(out, blob...)
	}
	return append(out, table...)
}
