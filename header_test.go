package hpk

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/hmtools/hpk/internal/testutil"
)

// rawHeader builds a fixed header region byte by byte.
func rawHeader(size, tableOff, hint uint32, reserved [5]uint32) []byte {
	buf := binary.LittleEndian.AppendUint32(nil, Magic)
	buf = binary.LittleEndian.AppendUint32(buf, size)
	for _, v := range reserved {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	buf = binary.LittleEndian.AppendUint32(buf, tableOff)
	if size >= headerSizeMax {
		buf = binary.LittleEndian.AppendUint32(buf, hint)
	}
	for uint32(len(buf)) < size {
		buf = append(buf, 0)
	}
	return buf
}

func TestParseHeader(t *testing.T) {
	t.Parallel()

	reserved := [5]uint32{1, 0xFFFFFFFF, 0, 0, 1}

	tests := []struct {
		name        string
		data        []byte
		want        Header
		wantErr     error
		errContains string
	}{
		{
			name: "count field variant",
			data: rawHeader(0x24, 0x100, 7, reserved),
			want: Header{HeaderSize: 0x24, Reserved: reserved, FileTableOffset: 0x100, TableHint: 7},
		},
		{
			name: "base variant without count field",
			data: rawHeader(0x20, 0x80, 0, reserved),
			want: Header{HeaderSize: 0x20, Reserved: reserved, FileTableOffset: 0x80},
		},
		{
			name: "padded intermediate variant",
			data: rawHeader(0x22, 0x80, 0, reserved),
			want: Header{HeaderSize: 0x22, Reserved: reserved, FileTableOffset: 0x80},
		},
		{
			name: "nonstandard reserved fields kept verbatim",
			data: rawHeader(0x24, 0x100, 2, [5]uint32{9, 8, 7, 6, 5}),
			want: Header{HeaderSize: 0x24, Reserved: [5]uint32{9, 8, 7, 6, 5}, FileTableOffset: 0x100, TableHint: 2},
		},
		{
			name:        "bad magic",
			data:        append([]byte("JUNK"), rawHeader(0x24, 0x100, 0, reserved)[4:]...),
			wantErr:     ErrMalformedHeader,
			errContains: "magic",
		},
		{
			name:        "header size too short",
			data:        rawHeader(0x1c, 0x100, 0, reserved),
			wantErr:     ErrMalformedHeader,
			errContains: "too short",
		},
		{
			name:        "unsupported format variant",
			data:        rawHeader(0x28, 0x100, 0, reserved),
			wantErr:     ErrMalformedHeader,
			errContains: "unsupported format variant",
		},
		{
			name:        "file table overlaps header",
			data:        rawHeader(0x24, 0x10, 0, reserved),
			wantErr:     ErrMalformedHeader,
			errContains: "overlaps",
		},
		{
			name:    "truncated fixed region",
			data:    rawHeader(0x20, 0x80, 0, reserved)[:0x18],
			wantErr: ErrMalformedHeader,
		},
		{
			name:    "count field missing from buffer",
			data:    rawHeader(0x24, 0x100, 7, reserved)[:0x20],
			wantErr: ErrMalformedHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseHeader(testutil.NewSource(tt.data))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseHeader() error = %v, wantErr %v", err, tt.wantErr)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("ParseHeader() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHeader() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseHeader() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHeaderEntryCountHint(t *testing.T) {
	t.Parallel()

	if hint, ok := (Header{HeaderSize: 0x24, TableHint: 7}).EntryCountHint(); !ok || hint != 7 {
		t.Errorf("EntryCountHint() = %d, %v, want 7, true", hint, ok)
	}
	if _, ok := (Header{HeaderSize: 0x20, TableHint: 7}).EntryCountHint(); ok {
		t.Error("EntryCountHint() ok = true for a header without the field")
	}
}

func TestHeaderAppendBinary(t *testing.T) {
	t.Parallel()

	for _, size := range []uint32{0x20, 0x21, 0x23, 0x24} {
		h := Header{
			HeaderSize:      size,
			Reserved:        [5]uint32{9, 8, 7, 6, 5},
			FileTableOffset: 0x40,
			TableHint:       3,
		}
		out := h.appendBinary(nil)
		if uint32(len(out)) != size {
			t.Fatalf("appendBinary() size 0x%x emitted %d bytes", size, len(out))
		}

		got, err := ParseHeader(testutil.NewSource(out))
		if err != nil {
			t.Fatalf("ParseHeader() size 0x%x unexpected error: %v", size, err)
		}
		want := h
		if size < headerSizeMax {
			want.TableHint = 0 // the field is not on the wire
		}
		if got != want {
			t.Errorf("round trip size 0x%x = %+v, want %+v", size, got, want)
		}
	}
}
