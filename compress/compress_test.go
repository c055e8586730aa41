package compress

import (
	"bytes"
	"math/rand"
	"slices"
	"testing"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		magic    [4]byte
		wantName string
		wantOK   bool
	}{
		{name: "zlib", magic: MagicZlib, wantName: "zlib", wantOK: true},
		{name: "lz4", magic: MagicLZ4, wantName: "lz4", wantOK: true},
		{name: "zstd", magic: MagicZstd, wantName: "zstd", wantOK: true},
		{name: "unknown", magic: [4]byte{'N', 'O', 'P', 'E'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, ok := Lookup(tt.magic)
			if ok != tt.wantOK {
				t.Fatalf("Lookup() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if c.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", c.Name(), tt.wantName)
			}
			if c.Magic() != tt.magic {
				t.Errorf("Magic() = %v, want %v", c.Magic(), tt.magic)
			}
		})
	}
}

func TestByName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"zlib", "lz4", "zstd"} {
		c, ok := ByName(name)
		if !ok {
			t.Fatalf("ByName(%q) not found", name)
		}
		if c.Name() != name {
			t.Errorf("ByName(%q).Name() = %q", name, c.Name())
		}
	}

	if _, ok := ByName("gzip"); ok {
		t.Error("ByName(gzip) = found, want not found")
	}
}

func TestCodecs_SortedByName(t *testing.T) {
	t.Parallel()

	codecs := Codecs()
	names := make([]string, len(codecs))
	for i, c := range codecs {
		names[i] = c.Name()
	}
	if !slices.IsSorted(names) {
		t.Errorf("Codecs() order = %v, want sorted", names)
	}
	for _, want := range []string{"lz4", "zlib", "zstd"} {
		if !slices.Contains(names, want) {
			t.Errorf("Codecs() = %v, missing %q", names, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	// Compressible payloads only: callers never inflate data the codec
	// could not shrink, they store the original bytes instead.
	payloads := map[string][]byte{
		"short":      bytes.Repeat([]byte("a"), 64),
		"repetitive": bytes.Repeat([]byte("the quick brown fox "), 400),
	}

	for _, codec := range Codecs() {
		for label, payload := range payloads {
			t.Run(codec.Name()+"/"+label, func(t *testing.T) {
				t.Parallel()

				comp, err := codec.Deflate(payload)
				if err != nil {
					t.Fatalf("Deflate() unexpected error: %v", err)
				}
				if len(comp) >= len(payload) {
					t.Fatalf("Deflate() = %d bytes, want < %d", len(comp), len(payload))
				}

				got, err := codec.Inflate(comp, len(payload))
				if err != nil {
					t.Fatalf("Inflate() unexpected error: %v", err)
				}
				if !bytes.Equal(got, payload) {
					t.Errorf("Inflate() = %d bytes, want original %d", len(got), len(payload))
				}
			})
		}
	}
}

func TestLZ4_IncompressibleFallsBack(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 1024)
	rng := rand.New(rand.NewSource(1)) //nolint:gosec // deterministic test data
	rng.Read(payload)

	c, ok := ByName("lz4")
	if !ok {
		t.Fatal("lz4 codec not registered")
	}
	comp, err := c.Deflate(payload)
	if err != nil {
		t.Fatalf("Deflate() unexpected error: %v", err)
	}
	// Random bytes cannot shrink; the codec hands back a copy and the
	// caller's shorter-than check keeps the original.
	if !bytes.Equal(comp, payload) {
		t.Errorf("Deflate() incompressible = %d bytes, want verbatim copy", len(comp))
	}
}

func TestInflate_Garbage(t *testing.T) {
	t.Parallel()

	garbage := []byte("definitely not a compressed stream")
	for _, name := range []string{"zlib", "zstd"} {
		c, ok := ByName(name)
		if !ok {
			t.Fatalf("%s codec not registered", name)
		}
		if _, err := c.Inflate(garbage, 64); err == nil {
			t.Errorf("%s Inflate(garbage) error = nil, want error", name)
		}
	}
}
