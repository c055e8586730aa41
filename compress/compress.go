// Package compress provides the whole-block compression codecs used by
// block-structured asset streams.
//
// A stream names its codec with a 4-byte magic; the built-in codecs cover
// the tags observed in shipped archives: "ZLIB" (the common case), "LZ4 ",
// and "ZSTD". Additional codecs can be installed with [Register].
package compress

import (
	"slices"
	"strings"
	"sync"
)

// Stream magics of the built-in codecs.
var (
	MagicZlib = [4]byte{'Z', 'L', 'I', 'B'}
	MagicLZ4  = [4]byte{'L', 'Z', '4', ' '}
	MagicZstd = [4]byte{'Z', 'S', 'T', 'D'}
)

// Codec compresses and decompresses whole blocks.
//
// Implementations must be safe for concurrent use.
type Codec interface {
	// Magic returns the 4-byte stream tag that selects this codec.
	Magic() [4]byte

	// Name returns a short lowercase identifier for flags and logs.
	Name() string

	// Inflate decompresses src. sizeHint is the caller's expected output
	// length; it sizes the result buffer but is not enforced, so callers
	// that require an exact length must check it themselves.
	Inflate(src []byte, sizeHint int) ([]byte, error)

	// Deflate compresses src. The result is only useful if it is shorter
	// than src; callers store the original bytes otherwise.
	Deflate(src []byte) ([]byte, error)
}

var (
	regMu    sync.RWMutex
	registry = map[[4]byte]Codec{}
)

// Register installs a codec, replacing any codec with the same magic.
// The built-in codecs are registered at package init.
func Register(c Codec) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[c.Magic()] = c
}

// Lookup returns the codec registered for magic.
func Lookup(magic [4]byte) (Codec, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	c, ok := registry[magic]
	return c, ok
}

// ByName returns the codec with the given Name.
func ByName(name string) (Codec, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	for _, c := range registry {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// Codecs returns the registered codecs sorted by name.
func Codecs() []Codec {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]Codec, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Codec) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return out
}

func init() {
	Register(zlibCodec{})
	Register(lz4Codec{})
	Register(&zstdCodec{})
}
