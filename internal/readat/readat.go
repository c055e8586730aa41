// Package readat provides bounds-checked section reads over an io.ReaderAt.
package readat

import (
	"errors"
	"fmt"
	"io"
)

// Section reads exactly n bytes at off from src.
//
// A read that cannot be satisfied in full returns truncatedErr (wrapped with
// position context); other I/O failures are returned as-is.
func Section(src io.ReaderAt, off, n int64, truncatedErr error) ([]byte, error) {
	if off < 0 || n < 0 {
		return nil, fmt.Errorf("read %d bytes at offset %d: %w", n, off, truncatedErr)
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	m, err := src.ReadAt(buf, off)
	if int64(m) == n {
		// A full read may still report io.EOF when it ends at the buffer
		// boundary; that is not an error here.
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read %d bytes at offset %d: %w", n, off, truncatedErr)
	}
	return nil, fmt.Errorf("read %d bytes at offset %d: %w", n, off, err)
}
