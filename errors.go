package hpk

import "errors"

// Sentinel errors returned by the archive codecs.
//
// A malformed archive is not a transient condition: every failure below is
// detected at the point of violation and returned without any internal
// retry or recovery. Callers walking a tree are expected to abandon the
// affected entry and continue with its siblings.
var (
	// ErrMalformedHeader is returned when the fixed header region is
	// truncated, carries the wrong magic, or declares an impossible layout.
	ErrMalformedHeader = errors.New("hpk: malformed header")

	// ErrTruncatedInput is returned when a read would exceed the buffer.
	ErrTruncatedInput = errors.New("hpk: truncated input")

	// ErrIndexOutOfRange is returned for file-table indices outside
	// [1, entry count]. Index 0 is never valid.
	ErrIndexOutOfRange = errors.New("hpk: file table index out of range")

	// ErrCyclicReference is returned when a directory's expansion reaches
	// an index already being expanded on the same path. Directories form a
	// tree by construction, never a DAG.
	ErrCyclicReference = errors.New("hpk: cyclic directory reference")

	// ErrUnknownEntryKind is returned for a name-table kind other than
	// file (0) or directory (1).
	ErrUnknownEntryKind = errors.New("hpk: unknown entry kind")

	// ErrTrailingData is returned when a name-table blob does not consume
	// to its declared size on an exact record boundary. This catches
	// corrupt size fields early instead of silently misparsing the next
	// directory.
	ErrTrailingData = errors.New("hpk: trailing or misaligned name table data")

	// ErrTooDeep is returned when directory nesting exceeds the supported
	// depth.
	ErrTooDeep = errors.New("hpk: directory tree too deep")
)
