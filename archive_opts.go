package hpk

import "log/slog"

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets a logger for open and read diagnostics.
// If nil, logging is discarded (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithEntryCount fixes the file-table entry count instead of resolving it
// from the header and source size. Intended for archives whose count field
// is unreliable and whose table does not run to the end of the buffer.
func WithEntryCount(n int) Option {
	return func(a *Archive) {
		a.entryCount = n
		a.entryCountSet = true
	}
}
