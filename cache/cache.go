// Package cache provides a bounded decoded-block cache for
// block-compressed asset streams.
//
// The package is an optional layer over blockstream: a Blocks cache holds
// decoded blocks keyed by source identity and block index, and a Reader
// wraps a blockstream.Reader so that repeated range reads into the same
// asset stop re-inflating the blocks they overlap.
//
// Each block is decoded at most once: concurrent requests for a block
// that is still being decoded wait for the first decode instead of
// duplicating it.
package cache

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	arc "github.com/hashicorp/golang-lru/arc/v2"
	"golang.org/x/sync/singleflight"

	"github.com/hmtools/hpk/blockstream"
)

// DefaultMaxBlocks bounds a Blocks cache when no explicit capacity is
// given: 256 blocks, 8 MiB of decoded data at the default block size.
const DefaultMaxBlocks = 256

// blockKey identifies a decoded block across readers.
type blockKey struct {
	source string
	index  int
}

// Blocks is a bounded, shared cache of decoded blocks.
//
// Eviction is ARC (adaptive replacement), which balances recency and
// frequency; asset access patterns mix one-shot scans with hot index
// blocks, and ARC serves both without tuning. Safe for concurrent use.
type Blocks struct {
	arc    *arc.ARCCache[blockKey, []byte]
	group  singleflight.Group
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// BlocksOption configures a Blocks cache.
type BlocksOption func(*Blocks)

// WithLogger sets a logger for cache diagnostics.
// If nil, logging is discarded (default behavior).
func WithLogger(logger *slog.Logger) BlocksOption {
	return func(c *Blocks) {
		c.logger = logger
	}
}

// NewBlocks creates a cache holding up to maxBlocks decoded blocks.
// Capacities below one fall back to DefaultMaxBlocks.
func NewBlocks(maxBlocks int, opts ...BlocksOption) (*Blocks, error) {
	if maxBlocks < 1 {
		maxBlocks = DefaultMaxBlocks
	}
	a, err := arc.NewARC[blockKey, []byte](maxBlocks)
	if err != nil {
		return nil, fmt.Errorf("create block cache: %w", err)
	}
	c := &Blocks{arc: a}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Blocks) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// Block returns block i of r, decoding and caching it on first use.
//
// The returned slice is shared with the cache; callers must not modify
// it. Decode failures are not cached: a corrupt block fails every call.
func (c *Blocks) Block(r *blockstream.Reader, i int) ([]byte, error) {
	key := blockKey{source: r.SourceID(), index: i}
	if blk, ok := c.arc.Get(key); ok {
		c.hits.Add(1)
		return blk, nil
	}
	c.misses.Add(1)
	c.log().Debug("block cache miss", "source", key.source, "block", i)

	result, err, _ := c.group.Do(key.source+"#"+strconv.Itoa(i), func() (any, error) {
		// Double-check: an earlier flight may have populated the entry.
		if blk, ok := c.arc.Get(key); ok {
			return blk, nil
		}
		blk, err := r.Block(i)
		if err != nil {
			return nil, err
		}
		c.arc.Add(key, blk)
		return blk, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil //nolint:errcheck // type assertion always succeeds when err is nil
}

// Len returns the number of cached blocks.
func (c *Blocks) Len() int {
	return c.arc.Len()
}

// Purge drops every cached block.
func (c *Blocks) Purge() {
	c.arc.Purge()
}

// Stats returns cumulative hit and miss counts.
func (c *Blocks) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
