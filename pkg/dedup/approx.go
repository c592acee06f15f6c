// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dedup

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
)

// ErrInvalidRate is returned for false-positive rates outside (0, 1).
var ErrInvalidRate = errors.New("dedup: false-positive rate must be in (0, 1)")

type approxShard struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// Approximate is a sharded Bloom filter.
//
// # Description
//
// Memory is fixed at construction from the expected capacity and target
// false-positive rate. Seen may wrongly report a novel label as seen with
// roughly the configured probability while the filter holds no more than
// its capacity; it never reports a marked label as novel.
//
// # Thread Safety
//
// Safe for concurrent use.
type Approximate struct {
	shards []approxShard
	rate   float64
	n      atomic.Uint64
}

// NewApproximate sizes one filter per shard for capacity/shards entries.
func NewApproximate(capacity uint64, fpRate float64, shards int) (*Approximate, error) {
	if fpRate <= 0 || fpRate >= 1 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidRate, fpRate)
	}
	if shards < 1 {
		shards = DefaultShards
	}
	perShard := max(capacity/uint64(shards)+1, 64)

	a := &Approximate{shards: make([]approxShard, shards), rate: fpRate}
	for i := range a.shards {
		a.shards[i].filter = bloom.NewWithEstimates(uint(perShard), fpRate)
	}
	return a, nil
}

// Seen implements Deduplicator.
func (a *Approximate) Seen(l string) bool {
	sh := &a.shards[shardOf(l, len(a.shards))]
	sh.mu.Lock()
	seen := sh.filter.TestAndAddString(l)
	sh.mu.Unlock()
	if !seen {
		a.n.Add(1)
	}
	return seen
}

// Len implements Deduplicator.
func (a *Approximate) Len() uint64 { return a.n.Load() }

// Mode implements Deduplicator.
func (a *Approximate) Mode() Mode { return ModeApprox }

// FalsePositiveRate returns the configured target rate.
func (a *Approximate) FalsePositiveRate() float64 { return a.rate }

// SizeBytes returns the memory held by the filters' bit arrays.
func (a *Approximate) SizeBytes() uint64 {
	var bits uint64
	for i := range a.shards {
		bits += uint64(a.shards[i].filter.Cap())
	}
	return bits / 8
}

// Close implements Deduplicator. Filters are left to the garbage collector.
func (a *Approximate) Close() error { return nil }
