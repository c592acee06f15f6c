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
	"sync"
	"sync/atomic"
)

// maxShardHint caps the per-shard map preallocation.
const maxShardHint = 1 << 16

type exactShard struct {
	mu  sync.Mutex
	set map[string]struct{}
}

// Exact is an in-memory set partitioned into independently locked shards.
//
// # Thread Safety
//
// Safe for concurrent use.
type Exact struct {
	shards []exactShard
	n      atomic.Uint64
}

// NewExact creates an exact deduplicator. sizeHint is the expected number
// of novel labels and only affects preallocation.
func NewExact(shards int, sizeHint uint64) *Exact {
	if shards < 1 {
		shards = DefaultShards
	}
	hint := min(sizeHint/uint64(shards), maxShardHint)
	e := &Exact{shards: make([]exactShard, shards)}
	for i := range e.shards {
		e.shards[i].set = make(map[string]struct{}, hint)
	}
	return e
}

// Seen implements Deduplicator.
func (e *Exact) Seen(l string) bool {
	sh := &e.shards[shardOf(l, len(e.shards))]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.set[l]; ok {
		return true
	}
	sh.set[l] = struct{}{}
	e.n.Add(1)
	return false
}

// Len implements Deduplicator.
func (e *Exact) Len() uint64 { return e.n.Load() }

// Mode implements Deduplicator.
func (e *Exact) Mode() Mode { return ModeExact }

// Close drops every shard's set.
func (e *Exact) Close() error {
	for i := range e.shards {
		sh := &e.shards[i]
		sh.mu.Lock()
		sh.set = make(map[string]struct{})
		sh.mu.Unlock()
	}
	return nil
}
