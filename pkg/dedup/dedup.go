// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dedup filters a label stream for uniqueness within a memory or
// accuracy budget.
//
// Three backends share the Deduplicator contract:
//
//   - Exact: sharded in-memory sets. Exact, memory grows with volume.
//   - Approximate: sharded Bloom filters sized up front for a target
//     false-positive rate. A false positive drops a novel label; a true
//     duplicate is never reported as novel.
//   - Disk: exact membership in a scratch Badger database for volumes
//     beyond what fits in memory.
//
// All backends hash the label with xxhash to pick a shard and hold that
// shard's lock across check-then-mark, so concurrent workers never both
// treat the same label as novel.
package dedup

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ErrUnknownMode is returned by ParseMode for unrecognised names.
var ErrUnknownMode = errors.New("dedup: unknown mode")

// Mode names a deduplication backend.
type Mode string

const (
	// ModeAuto lets Select choose between exact and approximate.
	ModeAuto   Mode = "auto"
	ModeExact  Mode = "exact"
	ModeApprox Mode = "approx"
	ModeDisk   Mode = "disk"
)

// ParseMode parses a mode name. The empty string means ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeExact, ModeApprox, ModeDisk:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (want auto, exact, approx or disk)", ErrUnknownMode, s)
	}
}

// Deduplicator answers "was this label emitted before?".
type Deduplicator interface {
	// Seen reports whether l was marked before and marks it if not.
	// Check and mark are atomic with respect to concurrent callers.
	Seen(l string) bool

	// Len returns the number of labels marked as novel.
	Len() uint64

	// Mode returns the backend in use.
	Mode() Mode

	// Close releases memory, files and database handles.
	Close() error
}

// =============================================================================
// Policy
// =============================================================================

const (
	DefaultExactCeiling      uint64  = 5_000_000
	DefaultFalsePositiveRate float64 = 0.001
	DefaultShards                    = 16

	minApproxCapacity = 1024
)

// Policy configures mode selection and backend sizing for one run.
type Policy struct {
	// Mode is the requested backend. ModeAuto defers to ExactCeiling.
	Mode Mode

	// ExactCeiling is the largest target for which auto mode keeps an
	// exact in-memory set.
	ExactCeiling uint64

	// FalsePositiveRate sizes the approximate backend.
	FalsePositiveRate float64

	// Shards is the number of independently locked partitions.
	Shards int

	// DiskDir is the parent of the disk backend's scratch directory.
	// Empty means the OS temp dir.
	DiskDir string

	// DiskInMemory runs the disk backend without touching the filesystem.
	DiskInMemory bool

	// Logger receives backend diagnostics. Nil disables them.
	Logger *slog.Logger
}

// DefaultPolicy returns auto mode with the default ceiling and sizing.
func DefaultPolicy() Policy {
	return Policy{
		Mode:              ModeAuto,
		ExactCeiling:      DefaultExactCeiling,
		FalsePositiveRate: DefaultFalsePositiveRate,
		Shards:            DefaultShards,
	}
}

func (p Policy) withDefaults() Policy {
	if p.Mode == "" {
		p.Mode = ModeAuto
	}
	if p.ExactCeiling == 0 {
		p.ExactCeiling = DefaultExactCeiling
	}
	if p.FalsePositiveRate <= 0 || p.FalsePositiveRate >= 1 {
		p.FalsePositiveRate = DefaultFalsePositiveRate
	}
	if p.Shards < 1 {
		p.Shards = DefaultShards
	}
	return p
}

// Select decides the backend for a run targeting target novel labels.
// The decision is made once per run. Explicit modes are returned as is;
// auto picks exact up to the ceiling and approximate beyond it.
func Select(target uint64, p Policy) Mode {
	p = p.withDefaults()
	if p.Mode != ModeAuto {
		return p.Mode
	}
	if target <= p.ExactCeiling {
		return ModeExact
	}
	return ModeApprox
}

// New builds the backend Select picks for target.
func New(target uint64, p Policy) (Deduplicator, error) {
	p = p.withDefaults()
	switch mode := Select(target, p); mode {
	case ModeExact:
		return NewExact(p.Shards, target), nil
	case ModeApprox:
		a, err := NewApproximate(approxCapacity(target), p.FalsePositiveRate, p.Shards)
		if err != nil {
			return nil, err
		}
		return a, nil
	case ModeDisk:
		d, err := NewDisk(DiskConfig{
			Dir:      p.DiskDir,
			InMemory: p.DiskInMemory,
			Shards:   p.Shards,
			Logger:   p.Logger,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// approxCapacity sizes Bloom filters at the target plus 10%.
func approxCapacity(target uint64) uint64 {
	return max(target+target/10, minApproxCapacity)
}

func shardOf(l string, n int) int {
	return int(xxhash.Sum64String(l) % uint64(n))
}
