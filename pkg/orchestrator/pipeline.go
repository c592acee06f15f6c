// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"math"
	"sync/atomic"

	"github.com/jinterlante1206/dago/pkg/dedup"
	"github.com/jinterlante1206/dago/pkg/label"
)

// DefaultAttemptFactor multiplies the target to give the attempt ceiling.
const DefaultAttemptFactor = 50

type outcome int

const (
	accepted outcome = iota
	tooShort
	invalid
	duplicate
)

// counters accumulates attempt outcomes. Shared by all workers of a run.
type counters struct {
	attempts   atomic.Uint64
	tooShort   atomic.Uint64
	invalid    atomic.Uint64
	duplicates atomic.Uint64
}

func (c *counters) fill(r *Report, ceiling uint64) {
	r.Attempts = min(c.attempts.Load(), ceiling)
	r.TooShort = c.tooShort.Load()
	r.Invalid = c.invalid.Load()
	r.Duplicates = c.duplicates.Load()
}

// filter applies the length bounds, the label rules and the deduplicator
// to one candidate. Safe for concurrent use when dedup is.
type filter struct {
	minLen, maxLen int
	dedup          dedup.Deduplicator
	counts         *counters
	metrics        attemptCounters
}

func (f *filter) classify(l string, short bool) outcome {
	r := label.Check(l, f.minLen, f.maxLen)
	switch {
	case short || r == label.ReasonEmpty || r == label.ReasonTooShort:
		f.counts.tooShort.Add(1)
		f.metrics.tooShort.Inc()
		return tooShort
	case r != label.ReasonNone:
		f.counts.invalid.Add(1)
		f.metrics.invalid.Inc()
		return invalid
	case f.dedup != nil && f.dedup.Seen(l):
		f.counts.duplicates.Add(1)
		f.metrics.duplicate.Inc()
		return duplicate
	default:
		f.metrics.accepted.Inc()
		return accepted
	}
}

// attemptCeiling returns target × factor, saturating at MaxUint64.
func attemptCeiling(target, factor uint64) uint64 {
	if factor == 0 {
		factor = DefaultAttemptFactor
	}
	if target > math.MaxUint64/factor {
		return math.MaxUint64
	}
	return target * factor
}
