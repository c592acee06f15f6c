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
	"sync/atomic"
	"time"
)

// Progress is read-only telemetry for a running generation. It never
// influences control flow.
//
// # Thread Safety
//
// Safe for concurrent use. The orchestrator writes, renderers read.
type Progress struct {
	target   uint64
	produced atomic.Uint64
}

// NewProgress creates a tracker for target labels. Target 0 means unknown.
func NewProgress(target uint64) *Progress {
	return &Progress{target: target}
}

func (p *Progress) add(n uint64) { p.produced.Add(n) }

// Produced returns the number of labels delivered so far.
func (p *Progress) Produced() uint64 { return p.produced.Load() }

// Target returns the requested count, or 0 when unknown.
func (p *Progress) Target() uint64 { return p.target }

// Fraction returns Produced/Target clamped to [0, 1], or 0 when the target
// is unknown.
func (p *Progress) Fraction() float64 {
	if p.target == 0 {
		return 0
	}
	return min(float64(p.Produced())/float64(p.target), 1)
}

// ETA extrapolates the remaining time from the average rate so far. It
// returns false while nothing has been produced or the target is unknown.
func (p *Progress) ETA(elapsed time.Duration) (time.Duration, bool) {
	produced := p.Produced()
	if p.target == 0 || produced == 0 || elapsed <= 0 {
		return 0, false
	}
	if produced >= p.target {
		return 0, true
	}
	perItem := float64(elapsed) / float64(produced)
	return time.Duration(perItem * float64(p.target-produced)), true
}
