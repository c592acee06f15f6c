// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package candidate defines the lazy candidate sequence every generator
// produces and every sink consumes.
package candidate

import "iter"

// Candidate is one generated label, optionally scored.
type Candidate struct {
	Label string

	// Score is the log-likelihood of Label when Scored is true.
	Score  float64
	Scored bool
}

// Plain returns an unscored candidate.
func Plain(l string) Candidate { return Candidate{Label: l} }

// WithScore returns a scored candidate.
func WithScore(l string, score float64) Candidate {
	return Candidate{Label: l, Score: score, Scored: true}
}

// Generator produces a lazy candidate sequence. Generators that enumerate
// a finite space end the sequence; stochastic ones may never end and are
// bounded by the consumer.
type Generator interface {
	Candidates() iter.Seq[Candidate]
}

// Estimator is implemented by generators that can size their output
// before producing it.
type Estimator interface {
	// Estimate returns the expected number of candidates. Exact reports
	// whether the value is an exact count rather than a heuristic.
	Estimate() (n uint64, exact bool)
}

// FromLabels lifts a plain label sequence into candidates.
func FromLabels(labels iter.Seq[string]) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for l := range labels {
			if !yield(Plain(l)) {
				return
			}
		}
	}
}

// Labels drops scores.
func Labels(seq iter.Seq[Candidate]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for c := range seq {
			if !yield(c.Label) {
				return
			}
		}
	}
}

// Take yields at most n candidates. n == 0 yields nothing.
func Take(seq iter.Seq[Candidate], n uint64) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		if n == 0 {
			return
		}
		var i uint64
		for c := range seq {
			if !yield(c) {
				return
			}
			if i++; i == n {
				return
			}
		}
	}
}
