// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generators

import (
	"iter"
	"math/big"
	"math/rand/v2"

	"github.com/jinterlante1206/dago/pkg/candidate"
)

// MaxInvalidStreak ends a random sequence after this many consecutive
// draws that fail validation.
const MaxInvalidStreak = 10_000

// RandomConfig configures uniform random labels.
type RandomConfig struct {
	Charset    Charset
	MinLength  int
	MaxLength  int
	HyphenMode HyphenMode
}

// Random draws labels uniformly: a length in [MinLength, MaxLength], then
// each character from the alphabet. Draws that break the label rules are
// discarded. The sequence is infinite unless the configuration admits no
// valid label at all or MaxInvalidStreak draws in a row fail.
//
// Random does not deduplicate; repeated labels are expected.
//
// # Thread Safety
//
// Not safe for concurrent use: the rng is owned by the sequence.
type Random struct {
	cfg      RandomConfig
	alphabet string
	rng      *rand.Rand
	space    *big.Int
}

// NewRandom validates cfg. rng must not be shared with other goroutines.
func NewRandom(cfg RandomConfig, rng *rand.Rand) (*Random, error) {
	b, err := NewBrute(BruteConfig(cfg))
	if err != nil {
		return nil, err
	}
	return &Random{cfg: cfg, alphabet: b.Alphabet(), rng: rng, space: b.Count()}, nil
}

// Space returns the number of distinct labels the generator can produce.
func (r *Random) Space() *big.Int { return new(big.Int).Set(r.space) }

// Labels yields random valid labels.
func (r *Random) Labels() iter.Seq[string] {
	return func(yield func(string) bool) {
		if r.space.Sign() == 0 {
			return
		}
		buf := make([]byte, r.cfg.MaxLength)
		span := r.cfg.MaxLength - r.cfg.MinLength + 1
		streak := 0
		for streak < MaxInvalidStreak {
			n := r.cfg.MinLength + r.rng.IntN(span)
			for i := range n {
				buf[i] = r.alphabet[r.rng.IntN(len(r.alphabet))]
			}
			l := string(buf[:n])
			if !accept(l, r.cfg.MinLength, r.cfg.MaxLength, r.cfg.HyphenMode) {
				streak++
				continue
			}
			streak = 0
			if !yield(l) {
				return
			}
		}
	}
}

// Candidates implements candidate.Generator.
func (r *Random) Candidates() iter.Seq[candidate.Candidate] {
	return candidate.FromLabels(r.Labels())
}

// Estimate implements candidate.Estimator with the size of the label
// space. The sequence itself is unbounded.
func (r *Random) Estimate() (uint64, bool) {
	return saturate(r.space), true
}
