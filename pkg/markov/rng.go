// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package markov

import "math/rand/v2"

// Source is the random source a Sampler draws from. *rand.Rand from
// math/rand/v2 satisfies it.
type Source interface {
	// Uint64N returns a uniform value in [0, n). n is never 0.
	Uint64N(n uint64) uint64

	// Float64 returns a uniform value in [0, 1).
	Float64() float64
}

// DefaultSeed replaces a zero seed so that library callers always get a
// reproducible stream.
const DefaultSeed uint64 = 1

// NewRand returns a PCG-backed source for seed. Seed 0 maps to DefaultSeed.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = DefaultSeed
	}
	return rand.New(rand.NewPCG(seed, splitMix(seed)))
}

// DeriveRand returns an independent source for one worker stream of a
// base seed. Streams of the same seed never share state.
func DeriveRand(seed, stream uint64) *rand.Rand {
	if seed == 0 {
		seed = DefaultSeed
	}
	return NewRand(splitMix(seed ^ (stream + 0x9e3779b97f4a7c15)))
}

// splitMix is one SplitMix64 finalisation step.
func splitMix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
