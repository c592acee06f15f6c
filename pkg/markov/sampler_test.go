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

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinterlante1206/dago/pkg/label"
)

// firstSource always selects the first successor in canonical order.
type firstSource struct{}

func (firstSource) Uint64N(uint64) uint64 { return 0 }
func (firstSource) Float64() float64      { return 0 }

// lastSource always selects the last successor in canonical order.
type lastSource struct{}

func (lastSource) Uint64N(n uint64) uint64 { return n - 1 }
func (lastSource) Float64() float64        { return math.Nextafter(1, 0) }

func take(seq func(func(Sample) bool), n int) []Sample {
	out := make([]Sample, 0, n)
	for s := range seq {
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}

// =============================================================================
// Scenario Tests
// =============================================================================

func TestSampler_FirstSuccessorScenario(t *testing.T) {
	m := mustBuild(t, 2, "abc", "abd", "abz")
	s := NewSampler(m, firstSource{}, SamplerConfig{MinLength: 2, MaxLength: 63})

	got := s.Next()

	bc, err := m.SuccessorsOf("bc")
	require.NoError(t, err)
	want := math.Log(1.0/3) + math.Log(bc.Probability(EndChar))

	assert.Equal(t, "abc", got.Label)
	assert.InDelta(t, want, got.LogLikelihood, 1e-12)
	assert.InDelta(t, math.Log(1.0/3), got.LogLikelihood, 1e-12)
	assert.False(t, got.TooShort)
	assert.False(t, got.Truncated)
	assert.Equal(t, m.Score(got.Label), got.LogLikelihood)
}

func TestSampler_LastSuccessor(t *testing.T) {
	m := mustBuild(t, 2, "abc", "abd", "abz")
	got := NewSampler(m, lastSource{}, SamplerConfig{}).Next()

	assert.Equal(t, "abz", got.Label)
	assert.InDelta(t, math.Log(1.0/3), got.LogLikelihood, 1e-12)
}

func TestSampler_Truncation(t *testing.T) {
	m := mustBuild(t, 1, "aaaaaaaaaa")
	s := NewSampler(m, lastSource{}, SamplerConfig{MinLength: 1, MaxLength: 3})

	got := s.Next()
	assert.Equal(t, "aaa", got.Label)
	assert.True(t, got.Truncated)
	assert.False(t, got.TooShort)
	assert.Less(t, got.LogLikelihood, 0.0)

	// '$' sorts first, so the first successor after "a" terminates.
	got = NewSampler(m, firstSource{}, SamplerConfig{MinLength: 2, MaxLength: 3}).Next()
	assert.Equal(t, "a", got.Label)
	assert.True(t, got.TooShort)
	assert.False(t, got.Truncated)
}

func TestSampler_ExactFitAtMaxLength(t *testing.T) {
	m := mustBuild(t, 2, "abc", "abcd")
	got := NewSampler(m, firstSource{}, SamplerConfig{MinLength: 2, MaxLength: 3}).Next()

	assert.Equal(t, "abc", got.Label)
	assert.False(t, got.Truncated, "the terminal is drawn after the last byte")
	assert.InDelta(t, math.Log(0.5), got.LogLikelihood, 1e-12)
	assert.Equal(t, m.Score(got.Label), got.LogLikelihood)

	got = NewSampler(m, lastSource{}, SamplerConfig{MinLength: 2, MaxLength: 3}).Next()
	assert.Equal(t, "abc", got.Label)
	assert.True(t, got.Truncated, "'d' was drawn but does not fit")
	assert.InDelta(t, math.Log(0.5), got.LogLikelihood, 1e-12)
}

// =============================================================================
// Property Tests
// =============================================================================

func TestSampler_LabelValidity(t *testing.T) {
	for _, order := range []int{1, 2, 3, 4} {
		m := mustBuild(t, order, trainingLabels...)
		cfg := SamplerConfig{MinLength: 3, MaxLength: 10}
		s := NewSampler(m, NewRand(uint64(order)), cfg)

		for _, sample := range take(s.Generate(), 2000) {
			l := sample.Label
			assert.NotContains(t, l, string(StartChar))
			assert.NotContains(t, l, string(EndChar))
			assert.LessOrEqual(t, len(l), cfg.MaxLength)
			assert.LessOrEqual(t, sample.LogLikelihood, 0.0)
			assert.Equal(t, len(l) < cfg.MinLength, sample.TooShort, l)

			if sample.TooShort || sample.Truncated {
				continue
			}
			assert.True(t, label.Valid(l, cfg.MinLength, cfg.MaxLength), "order %d produced %q", order, l)
			assert.InDelta(t, m.Score(l), sample.LogLikelihood, 1e-9, l)
		}
	}
}

func TestSampler_Deterministic(t *testing.T) {
	m := mustBuild(t, 3, trainingLabels...)
	cfg := SamplerConfig{MinLength: 2, MaxLength: 12}

	a := take(Generate(m, NewRand(42), cfg), 200)
	b := take(Generate(m, NewRand(42), cfg), 200)
	assert.Equal(t, a, b)

	c := take(Generate(m, DeriveRand(42, 1), cfg), 200)
	d := take(Generate(m, DeriveRand(42, 2), cfg), 200)
	assert.NotEqual(t, c, d, "worker streams must differ")

	assert.Equal(t, take(Generate(m, NewRand(0), cfg), 50), take(Generate(m, NewRand(DefaultSeed), cfg), 50))
}

func TestSampler_Temperature(t *testing.T) {
	labels := append(make([]string, 0, 100), "bb")
	for range 99 {
		labels = append(labels, "aa")
	}
	m := mustBuild(t, 1, labels...)

	countB := func(temp float64) int {
		s := NewSampler(m, NewRand(7), SamplerConfig{MinLength: 1, MaxLength: 4, Temperature: temp})
		n := 0
		for _, sample := range take(s.Generate(), 2000) {
			if strings.HasPrefix(sample.Label, "b") {
				n++
			}
		}
		return n
	}

	assert.Less(t, countB(1), 100, "empirical distribution keeps b rare")
	assert.Greater(t, countB(100), 700, "high temperature flattens the distribution")

	// Log-likelihood stays untempered. '$' sorts before 'a' in context "a".
	s := NewSampler(m, firstSource{}, SamplerConfig{MinLength: 1, Temperature: 5})
	got := s.Next()
	assert.Equal(t, "a", got.Label)
	assert.InDelta(t, math.Log(0.99)+math.Log(0.5), got.LogLikelihood, 1e-12)
	assert.InDelta(t, m.Score("a"), got.LogLikelihood, 1e-12)
}

func TestSampler_Degenerate(t *testing.T) {
	m := mustBuild(t, 4, "ab", "abc")
	s := NewSampler(m, NewRand(1), SamplerConfig{MinLength: 2, MaxLength: 12})

	got := s.Next()
	assert.Empty(t, got.Label)
	assert.True(t, got.TooShort)
	assert.Zero(t, got.LogLikelihood)

	n := 0
	for range s.Generate() {
		n++
	}
	assert.Zero(t, n, "degenerate model yields an empty sequence")
}

func TestSamplerConfig_Defaults(t *testing.T) {
	m := mustBuild(t, 2, "abc")

	cfg := NewSampler(m, NewRand(1), SamplerConfig{}).Config()
	assert.Equal(t, SamplerConfig{MinLength: 1, MaxLength: label.MaxLength, Temperature: 1}, cfg)

	cfg = NewSampler(m, NewRand(1), SamplerConfig{MinLength: 3, MaxLength: 500, Temperature: math.NaN()}).Config()
	assert.Equal(t, SamplerConfig{MinLength: 3, MaxLength: label.MaxLength, Temperature: 1}, cfg)
}
