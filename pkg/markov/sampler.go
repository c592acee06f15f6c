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
	"iter"
	"math"
	"sort"

	"github.com/jinterlante1206/dago/pkg/label"
)

// SamplerConfig bounds generated labels.
type SamplerConfig struct {
	// MinLength marks shorter samples as TooShort. Values below 1 mean 1.
	MinLength int

	// MaxLength stops generation once the label reaches this many bytes.
	// Values outside [1, label.MaxLength] mean label.MaxLength.
	MaxLength int

	// Temperature reshapes draw weights to count^(1/T). 0 and 1 both mean
	// the empirical distribution. Log-likelihoods are never tempered.
	Temperature float64
}

func (c SamplerConfig) normalized() SamplerConfig {
	if c.MinLength < 1 {
		c.MinLength = 1
	}
	if c.MaxLength < 1 || c.MaxLength > label.MaxLength {
		c.MaxLength = label.MaxLength
	}
	if c.Temperature <= 0 || math.IsNaN(c.Temperature) || math.IsInf(c.Temperature, 0) {
		c.Temperature = 1
	}
	return c
}

// Sample is one generated label and its log-likelihood under the model.
type Sample struct {
	Label string

	// LogLikelihood is the sum of ln(count/total) over every drawn symbol,
	// the terminal included when it was drawn. Always <= 0.
	LogLikelihood float64

	// TooShort is set when Label is shorter than MinLength. Callers
	// discard such samples.
	TooShort bool

	// Truncated is set when MaxLength bytes were emitted and the next draw
	// was not the terminal symbol. LogLikelihood then includes that
	// dropped draw. A label that ends exactly at MaxLength is not
	// truncated.
	Truncated bool
}

// Sampler draws labels from a Model.
//
// # Description
//
// Each draw starts at the root context and repeatedly picks a successor
// in proportion to its count, using a binary search over the context's
// cumulative table. Generation stops on the terminal symbol, on a context
// with no successors, or when MaxLength bytes have been emitted.
//
// The Sampler never retries: samples below MinLength are returned with
// TooShort set and the caller decides what to do.
//
// # Thread Safety
//
// A Sampler owns its random source and scratch buffers and is NOT safe for
// concurrent use. Create one Sampler per goroutine; all of them may share
// the same Model.
type Sampler struct {
	model    *Model
	rng      Source
	cfg      SamplerConfig
	buf      []byte
	tempered [][]float64
}

// NewSampler creates a sampler over m drawing from rng.
func NewSampler(m *Model, rng Source, cfg SamplerConfig) *Sampler {
	cfg = cfg.normalized()
	s := &Sampler{
		model: m,
		rng:   rng,
		cfg:   cfg,
		buf:   make([]byte, 0, cfg.MaxLength),
	}
	if cfg.Temperature != 1 {
		s.tempered = make([][]float64, len(m.arena))
	}
	return s
}

// Config returns the effective configuration after defaults.
func (s *Sampler) Config() SamplerConfig { return s.cfg }

// Next draws one sample. A model that cannot generate always yields the
// empty label with TooShort set.
func (s *Sampler) Next() Sample {
	s.buf = s.buf[:0]
	ctx := RootContext
	logp := 0.0
	truncated := false

	for {
		idx, ok := s.model.index[ctx]
		if !ok {
			break
		}
		dist := s.model.arena[idx].dist
		if dist.Len() == 0 {
			break
		}
		i := s.draw(idx, dist)
		logp += dist.logProb(i)
		sym := dist.symbols[i]
		if sym == symEnd {
			break
		}
		if len(s.buf) >= s.cfg.MaxLength {
			// The drawn symbol would overflow the label. Its log-probability
			// stays in logp.
			truncated = true
			break
		}
		s.buf = append(s.buf, charOf[sym])
		ctx = ctx.push(sym, s.model.order)
	}

	return Sample{
		Label:         string(s.buf),
		LogLikelihood: logp,
		TooShort:      len(s.buf) < s.cfg.MinLength,
		Truncated:     truncated,
	}
}

func (s *Sampler) draw(idx int32, dist Distribution) int {
	if s.tempered == nil {
		return dist.pick(s.rng.Uint64N(dist.Total()))
	}
	cum := s.tempered[idx]
	if cum == nil {
		cum = make([]float64, dist.Len())
		exp := 1 / s.cfg.Temperature
		total := 0.0
		for i, c := range dist.counts {
			total += math.Pow(float64(c), exp)
			cum[i] = total
		}
		s.tempered[idx] = cum
	}
	r := s.rng.Float64() * cum[len(cum)-1]
	i := sort.Search(len(cum), func(i int) bool { return cum[i] > r })
	if i == len(cum) {
		i = len(cum) - 1
	}
	return i
}

// Generate returns an infinite lazy sequence of samples. The sequence is
// empty when the model cannot generate. Stopping the range loop has no
// side effect beyond the random source having advanced.
func (s *Sampler) Generate() iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		if !s.model.CanGenerate() {
			return
		}
		for {
			if !yield(s.Next()) {
				return
			}
		}
	}
}

// Generate is shorthand for NewSampler(m, rng, cfg).Generate().
func Generate(m *Model, rng Source, cfg SamplerConfig) iter.Seq[Sample] {
	return NewSampler(m, rng, cfg).Generate()
}
