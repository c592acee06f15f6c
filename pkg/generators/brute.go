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
	"fmt"
	"iter"
	"math"
	"math/big"

	"github.com/jinterlante1206/dago/pkg/candidate"
)

// BruteConfig configures exhaustive enumeration.
type BruteConfig struct {
	Charset    Charset
	MinLength  int
	MaxLength  int
	HyphenMode HyphenMode
}

// DefaultBruteConfig mirrors the CLI defaults.
func DefaultBruteConfig() BruteConfig {
	return BruteConfig{
		Charset:    CharsetAlphanumeric,
		MinLength:  2,
		MaxLength:  4,
		HyphenMode: HyphenWith,
	}
}

// Brute enumerates every valid label over a charset.
//
// # Description
//
// Lengths are visited in ascending order. Within one length, labels are
// the cartesian product of the alphabet in Alphabet order, so the
// sequence is lexicographic with respect to that order. Invalid products
// (edge or double hyphens, or no hyphen in only mode) are skipped.
//
// # Limitations
//
// The space grows as |alphabet|^length. Large ranges are lazily
// enumerable but will not finish in practice; use Count first.
type Brute struct {
	cfg      BruteConfig
	alphabet string
}

// NewBrute validates cfg.
func NewBrute(cfg BruteConfig) (*Brute, error) {
	if cfg.Charset.Chars() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCharset, cfg.Charset)
	}
	if _, err := ParseHyphenMode(string(cfg.HyphenMode)); err != nil {
		return nil, err
	}
	if err := checkLengths(cfg.MinLength, cfg.MaxLength); err != nil {
		return nil, err
	}
	return &Brute{cfg: cfg, alphabet: Alphabet(cfg.Charset, cfg.HyphenMode)}, nil
}

// Config returns the validated configuration.
func (b *Brute) Config() BruteConfig { return b.cfg }

// Alphabet returns the enumeration alphabet.
func (b *Brute) Alphabet() string { return b.alphabet }

// Labels yields every valid label.
func (b *Brute) Labels() iter.Seq[string] {
	return func(yield func(string) bool) {
		k := len(b.alphabet)
		for n := b.cfg.MinLength; n <= b.cfg.MaxLength; n++ {
			idx := make([]int, n)
			buf := make([]byte, n)
			for i := range buf {
				buf[i] = b.alphabet[0]
			}
			for {
				if accept(string(buf), b.cfg.MinLength, b.cfg.MaxLength, b.cfg.HyphenMode) {
					if !yield(string(buf)) {
						return
					}
				}
				// Odometer increment from the rightmost position.
				pos := n - 1
				for pos >= 0 {
					idx[pos]++
					if idx[pos] < k {
						buf[pos] = b.alphabet[idx[pos]]
						break
					}
					idx[pos] = 0
					buf[pos] = b.alphabet[0]
					pos--
				}
				if pos < 0 {
					break
				}
			}
		}
	}
}

// Candidates implements candidate.Generator.
func (b *Brute) Candidates() iter.Seq[candidate.Candidate] {
	return candidate.FromLabels(b.Labels())
}

// Count returns the exact number of labels Labels yields.
//
// # Description
//
// Without hyphens every product is valid. With hyphens, a valid label of
// length n ends in a base character and never has a hyphen first or two
// in a row, which gives the recurrence
//
//	A(1) = k, H(1) = 0
//	A(n) = k·(A(n-1) + H(n-1)), H(n) = A(n-1)
//
// where A counts prefixes ending in a base character, H prefixes ending in
// a hyphen and k is the base charset size. Only mode subtracts the
// hyphen-free labels k^n.
func (b *Brute) Count() *big.Int {
	k := big.NewInt(int64(len(b.cfg.Charset.Chars())))
	total := new(big.Int)

	a, h := new(big.Int).Set(k), new(big.Int)
	pow := new(big.Int).Set(k)
	for n := 1; n <= b.cfg.MaxLength; n++ {
		if n > 1 {
			next := new(big.Int).Add(a, h)
			next.Mul(next, k)
			h.Set(a)
			a = next
			pow.Mul(pow, k)
		}
		if n < b.cfg.MinLength {
			continue
		}
		switch b.cfg.HyphenMode {
		case HyphenWithout:
			total.Add(total, pow)
		case HyphenWith:
			total.Add(total, a)
		case HyphenOnly:
			total.Add(total, new(big.Int).Sub(a, pow))
		}
	}
	return total
}

// HeuristicEstimate is Σ|alphabet|^n discounted by a fixed fraction for
// hyphen filtering: ×0.90 in with mode and ×0.30 in only mode. The
// fractions are rough and can be far off; Count is exact.
func (b *Brute) HeuristicEstimate() *big.Int {
	k := big.NewInt(int64(len(b.alphabet)))
	total := new(big.Int)
	for n := b.cfg.MinLength; n <= b.cfg.MaxLength; n++ {
		total.Add(total, new(big.Int).Exp(k, big.NewInt(int64(n)), nil))
	}
	switch b.cfg.HyphenMode {
	case HyphenWith:
		total.Mul(total, big.NewInt(9)).Quo(total, big.NewInt(10))
	case HyphenOnly:
		total.Mul(total, big.NewInt(3)).Quo(total, big.NewInt(10))
	}
	return total
}

// Estimate implements candidate.Estimator with the exact count, saturated
// to math.MaxUint64.
func (b *Brute) Estimate() (uint64, bool) {
	return saturate(b.Count()), true
}

func saturate(n *big.Int) uint64 {
	if !n.IsUint64() {
		return math.MaxUint64
	}
	return n.Uint64()
}
