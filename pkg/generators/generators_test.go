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
	"math/big"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinterlante1206/dago/pkg/candidate"
	"github.com/jinterlante1206/dago/pkg/label"
)

func mustBrute(t *testing.T, cs Charset, minLen, maxLen int, m HyphenMode) *Brute {
	t.Helper()
	b, err := NewBrute(BruteConfig{Charset: cs, MinLength: minLen, MaxLength: maxLen, HyphenMode: m})
	require.NoError(t, err)
	return b
}

// =============================================================================
// Charset / Hyphen Mode Tests
// =============================================================================

func TestParseCharset(t *testing.T) {
	for _, c := range Charsets {
		got, err := ParseCharset(" " + strings.ToUpper(string(c)) + " ")
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCharset("invalid")
	assert.ErrorIs(t, err, ErrInvalidCharset)
}

func TestParseHyphenMode(t *testing.T) {
	for _, m := range HyphenModes {
		got, err := ParseHyphenMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseHyphenMode("invalid")
	assert.ErrorIs(t, err, ErrInvalidHyphenMode)
}

func TestAlphabet(t *testing.T) {
	tests := []struct {
		cs   Charset
		m    HyphenMode
		want string
	}{
		{CharsetNumbers, HyphenWithout, "0123456789"},
		{CharsetLetters, HyphenWithout, "abcdefghijklmnopqrstuvwxyz"},
		{CharsetAlphanumeric, HyphenWithout, "abcdefghijklmnopqrstuvwxyz0123456789"},
		{CharsetLetters, HyphenWith, "abcdefghijklmnopqrstuvwxyz-"},
		{CharsetNumbers, HyphenOnly, "0123456789-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Alphabet(tt.cs, tt.m), "%s/%s", tt.cs, tt.m)
	}
}

// =============================================================================
// Brute Tests
// =============================================================================

func TestNewBrute_Validation(t *testing.T) {
	valid := DefaultBruteConfig()
	b, err := NewBrute(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, b.Config())

	tests := []struct {
		name    string
		mutate  func(*BruteConfig)
		wantErr error
	}{
		{"charset", func(c *BruteConfig) { c.Charset = "invalid" }, ErrInvalidCharset},
		{"hyphen mode", func(c *BruteConfig) { c.HyphenMode = "invalid" }, ErrInvalidHyphenMode},
		{"min zero", func(c *BruteConfig) { c.MinLength = 0 }, ErrInvalidLength},
		{"min above max", func(c *BruteConfig) { c.MinLength, c.MaxLength = 5, 3 }, ErrInvalidLength},
		{"max above dns limit", func(c *BruteConfig) { c.MinLength, c.MaxLength = 1, 64 }, ErrInvalidLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBruteConfig()
			tt.mutate(&cfg)
			_, err := NewBrute(cfg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAccept(t *testing.T) {
	assert.True(t, accept("ab", 2, 4, HyphenWith))
	assert.True(t, accept("abc", 2, 4, HyphenWith))
	assert.True(t, accept("a-b", 2, 4, HyphenWith))
	assert.True(t, accept("12", 2, 4, HyphenWith))
	assert.False(t, accept("-ab", 2, 4, HyphenWith))
	assert.False(t, accept("ab-", 2, 4, HyphenWith))
	assert.False(t, accept("a--b", 2, 4, HyphenWith))
	assert.True(t, accept("a-b", 2, 4, HyphenOnly))
	assert.False(t, accept("ab", 2, 4, HyphenOnly))
	assert.False(t, accept("a", 2, 3, HyphenWith))
	assert.False(t, accept("abcd", 2, 3, HyphenWith))
	assert.True(t, accept("7", 1, 1, HyphenWithout))
}

func TestBrute_SmallSet(t *testing.T) {
	b := mustBrute(t, CharsetNumbers, 1, 1, HyphenWithout)
	got := slices.Collect(b.Labels())
	assert.Equal(t, strings.Split("0123456789", ""), got)
}

func TestBrute_LexicographicByLength(t *testing.T) {
	b := mustBrute(t, CharsetNumbers, 1, 2, HyphenWith)
	got := slices.Collect(b.Labels())

	// 10 single digits, then 100 two-digit labels. Hyphens only fit in
	// the middle of longer labels.
	require.Len(t, got, 110)
	assert.Equal(t, "0", got[0])
	assert.Equal(t, "9", got[9])
	assert.Equal(t, "00", got[10])
	assert.Equal(t, "01", got[11])
	assert.Equal(t, "99", got[109])
}

func TestBrute_HyphenOnly(t *testing.T) {
	empty := mustBrute(t, CharsetLetters, 2, 2, HyphenOnly)
	assert.Empty(t, slices.Collect(empty.Labels()))
	assert.Zero(t, empty.Count().Sign())

	b := mustBrute(t, CharsetNumbers, 3, 3, HyphenOnly)
	got := slices.Collect(b.Labels())
	require.Len(t, got, 100)
	for _, l := range got {
		assert.Contains(t, l, "-")
		assert.True(t, label.Valid(l, 3, 3), l)
	}
	assert.Equal(t, "0-0", got[0])
	assert.Equal(t, "9-9", got[99])
}

func TestBrute_CountMatchesEnumeration(t *testing.T) {
	for _, cs := range []Charset{CharsetNumbers, CharsetLetters} {
		for _, m := range HyphenModes {
			b := mustBrute(t, cs, 1, 3, m)
			n := 0
			for range b.Labels() {
				n++
			}
			assert.Equal(t, int64(n), b.Count().Int64(), "%s/%s", cs, m)

			est, exact := b.Estimate()
			assert.True(t, exact)
			assert.Equal(t, uint64(n), est)
		}
	}
}

func TestBrute_HeuristicEstimate(t *testing.T) {
	// 10^1 + 10^2 with no hyphen discount.
	assert.Equal(t, int64(110), mustBrute(t, CharsetNumbers, 1, 2, HyphenWithout).HeuristicEstimate().Int64())
	// 11^1 × 0.90 truncates to 9.
	assert.Equal(t, int64(9), mustBrute(t, CharsetNumbers, 1, 1, HyphenWith).HeuristicEstimate().Int64())
	// 11^3 × 0.30 = 399.3.
	assert.Equal(t, int64(399), mustBrute(t, CharsetNumbers, 3, 3, HyphenOnly).HeuristicEstimate().Int64())
}

func TestBrute_CountSaturates(t *testing.T) {
	b := mustBrute(t, CharsetAlphanumeric, 1, 63, HyphenWith)
	assert.Positive(t, b.Count().Cmp(new(big.Int).SetUint64(^uint64(0))))

	est, exact := b.Estimate()
	assert.True(t, exact)
	assert.Equal(t, ^uint64(0), est)

	// The sequence is lazy: the first few labels arrive immediately.
	first := slices.Collect(candidate.Labels(candidate.Take(b.Candidates(), 3)))
	assert.Equal(t, []string{"a", "b", "c"}, first)
}

// =============================================================================
// Random Tests
// =============================================================================

func TestRandom_Labels(t *testing.T) {
	cfg := RandomConfig{Charset: CharsetAlphanumeric, MinLength: 3, MaxLength: 8, HyphenMode: HyphenWith}
	r, err := NewRandom(cfg, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)

	lengths := map[int]int{}
	hyphens := 0
	for l := range candidate.Labels(candidate.Take(r.Candidates(), 5000)) {
		require.True(t, label.Valid(l, 3, 8), l)
		lengths[len(l)]++
		if strings.Contains(l, "-") {
			hyphens++
		}
	}
	for n := 3; n <= 8; n++ {
		assert.Positive(t, lengths[n], "length %d never drawn", n)
	}
	assert.Positive(t, hyphens)
}

func TestRandom_Deterministic(t *testing.T) {
	cfg := RandomConfig{Charset: CharsetLetters, MinLength: 2, MaxLength: 6, HyphenMode: HyphenOnly}
	draw := func() []string {
		r, err := NewRandom(cfg, rand.New(rand.NewPCG(9, 9)))
		require.NoError(t, err)
		return slices.Collect(candidate.Labels(candidate.Take(r.Candidates(), 100)))
	}
	a := draw()
	assert.Equal(t, a, draw())
	for _, l := range a {
		assert.Contains(t, l, "-")
	}
}

func TestRandom_EmptySpace(t *testing.T) {
	cfg := RandomConfig{Charset: CharsetNumbers, MinLength: 1, MaxLength: 2, HyphenMode: HyphenOnly}
	r, err := NewRandom(cfg, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)

	assert.Zero(t, r.Space().Sign())
	assert.Empty(t, slices.Collect(r.Labels()), "no valid label exists")

	_, err = NewRandom(RandomConfig{Charset: "x", MinLength: 1, MaxLength: 2, HyphenMode: HyphenWith}, nil)
	assert.ErrorIs(t, err, ErrInvalidCharset)
}

// =============================================================================
// Pattern Tests
// =============================================================================

func TestParsePattern(t *testing.T) {
	tests := []struct {
		template string
		wantLen  int
		wantErr  bool
	}{
		{"cvcv", 4, false},
		{`shop\d`, 5, false},
		{`\a\c\d`, 3, false},
		{"cv-cv", 5, false},
		{"x9", 2, false},
		{"", 0, true},
		{`cv\`, 0, true},
		{`\.`, 0, true},
		{`ab\x`, 0, true},
		{`\\`, 0, true},
		{"Cv", 0, true},
		{"-cv", 0, true},
		{"cv-", 0, true},
		{"c--v", 0, true},
		{strings.Repeat("c", 64), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			p, err := ParsePattern(tt.template)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPattern)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, p.Length())
			assert.Equal(t, tt.template, p.Template())
		})
	}
}

func TestPattern_Labels(t *testing.T) {
	p, err := ParsePattern(`shop\d`)
	require.NoError(t, err)
	got := slices.Collect(p.Labels())
	require.Len(t, got, 10)
	assert.Equal(t, "shop0", got[0])
	assert.Equal(t, "shop9", got[9])

	p, err = ParsePattern(`\c\v\c\v`)
	require.NoError(t, err)
	first := slices.Collect(candidate.Labels(candidate.Take(p.Candidates(), 3)))
	assert.Equal(t, []string{"baba", "babe", "babi"}, first)

	n := 0
	for l := range p.Labels() {
		assert.True(t, label.Valid(l, 4, 4), l)
		n++
	}
	assert.Equal(t, 21*5*21*5, n)
	assert.Equal(t, int64(n), p.Count().Int64())
	est, exact := p.Estimate()
	assert.True(t, exact)
	assert.Equal(t, uint64(n), est)
}

func TestPattern_BareBytesAreLiterals(t *testing.T) {
	for _, tmpl := range []string{"ab", "cvcv", "dal", "x-9"} {
		p, err := ParsePattern(tmpl)
		require.NoError(t, err)
		assert.Equal(t, []string{tmpl}, slices.Collect(p.Labels()), tmpl)
		assert.Equal(t, int64(1), p.Count().Int64())
	}

	p, err := ParsePattern(`ab\d`)
	require.NoError(t, err)
	got := slices.Collect(p.Labels())
	require.Len(t, got, 10)
	assert.Equal(t, "ab0", got[0])
	assert.Equal(t, "ab9", got[9])
}

func TestPattern_String(t *testing.T) {
	p, err := ParsePattern(`\c\vx-\d`)
	require.NoError(t, err)
	assert.Equal(t, "[bcd...z][aeiou]x-[012...9]", p.String())
}
