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
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trainingLabels is a small corpus of valid labels shared by the tests.
var trainingLabels = []string{
	"domenai", "vilnius", "kaunas", "klaipeda", "siauliai", "panevezys",
	"alytus", "marijampole", "mazeikiai", "jonava", "utena", "kedainiai",
	"telsiai", "taurage", "ukmerge", "visaginas", "plunge", "kretinga",
	"silute", "radviliskis", "palanga", "druskininkai", "rokiskis", "birzai",
	"elektrenai", "garliava", "jurbarkas", "vilkaviskis", "raseiniai",
	"anyksciai", "prienai", "joniskis", "kelme", "varena", "kaisiadorys",
	"naujoji-akmene", "pasvalys", "zarasai", "sirvintos", "moletai",
	"web-shop", "shop24", "best-deals", "4ever", "x-files", "a1",
}

func mustBuild(t *testing.T, order int, labels ...string) *Model {
	t.Helper()
	m, err := Build(order, slices.Values(labels))
	require.NoError(t, err)
	return m
}

// =============================================================================
// Builder Tests
// =============================================================================

func TestNewBuilder_InvalidOrder(t *testing.T) {
	for _, order := range []int{-1, 0, MaxOrder + 1} {
		_, err := NewBuilder(order)
		assert.ErrorIs(t, err, ErrInvalidOrder, "order %d", order)
	}
	b, err := NewBuilder(MaxOrder)
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestBuilder_Add(t *testing.T) {
	b, err := NewBuilder(2)
	require.NoError(t, err)

	assert.True(t, b.Add("abc"))
	assert.True(t, b.Add("a-b"))
	assert.False(t, b.Add("ab"), "label no longer than order is skipped")
	assert.False(t, b.Add("ABC"), "bytes outside the alphabet are skipped")
	assert.False(t, b.Add("a^bc"), "boundary symbols are not label bytes")
	assert.False(t, b.Add("ab$c"))

	assert.Equal(t, uint64(2), b.Labels())
	assert.Equal(t, uint64(4), b.Skipped())
	assert.Equal(t, uint64(2), b.Model().LabelCount())
}

func TestBuild_Scenario(t *testing.T) {
	m := mustBuild(t, 2, "abc", "abd", "abz")

	assert.Equal(t, 2, m.Order())
	assert.Equal(t, uint64(3), m.LabelCount())

	ab, err := m.SuccessorsOf("ab")
	require.NoError(t, err)
	assert.Equal(t, []Successor{{'c', 1}, {'d', 1}, {'z', 1}}, ab.Successors())
	assert.Equal(t, uint64(3), ab.Total())
	assert.InDelta(t, 1.0/3, ab.Probability('d'), 1e-12)
	assert.Zero(t, ab.Probability('e'))

	root := m.Successors(RootContext)
	assert.Equal(t, []Successor{{'a', 3}}, root.Successors())

	start, err := m.SuccessorsOf("^a")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), start.Count('b'))

	bc, err := m.SuccessorsOf("bc")
	require.NoError(t, err)
	assert.Equal(t, []Successor{{EndChar, 1}}, bc.Successors())

	// ^^ ^a ab bc bd bz
	assert.Equal(t, 6, m.ContextCount())
	assert.Equal(t, 8, m.TransitionCount())
	assert.True(t, m.CanGenerate())
}

func TestBuild_Degenerate(t *testing.T) {
	tests := []struct {
		name   string
		order  int
		labels []string
	}{
		{"empty corpus", 3, nil},
		{"labels shorter than order", 4, []string{"ab", "abc", "xyz"}},
		{"labels equal to order", 3, []string{"abc", "xyz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustBuild(t, tt.order, tt.labels...)

			assert.Equal(t, 1, m.ContextCount())
			assert.Zero(t, m.TransitionCount())
			assert.False(t, m.CanGenerate())
			assert.Zero(t, m.Successors(RootContext).Len())
		})
	}
}

// =============================================================================
// Model Tests
// =============================================================================

func TestModel_ProbabilityConservation(t *testing.T) {
	for _, order := range []int{1, 2, 3, 4} {
		m := mustBuild(t, order, trainingLabels...)

		for ctx, dist := range m.Contexts() {
			if dist.Len() == 0 {
				continue
			}
			sum := 0.0
			for _, s := range dist.Successors() {
				require.Positive(t, s.Count, "context %q", ctx.Format(order))
				sum += dist.Probability(s.Char)
			}
			assert.InDelta(t, 1.0, sum, 1e-9, "context %q", ctx.Format(order))
		}
	}
}

func TestModel_ContextsAscending(t *testing.T) {
	m := mustBuild(t, 3, trainingLabels...)

	var prev Context
	first := true
	n := 0
	for ctx := range m.Contexts() {
		if !first {
			assert.Greater(t, uint64(ctx), uint64(prev))
		}
		prev, first = ctx, false
		n++
	}
	assert.Equal(t, m.ContextCount(), n)

	// Early stop is honoured.
	n = 0
	for range m.Contexts() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestModel_SuccessorsUnknownContext(t *testing.T) {
	m := mustBuild(t, 2, "abc")

	qq, err := m.SuccessorsOf("qq")
	require.NoError(t, err)
	assert.Zero(t, qq.Len())
	assert.Zero(t, qq.Total())
	assert.Empty(t, qq.Successors())

	_, err = m.SuccessorsOf("abc")
	assert.ErrorIs(t, err, ErrInvalidContext)
}

func TestModel_Score(t *testing.T) {
	m := mustBuild(t, 2, "abc", "abd", "abz")

	assert.InDelta(t, math.Log(1.0/3), m.Score("abc"), 1e-12)
	assert.InDelta(t, math.Log(1.0/3), m.Score("abz"), 1e-12)
	assert.True(t, math.IsInf(m.Score("abe"), -1), "unseen successor")
	assert.True(t, math.IsInf(m.Score("ab"), -1), "terminal never follows ^a->b")
	assert.True(t, math.IsInf(m.Score("ABC"), -1), "invalid bytes")
	assert.True(t, math.IsInf(m.Score(""), -1))
}

// =============================================================================
// Context Tests
// =============================================================================

func TestParseContext(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		order   int
		wantErr error
	}{
		{"root", "^^^", 3, nil},
		{"start prefix", "^ab", 3, nil},
		{"full", "a-9", 3, nil},
		{"max order", "abcdefghij", MaxOrder, nil},
		{"start after label", "a^b", 3, ErrInvalidContext},
		{"terminal", "ab$", 3, ErrInvalidContext},
		{"uppercase", "aBc", 3, ErrInvalidContext},
		{"wrong length", "ab", 3, ErrInvalidContext},
		{"order zero", "", 0, ErrInvalidOrder},
		{"order too large", "abcdefghijk", MaxOrder + 1, ErrInvalidOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, err := ParseContext(tt.in, tt.order)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, ctx.Format(tt.order))
			assert.True(t, ctx.valid(tt.order))
		})
	}
}

func TestContext_Push(t *testing.T) {
	ctx := RootContext
	for _, c := range []byte("abcd") {
		ctx = ctx.push(symbolOf[c], 3)
	}
	assert.Equal(t, "bcd", ctx.Format(3))

	ctx = RootContext.push(symbolOf['x'], 3)
	assert.Equal(t, "^^x", ctx.Format(3))
}

func TestContext_Valid(t *testing.T) {
	end := Context(symEnd)
	assert.False(t, end.valid(2), "terminal never appears inside a context")

	wide, err := ParseContext("abc", 3)
	require.NoError(t, err)
	assert.False(t, wide.valid(2), "bits beyond order")

	assert.False(t, Context(numSymbols).valid(1), "symbol out of range")
}
