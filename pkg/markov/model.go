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
)

// =============================================================================
// Distribution
// =============================================================================

// Successor is one observed next symbol and its occurrence count.
// Char is a label byte or EndChar.
type Successor struct {
	Char  byte
	Count uint32
}

// Distribution is the weighted successor multiset of one context.
//
// Successors are ordered by symbol: EndChar first, then the label alphabet
// in label.Alphabet order. The zero value is an empty distribution.
type Distribution struct {
	symbols []byte
	counts  []uint32
	cum     []uint64
}

func newDistribution(symbols []byte, counts []uint32) Distribution {
	cum := make([]uint64, len(counts))
	var total uint64
	for i, c := range counts {
		total += uint64(c)
		cum[i] = total
	}
	return Distribution{symbols: symbols, counts: counts, cum: cum}
}

// Len returns the number of distinct successors.
func (d Distribution) Len() int { return len(d.symbols) }

// Total returns the sum of all successor counts.
func (d Distribution) Total() uint64 {
	if len(d.cum) == 0 {
		return 0
	}
	return d.cum[len(d.cum)-1]
}

// Successors returns a copy of the successors in canonical order.
func (d Distribution) Successors() []Successor {
	out := make([]Successor, len(d.symbols))
	for i, sym := range d.symbols {
		out[i] = Successor{Char: charOf[sym], Count: d.counts[i]}
	}
	return out
}

// Count returns the occurrence count of ch, or 0 if never observed.
func (d Distribution) Count(ch byte) uint32 {
	if i, ok := d.find(symbolOf[ch]); ok {
		return d.counts[i]
	}
	return 0
}

// Probability returns count(ch) / Total, or 0 for unseen successors.
func (d Distribution) Probability(ch byte) float64 {
	total := d.Total()
	if total == 0 {
		return 0
	}
	return float64(d.Count(ch)) / float64(total)
}

// find locates sym by binary search over the sorted symbols.
func (d Distribution) find(sym byte) (int, bool) {
	i := sort.Search(len(d.symbols), func(i int) bool { return d.symbols[i] >= sym })
	if i < len(d.symbols) && d.symbols[i] == sym {
		return i, true
	}
	return 0, false
}

// pick maps r in [0, Total) to a successor index through the cumulative
// table.
func (d Distribution) pick(r uint64) int {
	return sort.Search(len(d.cum), func(i int) bool { return d.cum[i] > r })
}

// logProb returns ln(count_i / total).
func (d Distribution) logProb(i int) float64 {
	return math.Log(float64(d.counts[i]) / float64(d.Total()))
}

// =============================================================================
// Model
// =============================================================================

type entry struct {
	ctx  Context
	dist Distribution
}

// Model is an immutable order-k transition table.
//
// # Description
//
// Entries are stored in a flat arena sorted by packed context, with a map
// from context to arena index for O(1) lookups during sampling. The root
// context is always present, possibly with an empty distribution.
//
// # Thread Safety
//
// Model is read-only after construction and safe for concurrent use.
type Model struct {
	order      int
	labelCount uint64
	arena      []entry
	index      map[Context]int32
}

func newModel(order int, labelCount uint64, arena []entry) *Model {
	sort.Slice(arena, func(i, j int) bool { return arena[i].ctx < arena[j].ctx })
	index := make(map[Context]int32, len(arena))
	for i, e := range arena {
		index[e.ctx] = int32(i)
	}
	return &Model{order: order, labelCount: labelCount, arena: arena, index: index}
}

// Order returns the context width fixed at training time.
func (m *Model) Order() int { return m.order }

// LabelCount returns the number of corpus labels the model was trained on.
func (m *Model) LabelCount() uint64 { return m.labelCount }

// ContextCount returns the number of populated contexts, root included.
func (m *Model) ContextCount() int { return len(m.arena) }

// TransitionCount returns the number of distinct (context, successor) pairs.
func (m *Model) TransitionCount() int {
	n := 0
	for _, e := range m.arena {
		n += e.dist.Len()
	}
	return n
}

// CanGenerate reports whether the root context has any successor. A model
// that cannot generate yields only empty samples.
func (m *Model) CanGenerate() bool {
	return m.Successors(RootContext).Len() > 0
}

// Successors returns the distribution recorded for ctx, or an empty
// distribution when ctx was never observed.
func (m *Model) Successors(ctx Context) Distribution {
	if i, ok := m.index[ctx]; ok {
		return m.arena[i].dist
	}
	return Distribution{}
}

// SuccessorsOf parses a textual context ("^ab", "abc") and returns its
// distribution.
func (m *Model) SuccessorsOf(ctx string) (Distribution, error) {
	c, err := ParseContext(ctx, m.order)
	if err != nil {
		return Distribution{}, err
	}
	return m.Successors(c), nil
}

// Contexts iterates populated contexts in ascending packed order.
func (m *Model) Contexts() iter.Seq2[Context, Distribution] {
	return func(yield func(Context, Distribution) bool) {
		for _, e := range m.arena {
			if !yield(e.ctx, e.dist) {
				return
			}
		}
	}
}

// Score returns the log-likelihood of generating l and then terminating.
//
// # Description
//
// Walks the same transitions the Sampler would take to emit l, summing
// ln(count/total) for every label symbol and the terminal symbol. Returns
// -Inf when any transition was never observed or l contains a byte
// outside the label alphabet.
func (m *Model) Score(l string) float64 {
	ctx := RootContext
	logp := 0.0
	step := func(sym byte) bool {
		dist := m.Successors(ctx)
		i, ok := dist.find(sym)
		if !ok {
			return false
		}
		logp += dist.logProb(i)
		ctx = ctx.push(sym, m.order)
		return true
	}
	for i := 0; i < len(l); i++ {
		sym := symbolOf[l[i]]
		if sym == noSymbol || sym < 2 || !step(sym) {
			return math.Inf(-1)
		}
	}
	if !step(symEnd) {
		return math.Inf(-1)
	}
	return logp
}
