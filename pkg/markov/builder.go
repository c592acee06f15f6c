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
	"fmt"
	"iter"
	"slices"
)

type transition struct {
	ctx Context
	sym byte
}

// Builder accumulates transition counts for one training pass.
//
// # Description
//
// Add frames each label as order start symbols + label + '$' and counts
// every (window, next symbol) pair. Labels no longer than the order, or
// containing bytes outside the label alphabet, are skipped and counted.
//
// Model freezes the counts into an immutable Model. A Builder is single
// use: it is not meant to keep growing after Model has been called, and it
// is NOT safe for concurrent use.
type Builder struct {
	order   int
	counts  map[transition]uint32
	labels  uint64
	skipped uint64
	buf     []byte
}

// NewBuilder creates a Builder for the given order.
func NewBuilder(order int) (*Builder, error) {
	if order < 1 || order > MaxOrder {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidOrder, order, MaxOrder)
	}
	return &Builder{
		order:  order,
		counts: make(map[transition]uint32),
	}, nil
}

// Add records the transitions of one label.
//
// # Outputs
//
//   - bool: false when the label was skipped
func (b *Builder) Add(l string) bool {
	if len(l) <= b.order {
		b.skipped++
		return false
	}
	b.buf = b.buf[:0]
	for i := 0; i < len(l); i++ {
		sym := symbolOf[l[i]]
		if sym == noSymbol || sym < 2 {
			b.skipped++
			return false
		}
		b.buf = append(b.buf, sym)
	}
	b.buf = append(b.buf, symEnd)

	ctx := RootContext
	for _, sym := range b.buf {
		b.counts[transition{ctx: ctx, sym: sym}]++
		ctx = ctx.push(sym, b.order)
	}
	b.labels++
	return true
}

// Labels returns the number of labels trained so far.
func (b *Builder) Labels() uint64 { return b.labels }

// Skipped returns the number of labels rejected by Add.
func (b *Builder) Skipped() uint64 { return b.skipped }

// Model freezes the accumulated counts.
//
// # Description
//
// Groups transitions by context into the arena, sorts successors by
// symbol and builds each cumulative table once. The root context is always
// present so that an empty corpus yields a model whose only context has no
// successors.
func (b *Builder) Model() *Model {
	grouped := make(map[Context][]transition)
	grouped[RootContext] = nil
	for t := range b.counts {
		grouped[t.ctx] = append(grouped[t.ctx], t)
	}

	arena := make([]entry, 0, len(grouped))
	for ctx, ts := range grouped {
		slices.SortFunc(ts, func(x, y transition) int { return int(x.sym) - int(y.sym) })
		symbols := make([]byte, len(ts))
		counts := make([]uint32, len(ts))
		for i, t := range ts {
			symbols[i] = t.sym
			counts[i] = b.counts[t]
		}
		arena = append(arena, entry{ctx: ctx, dist: newDistribution(symbols, counts)})
	}
	return newModel(b.order, b.labels, arena)
}

// Build trains a model of the given order from a label sequence.
func Build(order int, labels iter.Seq[string]) (*Model, error) {
	b, err := NewBuilder(order)
	if err != nil {
		return nil, err
	}
	for l := range labels {
		b.Add(l)
	}
	return b.Model(), nil
}
