// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package markov implements a character-level order-k Markov model for
// domain labels: training, persistence, sampling and scoring.
//
// # Overview
//
// Every training label is framed as
//
//	^^^...^ + label + $
//
// where the start symbol '^' is repeated order times and '$' terminates the
// label. A window of width order slides over the framed sequence; the window
// is the Context and the symbol right after it is a successor whose
// occurrence count is incremented.
//
//	┌──────────┐   ┌─────────┐   ┌───────┐   ┌──────────────────┐
//	│  labels  │──▶│ Builder │──▶│ Model │──▶│ Sampler (per rng) │──▶ Samples
//	└──────────┘   └─────────┘   └───────┘   └──────────────────┘
//
// # Model
//
// The Model is a flat arena of Context → Distribution entries keyed by a
// packed uint64 (6 bits per symbol), sorted by key. Each Distribution keeps
// its successors, their counts and a cumulative count table built once when
// the model is frozen, so a weighted draw is a binary search.
//
// A Model is immutable after Builder.Model or Decode returns it. Any number
// of Samplers may share one Model across goroutines without locking.
//
// # Sampling
//
// A Sampler owns its random source and scratch buffers and is NOT safe for
// concurrent use. Parallel generation creates one Sampler per goroutine,
// each with its own rng stream (see DeriveRand).
//
//	m, _ := markov.Build(3, slices.Values(labels))
//	s := markov.NewSampler(m, markov.NewRand(42), markov.SamplerConfig{
//	    MinLength: 4,
//	    MaxLength: 12,
//	})
//	for sample := range s.Generate() {
//	    if sample.TooShort {
//	        continue
//	    }
//	    fmt.Println(sample.Label, sample.LogLikelihood)
//	}
//
// # Degenerate Models
//
// A model trained on an empty corpus, or on labels no longer than the
// order, holds only the root context with no successors. CanGenerate
// reports false, Sampler.Next returns empty labels and Generate yields
// nothing.
//
// # Persistence
//
// Encode/Decode round-trip a model exactly (same order, label count and
// per-context counts). The artifact is zstd-compressed and carries an
// xxhash64 checksum; reload failures surface as ErrCorruptModel,
// ErrUnsupportedVersion or ErrOrderMismatch before any sampling begins.
package markov
