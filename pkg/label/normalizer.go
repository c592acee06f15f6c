// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package label

import (
	"iter"
	"maps"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizerConfig configures corpus normalisation.
type NormalizerConfig struct {
	// MinLength and MaxLength bound accepted labels.
	// Default: MinLength / MaxLength.
	MinLength int
	MaxLength int

	// FoldDiacritics maps accented letters to their base letter before
	// stripping ("café" -> "cafe"). Default: false, accented letters are
	// dropped like any other character outside the alphabet.
	FoldDiacritics bool
}

// Stats summarises a normalisation batch.
type Stats struct {
	Accepted   int
	Rejected   int
	RejectedBy map[Reason]int
}

// Normalizer turns raw corpus lines into training labels.
//
// # Description
//
// Invalid input is never an error: rejected lines are counted by reason
// and can be reported once the batch is done via Stats.
//
// # Thread Safety
//
// Normalizer is NOT safe for concurrent use; give each goroutine its own.
type Normalizer struct {
	config     NormalizerConfig
	fold       transform.Transformer
	accepted   int
	rejectedBy map[Reason]int
}

// NewNormalizer creates a Normalizer. Zero values in config take defaults.
func NewNormalizer(config NormalizerConfig) *Normalizer {
	if config.MinLength <= 0 {
		config.MinLength = MinLength
	}
	if config.MaxLength <= 0 || config.MaxLength > MaxLength {
		config.MaxLength = MaxLength
	}
	n := &Normalizer{
		config:     config,
		rejectedBy: make(map[Reason]int),
	}
	if config.FoldDiacritics {
		n.fold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	}
	return n
}

// Normalize cleans one raw line.
//
// # Description
//
// Steps, in order:
//  1. trim and lowercase
//  2. drop a URL scheme ("https://"), any path, and a leading "www."
//  3. optionally fold diacritics
//  4. keep only the leftmost dot-delimited segment (the TLD is discarded)
//  5. strip every byte outside the label alphabet
//  6. reject empty, hyphen-edged, double-hyphen or out-of-bounds results
//
// # Outputs
//
//   - string: The normalised label (empty when rejected)
//   - bool: false when the line was rejected and counted
func (n *Normalizer) Normalize(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if _, after, ok := strings.Cut(s, "://"); ok {
		s = after
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "www.")

	if n.fold != nil {
		if folded, _, err := transform.String(n.fold, s); err == nil {
			s = folded
		}
	}
	if head, _, ok := strings.Cut(s, "."); ok {
		s = head
	}

	s = strip(s)
	if reason := Check(s, n.config.MinLength, n.config.MaxLength); reason != ReasonNone {
		n.rejectedBy[reason]++
		return "", false
	}
	n.accepted++
	return s, true
}

// Labels lazily normalises lines, yielding only accepted labels.
func (n *Normalizer) Labels(lines iter.Seq[string]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for line := range lines {
			if l, ok := n.Normalize(line); ok {
				if !yield(l) {
					return
				}
			}
		}
	}
}

// Stats returns a snapshot of the accepted and rejected counts.
func (n *Normalizer) Stats() Stats {
	st := Stats{
		Accepted:   n.accepted,
		RejectedBy: maps.Clone(n.rejectedBy),
	}
	for _, c := range n.rejectedBy {
		st.Rejected += c
	}
	return st
}

// strip removes every byte outside the label alphabet.
func strip(s string) string {
	clean := true
	for i := 0; i < len(s); i++ {
		if !IsLabelByte(s[i]) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if IsLabelByte(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
