// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package label defines the domain label alphabet, the label validity rules
// shared by every generator, and the corpus normalizer that turns raw text
// lines into training labels.
//
// A label is a single DNS name segment without its TLD:
//
//   - characters a-z, 0-9 and hyphen only
//   - length within [MinLength, MaxLength]
//   - never starts or ends with a hyphen
//   - never contains two consecutive hyphens
//
// The TLD is appended only when candidates are written to an output sink.
package label

import "strings"

// =============================================================================
// Constants
// =============================================================================

const (
	// MinLength is the shortest label accepted for training or output.
	MinLength = 2

	// MaxLength is the DNS limit for a single label.
	MaxLength = 63

	// Alphabet is the full label alphabet in canonical order.
	Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789-"

	// Letters, Digits and Hyphen split the alphabet by class.
	Letters = "abcdefghijklmnopqrstuvwxyz"
	Digits  = "0123456789"
	Hyphen  = '-'
)

// Reason explains why a string is not a valid label.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonEmpty        Reason = "empty"
	ReasonInvalidChar  Reason = "invalid_char"
	ReasonHyphenEdge   Reason = "hyphen_edge"
	ReasonDoubleHyphen Reason = "double_hyphen"
	ReasonTooShort     Reason = "too_short"
	ReasonTooLong      Reason = "too_long"
)

// Reasons lists every rejection reason in reporting order.
var Reasons = []Reason{
	ReasonEmpty,
	ReasonInvalidChar,
	ReasonHyphenEdge,
	ReasonDoubleHyphen,
	ReasonTooShort,
	ReasonTooLong,
}

// =============================================================================
// Validity
// =============================================================================

// IsLabelByte reports whether c belongs to the label alphabet.
func IsLabelByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == Hyphen
}

// Check returns the first rule s violates, or ReasonNone.
//
// # Description
//
// Length bounds are checked last so that structural problems (bad
// characters, misplaced hyphens) are reported ahead of size problems.
// minLen and maxLen are clamped to [1, MaxLength].
//
// # Inputs
//
//   - s: Candidate label without TLD
//   - minLen: Minimum accepted length
//   - maxLen: Maximum accepted length
//
// # Outputs
//
//   - Reason: ReasonNone when s is a valid label
func Check(s string, minLen, maxLen int) Reason {
	if s == "" {
		return ReasonEmpty
	}
	minLen = max(minLen, 1)
	if maxLen <= 0 || maxLen > MaxLength {
		maxLen = MaxLength
	}

	for i := 0; i < len(s); i++ {
		if !IsLabelByte(s[i]) {
			return ReasonInvalidChar
		}
	}
	if s[0] == Hyphen || s[len(s)-1] == Hyphen {
		return ReasonHyphenEdge
	}
	if strings.Contains(s, "--") {
		return ReasonDoubleHyphen
	}
	if len(s) < minLen {
		return ReasonTooShort
	}
	if len(s) > maxLen {
		return ReasonTooLong
	}
	return ReasonNone
}

// Valid reports whether s is a label with length in [minLen, maxLen].
func Valid(s string, minLen, maxLen int) bool {
	return Check(s, minLen, maxLen) == ReasonNone
}

// WithTLD joins a label and a TLD for output. An empty TLD returns the
// label unchanged; a leading dot on tld is tolerated.
func WithTLD(l, tld string) string {
	tld = strings.TrimPrefix(tld, ".")
	if tld == "" {
		return l
	}
	return l + "." + tld
}
