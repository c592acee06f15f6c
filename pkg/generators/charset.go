// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package generators implements the enumerative and uniform-random label
// generators: brute force, pattern templates and random draws.
//
// Every generator yields candidate.Candidate values lazily and only yields
// labels that satisfy the DNS label rules and its own length bounds.
package generators

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jinterlante1206/dago/pkg/label"
)

var (
	ErrInvalidCharset    = errors.New("generators: invalid charset")
	ErrInvalidHyphenMode = errors.New("generators: invalid hyphen mode")
	ErrInvalidLength     = errors.New("generators: invalid length range")
	ErrInvalidPattern    = errors.New("generators: invalid pattern")
)

// Charset names a base character set.
type Charset string

const (
	CharsetNumbers      Charset = "numbers"
	CharsetLetters      Charset = "letters"
	CharsetAlphanumeric Charset = "alphanumeric"
)

// Charsets lists the supported charsets in CLI order.
var Charsets = []Charset{CharsetNumbers, CharsetLetters, CharsetAlphanumeric}

// Chars returns the characters of c in enumeration order.
func (c Charset) Chars() string {
	switch c {
	case CharsetNumbers:
		return label.Digits
	case CharsetLetters:
		return label.Letters
	case CharsetAlphanumeric:
		return label.Letters + label.Digits
	default:
		return ""
	}
}

// ParseCharset validates a charset name.
func ParseCharset(s string) (Charset, error) {
	c := Charset(strings.ToLower(strings.TrimSpace(s)))
	if c.Chars() == "" {
		return "", fmt.Errorf("%w: %q (want numbers, letters or alphanumeric)", ErrInvalidCharset, s)
	}
	return c, nil
}

// HyphenMode controls whether labels may, must not or must contain a
// hyphen.
type HyphenMode string

const (
	HyphenWith    HyphenMode = "with"
	HyphenWithout HyphenMode = "without"
	HyphenOnly    HyphenMode = "only"
)

// HyphenModes lists the supported modes in CLI order.
var HyphenModes = []HyphenMode{HyphenWith, HyphenWithout, HyphenOnly}

// ParseHyphenMode validates a hyphen mode name.
func ParseHyphenMode(s string) (HyphenMode, error) {
	switch m := HyphenMode(strings.ToLower(strings.TrimSpace(s))); m {
	case HyphenWith, HyphenWithout, HyphenOnly:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (want with, without or only)", ErrInvalidHyphenMode, s)
	}
}

// Alphabet returns the characters drawn for c under mode m. The hyphen is
// appended last for the with and only modes.
func Alphabet(c Charset, m HyphenMode) string {
	if m == HyphenWithout {
		return c.Chars()
	}
	return c.Chars() + string(label.Hyphen)
}

// accept applies the DNS rules, the length bounds and the hyphen mode.
func accept(l string, minLen, maxLen int, m HyphenMode) bool {
	if !label.Valid(l, minLen, maxLen) {
		return false
	}
	return m != HyphenOnly || strings.IndexByte(l, label.Hyphen) >= 0
}

func checkLengths(minLen, maxLen int) error {
	if minLen < 1 || maxLen < minLen || maxLen > label.MaxLength {
		return fmt.Errorf("%w: min %d, max %d (want 1 <= min <= max <= %d)",
			ErrInvalidLength, minLen, maxLen, label.MaxLength)
	}
	return nil
}
