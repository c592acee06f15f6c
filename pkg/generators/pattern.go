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
	"math/big"
	"strings"

	"github.com/jinterlante1206/dago/pkg/candidate"
	"github.com/jinterlante1206/dago/pkg/label"
)

const (
	Vowels     = "aeiou"
	Consonants = "bcdfghjklmnpqrstvwxyz"
)

// patternClasses maps the byte after a backslash to its character class.
var patternClasses = map[byte]string{
	'c': Consonants,
	'v': Vowels,
	'd': label.Digits,
	'l': label.Letters,
	'a': label.Letters + label.Digits,
}

// Pattern enumerates every label matching a template.
//
// # Description
//
// Each template byte is one label position and stands for itself. A
// backslash escape selects a class instead:
//
//	\c consonant        \v vowel
//	\d digit            \l letter
//	\a letter or digit
//
// "\c\v\c\v" yields "baba", "babe", ...; "shop\d" yields "shop0" to
// "shop9"; "cvcv" yields only "cvcv".
// Positions are enumerated right-most fastest in the order of each class
// string.
type Pattern struct {
	template  string
	positions []string
}

// ParsePattern compiles a template. Templates that could only produce
// invalid labels (a literal hyphen at an edge or two in a row) are
// rejected.
func ParsePattern(template string) (*Pattern, error) {
	var positions []string
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c == '\\' {
			i++
			if i == len(template) {
				return nil, fmt.Errorf("%w: %q ends with an escape", ErrInvalidPattern, template)
			}
			chars, ok := patternClasses[template[i]]
			if !ok {
				return nil, fmt.Errorf("%w: %q has unknown class \\%c", ErrInvalidPattern, template, template[i])
			}
			positions = append(positions, chars)
			continue
		}
		if !label.IsLabelByte(c) {
			return nil, fmt.Errorf("%w: %q contains %q", ErrInvalidPattern, template, c)
		}
		positions = append(positions, template[i:i+1])
	}

	if err := checkLengths(len(positions), len(positions)); err != nil {
		return nil, fmt.Errorf("%w: %q has %d positions", ErrInvalidPattern, template, len(positions))
	}
	hyphen := string(label.Hyphen)
	if positions[0] == hyphen || positions[len(positions)-1] == hyphen {
		return nil, fmt.Errorf("%w: %q starts or ends with a hyphen", ErrInvalidPattern, template)
	}
	for i := 1; i < len(positions); i++ {
		if positions[i] == hyphen && positions[i-1] == hyphen {
			return nil, fmt.Errorf("%w: %q has consecutive hyphens", ErrInvalidPattern, template)
		}
	}
	return &Pattern{template: template, positions: positions}, nil
}

// Template returns the source template.
func (p *Pattern) Template() string { return p.template }

// Length returns the fixed label length.
func (p *Pattern) Length() int { return len(p.positions) }

// Labels yields every matching label.
func (p *Pattern) Labels() iter.Seq[string] {
	return func(yield func(string) bool) {
		n := len(p.positions)
		idx := make([]int, n)
		buf := make([]byte, n)
		for i, chars := range p.positions {
			buf[i] = chars[0]
		}
		for {
			if !yield(string(buf)) {
				return
			}
			pos := n - 1
			for ; pos >= 0; pos-- {
				idx[pos]++
				if idx[pos] < len(p.positions[pos]) {
					buf[pos] = p.positions[pos][idx[pos]]
					break
				}
				idx[pos] = 0
				buf[pos] = p.positions[pos][0]
			}
			if pos < 0 {
				return
			}
		}
	}
}

// Candidates implements candidate.Generator.
func (p *Pattern) Candidates() iter.Seq[candidate.Candidate] {
	return candidate.FromLabels(p.Labels())
}

// Count returns the exact number of matching labels.
func (p *Pattern) Count() *big.Int {
	total := big.NewInt(1)
	for _, chars := range p.positions {
		total.Mul(total, big.NewInt(int64(len(chars))))
	}
	return total
}

// Estimate implements candidate.Estimator.
func (p *Pattern) Estimate() (uint64, bool) {
	return saturate(p.Count()), true
}

// String renders the compiled positions, e.g. "[bcd...z][aeiou]x".
func (p *Pattern) String() string {
	var sb strings.Builder
	for _, chars := range p.positions {
		if len(chars) == 1 {
			sb.WriteString(chars)
			continue
		}
		sb.WriteByte('[')
		if len(chars) > 6 {
			sb.WriteString(chars[:3] + "..." + chars[len(chars)-1:])
		} else {
			sb.WriteString(chars)
		}
		sb.WriteByte(']')
	}
	return sb.String()
}
