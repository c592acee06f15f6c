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

	"github.com/jinterlante1206/dago/pkg/label"
)

// =============================================================================
// Symbols
// =============================================================================

const (
	// StartChar and EndChar are the textual forms of the boundary symbols.
	StartChar = '^'
	EndChar   = '$'

	// MaxOrder is the widest context a packed 64-bit key can hold.
	MaxOrder = 10

	symStart   byte = 0
	symEnd     byte = 1
	numSymbols      = 2 + len(label.Alphabet)
	symBits         = 6
	symMask         = 1<<symBits - 1
	noSymbol   byte = 0xFF
)

var (
	symbolOf [256]byte
	charOf   [numSymbols]byte
)

func init() {
	for i := range symbolOf {
		symbolOf[i] = noSymbol
	}
	symbolOf[StartChar] = symStart
	symbolOf[EndChar] = symEnd
	charOf[symStart] = StartChar
	charOf[symEnd] = EndChar
	for i := 0; i < len(label.Alphabet); i++ {
		sym := byte(i + 2)
		symbolOf[label.Alphabet[i]] = sym
		charOf[sym] = label.Alphabet[i]
	}
}

// =============================================================================
// Context
// =============================================================================

// Context is a fixed-width window of symbols packed 6 bits per symbol, the
// oldest symbol in the most significant position. The all-start context of
// any order is 0.
type Context uint64

// RootContext is the context every label starts from.
const RootContext Context = 0

// push drops the oldest symbol and appends sym.
func (c Context) push(sym byte, order int) Context {
	mask := Context(1)<<(symBits*order) - 1
	return (c<<symBits | Context(sym)) & mask
}

// Format renders the context as order characters, using '^' for the start
// symbol, e.g. "^^a" or "abc".
func (c Context) Format(order int) string {
	buf := make([]byte, order)
	for i := order - 1; i >= 0; i-- {
		buf[i] = charOf[c&symMask]
		c >>= symBits
	}
	return string(buf)
}

// valid reports whether every packed symbol is a known symbol that may
// appear inside a context (never '$') and no bits lie beyond order.
func (c Context) valid(order int) bool {
	if c>>(symBits*order) != 0 {
		return false
	}
	for i := 0; i < order; i++ {
		sym := byte(c & symMask)
		if int(sym) >= numSymbols || sym == symEnd {
			return false
		}
		c >>= symBits
	}
	return true
}

// ParseContext parses the textual form produced by Format.
//
// # Description
//
// s must be exactly order characters drawn from the label alphabet and
// '^'. Start symbols may only form a prefix, matching the way contexts
// arise during training.
//
// # Outputs
//
//   - Context: Packed context
//   - error: ErrInvalidOrder or ErrInvalidContext
func ParseContext(s string, order int) (Context, error) {
	if order < 1 || order > MaxOrder {
		return 0, fmt.Errorf("%w: %d", ErrInvalidOrder, order)
	}
	if len(s) != order {
		return 0, fmt.Errorf("%w: %q has length %d, want %d", ErrInvalidContext, s, len(s), order)
	}
	var c Context
	seenLabel := false
	for i := 0; i < len(s); i++ {
		sym := symbolOf[s[i]]
		switch {
		case sym == noSymbol || sym == symEnd:
			return 0, fmt.Errorf("%w: %q contains %q", ErrInvalidContext, s, s[i])
		case sym == symStart && seenLabel:
			return 0, fmt.Errorf("%w: %q has a start symbol after a label symbol", ErrInvalidContext, s)
		case sym != symStart:
			seenLabel = true
		}
		c = c<<symBits | Context(sym)
	}
	return c, nil
}
