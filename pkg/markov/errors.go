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

import "errors"

var (
	// ErrInvalidOrder is returned when an order is outside [1, MaxOrder].
	ErrInvalidOrder = errors.New("markov: invalid order")

	// ErrInvalidContext is returned when a textual context cannot be parsed.
	ErrInvalidContext = errors.New("markov: invalid context")

	// ErrCorruptModel is returned when a persisted model fails structural
	// or checksum validation.
	ErrCorruptModel = errors.New("markov: corrupt model artifact")

	// ErrUnsupportedVersion is returned for artifacts written by an
	// incompatible format version.
	ErrUnsupportedVersion = errors.New("markov: unsupported model format version")

	// ErrOrderMismatch is returned when a reloaded model's order differs
	// from the order the caller requires.
	ErrOrderMismatch = errors.New("markov: model order mismatch")
)
