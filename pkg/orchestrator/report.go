// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"log/slog"
	"time"

	"github.com/jinterlante1206/dago/pkg/dedup"
)

// Reason is why a run stopped. None of them is an error.
type Reason string

const (
	// ReasonTargetReached means Delivered == Requested.
	ReasonTargetReached Reason = "target_reached"

	// ReasonAttemptsExhausted means the attempt ceiling was hit first,
	// usually because the source has fewer distinct labels than requested.
	ReasonAttemptsExhausted Reason = "attempts_exhausted"

	// ReasonModelDegenerate means the model cannot generate any label.
	ReasonModelDegenerate Reason = "model_degenerate"

	// ReasonSourceExhausted means a finite source ran out.
	ReasonSourceExhausted Reason = "source_exhausted"

	// ReasonCancelled means the context was cancelled.
	ReasonCancelled Reason = "cancelled"
)

// Report summarises one run.
type Report struct {
	RunID      string
	Requested  uint64
	Delivered  uint64
	Attempts   uint64
	TooShort   uint64
	Invalid    uint64
	Duplicates uint64
	Reason     Reason
	DedupMode  dedup.Mode
	Workers    int
	Duration   time.Duration
}

// Shortfall returns how many requested labels were not delivered.
func (r Report) Shortfall() uint64 {
	if r.Delivered >= r.Requested {
		return 0
	}
	return r.Requested - r.Delivered
}

// Complete reports whether the requested count was delivered. A zero
// request is complete when the source was drained.
func (r Report) Complete() bool {
	if r.Requested == 0 {
		return r.Reason == ReasonSourceExhausted
	}
	return r.Delivered >= r.Requested
}

// LogAttrs returns the report as slog attributes.
func (r Report) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("run_id", r.RunID),
		slog.Uint64("requested", r.Requested),
		slog.Uint64("delivered", r.Delivered),
		slog.Uint64("attempts", r.Attempts),
		slog.Uint64("too_short", r.TooShort),
		slog.Uint64("invalid", r.Invalid),
		slog.Uint64("duplicates", r.Duplicates),
		slog.String("reason", string(r.Reason)),
		slog.String("dedup_mode", string(r.DedupMode)),
		slog.Int("workers", r.Workers),
		slog.Duration("duration", r.Duration),
	}
}
