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
	"context"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/jinterlante1206/dago/pkg/candidate"
	"github.com/jinterlante1206/dago/pkg/dedup"
	"github.com/jinterlante1206/dago/pkg/label"
	"github.com/jinterlante1206/dago/pkg/sink"
)

// DrainOptions configures Drain.
type DrainOptions struct {
	// Generator names the source in logs and metrics. Default "custom".
	Generator string

	// Limit stops after this many delivered candidates. 0 drains the
	// source completely.
	Limit uint64

	// MinLength and MaxLength bound delivered labels. Zero values mean
	// label.MinLength and label.MaxLength.
	MinLength int
	MaxLength int

	// Dedup filters repeats when set. Exhaustive enumerators never repeat
	// and leave it nil.
	Dedup dedup.Deduplicator

	// AttemptFactor caps attempts at Limit × AttemptFactor for infinite
	// sources. Ignored when Limit is 0. 0 means DefaultAttemptFactor.
	AttemptFactor uint64

	// Progress receives delivered counts when set.
	Progress *Progress

	// Logger receives run start/stop lines. nil discards.
	Logger *slog.Logger
}

// Drain forwards candidates from seq to sk through the same filter the
// Markov path uses. It is the pipeline behind the brute, random and
// pattern generators.
//
// # Outputs
//
//   - Report: Delivered count and stop reason. A finite seq that runs out
//     stops with ReasonSourceExhausted.
//   - error: Sink failures only.
func Drain(ctx context.Context, seq iter.Seq[candidate.Candidate], sk sink.Sink, opts DrainOptions) (Report, error) {
	if opts.Generator == "" {
		opts.Generator = "custom"
	}
	if opts.MinLength <= 0 {
		opts.MinLength = label.MinLength
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = label.MaxLength
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	rep := Report{
		RunID:     uuid.NewString(),
		Requested: opts.Limit,
		Workers:   1,
	}
	if opts.Dedup != nil {
		rep.DedupMode = opts.Dedup.Mode()
	}
	ceiling := uint64(math.MaxUint64)
	if opts.Limit > 0 {
		ceiling = attemptCeiling(opts.Limit, opts.AttemptFactor)
	}

	ctx, span := tracer.Start(ctx, "orchestrator.Drain",
		trace.WithAttributes(
			attribute.String("dago.run_id", rep.RunID),
			attribute.String("dago.generator", opts.Generator),
			attribute.Int64("dago.limit", int64(min(opts.Limit, 1<<62))),
		),
	)
	defer span.End()

	logger = logger.With(slog.String("run_id", rep.RunID), slog.String("generator", opts.Generator))
	logger.Info("drain started", slog.Uint64("limit", opts.Limit))

	var c counters
	f := &filter{
		minLen:  opts.MinLength,
		maxLen:  opts.MaxLength,
		dedup:   opts.Dedup,
		counts:  &c,
		metrics: newAttemptCounters(opts.Generator),
	}
	sometimes := rate.Sometimes{Interval: progressLogInterval}

	start := time.Now()
	var err error
	rep.Reason = ReasonSourceExhausted
	for cand := range seq {
		if ctx.Err() != nil {
			rep.Reason = ReasonCancelled
			break
		}
		c.attempts.Add(1)
		if f.classify(cand.Label, false) == accepted {
			if werr := sk.Write(cand); werr != nil {
				err = fmt.Errorf("write candidate: %w", werr)
				rep.Reason = ReasonCancelled
				break
			}
			rep.Delivered++
			if opts.Progress != nil {
				opts.Progress.add(1)
			}
			sometimes.Do(func() {
				logger.Debug("drain progress", slog.Uint64("delivered", rep.Delivered))
			})
			if opts.Limit > 0 && rep.Delivered == opts.Limit {
				rep.Reason = ReasonTargetReached
				break
			}
		}
		if c.attempts.Load() >= ceiling {
			rep.Reason = ReasonAttemptsExhausted
			break
		}
	}
	if ferr := sk.Flush(); ferr != nil && err == nil {
		err = fmt.Errorf("flush sink: %w", ferr)
	}
	c.fill(&rep, ceiling)
	rep.Duration = time.Since(start)

	RecordRun(opts.Generator, rep)
	span.SetAttributes(
		attribute.Int64("dago.delivered", int64(rep.Delivered)),
		attribute.String("dago.reason", string(rep.Reason)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sink failure")
		logger.Error("drain failed", slog.String("error", err.Error()))
	} else {
		logger.LogAttrs(ctx, slog.LevelInfo, "drain finished", rep.LogAttrs()...)
	}
	return rep, err
}
