// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator drives generation runs: it pulls candidates from a
// source, filters them by length, label rules and uniqueness, and forwards
// survivors to a sink until a target count or an attempt ceiling is
// reached.
//
// # Overview
//
//	┌─────────┐   ┌──────────────────┐   ┌───────┐   ┌──────┐
//	│ Sampler │──▶│ length + rules   │──▶│ dedup │──▶│ sink │
//	│ ×N      │   │ (label.Check)    │   │       │   │ (1×) │
//	└─────────┘   └──────────────────┘   └───────┘   └──────┘
//
// Run drives the Markov sampler; Drain drives any other candidate
// sequence. Both stop on the first of: target reached, attempt ceiling
// hit, source exhausted or context cancelled, and report which in
// Report.Reason. None of these is an error; errors are reserved for sink
// failures.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jinterlante1206/dago/pkg/candidate"
	"github.com/jinterlante1206/dago/pkg/dedup"
	"github.com/jinterlante1206/dago/pkg/markov"
	"github.com/jinterlante1206/dago/pkg/sink"
)

var tracer = otel.Tracer("dago.orchestrator")

// ErrInvalidConfig is returned by New for unusable configurations.
var ErrInvalidConfig = errors.New("orchestrator: invalid config")

// progressLogInterval throttles debug progress lines.
const progressLogInterval = 5 * time.Second

// Config bounds one Markov generation run.
type Config struct {
	// Target is the number of unique labels requested. Must be > 0.
	Target uint64

	// MinLength and MaxLength bound delivered labels.
	MinLength int
	MaxLength int

	// AttemptFactor sets the attempt ceiling to Target × AttemptFactor.
	// 0 means DefaultAttemptFactor.
	AttemptFactor uint64

	// Workers is the number of parallel samplers. <= 1 runs a single
	// sampler on the calling goroutine with deterministic output order.
	Workers int

	// Seed seeds the samplers. Workers derive independent streams from it.
	Seed uint64

	// Temperature reshapes sampling weights. See markov.SamplerConfig.
	Temperature float64
}

// Orchestrator runs Markov generation against one model.
//
// # Thread Safety
//
// Run must not be called concurrently on the same Orchestrator.
type Orchestrator struct {
	model     *markov.Model
	dedup     dedup.Deduplicator
	cfg       Config
	logger    *slog.Logger
	progress  *Progress
	sometimes rate.Sometimes
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New validates cfg and prepares a run. d may be nil to disable
// deduplication.
func New(m *markov.Model, d dedup.Deduplicator, cfg Config, opts ...Option) (*Orchestrator, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInvalidConfig)
	}
	if cfg.Target == 0 {
		return nil, fmt.Errorf("%w: target must be positive", ErrInvalidConfig)
	}
	if cfg.MinLength < 1 || cfg.MaxLength < cfg.MinLength || cfg.MaxLength > 63 {
		return nil, fmt.Errorf("%w: lengths %d..%d", ErrInvalidConfig, cfg.MinLength, cfg.MaxLength)
	}
	if cfg.AttemptFactor == 0 {
		cfg.AttemptFactor = DefaultAttemptFactor
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	o := &Orchestrator{
		model:     m,
		dedup:     d,
		cfg:       cfg,
		logger:    slog.New(slog.DiscardHandler),
		progress:  NewProgress(cfg.Target),
		sometimes: rate.Sometimes{Interval: progressLogInterval},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Progress returns the live progress tracker for renderers.
func (o *Orchestrator) Progress() *Progress { return o.progress }

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// Run generates until the target is delivered to sk or the run stops for
// another reason. The sink is flushed before Run returns.
//
// # Outputs
//
//   - Report: Counts and stop reason. Valid even when error is non-nil.
//   - error: Sink failures only.
func (o *Orchestrator) Run(ctx context.Context, sk sink.Sink) (Report, error) {
	rep := Report{
		RunID:     uuid.NewString(),
		Requested: o.cfg.Target,
		Workers:   o.cfg.Workers,
	}
	if o.dedup != nil {
		rep.DedupMode = o.dedup.Mode()
	}

	ctx, span := tracer.Start(ctx, "orchestrator.Run",
		trace.WithAttributes(
			attribute.String("dago.run_id", rep.RunID),
			attribute.Int64("dago.target", int64(min(o.cfg.Target, 1<<62))),
			attribute.Int("dago.order", o.model.Order()),
			attribute.Int("dago.workers", o.cfg.Workers),
			attribute.String("dago.dedup_mode", string(rep.DedupMode)),
		),
	)
	defer span.End()

	logger := o.logger.With(slog.String("run_id", rep.RunID))
	logger.Info("generation started",
		slog.Uint64("target", o.cfg.Target),
		slog.Int("order", o.model.Order()),
		slog.Int("workers", o.cfg.Workers),
		slog.String("dedup_mode", string(rep.DedupMode)),
	)

	start := time.Now()
	var err error
	if !o.model.CanGenerate() {
		rep.Reason = ReasonModelDegenerate
	} else if o.cfg.Workers == 1 {
		err = o.runSequential(ctx, sk, &rep, logger)
	} else {
		err = o.runParallel(ctx, sk, &rep, logger)
	}
	if ferr := sk.Flush(); ferr != nil && err == nil {
		err = fmt.Errorf("flush sink: %w", ferr)
	}
	rep.Duration = time.Since(start)

	RecordRun("markov", rep)
	span.SetAttributes(
		attribute.Int64("dago.delivered", int64(rep.Delivered)),
		attribute.Int64("dago.attempts", int64(rep.Attempts)),
		attribute.String("dago.reason", string(rep.Reason)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sink failure")
		logger.Error("generation failed", slog.String("error", err.Error()))
	} else {
		logger.LogAttrs(ctx, slog.LevelInfo, "generation finished", rep.LogAttrs()...)
	}
	return rep, err
}

func (o *Orchestrator) samplerConfig() markov.SamplerConfig {
	return markov.SamplerConfig{
		MinLength:   o.cfg.MinLength,
		MaxLength:   o.cfg.MaxLength,
		Temperature: o.cfg.Temperature,
	}
}

func (o *Orchestrator) newFilter(c *counters) *filter {
	return &filter{
		minLen:  o.cfg.MinLength,
		maxLen:  o.cfg.MaxLength,
		dedup:   o.dedup,
		counts:  c,
		metrics: newAttemptCounters("markov"),
	}
}

func (o *Orchestrator) logProgress(logger *slog.Logger, c *counters) {
	o.sometimes.Do(func() {
		logger.Debug("generation progress",
			slog.Uint64("delivered", o.progress.Produced()),
			slog.Uint64("target", o.cfg.Target),
			slog.Uint64("attempts", c.attempts.Load()),
		)
	})
}

// runSequential samples on the calling goroutine.
func (o *Orchestrator) runSequential(ctx context.Context, sk sink.Sink, rep *Report, logger *slog.Logger) error {
	var c counters
	f := o.newFilter(&c)
	ceiling := attemptCeiling(o.cfg.Target, o.cfg.AttemptFactor)
	s := markov.NewSampler(o.model, markov.NewRand(o.cfg.Seed), o.samplerConfig())

	rep.Reason = ReasonModelDegenerate
	for sample := range s.Generate() {
		if ctx.Err() != nil {
			rep.Reason = ReasonCancelled
			break
		}
		c.attempts.Add(1)
		if f.classify(sample.Label, sample.TooShort) == accepted {
			if err := sk.Write(candidate.WithScore(sample.Label, sample.LogLikelihood)); err != nil {
				c.fill(rep, ceiling)
				rep.Reason = ReasonCancelled
				return fmt.Errorf("write candidate: %w", err)
			}
			rep.Delivered++
			o.progress.add(1)
			o.logProgress(logger, &c)
			if rep.Delivered == o.cfg.Target {
				rep.Reason = ReasonTargetReached
				break
			}
		}
		if c.attempts.Load() >= ceiling {
			rep.Reason = ReasonAttemptsExhausted
			break
		}
	}
	c.fill(rep, ceiling)
	return nil
}

// runParallel shards sampling across workers. Workers filter and
// deduplicate; a single writer on the calling goroutine feeds the sink.
func (o *Orchestrator) runParallel(ctx context.Context, sk sink.Sink, rep *Report, logger *slog.Logger) error {
	var c counters
	f := o.newFilter(&c)
	ceiling := attemptCeiling(o.cfg.Target, o.cfg.AttemptFactor)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)
	out := make(chan candidate.Candidate, 256*o.cfg.Workers)

	for w := range o.cfg.Workers {
		g.Go(func() error {
			s := markov.NewSampler(o.model, markov.DeriveRand(o.cfg.Seed, uint64(w)), o.samplerConfig())
			for sample := range s.Generate() {
				if gctx.Err() != nil {
					return nil
				}
				if c.attempts.Add(1) > ceiling {
					return nil
				}
				if f.classify(sample.Label, sample.TooShort) != accepted {
					continue
				}
				select {
				case out <- candidate.WithScore(sample.Label, sample.LogLikelihood):
				case <-gctx.Done():
					return nil
				}
			}
			return nil
		})
	}
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(out)
	}()

	var writeErr error
	for cand := range out {
		if writeErr != nil || rep.Delivered >= o.cfg.Target {
			continue
		}
		if err := sk.Write(cand); err != nil {
			writeErr = fmt.Errorf("write candidate: %w", err)
			stop()
			continue
		}
		rep.Delivered++
		o.progress.add(1)
		o.logProgress(logger, &c)
		if rep.Delivered == o.cfg.Target {
			stop()
		}
	}
	if err := <-done; err != nil && writeErr == nil {
		writeErr = err
	}

	c.fill(rep, ceiling)
	switch {
	case rep.Delivered >= o.cfg.Target:
		rep.Reason = ReasonTargetReached
	case ctx.Err() != nil || writeErr != nil:
		rep.Reason = ReasonCancelled
	default:
		rep.Reason = ReasonAttemptsExhausted
	}
	return writeErr
}
