// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"math/big"

	"github.com/jinterlante1206/dago/cmd/dago/internal/util"
	"github.com/jinterlante1206/dago/pkg/candidate"
	"github.com/jinterlante1206/dago/pkg/dedup"
	"github.com/jinterlante1206/dago/pkg/orchestrator"
	"github.com/jinterlante1206/dago/pkg/ux"
)

// drainJob describes one run of a non-Markov generator.
type drainJob struct {
	generator      string
	seq            iter.Seq[candidate.Candidate]
	path, tld      string
	limit          uint64 // 0 drains the source
	expected       uint64 // progress target when limit is 0
	minLen, maxLen int
	dedup          dedup.Deduplicator
}

// drain streams a generator into its output file and prints the summary.
func (a *app) drain(ctx context.Context, job drainJob) (orchestrator.Report, error) {
	w, err := a.openSink(job.path, job.tld, false)
	if err != nil {
		return orchestrator.Report{}, err
	}

	target := job.limit
	if target == 0 {
		target = job.expected
	}
	progress := orchestrator.NewProgress(target)
	var bar *util.ProgressBar
	if a.showProgress() && target > 0 {
		bar = util.NewProgressBar(progress, a.stderr)
		bar.Start()
	}

	rep, runErr := orchestrator.Drain(ctx, job.seq, w, orchestrator.DrainOptions{
		Generator:     job.generator,
		Limit:         job.limit,
		MinLength:     job.minLen,
		MaxLength:     job.maxLen,
		Dedup:         job.dedup,
		AttemptFactor: a.cfg.Generation.AttemptFactor,
		Progress:      progress,
		Logger:        a.logger.Slog(),
	})
	if bar != nil {
		bar.Stop()
	}
	if cerr := w.Close(); cerr != nil {
		runErr = errors.Join(runErr, cerr)
	}
	if runErr != nil {
		return rep, runErr
	}
	a.printReport(rep, job.path, w.Count())
	return rep, nil
}

// printReport writes the run summary to stderr and logs shortfalls.
func (a *app) printReport(rep orchestrator.Report, path string, written uint64) {
	p := a.printer(a.stderr)
	p.Success("wrote %s labels to %s", p.Count(written), path)
	if rep.Requested > 0 && rep.Shortfall() > 0 {
		p.Warning("requested %s, delivered %s (%s)",
			p.Count(rep.Requested), p.Count(rep.Delivered), rep.Reason)
		a.logger.Slog().Warn("run delivered fewer labels than requested",
			slog.String("run_id", rep.RunID),
			slog.Uint64("shortfall", rep.Shortfall()),
			slog.String("reason", string(rep.Reason)),
		)
	}
	if !p.Plain() && rep.Attempts > rep.Delivered {
		p.Fields("Run", []ux.Field{
			{Key: "attempts", Value: p.Count(rep.Attempts)},
			{Key: "duplicates", Value: p.Count(rep.Duplicates)},
			{Key: "too short", Value: p.Count(rep.TooShort)},
			{Key: "invalid", Value: p.Count(rep.Invalid)},
			{Key: "duration", Value: rep.Duration.Round(1e6).String()},
		})
	}
}

// formatBig groups n like Printer.Count when it fits in a uint64.
func formatBig(p *ux.Printer, n *big.Int) string {
	if n.IsUint64() {
		return p.Count(n.Uint64())
	}
	return n.String()
}
