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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Attempt outcomes used as the "outcome" label.
const (
	outcomeAccepted  = "accepted"
	outcomeTooShort  = "too_short"
	outcomeInvalid   = "invalid"
	outcomeDuplicate = "duplicate"
)

var (
	// generateAttempts counts candidates by outcome.
	// Labels: generator (markov, brute, random, pattern), outcome
	generateAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dago",
		Subsystem: "generate",
		Name:      "attempts_total",
		Help:      "Candidates examined by the orchestrator, by outcome",
	}, []string{"generator", "outcome"})

	// generateRuns counts finished runs by stop reason.
	// Labels: generator, reason
	generateRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dago",
		Subsystem: "generate",
		Name:      "runs_total",
		Help:      "Finished generation runs by stop reason",
	}, []string{"generator", "reason"})

	// generateDuration measures wall time per run.
	// Labels: generator
	generateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dago",
		Subsystem: "generate",
		Name:      "run_duration_seconds",
		Help:      "Generation run wall time in seconds",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 1800},
	}, []string{"generator"})
)

// attemptCounters caches the per-outcome children for one generator so
// the hot loop never resolves label values.
type attemptCounters struct {
	accepted, tooShort, invalid, duplicate prometheus.Counter
}

func newAttemptCounters(generator string) attemptCounters {
	return attemptCounters{
		accepted:  generateAttempts.WithLabelValues(generator, outcomeAccepted),
		tooShort:  generateAttempts.WithLabelValues(generator, outcomeTooShort),
		invalid:   generateAttempts.WithLabelValues(generator, outcomeInvalid),
		duplicate: generateAttempts.WithLabelValues(generator, outcomeDuplicate),
	}
}

// RecordRun records a finished run.
func RecordRun(generator string, r Report) {
	generateRuns.WithLabelValues(generator, string(r.Reason)).Inc()
	generateDuration.WithLabelValues(generator).Observe(r.Duration.Seconds())
}
