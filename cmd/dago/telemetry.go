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
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var tracer = otel.Tracer("dago.cli")

// Training metrics. Generation metrics live in pkg/orchestrator.
var (
	// trainLines counts corpus lines by outcome.
	// Labels: outcome (accepted, or a rejection reason)
	trainLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dago",
		Subsystem: "train",
		Name:      "lines_total",
		Help:      "Corpus lines seen during training, by outcome",
	}, []string{"outcome"})

	// modelContexts reports the size of the last trained or loaded model.
	modelContexts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dago",
		Subsystem: "model",
		Name:      "contexts",
		Help:      "Contexts in the last trained or loaded model",
	})

	// modelTransitions reports distinct transitions in the same model.
	modelTransitions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dago",
		Subsystem: "model",
		Name:      "transitions",
		Help:      "Distinct transitions in the last trained or loaded model",
	})
)

// telemetry owns the optional trace exporter and metrics textfile.
type telemetry struct {
	tp          *sdktrace.TracerProvider
	traceFile   *os.File
	metricsFile string
}

// startTelemetry installs a stdout-trace exporter writing to traceFile when
// set. metricsFile is written on shutdown when set.
func startTelemetry(traceFile, metricsFile string) (*telemetry, error) {
	t := &telemetry{metricsFile: metricsFile}
	if traceFile == "" {
		return t, nil
	}

	f, err := os.Create(traceFile)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	t.traceFile = f
	t.tp = sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exp),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", "dago"))),
	)
	otel.SetTracerProvider(t.tp)
	return t, nil
}

func (t *telemetry) shutdown(ctx context.Context) error {
	var errs []error
	if t.tp != nil {
		if err := t.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	if t.traceFile != nil {
		errs = append(errs, t.traceFile.Close())
	}
	if t.metricsFile != "" {
		if err := prometheus.WriteToTextfile(t.metricsFile, prometheus.DefaultGatherer); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}
