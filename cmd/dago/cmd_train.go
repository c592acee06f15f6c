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
	"fmt"
	"iter"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jinterlante1206/dago/cmd/dago/internal/util"
	"github.com/jinterlante1206/dago/pkg/corpus"
	"github.com/jinterlante1206/dago/pkg/label"
	"github.com/jinterlante1206/dago/pkg/markov"
	"github.com/jinterlante1206/dago/pkg/ux"
)

// corpusLines flattens corpus.Files into plain lines. The first read error
// or cancellation ends the sequence and is stored in *errp.
func corpusLines(ctx context.Context, paths []string, errp *error) iter.Seq[string] {
	return func(yield func(string) bool) {
		for line, err := range corpus.Files(paths...) {
			if err != nil {
				*errp = err
				return
			}
			if err := ctx.Err(); err != nil {
				*errp = err
				return
			}
			if !yield(line) {
				return
			}
		}
	}
}

func (a *app) trainCmd() *cobra.Command {
	var (
		order  int
		out    string
		fold   bool
		maxLen int
	)
	cmd := &cobra.Command{
		Use:   "train <corpus>...",
		Short: "Train a Markov model from a list of names",
		Long: `Train a character-level Markov model from one or more corpus files.
Each line is normalised to a bare label: scheme, path, "www." and the TLD
are dropped and characters outside a-z, 0-9 and "-" are removed. Files
ending in .gz or .zst are decompressed; "-" reads stdin.`,
		Example: `  dago train names.txt --order 3
  zcat domains.gz | dago train - --out assets/models/com.model`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("order") {
				order = a.cfg.Training.Order
			}
			if out == "" {
				out = a.cfg.Training.ModelPath
			}
			b, err := markov.NewBuilder(order)
			if err != nil {
				return usageError(cmd, err)
			}

			ctx, span := tracer.Start(cmd.Context(), "cli.train",
				trace.WithAttributes(
					attribute.Int("dago.order", order),
					attribute.Int("dago.corpus_files", len(args)),
				),
			)
			defer span.End()

			norm := label.NewNormalizer(label.NormalizerConfig{
				MinLength:      label.MinLength,
				MaxLength:      maxLen,
				FoldDiacritics: fold,
			})
			var readErr error
			work := func() error {
				for l := range norm.Labels(corpusLines(ctx, args, &readErr)) {
					b.Add(l)
				}
				return readErr
			}
			if a.showProgress() {
				err = util.SpinWhileContext(ctx, a.stderr, "Training order-"+strconv.Itoa(order)+" model", work)
			} else {
				err = work()
			}
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "corpus read failed")
				return fmt.Errorf("read corpus: %w", err)
			}

			m := b.Model()
			stats := norm.Stats()
			recordTraining(stats, b.Skipped(), m)
			if err := m.SaveFile(out); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "save failed")
				return err
			}
			span.SetAttributes(
				attribute.Int64("dago.labels", int64(m.LabelCount())),
				attribute.Int("dago.contexts", m.ContextCount()),
			)
			a.logger.Info("model trained",
				slog.String("path", out),
				slog.Int("order", order),
				slog.Uint64("labels", m.LabelCount()),
				slog.Int("rejected", stats.Rejected),
			)

			p := a.printer(a.stdout)
			fields := []ux.Field{
				{Key: "Model", Value: out},
				{Key: "Order", Value: strconv.Itoa(order)},
				{Key: "Labels trained", Value: p.Count(m.LabelCount())},
				{Key: "Skipped (not longer than order)", Value: p.Count(b.Skipped())},
				{Key: "Lines rejected", Value: p.Count(uint64(stats.Rejected))},
			}
			for _, r := range label.Reasons {
				if n := stats.RejectedBy[r]; n > 0 {
					fields = append(fields, ux.Field{Key: "  " + string(r), Value: p.Count(uint64(n))})
				}
			}
			fields = append(fields,
				ux.Field{Key: "Contexts", Value: p.Count(uint64(m.ContextCount()))},
				ux.Field{Key: "Transitions", Value: p.Count(uint64(m.TransitionCount()))},
			)
			p.Fields("Training", fields)
			if !m.CanGenerate() {
				a.printer(a.stderr).Warning("the model has no transitions and cannot generate labels")
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&order, "order", "k", 3, "context length in characters (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "model output path (default from config)")
	cmd.Flags().BoolVar(&fold, "fold-diacritics", false, "map accented letters to their base letter")
	cmd.Flags().IntVar(&maxLen, "max-length", label.MaxLength, "longest corpus label kept")
	return cmd
}

// recordTraining exports the outcome of one training run.
func recordTraining(stats label.Stats, skipped uint64, m *markov.Model) {
	trainLines.WithLabelValues("accepted").Add(float64(stats.Accepted))
	for r, n := range stats.RejectedBy {
		trainLines.WithLabelValues(string(r)).Add(float64(n))
	}
	trainLines.WithLabelValues("skipped").Add(float64(skipped))
	recordModel(m)
}

// recordModel publishes the size of m.
func recordModel(m *markov.Model) {
	modelContexts.Set(float64(m.ContextCount()))
	modelTransitions.Set(float64(m.TransitionCount()))
}
