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
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/dago/cmd/dago/internal/util"
	"github.com/jinterlante1206/dago/pkg/markov"
	"github.com/jinterlante1206/dago/pkg/orchestrator"
)

// loadModel reads a model artifact, mapping failures to ExitModelLoad.
func (a *app) loadModel(cmd *cobra.Command, path string, expectOrder int) (*markov.Model, error) {
	m, err := markov.LoadFile(path, expectOrder)
	if err != nil {
		return nil, util.NewExitError(cmd.Name(), util.ExitModelLoad, err)
	}
	recordModel(m)
	a.logger.Debug("model loaded",
		slog.String("path", path),
		slog.Int("order", m.Order()),
		slog.Int("contexts", m.ContextCount()),
	)
	return m, nil
}

func (a *app) markovCmd() *cobra.Command {
	var (
		modelPath   string
		count       uint64
		minLen      int
		maxLen      int
		tld         string
		output      string
		dflag       dedupFlags
		workers     int
		seed        uint64
		temperature float64
		scores      bool
		expectOrder int
	)
	cmd := &cobra.Command{
		Use:   "markov",
		Short: "Generate unique labels from a trained model",
		Long: `Sample labels from a trained Markov model until --count unique labels
are written or the attempt ceiling (count × attempt factor) is reached.
Labels outside the length range, duplicates, and labels that break the DNS
rules are discarded and counted.`,
		Example: `  dago markov --model assets/models/dago.model --count 10000
  dago markov --count 5000000 --workers 8 --dedup approx --scores`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count == 0 {
				return usageError(cmd, errZeroCount)
			}
			gen := a.cfg.Generation
			fl := cmd.Flags()
			if !fl.Changed("min") {
				minLen = gen.MinLength
			}
			if !fl.Changed("max") {
				maxLen = gen.MaxLength
			}
			if !fl.Changed("workers") {
				workers = gen.Workers
			}
			if !fl.Changed("temperature") {
				temperature = gen.Temperature
			}
			if modelPath == "" {
				modelPath = a.cfg.Training.ModelPath
			}
			tld = a.resolveTLD(cmd, tld)

			m, err := a.loadModel(cmd, modelPath, expectOrder)
			if err != nil {
				return err
			}
			d, err := a.newDedup(cmd, dflag, count)
			if err != nil {
				return err
			}
			defer d.Close()

			o, err := orchestrator.New(m, d, orchestrator.Config{
				Target:        count,
				MinLength:     minLen,
				MaxLength:     maxLen,
				AttemptFactor: gen.AttemptFactor,
				Workers:       workers,
				Seed:          seedOrNow(seed),
				Temperature:   temperature,
			}, orchestrator.WithLogger(a.logger.Slog()))
			if err != nil {
				return usageError(cmd, err)
			}

			path := a.outputPath(output, "markov",
				"k"+strconv.Itoa(m.Order()), fmt.Sprintf("%d-%d", minLen, maxLen), tld)
			w, err := a.openSink(path, tld, scores)
			if err != nil {
				return err
			}

			var bar *util.ProgressBar
			if a.showProgress() {
				bar = util.NewProgressBar(o.Progress(), a.stderr)
				bar.Start()
			}
			rep, runErr := o.Run(cmd.Context(), w)
			if bar != nil {
				bar.Stop()
			}
			if cerr := w.Close(); cerr != nil {
				runErr = errors.Join(runErr, cerr)
			}
			if runErr != nil {
				return runErr
			}
			a.printReport(rep, path, w.Count())
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&modelPath, "model", "m", "", "model file (default from config)")
	fl.Uint64VarP(&count, "count", "n", 1000, "number of unique labels to write")
	fl.IntVar(&minLen, "min", 2, "minimum label length (default from config)")
	fl.IntVar(&maxLen, "max", 12, "maximum label length (default from config)")
	registerTLD(cmd, &tld)
	fl.StringVar(&output, "output", "", "output file (default under the configured output dir)")
	dflag.register(cmd)
	fl.IntVarP(&workers, "workers", "w", 1, "parallel samplers; more than one makes output order nondeterministic")
	fl.Uint64Var(&seed, "seed", 0, "random seed (0 picks one from the clock)")
	fl.Float64Var(&temperature, "temperature", 1, "sampling temperature; below 1 favours common transitions")
	fl.BoolVar(&scores, "scores", false, "append the log-likelihood after each label")
	fl.IntVar(&expectOrder, "expect-order", 0, "fail unless the model has this order (0 accepts any)")
	return cmd
}
