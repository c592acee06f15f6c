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
	"time"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/dago/pkg/dedup"
	"github.com/jinterlante1206/dago/pkg/generators"
	"github.com/jinterlante1206/dago/pkg/markov"
)

var errZeroCount = errors.New("--count must be at least 1")

// dedupFlags override the dedup section of the config.
type dedupFlags struct {
	mode   string
	fpRate float64
}

func (f *dedupFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "dedup", "", "dedup backend: auto, exact, approx, disk (default from config)")
	cmd.Flags().Float64Var(&f.fpRate, "fp-rate", 0, "false-positive rate for approx dedup (default from config)")
}

// newDedup builds the deduplicator for a run of target labels.
func (a *app) newDedup(cmd *cobra.Command, f dedupFlags, target uint64) (dedup.Deduplicator, error) {
	policy, err := a.cfg.Dedup.DedupPolicy()
	if err != nil {
		return nil, usageError(cmd, err)
	}
	if f.mode != "" {
		if policy.Mode, err = dedup.ParseMode(f.mode); err != nil {
			return nil, usageError(cmd, err)
		}
	}
	if f.fpRate != 0 {
		if f.fpRate <= 0 || f.fpRate >= 1 {
			return nil, usageError(cmd, dedup.ErrInvalidRate)
		}
		policy.FalsePositiveRate = f.fpRate
	}
	policy.Logger = a.logger.Slog()

	d, err := dedup.New(target, policy)
	if err != nil {
		return nil, fmt.Errorf("create dedup: %w", err)
	}
	a.logger.Debug("dedup selected",
		slog.String("mode", string(d.Mode())),
		slog.Uint64("target", target),
	)
	return d, nil
}

// seedOrNow returns seed, or a time-derived seed when seed is 0.
func seedOrNow(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	return uint64(time.Now().UnixNano())
}

func (a *app) randomCmd() *cobra.Command {
	var (
		flags charsetFlags
		dflag dedupFlags
		count uint64
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:   "random",
		Short: "Sample unique labels uniformly at random",
		Long: `Draw labels uniformly over a charset and length range, dropping
repeats, until --count unique labels are written or the attempt ceiling
is reached.`,
		Example: `  dago random --count 1000 --charset letters --length 5
  dago random --count 50000 --min 3 --max 6 --seed 42 --tld io`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count == 0 {
				return usageError(cmd, errZeroCount)
			}
			flags.tld = a.resolveTLD(cmd, flags.tld)
			cfg, err := flags.bruteConfig(cmd)
			if err != nil {
				return err
			}
			s := seedOrNow(seed)
			r, err := generators.NewRandom(generators.RandomConfig(cfg), markov.NewRand(s))
			if err != nil {
				return usageError(cmd, err)
			}
			if space := r.Space(); space.IsUint64() && space.Uint64() < count {
				a.printer(a.stderr).Warning("only %s distinct labels exist; fewer than %d will be written",
					space.String(), count)
			}

			d, err := a.newDedup(cmd, dflag, count)
			if err != nil {
				return err
			}
			defer d.Close()

			a.logger.Info("random generation", slog.Uint64("seed", s))
			_, err = a.drain(cmd.Context(), drainJob{
				generator: "random",
				seq:       r.Candidates(),
				path:      a.outputPath(flags.output, "random", flags.pathParts(cfg)...),
				tld:       flags.tld,
				limit:     count,
				minLen:    cfg.MinLength,
				maxLen:    cfg.MaxLength,
				dedup:     d,
			})
			return err
		},
	}
	flags.register(cmd)
	dflag.register(cmd)
	cmd.Flags().Uint64Var(&count, "count", 1000, "number of unique labels to write")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 picks one from the clock)")
	return cmd
}
