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

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/dago/pkg/generators"
	"github.com/jinterlante1206/dago/pkg/ux"
)

// errLengthConflict rejects --length combined with --min or --max.
var errLengthConflict = errors.New("--length cannot be combined with --min or --max")

// charsetFlags are shared by brute and random.
type charsetFlags struct {
	charset    string
	minLen     int
	maxLen     int
	length     int
	hyphenMode string
	tld        string
	output     string
}

func (f *charsetFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.charset, "charset", string(generators.CharsetAlphanumeric), "character set: numbers, letters, alphanumeric")
	fl.IntVar(&f.minLen, "min", 2, "minimum label length")
	fl.IntVar(&f.maxLen, "max", 4, "maximum label length")
	fl.IntVar(&f.length, "length", 0, "exact label length (sets --min and --max)")
	fl.StringVar(&f.hyphenMode, "hyphen-mode", string(generators.HyphenWith), "hyphens: with, without, only")
	registerTLD(cmd, &f.tld)
	fl.StringVar(&f.output, "output", "", "output file (default under the configured output dir)")
}

// bruteConfig resolves the flags into a generator config.
func (f *charsetFlags) bruteConfig(cmd *cobra.Command) (generators.BruteConfig, error) {
	if cmd.Flags().Changed("length") {
		if cmd.Flags().Changed("min") || cmd.Flags().Changed("max") {
			return generators.BruteConfig{}, usageError(cmd, errLengthConflict)
		}
		f.minLen, f.maxLen = f.length, f.length
	}
	cs, err := generators.ParseCharset(f.charset)
	if err != nil {
		return generators.BruteConfig{}, usageError(cmd, err)
	}
	hm, err := generators.ParseHyphenMode(f.hyphenMode)
	if err != nil {
		return generators.BruteConfig{}, usageError(cmd, err)
	}
	return generators.BruteConfig{
		Charset:    cs,
		MinLength:  f.minLen,
		MaxLength:  f.maxLen,
		HyphenMode: hm,
	}, nil
}

// pathParts names the default output file after the generator settings.
func (f *charsetFlags) pathParts(cfg generators.BruteConfig) []string {
	return []string{
		string(cfg.Charset),
		fmt.Sprintf("%d-%d", cfg.MinLength, cfg.MaxLength),
		string(cfg.HyphenMode),
		f.tld,
	}
}

func (a *app) bruteCmd() *cobra.Command {
	var (
		flags        charsetFlags
		estimateOnly bool
	)
	cmd := &cobra.Command{
		Use:   "brute",
		Short: "Enumerate every label over a charset",
		Long: `Enumerate every valid label of the requested lengths in lexicographic
order. The exact count is printed before generation starts; large ranges
will not finish in practice.`,
		Example: `  dago brute --charset numbers --length 3
  dago brute --charset letters --min 2 --max 3 --hyphen-mode without --tld com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.tld = a.resolveTLD(cmd, flags.tld)
			cfg, err := flags.bruteConfig(cmd)
			if err != nil {
				return err
			}
			b, err := generators.NewBrute(cfg)
			if err != nil {
				return usageError(cmd, err)
			}

			p := a.printer(a.stdout)
			exact := b.Count()
			p.Fields("Estimate", []ux.Field{
				{Key: "Estimated domains to generate", Value: formatBig(p, exact)},
				{Key: "Heuristic estimate", Value: formatBig(p, b.HeuristicEstimate())},
			})
			if estimateOnly {
				return nil
			}

			expected, _ := b.Estimate()
			_, err = a.drain(cmd.Context(), drainJob{
				generator: "brute",
				seq:       b.Candidates(),
				path:      a.outputPath(flags.output, "brute", flags.pathParts(cfg)...),
				tld:       flags.tld,
				expected:  expected,
				minLen:    cfg.MinLength,
				maxLen:    cfg.MaxLength,
			})
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&estimateOnly, "estimate-only", false, "print the count and exit")
	return cmd
}
