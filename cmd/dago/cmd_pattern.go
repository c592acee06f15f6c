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
	"strings"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/dago/pkg/generators"
	"github.com/jinterlante1206/dago/pkg/ux"
)

func (a *app) patternCmd() *cobra.Command {
	var (
		tld          string
		output       string
		estimateOnly bool
	)
	cmd := &cobra.Command{
		Use:   "pattern <template>",
		Short: "Enumerate labels matching a template",
		Long: `Enumerate every label matching a template. Each template character is
one position and stands for itself. A backslash selects a class:

  \c consonant        \v vowel
  \d digit            \l letter
  \a letter or digit

Quote templates so the shell keeps the backslashes.`,
		Example: `  dago pattern '\c\v\c\v'
  dago pattern 'shop\d\d' --tld com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tld = a.resolveTLD(cmd, tld)
			pat, err := generators.ParsePattern(args[0])
			if err != nil {
				return usageError(cmd, err)
			}

			p := a.printer(a.stdout)
			p.Fields("Pattern", []ux.Field{
				{Key: "Positions", Value: pat.String()},
				{Key: "Estimated domains to generate", Value: formatBig(p, pat.Count())},
			})
			if estimateOnly {
				return nil
			}

			expected, _ := pat.Estimate()
			name := strings.ReplaceAll(pat.Template(), `\`, "")
			_, err = a.drain(cmd.Context(), drainJob{
				generator: "pattern",
				seq:       pat.Candidates(),
				path:      a.outputPath(output, "pattern", name, tld),
				tld:       tld,
				expected:  expected,
				minLen:    pat.Length(),
				maxLen:    pat.Length(),
			})
			return err
		},
	}
	registerTLD(cmd, &tld)
	cmd.Flags().StringVar(&output, "output", "", "output file (default under the configured output dir)")
	cmd.Flags().BoolVar(&estimateOnly, "estimate-only", false, "print the count and exit")
	return cmd
}
