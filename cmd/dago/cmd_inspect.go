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
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/dago/pkg/markov"
	"github.com/jinterlante1206/dago/pkg/ux"
)

// successorFields renders the top n successors of d, most frequent first.
// Ties keep canonical symbol order.
func successorFields(p *ux.Printer, d markov.Distribution, n int) []ux.Field {
	succ := d.Successors()
	slices.SortStableFunc(succ, func(x, y markov.Successor) int {
		return cmp.Compare(y.Count, x.Count)
	})
	if n > 0 && len(succ) > n {
		succ = succ[:n]
	}
	fields := make([]ux.Field, 0, len(succ))
	for _, s := range succ {
		fields = append(fields, ux.Field{
			Key:   strconv.QuoteRune(rune(s.Char)),
			Value: fmt.Sprintf("%s (%.1f%%)", p.Count(uint64(s.Count)), 100*d.Probability(s.Char)),
		})
	}
	return fields
}

func (a *app) inspectCmd() *cobra.Command {
	var (
		top      int
		contexts []string
	)
	cmd := &cobra.Command{
		Use:   "inspect <model>",
		Short: "Show statistics of a trained model",
		Long: `Print the order and size of a model artifact and the most frequent
successors of the start context. Use --context to look at other contexts,
written with '^' for the start padding (e.g. "^^a" or "abc" for order 3).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadModel(cmd, args[0], 0)
			if err != nil {
				return err
			}

			p := a.printer(a.stdout)
			p.Fields("Model", []ux.Field{
				{Key: "Path", Value: args[0]},
				{Key: "Order", Value: strconv.Itoa(m.Order())},
				{Key: "Labels", Value: p.Count(m.LabelCount())},
				{Key: "Contexts", Value: p.Count(uint64(m.ContextCount()))},
				{Key: "Transitions", Value: p.Count(uint64(m.TransitionCount()))},
				{Key: "Can generate", Value: strconv.FormatBool(m.CanGenerate())},
			})

			root := strings.Repeat(string(markov.StartChar), m.Order())
			for _, c := range append([]string{root}, contexts...) {
				d, err := m.SuccessorsOf(c)
				if err != nil {
					return usageError(cmd, err)
				}
				title := fmt.Sprintf("Successors of %q", c)
				if d.Len() == 0 {
					p.Warning("%s: none", title)
					continue
				}
				p.Fields(title, successorFields(p, d, top))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "successors shown per context (0 for all)")
	cmd.Flags().StringSliceVar(&contexts, "context", nil, "additional contexts to show")
	return cmd
}
