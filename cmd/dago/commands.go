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
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/dago/cmd/dago/config"
	"github.com/jinterlante1206/dago/cmd/dago/internal/util"
	"github.com/jinterlante1206/dago/pkg/logging"
	"github.com/jinterlante1206/dago/pkg/sink"
	"github.com/jinterlante1206/dago/pkg/ux"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath  string
	logLevel    string
	logJSON     bool
	metricsFile string
	traceFile   string
	noProgress  bool
}

// app holds the state of one CLI invocation.
type app struct {
	stdout, stderr io.Writer
	flags          globalFlags

	cfg       config.DagoConfig
	logger    *logging.Logger
	telemetry *telemetry
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		cfg:    config.DefaultConfig(),
		logger: logging.Discard(),
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dago",
		Short: "Generate domain-name labels",
		Long: `dago generates candidate domain labels by brute-force enumeration,
random sampling, templates, or a character-level Markov model trained on
existing names. Output files hold one label per line with the TLD appended.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return util.NewExitError(c.Name(), util.ExitUsage, err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default ~/.dago/dago.yaml)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.BoolVar(&a.flags.logJSON, "log-json", false, "log as JSON on stderr")
	pf.StringVar(&a.flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.StringVar(&a.flags.traceFile, "trace-file", "", "write OpenTelemetry spans as JSON to this file")
	pf.BoolVar(&a.flags.noProgress, "no-progress", false, "disable progress display")

	root.AddCommand(
		a.bruteCmd(),
		a.randomCmd(),
		a.patternCmd(),
		a.trainCmd(),
		a.markovCmd(),
		a.inspectCmd(),
		a.configCmd(),
	)
	return root
}

// setup loads configuration and starts logging and telemetry. Flags
// override config values.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations["skip-config"] != "true" {
		cfg, _, err := config.Load(a.flags.configPath)
		if err != nil {
			return util.NewExitError(cmd.Name(), util.ExitUsage, err)
		}
		a.cfg = cfg
	}

	levelName := a.cfg.Logging.Level
	if a.flags.logLevel != "" {
		levelName = a.flags.logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return util.NewExitError(cmd.Name(), util.ExitUsage, err)
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  a.cfg.Logging.Dir,
		Service: "dago",
		JSON:    a.flags.logJSON || a.cfg.Logging.JSON,
		Output:  a.stderr,
	})

	t, err := startTelemetry(a.flags.traceFile, a.flags.metricsFile)
	if err != nil {
		return err
	}
	a.telemetry = t
	return nil
}

// close flushes telemetry and the logger. Safe when setup never ran.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.shutdown(ctx))
	}
	if a.logger != nil {
		errs = append(errs, a.logger.Close())
	}
	return errors.Join(errs...)
}

// showProgress reports whether live progress should be drawn on stderr.
func (a *app) showProgress() bool {
	return !a.flags.noProgress && util.IsTerminal(a.stderr)
}

// printer returns a ux.Printer for w, plain when w is not a terminal.
func (a *app) printer(w io.Writer) *ux.Printer {
	return ux.NewPrinter(w, !util.IsTerminal(w))
}

// outputPath resolves --output: an explicit path wins, otherwise the
// default name under the configured output directory.
func (a *app) outputPath(explicit, generator string, parts ...string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(a.cfg.Output.Dir, filepath.Base(sink.DefaultPath(generator, parts...)))
}

// openSink creates the output file.
func (a *app) openSink(path, tld string, scores bool) (*sink.BatchWriter, error) {
	w, err := sink.Create(path, sink.Options{
		TLD:       tld,
		BatchSize: a.cfg.Output.BatchSize,
		Scores:    scores,
	})
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return w, nil
}

// usageError marks err as a command-line usage problem.
func usageError(cmd *cobra.Command, err error) error {
	return util.NewExitError(cmd.Name(), util.ExitUsage, err)
}

// registerTLD adds --tld. The default comes from config, which is not
// loaded until setup runs, so it is resolved by resolveTLD.
func registerTLD(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVar(dst, "tld", "", "top-level domain appended to each label (default from config, \"\" for none)")
}

// resolveTLD returns the --tld value when given, else the configured TLD.
func (a *app) resolveTLD(cmd *cobra.Command, flagValue string) string {
	if cmd.Flags().Changed("tld") {
		return strings.TrimPrefix(strings.ToLower(flagValue), ".")
	}
	return a.cfg.Output.TLD
}
