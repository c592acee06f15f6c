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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinterlante1206/dago/cmd/dago/internal/util"
	"github.com/jinterlante1206/dago/pkg/label"
)

// names is a small training corpus in the shapes train accepts.
var names = []string{
	"https://www.google.com/search", "facebook.com", "amazon.com", "wikipedia.org",
	"youtube.com", "twitter.com", "linkedin.com", "instagram.com", "netflix.com",
	"microsoft.com", "apple.com", "github.com", "gitlab.com", "stackoverflow.com",
	"reddit.com", "pinterest.com", "tumblr.com", "dropbox.com", "spotify.com",
	"paypal.com", "ebay.com", "alibaba.com", "baidu.com", "yahoo.com",
	"bing.com", "duckduckgo.com", "mozilla.org", "ubuntu.com", "debian.org",
	"kernel.org", "python.org", "golang.org", "rust-lang.org", "nodejs.org",
	"cloudflare.com", "fastly.com", "akamai.com", "digitalocean.com", "heroku.com",
	"vercel.com", "netlify.com", "x", "--bad--",
}

type result struct {
	code           int
	stdout, stderr string
}

// sandbox isolates HOME and the working directory so the default config
// and output directory land in temp dirs.
func sandbox(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func dago(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"--no-progress"}, args...), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func trainModel(t *testing.T, dir string) string {
	t.Helper()
	corpusPath := filepath.Join(dir, "names.txt")
	require.NoError(t, os.WriteFile(corpusPath, []byte(strings.Join(names, "\n")+"\n"), 0644))
	model := filepath.Join(dir, "models", "test.model")
	res := dago(t, "train", corpusPath, "--order", "2", "--out", model)
	require.Equal(t, util.ExitOK, res.code, res.stderr)
	require.FileExists(t, model)
	return model
}

func TestBrute_EstimateOnly(t *testing.T) {
	sandbox(t)
	res := dago(t, "brute", "--charset", "numbers", "--length", "2", "--hyphen-mode", "without", "--estimate-only")
	require.Equal(t, util.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Estimated domains to generate: 100")
	assert.NoDirExists(t, "assets/output")
}

func TestBrute_LengthConflict(t *testing.T) {
	sandbox(t)
	res := dago(t, "brute", "--length", "3", "--min", "2")
	assert.Equal(t, util.ExitUsage, res.code)
	assert.Contains(t, res.stderr, "--length")
}

func TestBrute_WritesFile(t *testing.T) {
	dir := sandbox(t)
	out := filepath.Join(dir, "out.txt")
	res := dago(t, "brute", "--charset", "numbers", "--length", "2", "--hyphen-mode", "without",
		"--tld", "com", "--output", out)
	require.Equal(t, util.ExitOK, res.code, res.stderr)

	lines := readLines(t, out)
	require.Len(t, lines, 100)
	assert.Equal(t, "00.com", lines[0])
	assert.Equal(t, "99.com", lines[99])
	assert.Contains(t, res.stderr, "OK: wrote 100 labels")
}

func TestBrute_DefaultOutputPath(t *testing.T) {
	sandbox(t)
	res := dago(t, "brute", "--charset", "numbers", "--length", "1", "--hyphen-mode", "without")
	require.Equal(t, util.ExitOK, res.code, res.stderr)

	lines := readLines(t, filepath.Join("assets", "output", "brute_numbers_1-1_without_lt.txt"))
	assert.Len(t, lines, 10)
	assert.Equal(t, "0.lt", lines[0])
}

func TestRandom_UniqueCount(t *testing.T) {
	dir := sandbox(t)
	out := filepath.Join(dir, "random.txt")
	res := dago(t, "random", "--charset", "numbers", "--length", "3", "--hyphen-mode", "without",
		"--count", "50", "--seed", "1", "--tld", "", "--output", out)
	require.Equal(t, util.ExitOK, res.code, res.stderr)

	lines := readLines(t, out)
	require.Len(t, lines, 50)
	seen := make(map[string]bool)
	for _, l := range lines {
		assert.Len(t, l, 3)
		assert.False(t, seen[l], "duplicate %q", l)
		seen[l] = true
	}
}

func TestRandom_ZeroCount(t *testing.T) {
	sandbox(t)
	res := dago(t, "random", "--count", "0")
	assert.Equal(t, util.ExitUsage, res.code)
}

func TestPattern(t *testing.T) {
	dir := sandbox(t)
	out := filepath.Join(dir, "pattern.txt")
	res := dago(t, "pattern", `ab\d`, "--output", out)
	require.Equal(t, util.ExitOK, res.code, res.stderr)

	lines := readLines(t, out)
	require.Len(t, lines, 10)
	assert.Equal(t, "ab0.lt", lines[0])
	assert.Equal(t, "ab9.lt", lines[9])
}

func TestPattern_Invalid(t *testing.T) {
	sandbox(t)
	res := dago(t, "pattern", "-ab")
	assert.NotEqual(t, util.ExitOK, res.code)

	res = dago(t, "pattern", "a_b")
	assert.Equal(t, util.ExitUsage, res.code)
}

func TestTrainAndMarkov(t *testing.T) {
	dir := sandbox(t)
	model := trainModel(t, dir)

	out := filepath.Join(dir, "markov.txt")
	res := dago(t, "markov", "--model", model, "--count", "20", "--seed", "7", "--output", out)
	require.Equal(t, util.ExitOK, res.code, res.stderr)

	lines := readLines(t, out)
	require.Len(t, lines, 20)
	seen := make(map[string]bool)
	for _, l := range lines {
		require.True(t, strings.HasSuffix(l, ".lt"), l)
		base := strings.TrimSuffix(l, ".lt")
		assert.True(t, label.Valid(base, 2, 12), base)
		assert.False(t, seen[base], "duplicate %q", base)
		seen[base] = true
	}
}

func TestMarkov_Deterministic(t *testing.T) {
	dir := sandbox(t)
	model := trainModel(t, dir)

	var outputs [2][]string
	for i := range outputs {
		out := filepath.Join(dir, "run.txt")
		res := dago(t, "markov", "--model", model, "--count", "15", "--seed", "99", "--output", out)
		require.Equal(t, util.ExitOK, res.code, res.stderr)
		outputs[i] = readLines(t, out)
	}
	assert.Equal(t, outputs[0], outputs[1])
}

func TestMarkov_Scores(t *testing.T) {
	dir := sandbox(t)
	model := trainModel(t, dir)

	out := filepath.Join(dir, "scored.txt")
	res := dago(t, "markov", "--model", model, "--count", "5", "--seed", "3", "--scores", "--output", out)
	require.Equal(t, util.ExitOK, res.code, res.stderr)
	for _, l := range readLines(t, out) {
		name, score, ok := strings.Cut(l, "\t")
		require.True(t, ok, l)
		assert.True(t, strings.HasSuffix(name, ".lt"))
		assert.True(t, strings.HasPrefix(score, "-"), score)
	}
}

func TestMarkov_ModelLoadFailures(t *testing.T) {
	dir := sandbox(t)

	corrupt := filepath.Join(dir, "corrupt.model")
	require.NoError(t, os.WriteFile(corrupt, []byte("definitely not a model"), 0644))
	res := dago(t, "markov", "--model", corrupt)
	assert.Equal(t, util.ExitModelLoad, res.code)
	assert.Contains(t, res.stderr, "corrupt")

	res = dago(t, "markov", "--model", filepath.Join(dir, "missing.model"))
	assert.Equal(t, util.ExitModelLoad, res.code)

	model := trainModel(t, dir)
	res = dago(t, "markov", "--model", model, "--expect-order", "3")
	assert.Equal(t, util.ExitModelLoad, res.code)
	assert.Contains(t, res.stderr, "order")
}

func TestMarkov_InvalidLengths(t *testing.T) {
	dir := sandbox(t)
	model := trainModel(t, dir)
	res := dago(t, "markov", "--model", model, "--min", "8", "--max", "4")
	assert.Equal(t, util.ExitUsage, res.code)
}

func TestTrain_Summary(t *testing.T) {
	dir := sandbox(t)
	corpusPath := filepath.Join(dir, "names.txt")
	require.NoError(t, os.WriteFile(corpusPath, []byte(strings.Join(names, "\n")), 0644))

	res := dago(t, "train", corpusPath, "--order", "2", "--out", filepath.Join(dir, "m.model"))
	require.Equal(t, util.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Order: 2")
	assert.Contains(t, res.stdout, "Lines rejected: 2")
}

func TestTrain_MissingCorpus(t *testing.T) {
	dir := sandbox(t)
	res := dago(t, "train", filepath.Join(dir, "nope.txt"))
	assert.Equal(t, util.ExitRuntime, res.code)
	assert.Contains(t, res.stderr, "read corpus")
}

func TestInspect(t *testing.T) {
	dir := sandbox(t)
	model := trainModel(t, dir)

	res := dago(t, "inspect", model, "--top", "3", "--context", "go")
	require.Equal(t, util.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Order: 2")
	assert.Contains(t, res.stdout, "Can generate: true")
	assert.Contains(t, res.stdout, "'o'")

	res = dago(t, "inspect", model, "--context", "toolong")
	assert.Equal(t, util.ExitUsage, res.code)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := sandbox(t)
	path := filepath.Join(dir, "cfg", "dago.yaml")

	res := dago(t, "--config", path, "config", "init")
	require.Equal(t, util.ExitOK, res.code, res.stderr)
	assert.FileExists(t, path)

	res = dago(t, "--config", path, "config", "init")
	assert.Equal(t, util.ExitUsage, res.code)

	res = dago(t, "--config", path, "config", "init", "--force")
	assert.Equal(t, util.ExitOK, res.code, res.stderr)

	res = dago(t, "--config", path, "config", "show")
	require.Equal(t, util.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "tld: lt")
}

func TestConfig_EnvOverride(t *testing.T) {
	dir := sandbox(t)
	t.Setenv("DAGO_OUTPUT_TLD", "io")
	out := filepath.Join(dir, "out.txt")
	res := dago(t, "pattern", "ab", "--output", out)
	require.Equal(t, util.ExitOK, res.code, res.stderr)
	assert.Equal(t, []string{"ab.io"}, readLines(t, out))
}

func TestConfig_InvalidFile(t *testing.T) {
	dir := sandbox(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dedup:\n  mode: magic\n"), 0644))
	res := dago(t, "--config", path, "brute", "--estimate-only")
	assert.Equal(t, util.ExitUsage, res.code)
}

func TestUnknownFlag(t *testing.T) {
	sandbox(t)
	res := dago(t, "brute", "--no-such-flag")
	assert.Equal(t, util.ExitUsage, res.code)
}

func TestTelemetryFiles(t *testing.T) {
	dir := sandbox(t)
	metrics := filepath.Join(dir, "metrics.prom")
	traces := filepath.Join(dir, "traces.json")

	res := dago(t, "--metrics-file", metrics, "--trace-file", traces,
		"brute", "--charset", "numbers", "--length", "1", "--hyphen-mode", "without")
	require.Equal(t, util.ExitOK, res.code, res.stderr)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dago_generate_runs_total")

	data, err = os.ReadFile(traces)
	require.NoError(t, err)
	assert.Contains(t, string(data), "orchestrator.Drain")
}
