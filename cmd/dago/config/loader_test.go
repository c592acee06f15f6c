// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jinterlante1206/dago/pkg/dedup"
)

// isolate points HOME and the working directory at fresh temp dirs so
// neither a real config nor a stray .env leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dago.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// TestCreateDefault verifies default config creation.
func TestCreateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "dago.yaml")
	require.NoError(t, createDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg DagoConfig
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestDefaultConfig_Valid(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestLoad_FirstRunCreatesDefault(t *testing.T) {
	home := isolate(t)

	cfg, path, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".dago", "dago.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	isolate(t)
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "output:\n  tld: com\ngeneration:\n  max_length: 20\n")

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "com", cfg.Output.TLD)
	assert.Equal(t, 20, cfg.Generation.MaxLength)
	assert.Equal(t, 2, cfg.Generation.MinLength)
	assert.Equal(t, DefaultConfig().Dedup, cfg.Dedup)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "output:\n  tld: com\n")
	t.Setenv("DAGO_OUTPUT_TLD", "io")
	t.Setenv("DAGO_DEDUP_MODE", "approx")
	t.Setenv("DAGO_TRAINING_ORDER", "5")
	t.Setenv("DAGO_LOG_LEVEL", "debug")

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "io", cfg.Output.TLD)
	assert.Equal(t, "approx", cfg.Dedup.Mode)
	assert.Equal(t, 5, cfg.Training.Order)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("DAGO_GENERATION_WORKERS=4\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("DAGO_GENERATION_WORKERS") })
	path := writeConfig(t, "{}\n")

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Generation.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"max below min", "generation:\n  min_length: 8\n  max_length: 4\n"},
		{"order too high", "training:\n  order: 11\n"},
		{"unknown dedup mode", "dedup:\n  mode: magic\n"},
		{"fp rate out of range", "dedup:\n  false_positive_rate: 1.5\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad tld", "output:\n  tld: \"-x-\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, _, err := Load(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	isolate(t)
	_, _, err := Load(writeConfig(t, "output: [\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dago.yaml")

	got, err := Init(path, false)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	_, err = Init(path, false)
	assert.Error(t, err, "existing file without force")

	require.NoError(t, os.WriteFile(path, []byte("junk"), 0644))
	_, err = Init(path, true)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "batch_size")
}

func TestDedupPolicy(t *testing.T) {
	c := DefaultConfig().Dedup
	c.Mode = "disk"
	c.DiskDir = "/tmp/x"
	p, err := c.DedupPolicy()
	require.NoError(t, err)
	assert.Equal(t, dedup.ModeDisk, p.Mode)
	assert.Equal(t, "/tmp/x", p.DiskDir)

	c.Mode = "nope"
	_, err = c.DedupPolicy()
	assert.ErrorIs(t, err, dedup.ErrUnknownMode)
}
