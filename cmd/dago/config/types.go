// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the dago CLI configuration: YAML file, then .env,
// then DAGO_* environment variables, then validation. Command-line flags
// override the result in package main.
package config

import (
	"github.com/jinterlante1206/dago/pkg/dedup"
	"github.com/jinterlante1206/dago/pkg/orchestrator"
	"github.com/jinterlante1206/dago/pkg/sink"
)

type DagoConfig struct {
	// Output: where and how generated labels are written
	Output OutputConfig `yaml:"output" envPrefix:"OUTPUT_"`

	// Generation: defaults for the markov and random commands
	Generation GenerationConfig `yaml:"generation" envPrefix:"GENERATION_"`

	// Dedup: uniqueness backend policy
	Dedup DedupConfig `yaml:"dedup" envPrefix:"DEDUP_"`

	// Training: model order and default artifact path
	Training TrainingConfig `yaml:"training" envPrefix:"TRAINING_"`

	// Logging: level, format and optional log directory
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOG_"`
}

type OutputConfig struct {
	Dir       string `yaml:"dir" env:"DIR" validate:"required"`                  // e.g. assets/output
	TLD       string `yaml:"tld" env:"TLD" validate:"omitempty,hostname_rfc1123"` // e.g. lt
	BatchSize int    `yaml:"batch_size" env:"BATCH_SIZE" validate:"gte=1"`
}

type GenerationConfig struct {
	MinLength     int     `yaml:"min_length" env:"MIN_LENGTH" validate:"gte=1,lte=63"`
	MaxLength     int     `yaml:"max_length" env:"MAX_LENGTH" validate:"gte=1,lte=63,gtefield=MinLength"`
	AttemptFactor uint64  `yaml:"attempt_factor" env:"ATTEMPT_FACTOR" validate:"gte=1"`
	Workers       int     `yaml:"workers" env:"WORKERS" validate:"gte=1,lte=256"`
	Temperature   float64 `yaml:"temperature" env:"TEMPERATURE" validate:"gt=0"`
}

type DedupConfig struct {
	Mode              string  `yaml:"mode" env:"MODE" validate:"oneof=auto exact approx disk"`
	ExactCeiling      uint64  `yaml:"exact_ceiling" env:"EXACT_CEILING" validate:"gte=1"`
	FalsePositiveRate float64 `yaml:"false_positive_rate" env:"FP_RATE" validate:"gt=0,lt=1"`
	Shards            int     `yaml:"shards" env:"SHARDS" validate:"gte=1,lte=4096"`
	DiskDir           string  `yaml:"disk_dir,omitempty" env:"DISK_DIR"` // empty means the system temp dir
}

type TrainingConfig struct {
	Order     int    `yaml:"order" env:"ORDER" validate:"gte=1,lte=10"`
	ModelPath string `yaml:"model_path" env:"MODEL_PATH" validate:"required"`
}

type LoggingConfig struct {
	Level string `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json" env:"JSON"`
	Dir   string `yaml:"dir,omitempty" env:"DIR"` // empty disables file logging
}

// DedupPolicy converts the section into a dedup.Policy.
func (c DedupConfig) DedupPolicy() (dedup.Policy, error) {
	mode, err := dedup.ParseMode(c.Mode)
	if err != nil {
		return dedup.Policy{}, err
	}
	return dedup.Policy{
		Mode:              mode,
		ExactCeiling:      c.ExactCeiling,
		FalsePositiveRate: c.FalsePositiveRate,
		Shards:            c.Shards,
		DiskDir:           c.DiskDir,
	}, nil
}

func DefaultConfig() DagoConfig {
	return DagoConfig{
		Output: OutputConfig{
			Dir:       sink.DefaultDir,
			TLD:       "lt",
			BatchSize: sink.DefaultBatchSize,
		},
		Generation: GenerationConfig{
			MinLength:     2,
			MaxLength:     12,
			AttemptFactor: orchestrator.DefaultAttemptFactor,
			Workers:       1,
			Temperature:   1,
		},
		Dedup: DedupConfig{
			Mode:              string(dedup.ModeAuto),
			ExactCeiling:      dedup.DefaultExactCeiling,
			FalsePositiveRate: dedup.DefaultFalsePositiveRate,
			Shards:            dedup.DefaultShards,
		},
		Training: TrainingConfig{
			Order:     3,
			ModelPath: "assets/models/dago.model",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
