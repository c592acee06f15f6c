// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sink commits candidates to durable storage in bounded batches.
package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jinterlante1206/dago/pkg/candidate"
	"github.com/jinterlante1206/dago/pkg/label"
)

// DefaultBatchSize is the number of lines buffered before a write.
const DefaultBatchSize = 10_000

// DefaultDir is where generated lists land when no output path is given.
const DefaultDir = "assets/output"

// Sink accepts candidates in emission order.
type Sink interface {
	Write(c candidate.Candidate) error
	Flush() error
	Count() uint64
}

// Options configures a BatchWriter.
type Options struct {
	// TLD is appended as ".tld" to every label. Empty writes bare labels.
	TLD string

	// BatchSize is the number of lines per write. <= 0 means
	// DefaultBatchSize.
	BatchSize int

	// Scores appends "\t<score>" with six decimals to scored candidates.
	Scores bool
}

// BatchWriter buffers up to BatchSize lines and writes each batch with a
// single call. Count only includes committed lines.
//
// # Thread Safety
//
// Not safe for concurrent use. Feed it from one goroutine.
type BatchWriter struct {
	w       io.Writer
	closer  io.Closer
	opts    Options
	buf     []byte
	pending int
	count   uint64
	closed  bool
}

// NewBatchWriter wraps w. Close does not close w.
func NewBatchWriter(w io.Writer, opts Options) *BatchWriter {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	opts.TLD = strings.TrimPrefix(opts.TLD, ".")
	return &BatchWriter{w: w, opts: opts}
}

// Create creates path, including parent directories, and returns a
// BatchWriter that closes the file on Close.
func Create(path string, opts Options) (*BatchWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	bw := NewBatchWriter(f, opts)
	bw.closer = f
	return bw, nil
}

// Write buffers one candidate and flushes when the batch is full.
func (b *BatchWriter) Write(c candidate.Candidate) error {
	if b.closed {
		return errors.New("sink: write after close")
	}
	b.buf = append(b.buf, label.WithTLD(c.Label, b.opts.TLD)...)
	if b.opts.Scores && c.Scored {
		b.buf = append(b.buf, '\t')
		b.buf = strconv.AppendFloat(b.buf, c.Score, 'f', 6, 64)
	}
	b.buf = append(b.buf, '\n')
	b.pending++
	if b.pending >= b.opts.BatchSize {
		return b.Flush()
	}
	return nil
}

// Flush writes the buffered partial batch.
func (b *BatchWriter) Flush() error {
	if b.pending == 0 {
		return nil
	}
	if _, err := b.w.Write(b.buf); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	b.count += uint64(b.pending)
	b.buf = b.buf[:0]
	b.pending = 0
	return nil
}

// Count returns the number of lines written so far.
func (b *BatchWriter) Count() uint64 { return b.count }

// Close flushes the remainder and closes the file opened by Create.
func (b *BatchWriter) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	err := b.Flush()
	if b.closer != nil {
		if cerr := b.closer.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close output file: %w", cerr))
		}
	}
	return err
}

// DefaultPath builds "<DefaultDir>/<generator>_<part>_<part>....txt".
// Empty parts are skipped.
func DefaultPath(generator string, parts ...string) string {
	name := []string{generator}
	for _, p := range parts {
		if p != "" {
			name = append(name, p)
		}
	}
	return filepath.Join(DefaultDir, strings.Join(name, "_")+".txt")
}
