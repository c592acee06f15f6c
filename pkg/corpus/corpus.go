// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package corpus reads raw training lines from plain, gzip or zstd files.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// maxLineBytes bounds a single line. Longer lines fail the scan.
const maxLineBytes = 1 << 20

// Lines yields the non-blank lines of r that do not start with '#',
// trimmed of surrounding whitespace. A read error is yielded once as the
// final element.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if !yield(line, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield("", fmt.Errorf("read corpus: %w", err))
		}
	}
}

// Open opens path for reading, decompressing by extension: ".gz" with
// gzip and ".zst" or ".zstd" with zstd. Stdin reads standard input and is
// never closed by the returned closer.
func Open(path string) (io.ReadCloser, error) {
	if path == Stdin {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip corpus %s: %w", path, err)
		}
		return &stackedCloser{Reader: zr, closers: []func() error{zr.Close, f.Close}}, nil
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd corpus %s: %w", path, err)
		}
		return &stackedCloser{Reader: zr, closers: []func() error{
			func() error { zr.Close(); return nil },
			f.Close,
		}}, nil
	default:
		return f, nil
	}
}

// stackedCloser closes a decompressor and then its file.
type stackedCloser struct {
	io.Reader
	closers []func() error
}

func (s *stackedCloser) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Files yields the lines of every path in order, opening each lazily.
// Open and read errors are yielded with the path for context.
func Files(paths ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range paths {
			rc, err := Open(p)
			if err != nil {
				if !yield("", err) {
					return
				}
				continue
			}
			stop := false
			for line, err := range Lines(rc) {
				if err != nil {
					err = fmt.Errorf("%s: %w", p, err)
				}
				if !yield(line, err) {
					stop = true
					break
				}
			}
			rc.Close()
			if stop {
				return
			}
		}
	}
}
