// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dedup

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

// DiskConfig configures the Badger-backed deduplicator.
type DiskConfig struct {
	// Dir is the parent directory for the scratch database. A fresh
	// subdirectory is created inside it and removed on Close. Empty means
	// the OS temp dir. Ignored when InMemory is true.
	Dir string

	// InMemory keeps the database in memory. Useful for testing.
	InMemory bool

	// Shards is the number of lock partitions.
	Shards int

	// Logger receives Badger's internal logs. If nil, they are disabled.
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...), slog.String("component", "dedup"))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...), slog.String("component", "dedup"))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), slog.String("component", "dedup"))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), slog.String("component", "dedup"))
}

// Disk is exact membership stored in a scratch Badger database.
//
// # Description
//
// Each label is a key with an empty value. Check-then-mark runs in one
// read-write transaction under the label's shard lock, so two workers can
// never commit the same key concurrently.
//
// Storage failures do not abort generation: the first error is kept and
// returned by Err and Close, and Seen fails closed by reporting true, so a
// broken database can only drop labels, never emit duplicates.
//
// # Thread Safety
//
// Safe for concurrent use.
type Disk struct {
	db     *badger.DB
	dir    string
	shards []sync.Mutex
	n      atomic.Uint64

	errMu sync.Mutex
	err   error
}

// NewDisk opens a scratch database.
func NewDisk(cfg DiskConfig) (*Disk, error) {
	if cfg.Shards < 1 {
		cfg.Shards = DefaultShards
	}

	var (
		opts badger.Options
		dir  string
	)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir != "" {
			if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
				return nil, fmt.Errorf("create dedup directory %s: %w", cfg.Dir, err)
			}
		}
		d, err := os.MkdirTemp(cfg.Dir, "dago-dedup-*")
		if err != nil {
			return nil, fmt.Errorf("create dedup scratch directory: %w", err)
		}
		dir = d
		opts = badger.DefaultOptions(dir)
	}

	opts = opts.WithSyncWrites(false).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		if dir != "" {
			os.RemoveAll(dir)
		}
		return nil, fmt.Errorf("open dedup database: %w", err)
	}
	return &Disk{db: db, dir: dir, shards: make([]sync.Mutex, cfg.Shards)}, nil
}

// Seen implements Deduplicator.
func (d *Disk) Seen(l string) bool {
	mu := &d.shards[shardOf(l, len(d.shards))]
	mu.Lock()
	defer mu.Unlock()

	key := []byte(l)
	seen := false
	err := d.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			seen = true
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			return txn.Set(key, nil)
		default:
			return err
		}
	})
	if err != nil {
		d.errMu.Lock()
		if d.err == nil {
			d.err = fmt.Errorf("dedup database: %w", err)
		}
		d.errMu.Unlock()
		return true
	}
	if !seen {
		d.n.Add(1)
	}
	return seen
}

// Len implements Deduplicator.
func (d *Disk) Len() uint64 { return d.n.Load() }

// Mode implements Deduplicator.
func (d *Disk) Mode() Mode { return ModeDisk }

// Dir returns the scratch directory, or "" when in memory.
func (d *Disk) Dir() string { return d.dir }

// Err returns the first storage error seen by Seen, if any.
func (d *Disk) Err() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.err
}

// Close closes the database and removes the scratch directory.
func (d *Disk) Close() error {
	errs := []error{d.Err()}
	if err := d.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close dedup database: %w", err))
	}
	if d.dir != "" {
		if err := os.RemoveAll(d.dir); err != nil {
			errs = append(errs, fmt.Errorf("remove dedup directory: %w", err))
		}
	}
	return errors.Join(errs...)
}
