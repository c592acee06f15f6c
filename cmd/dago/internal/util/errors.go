// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package util

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitRuntime   = 1
	ExitUsage     = 2
	ExitModelLoad = 3
)

// =============================================================================
// Exit Error Type
// =============================================================================

// ExitError carries the process exit code for a failed command.
//
// # Description
//
// Commands return ExitError to pick an exit code other than ExitRuntime.
// main unwraps it with ExitCode. It supports errors.Is/As through Unwrap.
//
// # Example
//
//	if _, err := markov.LoadFile(path, 0); err != nil {
//	    return NewExitError("markov", ExitModelLoad, err)
//	}
//
// # Thread Safety
//
// Immutable after creation.
type ExitError struct {
	// Command is the subcommand that failed.
	Command string

	// Code is the process exit code.
	Code int

	// Wrapped is the underlying error (may be nil).
	Wrapped error
}

// Error returns "command (exit N): cause".
func (e *ExitError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s (exit %d): %v", e.Command, e.Code, e.Wrapped)
	}
	return fmt.Sprintf("%s (exit %d)", e.Command, e.Code)
}

// Unwrap returns the underlying error.
func (e *ExitError) Unwrap() error {
	return e.Wrapped
}

var _ error = (*ExitError)(nil)

// NewExitError creates an ExitError. Returns nil when wrapped is nil.
func NewExitError(cmd string, code int, wrapped error) error {
	if wrapped == nil {
		return nil
	}
	var existing *ExitError
	if errors.As(wrapped, &existing) {
		return wrapped
	}
	return &ExitError{Command: cmd, Code: code, Wrapped: wrapped}
}

// ExitCode maps err to a process exit code: ExitOK for nil, the carried
// code for an ExitError anywhere in the chain, else ExitRuntime.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitRuntime
}
