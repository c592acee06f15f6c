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
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/mattn/go-isatty"
)

// =============================================================================
// Terminal Detection
// =============================================================================

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// =============================================================================
// Progress Indicator Interface
// =============================================================================

// ProgressIndicator is implemented by Spinner and ProgressBar.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type ProgressIndicator interface {
	Start()
	Stop()
	IsRunning() bool
}

// ticker runs a render callback on an interval until stopped. Spinner and
// ProgressBar share it.
type ticker struct {
	interval time.Duration
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
}

func (t *ticker) start(render func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return false
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	go func() {
		defer close(t.doneCh)
		tk := time.NewTicker(t.interval)
		defer tk.Stop()
		for {
			select {
			case <-tk.C:
				render()
			case <-t.stopCh:
				return
			}
		}
	}()
	return true
}

// stop halts the loop and waits for it. Returns false if not running.
func (t *ticker) stop() bool {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return false
	}
	t.running = false
	close(t.stopCh)
	t.mu.Unlock()
	<-t.doneCh
	return true
}

func (t *ticker) isRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// =============================================================================
// Spinner
// =============================================================================

// SpinnerConfig configures spinner behavior.
type SpinnerConfig struct {
	// Message is the text displayed next to the spinner.
	Message string

	// Interval is the time between frames. Default: 100ms
	Interval time.Duration

	// Frames are the animation characters. Default: Braille dots
	Frames []string

	// Writer is where output is written. Default: os.Stderr
	Writer io.Writer
}

// DefaultSpinnerConfig returns Braille frames at 100ms on stderr.
func DefaultSpinnerConfig() SpinnerConfig {
	return SpinnerConfig{
		Message:  "Working...",
		Interval: 100 * time.Millisecond,
		Frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		Writer:   os.Stderr,
	}
}

// Spinner shows an animated frame and a message while training or loading
// runs.
//
// # Thread Safety
//
// Safe for concurrent use. Start/Stop can be called from different
// goroutines.
//
// # Limitations
//
//   - Requires an ANSI-capable terminal; callers gate on IsTerminal
type Spinner struct {
	config SpinnerConfig
	frame  int
	loop   ticker
	mu     sync.Mutex
}

var _ ProgressIndicator = (*Spinner)(nil)

// NewSpinner creates a spinner. Zero values in config take defaults.
func NewSpinner(config SpinnerConfig) *Spinner {
	def := DefaultSpinnerConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if len(config.Frames) == 0 {
		config.Frames = def.Frames
	}
	if config.Writer == nil {
		config.Writer = def.Writer
	}
	return &Spinner{config: config, loop: ticker{interval: config.Interval}}
}

// Start begins the animation. Subsequent calls are no-ops.
func (s *Spinner) Start() {
	s.loop.start(s.render)
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	if s.loop.stop() {
		clearLine(s.config.Writer)
	}
}

// StopSuccess halts the animation and prints "✓ message".
func (s *Spinner) StopSuccess(message string) {
	s.finish("✓", message, "Done")
}

// StopFailure halts the animation and prints "✗ message".
func (s *Spinner) StopFailure(message string) {
	s.finish("✗", message, "Failed")
}

func (s *Spinner) finish(icon, message, fallback string) {
	if !s.loop.stop() {
		return
	}
	clearLine(s.config.Writer)
	if message == "" {
		message = fallback
	}
	fmt.Fprintf(s.config.Writer, "\r%s %s\n", icon, message)
}

// SetMessage updates the displayed message.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.config.Message = message
	s.mu.Unlock()
}

// IsRunning reports whether the animation is active.
func (s *Spinner) IsRunning() bool { return s.loop.isRunning() }

func (s *Spinner) render() {
	s.mu.Lock()
	frame := s.config.Frames[s.frame%len(s.config.Frames)]
	message := s.config.Message
	s.frame++
	s.mu.Unlock()
	fmt.Fprintf(s.config.Writer, "\r%s %s", frame, message)
}

func clearLine(w io.Writer) {
	fmt.Fprint(w, "\r\033[K")
}

// SpinWhileContext runs fn under a spinner until it returns or ctx ends.
// Panics in fn are recovered and returned as errors.
func SpinWhileContext(ctx context.Context, w io.Writer, message string, fn func() error) error {
	spinner := NewSpinner(SpinnerConfig{Message: message, Writer: w})
	spinner.Start()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic recovered: %v", r)
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		if err != nil {
			spinner.StopFailure(err.Error())
		} else {
			spinner.StopSuccess("")
		}
		return err
	case <-ctx.Done():
		spinner.StopFailure("Cancelled")
		return ctx.Err()
	}
}

// =============================================================================
// Progress Bar
// =============================================================================

// ProgressSource is read by ProgressBar. orchestrator.Progress implements
// it.
type ProgressSource interface {
	Produced() uint64
	Target() uint64
	Fraction() float64
	ETA(elapsed time.Duration) (time.Duration, bool)
}

// ProgressBar renders a generation run's progress on one terminal line.
//
// # Thread Safety
//
// Safe for concurrent use. The source is only read.
type ProgressBar struct {
	src     ProgressSource
	w       io.Writer
	bar     progress.Model
	started time.Time
	loop    ticker
}

var _ ProgressIndicator = (*ProgressBar)(nil)

// NewProgressBar creates a bar for src writing to w.
func NewProgressBar(src ProgressSource, w io.Writer) *ProgressBar {
	return &ProgressBar{
		src:  src,
		w:    w,
		bar:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		loop: ticker{interval: 200 * time.Millisecond},
	}
}

// Start begins rendering.
func (p *ProgressBar) Start() {
	p.started = time.Now()
	p.loop.start(func() { fmt.Fprint(p.w, "\r"+p.Line()) })
}

// Stop renders the final state and ends the line.
func (p *ProgressBar) Stop() {
	if p.loop.stop() {
		fmt.Fprint(p.w, "\r"+p.Line()+"\n")
	}
}

// IsRunning reports whether the bar is rendering.
func (p *ProgressBar) IsRunning() bool { return p.loop.isRunning() }

// Line returns the current bar text: "<bar> produced/target ETA".
func (p *ProgressBar) Line() string {
	line := fmt.Sprintf("%s %d/%d", p.bar.ViewAs(p.src.Fraction()), p.src.Produced(), p.src.Target())
	if eta, ok := p.src.ETA(time.Since(p.started)); ok {
		line += " eta " + eta.Round(time.Second).String()
	}
	return line
}
