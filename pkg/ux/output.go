// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders human-facing CLI output: run summaries, estimates and
// model statistics. Generated labels never pass through here.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Color palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title   lipgloss.Style
	Key     lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Key:     lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return Styles.Muted.Render(string(i))
	}
}

// Field is one row of a key/value block.
type Field struct {
	Key   string
	Value string
}

// Printer writes styled output to one writer. In plain mode it emits
// unstyled "KEY: value" lines suitable for scripts and non-terminals.
//
// # Thread Safety
//
// Not safe for concurrent use.
type Printer struct {
	w       io.Writer
	plain   bool
	numbers *message.Printer
}

// NewPrinter creates a Printer. Pass plain=true when w is not a terminal.
func NewPrinter(w io.Writer, plain bool) *Printer {
	return &Printer{
		w:       w,
		plain:   plain,
		numbers: message.NewPrinter(language.English),
	}
}

// Plain reports whether styling is disabled.
func (p *Printer) Plain() bool { return p.plain }

// Count formats n with thousands separators ("1,234,567").
func (p *Printer) Count(n uint64) string {
	return p.numbers.Sprintf("%d", n)
}

// Title prints a heading. Plain mode skips it.
func (p *Printer) Title(text string) {
	if p.plain {
		return
	}
	fmt.Fprintln(p.w, Styles.Title.Render(text))
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...any) {
	p.status(IconSuccess, "OK", Styles.Success, format, args...)
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...any) {
	p.status(IconWarning, "WARN", Styles.Warning, format, args...)
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	p.status(IconError, "ERROR", Styles.Error, format, args...)
}

func (p *Printer) status(icon Icon, tag string, style lipgloss.Style, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if p.plain {
		fmt.Fprintf(p.w, "%s: %s\n", tag, text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", icon.Render(), style.Render(text))
}

// Fields prints aligned key/value rows, boxed under title when styled.
func (p *Printer) Fields(title string, fields []Field) {
	if p.plain {
		for _, f := range fields {
			fmt.Fprintf(p.w, "%s: %s\n", f.Key, f.Value)
		}
		return
	}
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Key))
	}
	var b strings.Builder
	b.WriteString(Styles.Title.Render(title))
	for _, f := range fields {
		b.WriteByte('\n')
		b.WriteString(Styles.Key.Render(f.Key + strings.Repeat(" ", width-len(f.Key))))
		b.WriteString("  ")
		b.WriteString(f.Value)
	}
	fmt.Fprintln(p.w, Styles.Box.Render(b.String()))
}
