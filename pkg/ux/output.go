// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette: Avalanche red on dark slate.
var (
	ColorPrimary = lipgloss.Color("#E84142")
	ColorAccent  = lipgloss.Color("#7C6CF2")
	ColorSlate   = lipgloss.Color("#5B6472")
	ColorBorder  = lipgloss.Color("#3A4150")

	ColorSuccess = lipgloss.Color("#2ECC71")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = ColorSlate
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Badge     lipgloss.Style
	NFTBadge  lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
	ErrorBox   lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorAccent).Bold(true),
	Badge:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(ColorAccent).Padding(0, 1),
	NFTBadge:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(ColorPrimary).Padding(0, 1),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// Icon provides status icons.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
	IconChain   Icon = "⛓"
)

// Render returns the icon with appropriate styling.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// Title prints a styled title. Nothing in machine mode.
func Title(text string) {
	if Level() == PersonalityMachine {
		return
	}
	out, _ := writers()
	fmt.Fprintln(out, Styles.Title.Render(text))
}

// Success prints a success message with a checkmark.
func Success(text string) {
	out, _ := writers()
	switch Level() {
	case PersonalityMachine:
		fmt.Fprintf(out, "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(out, "%s %s\n", IconSuccess, text)
	default:
		fmt.Fprintf(out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning message.
func Warning(text string) {
	out, errOut := writers()
	switch Level() {
	case PersonalityMachine:
		fmt.Fprintf(errOut, "WARN: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(out, "%s %s\n", IconWarning, text)
	default:
		fmt.Fprintf(out, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error message.
func Error(text string) {
	out, errOut := writers()
	switch Level() {
	case PersonalityMachine:
		fmt.Fprintf(errOut, "ERROR: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(out, "%s %s\n", IconError, text)
	default:
		fmt.Fprintf(out, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints an informational message.
func Info(text string) {
	out, _ := writers()
	if Level() == PersonalityMachine {
		fmt.Fprintln(out, text)
		return
	}
	fmt.Fprintf(out, "%s %s\n", Styles.Muted.Render("│"), text)
}

// Muted prints secondary text. Nothing in machine mode.
func Muted(text string) {
	if Level() == PersonalityMachine {
		return
	}
	out, _ := writers()
	fmt.Fprintln(out, Styles.Muted.Render(text))
}

// Box prints content in a rounded box under title.
func Box(title, content string) {
	out, _ := writers()
	if Level() == PersonalityMachine {
		fmt.Fprintf(out, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(out, Styles.Box.Width(64).Render(Styles.Title.Render(title)+"\n"+content))
}

// WarningBox prints content in a warning-styled box.
func WarningBox(title, content string) {
	out, errOut := writers()
	if Level() == PersonalityMachine {
		fmt.Fprintf(errOut, "WARN %s: %s\n", title, content)
		return
	}
	titleLine := Styles.Warning.Bold(true).Render(title)
	fmt.Fprintln(out, Styles.WarningBox.Width(64).Render(titleLine+"\n"+content))
}

// KeyValue prints aligned key/value rows. Machine mode prints key=value.
func KeyValue(rows [][2]string) {
	out, _ := writers()
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	for _, r := range rows {
		if Level() == PersonalityMachine {
			fmt.Fprintf(out, "%s=%s\n", strings.ToLower(strings.ReplaceAll(r[0], " ", "_")), r[1])
			continue
		}
		key := fmt.Sprintf("%-*s", width, r[0])
		fmt.Fprintf(out, "%s  %s\n", Styles.Muted.Render(key), r[1])
	}
}

// JSON prints v as indented JSON on standard output.
func JSON(v any) error {
	out, _ := writers()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ProgressBar renders a simple progress bar for a ratio in [0,1].
func ProgressBar(ratio float64, width int) string {
	ratio = min(max(ratio, 0), 1)
	if Level() == PersonalityMachine {
		return fmt.Sprintf("%.0f%%", ratio*100)
	}
	filled := int(ratio * float64(width))
	bar := Styles.Success.Render(strings.Repeat("█", filled)) +
		Styles.Muted.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, ratio*100)
}
