// Package ux renders the brewlog CLI's terminal output: status lines,
// tables and prompts. Styling follows the writer's own color profile, so
// output piped to a file or a test buffer carries no escape codes.
package ux

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Palette, roast browns to crema.
var (
	ColorEspresso = lipgloss.Color("#4B2E20") // borders
	ColorRoast    = lipgloss.Color("#8B5A3C") // headers, prompts
	ColorCrema    = lipgloss.Color("#D9A86C") // highlights
	ColorSuccess  = lipgloss.Color("#6BBF59")
	ColorWarning  = lipgloss.Color("#F4D03F")
	ColorError    = lipgloss.Color("#E74C3C")
	ColorMuted    = lipgloss.Color("#7A6A60")
)

// Status icons.
const (
	IconSuccess = "✓"
	IconWarning = "⚠"
	IconError   = "✗"
	IconInfo    = "│"
)

// Printer writes styled output to one writer.
type Printer struct {
	w io.Writer

	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	muted   lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	border  lipgloss.Style
	prompt  lipgloss.Style
}

// New returns a Printer whose styles are bound to w's color profile.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		success: r.NewStyle().Foreground(ColorSuccess),
		warning: r.NewStyle().Foreground(ColorWarning),
		err:     r.NewStyle().Foreground(ColorError),
		muted:   r.NewStyle().Foreground(ColorMuted),
		header:  r.NewStyle().Bold(true).Foreground(ColorRoast).Padding(0, 1),
		cell:    r.NewStyle().Padding(0, 1),
		border:  r.NewStyle().Foreground(ColorEspresso),
		prompt:  r.NewStyle().Bold(true).Foreground(ColorCrema),
	}
}

// Success prints a line prefixed with a check mark.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.success.Render(IconSuccess), p.success.Render(fmt.Sprintf(format, args...)))
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.warning.Render(IconWarning), p.warning.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.err.Render(IconError), p.err.Render(fmt.Sprintf(format, args...)))
}

// Info prints a plain line behind a muted gutter.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.muted.Render(IconInfo), fmt.Sprintf(format, args...))
}

// Prompt prints a label without a newline, for reading an answer after it.
func (p *Printer) Prompt(label string) {
	fmt.Fprint(p.w, p.prompt.Render(label)+" ")
}

// Table prints rows under headers in a rounded box. An empty table prints
// a muted "no entries" line instead.
func (p *Printer) Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(p.w, p.muted.Render("no entries"))
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}
			return p.cell
		})
	fmt.Fprintln(p.w, t.String())
}
