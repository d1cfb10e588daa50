package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorBorder = lipgloss.Color("#282726")
	ColorText   = lipgloss.Color("#FFFCF0")
	ColorAccent = lipgloss.Color("#3AA99F")
	ColorRed    = lipgloss.Color("#D14D41")
	ColorMuted  = lipgloss.Color("#6F6E69")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorText).Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(ColorText)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorRed)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
)

// Table is a plain text table. Every column but the first is right-aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title in a rounded box.
func RenderTitle(title string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)
	return box.Render(titleStyle.Render(title))
}

// RenderWarning renders a highlighted one-line message.
func RenderWarning(msg string) string {
	return warnStyle.Render(msg)
}

// RenderMuted renders secondary text.
func RenderMuted(msg string) string {
	return mutedStyle.Render(msg)
}

// RenderTable renders headers and rows with aligned columns.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > numCols {
			numCols = len(row)
		}
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	if len(t.Headers) > 0 {
		b.WriteString(" ")
		for i := 0; i < numCols; i++ {
			h := ""
			if i < len(t.Headers) {
				h = t.Headers[i]
			}
			b.WriteString(headerStyle.Render(pad(h, widths[i], i > 0)))
		}
		b.WriteString("\n ")
		for i := 0; i < numCols; i++ {
			b.WriteString(mutedStyle.Render(" " + strings.Repeat("─", widths[i]) + " "))
		}
		b.WriteString("\n")
	}

	for _, row := range t.Rows {
		b.WriteString(" ")
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(valueStyle.Render(pad(cell, widths[i], i > 0)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func pad(s string, width int, right bool) string {
	gap := width - lipgloss.Width(s)
	if gap < 0 {
		gap = 0
	}
	if right {
		return fmt.Sprintf(" %s%s ", strings.Repeat(" ", gap), s)
	}
	return fmt.Sprintf(" %s%s ", s, strings.Repeat(" ", gap))
}
