package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/fieldtrace/internal/fltrace"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666688"))
)

// Summary renders a styled box summarizing one traced set.
func Summary(model, scheme string, numSeeds int, set *fltrace.FieldLineSet) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("field line trace: %s (%s)", model, scheme)))
	b.WriteString("\n\n")

	row := func(label string, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-14s", label)))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	row("seeds", fmt.Sprintf("%d", numSeeds))
	row("lines", fmt.Sprintf("%d", set.NumLines()))
	row("void", fmt.Sprintf("%d", set.NumVoid))
	row("points", fmt.Sprintf("%d", set.NumPoints()))
	row("total length", fmt.Sprintf("%.4f", set.TotalLength()))

	if len(set.Causes) > 0 {
		b.WriteString("\n")
		b.WriteString(subtleStyle.Render("stopping causes"))
		b.WriteString("\n")
		names := make([]string, 0, len(set.Causes))
		byName := make(map[string]int, len(set.Causes))
		for cause, n := range set.Causes {
			names = append(names, cause.String())
			byName[cause.String()] = n
		}
		sort.Strings(names)
		for _, name := range names {
			row(name, fmt.Sprintf("%d", byName[name]))
		}
	}

	return panelStyle.Render(b.String())
}
