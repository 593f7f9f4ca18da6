// Package viz renders terminal views of traced field line sets: profile
// plots, styled run summaries and a live tracing view.
package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
)

// ProfilePlot renders a series of per-point values (deposited power,
// field magnitude along a line) as an ascii chart.
func ProfilePlot(values []float64, caption string) string {
	if len(values) < 2 {
		return fmt.Sprintf("%s: not enough points to plot", caption)
	}
	return asciigraph.Plot(values,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
}
