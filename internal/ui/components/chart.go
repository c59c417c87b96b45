// Package components provides reusable terminal rendering components.
package components

import (
	"slices"

	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/bidmanager-cli/internal/models"
	"github.com/j-veylop/bidmanager-cli/internal/ui/styles"
)

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	// Ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Blue),
	)
}

// DownloadSizes returns the KiB size of each successful report download in
// chronological order. activities are expected newest first.
func DownloadSizes(activities []models.Activity) []float64 {
	var sizes []float64
	for _, a := range slices.Backward(activities) {
		if a.Action != models.ActionDownload || a.Failed() {
			continue
		}
		sizes = append(sizes, float64(a.Bytes)/1024)
	}
	return sizes
}

// RenderDownloadChart plots download sizes. A single point is duplicated so
// the chart still draws a line.
func RenderDownloadChart(activities []models.Activity, width, height int) string {
	sizes := DownloadSizes(activities)
	if len(sizes) == 1 {
		sizes = append(sizes, sizes[0])
	}
	return RenderLineChart(sizes, width, height, "report size (KiB) per download")
}
