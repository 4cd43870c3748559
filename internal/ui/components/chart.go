// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/samber/lo"

	"github.com/j-veylop/claude-usage-analytics/internal/ui/styles"
)

// Series colors for the week-over-week chart, matching asciigraph Red and Blue.
var (
	ChartCurrentColor  = lipgloss.Color("#cc785c")
	ChartPreviousColor = lipgloss.Color("#4285f4")
)

var (
	sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	// WeekdayNames are the short labels used by RenderWeeklyPattern, Sunday first.
	WeekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
)

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	return asciigraph.Plot(data,
		asciigraph.Height(max(height, 3)),
		asciigraph.Width(max(width, 20)),
		asciigraph.Caption(caption),
	)
}

// RenderDualLineChart overlays two series, e.g. this week against the week
// before. The shorter series is padded with zeros.
func RenderDualLineChart(current, previous []float64, width, height int, caption string) string {
	if len(current) == 0 && len(previous) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	n := max(len(current), len(previous))
	a := make([]float64, n)
	b := make([]float64, n)
	copy(a, current)
	copy(b, previous)

	return asciigraph.PlotMany([][]float64{a, b},
		asciigraph.Height(max(height, 3)),
		asciigraph.Width(max(width, 20)),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(
			asciigraph.Red,
			asciigraph.Blue,
		),
	)
}

// RenderBarChart creates a simple horizontal bar chart. format renders the
// trailing value of each bar; nil means one decimal.
func RenderBarChart(values []float64, labels []string, width int, format func(float64) string) string {
	if len(values) == 0 {
		return ""
	}
	if format == nil {
		format = func(v float64) string { return fmt.Sprintf("%.1f", v) }
	}

	maxVal := scaleMax(values)
	labelWidth := lipgloss.Width(lo.MaxBy(labels, func(a, b string) bool { return len(a) > len(b) }))
	barWidth := max(width-labelWidth-12, 10)

	lines := make([]string, 0, len(values))
	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}

		barLen := max(int(v/maxVal*float64(barWidth)), 0)
		lines = append(lines, fmt.Sprintf("%*s │%s %s",
			labelWidth, label, strings.Repeat("█", barLen), format(v)))
	}

	return strings.Join(lines, "\n")
}

// HeatmapBlocks are Unicode block characters for heatmaps (low to high intensity).
var HeatmapBlocks = []rune{'░', '▒', '▓', '█'}

// RenderHourlyHeatmap creates a 24-hour activity heatmap from per-hour counts.
func RenderHourlyHeatmap(counts [24]int) string {
	values := lo.Map(counts[:], func(c int, _ int) float64 { return float64(c) })
	maxVal := scaleMax(values)

	var b strings.Builder
	b.WriteString("00 ")
	for i, v := range values {
		intensity := level(v, maxVal, len(HeatmapBlocks))

		var style lipgloss.Style
		switch intensity {
		case 0:
			style = lipgloss.NewStyle().Foreground(styles.Subtle)
		case 1:
			style = lipgloss.NewStyle().Foreground(styles.Success)
		case 2:
			style = lipgloss.NewStyle().Foreground(styles.Warning)
		default:
			style = lipgloss.NewStyle().Foreground(styles.Error)
		}
		b.WriteString(style.Render(string(HeatmapBlocks[intensity])))

		// Gap at noon
		if i == 11 {
			b.WriteString(" ")
		}
	}
	b.WriteString(" 23")
	return b.String()
}

// RenderWeeklyPattern renders one spark per weekday, Sunday first.
func RenderWeeklyPattern(patterns []float64) string {
	padded := make([]float64, 7)
	copy(padded, patterns)
	maxVal := scaleMax(padded)

	parts := make([]string, 7)
	for i, v := range padded {
		parts[i] = WeekdayNames[i] + " " + string(sparkChars[level(v, maxVal, len(sparkChars))])
	}
	return strings.Join(parts, " ")
}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	maxVal := scaleMax(values)

	var b strings.Builder
	for _, v := range sample(values, width) {
		b.WriteRune(sparkChars[level(v, maxVal, len(sparkChars))])
	}
	return b.String()
}

// RenderColoredSparkline colors each spark by its share of the peak, so
// the most expensive days stand out.
func RenderColoredSparkline(values []float64, width int) string {
	maxVal := scaleMax(values)

	var b strings.Builder
	for _, v := range sample(values, width) {
		style := styles.GetScoreStyle(v/maxVal*100, true)
		b.WriteString(style.Render(string(sparkChars[level(v, maxVal, len(sparkChars))])))
	}
	return b.String()
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	parts := lo.Map(items, func(item LegendItem, _ int) string {
		return lipgloss.NewStyle().Foreground(item.Color).Render("■") + " " + item.Label
	})
	return strings.Join(parts, "  ")
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}

// scaleMax returns the largest value, or 1 when nothing is positive.
func scaleMax(values []float64) float64 {
	if m := lo.Max(values); m > 0 {
		return m
	}
	return 1
}

func level(v, maxVal float64, steps int) int {
	return min(max(int(v/maxVal*float64(steps-1)), 0), steps-1)
}

// sample picks at most width evenly spaced values.
func sample(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	step := max(float64(len(values))/float64(width), 1)

	var out []float64
	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		out = append(out, values[int(float64(i)*step)])
	}
	return out
}
