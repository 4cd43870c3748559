package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/claude-usage-analytics/internal/logger"
	"github.com/j-veylop/claude-usage-analytics/internal/ui/styles"
)

const (
	gaugeLow  = "#ff6b6b"
	gaugeHigh = "#51cf66"
)

// Gauge renders a 0-100 score as a labeled gradient bar.
type Gauge struct {
	progress progress.Model
	inverted bool
}

// NewGauge creates a gauge where higher scores are better.
func NewGauge() Gauge {
	return Gauge{
		progress: progress.New(
			progress.WithScaledGradient(gaugeLow, gaugeHigh),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
	}
}

// NewInvertedGauge creates a gauge where higher scores are worse, such as
// a frustration index.
func NewInvertedGauge() Gauge {
	return Gauge{
		progress: progress.New(
			progress.WithScaledGradient(gaugeHigh, gaugeLow),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
		inverted: true,
	}
}

// View renders the gauge with a label column and a percentage.
func (g Gauge) View(percent float64, label string, width int) string {
	percent = clampPercent(percent)
	g.progress.Width = max(width-24, 10)

	labelStr := styles.ProgressLabelStyle.Width(16).Render(label)
	percentStr := styles.GetScoreStyle(percent, g.inverted).
		Width(6).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.0f%%", percent))

	return lipgloss.JoinHorizontal(lipgloss.Center,
		labelStr,
		g.progress.ViewAs(percent/100),
		" ",
		percentStr,
	)
}

// ViewCompact renders the bar and percentage without a label.
func (g Gauge) ViewCompact(percent float64, width int) string {
	percent = clampPercent(percent)
	g.progress.Width = max(width-8, 5)

	percentStr := styles.GetScoreStyle(percent, g.inverted).Render(fmt.Sprintf("%.0f%%", percent))
	return lipgloss.JoinHorizontal(lipgloss.Center, g.progress.ViewAs(percent/100), " ", percentStr)
}

// RenderGradientBar renders just the bar characters, for inline use in tables.
func RenderGradientBar(percent float64, width int) string {
	if width < 1 {
		return ""
	}
	filled := min(max(int(float64(width)*clampPercent(percent)/100), 0), width)

	var b strings.Builder
	for i := range width {
		if i >= filled {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Subtle).Render("░"))
			continue
		}
		t := float64(i) / float64(max(1, width-1))
		color := interpolateColor(gaugeLow, gaugeHigh, t)
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
	}
	return b.String()
}

func clampPercent(p float64) float64 {
	return min(max(p, 0), 100)
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}
