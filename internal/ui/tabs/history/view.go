package history

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/j-veylop/claude-usage-analytics/internal/models"
	"github.com/j-veylop/claude-usage-analytics/internal/ui/components"
	"github.com/j-veylop/claude-usage-analytics/internal/ui/styles"
)

// View renders the history tab.
func (m *Model) View() string {
	report := m.state.Report()
	if report == nil || len(report.DailyHistory) == 0 {
		return m.renderEmpty()
	}

	days := m.window(report)
	if len(days) == 0 {
		return m.renderEmpty()
	}

	sections := []string{
		m.renderHeader(days),
		m.renderDailyChart(days),
		m.renderWeekComparison(report),
		m.renderWeeklyPattern(days),
		m.renderTable(days),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderEmpty() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("History"),
		"",
		styles.HelpStyle.Render("No daily history available yet."),
		styles.HelpStyle.Render("Days appear once Claude Code has written its stats cache."),
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderHeader(days []models.DailyEntry) string {
	title := styles.TitleStyle.Render("History")

	rangeStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		title, "  ",
		rangeStyle.Render("[t] "+m.timeRange.String()), " ",
		rangeStyle.Render("[c] "+m.metric.String()),
	)

	subtitle := styles.HelpStyle.Render(fmt.Sprintf("%s → %s (%d days)",
		days[0].Date, days[len(days)-1].Date, len(days)))

	return lipgloss.JoinVertical(lipgloss.Left, header, subtitle, "")
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 40)
}

func (m *Model) card(icon, title string, body ...string) string {
	head := lipgloss.NewStyle().Foreground(styles.Primary).Render(icon) + " " + styles.CardTitleStyle.Render(title)
	rows := append([]string{head, ""}, body...)
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderDailyChart(days []models.DailyEntry) string {
	chart := components.RenderLineChart(m.values(days), m.cardWidth()-14, 8,
		fmt.Sprintf("Daily %s, %s", strings.ToLower(m.metric.String()), m.timeRange))
	return m.card("📈", "Daily "+m.metric.String(), indent(chart))
}

func (m *Model) renderWeekComparison(report *models.UsageReport) string {
	end := endDate(report)
	current := m.values(dense(report.DailyHistory, end.AddDate(0, 0, -6), end))
	previous := m.values(dense(report.DailyHistory, end.AddDate(0, 0, -13), end.AddDate(0, 0, -7)))

	chart := components.RenderDualLineChart(current, previous, m.cardWidth()-14, 6,
		"Last 7 days (red) vs the 7 before (blue)")
	legend := components.RenderLegend([]components.LegendItem{
		{Label: "This week", Color: components.ChartCurrentColor},
		{Label: "Previous week", Color: components.ChartPreviousColor},
	})

	style, arrow := styles.GetTrendStyle(string(report.FunStats.Trend))
	summary := fmt.Sprintf("%s %s  %s %+.0f%% cost week over week",
		m.format(lo.Sum(current)), styles.HelpStyle.Render("vs "+m.format(lo.Sum(previous))),
		style.Render(arrow), report.FunStats.TrendPercent)

	return m.card("⇄", "Week over Week", indent(chart), "", "  "+legend, "  "+summary)
}

func (m *Model) renderWeeklyPattern(days []models.DailyEntry) string {
	var totals [7]float64
	for _, d := range days {
		totals[weekday(d.Date)] += m.value(d)
	}

	peak := lo.MaxBy(lo.Range(7), func(a, b int) bool { return totals[a] > totals[b] })
	peakLine := fmt.Sprintf("Busiest weekday: %s (%s)",
		lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Render(components.WeekdayNames[peak]),
		m.format(totals[peak]))

	return m.card("📅", "Weekday Pattern",
		"  "+components.RenderWeeklyPattern(totals[:]),
		"",
		indent(components.RenderBarChart(totals[:], components.WeekdayNames, m.cardWidth()-8, m.format)),
		"",
		"  "+peakLine,
	)
}

func (m *Model) renderTable(days []models.DailyEntry) string {
	header := styles.TableHeaderStyle.Render(
		fmt.Sprintf("%-10s %-3s %10s %8s %9s %11s", "Date", "Day", "Messages", "Sessions", "Tokens", "Cost"))

	rows := []string{header}
	for _, d := range slices.Backward(days) {
		if d.Messages == 0 && d.Cost == 0 && d.Tokens == 0 {
			continue
		}
		cost := components.Cost(d.Cost)
		if d.Estimated {
			cost += "*"
		} else {
			cost += " "
		}
		rows = append(rows, fmt.Sprintf("%-10s %-3s %10s %8s %9s %11s",
			d.Date, components.WeekdayNames[weekday(d.Date)],
			components.Count(d.Messages), components.Count(d.Sessions),
			components.Tokens(d.Tokens), cost))
	}
	rows = append(rows, "", styles.HelpStyle.Render("* cost estimated from the blended rate"))

	return m.card("▤", "Daily Breakdown", rows...)
}

// value projects a day onto the selected metric.
func (m *Model) value(d models.DailyEntry) float64 {
	switch m.metric {
	case metricMessages:
		return float64(d.Messages)
	case metricTokens:
		return float64(d.Tokens)
	default:
		return d.Cost
	}
}

func (m *Model) values(days []models.DailyEntry) []float64 {
	return lo.Map(days, func(d models.DailyEntry, _ int) float64 { return m.value(d) })
}

func (m *Model) format(v float64) string {
	switch m.metric {
	case metricMessages:
		return components.Count(int64(v))
	case metricTokens:
		return components.Tokens(int64(v))
	default:
		return components.Cost(v)
	}
}

// window returns the selected range as one entry per calendar day, with
// zero entries for days without usage.
func (m *Model) window(report *models.UsageReport) []models.DailyEntry {
	end := endDate(report)
	start := parseDate(report.DailyHistory[0].Date)
	if n := m.timeRange.days(); n > 0 {
		start = end.AddDate(0, 0, -(n - 1))
	}
	return dense(report.DailyHistory, start, end)
}

// endDate is today when the report has it, else the newest history day.
func endDate(report *models.UsageReport) time.Time {
	last := parseDate(report.DailyHistory[len(report.DailyHistory)-1].Date)
	if report.Today.Date != "" {
		if today := parseDate(report.Today.Date); today.After(last) {
			return today
		}
	}
	return last
}

func dense(history []models.DailyEntry, start, end time.Time) []models.DailyEntry {
	if start.IsZero() || end.IsZero() {
		return nil
	}
	byDate := lo.KeyBy(history, func(d models.DailyEntry) string { return d.Date })

	var out []models.DailyEntry
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(models.DateLayout)
		entry, ok := byDate[date]
		if !ok {
			entry = models.DailyEntry{Date: date}
		}
		out = append(out, entry)
	}
	return out
}

func parseDate(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func weekday(date string) int {
	return int(parseDate(date).Weekday())
}

func indent(block string) string {
	lines := strings.Split(block, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
