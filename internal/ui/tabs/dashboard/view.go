package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/j-veylop/claude-usage-analytics/internal/models"
	"github.com/j-veylop/claude-usage-analytics/internal/ui/components"
	"github.com/j-veylop/claude-usage-analytics/internal/ui/styles"
)

const (
	sideBySideWidth = 110
	sparkDays       = 30
)

// View renders the dashboard component.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	}

	report := m.state.Report()
	if report == nil {
		report = models.DefaultReport()
	}

	sections := []string{
		m.renderTitle(report),
		m.renderPeriodCards(report),
		m.renderTrendCard(report),
		m.renderModelsCard(report),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle(report *models.UsageReport) string {
	title := styles.TitleStyle.Render("Claude Usage")

	subtitle := styles.HelpStyle.Render("Updated " + report.GeneratedAt.Format("Jan 2 15:04:05"))
	if report.LiveApplied {
		subtitle += styles.SuccessTextStyle.Render("  ● live")
	}

	status, err := m.state.Status()
	switch status {
	case models.StatusDegraded:
		subtitle += "\n" + styles.WarningTextStyle.Render(fmt.Sprintf("⚠ Showing defaults: %v", err))
	case models.StatusEmpty:
		subtitle += "\n" + styles.InfoTextStyle.Render("No usage recorded yet. Start a Claude session and press r.")
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderPeriodCards(report *models.UsageReport) string {
	today := report.Today
	todayCost := styles.CostStyle.Render(components.Cost(today.Cost))
	if today.Estimated {
		todayCost += " " + styles.EstimatedStyle.Render("(est.)")
	}

	last := report.Last14Days
	all := report.AllTime

	cards := []string{
		m.renderCard("Today", [][2]string{
			{"Cost", todayCost},
			{"Messages", components.Count(today.Messages)},
			{"Sessions", components.Count(today.Sessions)},
			{"Tokens", components.Tokens(today.Tokens)},
		}),
		m.renderCard("Last 14 days", [][2]string{
			{"Cost", styles.CostStyle.Render(components.Cost(last.Cost))},
			{"Avg / day", components.Cost(last.AvgDailyCost)},
			{"Messages", components.Count(last.Messages)},
			{"Active days", fmt.Sprintf("%d / 14", last.ActiveDays)},
		}),
		m.renderCard("All time", [][2]string{
			{"Cost", styles.CostStyle.Render(components.Cost(all.Cost))},
			{"Messages", components.Count(all.Messages)},
			{"Sessions", components.Count(all.Sessions)},
			{"Since", lo.Ternary(all.FirstSessionDate == "", "-", all.FirstSessionDate)},
		}),
	}

	if m.width >= sideBySideWidth {
		return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func (m *Model) cardWidth() int {
	if m.width >= sideBySideWidth {
		return max((m.width-12)/3, 30)
	}
	return max(m.width-6, 40)
}

func (m *Model) renderCard(title string, rows [][2]string) string {
	labelStyle := lipgloss.NewStyle().Width(12).Foreground(styles.TextMuted)

	lines := []string{styles.CardTitleStyle.Render(title)}
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(r[0])+" "+r[1])
	}

	return styles.CardStyle.
		Width(m.cardWidth()).
		MarginRight(1).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderTrendCard(report *models.UsageReport) string {
	cardWidth := max(m.width-6, 40)
	fun := report.FunStats

	style, arrow := styles.GetTrendStyle(string(fun.Trend))
	trend := style.Render(fmt.Sprintf("%s %s %+.0f%%", arrow, fun.Trend, fun.TrendPercent))

	history := report.DailyHistory
	if len(history) > sparkDays {
		history = history[len(history)-sparkDays:]
	}
	costs := lo.Map(history, func(d models.DailyEntry, _ int) float64 { return d.Cost })

	rows := []string{
		styles.CardTitleStyle.Render("Trend"),
		"Week over week  " + trend,
		"",
	}
	if len(costs) == 0 {
		rows = append(rows, styles.HelpStyle.Render("No daily history yet"))
	} else {
		rows = append(rows,
			fmt.Sprintf("Last %d days   %s", len(costs), components.RenderColoredSparkline(costs, cardWidth-24)),
		)
	}

	peak := report.AllTime.HighestCostDay
	if peak.Date != "" {
		rows = append(rows, styles.HelpStyle.Render(
			fmt.Sprintf("Most expensive day: %s (%s)", peak.Date, components.Cost(peak.Cost))))
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderModelsCard(report *models.UsageReport) string {
	cardWidth := max(m.width-6, 40)

	title := "Models by cost"
	if m.modelsByTokens {
		title = "Models by tokens"
	}
	rows := []string{styles.CardTitleStyle.Render(title)}

	if len(report.Models) == 0 {
		rows = append(rows, styles.HelpStyle.Render("No model usage recorded"))
		return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	labels := lo.Map(report.Models, func(b models.ModelBreakdown, _ int) string { return shortModel(b.Model) })

	var chart string
	if m.modelsByTokens {
		values := lo.Map(report.Models, func(b models.ModelBreakdown, _ int) float64 { return float64(b.Total()) })
		chart = components.RenderBarChart(values, labels, cardWidth-6, func(v float64) string {
			return components.Tokens(int64(v))
		})
	} else {
		values := lo.Map(report.Models, func(b models.ModelBreakdown, _ int) float64 { return b.Cost })
		chart = components.RenderBarChart(values, labels, cardWidth-6, func(v float64) string {
			return components.Cost(v)
		})
	}
	rows = append(rows, chart, "")

	for _, b := range report.Models {
		rows = append(rows, fmt.Sprintf("%-22s %s %5.1f%%",
			shortModel(b.Model), components.RenderGradientBar(b.Percent, 20), b.Percent))
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// shortModel trims the "claude-" prefix and any date suffix.
func shortModel(name string) string {
	name = strings.TrimPrefix(name, "claude-")
	if i := strings.LastIndex(name, "-"); i > 0 && len(name)-i == 9 {
		name = name[:i]
	}
	if len(name) > 22 {
		name = name[:21] + "…"
	}
	return name
}
