package insights

import (
	"cmp"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/j-veylop/claude-usage-analytics/internal/models"
	"github.com/j-veylop/claude-usage-analytics/internal/ui/components"
	"github.com/j-veylop/claude-usage-analytics/internal/ui/styles"
	"github.com/j-veylop/claude-usage-analytics/internal/version"
)

const topLanguages = 5

// View renders the insights tab.
func (m *Model) View() string {
	report := m.state.Report()
	if report == nil {
		report = models.DefaultReport()
	}

	sections := []string{
		m.renderTitle(),
		m.renderHabitsCard(report.FunStats),
		m.renderScoresCard(report.FunStats),
		m.renderConversationCard(report.Conversation),
		m.renderAchievementsCard(report.Achievements),
		m.renderStoreCard(),
		m.renderAboutCard(),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Insights")
	subtitle := styles.HelpStyle.Render("How you work with Claude")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 100)
}

func (m *Model) card(title string, rows ...string) string {
	lines := append([]string{styles.CardTitleStyle.Render(title)}, rows...)
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func row(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(22).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func (m *Model) renderHabitsCard(fs models.FunStats) string {
	streak := fmt.Sprintf("%d day", fs.Streak)
	if fs.Streak != 1 {
		streak += "s"
	}

	return m.card("Habits",
		row("Current streak", streak),
		row("Peak hour", fs.PeakHour),
		row("Weekend share", fmt.Sprintf("%.0f%%", fs.WeekendPercent)),
		row("Night owl / early bird", fmt.Sprintf("%d / %d", fs.NightOwlScore, fs.EarlyBirdScore)),
		row("Avg session", fmt.Sprintf("%.1f messages", fs.AvgSessionMessages)),
		row("Longest session", components.Count(fs.LongestSessionMessages)+" messages"),
		"",
		"Activity by hour",
		components.RenderHourlyHeatmap(fs.HourCounts),
	)
}

func (m *Model) renderScoresCard(fs models.FunStats) string {
	width := m.cardWidth() - 6

	return m.card("Scores",
		m.gauge.View(fs.CacheHitRatio, "Cache hit ratio", width),
		m.gauge.View(float64(fs.PolitenessScore), "Politeness", width),
		m.invertedGauge.View(float64(fs.FrustrationIndex), "Frustration", width),
		"",
		row("Saved by caching", styles.CostStyle.Render(components.Cost(fs.CacheSavings))),
	)
}

func (m *Model) renderConversationCard(conv *models.ConversationStats) string {
	if conv == nil || conv.UserMessages == 0 {
		return m.card("Conversations",
			styles.HelpStyle.Render("No conversation logs scanned yet"))
	}

	rows := []string{
		row("Messages you wrote", components.Count(int64(conv.UserMessages))),
		row("Words", components.Count(int64(conv.TotalWords))),
		row("Longest message", components.Count(int64(conv.LongestMessageWords))+" words"),
		row("Questions / !", fmt.Sprintf("%s / %s", components.Count(int64(conv.Questions)), components.Count(int64(conv.Exclamations)))),
		row("Please / thanks / sorry", fmt.Sprintf("%d / %d / %d", conv.PleaseCount, conv.ThanksCount, conv.SorryCount)),
		row("Curses / CAPS RAGE", fmt.Sprintf("%d / %d", conv.CurseWords, conv.CapsRage)),
		row("LOLs", components.Count(int64(conv.LolCount))),
		row("Sentiment +/-/!/?", fmt.Sprintf("%d / %d / %d / %d",
			conv.Sentiment.Positive, conv.Sentiment.Negative, conv.Sentiment.Urgent, conv.Sentiment.Confused)),
		row("Bug fix / feature", fmt.Sprintf("%d / %d", conv.Requests.BugFix, conv.Requests.Feature)),
		row("Refactor / explain", fmt.Sprintf("%d / %d", conv.Requests.Refactor, conv.Requests.Explain)),
		row("Test / review", fmt.Sprintf("%d / %d", conv.Requests.Test, conv.Requests.Review)),
		row("Code blocks", fmt.Sprintf("%s (%s lines)", components.Count(int64(conv.CodeBlocks)), components.Count(int64(conv.LinesOfCode)))),
	}

	if langs := topLangs(conv.CodeBlocksByLanguage, topLanguages); len(langs) > 0 {
		rows = append(rows, row("Top languages", strings.Join(langs, ", ")))
	}

	if !conv.ScannedAt.IsZero() {
		rows = append(rows, "", styles.HelpStyle.Render(fmt.Sprintf("Scanned %d files at %s",
			conv.FilesScanned, conv.ScannedAt.Format("Jan 2 15:04"))))
	}

	return m.card("Conversations", rows...)
}

// topLangs returns the n most used languages as "lang (count)", ties by name.
func topLangs(byLang map[string]int, n int) []string {
	entries := lo.Entries(byLang)
	slices.SortFunc(entries, func(a, b lo.Entry[string, int]) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return lo.Map(entries, func(e lo.Entry[string, int], _ int) string {
		return fmt.Sprintf("%s (%d)", e.Key, e.Value)
	})
}

func (m *Model) renderAchievementsCard(achievements []models.Achievement) string {
	unlocked := lo.CountBy(achievements, func(a models.Achievement) bool { return a.Unlocked })
	title := fmt.Sprintf("Achievements %d/%d", unlocked, len(achievements))

	var rows []string
	for _, a := range achievements {
		switch {
		case a.Unlocked:
			rows = append(rows, styles.AchievementUnlockedStyle.Render("★ "+a.Name)+"  "+styles.HelpStyle.Render(a.Description))
		case m.showLocked:
			rows = append(rows, styles.AchievementLockedStyle.Render("☆ "+a.Name+"  "+a.Description))
		}
	}
	if len(rows) == 0 {
		rows = append(rows, styles.HelpStyle.Render("None unlocked yet"))
	}
	if !m.showLocked && unlocked < len(achievements) {
		rows = append(rows, "", styles.HelpStyle.Render("Press 'a' to show locked achievements"))
	}

	return m.card(title, rows...)
}

func (m *Model) renderStoreCard() string {
	var rows []string

	if m.config != nil {
		rows = append(rows,
			row("Stats cache", m.config.StatsCachePath),
			row("Projects", m.config.ProjectsDir),
			row("Database", m.config.DatabasePath),
			row("Refresh", m.config.RefreshInterval.String()),
			row("Retention", retention(m.config.RetentionDays)),
			row("Opus cache read", "$"+string(m.config.OpusCacheReadVariant)+"/M"),
		)
		for _, w := range m.config.Warnings {
			rows = append(rows, styles.WarningTextStyle.Render("⚠ "+w))
		}
		rows = append(rows, "")
	}

	switch {
	case !m.info.available:
		rows = append(rows, styles.WarningTextStyle.Render("History database unavailable; showing cache data only"))
	case m.info.err != nil:
		rows = append(rows, styles.ErrorTextStyle.Render(fmt.Sprintf("Database error: %v", m.info.err)))
	default:
		span := "-"
		if m.info.oldest != "" {
			span = m.info.oldest + " → " + m.info.newest
		}
		rows = append(rows,
			row("Machine", m.info.machineID),
			row("Stored days", fmt.Sprintf("%d (%s)", m.info.totals.Days, span)),
			row("Stored cost", components.Cost(m.info.totals.Cost)),
		)
	}

	return m.card("Storage", rows...)
}

func retention(days int) string {
	if days == 0 {
		return "forever"
	}
	return fmt.Sprintf("%d days", days)
}

func (m *Model) renderAboutCard() string {
	return m.card("About",
		row("Version", version.Info()),
		row("Go Version", runtime.Version()),
		row("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
	)
}
