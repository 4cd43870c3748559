// Package styles defines the visual styling for the application.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette. Primary is the Claude orange; cost figures are always green.
var (
	Primary   = lipgloss.Color("208")
	Secondary = lipgloss.Color("63")
	Subtle    = lipgloss.Color("240")
	Cost      = lipgloss.Color("42")

	Success = lipgloss.Color("42")
	Error   = lipgloss.Color("196")
	Warning = lipgloss.Color("220")
	Info    = lipgloss.Color("39")

	BgDark  = lipgloss.Color("235")
	BgLight = lipgloss.Color("237")

	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")
)

// Frame styles.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginBottom(1)

	SubTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Secondary).
			MarginBottom(1)

	DocStyle = lipgloss.NewStyle().
			Margin(1, 2).
			Padding(0, 1)

	TabBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(Subtle)

	ActiveTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(Primary).
			Padding(0, 2).
			MarginRight(1)

	InactiveTabStyle = lipgloss.NewStyle().
				Foreground(TextSecondary).
				Background(BgLight).
				Padding(0, 2).
				MarginRight(1)

	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)

	HelpPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Primary).
			Padding(1, 3).
			Background(BgDark)
)

// CardStyle creates a bordered card container.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(1, 2).
	MarginBottom(1)

// CardTitleStyle styles card headers.
var CardTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// ProgressLabelStyle styles gauge labels.
var ProgressLabelStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Width(20)

// TableHeaderStyle styles table headers.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	BorderStyle(lipgloss.NormalBorder()).
	BorderBottom(true).
	BorderForeground(Subtle)

// CostStyle renders dollar amounts.
var CostStyle = lipgloss.NewStyle().
	Foreground(Cost).
	Bold(true)

// EstimatedStyle marks values derived from the blended rate.
var EstimatedStyle = lipgloss.NewStyle().
	Foreground(TextMuted).
	Italic(true)

// AchievementLockedStyle dims achievements not yet earned.
var AchievementLockedStyle = lipgloss.NewStyle().
	Foreground(Subtle)

// AchievementUnlockedStyle highlights earned achievements.
var AchievementUnlockedStyle = lipgloss.NewStyle().
	Foreground(Warning).
	Bold(true)

// Status text.
var (
	ErrorTextStyle   = lipgloss.NewStyle().Foreground(Error)
	SuccessTextStyle = lipgloss.NewStyle().Foreground(Success)
	WarningTextStyle = lipgloss.NewStyle().Foreground(Warning)
	InfoTextStyle    = lipgloss.NewStyle().Foreground(Info)
)

var (
	trendUpStyle     = lipgloss.NewStyle().Foreground(Error).Bold(true)
	trendDownStyle   = lipgloss.NewStyle().Foreground(Success).Bold(true)
	trendStableStyle = lipgloss.NewStyle().Foreground(TextSecondary)
)

// GetScoreStyle returns the style for a 0-100 score. When inverted, high
// scores are bad (frustration) and colored accordingly.
func GetScoreStyle(score float64, inverted bool) lipgloss.Style {
	if inverted {
		score = 100 - score
	}
	switch {
	case score > 66:
		return SuccessTextStyle
	case score > 33:
		return WarningTextStyle
	default:
		return ErrorTextStyle
	}
}

// GetTrendStyle returns the style and arrow for a spend trend. Rising
// spend is red.
func GetTrendStyle(trend string) (lipgloss.Style, string) {
	switch trend {
	case "up":
		return trendUpStyle, "▲"
	case "down":
		return trendDownStyle, "▼"
	default:
		return trendStableStyle, "●"
	}
}

// CenterBoth centers content both horizontally and vertically.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
