// Package history provides the history tab: daily charts, weekday patterns
// and a scrollable per-day table.
package history

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/claude-usage-analytics/internal/app"
)

// timeRange bounds how many trailing days the charts cover.
type timeRange int

const (
	range30Days timeRange = iota
	range7Days
	range90Days
	rangeAll
)

func (r timeRange) days() int {
	switch r {
	case range7Days:
		return 7
	case range30Days:
		return 30
	case range90Days:
		return 90
	default:
		return 0
	}
}

func (r timeRange) String() string {
	switch r {
	case range7Days:
		return "7 days"
	case range30Days:
		return "30 days"
	case range90Days:
		return "90 days"
	default:
		return "All time"
	}
}

// next cycles 30 → 90 → all → 7 → 30.
func (r timeRange) next() timeRange {
	switch r {
	case range30Days:
		return range90Days
	case range90Days:
		return rangeAll
	case rangeAll:
		return range7Days
	default:
		return range30Days
	}
}

// metric selects the plotted series.
type metric int

const (
	metricCost metric = iota
	metricMessages
	metricTokens
)

func (m metric) String() string {
	switch m {
	case metricMessages:
		return "Messages"
	case metricTokens:
		return "Tokens"
	default:
		return "Cost"
	}
}

// keyMap defines the key bindings specific to the history tab.
type keyMap struct {
	ToggleRange  key.Binding
	ToggleMetric key.Binding
	Up           key.Binding
	Down         key.Binding
}

// defaultKeyMap returns the default key bindings for the history tab.
func defaultKeyMap() keyMap {
	return keyMap{
		ToggleRange: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle time range"),
		),
		ToggleMetric: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cost/messages/tokens"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// Model represents the history tab state.
type Model struct {
	state    *app.State
	width    int
	height   int
	keys     keyMap
	viewport viewport.Model

	timeRange timeRange
	metric    metric
}

// New creates a new history model.
func New(state *app.State) *Model {
	return &Model{
		state:     state,
		keys:      defaultKeyMap(),
		viewport:  viewport.New(0, 0),
		timeRange: range30Days,
	}
}

// Init initializes the history tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the history tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.ToggleRange):
		m.timeRange = m.timeRange.next()
		m.viewport.GotoTop()
	case key.Matches(keyMsg, m.keys.ToggleMetric):
		m.metric = (m.metric + 1) % 3
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(keyMsg)
		return m, cmd
	}
	return m, nil
}

// SetSize sets the available size for the history tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.ToggleRange, m.keys.ToggleMetric}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.ToggleRange, m.keys.ToggleMetric},
		{m.keys.Up, m.keys.Down},
	}
}
