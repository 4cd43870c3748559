// Package insights provides the behavioral insights tab: fun stats,
// conversation counters, achievements and store information.
package insights

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/claude-usage-analytics/internal/app"
	"github.com/j-veylop/claude-usage-analytics/internal/config"
	"github.com/j-veylop/claude-usage-analytics/internal/db"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
	"github.com/j-veylop/claude-usage-analytics/internal/ui/components"
)

// keyMap defines the key bindings specific to the insights tab.
type keyMap struct {
	ToggleLocked key.Binding
	Up           key.Binding
	Down         key.Binding
}

// defaultKeyMap returns the default key bindings for the insights tab.
func defaultKeyMap() keyMap {
	return keyMap{
		ToggleLocked: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "show locked achievements"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
	}
}

// storeInfo is a snapshot of the history database.
type storeInfo struct {
	available bool
	machineID string
	oldest    string
	newest    string
	totals    models.HistoryTotals
	err       error
}

type storeInfoMsg storeInfo

// Model represents the insights tab state.
type Model struct {
	state    *app.State
	config   *config.Config
	store    db.HistoryStore
	width    int
	height   int
	keys     keyMap
	viewport viewport.Model

	gauge         components.Gauge
	invertedGauge components.Gauge
	info          storeInfo
	showLocked    bool
}

// New creates a new insights model. store may be nil.
func New(state *app.State, cfg *config.Config, store db.HistoryStore) *Model {
	return &Model{
		state:         state,
		config:        cfg,
		store:         store,
		keys:          defaultKeyMap(),
		viewport:      viewport.New(0, 0),
		gauge:         components.NewGauge(),
		invertedGauge: components.NewInvertedGauge(),
	}
}

// Init loads the store summary.
func (m *Model) Init() tea.Cmd {
	return m.loadStoreInfoCmd()
}

func (m *Model) loadStoreInfoCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		if store == nil || !store.Available() {
			return storeInfoMsg{}
		}
		info := storeInfo{available: true, machineID: store.MachineID()}
		info.oldest, info.newest, info.err = store.GetDateRange()
		if info.err == nil {
			info.totals, info.err = store.GetTotals()
		}
		return storeInfoMsg(info)
	}
}

// Update handles messages for the insights tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case storeInfoMsg:
		m.info = storeInfo(msg)

	case app.ReportLoadedMsg:
		return m, m.loadStoreInfoCmd()

	case app.TabSwitchMsg:
		if msg.Tab == app.TabInsights {
			return m, m.loadStoreInfoCmd()
		}

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ToggleLocked) {
			m.showLocked = !m.showLocked
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

// SetSize sets the available size for the insights tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.ToggleLocked}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.ToggleLocked},
		{m.keys.Up, m.keys.Down},
	}
}
