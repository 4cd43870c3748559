package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/claude-usage-analytics/internal/models"
	"github.com/j-veylop/claude-usage-analytics/internal/services"
)

func readyModel() *Model {
	model := NewModel(nil)
	model.ready = true
	model.width = 80
	model.height = 24
	return model
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil)
	if model == nil {
		t.Fatal("NewModel returned nil")
	}
	if model.state == nil {
		t.Error("State should be initialized")
	}
	if model.activeTab != TabDashboard {
		t.Error("Default tab should be Dashboard")
	}
	if len(model.tabs) != 3 {
		t.Errorf("Should have 3 tabs placeholder, got %d", len(model.tabs))
	}
}

func TestModel_Init(t *testing.T) {
	model := NewModel(nil)
	if cmd := model.Init(); cmd == nil {
		t.Error("Init returned nil command")
	}
	if !model.state.AnyLoading() {
		t.Error("initial load should be pending")
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	model := NewModel(nil)
	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 50})

	m, ok := newModel.(*Model)
	if !ok {
		t.Fatal("Update returned wrong model type")
	}
	if m.width != 100 || m.height != 50 {
		t.Errorf("size = %dx%d, want 100x50", m.width, m.height)
	}
	if !m.ready {
		t.Error("Model should be ready after WindowSizeMsg")
	}
}

func TestModel_TabKeys(t *testing.T) {
	tests := []struct {
		key  tea.KeyMsg
		want TabID
	}{
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}}, TabHistory},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}}, TabInsights},
		{tea.KeyMsg{Type: tea.KeyTab}, TabHistory},
		{tea.KeyMsg{Type: tea.KeyShiftTab}, TabInsights},
	}

	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			model := readyModel()
			model.handleKeyMsg(tt.key)
			if model.activeTab != tt.want {
				t.Errorf("activeTab = %v, want %v", model.activeTab, tt.want)
			}
		})
	}
}

func TestModel_TabSwitchMsg(t *testing.T) {
	model := readyModel()
	model.Update(TabSwitchMsg{Tab: TabInsights})
	if model.activeTab != TabInsights {
		t.Errorf("ActiveTab = %v, want Insights", model.activeTab)
	}
}

func TestModel_Update_Tick(t *testing.T) {
	model := NewModel(nil)
	if _, cmd := model.Update(TickMsg{Time: time.Now()}); cmd == nil {
		t.Error("TickMsg should return a command (next tick)")
	}
}

func TestModel_View(t *testing.T) {
	model := NewModel(nil)

	if view := model.View(); !strings.Contains(view, "Loading...") {
		t.Error("View should show Loading when not ready")
	}

	model.ready = true
	model.width = 80
	model.height = 24

	view := model.View()
	if !strings.Contains(view, "Dashboard") || !strings.Contains(view, "Insights") {
		t.Error("View should show tab names")
	}
	if !strings.Contains(view, "not yet implemented") {
		t.Error("View should show placeholder text")
	}
}

func TestModel_Help(t *testing.T) {
	model := readyModel()

	model.Update(ToggleHelpMsg{})
	if !model.showHelp {
		t.Fatal("showHelp should be true")
	}
	if view := model.View(); !strings.Contains(view, "Keyboard Shortcuts") {
		t.Error("View should show help modal")
	}

	model.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEsc})
	if model.showHelp {
		t.Error("Esc should close help")
	}
}

func TestModel_Notifications(t *testing.T) {
	model := readyModel()
	model.Update(AddNotificationMsg{Message: "Test Note", Type: NotificationInfo})

	if notifs := model.state.GetNotifications(); len(notifs) != 1 {
		t.Errorf("Expected 1 notification, got %d", len(notifs))
	}
	if view := model.View(); !strings.Contains(view, "Test Note") {
		t.Error("View should show notification")
	}
}

func TestModel_ReportLoaded(t *testing.T) {
	tests := []struct {
		name     string
		result   models.Result[*models.UsageReport]
		wantType NotificationType
		wantCmd  bool
	}{
		{"ok", models.OK(models.DefaultReport()), 0, false},
		{"empty", models.Empty(models.DefaultReport()), NotificationInfo, true},
		{"degraded", models.Degraded(models.DefaultReport(), errors.New("bad cache")), NotificationWarning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := NewModel(nil)
			cmds := model.handleReportLoaded(tt.result)

			if model.state.Report() != tt.result.Value {
				t.Error("report should be stored")
			}
			if model.state.IsInitialLoading() {
				t.Error("initial loading should be cleared")
			}
			if (len(cmds) > 0) != tt.wantCmd {
				t.Fatalf("cmds = %d, wantCmd %v", len(cmds), tt.wantCmd)
			}
			if tt.wantCmd {
				msg, ok := cmds[0]().(AddNotificationMsg)
				if !ok || msg.Type != tt.wantType {
					t.Errorf("notification = %+v, want type %v", msg, tt.wantType)
				}
			}
		})
	}
}

func TestModel_ExportKey(t *testing.T) {
	dir := t.TempDir()
	model := readyModel()
	model.SetExportDir(dir)
	model.state.SetReport(models.OK(&models.UsageReport{
		DailyHistory: []models.DailyEntry{{Date: "2024-06-01", Messages: 3, Tokens: 10, Cost: 1.5}},
	}))

	cmd := model.handleKeyMsg(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	if cmd == nil {
		t.Fatal("export key should return a command")
	}
	res, ok := cmd().(ExportResultMsg)
	if !ok {
		t.Fatal("export command should return ExportResultMsg")
	}
	if res.Error != nil {
		t.Fatalf("export error = %v", res.Error)
	}
	if !strings.HasPrefix(res.Path, dir) || !strings.HasSuffix(res.Path, ".csv") {
		t.Errorf("Path = %q", res.Path)
	}

	note, ok := model.handleExportResult(res)().(AddNotificationMsg)
	if !ok || note.Type != NotificationSuccess {
		t.Errorf("notification = %+v, want success", note)
	}
	if model.state.AnyLoading() && !model.state.IsInitialLoading() {
		t.Error("export loading should be cleared")
	}
}

func TestModel_ExportFailure(t *testing.T) {
	model := NewModel(nil)
	note, ok := model.handleExportResult(ExportResultMsg{Error: errors.New("disk full")})().(AddNotificationMsg)
	if !ok || note.Type != NotificationError {
		t.Errorf("notification = %+v, want error", note)
	}
}

func TestModel_ExportWithoutReport(t *testing.T) {
	model := NewModel(nil)
	res, ok := model.export()().(ExportResultMsg)
	if !ok || res.Error == nil {
		t.Errorf("export without report should fail, got %+v", res)
	}
}

func TestModel_HandleServiceEvent(t *testing.T) {
	model := NewModel(nil)

	report := models.DefaultReport()
	model.handleServiceEvent(services.ReportUpdatedEvent{Report: report, Status: models.StatusOK})
	if model.state.Report() != report {
		t.Error("ReportUpdatedEvent should update the report")
	}

	if cmd := model.handleServiceEvent(services.SourceChangedEvent{Path: "x"}); cmd != nil {
		t.Error("SourceChangedEvent should not notify")
	}

	cmd := model.handleServiceEvent(services.ErrorEvent{Service: "test", Error: errors.New("boom")})
	if cmd == nil {
		t.Error("Error event should trigger notification command")
	}
}

func TestModel_LoadingMessages(t *testing.T) {
	model := NewModel(nil)
	model.state.SetLoading("initial", false)

	model.Update(StartLoadingMsg{Resource: "report"})
	if !model.state.AnyLoading() {
		t.Error("report should be loading")
	}

	model.Update(StopLoadingMsg{Resource: "report"})
	if model.state.AnyLoading() {
		t.Error("nothing should be loading")
	}
	for _, n := range model.state.GetNotifications() {
		if n.ID == LoadingNotificationID {
			t.Error("loading notification should be cleared")
		}
	}
}

func TestModel_RefreshWithoutServices(t *testing.T) {
	model := NewModel(nil)
	if cmd := model.refresh(true); cmd != nil {
		t.Error("refresh without services should be a no-op")
	}
}

func TestModel_HandleSpinnerTick(t *testing.T) {
	model := NewModel(nil)
	if _, cmd := model.Update(spinner.TickMsg{}); cmd == nil {
		t.Error("Spinner tick should return command")
	}
}

func TestTabID_String(t *testing.T) {
	tests := map[TabID]string{
		TabDashboard: "Dashboard",
		TabHistory:   "History",
		TabInsights:  "Insights",
		TabID(999):   "Unknown",
	}
	for id, want := range tests {
		if got := id.String(); got != want {
			t.Errorf("TabID(%d).String() = %q, want %q", id, got, want)
		}
	}
}

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()
	if len(km.ShortHelp()) == 0 {
		t.Error("ShortHelp empty")
	}
	if len(km.FullHelp()) == 0 {
		t.Error("FullHelp empty")
	}
}
