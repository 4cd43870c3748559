package history

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/claude-usage-analytics/internal/app"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
)

func historyState() *app.State {
	r := models.DefaultReport()
	r.Today = models.DailyEntry{Date: "2024-06-10"}
	r.DailyHistory = []models.DailyEntry{
		{Date: "2024-05-01", Messages: 7, Sessions: 1, Tokens: 100, Cost: 1.25},
		{Date: "2024-06-03", Messages: 10, Sessions: 2, Tokens: 2000, Cost: 4},
		{Date: "2024-06-09", Messages: 20, Sessions: 1, Tokens: 3000, Cost: 6.5, Estimated: true},
	}
	r.FunStats.Trend = models.TrendUp
	r.FunStats.TrendPercent = 62.5

	s := app.NewState()
	s.SetLoading("initial", false)
	s.SetReport(models.OK(r))
	return s
}

func press(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestNew(t *testing.T) {
	m := New(app.NewState())
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.timeRange != range30Days {
		t.Errorf("default range = %v, want 30 days", m.timeRange)
	}
	if m.Init() != nil {
		t.Error("Init should not issue commands")
	}
}

func TestModel_ViewEmpty(t *testing.T) {
	m := New(app.NewState())
	m.SetSize(80, 24)
	if view := m.View(); !strings.Contains(view, "No daily history") {
		t.Error("View should explain missing history")
	}
}

func TestModel_View(t *testing.T) {
	m := New(historyState())
	m.SetSize(100, 200)

	view := m.View()
	for _, want := range []string{"30 days", "2024-05-12 → 2024-06-10", "Week over Week", "Weekday Pattern", "$6.50*", "2024-06-03"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "2024-05-01") {
		t.Error("30 day window should exclude 2024-05-01")
	}
}

func TestModel_ToggleRange(t *testing.T) {
	m := New(historyState())
	m.SetSize(100, 200)

	want := []timeRange{range90Days, rangeAll, range7Days, range30Days}
	for _, w := range want {
		m.Update(press('t'))
		if m.timeRange != w {
			t.Fatalf("timeRange = %v, want %v", m.timeRange, w)
		}
	}

	m.timeRange = rangeAll
	if view := m.View(); !strings.Contains(view, "2024-05-01 → 2024-06-10") {
		t.Error("all-time window should start at the first history day")
	}
}

func TestModel_ToggleMetric(t *testing.T) {
	m := New(historyState())
	m.SetSize(100, 200)

	m.Update(press('c'))
	if m.metric != metricMessages {
		t.Fatalf("metric = %v, want messages", m.metric)
	}
	if view := m.View(); !strings.Contains(view, "Daily Messages") {
		t.Error("chart title should follow the metric")
	}

	m.Update(press('c'))
	m.Update(press('c'))
	if m.metric != metricCost {
		t.Errorf("metric should wrap back to cost, got %v", m.metric)
	}
}

func TestWindow(t *testing.T) {
	m := New(historyState())
	m.timeRange = range7Days

	days := m.window(m.state.Report())
	if len(days) != 7 {
		t.Fatalf("len = %d, want 7", len(days))
	}
	if days[0].Date != "2024-06-04" || days[6].Date != "2024-06-10" {
		t.Errorf("window = %s..%s", days[0].Date, days[6].Date)
	}
	if days[5].Messages != 20 {
		t.Errorf("2024-06-09 messages = %d, want 20", days[5].Messages)
	}
}

func TestDense(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	days := dense([]models.DailyEntry{{Date: "2024-06-02", Cost: 3}}, start, start.AddDate(0, 0, 2))
	if len(days) != 3 || days[1].Cost != 3 || days[0].Cost != 0 {
		t.Errorf("dense = %+v", days)
	}
	if dense(nil, time.Time{}, start) != nil {
		t.Error("zero start should yield nil")
	}
}

func TestTimeRange_String(t *testing.T) {
	tests := map[timeRange]string{
		range7Days:  "7 days",
		range30Days: "30 days",
		range90Days: "90 days",
		rangeAll:    "All time",
	}
	for r, want := range tests {
		if got := r.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState())
	if len(m.ShortHelp()) == 0 || len(m.FullHelp()) == 0 {
		t.Error("help bindings should not be empty")
	}
}
