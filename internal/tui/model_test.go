package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-aging-risk-dashboard/internal/aging"
	"go-aging-risk-dashboard/internal/export"
	"go-aging-risk-dashboard/internal/livesync"
)

type fakeController struct {
	mu      sync.Mutex
	calls   []string
	stores  livesync.Snapshot
	items   []livesync.InventoryItem
	toasts  []string
	queries []string
}

func (f *fakeController) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeController) SetQuery(_ context.Context, q string) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	f.record("SetQuery")
}
func (f *fakeController) ToggleTag(_ context.Context, s aging.Status) { f.record("ToggleTag " + string(s)) }
func (f *fakeController) ResetFilters(context.Context) { f.record("ResetFilters") }
func (f *fakeController) ApplyFilters(context.Context) { f.record("ApplyFilters") }
func (f *fakeController) ManualSearch(_ context.Context, q, store string) {
	f.record("ManualSearch " + q + "@" + store)
}
func (f *fakeController) ToggleAlertOnly() bool { f.record("ToggleAlertOnly"); return true }
func (f *fakeController) ToggleLive(context.Context) bool { f.record("ToggleLive"); return true }
func (f *fakeController) Refresh(context.Context, bool) error { f.record("Refresh"); return nil }
func (f *fakeController) RefreshHealth(context.Context, bool) error {
	f.record("RefreshHealth")
	return nil
}
func (f *fakeController) VisibleStores() livesync.Snapshot { return f.stores }
func (f *fakeController) InventoryResults() []livesync.InventoryItem { return f.items }
func (f *fakeController) Notify(msg string, _ livesync.ToastLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toasts = append(f.toasts, msg)
}

func (f *fakeController) snapshot() ([]string, []string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...), append([]string(nil), f.queries...), append([]string(nil), f.toasts...)
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// press feeds a key and runs the returned command synchronously.
func press(t *testing.T, m *Model, msg tea.KeyMsg) tea.Msg {
	t.Helper()
	_, cmd := m.Update(msg)
	if cmd == nil {
		return nil
	}
	return cmd()
}

func newTestModel(ctrl Controller, exporter Exporter) *Model {
	return NewModel(context.Background(), ctrl, exporter, NewRenderer())
}

func TestRenderer_CoalescesBursts(t *testing.T) {
	r := NewRenderer()
	_, ok := r.Latest()
	assert.False(t, ok)

	r.Render(livesync.View{FilterStatus: "one"})
	r.Render(livesync.View{FilterStatus: "two"})
	r.Render(livesync.View{FilterStatus: "three"})

	msg := r.wait()()
	assert.Equal(t, "three", livesync.View(msg.(viewMsg)).FilterStatus)

	select {
	case <-r.updates:
		t.Fatal("expected a single pending wake-up")
	default:
	}
}

func TestModel_StoreQueryTyping(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl, nil)

	press(t, m, runes("n"))
	press(t, m, runes("o"))
	press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	calls, queries, _ := ctrl.snapshot()
	assert.Equal(t, []string{"n", "no", "n"}, queries)
	assert.Equal(t, "ApplyFilters", calls[len(calls)-1])
}

func TestModel_ManualSearchFields(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl, nil)

	press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	press(t, m, runes("dress"))
	press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	press(t, m, runes("42"))
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	calls, queries, _ := ctrl.snapshot()
	assert.Empty(t, queries, "inventory fields must not touch the store filter")
	assert.Equal(t, []string{"ManualSearch dress@42"}, calls)
}

func TestModel_CommandKeys(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl, nil)

	press(t, m, tea.KeyMsg{Type: tea.KeyF1})
	press(t, m, tea.KeyMsg{Type: tea.KeyF4})
	press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	press(t, m, tea.KeyMsg{Type: tea.KeyF5})
	press(t, m, tea.KeyMsg{Type: tea.KeyF6})
	press(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	press(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})

	calls, _, _ := ctrl.snapshot()
	assert.Equal(t, []string{
		"ToggleTag HEALTHY",
		"ToggleTag VERY_DANGER",
		"ResetFilters",
		"Refresh",
		"RefreshHealth",
		"ToggleLive",
		"ToggleAlertOnly",
	}, calls)

	assert.Equal(t, tea.QuitMsg{}, press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC}))
}

func TestModel_Exports(t *testing.T) {
	dir := t.TempDir()
	ctrl := &fakeController{}
	m := newTestModel(ctrl, export.NewExporter(export.FileSink{Dir: dir}))

	press(t, m, tea.KeyMsg{Type: tea.KeyCtrlE})
	press(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})

	ctrl.stores = livesync.Snapshot{{ID: "7", TotalValue: 10}}
	press(t, m, tea.KeyMsg{Type: tea.KeyCtrlE})

	_, _, toasts := ctrl.snapshot()
	require.Len(t, toasts, 3)
	assert.Equal(t, "No stores to export", toasts[0])
	assert.Equal(t, "No inventory to export", toasts[1])
	assert.True(t, strings.HasPrefix(toasts[2], "Exported "), toasts[2])
	assert.True(t, strings.HasSuffix(toasts[2], export.StoresFile), toasts[2])
}

func TestModel_SessionExpiredQuits(t *testing.T) {
	m := newTestModel(&fakeController{}, nil)

	_, cmd := m.Update(SessionExpired())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Expired())
}

func TestModel_ViewRendersControllerView(t *testing.T) {
	m := newTestModel(&fakeController{}, nil)
	assert.Contains(t, m.View(), "Loading store data...")

	v := livesync.View{
		Phase:        livesync.PhaseApplied,
		Date:         "2025-06-30",
		Stores:       livesync.Snapshot{{ID: "42", TotalValue: 1500, Aging: livesync.AgingCounters{VeryDanger: 1500}}},
		FilterStatus: "Showing 1 of 3 stores. 1 status tags active.",
		TableStatus:  "Ready.",
		Filter:       livesync.NewFilterState("4", aging.VeryDanger),
		ActiveCounts: map[aging.Status]int{aging.VeryDanger: 1},
		Inventory:    livesync.InventoryView{Status: "Found 0 items."},
		Toast:        &livesync.Toast{Seq: 1, Message: "Dashboard refreshed", Level: livesync.ToastSuccess},
	}
	m.Update(viewMsg(v))

	out := m.View()
	for _, want := range []string{"2025-06-30", "42", "1,500", "Showing 1 of 3 stores.", "[x]", "Found 0 items.", "Dashboard refreshed"} {
		assert.Contains(t, out, want)
	}
}

func TestSummary(t *testing.T) {
	line := Summary(livesync.View{
		Phase:        livesync.PhaseFallingBack,
		FilterStatus: "Showing 2 of 5 stores.",
		TableStatus:  "Ready.",
		Notice:       "Showing cached results.",
	})
	assert.Contains(t, line, "phase=falling_back")
	assert.Contains(t, line, `notice="Showing cached results."`)
}
