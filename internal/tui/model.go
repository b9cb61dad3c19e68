// Package tui is the terminal front end of the watch console: it turns key
// presses into controller commands and paints the controller's views.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"go-aging-risk-dashboard/internal/aging"
	"go-aging-risk-dashboard/internal/export"
	"go-aging-risk-dashboard/internal/livesync"
)

// Controller is the subset of *livesync.Controller the console drives.
type Controller interface {
	SetQuery(ctx context.Context, q string)
	ToggleTag(ctx context.Context, s aging.Status)
	ResetFilters(ctx context.Context)
	ApplyFilters(ctx context.Context)
	ManualSearch(ctx context.Context, query, storeID string)
	ToggleAlertOnly() bool
	ToggleLive(ctx context.Context) bool
	Refresh(ctx context.Context, notify bool) error
	RefreshHealth(ctx context.Context, notify bool) error
	VisibleStores() livesync.Snapshot
	InventoryResults() []livesync.InventoryItem
	Notify(msg string, level livesync.ToastLevel)
}

// Exporter writes CSV exports.
type Exporter interface {
	Stores(ctx context.Context, stores []livesync.StoreRecord) (string, error)
	Inventory(ctx context.Context, items []livesync.InventoryItem) (string, error)
}

// Focus is the input field receiving typed text.
type Focus int

const (
	FocusStoreQuery Focus = iota
	FocusSearchQuery
	FocusSearchStore
	focusCount
)

func (f Focus) label() string {
	switch f {
	case FocusSearchQuery:
		return "Inventory search"
	case FocusSearchStore:
		return "Inventory store"
	default:
		return "Store filter"
	}
}

// tagKeys maps function keys to status tags.
var tagKeys = map[string]aging.Status{
	"f1": aging.Healthy,
	"f2": aging.Transfer,
	"f3": aging.RateRevised,
	"f4": aging.VeryDanger,
}

type sessionExpiredMsg struct{}

// SessionExpired is sent by the session handler when the API answers 401.
func SessionExpired() tea.Msg { return sessionExpiredMsg{} }

// Model is the bubbletea model of the console.
type Model struct {
	ctx      context.Context
	ctrl     Controller
	exporter Exporter
	renderer *Renderer

	view    livesync.View
	hasView bool
	focus   Focus
	inputs  [focusCount]string
	width   int
	height  int

	expired bool
}

// NewModel builds the console model. exporter may be nil to disable exports.
func NewModel(ctx context.Context, ctrl Controller, exporter Exporter, renderer *Renderer) *Model {
	m := &Model{ctx: ctx, ctrl: ctrl, exporter: exporter, renderer: renderer}
	if v, ok := renderer.Latest(); ok {
		m.setView(v)
	}
	return m
}

// Expired reports whether the console quit because the session ended.
func (m *Model) Expired() bool { return m.expired }

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.renderer.wait(), m.run(func(ctx context.Context) {
		_ = m.ctrl.RefreshHealth(ctx, false)
	}))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		m.setView(livesync.View(msg))
		return m, m.renderer.wait()
	case sessionExpiredMsg:
		m.expired = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) setView(v livesync.View) {
	m.view = v
	m.hasView = true
	if m.focus != FocusStoreQuery {
		m.inputs[FocusStoreQuery] = v.Filter.Query
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if tag, ok := tagKeys[key]; ok {
		m.ctrl.ToggleTag(m.ctx, tag)
		return nil
	}

	switch key {
	case "ctrl+c":
		return tea.Quit
	case "tab":
		m.focus = (m.focus + 1) % focusCount
		return nil
	case "shift+tab":
		m.focus = (m.focus + focusCount - 1) % focusCount
		return nil
	case "esc":
		m.inputs[FocusStoreQuery] = ""
		return m.run(m.ctrl.ResetFilters)
	case "f5":
		return m.run(func(ctx context.Context) { _ = m.ctrl.Refresh(ctx, true) })
	case "f6":
		return m.run(func(ctx context.Context) { _ = m.ctrl.RefreshHealth(ctx, true) })
	case "ctrl+l":
		return m.run(func(ctx context.Context) { m.ctrl.ToggleLive(ctx) })
	case "ctrl+t":
		m.ctrl.ToggleAlertOnly()
		return nil
	case "ctrl+e":
		return m.exportStores()
	case "ctrl+o":
		return m.exportInventory()
	case "enter":
		if m.focus == FocusStoreQuery {
			return m.run(m.ctrl.ApplyFilters)
		}
		query, store := m.inputs[FocusSearchQuery], m.inputs[FocusSearchStore]
		return m.run(func(ctx context.Context) { m.ctrl.ManualSearch(ctx, query, store) })
	case "backspace", "ctrl+h":
		cur := []rune(m.inputs[m.focus])
		if len(cur) == 0 {
			return nil
		}
		return m.edit(string(cur[:len(cur)-1]))
	case "ctrl+u":
		return m.edit("")
	}

	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		return m.edit(m.inputs[m.focus] + string(msg.Runes))
	}
	return nil
}

// edit replaces the focused input. Store filter edits go through the
// controller debounce, called inline so keystrokes keep their order;
// inventory fields wait for enter.
func (m *Model) edit(value string) tea.Cmd {
	m.inputs[m.focus] = value
	if m.focus == FocusStoreQuery {
		m.ctrl.SetQuery(m.ctx, value)
	}
	return nil
}

func (m *Model) exportStores() tea.Cmd {
	if m.exporter == nil {
		return nil
	}
	return m.run(func(ctx context.Context) {
		loc, err := m.exporter.Stores(ctx, m.ctrl.VisibleStores())
		m.notifyExport(loc, err, "No stores to export")
	})
}

func (m *Model) exportInventory() tea.Cmd {
	if m.exporter == nil {
		return nil
	}
	return m.run(func(ctx context.Context) {
		loc, err := m.exporter.Inventory(ctx, m.ctrl.InventoryResults())
		m.notifyExport(loc, err, "No inventory to export")
	})
}

func (m *Model) notifyExport(loc string, err error, empty string) {
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		m.ctrl.Notify(empty, livesync.ToastError)
	case err != nil:
		m.ctrl.Notify(fmt.Sprintf("Export failed: %v", err), livesync.ToastError)
	default:
		m.ctrl.Notify("Exported "+loc, livesync.ToastSuccess)
	}
}

// run executes fn off the bubbletea loop. Controller calls may block on
// the network; their results arrive through the renderer.
func (m *Model) run(fn func(ctx context.Context)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		fn(ctx)
		return nil
	}
}

func (m *Model) View() string {
	if !m.hasView {
		return "Loading store data...\n"
	}
	return renderScreen(m.view, screenState{
		focus:  m.focus,
		inputs: m.inputs,
		width:  m.width,
		height: m.height,
	})
}

func inputLine(f Focus, value string, focused bool) string {
	cursor := ""
	if focused {
		cursor = "_"
	}
	return fmt.Sprintf("%s: %s%s", f.label(), strings.TrimRight(value, "\n"), cursor)
}
