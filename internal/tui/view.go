package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"go-aging-risk-dashboard/internal/aging"
	"go-aging-risk-dashboard/internal/livesync"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	focusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	panelStyle   = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#555", Dark: "#555"}).
			Padding(0, 1)

	statusStyles = map[aging.Status]lipgloss.Style{
		aging.Healthy:     lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		aging.Transfer:    lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")),
		aging.RateRevised: lipgloss.NewStyle().Foreground(lipgloss.Color("#fab387")),
		aging.VeryDanger:  lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")),
	}
)

const helpLine = "tab focus · enter apply/search · F1-F4 tags · esc reset · F5 refresh · F6 health · ctrl+l live · ctrl+t alert-only · ctrl+e/ctrl+o export · ctrl+c quit"

type screenState struct {
	focus  Focus
	inputs [focusCount]string
	width  int
	height int
}

func renderScreen(v livesync.View, s screenState) string {
	storeRows := 12
	if s.height > 0 {
		storeRows = max(3, s.height-30)
	}

	sections := []string{
		renderHeader(v),
		renderFilters(v, s),
		renderInsights(v),
		panelStyle.Render(renderStores(v, storeRows)),
		panelStyle.Render(renderInventory(v, s)),
	}
	if t := v.Toast; t != nil {
		style := successStyle
		if t.Level == livesync.ToastError {
			style = errorStyle
		}
		sections = append(sections, style.Render(t.Message))
	}
	sections = append(sections, mutedStyle.Render(helpLine))
	out := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if s.width > 0 {
		out = lipgloss.NewStyle().MaxWidth(s.width).Render(out)
	}
	return out
}

func renderHeader(v livesync.View) string {
	live := mutedStyle.Render("live off")
	if v.Live {
		live = successStyle.Render("live on")
	}
	date := v.Date
	if date == "" {
		date = livesync.Placeholder
	}
	h := v.Health
	health := mutedStyle.Render("health " + h.State)
	switch {
	case h.Checked && h.OK:
		health = successStyle.Render(fmt.Sprintf("health %s (%s, %s) %s", h.State, h.App, h.Environment, h.Latency.Round(time.Millisecond)))
	case h.Checked:
		health = errorStyle.Render("health " + h.State + " " + h.Message)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("Store Aging Risk"), "  ",
		mutedStyle.Render("as of "+date), "  ",
		live, "  ",
		health,
	)
}

func renderFilters(v livesync.View, s screenState) string {
	lines := make([]string, 0, 5)
	for f := Focus(0); f < focusCount; f++ {
		line := inputLine(f, s.inputs[f], s.focus == f)
		if s.focus == f {
			line = focusStyle.Render(line)
		}
		lines = append(lines, line)
	}

	tags := make([]string, 0, len(aging.Statuses))
	for i, st := range aging.Statuses {
		mark := "[ ]"
		if v.Filter.HasTag(st) {
			mark = "[x]"
		}
		label := fmt.Sprintf("F%d %s %s (%d)", i+1, mark, st.Label(), v.ActiveCounts[st])
		tags = append(tags, statusStyles[st].Render(label))
	}
	lines = append(lines, strings.Join(tags, "  "))
	lines = append(lines, mutedStyle.Render(fmt.Sprintf("%s [%s]", v.FilterStatus, v.Phase)))
	if v.Notice != "" {
		lines = append(lines, errorStyle.Render(v.Notice))
	}
	return strings.Join(lines, "\n")
}

func renderInsights(v livesync.View) string {
	t := v.Totals
	parts := []string{
		"Capital " + livesync.FormatNumber(t.Aging.Capital),
		"Avg/store " + livesync.FormatNumber(t.AverageCapital()),
		fmt.Sprintf("RR/TT stores %d", v.ActiveCounts[aging.RateRevised]),
		fmt.Sprintf("Very danger stores %d", v.ActiveCounts[aging.VeryDanger]),
	}
	shares := make([]string, 0, len(aging.Statuses))
	for _, st := range aging.Statuses {
		shares = append(shares, statusStyles[st].Render(fmt.Sprintf("%s %.1f%%", st.Label(), t.Share(st))))
	}
	risk := fmt.Sprintf("Risk early %s · high %s · critical %s",
		livesync.FormatNumber(t.Risk.Early), livesync.FormatNumber(t.Risk.High), livesync.FormatNumber(t.Risk.Critical))
	return strings.Join(parts, " · ") + "\n" + strings.Join(shares, "  ") + "\n" + risk
}

func renderStores(v livesync.View, maxRows int) string {
	header := headerStyle.Render(fmt.Sprintf("%-10s %14s %12s %12s %12s %12s %12s",
		"Store", "Capital", "Healthy", "Transfer", "RR/TT", "Very danger", "Critical"))
	lines := []string{header}
	for i, s := range v.Stores {
		if i == maxRows {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("... %d more", len(v.Stores)-maxRows)))
			break
		}
		lines = append(lines, fmt.Sprintf("%-10s %14s %12s %12s %12s %12s %12s",
			s.ID,
			livesync.FormatNumber(s.TotalValue),
			livesync.FormatNumber(s.Aging.Healthy),
			livesync.FormatNumber(s.Aging.Transfer),
			livesync.FormatNumber(s.Aging.RateRevised),
			livesync.FormatNumber(s.Aging.VeryDanger),
			livesync.FormatNumber(s.Risk.Critical),
		))
	}
	lines = append(lines, mutedStyle.Render(v.TableStatus))
	return strings.Join(lines, "\n")
}

func renderInventory(v livesync.View, s screenState) string {
	inv := v.Inventory
	title := "Inventory (" + inv.Mode.String()
	if inv.AlertOnly {
		title += ", alert only"
	}
	title += ")"
	lines := []string{titleStyle.Render(title)}

	if len(inv.Items) > 0 {
		lines = append(lines, headerStyle.Render(fmt.Sprintf("%-12s %-24s %-10s %-8s %8s %6s %10s %-12s",
			"Style", "Article", "Category", "Store", "Qty", "Days", "MRP", "Status")))
		rows := 10
		if s.height > 0 {
			rows = max(3, s.height/4)
		}
		for i, it := range inv.Items {
			if i == rows {
				lines = append(lines, mutedStyle.Render(fmt.Sprintf("... %d more", len(inv.Items)-rows)))
				break
			}
			lines = append(lines, fmt.Sprintf("%-12s %-24s %-10s %-8s %8s %6s %10s %-12s",
				truncate(it.StyleCode, 12),
				truncate(it.ArticleName, 24),
				truncate(it.Category, 10),
				it.StoreID,
				livesync.FormatOptional(it.Quantity),
				livesync.FormatOptional(it.Days),
				livesync.FormatOptional(it.MRP),
				it.Status,
			))
		}
		if inv.Mode == livesync.ModeStatusSynced {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("Qty %s · Value %s",
				livesync.FormatNumber(inv.TotalQty), livesync.FormatNumber(inv.TotalValue))))
		}
	}
	status := inv.Status
	if inv.Loading {
		status = focusStyle.Render(status)
	}
	lines = append(lines, status)
	return strings.Join(lines, "\n")
}

// Summary renders a view as a single log-friendly line.
func Summary(v livesync.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "phase=%s %s", v.Phase, v.FilterStatus)
	fmt.Fprintf(&b, " | capital=%s", livesync.FormatNumber(v.Totals.Aging.Capital))
	fmt.Fprintf(&b, " | table=%q", v.TableStatus)
	fmt.Fprintf(&b, " | inventory[%s]=%q", v.Inventory.Mode, v.Inventory.Status)
	if v.Notice != "" {
		fmt.Fprintf(&b, " | notice=%q", v.Notice)
	}
	if v.Toast != nil {
		fmt.Fprintf(&b, " | toast=%q", v.Toast.Message)
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
