package app

import (
	"fmt"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"

	"clawtui/internal/sessionsync"
)

// The Notifier methods only mark parts of the view stale; flush rebuilds them
// once per Update.
var _ sessionsync.Notifier = (*Model)(nil)

func (m *Model) UpdateHeader()               { m.headerDirty = true }
func (m *Model) UpdateFooter()               { m.footerDirty = true }
func (m *Model) UpdateAutocompleteProvider() { m.suggestionsDirty = true }
func (m *Model) RequestRender()              { m.renderDirty = true }

// stateObserver forwards to the configured observer and repaints the footer
// when the coalescer changes state.
type stateObserver struct {
	sessionsync.Observer
	model *Model
}

func (o stateObserver) RefreshStateChanged(state sessionsync.RefreshState) {
	o.Observer.RefreshStateChanged(state)
	o.model.footerDirty = true
}

func (m *Model) renderHeader() string {
	state := m.state
	line := headerStyle.Render("clawtui") + " " + headerMetaStyle.Render(fmt.Sprintf("agent %s", state.CurrentAgentID))
	session := state.CurrentSessionKey
	if name := state.SessionInfo.DisplayName; name != "" {
		session += " (" + name + ")"
	}
	line += headerMetaStyle.Render(" · " + session)
	if id := state.CurrentSessionID; id != "" {
		line += headerMetaStyle.Render(" · " + shortID(id))
	}
	if m.connection != "" {
		line += headerMetaStyle.Render(" · " + m.connection)
	}
	return xansi.Truncate(line, m.width, "…")
}

func (m *Model) renderFooter() string {
	info := m.state.SessionInfo
	parts := make([]string, 0, 5)

	model := info.Model
	if model == "" {
		model = "model unknown"
	} else if info.ModelProvider != "" {
		model = info.ModelProvider + "/" + model
	}
	parts = append(parts, model)
	if info.ThinkingLevel != "" {
		parts = append(parts, "think "+info.ThinkingLevel)
	}
	parts = append(parts, "tokens "+formatTokens(info.TotalTokens, info.ContextTokens))
	if m.state.HistoryLoaded {
		parts = append(parts, fmt.Sprintf("history %d", m.state.HistoryMessageCount))
	} else {
		parts = append(parts, "history loading")
	}

	line := strings.Join(parts, " · ")
	style := footerStyle
	if m.actions.CoalescerState().Busy() {
		line = m.spinner.View() + " " + line
		style = footerBusyStyle
	}
	return style.Width(max(m.width, 1)).Render(xansi.Truncate(line, m.width, "…"))
}

func (m *Model) suggestions() []string {
	out := make([]string, 0, len(commandNames)+len(m.state.KnownSessionKeys))
	for _, name := range commandNames {
		out = append(out, "/"+name)
	}
	for _, key := range m.state.KnownSessionKeys {
		out = append(out, "/session "+key)
	}
	return out
}

func formatTokens(total, window int64) string {
	if window <= 0 {
		return compactCount(total)
	}
	pct := total * 100 / window
	return fmt.Sprintf("%s/%s (%d%%)", compactCount(total), compactCount(window), pct)
}

func compactCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return trimDecimal(float64(n)/1_000_000) + "m"
	case n >= 1_000:
		return trimDecimal(float64(n)/1_000) + "k"
	default:
		return fmt.Sprintf("%d", n)
	}
}

func trimDecimal(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	return strings.TrimSuffix(s, ".0")
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
