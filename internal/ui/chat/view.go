// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file renders the chat layout: header, transcript viewport, input
// area, status bar, and the modal overlays.
package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/smartassist/internal/budget"
	"github.com/jeranaias/smartassist/internal/mode"
	"github.com/jeranaias/smartassist/internal/model"
)

// chartBarWidth is the width of the filled bar track in the budget chart.
const chartBarWidth = 24

// View renders the chat view.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelpOverlay()
	}
	if m.showModePicker {
		return m.renderModePicker()
	}
	if m.showConversations {
		return m.renderConversationList()
	}

	header := m.renderHeader()
	input := m.renderInput()
	status := m.renderStatusBar()

	var banner string
	if m.lastError != nil {
		banner = m.renderErrorBanner()
	}

	messages := m.viewport.View()

	sections := []string{header}
	if banner != "" {
		sections = append(sections, banner)
	}
	sections = append(sections, messages, input, status)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// updateViewport re-renders the transcript into the viewport.
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	badge := m.theme.ModeBadge.
		Background(m.theme.ModeAccent(m.currentMode.ID)).
		Render(m.currentMode.Label)

	title := m.theme.HeaderTitle.Render("SmartAssist")

	var subtitle string
	if t := m.conversation.GetTitle(); t != "" {
		subtitle = m.theme.HeaderSubtitle.Render(t)
	} else {
		subtitle = m.theme.HeaderSubtitle.Render(m.currentMode.Description)
	}

	line := lipgloss.JoinHorizontal(lipgloss.Center, title, " ", badge, "  ", subtitle)
	return m.theme.Header.Width(m.width).Render(line)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderMessages renders the full transcript, the suggestion chips on a
// fresh conversation, and the thinking indicator while waiting for the
// first token.
func (m Model) renderMessages() string {
	var parts []string

	for _, msg := range m.conversation.Messages {
		rendered := m.renderMessage(msg)
		if rendered != "" {
			parts = append(parts, rendered)
		}
		// Budget replies with recognizable line items get an inline chart.
		if m.currentMode.ID == mode.Budget && msg.Role == model.RoleAssistant &&
			!msg.Greeting && !msg.IsStreaming && !msg.Failed {
			if items := budget.Extract(msg.Content); items != nil {
				parts = append(parts, m.renderBudgetChart(items))
			}
		}
	}

	if m.conversation.IsFresh() {
		parts = append(parts, m.renderSuggestions())
	}

	if m.thinking {
		parts = append(parts, m.renderThinking())
	}

	return strings.Join(parts, "\n")
}

func (m Model) renderMessage(msg *model.Message) string {
	switch {
	case msg.Greeting:
		return m.renderGreeting(msg)
	case msg.Role == model.RoleUser:
		return m.renderUserMessage(msg)
	case msg.Role == model.RoleAssistant:
		return m.renderAssistantMessage(msg)
	default:
		return ""
	}
}

func (m Model) renderGreeting(msg *model.Message) string {
	maxWidth := m.bubbleWidth()
	bubble := m.theme.GreetingBubble.MaxWidth(maxWidth)
	label := m.theme.MessageLabel.Render(m.currentMode.Label)
	body := bubble.Render(wrapText(msg.GetDisplayContent(), maxWidth-4))
	return lipgloss.JoinVertical(lipgloss.Left, label, body)
}

func (m Model) renderUserMessage(msg *model.Message) string {
	maxWidth := m.bubbleWidth()
	rendered := m.theme.UserBubble.MaxWidth(maxWidth).
		Render(wrapText(msg.GetDisplayContent(), maxWidth-4))

	// User bubbles align right.
	marginLeft := m.width - lipgloss.Width(rendered) - 2
	if marginLeft < 0 {
		marginLeft = 0
	}
	return lipgloss.NewStyle().
		MarginLeft(marginLeft).
		MarginTop(1).
		Render(rendered)
}

func (m Model) renderAssistantMessage(msg *model.Message) string {
	maxWidth := m.bubbleWidth()
	content := msg.GetDisplayContent()

	if strings.TrimSpace(content) == "" && !msg.IsStreaming {
		return ""
	}

	var body string
	switch {
	case msg.IsStreaming:
		// Raw text plus cursor while tokens arrive; markdown rendering
		// waits for the finalized message.
		cursor := lipgloss.NewStyle().Foreground(m.theme.ModeAccent(m.currentMode.ID)).Render("▌")
		body = wrapText(content, maxWidth-4) + cursor
	case msg.Failed:
		body = wrapText(content, maxWidth-4)
	default:
		body = renderMarkdown(content, maxWidth-4)
	}

	bubble := m.theme.AssistantBubble
	if msg.Failed {
		bubble = m.theme.FailedBubble
	}
	rendered := bubble.MaxWidth(maxWidth).Render(body)

	var meta string
	if !msg.IsStreaming && !msg.Failed {
		if stats := formatStats(msg); stats != "" {
			meta = m.theme.MessageMeta.Render(stats)
		}
	}
	if msg.Failed {
		meta = m.theme.MessageMeta.Render("response interrupted")
	}

	out := lipgloss.NewStyle().MarginTop(1).Render(rendered)
	if meta != "" {
		out = lipgloss.JoinVertical(lipgloss.Left, out, meta)
	}
	return out
}

// bubbleWidth returns the maximum bubble width for the current terminal.
func (m Model) bubbleWidth() int {
	w := m.width - 8
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) renderThinking() string {
	return lipgloss.NewStyle().MarginTop(1).MarginLeft(2).Render(
		m.spinner.View() + " " + m.theme.ThinkingText.Render("Thinking..."),
	)
}

// renderSuggestions renders the mode's suggestion chips with their number
// key shortcuts.
func (m Model) renderSuggestions() string {
	var chips []string
	for i, s := range m.currentMode.Suggestions {
		if s == "" {
			continue
		}
		key := m.theme.SuggestionKey.Render(fmt.Sprintf("%d", i+1))
		chip := m.theme.SuggestionChip.Render(s)
		chips = append(chips, lipgloss.JoinHorizontal(lipgloss.Center, key, " ", chip))
	}
	hint := m.theme.MessageMeta.Render("Try one of these, or just start typing:")
	return lipgloss.NewStyle().MarginTop(1).MarginLeft(2).Render(
		lipgloss.JoinVertical(lipgloss.Left, append([]string{hint}, chips...)...),
	)
}

// =============================================================================
// BUDGET CHART
// =============================================================================

// renderBudgetChart renders extracted budget line items as a horizontal bar
// chart with a total row.
func (m Model) renderBudgetChart(items []budget.Item) string {
	var max float64
	nameWidth := 0
	for _, it := range items {
		if it.Value > max {
			max = it.Value
		}
		if w := runewidth.StringWidth(it.Name); w > nameWidth {
			nameWidth = w
		}
	}
	if max <= 0 {
		return ""
	}

	var rows []string
	rows = append(rows, m.theme.ChartTitle.Render("Budget Breakdown"))
	for _, it := range items {
		filled := int(it.Value / max * chartBarWidth)
		if filled < 1 {
			filled = 1
		}
		bar := m.theme.ChartFill.Render(strings.Repeat("█", filled)) +
			m.theme.ChartEmpty.Render(strings.Repeat("░", chartBarWidth-filled))
		label := m.theme.ChartLabel.Render(runewidth.FillRight(it.Name, nameWidth))
		value := m.theme.ChartValue.Render(fmt.Sprintf("$%.0f", it.Value))
		rows = append(rows, label+" "+bar+" "+value)
	}
	rows = append(rows, m.theme.ChartValue.Render(fmt.Sprintf("Total: $%.0f", budget.Total(items))))

	return m.theme.ChartBox.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// INPUT / STATUS
// =============================================================================

func (m Model) renderInput() string {
	var content string
	if m.state == StateStreaming {
		content = m.theme.ThinkingText.Render("Streaming... press esc to stop")
	} else {
		content = m.input.View()
	}
	return m.theme.InputContainer.Width(m.width - 2).Render(content)
}

func (m Model) renderStatusBar() string {
	if m.statusText != "" {
		return m.theme.StatusBar.Width(m.width).Render(m.statusText)
	}
	return m.theme.StatusBar.Width(m.width).Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

// =============================================================================
// ERROR BANNER
// =============================================================================

func (m Model) renderErrorBanner() string {
	e := m.lastError
	lines := []string{
		m.theme.ErrorTitle.Render(e.Title),
		m.theme.ErrorMessage.Render(e.Message),
	}
	for _, s := range e.Suggestions {
		lines = append(lines, m.theme.ErrorSuggestion.Render("• "+s))
	}
	lines = append(lines, m.theme.MessageMeta.Render("esc to dismiss"))
	return m.theme.ErrorBox.MaxWidth(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m Model) renderModePicker() string {
	var rows []string
	rows = append(rows, m.theme.HeaderTitle.Render("Switch Mode"), "")
	for i, md := range mode.List() {
		label := md.Label
		style := m.theme.PickerItem
		if i == m.pickerIndex {
			style = m.theme.PickerItemSelected
			label = "> " + label
		} else {
			label = "  " + label
		}
		rows = append(rows,
			style.Render(label),
			m.theme.PickerDesc.Render("    "+md.Description),
		)
	}
	rows = append(rows, "", m.theme.MessageMeta.Render("enter select · esc close"))

	box := m.theme.PickerBox.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderConversationList() string {
	var rows []string
	rows = append(rows, m.theme.HeaderTitle.Render("Conversations"), "")

	if m.convInputMode != overlayInputNone {
		label := "Search:"
		if m.convInputMode == overlayInputRename {
			label = "Rename:"
		}
		rows = append(rows,
			m.theme.SessionMeta.Render(label),
			m.convInput.View(),
			"",
		)
	} else if m.convFilter != "" {
		rows = append(rows,
			m.theme.SessionMeta.Render(fmt.Sprintf("Matching %q (esc clears)", m.convFilter)),
			"",
		)
	}

	if len(m.convList) == 0 {
		empty := "No saved conversations yet."
		if m.convFilter != "" {
			empty = "No matches."
		}
		rows = append(rows, m.theme.SessionMeta.Render(empty))
	}
	for i, meta := range m.convList {
		style := m.theme.SessionItem
		prefix := "  "
		if i == m.convIndex {
			style = m.theme.SessionItemSelected
			prefix = "> "
		}
		title := meta.Title
		if title == "" {
			title = "(untitled)"
		}
		detail := fmt.Sprintf("%s · %d messages · %s",
			meta.Mode, meta.MessageCount, formatTimestamp(meta.UpdatedAt))
		rows = append(rows,
			style.Render(prefix+m.theme.SessionTitle.Render(title)),
			m.theme.SessionMeta.Render("    "+detail),
		)
	}
	rows = append(rows, "", m.theme.MessageMeta.Render("enter load · d delete · r rename · / search · esc close"))

	box := m.theme.SessionList.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderHelpOverlay() string {
	var rows []string
	rows = append(rows, m.theme.HeaderTitle.Render("Keyboard Shortcuts"), "")
	for _, group := range m.keys.FullHelp() {
		for _, binding := range group {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Center,
				m.theme.ShortcutKey.Render(runewidth.FillRight(binding.Help().Key, 12)),
				m.theme.ShortcutDesc.Render(binding.Help().Desc),
			))
		}
		rows = append(rows, "")
	}
	rows = append(rows, m.theme.MessageMeta.Render("esc to close"))

	box := m.theme.PickerBox.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// MARKDOWN
// =============================================================================

// Glamour renderers are expensive to build, so one is cached per wrap
// width. The mutex guards against View racing a resize.
var (
	mdMu       sync.Mutex
	mdRenderer *glamour.TermRenderer
	mdWidth    int
)

// renderMarkdown renders assistant markdown at the given wrap width,
// falling back to the raw text if rendering fails.
func renderMarkdown(content string, width int) string {
	if width < 10 {
		width = 10
	}

	mdMu.Lock()
	defer mdMu.Unlock()

	if mdRenderer == nil || mdWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		mdRenderer = r
		mdWidth = width
	}

	out, err := mdRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

// =============================================================================
// TEXT UTILITIES
// =============================================================================

// formatTimestamp formats a timestamp relative to now: time only for
// today, weekday for this week, date otherwise.
func formatTimestamp(t time.Time) string {
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if now.Sub(t) < 7*24*time.Hour {
		return t.Format("Mon 15:04")
	}
	return t.Format("Jan 2 15:04")
}

// wrapText wraps text at maxWidth, preferring to break on spaces.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}

	var result strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			result.WriteString("\n")
		}

		runes := []rune(line)
		for len(runes) > maxWidth {
			breakPoint := maxWidth
			for j := maxWidth; j > 0; j-- {
				if runes[j] == ' ' {
					breakPoint = j
					break
				}
			}
			result.WriteString(string(runes[:breakPoint]))
			result.WriteString("\n")
			runes = []rune(strings.TrimLeft(string(runes[breakPoint:]), " "))
		}
		result.WriteString(string(runes))
	}

	return result.String()
}
