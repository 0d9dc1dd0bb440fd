// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	sections := []string{
		m.headerView(),
		m.viewport.View(),
		" " + m.progress.View(),
		m.theme.InputBorder.Render(m.input.View()),
		m.statusView(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) headerView() string {
	info := m.ctrl.Model()
	if id := m.ctrl.ConversationID(); id != 0 {
		info += fmt.Sprintf(" · #%d", id)
	}
	if m.image != nil {
		info += " · image attached"
	}
	title := m.theme.Header.Render("rigchat")
	return title + m.theme.HeaderInfo.Render(util.TruncateWidth(info, m.width-lipgloss.Width(title)))
}

func (m *Model) statusView() string {
	if m.showHelp {
		return m.help.FullHelpView(m.keys.FullHelp())
	}
	var text string
	switch {
	case m.status != "" && m.statusOK:
		text = m.theme.Success.Render(m.status)
	case m.status != "":
		text = m.theme.Error.Render(styles.StatusIndicators.Error + " " + m.status)
	case m.ctrl.Busy():
		text = m.theme.Muted.Render(fmt.Sprintf("%s Generating... %d%%", styles.StatusIndicators.Pending, m.percent))
	default:
		text = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return m.theme.StatusBar.Render(text)
}

// refresh rebuilds the transcript and scrolls to the bottom.
func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m *Model) transcript() string {
	var sb strings.Builder
	for _, msg := range m.ctrl.Messages() {
		m.writeMessage(&sb, msg.Role, m.body(msg))
		if msg.Content.HasImage() {
			sb.WriteString(m.theme.Image.Render("[image: "+msg.Content.ImagePath+"]") + "\n")
		}
		sb.WriteString("\n")
	}
	if m.ctrl.Busy() {
		body := m.partial
		if body == "" {
			body = "..."
		}
		m.writeMessage(&sb, model.RoleAssistant, m.theme.Body.Render(body))
	}
	return sb.String()
}

func (m *Model) writeMessage(sb *strings.Builder, role model.Role, body string) {
	sb.WriteString(m.theme.RoleLabel(role))
	sb.WriteString("\n")
	sb.WriteString(body)
	sb.WriteString("\n")
}

// body renders one finished message. Rendered markdown is cached by text.
func (m *Model) body(msg model.Message) string {
	if msg.Role != model.RoleAssistant || m.md == nil {
		return m.theme.Body.Width(m.bodyWidth()).Render(msg.Text())
	}
	if out, ok := m.rendered[msg.Text()]; ok {
		return out
	}
	out := m.md.Render(msg.Text())
	m.rendered[msg.Text()] = out
	return out
}

func (m *Model) bodyWidth() int {
	if m.width <= 4 {
		return styles.DefaultWrap
	}
	return m.width - 2
}
