// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/model"
)

// Theme holds the styled components for the chat screen.
type Theme struct {
	Header     lipgloss.Style
	HeaderInfo lipgloss.Style

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	Body           lipgloss.Style
	Image          lipgloss.Style

	StatusBar lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Muted     lipgloss.Style

	InputBorder lipgloss.Style
}

// NewTheme builds the default theme.
func NewTheme() *Theme {
	return &Theme{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan).
			Padding(0, 1),
		HeaderInfo: lipgloss.NewStyle().
			Foreground(TextSecondary),

		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan),
		AssistantLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(Purple),
		SystemLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(Amber),
		Body: lipgloss.NewStyle().
			Foreground(TextPrimary).
			PaddingLeft(2),
		Image: lipgloss.NewStyle().
			Italic(true).
			Foreground(TextMuted).
			PaddingLeft(2),

		StatusBar: lipgloss.NewStyle().
			Foreground(TextSecondary).
			Padding(0, 1),
		Success: lipgloss.NewStyle().Foreground(Emerald),
		Error:   lipgloss.NewStyle().Foreground(Rose).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(Amber),
		Muted:   lipgloss.NewStyle().Foreground(TextMuted),

		InputBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Overlay),
	}
}

// RoleLabel renders the speaker label for a message.
func (t *Theme) RoleLabel(r model.Role) string {
	switch r {
	case model.RoleUser:
		return t.UserLabel.Render(r.DisplayName())
	case model.RoleAssistant:
		return t.AssistantLabel.Render(r.DisplayName())
	default:
		return t.SystemLabel.Render(r.DisplayName())
	}
}
