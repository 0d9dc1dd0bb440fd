// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/controller"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dispatchMsg:
		msg()
		return m, m.flush()

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, tea.Batch(cmd, m.flush())
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// flush returns the commands queued by controller events.
func (m *Model) flush() tea.Cmd {
	if len(m.pending) == 0 {
		return nil
	}
	cmds := m.pending
	m.pending = nil
	return tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.ctrl.Cancel()
		return tea.Quit, true

	case key.Matches(msg, m.keys.Send):
		return m.submit(), true

	case key.Matches(msg, m.keys.Cancel):
		if m.ctrl.Cancel() {
			m.partial = ""
			m.setStatus(false, "Cancelled")
			m.refresh()
		}
		return m.progress.SetPercent(0), true

	case key.Matches(msg, m.keys.Regenerate):
		if err := m.ctrl.Regenerate(m.ctx); err != nil {
			m.setStatus(false, describe(err))
			return nil, true
		}
		return m.started(), true

	case key.Matches(msg, m.keys.NewChat):
		m.ctrl.NewChat()
		m.partial = ""
		m.image = nil
		m.setStatus(true, "New chat")
		m.refresh()
		return m.progress.SetPercent(0), true

	case key.Matches(msg, m.keys.Save):
		m.save()
		return nil, true

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return nil, true

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return nil, true

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return nil, true
	}
	return nil, false
}

// submit sends the input, or runs it as a slash command.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		m.runCommand(text)
		m.refresh()
		return nil
	}

	if err := m.ctrl.Send(m.ctx, text, m.image); err != nil {
		m.setStatus(false, describe(err))
		return nil
	}
	m.input.Reset()
	m.image = nil
	return m.started()
}

// started resets the streaming view for a new reply.
func (m *Model) started() tea.Cmd {
	m.partial = ""
	m.percent = 0
	m.setStatus(true, "")
	m.refresh()
	return m.progress.SetPercent(0)
}

func (m *Model) save() {
	id, err := m.ctrl.Persist(m.ctx)
	if err != nil {
		m.setStatus(false, describe(err))
		return
	}
	m.setStatus(true, fmt.Sprintf("Saved conversation #%d", id))
}

// describe turns controller errors into status-bar text.
func describe(err error) string {
	switch {
	case errors.Is(err, controller.ErrBusy):
		return "Still answering; press Esc to cancel"
	case errors.Is(err, controller.ErrEmptyPrompt):
		return "Type a message first"
	case errors.Is(err, controller.ErrNothingToRegenerate):
		return "Nothing to regenerate"
	case errors.Is(err, controller.ErrNoStore):
		return "No database configured"
	default:
		return err.Error()
	}
}
