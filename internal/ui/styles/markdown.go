// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// DefaultWrap is the word-wrap width used when the terminal size is unknown.
const DefaultWrap = 80

// MarkdownRenderer renders assistant replies for the terminal. A nil or
// failed renderer falls back to the raw text.
type MarkdownRenderer struct {
	mu     sync.Mutex
	theme  string
	width  int
	render *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer for a glamour style ("dark",
// "light" or "auto") and wrap width.
func NewMarkdownRenderer(theme string, width int) *MarkdownRenderer {
	r := &MarkdownRenderer{theme: strings.ToLower(theme)}
	r.SetWidth(width)
	return r
}

// SetWidth rebuilds the renderer when the wrap width changes.
func (r *MarkdownRenderer) SetWidth(width int) {
	if width <= 0 {
		width = DefaultWrap
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.render != nil && r.width == width {
		return
	}

	style := glamour.WithStandardStyle(r.theme)
	if r.theme == "" || r.theme == "auto" {
		style = glamour.WithAutoStyle()
	}
	tr, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		r.render = nil
		return
	}
	r.width = width
	r.render = tr
}

// Render returns content as styled terminal text. It returns content
// unchanged if rendering fails.
func (r *MarkdownRenderer) Render(content string) string {
	if r == nil {
		return content
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.render == nil {
		return content
	}
	out, err := r.render.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
