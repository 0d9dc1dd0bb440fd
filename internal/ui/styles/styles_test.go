// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/rigchat/internal/model"
)

func TestTheme_RoleLabel(t *testing.T) {
	th := NewTheme()
	assert.Contains(t, th.RoleLabel(model.RoleUser), "You")
	assert.Contains(t, th.RoleLabel(model.RoleAssistant), "Assistant")
	assert.Contains(t, th.RoleLabel(model.RoleSystem), "System")
}

func TestMarkdownRenderer_Render(t *testing.T) {
	r := NewMarkdownRenderer("dark", 40)
	out := r.Render("# Title\n\nsome **bold** text")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
	assert.NotContains(t, out, "**")
}

func TestMarkdownRenderer_NilFallsBack(t *testing.T) {
	var r *MarkdownRenderer
	assert.Equal(t, "plain *text*", r.Render("plain *text*"))
}

func TestMarkdownRenderer_SetWidthKeepsRenderer(t *testing.T) {
	r := NewMarkdownRenderer("light", 0)
	assert.Equal(t, DefaultWrap, r.width)
	r.SetWidth(60)
	assert.Equal(t, 60, r.width)
	assert.NotNil(t, r.render)
}
