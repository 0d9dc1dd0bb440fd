// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the colors, lipgloss styles and markdown renderer
// shared by the chat TUI and the CLI.
//
// All colors are lipgloss.AdaptiveColor values so light and dark terminals
// both read well.
package styles
