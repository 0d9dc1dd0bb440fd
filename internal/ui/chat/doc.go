// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the interactive chat screen.
//
// The screen is a bubbletea program wrapped around a controller.Controller.
// Controller events arrive on stream goroutines; Model.Dispatch forwards each
// one to the program as a message so every state change happens inside
// Update.
//
// # Keys
//
//   - Enter: send, Alt+Enter: newline
//   - Esc: cancel the reply in progress
//   - Ctrl+R: regenerate the last reply
//   - Ctrl+N: new chat
//   - Ctrl+S: save
//   - Ctrl+C: quit
//
// # Slash Commands
//
//	/image <path>   attach an image to the next message
//	/model <name>   switch model
//	/load <id>      open a saved conversation
//	/export [fmt]   export to json, markdown or yaml
//	/help           list commands
package chat
