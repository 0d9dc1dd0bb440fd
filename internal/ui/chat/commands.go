// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/rigchat/internal/export"
	"github.com/jeranaias/rigchat/internal/model"
)

// commandHelp is shown by /help.
const commandHelp = "/image <path>  /model <name>  /load <id>  /export [json|markdown|yaml]"

// runCommand executes a slash command line.
func (m *Model) runCommand(line string) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "image", "img":
		if arg == "" {
			m.setStatus(false, "Usage: /image <path>")
			return
		}
		img, err := model.LoadImage(arg)
		if err != nil {
			m.setStatus(false, err.Error())
			return
		}
		m.image = img
		m.setStatus(true, "Attached "+arg)

	case "model":
		if arg == "" {
			m.setStatus(true, "Model: "+m.ctrl.Model())
			return
		}
		m.ctrl.SetModel(arg)
		m.setStatus(true, "Model set to "+arg)

	case "load":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			m.setStatus(false, "Usage: /load <id>")
			return
		}
		conv, err := m.ctrl.Load(m.ctx, id)
		if err != nil {
			m.setStatus(false, describe(err))
			return
		}
		m.partial = ""
		m.image = nil
		m.setStatus(true, fmt.Sprintf("Loaded #%d: %s", conv.ID, conv.Title))

	case "export":
		format := arg
		if format == "" {
			format = "json"
		}
		exp, err := export.ForFormat(format)
		if err != nil {
			m.setStatus(false, err.Error())
			return
		}
		opts := export.DefaultOptions()
		opts.OutputDir = m.opts.ExportDir
		path, err := export.ExportToFile(m.ctrl.Snapshot(), exp, opts)
		if err != nil {
			m.setStatus(false, err.Error())
			return
		}
		m.setStatus(true, "Exported to "+path)

	case "help", "?":
		m.setStatus(true, commandHelp)

	default:
		m.setStatus(false, "Unknown command /"+name)
	}
}
