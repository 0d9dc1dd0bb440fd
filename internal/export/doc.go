// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversations to files.
//
// # Formats
//
//   - JSON: the full conversation, suitable for re-import
//   - Markdown: YAML frontmatter followed by a readable transcript
//   - YAML: the same document as JSON
//
// # Usage
//
//	exp, err := export.ForFormat("md")
//	path, err := export.ExportToFile(conv, exp, &export.Options{OutputDir: dir})
//
// Files are written atomically; a failed export never leaves a partial file.
package export
