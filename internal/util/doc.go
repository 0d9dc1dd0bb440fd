// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the rigchat packages.
//
// # Key Functions
//
// Text:
//   - TruncateRunes: UTF-8 safe truncation with an ellipsis
//   - TruncateWidth, PadWidth: column-aware fitting for terminal tables
//   - SingleLine: collapse a multi-line message into one display line
//
// Files:
//   - AtomicWrite, AtomicWriteFile: crash-safe writes with fsync and rename
package util
