// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rigchat command line.
//
// Usage:
//
//	rigchat                          Start the chat screen (default)
//	rigchat chat [--plain]           Interactive chat, optionally line-based
//	rigchat ask "question"           Ask a single question
//	rigchat models                   List installed models
//	rigchat history list|search|show|delete|tag|tags|export
//	rigchat stats                    Conversation statistics
//	rigchat config show|init|path|get|set
//	rigchat settings get|set|delete
//
// Global flags override the config file, which overrides the defaults.
// Environment variables (RIGCHAT_*) and a .env file in the working directory
// are applied between the file and the flags.
package cli
