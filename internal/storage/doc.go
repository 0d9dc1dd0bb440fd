// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for rigchat.
//
// Conversations, their messages, tags and key/value settings live in a
// single SQLite file (pure Go driver, no cgo).
//
// # Key Types
//
//   - ConversationStore: Durable store for conversations, tags and settings
//   - UpdateOptions: Partial update of a stored conversation
//   - ListOptions: Paging and search for listings
//   - StoreError: Wraps every driver failure; matches ErrPersistence
//
// # Usage
//
//	store, err := storage.Open(path)
//	id, err := store.Save(ctx, "Hello", "llama3", msgs, "")
//	conv, err := store.Get(ctx, id)
//	summaries, err := store.List(ctx, storage.ListOptions{Search: "hello"})
//
// # Concurrency
//
// The pool holds at most one connection and keeps none idle, so every
// operation opens the file, runs (inside a transaction when it writes more
// than one row) and closes it again. Nothing is held open between calls.
package storage
