// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import "errors"

var (
	// ErrBusy is returned when a session is already streaming.
	ErrBusy = errors.New("a response is already being generated")

	// ErrEmptyPrompt is returned by Send with neither text nor image.
	ErrEmptyPrompt = errors.New("message is empty")

	// ErrNothingToRegenerate is returned when the conversation does not end
	// with a user message followed by an assistant reply.
	ErrNothingToRegenerate = errors.New("no assistant reply to regenerate")

	// ErrNoStore is returned by Persist and Load without a store.
	ErrNoStore = errors.New("no conversation store configured")

	// ErrNothingToSave is returned by Persist on an empty conversation.
	ErrNothingToSave = errors.New("nothing to save")
)
