// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller holds the in-memory conversation and drives streaming
// sessions and persistence for it.
//
// A Controller owns the message list. Send and Regenerate start one
// streaming session at a time on a background goroutine; every event it
// produces is handed to the Dispatcher supplied by the presentation layer,
// which runs it on the presentation loop. When the session completes the
// assistant reply is appended and, with auto-save on, the conversation is
// persisted. Nothing is saved on a timer or mid-stream.
//
// # Usage
//
//	ctrl := controller.New(client, store, controller.Options{
//	    Model:    "llama3",
//	    Params:   model.DefaultParameters(),
//	    AutoSave: true,
//	    Dispatch: func(fn func()) { program.Send(runMsg(fn)) },
//	    Events:   controller.Events{OnToken: ..., OnComplete: ...},
//	})
//	ctrl.NewChat()
//	err := ctrl.Send(ctx, "Hello", nil)
package controller
