// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client and streaming pipeline for the
// Ollama chat API.
//
// # Key Types
//
//   - Client: HTTP client for model listing and chat sessions
//   - Session: One streaming /api/chat exchange, runnable exactly once
//   - StreamState: Text and token count accumulated by one Session
//   - Events: Callbacks raised by a Session (token, progress, complete, error)
//   - Chunk: One decoded line of streamed output
//
// # Usage
//
//	client := ollama.NewClient()
//	state, err := client.NewSession().Run(ctx, req, ollama.Events{
//	    OnToken:    func(tok string) { fmt.Print(tok) },
//	    OnComplete: func(text string) { fmt.Println() },
//	    OnError:    func(err error) { fmt.Println(err) },
//	})
//
// Callbacks run on the goroutine that called Run. Callers that own a UI
// loop run the session on a separate goroutine and marshal each callback
// onto that loop themselves.
package ollama
