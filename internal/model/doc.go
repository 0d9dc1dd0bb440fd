// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the chat core.
//
// # Key Types
//
//   - Message: One turn in a conversation (user or assistant)
//   - Content: Tagged variant holding plain text or text plus an image path
//   - Conversation: Titled, timestamped, ordered sequence of messages plus tags
//   - Parameters: Sampling parameters sent with every generation
//   - GenerationRequest: Immutable input to one streaming exchange
//
// # Usage
//
//	msgs := []model.Message{
//	    model.NewAssistantMessage(model.Greeting),
//	    model.NewUserMessage("Hello"),
//	}
//	req := model.NewGenerationRequest("llama3", "Hello", msgs[:1], model.DefaultParameters(), "", baseURL)
package model
