// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// Greeting seeds every new chat. It is part of the persisted record.
const Greeting = "Hello! I'm your Ollama-powered assistant. How can I help you today?"

// DefaultTitle is used when a conversation has no user message yet.
const DefaultTitle = "New Conversation"

// TitleMaxRunes is the length after which derived titles are truncated.
const TitleMaxRunes = 30

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a titled, timestamped, ordered sequence of messages.
// ID is zero until the store assigns one on first save.
type Conversation struct {
	ID           int64
	Title        string
	Model        string
	SystemPrompt string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Messages     []Message
	Tags         []string
}

// IsNew reports whether the conversation has never been persisted.
func (c *Conversation) IsNew() bool {
	return c.ID == 0
}

// Summary is one row of a conversation listing.
type Summary struct {
	ID           int64
	Title        string
	Model        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
	Tags         []string
}

// TagString joins the tag names the way listings display them.
func (s Summary) TagString() string {
	return strings.Join(s.Tags, ", ")
}

// SearchHit is one matching message returned by a content search.
// Several hits may share a conversation ID.
type SearchHit struct {
	ID        int64
	Title     string
	Model     string
	Snippet   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stats aggregates store-wide counters.
type Stats struct {
	ConversationCount int
	MessageCount      int
	ModelUsage        map[string]int
	TagCounts         map[string]int
}

// =============================================================================
// TITLES
// =============================================================================

// DeriveTitle builds a conversation title from the first user message:
// its text truncated to TitleMaxRunes runes with "..." appended when longer,
// or DefaultTitle when there is no user message.
func DeriveTitle(msgs []Message) string {
	for _, m := range msgs {
		if m.Role != RoleUser {
			continue
		}
		runes := []rune(m.Text())
		if len(runes) > TitleMaxRunes {
			return string(runes[:TitleMaxRunes]) + "..."
		}
		return m.Text()
	}
	return DefaultTitle
}
