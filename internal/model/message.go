// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "slices"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether r may appear in a stored conversation.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// CONTENT VARIANT
// =============================================================================

// ContentKind discriminates the Content variant.
type ContentKind int

const (
	// ContentText is plain text.
	ContentText ContentKind = iota
	// ContentImage is text paired with the path of an attached image.
	ContentImage
)

// Content is the body of a message: either plain text or a text/image-path pair.
// Build it with TextContent or ImageContent.
type Content struct {
	Kind      ContentKind
	Text      string
	ImagePath string
}

// TextContent returns a plain-text content value.
func TextContent(text string) Content {
	return Content{Kind: ContentText, Text: text}
}

// ImageContent returns a content value carrying an attached image path.
// An empty path degrades to plain text.
func ImageContent(text, imagePath string) Content {
	if imagePath == "" {
		return TextContent(text)
	}
	return Content{Kind: ContentImage, Text: text, ImagePath: imagePath}
}

// HasImage reports whether the content carries an image path.
func (c Content) HasImage() bool {
	return c.Kind == ContentImage && c.ImagePath != ""
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content Content

	// Images holds base64 image payloads replayed to the server with this
	// message. Kept in memory only; the store persists Content.ImagePath.
	Images []string
}

// NewUserMessage creates a plain-text user message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: TextContent(text)}
}

// NewAssistantMessage creates a plain-text assistant message.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: TextContent(text)}
}

// Text returns the textual part of the message regardless of variant.
func (m Message) Text() string {
	return m.Content.Text
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	m.Images = slices.Clone(m.Images)
	return m
}

// CloneMessages deep-copies a message slice.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
