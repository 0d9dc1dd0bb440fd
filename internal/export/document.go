// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"time"

	"github.com/jeranaias/rigchat/internal/model"
)

// document is the serialized shape shared by the JSON and YAML exporters.
type document struct {
	ID           int64             `json:"id,omitempty" yaml:"id,omitempty"`
	Title        string            `json:"title" yaml:"title"`
	Model        string            `json:"model" yaml:"model"`
	SystemPrompt string            `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	CreatedAt    *time.Time        `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt    *time.Time        `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Tags         []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Messages     []documentMessage `json:"messages" yaml:"messages"`
	ExportedAt   time.Time         `json:"exported_at" yaml:"exported_at"`
	Generator    string            `json:"generator" yaml:"generator"`
}

type documentMessage struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
	Image   string `json:"image,omitempty" yaml:"image,omitempty"`
}

func newDocument(conv *model.Conversation, exportedAt time.Time) document {
	doc := document{
		ID:           conv.ID,
		Title:        conv.Title,
		Model:        conv.Model,
		SystemPrompt: conv.SystemPrompt,
		CreatedAt:    timePtr(conv.CreatedAt),
		UpdatedAt:    timePtr(conv.UpdatedAt),
		Tags:         conv.Tags,
		Messages:     make([]documentMessage, 0, len(conv.Messages)),
		ExportedAt:   exportedAt.UTC(),
		Generator:    Generator,
	}
	for _, m := range conv.Messages {
		doc.Messages = append(doc.Messages, documentMessage{
			Role:    m.Role.String(),
			Content: m.Text(),
			Image:   m.Content.ImagePath,
		})
	}
	return doc
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
