// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"

	"github.com/jeranaias/rigchat/internal/model"
)

// Stats gathers store-wide counts: conversations, messages, conversations
// per model and conversations per tag.
func (s *ConversationStore) Stats(ctx context.Context) (*model.Stats, error) {
	st := &model.Stats{
		ModelUsage: make(map[string]int),
		TagCounts:  make(map[string]int),
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&st.ConversationCount); err != nil {
		return nil, wrap("stats", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&st.MessageCount); err != nil {
		return nil, wrap("stats", err)
	}
	if err := s.countInto(ctx, st.ModelUsage, `
		SELECT model, COUNT(*) FROM conversations GROUP BY model`); err != nil {
		return nil, err
	}
	if err := s.countInto(ctx, st.TagCounts, `
		SELECT t.name, COUNT(ct.conversation_id)
		FROM tags t JOIN conversation_tags ct ON ct.tag_id = t.id
		GROUP BY t.name`); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *ConversationStore) countInto(ctx context.Context, dst map[string]int, query string) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return wrap("stats", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return wrap("stats", err)
		}
		dst[name] = n
	}
	return wrap("stats", rows.Err())
}
