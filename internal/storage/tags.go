// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// AddTag creates the tag if needed and links it to conversation id.
//
// It reports false with a nil error when the conversation already carries
// the tag. A missing conversation is ErrConversationNotFound, so "already
// tagged" and "could not tag" are never conflated.
func (s *ConversationStore) AddTag(ctx context.Context, id int64, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrEmptyTag
	}

	added := false
	err := s.withTx(ctx, "add tag", func(tx *sql.Tx) error {
		if err := requireConversation(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, name); err != nil {
			return err
		}
		var tagID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&tagID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO conversation_tags (conversation_id, tag_id) VALUES (?, ?)`, id, tagID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		added = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// RemoveTag unlinks a tag from a conversation. The tag itself is kept.
func (s *ConversationStore) RemoveTag(ctx context.Context, id int64, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM conversation_tags
		WHERE conversation_id = ?
		  AND tag_id = (SELECT id FROM tags WHERE name = ?)`,
		id, strings.TrimSpace(name))
	if err != nil {
		return false, wrap("remove tag", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("remove tag", err)
	}
	return n > 0, nil
}

// ListTags returns every known tag name in alphabetical order.
func (s *ConversationStore) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM tags ORDER BY name`)
	if err != nil {
		return nil, wrap("list tags", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrap("list tags", err)
		}
		names = append(names, name)
	}
	return names, wrap("list tags", rows.Err())
}

func (s *ConversationStore) conversationTags(ctx context.Context, id int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name FROM tags t
		JOIN conversation_tags ct ON ct.tag_id = t.id
		WHERE ct.conversation_id = ?
		ORDER BY t.name`, id)
	if err != nil {
		return nil, wrap("get tags", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrap("get tags", err)
		}
		names = append(names, name)
	}
	return names, wrap("get tags", rows.Err())
}

func requireConversation(ctx context.Context, tx *sql.Tx, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConversationNotFound
	}
	return err
}
