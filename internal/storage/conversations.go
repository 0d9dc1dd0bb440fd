// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/jeranaias/rigchat/internal/model"
)

// DefaultListLimit is the page size used when ListOptions.Limit is zero.
const DefaultListLimit = 20

// tagSep separates tag names inside group_concat results.
const tagSep = "\x1f"

// =============================================================================
// OPTIONS
// =============================================================================

// UpdateOptions selects which parts of a conversation Update rewrites.
type UpdateOptions struct {
	// Title replaces the title when non-nil.
	Title *string

	// Messages replaces the whole message set when non-nil or when
	// ReplaceMessages is set (which allows replacing with nothing).
	Messages        []model.Message
	ReplaceMessages bool
}

func (o UpdateOptions) replacesMessages() bool {
	return o.Messages != nil || o.ReplaceMessages
}

// ListOptions controls paging and filtering of List.
type ListOptions struct {
	Limit  int // 0 means DefaultListLimit, negative means no limit
	Offset int
	Search string // matched against titles and message text, case-insensitively
}

func limitOf(n int) int {
	switch {
	case n == 0:
		return DefaultListLimit
	case n < 0:
		return -1
	default:
		return n
	}
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// Save inserts a new conversation with all its messages and returns its id.
func (s *ConversationStore) Save(ctx context.Context, title, modelName string, msgs []model.Message, systemPrompt string) (int64, error) {
	var id int64
	err := s.withTx(ctx, "save", func(tx *sql.Tx) error {
		now := s.stamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (title, model, system_prompt, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			title, modelName, nullString(systemPrompt), now, now)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return insertMessages(ctx, tx, id, msgs, now)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug("conversation saved", "id", id, "messages", len(msgs))
	return id, nil
}

// Update rewrites the title and/or the full message set of conversation id.
// It reports false when no such conversation exists.
func (s *ConversationStore) Update(ctx context.Context, id int64, opts UpdateOptions) (bool, error) {
	found := false
	err := s.withTx(ctx, "update", func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		now := s.stamp()
		if opts.Title != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`,
				*opts.Title, now, id); err != nil {
				return err
			}
		}
		if opts.replacesMessages() {
			if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
				return err
			}
			if err := insertMessages(ctx, tx, id, opts.Messages, now); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Delete removes a conversation together with its messages and tag links.
func (s *ConversationStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return false, wrap("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("delete", err)
	}
	return n > 0, nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, convID int64, msgs []model.Message, now string) error {
	if len(msgs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (conversation_id, role, content, timestamp, has_image, image_path)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range msgs {
		hasImage := 0
		var imagePath sql.NullString
		if m.Content.HasImage() {
			hasImage = 1
			imagePath = sql.NullString{String: m.Content.ImagePath, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, convID, string(m.Role), m.Content.Text, now, hasImage, imagePath); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// Get loads a conversation with its ordered messages and tags.
func (s *ConversationStore) Get(ctx context.Context, id int64) (*model.Conversation, error) {
	conv := &model.Conversation{ID: id}
	var system sql.NullString
	var created, updated string

	err := s.db.QueryRowContext(ctx, `
		SELECT title, model, system_prompt, created_at, updated_at
		FROM conversations WHERE id = ?`, id).
		Scan(&conv.Title, &conv.Model, &system, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, wrap("get", err)
	}
	conv.SystemPrompt = system.String
	conv.CreatedAt = parseTime(created)
	conv.UpdatedAt = parseTime(updated)

	msgs, err := s.messages(ctx, id)
	if err != nil {
		return nil, err
	}
	conv.Messages = msgs

	tags, err := s.conversationTags(ctx, id)
	if err != nil {
		return nil, err
	}
	conv.Tags = tags
	return conv, nil
}

// messages loads the ordered messages of one conversation. Messages saved
// together share a timestamp, so insertion id breaks the tie.
func (s *ConversationStore) messages(ctx context.Context, id int64) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, has_image, image_path
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp, id`, id)
	if err != nil {
		return nil, wrap("get", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var role, content string
		var hasImage bool
		var imagePath sql.NullString
		if err := rows.Scan(&role, &content, &hasImage, &imagePath); err != nil {
			return nil, wrap("get", err)
		}
		msg := model.Message{Role: model.Role(role), Content: model.TextContent(content)}
		if hasImage && imagePath.String != "" {
			msg.Content = model.ImageContent(content, imagePath.String)
		}
		msgs = append(msgs, msg)
	}
	return msgs, wrap("get", rows.Err())
}

// List returns conversation summaries, most recently updated first. With a
// search term it keeps conversations whose title or any message contains the
// term, each conversation at most once.
func (s *ConversationStore) List(ctx context.Context, opts ListOptions) ([]model.Summary, error) {
	query := `
		SELECT c.id, c.title, c.model, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
		       (SELECT group_concat(t.name, char(31))
		          FROM conversation_tags ct JOIN tags t ON t.id = ct.tag_id
		         WHERE ct.conversation_id = c.id)
		FROM conversations c`
	args := []any{}

	if opts.Search != "" {
		query += `
		WHERE instr(casefold(c.title), casefold(?)) > 0
		   OR EXISTS (SELECT 1 FROM messages m
		               WHERE m.conversation_id = c.id
		                 AND instr(casefold(m.content), casefold(?)) > 0)`
		args = append(args, opts.Search, opts.Search)
	}
	query += `
		ORDER BY c.updated_at DESC, c.id DESC
		LIMIT ? OFFSET ?`
	args = append(args, limitOf(opts.Limit), max(opts.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list", err)
	}
	defer rows.Close()

	var out []model.Summary
	for rows.Next() {
		var sum model.Summary
		var created, updated string
		var tags sql.NullString
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Model, &created, &updated, &sum.MessageCount, &tags); err != nil {
			return nil, wrap("list", err)
		}
		sum.CreatedAt = parseTime(created)
		sum.UpdatedAt = parseTime(updated)
		sum.Tags = splitTags(tags.String)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list", err)
	}
	return out, nil
}

// SearchByContent returns one hit per matching message. A conversation with
// several matching messages appears several times.
func (s *ConversationStore) SearchByContent(ctx context.Context, term string, limit, offset int) ([]model.SearchHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.model, m.content, c.created_at, c.updated_at
		FROM conversations c
		JOIN messages m ON m.conversation_id = c.id
		WHERE instr(casefold(m.content), casefold(?)) > 0
		ORDER BY c.updated_at DESC, c.id DESC, m.id
		LIMIT ? OFFSET ?`,
		term, limitOf(limit), max(offset, 0))
	if err != nil {
		return nil, wrap("search", err)
	}
	defer rows.Close()

	var out []model.SearchHit
	for rows.Next() {
		var hit model.SearchHit
		var created, updated string
		if err := rows.Scan(&hit.ID, &hit.Title, &hit.Model, &hit.Snippet, &created, &updated); err != nil {
			return nil, wrap("search", err)
		}
		hit.CreatedAt = parseTime(created)
		hit.UpdatedAt = parseTime(updated)
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("search", err)
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func splitTags(joined string) []string {
	if joined == "" {
		return nil
	}
	tags := strings.Split(joined, tagSep)
	sort.Strings(tags)
	return tags
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
