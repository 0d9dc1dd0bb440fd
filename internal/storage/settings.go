// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// SetSetting stores a value under key. Strings are stored as-is; anything
// else is stored as its JSON encoding.
func (s *ConversationStore) SetSetting(ctx context.Context, key string, value any) error {
	text, ok := value.(string)
	if !ok {
		data, err := json.Marshal(value)
		if err != nil {
			return wrap("set setting", err)
		}
		text = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, text)
	return wrap("set setting", err)
}

// GetSetting returns the value stored under key, or def when there is none.
// The stored text is JSON-decoded when possible (numbers become float64) and
// returned raw otherwise, so a string that happens to be valid JSON comes
// back decoded.
func (s *ConversationStore) GetSetting(ctx context.Context, key string, def any) (any, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, wrap("get setting", err)
	}

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return text, nil
	}
	return decoded, nil
}

// DeleteSetting removes key. Missing keys are not an error.
func (s *ConversationStore) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return wrap("delete setting", err)
}
