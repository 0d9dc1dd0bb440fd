// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import "errors"

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ErrEmptyTag is returned when a tag name is blank.
var ErrEmptyTag = &ConversationError{Message: "tag name is empty"}

// ConversationError represents a conversation-related error.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is enables errors.Is() comparison for ConversationError.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// ErrPersistence matches every StoreError.
var ErrPersistence = errors.New("storage: persistence failure")

// StoreError wraps a failure of the underlying database.
// The in-memory state of callers is never touched by the store, so a
// StoreError is always safe to retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports ErrPersistence for every StoreError.
func (e *StoreError) Is(target error) bool {
	return target == ErrPersistence
}

// wrap turns driver errors into StoreErrors and passes store errors through.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConversationError
	if errors.As(err, &ce) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
