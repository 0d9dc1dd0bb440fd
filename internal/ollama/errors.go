// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"errors"
	"strconv"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	// ErrTypeTransport covers refused connections, DNS failures and broken reads.
	ErrTypeTransport
	// ErrTypeTimeout means the server sent nothing within the configured timeout.
	ErrTypeTimeout
	// ErrTypeProtocol is a non-success HTTP status.
	ErrTypeProtocol
	// ErrTypeIncomplete means the stream ended without a done chunk.
	ErrTypeIncomplete
	// ErrTypeCancelled means the caller cancelled the request.
	ErrTypeCancelled
	// ErrTypeInvalidResponse is a response body that could not be decoded.
	ErrTypeInvalidResponse
)

// ClientError represents an error from the Ollama client.
// Error() renders the status-line text shown to the user, e.g.
// "Error: 500 - model not found".
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Body       string
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return "Error: " + e.Message + ": " + e.Cause.Error()
	}
	return "Error: " + e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same Type, so sentinels below work
// with errors.Is.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Sentinel errors for easy checking.
var (
	ErrTransport  = &ClientError{Type: ErrTypeTransport, Message: "connection failed"}
	ErrTimeout    = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrProtocol   = &ClientError{Type: ErrTypeProtocol, Message: "unexpected status"}
	ErrIncomplete = &ClientError{Type: ErrTypeIncomplete, Message: "stream ended before completion"}
	ErrCancelled  = &ClientError{Type: ErrTypeCancelled, Message: "request cancelled"}

	// ErrSessionUsed is returned when Run is called twice on one Session.
	ErrSessionUsed = errors.New("ollama: session already used")
)

func protocolError(status int, body string) *ClientError {
	return &ClientError{
		Type:       ErrTypeProtocol,
		Message:    strconv.Itoa(status) + " - " + body,
		StatusCode: status,
		Body:       body,
	}
}

func transportError(cause error) *ClientError {
	return &ClientError{Type: ErrTypeTransport, Message: "connection failed", Cause: cause}
}

// IsTimeout checks if an error is a first-byte timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCancelled checks if an error reports caller cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsProtocol checks if an error is a non-success HTTP status.
func IsProtocol(err error) bool {
	return errors.Is(err, ErrProtocol)
}

// IsTransport checks if an error is a connection-level failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
