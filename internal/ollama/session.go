// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jeranaias/rigchat/internal/model"
)

// defaultMaxTokens is the progress denominator when a request carries none.
const defaultMaxTokens = 2048

// =============================================================================
// EVENTS
// =============================================================================

// Events are the callbacks raised by a Session. Nil callbacks are skipped,
// so a non-streaming caller sets only OnComplete and OnError.
//
// Per Run: OnToken/OnProgress in read order, then exactly one of OnComplete
// or OnError, or nothing further once the context is cancelled.
type Events struct {
	OnToken    func(token string)
	OnProgress func(percent int)
	OnComplete func(text string)
	OnError    func(err error)
}

// =============================================================================
// STREAM STATE
// =============================================================================

// StreamState is the accumulator of one Run. It is created fresh by Run and
// handed back to the caller when the run ends.
type StreamState struct {
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	text       strings.Builder
	TokenCount int
	Terminal   bool
}

// Text returns the text accumulated so far.
func (s *StreamState) Text() string {
	return s.text.String()
}

func (s *StreamState) append(token string) {
	s.text.WriteString(token)
	s.TokenCount++
}

// percent is floor(TokenCount/maxTokens*100) capped at 100.
func (s *StreamState) percent(maxTokens int) int {
	if maxTokens < 1 {
		maxTokens = defaultMaxTokens
	}
	p := s.TokenCount * 100 / maxTokens
	if p > 100 {
		return 100
	}
	return p
}

// =============================================================================
// SESSION
// =============================================================================

// Session executes exactly one /api/chat exchange.
type Session struct {
	ID     string
	client *Client
	used   atomic.Bool
	logger *slog.Logger
	every  rate.Sometimes
}

func newSession(c *Client) *Session {
	id := uuid.NewString()
	return &Session{
		ID:     id,
		client: c,
		logger: c.logger.With("session", id),
		every:  rate.Sometimes{Interval: time.Second},
	}
}

// Run sends req and drives the chunk loop until the server reports done,
// the stream fails, or ctx is cancelled. Events are raised synchronously on
// the calling goroutine.
//
// The returned error is nil after OnComplete, the error passed to OnError
// after a failure, or ErrCancelled when ctx was cancelled; in the last case
// no terminal event is raised.
func (s *Session) Run(ctx context.Context, req model.GenerationRequest, ev Events) (*StreamState, error) {
	if !s.used.CompareAndSwap(false, true) {
		return nil, ErrSessionUsed
	}

	state := &StreamState{}
	start := time.Now()

	body, err := json.Marshal(buildChatRequest(req))
	if err != nil {
		return state, s.fail(ctx, state, ev, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err})
	}

	baseURL := strings.TrimRight(req.BaseURL, "/")
	if baseURL == "" {
		baseURL = s.client.config.BaseURL
	}

	// The first-line deadline cancels an inner context so the parent stays
	// the sole signal of caller cancellation.
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var timedOut atomic.Bool
	timeout := s.client.config.Timeout
	timer := time.AfterFunc(timeout, func() {
		timedOut.Store(true)
		cancel()
	})
	defer timer.Stop()

	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return state, s.fail(ctx, state, ev, transportError(err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	s.logger.Info("stream started", "model", req.Model, "url", baseURL, "prior", len(req.Prior))

	resp, err := s.client.streamClient.Do(httpReq)
	if err != nil {
		return state, s.fail(ctx, state, ev, s.readFailure(&timedOut, timeout, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return state, s.fail(ctx, state, ev, protocolError(resp.StatusCode, readBody(resp.Body)))
	}

	reader := bufio.NewReader(resp.Body)
	firstLine := true
	maxTokens := req.Params.MaxTokens

	for {
		line, readErr := reader.ReadBytes('\n')

		if firstLine && len(line) > 0 {
			firstLine = false
			if !timer.Stop() && timedOut.Load() {
				return state, s.fail(ctx, state, ev, s.readFailure(&timedOut, timeout, context.Canceled))
			}
		}

		if chunk, ok := ParseChunk(line); ok {
			if ctx.Err() != nil {
				return state, s.cancelled(state)
			}

			if chunk.Text != "" {
				state.append(chunk.Text)
				emit(ev.OnToken, chunk.Text)
				if ctx.Err() != nil {
					return state, s.cancelled(state)
				}
			}
			emit(ev.OnProgress, state.percent(maxTokens))

			s.every.Do(func() {
				s.logger.Debug("stream progress", "tokens", state.TokenCount, "elapsed", time.Since(start))
			})

			if chunk.Done {
				if ctx.Err() != nil {
					return state, s.cancelled(state)
				}
				state.Terminal = true
				s.logger.Info("stream complete", "tokens", state.TokenCount, "elapsed", time.Since(start))
				emit(ev.OnComplete, state.Text())
				emit(ev.OnProgress, 100)
				return state, nil
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return state, s.fail(ctx, state, ev, ErrIncomplete)
			}
			return state, s.fail(ctx, state, ev, s.readFailure(&timedOut, timeout, readErr))
		}
	}
}

// fail raises OnError unless the caller has already cancelled.
func (s *Session) fail(ctx context.Context, state *StreamState, ev Events, err error) error {
	if ctx.Err() != nil {
		return s.cancelled(state)
	}
	state.Terminal = true
	s.logger.Warn("stream failed", "error", err, "tokens", state.TokenCount)
	emit(ev.OnError, err)
	return err
}

func (s *Session) cancelled(state *StreamState) error {
	state.Terminal = true
	s.logger.Info("stream cancelled", "tokens", state.TokenCount)
	return ErrCancelled
}

// readFailure distinguishes the first-line timeout from other transport
// failures. Caller cancellation is handled by fail.
func (s *Session) readFailure(timedOut *atomic.Bool, timeout time.Duration, cause error) error {
	if timedOut.Load() {
		return &ClientError{Type: ErrTypeTimeout, Message: "no response within " + timeout.String()}
	}
	return transportError(cause)
}

func emit[T any](fn func(T), v T) {
	if fn != nil {
		fn(v)
	}
}

// =============================================================================
// PAYLOAD
// =============================================================================

// buildChatRequest assembles prior messages plus the new user turn and
// merges the sampling parameters into the body.
func buildChatRequest(req model.GenerationRequest) ChatRequest {
	msgs := make([]ChatMessage, 0, len(req.Prior)+2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, ChatMessage{Role: string(model.RoleSystem), Content: req.SystemPrompt})
	}
	for _, m := range req.Prior {
		msgs = append(msgs, ChatMessage{
			Role:    string(m.Role),
			Content: m.Text(),
			Images:  m.Images,
		})
	}

	current := ChatMessage{Role: string(model.RoleUser), Content: req.Prompt}
	if req.ImageData != "" {
		current.Images = []string{req.ImageData}
	}
	msgs = append(msgs, current)

	p := req.Params
	return ChatRequest{
		Model:       req.Model,
		Messages:    msgs,
		Stream:      true,
		Temperature: &p.Temperature,
		TopP:        &p.TopP,
		TopK:        &p.TopK,
		MaxTokens:   &p.MaxTokens,
	}
}
