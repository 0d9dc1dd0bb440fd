// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// recorder captures events as "kind:value" strings in emission order.
type recorder struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) Events() Events {
	return Events{
		OnToken:    func(tok string) { r.add("token:" + tok) },
		OnProgress: func(p int) { r.add(fmt.Sprintf("progress:%d", p)) },
		OnComplete: func(text string) { r.add("complete:" + text) },
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
			r.add("error:" + err.Error())
		},
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(url string, timeout time.Duration) *Client {
	return NewClientWithConfig(&ClientConfig{BaseURL: url, Timeout: timeout, Logger: quietLogger()})
}

// ndjsonServer replies to /api/chat with the given lines and records the
// decoded request body.
func ndjsonServer(t *testing.T, lines []string, got *ChatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func helloRequest(maxTokens int) model.GenerationRequest {
	params := model.DefaultParameters()
	params.MaxTokens = maxTokens
	return model.NewGenerationRequest("llama3", "Hello", nil, params, "", "")
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func TestSession_StreamsTokensAndProgress(t *testing.T) {
	srv := ndjsonServer(t, []string{
		`{"message":{"content":"Hi"},"done":false}`,
		`{"message":{"content":" there"},"done":false}`,
		`{"message":{"content":""},"done":true}`,
	}, nil)

	rec := &recorder{}
	state, err := testClient(srv.URL, 5*time.Second).Stream(context.Background(), helloRequest(10), rec.Events())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"token:Hi",
		"progress:10",
		"token: there",
		"progress:20",
		"progress:20",
		"complete:Hi there",
		"progress:100",
	}, rec.snapshot())
	assert.Equal(t, "Hi there", state.Text())
	assert.Equal(t, 2, state.TokenCount)
	assert.True(t, state.Terminal)
}

func TestSession_ProgressCapsAt100(t *testing.T) {
	lines := []string{}
	for i := 0; i < 5; i++ {
		lines = append(lines, `{"response":"x"}`)
	}
	lines = append(lines, `{"done":true}`)
	srv := ndjsonServer(t, lines, nil)

	rec := &recorder{}
	_, err := testClient(srv.URL, 5*time.Second).Stream(context.Background(), helloRequest(2), rec.Events())
	require.NoError(t, err)

	for _, ev := range rec.snapshot() {
		if strings.HasPrefix(ev, "progress:") {
			var p int
			fmt.Sscanf(ev, "progress:%d", &p)
			assert.LessOrEqual(t, p, 100)
		}
	}
}

func TestSession_IgnoresMalformedLines(t *testing.T) {
	srv := ndjsonServer(t, []string{
		`garbage`,
		``,
		`{"message":{"content":"ok"},"done":false}`,
		`{"message":`,
		`{"done":true}`,
	}, nil)

	rec := &recorder{}
	state, err := testClient(srv.URL, 5*time.Second).Stream(context.Background(), helloRequest(100), rec.Events())
	require.NoError(t, err)
	assert.Equal(t, "ok", state.Text())
	assert.Empty(t, rec.errs)
	assert.Contains(t, rec.snapshot(), "complete:ok")
}

func TestSession_FinalLineWithoutNewline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "{\"response\":\"a\"}\n{\"response\":\"b\",\"done\":true}")
	}))
	defer srv.Close()

	text, err := testClient(srv.URL, 5*time.Second).Generate(context.Background(), helloRequest(100))
	require.NoError(t, err)
	assert.Equal(t, "ab", text)
}

func TestSession_EOFWithoutDone(t *testing.T) {
	srv := ndjsonServer(t, []string{`{"message":{"content":"partial"}}`}, nil)

	rec := &recorder{}
	state, err := testClient(srv.URL, 5*time.Second).Stream(context.Background(), helloRequest(100), rec.Events())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncomplete)
	require.Len(t, rec.errs, 1)
	assert.NotContains(t, rec.snapshot(), "complete:partial")
	assert.Equal(t, "partial", state.Text())
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestSession_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "model not found")
	}))
	defer srv.Close()

	rec := &recorder{}
	_, err := testClient(srv.URL, 5*time.Second).Stream(context.Background(), helloRequest(100), rec.Events())
	require.Error(t, err)

	assert.Equal(t, []string{"error:Error: 500 - model not found"}, rec.snapshot())
	assert.True(t, IsProtocol(err))

	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 500, ce.StatusCode)
	assert.Equal(t, "model not found", ce.Body)
}

func TestSession_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	rec := &recorder{}
	_, err := testClient(url, 2*time.Second).Stream(context.Background(), helloRequest(100), rec.Events())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Len(t, rec.errs, 1)
}

func TestSession_FirstLineTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	rec := &recorder{}
	_, err := testClient(srv.URL, 100*time.Millisecond).Stream(context.Background(), helloRequest(100), rec.Events())
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Len(t, rec.errs, 1)
}

func TestSession_SlowTokensAfterFirstLineDoNotTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		io.WriteString(w, "{\"response\":\"a\"}\n")
		flusher.Flush()
		time.Sleep(250 * time.Millisecond)
		io.WriteString(w, "{\"response\":\"b\",\"done\":true}\n")
	}))
	defer srv.Close()

	text, err := testClient(srv.URL, 100*time.Millisecond).Generate(context.Background(), helloRequest(100))
	require.NoError(t, err)
	assert.Equal(t, "ab", text)
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestSession_CancelSuppressesEvents(t *testing.T) {
	sent := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		io.WriteString(w, "{\"response\":\"first\"}\n")
		flusher.Flush()
		close(sent)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	ev := rec.Events()
	ev.OnToken = func(tok string) {
		rec.add("token:" + tok)
		cancel()
	}

	_, err := testClient(srv.URL, 5*time.Second).Stream(ctx, helloRequest(100), ev)
	<-sent
	require.Error(t, err)
	assert.True(t, IsCancelled(err))

	assert.Equal(t, []string{"token:first"}, rec.snapshot())
}

func TestSession_CancelledBeforeStart(t *testing.T) {
	srv := ndjsonServer(t, []string{`{"response":"x","done":true}`}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	_, err := testClient(srv.URL, 5*time.Second).Stream(ctx, helloRequest(100), rec.Events())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, rec.snapshot())
}

// =============================================================================
// PAYLOAD TESTS
// =============================================================================

func TestSession_RequestPayload(t *testing.T) {
	var got ChatRequest
	srv := ndjsonServer(t, []string{`{"done":true}`}, &got)

	prior := []model.Message{
		model.NewAssistantMessage(model.Greeting),
		{Role: model.RoleUser, Content: model.ImageContent("what is this", "/tmp/cat.png"), Images: []string{"b64prior"}},
		model.NewAssistantMessage("a cat"),
	}
	params := model.Parameters{Temperature: 0.3, TopP: 0.8, TopK: 20, MaxTokens: 512}
	req := model.NewGenerationRequest("llava", "and this?", prior, params, "b64new", "")

	_, err := testClient(srv.URL, 5*time.Second).Stream(context.Background(), req, Events{})
	require.NoError(t, err)

	assert.Equal(t, "llava", got.Model)
	assert.True(t, got.Stream)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.3, *got.Temperature, 1e-9)
	assert.InDelta(t, 0.8, *got.TopP, 1e-9)
	assert.Equal(t, 20, *got.TopK)
	assert.Equal(t, 512, *got.MaxTokens)

	require.Len(t, got.Messages, 4)
	assert.Equal(t, ChatMessage{Role: "assistant", Content: model.Greeting}, got.Messages[0])
	assert.Equal(t, ChatMessage{Role: "user", Content: "what is this", Images: []string{"b64prior"}}, got.Messages[1])
	assert.Equal(t, ChatMessage{Role: "user", Content: "and this?", Images: []string{"b64new"}}, got.Messages[3])
}

func TestSession_SystemPromptLeads(t *testing.T) {
	var got ChatRequest
	srv := ndjsonServer(t, []string{`{"done":true}`}, &got)

	req := helloRequest(100).WithSystemPrompt("be brief")
	_, err := testClient(srv.URL, 5*time.Second).Stream(context.Background(), req, Events{})
	require.NoError(t, err)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "be brief", got.Messages[0].Content)
}

func TestSession_RequestBaseURLOverridesClient(t *testing.T) {
	srv := ndjsonServer(t, []string{`{"response":"routed","done":true}`}, nil)

	req := helloRequest(100)
	req.BaseURL = srv.URL + "/"
	text, err := testClient("http://127.0.0.1:1", 5*time.Second).Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "routed", text)
}

func TestSession_SingleUse(t *testing.T) {
	srv := ndjsonServer(t, []string{`{"done":true}`}, nil)
	sess := testClient(srv.URL, 5*time.Second).NewSession()
	assert.NotEmpty(t, sess.ID)

	_, err := sess.Run(context.Background(), helloRequest(100), Events{})
	require.NoError(t, err)

	_, err = sess.Run(context.Background(), helloRequest(100), Events{})
	assert.ErrorIs(t, err, ErrSessionUsed)
}

func TestStreamState_DefaultMaxTokens(t *testing.T) {
	s := &StreamState{TokenCount: 1024}
	assert.Equal(t, 50, s.percent(0))
	assert.Equal(t, 100, s.percent(10))
}
