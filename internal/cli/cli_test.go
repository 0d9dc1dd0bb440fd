// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// HARNESS
// =============================================================================

// fakeOllama serves /api/tags and streams a fixed reply on /api/chat.
type fakeOllama struct {
	mu       sync.Mutex
	tokens   []string
	status   int
	requests []map[string]any
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/tags":
		io.WriteString(w, `{"models":[
			{"name":"llama3:latest","size":4661224676,"modified_at":"2025-01-02T03:04:05Z",
			 "details":{"parameter_size":"8B","quantization_level":"Q4_0"}},
			{"name":"llava:7b","size":0}
		]}`)
	case "/api/chat":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.requests = append(f.requests, body)
		status := f.status
		f.mu.Unlock()
		if status != 0 {
			http.Error(w, "model exploded", status)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, tok := range f.tokens {
			line, _ := json.Marshal(map[string]any{"message": map[string]string{"role": "assistant", "content": tok}, "done": false})
			fmt.Fprintln(w, string(line))
		}
		fmt.Fprintln(w, `{"done":true}`)
	default:
		http.NotFound(w, r)
	}
}

// lastPrompt returns the final message content of the most recent request.
func (f *fakeOllama) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	msgs, _ := f.requests[len(f.requests)-1]["messages"].([]any)
	if len(msgs) == 0 {
		return ""
	}
	last, _ := msgs[len(msgs)-1].(map[string]any)
	s, _ := last["content"].(string)
	return s
}

type harness struct {
	t      *testing.T
	home   string
	db     string
	ollama *fakeOllama
	srv    *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("RIGCHAT_HOME", home)
	for _, k := range []string{"RIGCHAT_MODEL", "RIGCHAT_OLLAMA_URL", "RIGCHAT_TIMEOUT", "RIGCHAT_DB", "RIGCHAT_LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	config.ResetGlobalForTesting()
	t.Cleanup(config.ResetGlobalForTesting)

	f := &fakeOllama{tokens: []string{"Hello", " there!"}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	return &harness{
		t:      t,
		home:   home,
		db:     filepath.Join(home, "test.db"),
		ollama: f,
		srv:    srv,
	}
}

type result struct {
	code   int
	stdout string
	stderr string
}

// run executes the command line with stdin as input.
func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp()
	app.Stdin = strings.NewReader(stdin)
	app.Stdout = &out
	app.Stderr = &errOut

	args = append(args, "--db", h.db, "--url", h.srv.URL)
	code := Execute(context.Background(), app, args)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func (h *harness) mustRun(stdin string, args ...string) string {
	h.t.Helper()
	res := h.run(stdin, args...)
	require.Equal(h.t, 0, res.code, "stderr: %s\nstdout: %s", res.stderr, res.stdout)
	return res.stdout
}

func decodeData[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Success bool    `json:"success"`
		Data    T       `json:"data"`
		Error   *string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.True(t, resp.Success, out)
	return resp.Data
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_StreamsReply(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("", "ask", "Hello")
	assert.Equal(t, "Hello there!\n", out)
	assert.Equal(t, "Hello", h.ollama.lastPrompt())
}

func TestAsk_ReadsStdin(t *testing.T) {
	h := newHarness(t)

	h.mustRun("  What is Go?\n", "ask")
	assert.Equal(t, "What is Go?", h.ollama.lastPrompt())

	h.mustRun("From a pipe", "ask", "-")
	assert.Equal(t, "From a pipe", h.ollama.lastPrompt())
}

func TestAsk_JSONWithSave(t *testing.T) {
	h := newHarness(t)

	got := decodeData[askResult](t, h.mustRun("", "ask", "--json", "--save", "Hi"))
	assert.Equal(t, "llama3", got.Model)
	assert.Equal(t, "Hi", got.Prompt)
	assert.Equal(t, "Hello there!", got.Response)
	assert.Equal(t, int64(1), got.ConversationID)

	list := decodeData[[]model.Summary](t, h.mustRun("", "history", "list", "--json"))
	require.Len(t, list, 1)
	assert.Equal(t, "Hi", list[0].Title)
	assert.Equal(t, "llama3", list[0].Model)
}

func TestAsk_ServerError(t *testing.T) {
	h := newHarness(t)
	h.ollama.status = http.StatusInternalServerError

	res := h.run("", "ask", "Hello")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Error")
	assert.Contains(t, res.stderr, "500")
}

func TestAsk_MissingImage(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "ask", "--image", filepath.Join(h.home, "nope.png"), "What is this?")
	assert.Equal(t, 1, res.code)
	assert.Empty(t, h.ollama.requests)
}

func TestReadPrompt(t *testing.T) {
	p, err := readPrompt(strings.NewReader("ignored"), []string{"two", "words"})
	require.NoError(t, err)
	assert.Equal(t, "two words", p)

	p, err = readPrompt(strings.NewReader("\n piped \n"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "piped", p)

	_, err = readPrompt(strings.NewReader("   \n"), nil)
	assert.Error(t, err)
}

// =============================================================================
// MODELS
// =============================================================================

func TestModels(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("", "models")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "llama3:latest *")
	assert.Contains(t, out, "4.3 GiB")
	assert.Contains(t, out, "Q4_0")
	assert.Contains(t, out, "llava:7b")

	models := decodeData[[]map[string]any](t, h.mustRun("", "models", "--json"))
	require.Len(t, models, 2)
	assert.Equal(t, "llama3:latest", models[0]["name"])
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistory_Lifecycle(t *testing.T) {
	h := newHarness(t)
	h.mustRun("", "ask", "--save", "Hi")

	out := h.mustRun("", "history", "show", "1")
	assert.Contains(t, out, "#1 Hi")
	assert.Contains(t, out, "Hello there!")

	assert.Contains(t, h.mustRun("", "history", "tag", "1", "work"), `Tagged #1 "work"`)
	assert.Contains(t, h.mustRun("", "history", "tag", "1", "work"), "already tagged")
	assert.Equal(t, "work\n", h.mustRun("", "history", "tags"))
	assert.Contains(t, h.mustRun("", "history", "list"), "work")

	assert.Contains(t, h.mustRun("", "history", "tag", "1", "work", "--remove"), "Removed tag")
	assert.Contains(t, h.mustRun("", "history", "tag", "1", "work", "--remove"), "was not tagged")

	res := h.run("", "history", "delete", "1")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "--yes")

	assert.Contains(t, h.mustRun("", "history", "delete", "1", "--yes"), "Deleted conversation #1")
	assert.Equal(t, 1, h.run("", "history", "show", "1").code)
	assert.Equal(t, 1, h.run("", "history", "delete", "1", "--yes").code)
}

func TestHistory_ListEmptyAndInvalidID(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.mustRun("", "history", "list"), "No conversations found.")

	res := h.run("", "history", "show", "abc")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `invalid conversation id "abc"`)
}

func TestHistory_Search(t *testing.T) {
	h := newHarness(t)
	h.mustRun("", "ask", "--save", "Tell me about cats")
	h.mustRun("", "ask", "--save", "Tell me about dogs")

	out := h.mustRun("", "history", "search", "CATS")
	assert.Contains(t, out, "Tell me about cats")
	assert.NotContains(t, out, "dogs")

	assert.Contains(t, h.mustRun("", "history", "search", "zebra"), "No matches.")

	list := decodeData[[]model.Summary](t, h.mustRun("", "history", "list", "--search", "dogs", "--json"))
	require.Len(t, list, 1)
	assert.Equal(t, "Tell me about dogs", list[0].Title)
}

func TestHistory_Export(t *testing.T) {
	h := newHarness(t)
	h.mustRun("", "ask", "--save", "Hi")
	dir := t.TempDir()

	got := decodeData[map[string]string](t, h.mustRun("", "history", "export", "1", "--format", "markdown", "--out", dir, "--json"))
	path := got["path"]
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, ".md", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Hi")
	assert.Contains(t, string(data), "Hello there!")

	res := h.run("", "history", "export", "1", "--format", "pdf", "--out", dir)
	assert.Equal(t, 1, res.code)
}

func TestParseID(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1", 1, true},
		{"#42", 42, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"x", 0, false},
	} {
		t.Run(tc.in, func(t *testing.T) {
			id, err := parseID(tc.in)
			if !tc.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, id)
		})
	}
}

// =============================================================================
// STATS
// =============================================================================

func TestStats(t *testing.T) {
	h := newHarness(t)
	h.mustRun("", "ask", "--save", "Hi")
	h.mustRun("", "history", "tag", "1", "demo")

	out := h.mustRun("", "stats")
	assert.Contains(t, out, "Conversations")
	assert.Contains(t, out, "llama3")
	assert.Contains(t, out, "demo")

	stats := decodeData[model.Stats](t, h.mustRun("", "stats", "--json"))
	assert.Equal(t, 1, stats.ConversationCount)
	assert.Equal(t, 1, stats.ModelUsage["llama3"])
	assert.Equal(t, 1, stats.TagCounts["demo"])
}

// =============================================================================
// CONFIG AND SETTINGS
// =============================================================================

func TestConfig_InitSetGet(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.home, "config.toml")

	assert.Equal(t, path+"\n", h.mustRun("", "config", "path"))

	assert.Contains(t, h.mustRun("", "config", "init"), path)
	assert.FileExists(t, path)

	res := h.run("", "config", "init")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "already exists")
	h.mustRun("", "config", "init", "--force")

	h.mustRun("", "config", "set", "model.name", "mistral")
	assert.Equal(t, "mistral\n", h.mustRun("", "config", "get", "model.name"))
	assert.Contains(t, h.mustRun("", "config", "show"), `name = "mistral"`)

	// Flags override the file without being written back.
	assert.Equal(t, "phi3\n", h.mustRun("", "config", "get", "model.name", "--model", "phi3"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "phi3")
	assert.NotContains(t, string(data), h.srv.URL)

	assert.Equal(t, 1, h.run("", "config", "set", "model.temperature", "hot").code)
	assert.Equal(t, 1, h.run("", "config", "set", "model.nope", "1").code)
	assert.Equal(t, 1, h.run("", "config", "get", "nope").code)
}

func TestApp_InstallsGlobalConfig(t *testing.T) {
	h := newHarness(t)

	h.mustRun("", "config", "get", "model.name", "--model", "phi3")
	cfg := config.Global()
	assert.Equal(t, "phi3", cfg.Model.Name)
	assert.Equal(t, h.db, cfg.Storage.DatabasePath)
	assert.Equal(t, h.srv.URL, cfg.API.BaseURL)
}

func TestApp_ReloadKeepsFlags(t *testing.T) {
	h := newHarness(t)
	app := NewApp()
	app.flags.model = "phi3"
	app.flags.db = h.db

	next := config.Default()
	next.Model.Name = "from-file"
	next.Conversation.AutoSave = false
	app.reload(next)

	assert.Same(t, next, app.Config())
	assert.Equal(t, "phi3", app.Config().Model.Name)
	assert.Equal(t, h.db, app.Config().Storage.DatabasePath)
	assert.False(t, app.controllerOptions().AutoSave)
}

func TestSettings(t *testing.T) {
	h := newHarness(t)

	h.mustRun("", "settings", "set", "theme", "dark")
	assert.Equal(t, "dark\n", h.mustRun("", "settings", "get", "theme"))

	h.mustRun("", "settings", "set", "limit", "5")
	got := decodeData[map[string]any](t, h.mustRun("", "settings", "get", "limit", "--json"))
	assert.Equal(t, float64(5), got["limit"])

	h.mustRun("", "settings", "delete", "theme")
	assert.Equal(t, 1, h.run("", "settings", "get", "theme").code)
}

func TestParseSettingValue(t *testing.T) {
	assert.Equal(t, "dark", parseSettingValue("dark"))
	assert.Equal(t, float64(5), parseSettingValue("5"))
	assert.Equal(t, true, parseSettingValue("true"))
	assert.Equal(t, []any{"a", "b"}, parseSettingValue(`["a","b"]`))
}

// =============================================================================
// LINE CHAT
// =============================================================================

func TestChat_LineMode(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("hello\n/save\n/history\n/model phi3\n/bogus\n/quit\n", "chat")
	assert.Contains(t, out, model.Greeting)
	assert.Contains(t, out, "Hello there!")
	assert.Contains(t, out, "Saved as #1")
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "Model set to phi3")
	assert.Contains(t, out, "unknown command /bogus")
	assert.Equal(t, "hello", h.ollama.lastPrompt())

	list := decodeData[[]model.Summary](t, h.mustRun("", "history", "list", "--json"))
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].Title)
}

func TestChat_LineModeLoadAndRegenerate(t *testing.T) {
	h := newHarness(t)
	h.mustRun("", "ask", "--save", "First question")

	h.ollama.tokens = []string{"Another answer"}
	out := h.mustRun("/regen\nexit\n", "chat", "--load", "1")
	assert.Contains(t, out, "Loaded #1: First question")
	assert.Contains(t, out, "Another answer")
	assert.Equal(t, "First question", h.ollama.lastPrompt())
}

func TestChat_LineModeEOF(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("", "chat", "--plain")
	assert.Contains(t, out, model.Greeting)
	assert.Empty(t, h.ollama.requests)
}

// =============================================================================
// OUTPUT
// =============================================================================

func TestJSONErrorResponse(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "history", "show", "99", "--json")
	assert.Equal(t, 1, res.code)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "not found")
	assert.Equal(t, "rigchat history show", resp.Command)
}

func TestTable_AlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	tbl := newTable("ID", "TITLE", "TAGS").limit(1, 8)
	tbl.add("1", "short", "a")
	tbl.add("22", "a much longer title", "b, c")
	tbl.print(&buf)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1   short     a", lines[1])
	assert.Equal(t, "22  a muc...  b, c", lines[2])
}

func TestAgo(t *testing.T) {
	assert.Equal(t, "-", ago(model.Summary{}.UpdatedAt))
	assert.Equal(t, "-", emptyDash(""))
	assert.Equal(t, "x", emptyDash("x"))
}
