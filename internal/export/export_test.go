// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/rigchat/internal/model"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func testOptions(dir string) *Options {
	return &Options{
		OutputDir:       dir,
		IncludeMetadata: true,
		Clock:           func() time.Time { return fixedNow },
	}
}

func sampleConversation() *model.Conversation {
	created := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	return &model.Conversation{
		ID:           7,
		Title:        "Cats: a study",
		Model:        "llama3",
		SystemPrompt: "Be brief.",
		CreatedAt:    created,
		UpdatedAt:    created.Add(time.Minute),
		Tags:         []string{"pets", "research"},
		Messages: []model.Message{
			{Role: model.RoleAssistant, Content: model.TextContent(model.Greeting)},
			{Role: model.RoleUser, Content: model.ImageContent("What is this?", "/tmp/cat.png")},
			{Role: model.RoleAssistant, Content: model.TextContent("A cat.\n```go\nfmt.Println(\"meow\")\n```")},
		},
	}
}

// =============================================================================
// FORMAT LOOKUP
// =============================================================================

func TestForFormat(t *testing.T) {
	tests := map[string]string{
		"json":     ".json",
		"JSON":     ".json",
		"md":       ".md",
		"markdown": ".md",
		".yaml":    ".yaml",
		"yml":      ".yaml",
	}
	for name, ext := range tests {
		t.Run(name, func(t *testing.T) {
			exp, err := ForFormat(name)
			require.NoError(t, err)
			assert.Equal(t, ext, exp.FileExtension())
		})
	}

	_, err := ForFormat("pdf")
	assert.ErrorContains(t, err, "unsupported export format")
}

// =============================================================================
// EXPORTERS
// =============================================================================

func TestJSONExporter(t *testing.T) {
	out, err := NewJSONExporter(testOptions("")).Export(sampleConversation())
	require.NoError(t, err)

	var doc document
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, int64(7), doc.ID)
	assert.Equal(t, "Cats: a study", doc.Title)
	assert.Equal(t, "Be brief.", doc.SystemPrompt)
	assert.Equal(t, []string{"pets", "research"}, doc.Tags)
	require.Len(t, doc.Messages, 3)
	assert.Equal(t, "user", doc.Messages[1].Role)
	assert.Equal(t, "/tmp/cat.png", doc.Messages[1].Image)
	assert.Empty(t, doc.Messages[2].Image)
	assert.True(t, fixedNow.Equal(doc.ExportedAt))
	assert.Equal(t, Generator, doc.Generator)
}

func TestJSONExporter_UnsavedConversation(t *testing.T) {
	conv := &model.Conversation{
		Title:    model.DefaultTitle,
		Model:    "llama3",
		Messages: []model.Message{model.NewUserMessage("hi")},
	}
	out, err := NewJSONExporter(nil).Export(conv)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"id"`)
	assert.NotContains(t, string(out), `"created_at"`)
}

func TestYAMLExporter(t *testing.T) {
	out, err := NewYAMLExporter(testOptions("")).Export(sampleConversation())
	require.NoError(t, err)

	var doc document
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "Cats: a study", doc.Title)
	require.Len(t, doc.Messages, 3)
	assert.Contains(t, doc.Messages[2].Content, "```go")
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions("")).Export(sampleConversation())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\n"))
	assert.Contains(t, md, "# Cats: a study\n")
	assert.Contains(t, md, "- **Tags**: pets, research")
	assert.Contains(t, md, "### You\n\n![image](/tmp/cat.png)\n\nWhat is this?")
	assert.Contains(t, md, "### Assistant\n\nA cat.\n```go")
	assert.Contains(t, md, "*Exported from rigchat*")
}

func TestMarkdownExporter_FrontmatterInjection(t *testing.T) {
	conv := sampleConversation()
	conv.Title = "Test\ninjected: true"

	out, err := NewMarkdownExporter(testOptions("")).Export(conv)
	require.NoError(t, err)

	parts := strings.SplitN(string(out), "---\n", 3)
	require.Len(t, parts, 3)
	var fm map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(parts[1]), &fm))
	assert.NotContains(t, fm, "injected")
	assert.Equal(t, "Test\ninjected: true", fm["title"])
}

func TestMarkdownExporter_ClosesOpenFence(t *testing.T) {
	conv := sampleConversation()
	conv.Messages = append(conv.Messages, model.NewAssistantMessage("```python\nprint(1)"))

	out, err := NewMarkdownExporter(testOptions("")).Export(conv)
	require.NoError(t, err)
	assert.Contains(t, string(out), "print(1)\n```\n\n---")
}

func TestMarkdownExporter_NoMetadata(t *testing.T) {
	opts := testOptions("")
	opts.IncludeMetadata = false

	out, err := NewMarkdownExporter(opts).Export(sampleConversation())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "# Cats: a study"))
	assert.NotContains(t, string(out), "Session Information")
}

func TestMarkdownExporter_Empty(t *testing.T) {
	_, err := NewMarkdownExporter(nil).Export(&model.Conversation{Title: "x"})
	assert.Error(t, err)

	_, err = NewMarkdownExporter(nil).Export(nil)
	assert.ErrorIs(t, err, ErrNilConversation)
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")

	path, err := ExportToFile(sampleConversation(), NewJSONExporter(nil), testOptions(dir))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "conversation_Cats-_a_study_20250314_092653.json"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestExportToFile_ExporterErrorWritesNothing(t *testing.T) {
	dir := t.TempDir()
	_, err := ExportToFile(&model.Conversation{Title: "empty"}, NewMarkdownExporter(nil), testOptions(dir))
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello world", "hello_world"},
		{`a/b\c:d*e?f"g<h>i|j`, "a-b-c-d-e-f-g-h-i-j"},
		{"tab\tnew\nline", "tab_new_line"},
		{"bell\x07", "bell-"},
		{"   ", "conversation"},
		{"", "conversation"},
		{"日本語", "日本語"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, sanitizeFilename(tc.in), "input %q", tc.in)
	}

	long := strings.Repeat("x", 80)
	assert.Len(t, []rune(sanitizeFilename(long)), 50)
}
