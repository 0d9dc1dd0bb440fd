// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseChunk(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   Chunk
		wantOK bool
	}{
		{"chat shape", `{"message":{"content":"Hi"},"done":false}`, Chunk{Text: "Hi"}, true},
		{"done with empty content", `{"message":{"content":""},"done":true}`, Chunk{Done: true}, true},
		{"generate shape", `{"response":"x"}`, Chunk{Text: "x"}, true},
		{"message wins over response", `{"message":{"content":"a"},"response":"b"}`, Chunk{Text: "a"}, true},
		{"message without content falls back", `{"message":{},"response":"b"}`, Chunk{Text: "b"}, true},
		{"non-string content", `{"message":{"content":42},"done":false}`, Chunk{}, true},
		{"message not an object", `{"message":"hello","done":false}`, Chunk{}, true},
		{"done must be literal true", `{"response":"x","done":"true"}`, Chunk{Text: "x"}, true},
		{"done numeric", `{"done":1}`, Chunk{}, true},
		{"surrounding whitespace", "  {\"response\":\"y\"}\r\n", Chunk{Text: "y"}, true},
		{"empty", "", Chunk{}, false},
		{"blank", "   \n", Chunk{}, false},
		{"garbage", "garbage", Chunk{}, false},
		{"truncated json", `{"message":{"content":"Hi"`, Chunk{}, false},
		{"array", `[1,2,3]`, Chunk{}, false},
		{"invalid utf-8", "{\"response\":\"\xff\"}", Chunk{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseChunk([]byte(tc.line))
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseChunk_Unicode(t *testing.T) {
	got, ok := ParseChunk([]byte(`{"message":{"content":"héllo 😀"}}`))
	assert.True(t, ok)
	assert.Equal(t, "héllo 😀", got.Text)
}
