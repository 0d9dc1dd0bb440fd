// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// Chunk is one decoded line of a streamed chat response.
type Chunk struct {
	Text string // may be empty
	Done bool
}

// chunkLine mirrors the two line shapes the server emits:
// {"message":{"content":...},"done":...} and {"response":...,"done":...}.
type chunkLine struct {
	Message  json.RawMessage `json:"message"`
	Response json.RawMessage `json:"response"`
	Done     json.RawMessage `json:"done"`
}

type chunkMessage struct {
	Content json.RawMessage `json:"content"`
}

// ParseChunk decodes one line of server output. It reports ok == false for
// blank lines and for anything that is not a UTF-8 JSON object; such lines
// are skipped by the stream loop and never treated as errors.
//
// Token text comes from message.content when present, otherwise from
// response, otherwise it is empty. Done is set only by a literal true.
func ParseChunk(line []byte) (Chunk, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' || !utf8.Valid(line) {
		return Chunk{}, false
	}

	var raw chunkLine
	if err := json.Unmarshal(line, &raw); err != nil {
		return Chunk{}, false
	}

	chunk := Chunk{Done: bytes.Equal(raw.Done, []byte("true"))}

	if text, ok := messageContent(raw.Message); ok {
		chunk.Text = text
	} else if text, ok := jsonString(raw.Response); ok {
		chunk.Text = text
	}

	return chunk, true
}

func messageContent(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '{' {
		return "", false
	}
	var msg chunkMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", false
	}
	return jsonString(msg.Content)
}

func jsonString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
