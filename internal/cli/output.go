// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// JSON OUTPUT
// =============================================================================

// JSONResponse is the envelope for --json output.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// =============================================================================
// TABLES
// =============================================================================

// table collects rows and prints them with columns aligned by display
// width. The last column is never padded.
type table struct {
	header []string
	rows   [][]string
	max    []int // per-column width cap, 0 for none
}

func newTable(header ...string) *table {
	return &table{header: header, max: make([]int, len(header))}
}

func (t *table) limit(col, width int) *table {
	t.max[col] = width
	return t
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) print(w io.Writer) {
	widths := make([]int, len(t.header))
	measure := func(cells []string) {
		for i, c := range cells {
			n := util.StringWidth(c)
			if t.max[i] > 0 && n > t.max[i] {
				n = t.max[i]
			}
			widths[i] = max(widths[i], n)
		}
	}
	measure(t.header)
	for _, r := range t.rows {
		measure(r)
	}

	line := func(cells []string, style func(string) string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			if i == len(cells)-1 {
				parts[i] = util.TruncateWidth(c, widthOr(t.max[i], util.StringWidth(c)))
			} else {
				parts[i] = util.PadWidth(c, widths[i])
			}
		}
		fmt.Fprintln(w, style(strings.TrimRight(strings.Join(parts, "  "), " ")))
	}
	line(t.header, func(s string) string { return HeaderStyle.Render(s) })
	for _, r := range t.rows {
		line(r, func(s string) string { return s })
	}
}

func widthOr(limit, n int) int {
	if limit > 0 {
		return limit
	}
	return n
}

// =============================================================================
// FORMATTING
// =============================================================================

// ago renders t relative to now, or "-" for the zero time.
func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func emptyDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
