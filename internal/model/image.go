// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/base64"
	"fmt"
	"os"
)

// Image is an attachment selected for the next user message.
type Image struct {
	Path string // recorded in the stored message
	Data string // base64 payload sent to the server
}

// LoadImage reads the file at path and base64-encodes it.
func LoadImage(path string) (*Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &Image{Path: path, Data: base64.StdEncoding.EncodeToString(raw)}, nil
}
