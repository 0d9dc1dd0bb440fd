// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
)

// =============================================================================
// PARAMETERS
// =============================================================================

// Parameters are the sampling settings sent with every generation.
type Parameters struct {
	Temperature float64 // 0.0-2.0
	TopP        float64 // 0.0-1.0
	TopK        int     // >= 1
	MaxTokens   int     // >= 1, also the denominator of progress
}

// DefaultParameters returns the stock sampling settings.
func DefaultParameters() Parameters {
	return Parameters{
		Temperature: 0.7,
		TopP:        0.9,
		TopK:        40,
		MaxTokens:   2048,
	}
}

// Validate checks every field against its allowed range.
func (p Parameters) Validate() error {
	var errs []error
	if p.Temperature < 0 || p.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature %.2f out of range [0,2]", p.Temperature))
	}
	if p.TopP < 0 || p.TopP > 1 {
		errs = append(errs, fmt.Errorf("top_p %.2f out of range [0,1]", p.TopP))
	}
	if p.TopK < 1 {
		errs = append(errs, fmt.Errorf("top_k %d must be >= 1", p.TopK))
	}
	if p.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("max_tokens %d must be >= 1", p.MaxTokens))
	}
	return errors.Join(errs...)
}

// =============================================================================
// GENERATION REQUEST
// =============================================================================

// GenerationRequest is the input to one streaming exchange. Build it with
// NewGenerationRequest and treat it as read-only afterwards.
type GenerationRequest struct {
	Model        string
	Prompt       string
	Prior        []Message
	Params       Parameters
	ImageData    string // base64, optional
	BaseURL      string
	SystemPrompt string // sent as a leading system message when set
}

// NewGenerationRequest copies prior so later edits to the caller's history
// cannot leak into an in-flight request.
func NewGenerationRequest(modelName, prompt string, prior []Message, params Parameters, imageData, baseURL string) GenerationRequest {
	return GenerationRequest{
		Model:     modelName,
		Prompt:    prompt,
		Prior:     CloneMessages(prior),
		Params:    params,
		ImageData: imageData,
		BaseURL:   baseURL,
	}
}

// WithSystemPrompt returns a copy of r carrying a system prompt.
func (r GenerationRequest) WithSystemPrompt(prompt string) GenerationRequest {
	r.Prior = CloneMessages(r.Prior)
	r.SystemPrompt = prompt
	return r
}
