// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"strings"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
)

// =============================================================================
// SEND / REGENERATE
// =============================================================================

// Send appends a user message and starts streaming the reply. img may be nil.
// It returns once the session has started; the outcome arrives as events.
func (c *Controller) Send(ctx context.Context, prompt string, img *model.Image) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && img == nil {
		return ErrEmptyPrompt
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return ErrBusy
	}
	if err := c.params.Validate(); err != nil {
		return err
	}

	prior := model.CloneMessages(c.messages)

	msg := model.NewUserMessage(prompt)
	imageData := ""
	if img != nil {
		msg.Content = model.ImageContent(prompt, img.Path)
		msg.Images = []string{img.Data}
		imageData = img.Data
	}
	c.messages = append(c.messages, msg)

	c.startLocked(ctx, prompt, prior, imageData)
	return nil
}

// Regenerate discards the last assistant reply and asks again with the user
// message before it. The conversation must end user → assistant; otherwise
// ErrNothingToRegenerate is returned and nothing changes.
func (c *Controller) Regenerate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return ErrBusy
	}
	n := len(c.messages)
	if n < 2 || c.messages[n-1].Role != model.RoleAssistant || c.messages[n-2].Role != model.RoleUser {
		return ErrNothingToRegenerate
	}
	if err := c.params.Validate(); err != nil {
		return err
	}

	c.messages = c.messages[:n-1]
	user := c.messages[n-2]
	prior := model.CloneMessages(c.messages[:n-2])

	imageData := ""
	if len(user.Images) > 0 {
		imageData = user.Images[0]
	}

	c.startLocked(ctx, user.Text(), prior, imageData)
	return nil
}

// Cancel aborts the streaming session, if any. Events already queued for it
// are dropped. It reports whether a session was running.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelLocked()
}

// NewChat cancels any session and starts over with just the greeting.
// The next save creates a new conversation.
func (c *Controller) NewChat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.visible = 0
	c.messages = []model.Message{model.NewAssistantMessage(model.Greeting)}
	c.convID = 0
}

func (c *Controller) cancelLocked() bool {
	if c.active == nil {
		return false
	}
	c.active.cancel()
	c.logger.Info("generation cancelled", "gen", c.active.gen)
	c.active = nil
	c.visible = 0
	return true
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// startLocked launches the session goroutine. c.mu must be held.
func (c *Controller) startLocked(ctx context.Context, prompt string, prior []model.Message, imageData string) {
	c.gen++
	gen := c.gen
	runCtx, cancel := context.WithCancel(ctx)
	c.active = &activeRun{gen: gen, cancel: cancel}
	c.visible = gen

	req := model.NewGenerationRequest(c.modelName, prompt, prior, c.params, imageData, c.baseURL)
	if c.sendSystem && c.systemPrompt != "" {
		req = req.WithSystemPrompt(c.systemPrompt)
	}

	c.logger.Info("generation started", "gen", gen, "model", req.Model, "prior", len(prior))
	go c.run(runCtx, cancel, gen, req)
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, gen uint64, req model.GenerationRequest) {
	defer cancel()

	terminal := false
	_, err := c.streamer.Stream(ctx, req, ollama.Events{
		OnToken: func(tok string) {
			c.deliver(gen, func() { call(c.events.OnToken, tok) })
		},
		OnProgress: func(p int) {
			c.deliver(gen, func() { call(c.events.OnProgress, p) })
		},
		OnComplete: func(text string) {
			terminal = true
			c.dispatch(func() { c.complete(ctx, gen, text) })
		},
		OnError: func(err error) {
			terminal = true
			c.dispatch(func() { c.fail(gen, err) })
		},
	})

	if err != nil && !terminal && !errors.Is(err, ollama.ErrCancelled) {
		c.dispatch(func() { c.fail(gen, err) })
	}
}

// deliver runs fn on the presentation loop unless gen has been cancelled or
// superseded. The trailing progress event after completion still passes.
func (c *Controller) deliver(gen uint64, fn func()) {
	c.dispatch(func() {
		if c.isCurrent(gen) {
			fn()
		}
	})
}

func (c *Controller) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible == gen
}

func (c *Controller) complete(ctx context.Context, gen uint64, text string) {
	c.mu.Lock()
	if c.active == nil || c.active.gen != gen {
		c.mu.Unlock()
		return
	}
	c.messages = append(c.messages, model.NewAssistantMessage(text))
	c.active = nil
	autoSave := c.autoSave && c.store != nil
	c.mu.Unlock()

	c.logger.Info("generation complete", "gen", gen, "chars", len(text))
	call(c.events.OnComplete, text)

	if !autoSave {
		return
	}
	id, err := c.Persist(context.WithoutCancel(ctx))
	if err != nil {
		c.logger.Warn("auto-save failed", "error", err)
		call(c.events.OnSaveError, err)
		return
	}
	call(c.events.OnSaved, id)
}

func (c *Controller) fail(gen uint64, err error) {
	c.mu.Lock()
	if c.active == nil || c.active.gen != gen {
		c.mu.Unlock()
		return
	}
	c.active = nil
	c.mu.Unlock()

	c.logger.Warn("generation failed", "gen", gen, "error", err)
	call(c.events.OnError, err)
}

func call[T any](fn func(T), v T) {
	if fn != nil {
		fn(v)
	}
}
