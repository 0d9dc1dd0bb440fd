// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
)

// Persist writes the in-memory conversation to the store. A conversation
// already bound to an id is updated in place (full message replace); if that
// row has vanished, or nothing is bound yet, a new row is saved and bound.
//
// A failure leaves the in-memory conversation untouched so it can be retried.
func (c *Controller) Persist(ctx context.Context) (int64, error) {
	if c.store == nil {
		return 0, ErrNoStore
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	msgs := model.CloneMessages(c.messages)
	boundID := c.convID
	modelName := c.modelName
	systemPrompt := c.systemPrompt
	c.mu.Unlock()

	if len(msgs) == 0 {
		return 0, ErrNothingToSave
	}

	if boundID != 0 {
		ok, err := c.store.Update(ctx, boundID, storage.UpdateOptions{Messages: msgs, ReplaceMessages: true})
		if err != nil {
			return 0, err
		}
		if ok {
			c.logger.Debug("conversation updated", "id", boundID, "messages", len(msgs))
			return boundID, nil
		}
		c.logger.Warn("bound conversation missing, saving as new", "id", boundID)
	}

	id, err := c.store.Save(ctx, model.DeriveTitle(msgs), modelName, msgs, systemPrompt)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	// NewChat or Load may have rebound the controller meanwhile.
	if c.convID == boundID {
		c.convID = id
	}
	c.mu.Unlock()

	c.logger.Info("conversation saved", "id", id, "messages", len(msgs))
	return id, nil
}

// Load replaces the in-memory conversation with stored conversation id and
// binds to it. The stored model and system prompt become current.
func (c *Controller) Load(ctx context.Context, id int64) (*model.Conversation, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}
	if c.Busy() {
		return nil, ErrBusy
	}

	conv, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	msgs := model.CloneMessages(conv.Messages)
	c.attachImages(msgs)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return nil, ErrBusy
	}
	c.messages = msgs
	c.convID = conv.ID
	c.visible = 0
	if conv.Model != "" {
		c.modelName = conv.Model
	}
	c.systemPrompt = conv.SystemPrompt
	c.logger.Info("conversation loaded", "id", id, "messages", len(conv.Messages))
	return conv, nil
}

// attachImages reloads the payloads of image messages from their stored
// paths. Files that are gone leave the message text-only on the wire.
func (c *Controller) attachImages(msgs []model.Message) {
	for i := range msgs {
		if !msgs[i].Content.HasImage() {
			continue
		}
		img, err := model.LoadImage(msgs[i].Content.ImagePath)
		if err != nil {
			c.logger.Debug("image not reattached", "path", msgs[i].Content.ImagePath, "error", err)
			continue
		}
		msgs[i].Images = []string{img.Data}
	}
}
