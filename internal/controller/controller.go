// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Streamer runs one streaming exchange. *ollama.Client implements it.
type Streamer interface {
	Stream(ctx context.Context, req model.GenerationRequest, events ollama.Events) (*ollama.StreamState, error)
}

// Store is the persistence the controller needs.
// *storage.ConversationStore implements it.
type Store interface {
	Save(ctx context.Context, title, modelName string, msgs []model.Message, systemPrompt string) (int64, error)
	Update(ctx context.Context, id int64, opts storage.UpdateOptions) (bool, error)
	Get(ctx context.Context, id int64) (*model.Conversation, error)
}

// Dispatcher runs fn on the presentation loop. It may run fn synchronously.
type Dispatcher func(fn func())

// Events are the callbacks the presentation layer registers. They are
// always invoked through the Dispatcher. Nil callbacks are skipped.
type Events struct {
	OnToken    func(token string)
	OnProgress func(percent int)
	OnComplete func(text string)
	OnError    func(err error)

	// OnSaved and OnSaveError report the auto-save that follows OnComplete.
	OnSaved     func(id int64)
	OnSaveError func(err error)
}

// Options configures a Controller.
type Options struct {
	Model        string
	Params       model.Parameters
	BaseURL      string // empty uses the Streamer's own endpoint
	SystemPrompt string

	// SendSystemPrompt prepends SystemPrompt to every request. It is always
	// stored with the conversation either way.
	SendSystemPrompt bool

	// AutoSave persists the conversation after every completed reply.
	AutoSave bool

	Dispatch Dispatcher
	Events   Events
	Logger   *slog.Logger
}

// =============================================================================
// CONTROLLER
// =============================================================================

// activeRun is the single in-flight session.
type activeRun struct {
	gen    uint64
	cancel context.CancelFunc
}

// Controller is safe for concurrent use, but is meant to be driven from one
// presentation loop.
type Controller struct {
	streamer Streamer
	store    Store
	dispatch Dispatcher
	events   Events
	logger   *slog.Logger

	mu           sync.Mutex
	messages     []model.Message
	convID       int64
	modelName    string
	params       model.Parameters
	baseURL      string
	systemPrompt string
	sendSystem   bool
	autoSave     bool
	gen          uint64
	active       *activeRun
	visible      uint64 // session whose token/progress events reach the UI

	// persistMu serialises save/update so a fresh conversation is bound to
	// exactly one row.
	persistMu sync.Mutex
}

// New creates a Controller seeded with the greeting message.
// store may be nil, in which case nothing is persisted.
func New(streamer Streamer, store Store, opts Options) *Controller {
	dispatch := opts.Dispatch
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	params := opts.Params
	if params == (model.Parameters{}) {
		params = model.DefaultParameters()
	}

	c := &Controller{
		streamer:     streamer,
		store:        store,
		dispatch:     dispatch,
		events:       opts.Events,
		logger:       logger.With("component", "controller"),
		modelName:    opts.Model,
		params:       params,
		baseURL:      opts.BaseURL,
		systemPrompt: opts.SystemPrompt,
		sendSystem:   opts.SendSystemPrompt,
		autoSave:     opts.AutoSave,
	}
	c.messages = []model.Message{model.NewAssistantMessage(model.Greeting)}
	return c
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Messages returns a copy of the in-memory conversation.
func (c *Controller) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CloneMessages(c.messages)
}

// ConversationID returns the bound store id, or 0 if never saved.
func (c *Controller) ConversationID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.convID
}

// Busy reports whether a session is streaming.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Model returns the model used for new requests.
func (c *Controller) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelName
}

// SetModel changes the model used for the next request.
func (c *Controller) SetModel(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modelName = name
}

// Parameters returns the sampling parameters used for new requests.
func (c *Controller) Parameters() model.Parameters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// SetParameters validates and installs new sampling parameters.
func (c *Controller) SetParameters(p model.Parameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = p
	return nil
}

// SetSystemPrompt changes the system prompt for this conversation.
func (c *Controller) SetSystemPrompt(prompt string, send bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systemPrompt = prompt
	c.sendSystem = send
}

// SetAutoSave toggles persistence after each completed reply.
func (c *Controller) SetAutoSave(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoSave = on
}

// Snapshot returns the in-memory conversation as a model.Conversation, for
// export. Timestamps and tags are only known to the store and stay empty.
func (c *Controller) Snapshot() *model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := model.CloneMessages(c.messages)
	return &model.Conversation{
		ID:           c.convID,
		Title:        model.DeriveTitle(msgs),
		Model:        c.modelName,
		SystemPrompt: c.systemPrompt,
		Messages:     msgs,
	}
}
