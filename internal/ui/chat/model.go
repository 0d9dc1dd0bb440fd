// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/controller"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures the chat screen.
type Options struct {
	// Theme is the glamour style: "dark", "light" or "auto".
	Theme string

	// Markdown renders assistant replies through glamour.
	Markdown bool

	// Stream shows tokens as they arrive. When false only the final reply
	// is shown.
	Stream bool

	// ExportDir receives /export output.
	ExportDir string

	Logger *slog.Logger
}

// Builder creates the controller the screen drives. It receives the
// dispatcher and events the controller must be configured with.
type Builder func(dispatch controller.Dispatcher, events controller.Events) *controller.Controller

// =============================================================================
// MODEL
// =============================================================================

// Model is the bubbletea model for the chat screen. Use it by pointer.
type Model struct {
	ctx    context.Context
	ctrl   *controller.Controller
	opts   Options
	logger *slog.Logger

	// send delivers a message to the running program. It is set once the
	// program exists and read from stream and watcher goroutines.
	send atomic.Pointer[func(tea.Msg)]

	keys     KeyMap
	help     help.Model
	input    textarea.Model
	viewport viewport.Model
	progress progress.Model
	theme    *styles.Theme
	md       *styles.MarkdownRenderer

	// partial is the reply streaming in; pending holds commands produced by
	// controller events during the current Update.
	partial  string
	percent  int
	pending  []tea.Cmd
	image    *model.Image
	status   string
	statusOK bool
	showHelp bool
	rendered map[string]string

	width, height int
	ready         bool
}

// New creates the screen and its controller.
func New(ctx context.Context, build Builder, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ta := textarea.New()
	ta.Placeholder = "Type a message, /help for commands..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = DefaultKeyMap().Newline
	ta.Focus()

	m := &Model{
		ctx:      ctx,
		opts:     opts,
		logger:   logger.With("component", "tui"),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		input:    ta,
		viewport: viewport.New(styles.DefaultWrap, 20),
		progress: progress.New(
			progress.WithGradient(styles.GradientStart, styles.GradientEnd),
			progress.WithoutPercentage(),
		),
		theme:    styles.NewTheme(),
		rendered: make(map[string]string),
	}
	if opts.Markdown {
		m.md = styles.NewMarkdownRenderer(opts.Theme, styles.DefaultWrap)
	}
	m.ctrl = build(m.Dispatch, m.events())
	m.refresh()
	return m
}

// Controller returns the controller the screen drives.
func (m *Model) Controller() *controller.Controller {
	return m.ctrl
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.setSender(p.Send)
	_, err := p.Run()
	m.ctrl.Cancel()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("chat screen: %w", err)
	}
	return nil
}

// =============================================================================
// DISPATCH
// =============================================================================

// dispatchMsg carries a controller callback onto the program loop.
type dispatchMsg func()

// Dispatch hands fn to the program. Before the program starts it runs fn
// inline.
func (m *Model) Dispatch(fn func()) {
	send := m.send.Load()
	if send == nil {
		fn()
		return
	}
	(*send)(dispatchMsg(fn))
}

func (m *Model) setSender(send func(tea.Msg)) {
	m.send.Store(&send)
}

func (m *Model) events() controller.Events {
	return controller.Events{
		OnToken: func(tok string) {
			if m.opts.Stream {
				m.partial += tok
				m.refresh()
			}
		},
		OnProgress: func(p int) {
			m.percent = p
			m.pending = append(m.pending, m.progress.SetPercent(float64(p)/100))
		},
		OnComplete: func(string) {
			m.partial = ""
			m.refresh()
		},
		OnError: func(err error) {
			m.partial = ""
			m.setStatus(false, err.Error())
			m.refresh()
		},
		OnSaved: func(id int64) {
			m.setStatus(true, fmt.Sprintf("Saved conversation #%d", id))
		},
		OnSaveError: func(err error) {
			m.setStatus(false, "Auto-save failed: "+err.Error())
		},
	}
}

func (m *Model) setStatus(ok bool, text string) {
	m.status = text
	m.statusOK = ok
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

// headerHeight, statusHeight and progressHeight are single lines.
const (
	headerHeight   = 1
	progressHeight = 1
	statusHeight   = 1
)

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.SetWidth(width - 2)
	m.progress.Width = width - 2
	m.help.Width = width

	inputHeight := m.input.Height() + 2
	vpHeight := height - headerHeight - progressHeight - statusHeight - inputHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight

	if m.md != nil {
		m.md.SetWidth(width - 4)
	}
	clear(m.rendered)
	m.ready = true
	m.refresh()
}

var _ tea.Model = (*Model)(nil)
