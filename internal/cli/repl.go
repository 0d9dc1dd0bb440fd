// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/controller"
	"github.com/jeranaias/rigchat/internal/export"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads prompted lines. *liner.State implements it on a
// terminal; scanReader handles pipes.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

type scanReader struct {
	scanner *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *scanReader) AppendHistory(string) {}

func (r *scanReader) Close() error { return nil }

// historyPath is where the line editor keeps its history.
func historyPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "chat_history")
}

// newLiner opens a line editor with history loaded.
func newLiner() *liner.State {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	if f, err := os.Open(historyPath()); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return line
}

// saveLinerHistory persists history with owner-only permissions.
func saveLinerHistory(line *liner.State) {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(historyPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}

// =============================================================================
// SESSION
// =============================================================================

// repl is a line-based chat session.
type repl struct {
	ctx       context.Context
	app       *App
	out       io.Writer
	in        lineReader
	ctrl      *controller.Controller
	loop      *eventLoop
	md        *styles.MarkdownRenderer
	stream    bool
	store     controller.Store
	image     *model.Image
	exportDir string
}

func runREPL(ctx context.Context, app *App, opts chatOptions) error {
	cfg := app.Config()
	exportDir, err := cfg.ExportDir()
	if err != nil {
		return err
	}

	r := &repl{
		ctx:       ctx,
		app:       app,
		out:       app.Stdout,
		loop:      newEventLoop(),
		store:     app.optionalStore(),
		exportDir: exportDir,
	}
	if cfg.UI.Markdown && IsOutputTTY(app.Stdout) {
		r.md = styles.NewMarkdownRenderer(cfg.UI.Theme, TerminalWidth(app.Stdout))
	}
	r.stream = cfg.UI.Stream && r.md == nil

	ctrlOpts := app.controllerOptions()
	ctrlOpts.Dispatch = r.loop.Dispatch
	ctrlOpts.Events = r.events()
	r.ctrl = controller.New(app.Client(), r.store, ctrlOpts)

	if IsTTY(app.Stdin) && IsOutputTTY(app.Stdout) {
		line := newLiner()
		defer saveLinerHistory(line)
		r.in = line
	} else {
		r.in = &scanReader{scanner: bufio.NewScanner(app.Stdin)}
	}
	defer r.in.Close()

	if opts.load > 0 {
		conv, err := r.ctrl.Load(ctx, opts.load)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, MutedStyle.Render(fmt.Sprintf("Loaded #%d: %s (%d messages)", conv.ID, conv.Title, len(conv.Messages))))
	}
	return r.run()
}

func (r *repl) events() controller.Events {
	return controller.Events{
		OnToken: func(tok string) {
			if r.stream {
				fmt.Fprint(r.out, tok)
			}
		},
		OnComplete: func(text string) {
			switch {
			case r.stream:
				fmt.Fprintln(r.out)
			case r.md != nil:
				fmt.Fprintln(r.out, r.md.Render(text))
			default:
				fmt.Fprintln(r.out, text)
			}
			r.loop.finish()
		},
		OnError: func(err error) {
			if r.stream {
				fmt.Fprintln(r.out)
			}
			fmt.Fprintln(r.out, ErrorStyle.Render("[Error]"), err)
			r.loop.finish()
		},
		OnSaved: func(id int64) {
			r.app.Logger().Debug("conversation saved", "id", id)
		},
		OnSaveError: func(err error) {
			fmt.Fprintln(r.out, WarningStyle.Render("[Warning] auto-save failed:"), err)
		},
	}
}

func (r *repl) run() error {
	last := r.ctrl.Messages()
	if n := len(last); n > 0 {
		r.printMessage(last[n-1])
	}
	fmt.Fprintln(r.out, MutedStyle.Render("Type /help for commands, /quit to exit."))

	for {
		input, err := r.in.Prompt("you> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := r.command(input); quit {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}
		r.send(input)
	}
}

func (r *repl) send(prompt string) {
	if err := r.ctrl.Send(r.ctx, prompt, r.image); err != nil {
		fmt.Fprintln(r.out, ErrorStyle.Render("[Error]"), err)
		return
	}
	r.image = nil
	r.awaitReply()
}

func (r *repl) awaitReply() {
	if r.stream {
		fmt.Fprint(r.out, AssistantStyle.Render("assistant> "))
	}
	if r.loop.wait(r.ctx, r.ctrl) {
		fmt.Fprintln(r.out, WarningStyle.Render("\n[Cancelled]"))
	}
}

func (r *repl) printMessage(m model.Message) {
	label := PromptStyle.Render("you>")
	if m.Role == model.RoleAssistant {
		label = AssistantStyle.Render("assistant>")
	}
	fmt.Fprintln(r.out, label, m.Text())
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

const replHelp = `Commands:
  /new               start a new conversation
  /regen             regenerate the last reply
  /save              save the conversation
  /load <id>         open a saved conversation
  /history [n]       list recent conversations
  /model [name]      show or switch model
  /image <path>      attach an image to the next message
  /export [format]   export to json, markdown or yaml
  /quit              exit`

// command runs a slash command and reports whether to exit.
func (r *repl) command(line string) bool {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch strings.ToLower(name) {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(r.out, replHelp)
	case "new":
		r.ctrl.NewChat()
		r.image = nil
		fmt.Fprintln(r.out, SuccessStyle.Render("New conversation"))
	case "regen", "regenerate":
		if err = r.ctrl.Regenerate(r.ctx); err == nil {
			r.awaitReply()
		}
	case "save":
		var id int64
		if id, err = r.ctrl.Persist(r.ctx); err == nil {
			fmt.Fprintln(r.out, SuccessStyle.Render(fmt.Sprintf("Saved as #%d", id)))
		}
	case "load":
		err = r.load(arg)
	case "history":
		err = r.history(arg)
	case "model":
		if arg == "" {
			fmt.Fprintln(r.out, "Model:", r.ctrl.Model())
		} else {
			r.ctrl.SetModel(arg)
			fmt.Fprintln(r.out, SuccessStyle.Render("Model set to "+arg))
		}
	case "image", "img":
		if arg == "" {
			err = errors.New("usage: /image <path>")
			break
		}
		var img *model.Image
		if img, err = model.LoadImage(arg); err == nil {
			r.image = img
			fmt.Fprintln(r.out, SuccessStyle.Render("Attached "+arg))
		}
	case "export":
		err = r.export(arg)
	default:
		err = fmt.Errorf("unknown command /%s (try /help)", name)
	}
	if err != nil {
		fmt.Fprintln(r.out, ErrorStyle.Render("[Error]"), err)
	}
	return false
}

func (r *repl) load(arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return errors.New("usage: /load <id>")
	}
	conv, err := r.ctrl.Load(r.ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, SuccessStyle.Render(fmt.Sprintf("Loaded #%d: %s", conv.ID, conv.Title)))
	for _, m := range conv.Messages {
		r.printMessage(m)
	}
	return nil
}

func (r *repl) history(arg string) error {
	store, ok := r.store.(*storage.ConversationStore)
	if !ok {
		return controller.ErrNoStore
	}
	limit := 10
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return errors.New("usage: /history [n]")
		}
		limit = n
	}
	list, err := store.List(r.ctx, storage.ListOptions{Limit: limit})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(r.out, MutedStyle.Render("No saved conversations"))
		return nil
	}
	for _, s := range list {
		fmt.Fprintf(r.out, "#%-4d %s %s\n", s.ID, util.TruncateWidth(s.Title, 40), MutedStyle.Render(ago(s.UpdatedAt)))
	}
	return nil
}

func (r *repl) export(format string) error {
	if format == "" {
		format = "json"
	}
	exp, err := export.ForFormat(format)
	if err != nil {
		return err
	}
	opts := export.DefaultOptions()
	opts.OutputDir = r.exportDir
	path, err := export.ExportToFile(r.ctrl.Snapshot(), exp, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, SuccessStyle.Render("Exported to "+path))
	return nil
}
