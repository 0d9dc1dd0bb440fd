// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/controller"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

type askOptions struct {
	image  string
	system string
	save   bool
	raw    bool
}

// askResult is the --json payload of ask.
type askResult struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Response       string `json:"response"`
	ConversationID int64  `json:"conversation_id,omitempty"`
}

func newAskCmd(app *App) *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question",
		Long: `Ask a single question and print the reply.

The question is read from stdin when no argument is given or the argument
is "-".`,
		Example: `  rigchat ask "What is a goroutine?"
  rigchat ask --image cat.png "What animal is this?"
  git diff | rigchat ask --system "Review this diff"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(app.Stdin, args)
			if err != nil {
				return err
			}
			return runAsk(cmd, app, prompt, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.image, "image", "i", "", "attach an image file")
	cmd.Flags().StringVarP(&opts.system, "system", "s", "", "system prompt for this question")
	cmd.Flags().BoolVar(&opts.save, "save", false, "save the exchange to history")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print the reply without markdown rendering")
	return cmd
}

// readPrompt joins args, or reads stdin when there are none.
func readPrompt(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	if IsTTY(stdin) {
		return "", errors.New("no question given")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("no question given")
	}
	return prompt, nil
}

func runAsk(cmd *cobra.Command, app *App, prompt string, opts askOptions) error {
	ctx := cmd.Context()
	cfg := app.Config()
	out := app.Stdout

	var img *model.Image
	if opts.image != "" {
		var err error
		if img, err = model.LoadImage(opts.image); err != nil {
			return err
		}
	}

	// Markdown is rendered once the reply is complete, so it replaces
	// streaming on a terminal.
	render := cfg.UI.Markdown && !opts.raw && !app.flags.json && IsOutputTTY(out)
	stream := cfg.UI.Stream && !render && !app.flags.json

	loop := newEventLoop()
	var (
		reply   string
		failure error
		savedID int64
	)

	ctrlOpts := app.controllerOptions()
	ctrlOpts.AutoSave = opts.save
	ctrlOpts.Dispatch = loop.Dispatch
	if opts.system != "" {
		ctrlOpts.SystemPrompt = opts.system
		ctrlOpts.SendSystemPrompt = true
	}
	ctrlOpts.Events = controller.Events{
		OnToken: func(tok string) {
			if stream {
				fmt.Fprint(out, tok)
			}
		},
		OnComplete: func(text string) {
			reply = text
			loop.finish()
		},
		OnError: func(err error) {
			failure = err
			loop.finish()
		},
		OnSaved: func(id int64) { savedID = id },
		OnSaveError: func(err error) {
			app.Logger().Warn("failed to save conversation", "error", err)
		},
	}

	var store controller.Store
	if opts.save {
		s, err := app.Store()
		if err != nil {
			return err
		}
		store = s
	}
	ctrl := controller.New(app.Client(), store, ctrlOpts)

	if err := ctrl.Send(ctx, prompt, img); err != nil {
		return err
	}
	if loop.wait(ctx, ctrl) {
		fmt.Fprintln(app.Stderr, WarningStyle.Render("\n[Cancelled]"))
		return errors.New("cancelled")
	}
	if failure != nil {
		if stream {
			fmt.Fprintln(out)
		}
		return failure
	}

	switch {
	case app.flags.json:
		return NewJSONResponse(cmd.CommandPath(), askResult{
			Model:          ctrl.Model(),
			Prompt:         prompt,
			Response:       reply,
			ConversationID: savedID,
		}).Print(out)
	case render:
		md := styles.NewMarkdownRenderer(cfg.UI.Theme, TerminalWidth(out))
		fmt.Fprintln(out, md.Render(reply))
	case stream:
		fmt.Fprintln(out)
	default:
		fmt.Fprintln(out, reply)
	}
	if savedID != 0 {
		fmt.Fprintln(app.Stderr, MutedStyle.Render(fmt.Sprintf("Saved as conversation #%d", savedID)))
	}
	return nil
}
