// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/controller"
	"github.com/jeranaias/rigchat/internal/ui/chat"
)

type chatOptions struct {
	plain bool
	load  int64
}

func newChatCmd(app *App) *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat",
		Long: `Start an interactive chat.

The full-screen interface is used on a terminal; --plain, or a non-terminal
stdin or stdout, selects the line-based chat.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), app, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "line-based chat instead of the full-screen interface")
	cmd.Flags().Int64Var(&opts.load, "load", 0, "open saved conversation `id`")
	return cmd
}

func runChat(ctx context.Context, app *App, opts chatOptions) error {
	if opts.plain || !IsTTY(app.Stdin) || !IsOutputTTY(app.Stdout) {
		return runREPL(ctx, app, opts)
	}
	return runTUI(ctx, app, opts)
}

// runTUI runs the full-screen chat. Logs go only to the log file while the
// screen is up.
func runTUI(ctx context.Context, app *App, opts chatOptions) error {
	cfg := app.Config()
	logger, closeLog := cfg.SetupLogger(io.Discard)
	defer closeLog()
	app.logger = logger

	exportDir, err := cfg.ExportDir()
	if err != nil {
		return err
	}
	store := app.optionalStore()

	m := chat.New(ctx, func(dispatch controller.Dispatcher, events controller.Events) *controller.Controller {
		ctrlOpts := app.controllerOptions()
		ctrlOpts.Dispatch = dispatch
		ctrlOpts.Events = events
		return controller.New(app.Client(), store, ctrlOpts)
	}, chat.Options{
		Theme:     cfg.UI.Theme,
		Markdown:  cfg.UI.Markdown,
		Stream:    cfg.UI.Stream,
		ExportDir: exportDir,
		Logger:    logger,
	})

	if opts.load > 0 {
		if _, err := m.Controller().Load(ctx, opts.load); err != nil {
			return err
		}
	}

	if app.cfgPath != "" {
		watchCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			err := config.Watch(watchCtx, app.cfgPath, config.DefaultWatchDebounce,
				func(next *config.Config) {
					app.reload(next)
					m.Dispatch(func() { applyConfig(m.Controller(), next, logger) })
				},
				func(err error) { logger.Warn("config reload failed", "error", err) },
			)
			if err != nil {
				logger.Warn("config watch stopped", "error", err)
			}
		}()
	}

	return chat.Run(ctx, m)
}

// applyConfig installs reloaded settings for the next request.
func applyConfig(ctrl *controller.Controller, cfg *config.Config, logger *slog.Logger) {
	ctrl.SetModel(cfg.Model.Name)
	if err := ctrl.SetParameters(cfg.Parameters()); err != nil {
		logger.Warn("reloaded parameters rejected", "error", err)
	}
	ctrl.SetSystemPrompt(cfg.Conversation.SystemPrompt, cfg.Conversation.SendSystemPrompt)
	ctrl.SetAutoSave(cfg.Conversation.AutoSave)
}
