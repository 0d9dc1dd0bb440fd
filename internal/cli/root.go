// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewRootCmd builds the command tree around app.
func NewRootCmd(app *App) *cobra.Command {
	var chatOpts chatOptions

	root := &cobra.Command{
		Use:   "rigchat",
		Short: "Chat with local models served by Ollama",
		Long: `rigchat is a terminal chat client for a local Ollama server.

Replies stream token by token, conversations are saved to a local SQLite
database, and saved conversations can be searched, tagged and exported.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			return app.init()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), app, chatOpts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default ~/.rigchat/config.toml)")
	pf.StringVarP(&app.flags.model, "model", "m", "", "model to use")
	pf.StringVar(&app.flags.url, "url", "", "Ollama base URL")
	pf.StringVar(&app.flags.db, "db", "", "conversation database path")
	pf.StringVar(&app.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&app.flags.json, "json", false, "machine-readable output")

	root.Flags().Int64Var(&chatOpts.load, "load", 0, "open saved conversation `id`")

	root.AddCommand(
		newChatCmd(app),
		newAskCmd(app),
		newModelsCmd(app),
		newHistoryCmd(app),
		newStatsCmd(app),
		newConfigCmd(app),
		newSettingsCmd(app),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, app *App, args []string) int {
	root := NewRootCmd(app)
	root.SetArgs(args)
	root.SetIn(app.Stdin)
	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)

	err := root.ExecuteContext(ctx)
	if cerr := app.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		return 0
	}
	if app.flags.json {
		_ = NewJSONErrorResponse(commandName(root, args), err).Print(app.Stdout)
	} else {
		fmt.Fprintln(app.Stderr, ErrorStyle.Render("Error:"), err)
	}
	return 1
}

// commandName returns the path of the command args resolve to.
func commandName(root *cobra.Command, args []string) string {
	cmd, _, err := root.Find(args)
	if err != nil || cmd == nil {
		return root.Name()
	}
	return cmd.CommandPath()
}
