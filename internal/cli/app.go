// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/controller"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/storage"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	model      string
	url        string
	db         string
	logLevel   string
	verbose    bool
	json       bool
}

// App carries the resources commands share. Resources are created on first
// use and released by Close.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	flags    globalFlags
	cfgPath  string
	logger   *slog.Logger
	closeLog func() error
	store    *storage.ConversationStore
	client   *ollama.Client
}

// NewApp creates an App bound to the process's standard streams.
func NewApp() *App {
	return &App{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// init loads the configuration and sets up logging.
func (a *App) init() error {
	var (
		cfg     *config.Config
		loadErr error
	)
	if a.flags.configPath != "" {
		cfg, loadErr = config.LoadFromPath(a.flags.configPath)
		if loadErr != nil {
			return loadErr
		}
		a.cfgPath = a.flags.configPath
	} else {
		cfg, loadErr = config.Load()
		if cfg == nil {
			return loadErr
		}
		a.cfgPath = existingConfigPath()
	}
	a.applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	config.SetGlobal(cfg)

	a.logger, a.closeLog = cfg.SetupLogger(a.Stderr)
	slog.SetDefault(a.logger)
	if loadErr != nil {
		a.logger.Warn("config file ignored, using defaults", "error", loadErr)
	}
	return nil
}

// applyFlags layers the command-line overrides onto cfg.
func (a *App) applyFlags(cfg *config.Config) {
	if a.flags.model != "" {
		cfg.Model.Name = a.flags.model
	}
	if a.flags.url != "" {
		cfg.API.BaseURL = a.flags.url
	}
	if a.flags.db != "" {
		cfg.Storage.DatabasePath = a.flags.db
	}
	if a.flags.logLevel != "" {
		cfg.Logging.Level = a.flags.logLevel
	}
	if a.flags.verbose {
		cfg.Logging.Level = "debug"
	}
}

// reload installs a configuration re-read from disk. Command-line flags
// keep precedence over the file.
func (a *App) reload(next *config.Config) {
	a.applyFlags(next)
	config.SetGlobal(next)
}

// existingConfigPath returns the config file Load would read, or "".
func existingConfigPath() string {
	for _, fn := range []func() (string, error){config.ConfigPathTOML, config.ConfigPathJSON} {
		if p, err := fn(); err == nil {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

// Config returns the effective configuration. The chat screen replaces it
// when the config file changes.
func (a *App) Config() *config.Config {
	return config.Global()
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

// Client returns the Ollama client.
func (a *App) Client() *ollama.Client {
	if a.client == nil {
		a.client = ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL: a.Config().API.BaseURL,
			Timeout: a.Config().Timeout(),
			Logger:  a.Logger(),
		})
	}
	return a.client
}

// Store opens the conversation database.
func (a *App) Store() (*storage.ConversationStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	path, err := a.Config().DatabasePath()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(path, storage.WithLogger(a.Logger()))
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// optionalStore returns the store as a controller.Store, or nil with a
// warning when the database cannot be opened. Chat works without it.
func (a *App) optionalStore() controller.Store {
	store, err := a.Store()
	if err != nil {
		a.Logger().Warn("conversation database unavailable, history disabled", "error", err)
		return nil
	}
	return store
}

// controllerOptions builds controller options from the configuration.
func (a *App) controllerOptions() controller.Options {
	return controller.Options{
		Model:            a.Config().Model.Name,
		Params:           a.Config().Parameters(),
		SystemPrompt:     a.Config().Conversation.SystemPrompt,
		SendSystemPrompt: a.Config().Conversation.SendSystemPrompt,
		AutoSave:         a.Config().Conversation.AutoSave,
		Logger:           a.Logger(),
	}
}

// Close releases the database and the log file.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.closeLog != nil {
		errs = append(errs, a.closeLog())
		a.closeLog = nil
	}
	return errors.Join(errs...)
}
