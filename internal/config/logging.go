// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid level '%s', must be one of: debug, info, warn, error", name)
	}
}

// SetupLogger builds the logger described by the logging section: text to
// stderr, plus JSON to logging.file when set. The returned cleanup closes
// the log file.
func (c *Config) SetupLogger(stderr io.Writer) (*slog.Logger, func() error) {
	level, err := ParseLevel(c.Logging.Level)
	if err != nil {
		level = slog.LevelWarn
	}

	stderrHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	if c.Logging.File == "" {
		return slog.New(stderrHandler), func() error { return nil }
	}

	path, err := expandHome(c.Logging.File)
	if err == nil {
		err = os.MkdirAll(filepath.Dir(path), 0755)
	}
	var file *os.File
	if err == nil {
		file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	}
	if err != nil {
		logger := slog.New(stderrHandler)
		logger.Error("failed to open log file, using stderr only", "error", err, "file", c.Logging.File)
		return logger, func() error { return nil }
	}

	logger := SetupLoggerWithWriters(stderr, file, level)
	return logger, file.Close
}

// SetupLoggerWithWriters creates a logger with custom writers (for testing).
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	stderrHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(stderrHandler, fileHandler))
}
