// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/jeranaias/rigchat/internal/controller"
)

// eventLoop runs controller callbacks on the goroutine that calls wait, so
// line-mode commands can print without locking.
type eventLoop struct {
	queue    chan func()
	finished bool
}

func newEventLoop() *eventLoop {
	return &eventLoop{queue: make(chan func(), 256)}
}

// Dispatch implements controller.Dispatcher.
func (l *eventLoop) Dispatch(fn func()) {
	l.queue <- fn
}

// finish ends the current wait once the running callback returns.
func (l *eventLoop) finish() {
	l.finished = true
}

// wait runs callbacks until one calls finish. Ctrl+C cancels the reply in
// progress and reports interrupted.
func (l *eventLoop) wait(ctx context.Context, ctrl *controller.Controller) (interrupted bool) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	l.finished = false
	for !l.finished {
		select {
		case fn := <-l.queue:
			fn()
		case <-sigCtx.Done():
			ctrl.Cancel()
			return true
		}
	}
	return false
}
