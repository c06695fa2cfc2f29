// Package loop runs the process's event loop in one of the two roles decided
// by lock election: a leader that computes and publishes snapshots, or a
// follower that mirrors the leader's published state. Both roles share the
// same deduplication and termination semantics.
package loop

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gitstatuswatch/internal/git"
	"gitstatuswatch/internal/render"
	"gitstatuswatch/internal/watcher"
)

// ErrWatcherClosed reports that the background notification stream stopped
// delivering. The process exits with a failure status.
var ErrWatcherClosed = errors.New("watcher channel closed")

type Options struct {
	// Template is the output format; empty selects JSON.
	Template string

	// AlwaysPrint emits every recomputed snapshot even when identical to
	// the previous one.
	AlwaysPrint bool

	// DrainWindow is how long the leader keeps consuming events after a
	// change signal before recomputing. Longer windows absorb more
	// self-caused notifications at the cost of added latency.
	DrainWindow time.Duration
}

type emitter struct {
	w        io.Writer
	template string
}

// emit writes one newline-terminated line. A write failure means the
// consumer closed its end; callers treat it as a clean shutdown.
func (e *emitter) emit(snap git.Snapshot) error {
	_, err := fmt.Fprintln(e.w, render.Line(snap, e.template))
	return err
}

// drainEvents consumes change signals for a fixed window. Errors are still
// reported; the window is not extended by arrivals.
func drainEvents(events <-chan watcher.Event, window time.Duration) {
	if window <= 0 {
		return
	}
	timer := time.NewTimer(window)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Err != nil {
				slog.Error("watcher error", slog.Any("error", ev.Err))
			}
		case <-timer.C:
			return
		}
	}
}
