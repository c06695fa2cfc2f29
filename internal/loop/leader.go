package loop

import (
	"fmt"
	"io"
	"log/slog"

	"gitstatuswatch/internal/git"
	"gitstatuswatch/internal/watcher"
)

// Leader owns the repository watcher, recomputes the snapshot on every
// change signal, and is the only writer of the shared state file.
type Leader struct {
	// Compute builds a fresh snapshot from repository state.
	Compute func() (git.Snapshot, error)

	// Publish atomically replaces the shared state file.
	Publish func(git.Snapshot) error

	// Subscribe starts the repository watcher. It is called only after the
	// initial snapshot has been computed and emitted, so the initial
	// computation needs no feedback suppression.
	Subscribe func() (<-chan watcher.Event, error)

	Out  io.Writer
	Opts Options

	last    git.Snapshot
	emitted bool
}

// Run blocks until the output consumer goes away (nil) or the watcher stops
// delivering (ErrWatcherClosed). Subscribe failure is fatal at startup.
func (l *Leader) Run() error {
	out := &emitter{w: l.Out, template: l.Opts.Template}

	snap, err := l.Compute()
	if err != nil {
		return fmt.Errorf("initial status: %w", err)
	}
	l.publish(snap)
	if err := out.emit(snap); err != nil {
		slog.Debug("output closed", slog.Any("error", err))
		return nil
	}
	l.last, l.emitted = snap, true

	events, err := l.Subscribe()
	if err != nil {
		return err
	}
	for {
		ev, ok := <-events
		if !ok {
			return ErrWatcherClosed
		}
		if ev.Err != nil {
			slog.Error("watcher error", slog.Any("error", ev.Err))
			continue
		}
		// Recomputing status touches bookkeeping files inside the watched
		// tree, and the watcher cannot tell those writes from real
		// changes. Draining here absorbs the echo of the previous
		// recomputation along with the tail of the triggering burst,
		// breaking the self-sustaining refresh cycle.
		drainEvents(events, l.Opts.DrainWindow)

		snap, err := l.Compute()
		if err != nil {
			slog.Error("status compute failed", slog.Any("error", err))
			continue
		}
		if !l.Opts.AlwaysPrint && l.emitted && snap == l.last {
			continue
		}
		l.publish(snap)
		if err := out.emit(snap); err != nil {
			slog.Debug("output closed", slog.Any("error", err))
			return nil
		}
		l.last, l.emitted = snap, true
	}
}

// publish failures leave followers one snapshot behind but do not affect
// this process's own output.
func (l *Leader) publish(snap git.Snapshot) {
	if err := l.Publish(snap); err != nil {
		slog.Error("publish state", slog.Any("error", err))
	}
}
