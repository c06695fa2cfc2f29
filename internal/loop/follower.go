package loop

import (
	"io"
	"log/slog"

	"gitstatuswatch/internal/git"
	"gitstatuswatch/internal/watcher"
)

// Follower never computes anything. It re-reads the shared state file when
// its watcher signals a change and emits snapshots the leader published.
// The role is fixed for the process lifetime: a follower does not try to
// take over when the leader exits.
type Follower struct {
	// Load reads and decodes the shared state file.
	Load func() (git.Snapshot, error)

	// Subscribe starts the narrow watcher over the state file.
	Subscribe func() (<-chan watcher.Event, error)

	Out  io.Writer
	Opts Options

	last    git.Snapshot
	emitted bool
}

// Run blocks with the same termination semantics as Leader.Run. A state
// file that is missing or unreadable is not an error at any point: the
// leader may simply not have published yet.
func (f *Follower) Run() error {
	out := &emitter{w: f.Out, template: f.Opts.Template}

	if snap, err := f.Load(); err == nil {
		if err := out.emit(snap); err != nil {
			slog.Debug("output closed", slog.Any("error", err))
			return nil
		}
		f.last, f.emitted = snap, true
	}

	events, err := f.Subscribe()
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
		snap, err := f.Load()
		if err != nil {
			// No update yet; the next signal retries.
			slog.Debug("state file not readable", slog.Any("error", err))
			continue
		}
		if !f.Opts.AlwaysPrint && f.emitted && snap == f.last {
			continue
		}
		if err := out.emit(snap); err != nil {
			slog.Debug("output closed", slog.Any("error", err))
			return nil
		}
		f.last, f.emitted = snap, true
	}
}
