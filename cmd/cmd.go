package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"gitstatuswatch/internal/buildinfo"
	"gitstatuswatch/internal/config"
	"gitstatuswatch/internal/git"
	"gitstatuswatch/internal/loop"
	"gitstatuswatch/internal/render"
	"gitstatuswatch/internal/statefile"
	"gitstatuswatch/internal/watcher"
)

// followerDebounce is the quiet period for the narrow state-file watcher.
// State file replacements are single renames, so a short window suffices.
const followerDebounce = 50 * time.Millisecond

func Run() error {
	return run(os.Args[1:], os.Stdout)
}

func run(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("git-status-watch", pflag.ContinueOnError)
	format := fs.String("format", "", "custom format string (e.g. '{branch} +{staged} ~{modified}')")
	once := fs.Bool("once", false, "print the status once and exit")
	debounceMS := fs.Uint("debounce-ms", 75, "debounce window in milliseconds")
	drainMS := fs.Uint("drain-ms", 0, "post-change drain window in milliseconds (default: the debounce window)")
	alwaysPrint := fs.Bool("always-print", false, "print on every event even if the status is unchanged")
	stateDir := fs.String("state-dir", "", "directory for shared state files (default: user runtime dir)")
	verbose := fs.Bool("verbose", false, "enable verbose logging")
	showVersion := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Fprintln(out, buildinfo.VersionWithTags())
		return nil
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return err
	}
	// Flags win over the config file, which wins over built-in defaults.
	if !fs.Changed("format") && cfg.Format != "" {
		*format = cfg.Format
	}
	if !fs.Changed("debounce-ms") && cfg.DebounceMS != 0 {
		*debounceMS = cfg.DebounceMS
	}
	if !fs.Changed("drain-ms") && cfg.DrainMS != 0 {
		*drainMS = cfg.DrainMS
	}
	if !fs.Changed("always-print") && cfg.AlwaysPrint {
		*alwaysPrint = true
	}
	if !fs.Changed("state-dir") && cfg.StateDir != "" {
		*stateDir = cfg.StateDir
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Writes to a closed consumer must surface as EPIPE instead of killing
	// the process, so the loops can treat them as a clean shutdown.
	signal.Ignore(syscall.SIGPIPE)

	repoPath := "."
	if remaining := fs.Args(); len(remaining) > 0 {
		repoPath = remaining[len(remaining)-1]
	}
	provider, err := git.Open(repoPath)
	if err != nil {
		return err
	}

	dir, err := statefile.Dir(*stateDir)
	if err != nil {
		return err
	}
	statePath := statefile.Path(dir, provider.Root())

	if *once {
		return runOnce(provider, statePath, out, *format)
	}

	debounce := time.Duration(*debounceMS) * time.Millisecond
	drain := time.Duration(*drainMS) * time.Millisecond
	if drain == 0 {
		drain = debounce
	}
	opts := loop.Options{Template: *format, AlwaysPrint: *alwaysPrint, DrainWindow: drain}

	// Election happens exactly once: whoever takes the lock computes for
	// everyone until it exits.
	lock := statefile.TryLock(statePath)
	if lock == nil {
		slog.Debug("lock held elsewhere, running as follower", slog.String("state", statePath))
		follower := &loop.Follower{
			Load: func() (git.Snapshot, error) { return statefile.Read(statePath) },
			Subscribe: func() (<-chan watcher.Event, error) {
				w, err := watcher.WatchFile(statePath, followerDebounce)
				if err != nil {
					return nil, err
				}
				return w.Events(), nil
			},
			Out:  out,
			Opts: opts,
		}
		return follower.Run()
	}
	defer lock.Release()
	slog.Debug("acquired lock, running as leader", slog.String("state", statePath))
	leader := &loop.Leader{
		Compute: provider.Compute,
		Publish: func(snap git.Snapshot) error { return statefile.Write(statePath, snap) },
		Subscribe: func() (<-chan watcher.Event, error) {
			w, err := watcher.Watch(provider.Root(), debounce)
			if err != nil {
				return nil, err
			}
			return w.Events(), nil
		},
		Out:  out,
		Opts: opts,
	}
	return leader.Run()
}

func runOnce(provider *git.Provider, statePath string, out io.Writer, template string) error {
	// Fast path: when another process maintains the state file, reuse its
	// most recent result instead of recomputing.
	if statefile.Locked(statePath) {
		if snap, err := statefile.Read(statePath); err == nil {
			fmt.Fprintln(out, render.Line(snap, template))
			return nil
		}
	}
	snap, err := provider.Compute()
	if err != nil {
		return err
	}
	if err := statefile.Write(statePath, snap); err != nil {
		slog.Error("publish state", slog.Any("error", err))
	}
	fmt.Fprintln(out, render.Line(snap, template))
	return nil
}
