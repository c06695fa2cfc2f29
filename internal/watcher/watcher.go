// Package watcher turns raw filesystem notifications into debounced change
// signals for one consumer.
package watcher

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"gitstatuswatch/internal/debounce"
)

// Event is a single delivery on a Watcher channel. The zero value means "at
// least one relevant path changed"; a non-nil Err reports a notification
// subsystem failure, after which watching continues.
type Event struct {
	Err error
}

// Watcher owns a background goroutine that accumulates raw notifications and
// delivers one coalesced Event per quiet period.
type Watcher struct {
	fsw       *fsnotify.Watcher
	deb       *debounce.Debouncer
	events    chan Event
	fire      chan struct{}
	recursive bool
	root      string
	relevant  func(string) bool

	mu      sync.Mutex
	pending []string
}

// Watch subscribes to recursive change notification under root. Every raw
// notification resets the debounce timer; when it elapses, a single Event is
// delivered if any accumulated path was relevant to the repository status.
func Watch(root string, window time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	w, err := newWatcher(window)
	if err != nil {
		return nil, err
	}
	w.recursive = true
	w.root = abs
	w.relevant = func(path string) bool { return relevantPath(abs, path) }
	if err := w.addTree(abs); err != nil {
		err2 := w.fsw.Close()
		if err2 != nil {
			slog.Error("watcher close", slog.Any("error", err2))
		}
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}
	go w.run()
	return w, nil
}

// WatchFile subscribes to the directory containing path, filtered to events
// for that one file. Used to observe the shared state file: its atomic
// replacement registers as a create or rename of the target name.
func WatchFile(path string, window time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := newWatcher(window)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(abs)
	w.relevant = func(p string) bool { return filepath.Base(p) == name }
	if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
		err2 := w.fsw.Close()
		if err2 != nil {
			slog.Error("watcher close", slog.Any("error", err2))
		}
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	go w.run()
	return w, nil
}

func newWatcher(window time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{
		fsw:    fsw,
		events: make(chan Event, 1),
		fire:   make(chan struct{}, 1),
	}
	w.deb = debounce.New(window, func() {
		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
	return w, nil
}

// Events returns the delivery channel. It is closed when the underlying
// notification stream stops, which callers treat as fatal.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

func (w *Watcher) Close() error {
	w.deb.Stop()
	return w.fsw.Close()
}

// run is the single sender on w.events; the debounce timer only pokes w.fire.
func (w *Watcher) run() {
	defer close(w.events)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				w.deb.Stop()
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if w.recursive && ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						slog.Debug("watch new directory", slog.String("path", ev.Name), slog.Any("error", err))
					}
				}
			}
			w.mu.Lock()
			w.pending = append(w.pending, ev.Name)
			w.mu.Unlock()
			w.deb.Trigger()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.deb.Stop()
				return
			}
			w.events <- Event{Err: err}
		case <-w.fire:
			w.mu.Lock()
			paths := w.pending
			w.pending = nil
			w.mu.Unlock()
			if w.anyRelevant(paths) {
				w.events <- Event{}
			}
		}
	}
}

func (w *Watcher) anyRelevant(paths []string) bool {
	for _, p := range paths {
		if w.relevant(p) {
			return true
		}
	}
	return false
}

// addTree registers dir and every directory below it, except the bulk
// subtrees whose events would all be filtered out anyway.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directories can vanish mid-walk; skip rather than fail setup.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if isBulkDir(w.root, path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// relevantPath reports whether a change at path can affect the reported
// snapshot. Only the object store and reflog subtrees are noise: writes
// there are high-volume and never change what the status reports. Control
// files such as HEAD, index, refs and operation markers, and every ordinary
// working-tree path, are the signal of interest.
func relevantPath(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 || parts[0] != ".git" {
		return true
	}
	return !isBulkName(parts[1])
}

func isBulkDir(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	return len(parts) == 2 && parts[0] == ".git" && isBulkName(parts[1])
}

func isBulkName(name string) bool {
	return name == "objects" || name == "logs"
}
