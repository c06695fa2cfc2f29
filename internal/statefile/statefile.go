// Package statefile persists the latest status snapshot so that concurrent
// watcher processes against the same repository can share one computation.
// The file is replaced atomically on every publish; readers either see a
// complete previous record or the current one, never a partial write.
package statefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"gitstatuswatch/internal/git"
)

const (
	dirName    = "git-status-watch"
	lockSuffix = ".lock"
	tmpSuffix  = ".tmp"
)

// Dir returns the state directory, creating it if needed. An empty override
// selects the user runtime directory (XDG_RUNTIME_DIR, with a temp-dir
// fallback on platforms without one).
func Dir(override string) (string, error) {
	dir := override
	if dir == "" {
		dir = filepath.Join(xdg.RuntimeDir, dirName)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	return dir, nil
}

// Path returns the state file location for a repository root. Roots map to
// flat keys by escaping path separators, so every repository on the machine
// gets a distinct sibling file in one directory.
func Path(stateDir, repoRoot string) string {
	key := strings.NewReplacer("/", "%2F", "\\", "%2F").Replace(repoRoot)
	return filepath.Join(stateDir, key)
}

// Write publishes a snapshot by writing a temporary sibling and renaming it
// over the target.
func Write(path string, snap git.Snapshot) error {
	tmp := path + tmpSuffix
	if err := os.WriteFile(tmp, encode(snap), 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Locked reports whether another process currently holds the watch lock for
// this state file, i.e. whether somebody is keeping it fresh.
func Locked(statePath string) bool {
	l := TryLock(statePath)
	if l == nil {
		return true
	}
	l.Release()
	return false
}

// Read loads and decodes the current snapshot. Errors include the file being
// momentarily absent while a writer renames; callers treat any failure as
// "no update yet".
func Read(path string) (git.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return git.Snapshot{}, err
	}
	return decode(data)
}
