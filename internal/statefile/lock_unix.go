//go:build unix

package statefile

import (
	"os"

	"golang.org/x/sys/unix"
)

// Lock is an exclusive advisory claim on one repository's state file. The
// kernel drops the lock when the holding process exits, however it exits, so
// no stale lock state ever persists.
type Lock struct {
	file *os.File
}

// TryLock attempts a non-blocking exclusive lock on the state file's lock
// sibling. A nil result is not an error: it means another process already
// watches this repository and the caller should run as a follower.
func TryLock(statePath string) *Lock {
	f, err := os.OpenFile(statePath+lockSuffix, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		return nil
	}
	return &Lock{file: f}
}

// Release drops the lock early. Closing the descriptor is sufficient; process
// exit does the same implicitly.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = l.file.Close()
	l.file = nil
}
