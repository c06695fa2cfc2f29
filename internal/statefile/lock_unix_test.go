//go:build unix

package statefile

import (
	"path/filepath"
	"testing"
)

func TestTryLockExclusive(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state")

	first := TryLock(statePath)
	if first == nil {
		t.Fatal("first TryLock should succeed")
	}
	if second := TryLock(statePath); second != nil {
		second.Release()
		t.Fatal("second TryLock should fail while first holds the lock")
	}
	// Still held: a third attempt fails too.
	if third := TryLock(statePath); third != nil {
		third.Release()
		t.Fatal("third TryLock should fail while first holds the lock")
	}

	first.Release()
	reacquired := TryLock(statePath)
	if reacquired == nil {
		t.Fatal("TryLock should succeed after release")
	}
	reacquired.Release()
}

func TestLockedReportsHolder(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state")
	if Locked(statePath) {
		t.Fatal("Locked should be false with no holder")
	}
	l := TryLock(statePath)
	if l == nil {
		t.Fatal("TryLock failed")
	}
	defer l.Release()
	if !Locked(statePath) {
		t.Fatal("Locked should be true while held")
	}
}

func TestReleaseNilIsSafe(t *testing.T) {
	t.Parallel()

	var l *Lock
	l.Release()
}
