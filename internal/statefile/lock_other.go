//go:build !unix

package statefile

// Lock is a no-op on platforms without flock; every process runs as a
// follower and nothing maintains the state file.
type Lock struct{}

func TryLock(statePath string) *Lock { return nil }

func (l *Lock) Release() {}
