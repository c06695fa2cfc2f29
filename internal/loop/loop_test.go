package loop

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gitstatuswatch/internal/watcher"
)

// lineRecorder collects emitted lines; loops write from the test goroutine's
// sibling, so access is locked.
type lineRecorder struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (r *lineRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

func (r *lineRecorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := strings.TrimSuffix(r.buf.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func (r *lineRecorder) waitLines(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if lines := r.Lines(); len(lines) >= n {
			return lines
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines, have %v", n, r.Lines())
	return nil
}

// brokenWriter simulates the consumer closing its end of the pipe.
type brokenWriter struct{}

func (brokenWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func subscribeTo(events <-chan watcher.Event) func() (<-chan watcher.Event, error) {
	return func() (<-chan watcher.Event, error) { return events, nil }
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not return")
		return nil
	}
}
