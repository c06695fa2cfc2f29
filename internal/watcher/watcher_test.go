package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRelevantPath(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/repo")
	cases := []struct {
		path string
		want bool
	}{
		{"/repo/.git/objects/ab/cdef0123", false},
		{"/repo/.git/objects/pack/pack-1.pack", false},
		{"/repo/.git/logs/HEAD", false},
		{"/repo/.git/logs/refs/heads/main", false},
		{"/repo/.git/HEAD", true},
		{"/repo/.git/index", true},
		{"/repo/.git/refs/heads/main", true},
		{"/repo/.git/MERGE_HEAD", true},
		{"/repo/.git/rebase-merge/done", true},
		{"/repo/.git/COMMIT_EDITMSG", true},
		{"/repo/src/anyfile", true},
		{"/repo/README.md", true},
		{"/repo/.git", true},
		{"/elsewhere/file", true},
	}
	for _, tc := range cases {
		if got := relevantPath(root, filepath.FromSlash(tc.path)); got != tc.want {
			t.Errorf("relevantPath(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func expectEvent(t *testing.T, events <-chan Event) {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("events channel closed")
		}
		if ev.Err != nil {
			t.Fatalf("unexpected watcher error: %v", ev.Err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func expectNoEvent(t *testing.T, events <-chan Event, wait time.Duration) {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("events channel closed")
		}
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(wait):
	}
}

func TestWatchCoalescesBurst(t *testing.T) {
	root := t.TempDir()
	w, err := Watch(root, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		name := filepath.Join(root, "file"+string(rune('a'+i)))
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	expectEvent(t, w.Events())
	expectNoEvent(t, w.Events(), 150*time.Millisecond)
}

func TestWatchIgnoresBulkGitDirs(t *testing.T) {
	root := t.TempDir()
	objects := filepath.Join(root, ".git", "objects", "ab")
	if err := os.MkdirAll(objects, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, ".git", "logs"), 0o755); err != nil {
		t.Fatal(err)
	}
	w, err := Watch(root, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(objects, "cdef0123"), []byte("blob"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectNoEvent(t, w.Events(), 200*time.Millisecond)

	if err := os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, w.Events())
}

func TestWatchPicksUpNewDirectories(t *testing.T) {
	root := t.TempDir()
	w, err := Watch(root, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	sub := filepath.Join(root, "src")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, w.Events())

	// Give the watcher a moment to register the new directory, then verify
	// changes inside it are seen.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, w.Events())
}

func TestWatchFileFiltersSiblings(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "state")
	w, err := WatchFile(target, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "other"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectNoEvent(t, w.Events(), 150*time.Millisecond)

	// Atomic-replacement shape: write a sibling, rename over the target.
	tmp := filepath.Join(dir, "state.tmp")
	if err := os.WriteFile(tmp, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, target); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, w.Events())
}

func TestWatchChannelClosesOnClose(t *testing.T) {
	root := t.TempDir()
	w, err := Watch(root, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case _, ok := <-w.Events():
		if ok {
			t.Fatal("expected channel close, got event")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close")
	}
}
