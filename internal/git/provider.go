package git

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// Provider computes status snapshots for one repository. It is a pure reader
// of on-disk git state: every Compute call builds a fresh Snapshot.
type Provider struct {
	root   string
	gitDir string
}

// Open resolves the repository containing path. The search walks up towards
// the filesystem root, so path may be any directory inside the worktree.
func Open(path string) (*Provider, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	root := wt.Filesystem.Root()
	gitDir := filepath.Join(root, gitlib.GitDirName)
	if storage, ok := repo.Storer.(*filesystem.Storage); ok {
		gitDir = storage.Filesystem().Root()
	}
	return &Provider{root: root, gitDir: gitDir}, nil
}

// Root returns the absolute path of the worktree root.
func (p *Provider) Root() string {
	return p.root
}

// GitDir returns the absolute path of the repository metadata directory.
// For linked worktrees this is not necessarily <root>/.git.
func (p *Provider) GitDir() string {
	return p.gitDir
}

// Compute builds a snapshot of the current working-tree state.
func (p *Provider) Compute() (Snapshot, error) {
	out, err := p.runGitCommand([]string{"status", "--porcelain=v2", "--branch"}, false, "git status")
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := parsePorcelainV2(strings.NewReader(out))
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse git status: %w", err)
	}
	snap.Stash = p.stashCount()
	snap.State = p.operationState()
	return snap, nil
}

func (p *Provider) stashCount() int {
	// Exits non-zero when refs/stash does not exist; that is simply depth 0.
	out, err := p.runGitCommand([]string{"rev-list", "--count", "refs/stash"}, true, "git rev-list")
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// operationState inspects the marker files git leaves in the metadata
// directory while a multi-step operation is in progress.
func (p *Provider) operationState() OperationState {
	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(p.gitDir, name))
		return err == nil
	}
	switch {
	case exists("MERGE_HEAD"):
		return StateMerge
	case exists("rebase-merge"), exists("rebase-apply"):
		return StateRebase
	case exists("CHERRY_PICK_HEAD"):
		return StateCherryPick
	case exists("BISECT_LOG"):
		return StateBisect
	case exists("REVERT_HEAD"):
		return StateRevert
	default:
		return StateClean
	}
}

func (p *Provider) runGitCommand(args []string, allowFailure bool, context string) (string, error) {
	if p.root == "" {
		return "", fmt.Errorf("repository root not set")
	}
	cmdArgs := append([]string{"-C", p.root}, args...)
	cmd := exec.Command("git", cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if allowFailure && errors.As(err, &exitErr) {
			return "", fmt.Errorf("%s: exit %d", context, exitErr.ExitCode())
		}
		if stderr.Len() > 0 {
			return "", fmt.Errorf("%s: %v: %s", context, err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("%s: %w", context, err)
	}
	return stdout.String(), nil
}
