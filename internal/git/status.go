package git

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// OperationState is the in-progress repository operation, if any.
type OperationState int

const (
	StateClean OperationState = iota
	StateMerge
	StateRebase
	StateCherryPick
	StateBisect
	StateRevert
)

// String returns the wire token for the state. It is used by both the JSON
// output and the state file record.
func (s OperationState) String() string {
	switch s {
	case StateMerge:
		return "merge"
	case StateRebase:
		return "rebase"
	case StateCherryPick:
		return "cherry_pick"
	case StateBisect:
		return "bisect"
	case StateRevert:
		return "revert"
	default:
		return "clean"
	}
}

// Display returns the state as shown in format templates: empty for clean,
// hyphenated otherwise.
func (s OperationState) Display() string {
	if s == StateClean {
		return ""
	}
	if s == StateCherryPick {
		return "cherry-pick"
	}
	return s.String()
}

func ParseOperationState(token string) (OperationState, error) {
	for _, s := range []OperationState{
		StateClean, StateMerge, StateRebase, StateCherryPick, StateBisect, StateRevert,
	} {
		if s.String() == token {
			return s, nil
		}
	}
	return StateClean, fmt.Errorf("unknown operation state %q", token)
}

func (s OperationState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *OperationState) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}
	parsed, err := ParseOperationState(token)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Snapshot summarizes the working-tree state of a repository at one point in
// time. Snapshots are compared with == to decide whether anything changed.
type Snapshot struct {
	Branch     string         `json:"branch"`
	Staged     int            `json:"staged"`
	Modified   int            `json:"modified"`
	Untracked  int            `json:"untracked"`
	Conflicted int            `json:"conflicted"`
	Ahead      int            `json:"ahead"`
	Behind     int            `json:"behind"`
	Stash      int            `json:"stash"`
	State      OperationState `json:"state"`
}

// parsePorcelainV2 reads `git status --porcelain=v2 --branch` output. Stash
// depth and operation state are not part of porcelain output and are filled
// in by the caller.
func parsePorcelainV2(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	var headOID string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "# branch.oid "):
			headOID = strings.TrimPrefix(line, "# branch.oid ")
		case strings.HasPrefix(line, "# branch.head "):
			snap.Branch = strings.TrimPrefix(line, "# branch.head ")
		case strings.HasPrefix(line, "# branch.ab "):
			for _, part := range strings.Fields(strings.TrimPrefix(line, "# branch.ab ")) {
				if n, ok := strings.CutPrefix(part, "+"); ok {
					snap.Ahead = atoiOrZero(n)
				} else if n, ok := strings.CutPrefix(part, "-"); ok {
					snap.Behind = atoiOrZero(n)
				}
			}
		case strings.HasPrefix(line, "# "):
			// other header lines
		case strings.HasPrefix(line, "u "):
			snap.Conflicted++
		case strings.HasPrefix(line, "1 "), strings.HasPrefix(line, "2 "):
			// "1 XY ..." for changed entries, "2 XY ..." for renames
			if len(line) < 4 {
				continue
			}
			if line[2] != '.' {
				snap.Staged++
			}
			if line[3] != '.' {
				snap.Modified++
			}
		case strings.HasPrefix(line, "? "):
			snap.Untracked++
		}
	}
	if err := scanner.Err(); err != nil {
		return snap, err
	}
	if snap.Branch == "(detached)" {
		snap.Branch = shortHash(headOID)
	}
	return snap, nil
}

func shortHash(oid string) string {
	if oid == "" {
		return "HEAD"
	}
	if len(oid) > 7 {
		return oid[:7]
	}
	return oid
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
