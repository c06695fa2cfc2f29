package statefile

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gitstatuswatch/internal/git"
)

// The record is a single line of tab-separated positional fields. A tab can
// appear in neither a git ref name nor a count, so no quoting is needed.
const fieldSep = '\t'

const recordFields = 9

func encode(snap git.Snapshot) []byte {
	fields := []string{
		snap.Branch,
		strconv.Itoa(snap.Staged),
		strconv.Itoa(snap.Modified),
		strconv.Itoa(snap.Untracked),
		strconv.Itoa(snap.Conflicted),
		strconv.Itoa(snap.Ahead),
		strconv.Itoa(snap.Behind),
		strconv.Itoa(snap.Stash),
		snap.State.String(),
	}
	return []byte(strings.Join(fields, string(fieldSep)) + "\n")
}

func decode(data []byte) (git.Snapshot, error) {
	var snap git.Snapshot
	line := bytes.TrimSuffix(data, []byte("\n"))
	fields := strings.Split(string(line), string(fieldSep))
	if len(fields) != recordFields {
		return snap, fmt.Errorf("state record has %d fields, want %d", len(fields), recordFields)
	}
	snap.Branch = fields[0]
	counts := []*int{
		&snap.Staged, &snap.Modified, &snap.Untracked, &snap.Conflicted,
		&snap.Ahead, &snap.Behind, &snap.Stash,
	}
	for i, dst := range counts {
		n, err := strconv.Atoi(fields[i+1])
		if err != nil || n < 0 {
			return git.Snapshot{}, fmt.Errorf("state record field %d: bad count %q", i+1, fields[i+1])
		}
		*dst = n
	}
	state, err := git.ParseOperationState(fields[8])
	if err != nil {
		return git.Snapshot{}, fmt.Errorf("state record: %w", err)
	}
	snap.State = state
	return snap, nil
}
