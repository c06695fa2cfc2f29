// Package render turns snapshots into output lines.
package render

import (
	"encoding/json"
	"strconv"
	"strings"

	"gitstatuswatch/internal/git"
)

// Line renders one snapshot. An empty template selects JSON output;
// otherwise {field} placeholders are expanded, with \t and \n escapes
// for shell prompt integration.
func Line(snap git.Snapshot, template string) string {
	if template == "" {
		data, err := json.Marshal(snap)
		if err != nil {
			// Snapshot has no unmarshalable fields; this cannot happen.
			return ""
		}
		return string(data)
	}
	return strings.NewReplacer(
		"{branch}", snap.Branch,
		"{staged}", strconv.Itoa(snap.Staged),
		"{modified}", strconv.Itoa(snap.Modified),
		"{untracked}", strconv.Itoa(snap.Untracked),
		"{conflicted}", strconv.Itoa(snap.Conflicted),
		"{ahead}", strconv.Itoa(snap.Ahead),
		"{behind}", strconv.Itoa(snap.Behind),
		"{stash}", strconv.Itoa(snap.Stash),
		"{state}", snap.State.Display(),
		`\t`, "\t",
		`\n`, "\n",
	).Replace(template)
}
