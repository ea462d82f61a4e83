package reconciler

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/scansync/pkg/manifest"
)

// Result represents the outcome of one reconciliation run. When a run
// stops early on an error, the result still describes what was done.
type Result struct {
	StudyID string `json:"study_id"`
	RunID   string `json:"run_id"`

	// Selected is the policy's output, oldest first.
	Selected []manifest.File `json:"selected"`

	// Downloaded lists filenames ingested by this run in processing
	// order. It includes Reused files.
	Downloaded []string `json:"downloaded"`

	// Reused lists files taken from the download directory instead of
	// the network.
	Reused []string `json:"reused"`

	// Skipped lists filenames the catalog already held.
	Skipped []string `json:"skipped"`

	// EmptySelection is set when the policy selected nothing.
	EmptySelection bool `json:"empty_selection,omitempty"`

	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

func newResult(studyID, runID string) *Result {
	return &Result{
		StudyID:    studyID,
		RunID:      runID,
		Downloaded: []string{},
		Reused:     []string{},
		Skipped:    []string{},
		StartTime:  time.Now(),
	}
}

func (r *Result) finalize() {
	r.Duration = time.Since(r.StartTime)
}

// HasChanges returns true if the run recorded anything new.
func (r *Result) HasChanges() bool {
	return r != nil && len(r.Downloaded) > 0
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	if r == nil {
		return "No reconciliation performed."
	}
	if r.EmptySelection {
		return fmt.Sprintf("Study %s: no files matched the selection.", r.StudyID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Study %s: %d selected, %d ingested", r.StudyID, len(r.Selected), len(r.Downloaded))
	if len(r.Reused) > 0 {
		fmt.Fprintf(&b, " (%d from disk)", len(r.Reused))
	}
	fmt.Fprintf(&b, ", %d already in catalog", len(r.Skipped))
	if !r.HasChanges() {
		b.WriteString(". No changes.")
	} else {
		b.WriteString(".")
	}
	return b.String()
}
