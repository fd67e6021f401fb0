package state

import "time"

// Run summarizes a single pass over a site.
type Run struct {
	ID                string    `json:"id"`
	Root              string    `json:"root"`
	Trigger           string    `json:"trigger"`
	DryRun            bool      `json:"dry_run,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	Pages             int       `json:"pages"`
	Changed           int       `json:"changed"`
	Unchanged         int       `json:"unchanged"`
	Skipped           int       `json:"skipped"`
	Failed            int       `json:"failed"`
	Tables            int       `json:"tables"`
	InlineCode        int       `json:"inline_code"`
	SkippedReferences int       `json:"skipped_references"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Page is the last known state of one rendered page.
type Page struct {
	Path      string    `json:"path"`
	Hash      string    `json:"hash"`
	RunID     string    `json:"run_id"`
	UpdatedAt time.Time `json:"updated_at"`
}
