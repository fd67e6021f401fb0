package state

import "context"

// PageStore tracks page hashes for incremental runs.
type PageStore interface {
	// PageHash returns the recorded hash for path, or "" when unknown.
	PageHash(ctx context.Context, path string) (string, error)
	PutPageHash(ctx context.Context, page Page) error
}

// RunStore records run summaries.
type RunStore interface {
	RecordRun(ctx context.Context, run Run) error
	// LastRun returns the most recently finished run, or nil when none exists.
	LastRun(ctx context.Context) (*Run, error)
}

// Store combines the narrow interfaces.
type Store interface {
	PageStore
	RunStore
	Close() error
}
