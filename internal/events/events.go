// Package events publishes run notifications so other services (search
// indexers, CDN purgers) can react when a site has been restyled.
package events

import (
	"context"
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
	"git.home.luguber.info/inful/docrestyle/internal/state"
)

// RunCompletedEvent is published after every finished run.
type RunCompletedEvent struct {
	RunID        string    `json:"run_id"`
	Root         string    `json:"root"`
	Trigger      string    `json:"trigger"`
	DryRun       bool      `json:"dry_run,omitempty"`
	Pages        int       `json:"pages"`
	Changed      int       `json:"changed"`
	Failed       int       `json:"failed"`
	Tables       int       `json:"tables"`
	InlineCode   int       `json:"inline_code"`
	DurationMS   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
	ChangedPages []string  `json:"changed_pages,omitempty"`
}

// NewRunCompletedEvent builds the event for run. changedPages may be nil.
func NewRunCompletedEvent(run state.Run, changedPages []string) *RunCompletedEvent {
	return &RunCompletedEvent{
		RunID:        run.ID,
		Root:         run.Root,
		Trigger:      run.Trigger,
		DryRun:       run.DryRun,
		Pages:        run.Pages,
		Changed:      run.Changed,
		Failed:       run.Failed,
		Tables:       run.Tables,
		InlineCode:   run.InlineCode,
		DurationMS:   run.Duration().Milliseconds(),
		Timestamp:    run.FinishedAt,
		ChangedPages: changedPages,
	}
}

// Marshal encodes the event as JSON.
func (e *RunCompletedEvent) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "failed to marshal event").Build()
	}
	return data, nil
}

// Publisher delivers run events.
type Publisher interface {
	PublishRunCompleted(ctx context.Context, event *RunCompletedEvent) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishRunCompleted(context.Context, *RunCompletedEvent) error { return nil }
func (NoopPublisher) Close() error                                                  { return nil }
