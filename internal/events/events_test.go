package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docrestyle/internal/state"
)

func TestNewRunCompletedEvent(t *testing.T) {
	started := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	run := state.Run{
		ID: "run-1", Root: "_build/html", Trigger: "cli",
		StartedAt: started, FinishedAt: started.Add(1500 * time.Millisecond),
		Pages: 4, Changed: 2, Failed: 1, Tables: 3, InlineCode: 7,
	}

	ev := NewRunCompletedEvent(run, []string{"index.html", "api.html"})

	require.Equal(t, int64(1500), ev.DurationMS)
	require.Equal(t, run.FinishedAt, ev.Timestamp)

	data, err := ev.Marshal()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "run-1", decoded["run_id"])
	require.Equal(t, []any{"index.html", "api.html"}, decoded["changed_pages"])
	require.NotContains(t, decoded, "dry_run")
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	require.NoError(t, p.PublishRunCompleted(t.Context(), &RunCompletedEvent{RunID: "x"}))
	require.NoError(t, p.Close())
}

var _ Publisher = (*NATSPublisher)(nil)
