package metrics

import "time"

// PageOutcome enumerates what happened to a single page.
type PageOutcome string

const (
	PageChanged   PageOutcome = "changed"
	PageUnchanged PageOutcome = "unchanged"
	PageSkipped   PageOutcome = "skipped"
	PageFailed    PageOutcome = "failed"
)

// ElementKind labels restyled element counters.
type ElementKind string

const (
	ElementTable      ElementKind = "table"
	ElementInlineCode ElementKind = "inline_code"
	ElementReference  ElementKind = "reference_skipped"
	ElementSearchHook ElementKind = "search_hook"
)

// Recorder defines observability hooks for restyle runs.
type Recorder interface {
	IncPage(outcome PageOutcome)
	AddElements(kind ElementKind, n int)
	ObserveRunDuration(trigger string, d time.Duration)
	SetLastRun(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncPage(PageOutcome)                      {}
func (NoopRecorder) AddElements(ElementKind, int)             {}
func (NoopRecorder) ObserveRunDuration(string, time.Duration) {}
func (NoopRecorder) SetLastRun(time.Time)                     {}
