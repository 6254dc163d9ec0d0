// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// EventKind names a point in the acquisition pipeline that reports progress.
type EventKind string

const (
	EventQueryStarted      EventKind = "query_started"
	EventSearchFailed      EventKind = "search_failed"
	EventQueryExhausted    EventKind = "query_exhausted"
	EventRowRejected       EventKind = "row_rejected"
	EventRowAttempted      EventKind = "row_attempted"
	EventMirrorResolved    EventKind = "mirror_resolved"
	EventMirrorDead        EventKind = "mirror_dead"
	EventMirrorFailed      EventKind = "mirror_failed"
	EventDownloadFailed    EventKind = "download_failed"
	EventDownloadSucceeded EventKind = "download_succeeded"
)

// Event is a progress notification emitted by the pipeline. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind   EventKind
	Query  string
	Title  string
	Format string
	URL    string
	Path   string
	Index  int
	Err    error
}

// ProgressFunc receives pipeline events. A nil ProgressFunc discards them.
type ProgressFunc func(Event)

// Emit calls f with e when f is set.
func (f ProgressFunc) Emit(e Event) {
	if f != nil {
		f(e)
	}
}
