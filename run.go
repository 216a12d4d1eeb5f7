package poitrace

import "time"

// SchemaVersion is the constant schema version this build of poitrace
// produces, embedded in every Run and used in rootHash derivation
// (spec.md §4.6, invariant 10).
const SchemaVersion = "poi-trace/v1"

// Run is the whole trace in flight (spec.md §3). TraceBuilder is the only
// thing that mutates a Run; once TraceBuilder.Finalize returns, the Run
// is owned exclusively by the resulting TraceBundle and must not be
// mutated further (spec.md invariant 6, "ownership: the bundle exclusively
// owns its Run once finalized").
type Run struct {
	RunID          RunID          `json:"runId"`
	SchemaVersion  string         `json:"schemaVersion"`
	AgentID        string         `json:"agentId"`
	Status         Status         `json:"status"`
	StartedAt      time.Time      `json:"startedAt"`
	EndedAt        time.Time      `json:"endedAt,omitempty"`
	DurationMs     int64          `json:"durationMs,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`

	Events []Event `json:"events"`
	// Spans is keyed by SpanID; ordering for any externally visible
	// purpose always goes through spans sorted by SpanSeq (see
	// SpansBySeq), never map iteration order.
	Spans map[SpanID]*Span `json:"spans"`

	RollingHash string `json:"rollingHash,omitempty"`
	RootHash    string `json:"rootHash,omitempty"`

	nextSeq     int
	nextSpanSeq int
	rolling     *RollingHash
}

// SpansBySeq returns the run's spans ordered by ascending SpanSeq —
// the sole determinant of span order per spec.md §4.4.
func (r *Run) SpansBySeq() []*Span {
	out := make([]*Span, len(r.Spans))
	for _, s := range r.Spans {
		out[s.SpanSeq] = s
	}
	return out
}

// EventHashes returns the event hashes of r.Events in seq order, the input
// VerifyRollingHash expects.
func (r *Run) EventHashes() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.EventHash
	}
	return out
}
