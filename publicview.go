package poitrace

import (
	"sort"
	"time"
)

// RedactedSpanHash is the entry emitted for every non-public span in a
// PublicView: enough for a verifier to know the span exists and to
// recompute the Merkle root, without revealing anything about its
// contents.
type RedactedSpanHash struct {
	SpanID   SpanID `json:"spanId"`
	SpanHash string `json:"spanHash"`
}

// AnnotatedSpan is a public span's header plus only the public events
// that belong to it (public events within a non-public span are still
// excluded: the span is the gating unit, per spec.md §4.7).
type AnnotatedSpan struct {
	SpanID       SpanID         `json:"spanId"`
	SpanSeq      int            `json:"spanSeq"`
	ParentSpanID *SpanID        `json:"parentSpanId,omitempty"`
	Name         string         `json:"name"`
	Status       Status         `json:"status"`
	Visibility   Visibility     `json:"visibility"`
	StartedAt    time.Time      `json:"startedAt"`
	EndedAt      time.Time      `json:"endedAt,omitempty"`
	DurationMs   int64          `json:"durationMs,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	SpanHash     string         `json:"spanHash"`

	Events []Event `json:"events,omitempty"`
}

// PublicView is the subset of a bundle safe to share externally: public
// spans with their public events, plus hashes of redacted spans. It is
// the only information-hiding mechanism in the core (spec.md §4.7): a
// verifier can always recompute the Merkle root from the union of public
// and redacted span hashes, since every spanHash is disclosed regardless
// of visibility.
type PublicView struct {
	RunID      RunID     `json:"runId"`
	AgentID    string    `json:"agentId"`
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt,omitempty"`
	DurationMs int64     `json:"durationMs,omitempty"`

	TotalSpans  int `json:"totalSpans"`
	TotalEvents int `json:"totalEvents"`

	RootHash   string `json:"rootHash"`
	MerkleRoot string `json:"merkleRoot"`

	PublicSpans        []AnnotatedSpan    `json:"publicSpans"`
	RedactedSpanHashes []RedactedSpanHash `json:"redactedSpanHashes"`
}

// buildPublicView derives a PublicView from a finalized run, per spec.md
// §4.7. Grounded on the teacher's implicit public/private split between
// what an Event carries to Sentry versus what stays local, generalized
// into the explicit three-level Visibility enum spec.md calls for.
func buildPublicView(run *Run, merkleRoot, rootHash string) *PublicView {
	view := &PublicView{
		RunID:       run.RunID,
		AgentID:     run.AgentID,
		StartedAt:   run.StartedAt,
		EndedAt:     run.EndedAt,
		DurationMs:  run.DurationMs,
		TotalSpans:  len(run.Spans),
		TotalEvents: len(run.Events),
		RootHash:    rootHash,
		MerkleRoot:  merkleRoot,
	}

	eventByID := make(map[EventID]*Event, len(run.Events))
	for i := range run.Events {
		eventByID[run.Events[i].ID] = &run.Events[i]
	}

	var redacted []RedactedSpanHash
	for _, span := range run.SpansBySeq() {
		if span.Visibility != VisibilityPublic {
			redacted = append(redacted, RedactedSpanHash{SpanID: span.SpanID, SpanHash: span.SpanHash})
			continue
		}

		var publicEvents []Event
		for _, id := range span.EventIDs {
			if e := eventByID[id]; e != nil && e.Visibility == VisibilityPublic {
				publicEvents = append(publicEvents, *e)
			}
		}

		view.PublicSpans = append(view.PublicSpans, AnnotatedSpan{
			SpanID:       span.SpanID,
			SpanSeq:      span.SpanSeq,
			ParentSpanID: span.ParentSpanID,
			Name:         span.Name,
			Status:       span.Status,
			Visibility:   span.Visibility,
			StartedAt:    span.StartedAt,
			EndedAt:      span.EndedAt,
			DurationMs:   span.DurationMs,
			Metadata:     span.Metadata,
			SpanHash:     span.SpanHash,
			Events:       publicEvents,
		})
	}

	sort.Slice(redacted, func(i, j int) bool {
		return redacted[i].SpanID.String() < redacted[j].SpanID.String()
	})
	view.RedactedSpanHashes = redacted
	return view
}
