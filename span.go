package poitrace

import "time"

// Status is the lifecycle state shared by Run and Span.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Span is a named, nestable logical unit of work grouping an ordered list
// of events. Grounded on the teacher's Span (tracing.go): a
// TraceID/SpanID/ParentSpanID tree built up via StartSpan/StartChild, here
// generalized from a single transaction tree into TraceBuilder's
// run-scoped collection of spans addressed by id rather than by local
// pointer (spec.md's design note: "parent/child span graph -> id-indexed,
// no back-pointers").
type Span struct {
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

	EventIDs     []EventID `json:"eventIds,omitempty"`
	ChildSpanIDs []SpanID  `json:"childSpanIds,omitempty"`

	SpanHash string `json:"spanHash,omitempty"`
}

// spanHeader is the subset of Span fields that go into spanHash, per
// spec.md §4.5: "header = {spanId, spanSeq, parentSpanId, name, status,
// visibility, startedAt, endedAt, durationMs, metadata}" — explicitly
// excluding eventIds, childSpanIds, and the hash itself.
type spanHeader struct {
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
}

// header builds the spanHash input, trimming StartedAt/EndedAt to
// millisecond precision per SPEC_FULL.md's canonical-encoding rule (see
// Event.header for the same treatment of event timestamps).
func (s *Span) header() spanHeader {
	return spanHeader{
		SpanID:       s.SpanID,
		SpanSeq:      s.SpanSeq,
		ParentSpanID: s.ParentSpanID,
		Name:         s.Name,
		Status:       s.Status,
		Visibility:   s.Visibility,
		StartedAt:    s.StartedAt.Truncate(time.Millisecond),
		EndedAt:      s.EndedAt.Truncate(time.Millisecond),
		DurationMs:   s.DurationMs,
		Metadata:     s.Metadata,
	}
}

// computeSpanHash derives spanHash from the span's header and the ordered
// hashes of its member events (memberEventHashes), per spec.md §4.5:
// spanHash = H(domain_span | canon(header) | "|" | join(memberEventHashes)).
func (s *Span) computeSpanHash(memberEventHashes []string) (string, error) {
	m, err := ToCanonicalMap(s.header())
	if err != nil {
		return "", err
	}
	canon, err := Canonicalize(m, CanonicalOptions{})
	if err != nil {
		return "", err
	}
	joined := ""
	for _, h := range memberEventHashes {
		joined += h
	}
	return hashBytes([]byte(domainSpan + string(canon) + "|" + joined)), nil
}

// SpanInput is what callers pass to TraceBuilder.AddSpan.
type SpanInput struct {
	Name         string
	ParentSpanID *SpanID
	Visibility   Visibility // zero value means "use the default: private"
	Metadata     map[string]any
}
