package poitrace

import (
	"sync"
	"time"
)

// TraceBuilder is the state machine that drives a Run from creation
// through finalization: CreateRun/AddSpan/AddEvent/CloseSpan/Finalize,
// enforcing the ordering, monotonicity, and mutation rules of spec.md §3
// and §4.5. Grounded on the teacher's tracing.go (StartSpan/Span.Finish
// lifecycle) and span_recorder.go's mutex-guarded recorder — generalized
// here to guard the whole Run, since every mutation (not just span
// recording) must be serialized per spec.md §5.
type TraceBuilder struct {
	mu        sync.Mutex
	run       *Run
	cfg       *builderConfig
	finalized bool
}

// NewTraceBuilder creates a new Run in the running status for agentID,
// per spec.md §4.5's createRun operation. agentID must be non-empty.
func NewTraceBuilder(agentID string, metadata map[string]any, opts ...BuilderOption) (*TraceBuilder, error) {
	if agentID == "" {
		return nil, errInvalidArgument("agentId must not be empty")
	}

	cfg := defaultBuilderConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	now := cfg.clock()
	run := &Run{
		RunID:         cfg.idGen.NewID(),
		SchemaVersion: cfg.schemaVersion,
		AgentID:       agentID,
		Status:        StatusRunning,
		StartedAt:     now,
		Metadata:      metadata,
		Spans:         make(map[SpanID]*Span),
		rolling:       NewRollingHash(),
	}
	run.RollingHash = run.rolling.Current()

	Logger.Printf("created run %s for agent %q", run.RunID, agentID)
	return &TraceBuilder{run: run, cfg: cfg}, nil
}

// Run returns the builder's underlying Run. Callers must not mutate the
// returned value directly; all mutation goes through the builder's
// methods so ordering and hashing invariants hold.
func (b *TraceBuilder) Run() *Run {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.run
}

// AddSpan appends a new span to the run, per spec.md §4.5's addSpan
// operation.
func (b *TraceBuilder) AddSpan(in SpanInput) (*Span, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finalized {
		return nil, errIllegalState("", "run is finalized, cannot add span")
	}
	if in.Name == "" {
		return nil, errInvalidArgument("span name must not be empty")
	}

	var parent *Span
	if in.ParentSpanID != nil {
		p, ok := b.run.Spans[*in.ParentSpanID]
		if !ok {
			return nil, errNotFound(in.ParentSpanID.String(), "parent span %s does not exist", in.ParentSpanID)
		}
		if p.Status != StatusRunning {
			return nil, errIllegalState(in.ParentSpanID.String(), "parent span %s is not running", in.ParentSpanID)
		}
		parent = p
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = VisibilityPrivate
	}

	span := &Span{
		SpanID:       b.cfg.idGen.NewID(),
		SpanSeq:      b.run.nextSpanSeq,
		ParentSpanID: in.ParentSpanID,
		Name:         in.Name,
		Status:       StatusRunning,
		Visibility:   visibility,
		StartedAt:    b.cfg.clock(),
		Metadata:     in.Metadata,
	}
	b.run.nextSpanSeq++
	b.run.Spans[span.SpanID] = span

	if parent != nil {
		parent.ChildSpanIDs = append(parent.ChildSpanIDs, span.SpanID)
	}

	Logger.Printf("run %s: added span %s (%q, seq=%d)", b.run.RunID, span.SpanID, span.Name, span.SpanSeq)
	return span, nil
}

// AddEvent appends a new event to span spanID, per spec.md §4.5's
// addEvent operation: it assigns the next seq and a fresh eventId,
// timestamps now, fills the default visibility if omitted, computes
// eventHash, updates the rolling hash, and links the event to the span.
func (b *TraceBuilder) AddEvent(spanID SpanID, in EventInput) (*Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finalized {
		return nil, errIllegalState("", "run is finalized, cannot add event")
	}
	span, ok := b.run.Spans[spanID]
	if !ok {
		return nil, errNotFound(spanID.String(), "span %s does not exist", spanID)
	}
	if span.Status != StatusRunning {
		return nil, errIllegalState(spanID.String(), "span %s is not running", spanID)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = defaultVisibility(in.Kind)
	}

	event := Event{
		ID:          b.cfg.idGen.NewID(),
		Seq:         b.run.nextSeq,
		SpanID:      spanID,
		Timestamp:   b.cfg.clock(),
		Visibility:  visibility,
		Kind:        in.Kind,
		Command:     in.Command,
		Output:      in.Output,
		Decision:    in.Decision,
		Observation: in.Observation,
		Error:       in.Error,
		Custom:      in.Custom,
	}

	hash, err := event.computeHash()
	if err != nil {
		return nil, err
	}
	event.EventHash = hash

	// Nothing is committed until the hash succeeds: a failed append never
	// advances seq, never advances rollingHash, and never appears in any
	// subsequent hash (spec.md §7).
	b.run.nextSeq++
	b.run.Events = append(b.run.Events, event)
	b.run.RollingHash = b.run.rolling.Append(event.EventHash)
	span.EventIDs = append(span.EventIDs, event.ID)

	Logger.Printf("run %s: added %s event %s to span %s (seq=%d)", b.run.RunID, event.Kind, event.ID, spanID, event.Seq)
	return &event, nil
}

// CloseSpan closes spanID, per spec.md §4.5's closeSpan operation. If
// status is empty, StatusCompleted is used.
func (b *TraceBuilder) CloseSpan(spanID SpanID, status Status) (*Span, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeSpanLocked(spanID, status, b.cfg.clock())
}

func (b *TraceBuilder) closeSpanLocked(spanID SpanID, status Status, endedAt time.Time) (*Span, error) {
	span, ok := b.run.Spans[spanID]
	if !ok {
		return nil, errNotFound(spanID.String(), "span %s does not exist", spanID)
	}
	if span.Status != StatusRunning {
		return nil, errIllegalState(spanID.String(), "span %s is already closed", spanID)
	}
	if status == "" {
		status = StatusCompleted
	}

	span.Status = status
	span.EndedAt = endedAt
	span.DurationMs = endedAt.Sub(span.StartedAt).Milliseconds()

	memberHashes := make([]string, len(span.EventIDs))
	eventByID := make(map[EventID]*Event, len(b.run.Events))
	for i := range b.run.Events {
		eventByID[b.run.Events[i].ID] = &b.run.Events[i]
	}
	for i, id := range span.EventIDs {
		memberHashes[i] = eventByID[id].EventHash
	}

	hash, err := span.computeSpanHash(memberHashes)
	if err != nil {
		return nil, err
	}
	span.SpanHash = hash

	Logger.Printf("run %s: closed span %s as %s", b.run.RunID, spanID, status)
	return span, nil
}

// Finalize freezes the run and produces a TraceBundle, per spec.md
// §4.5/§4.6: any spans still running are force-closed as completed, the
// run's status/endedAt/durationMs are set, the Merkle tree is built over
// span-sorted-by-spanSeq leaves, rootHash is derived, and the PublicView
// is constructed. A second call to Finalize on the same builder fails.
func (b *TraceBuilder) Finalize() (*TraceBundle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finalized {
		return nil, errIllegalState("", "run is already finalized")
	}

	now := b.cfg.clock()
	for _, span := range b.run.SpansBySeq() {
		if span.Status == StatusRunning {
			if _, err := b.closeSpanLocked(span.SpanID, StatusCompleted, now); err != nil {
				return nil, err
			}
		}
	}

	b.run.Status = StatusCompleted
	b.run.EndedAt = now
	b.run.DurationMs = now.Sub(b.run.StartedAt).Milliseconds()

	spans := b.run.SpansBySeq()
	spanHashes := make([]string, len(spans))
	for i, s := range spans {
		spanHashes[i] = s.SpanHash
	}
	tree := BuildMerkleTree(spanHashes)
	merkleRoot := tree.Root()

	rootInput := map[string]any{
		"rollingHash":   b.run.RollingHash,
		"merkleRoot":    merkleRoot,
		"runId":         b.run.RunID.String(),
		"schemaVersion": b.run.SchemaVersion,
	}
	rootCanon, err := Canonicalize(rootInput, CanonicalOptions{})
	if err != nil {
		return nil, err
	}
	rootHash := hashBytes([]byte(domainRoot + string(rootCanon)))
	b.run.RootHash = rootHash

	b.finalized = true

	bundle := &TraceBundle{
		FormatVersion: SchemaVersion,
		PrivateRun:    b.run,
		MerkleRoot:    merkleRoot,
		RootHash:      rootHash,
	}
	bundle.PublicView = buildPublicView(b.run, merkleRoot, rootHash)

	Logger.Printf("run %s: finalized (rootHash=%s, merkleRoot=%s)", b.run.RunID, rootHash, merkleRoot)
	return bundle, nil
}
