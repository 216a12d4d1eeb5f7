package poitrace

import (
	"testing"
	"time"
)

type seqIDGenerator struct{ n int }

func (g *seqIDGenerator) NewID() EventID {
	g.n++
	var id EventID
	id[0] = byte(g.n)
	id[1] = byte(g.n >> 8)
	return id
}

func testBuilder(t *testing.T) *TraceBuilder {
	t.Helper()
	clock := time.Unix(1700000000, 0).UTC()
	b, err := NewTraceBuilder("agent-1", map[string]any{"env": "test"},
		WithClock(func() time.Time { c := clock; clock = clock.Add(time.Second); return c }),
		WithIDGenerator(&seqIDGenerator{}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestNewTraceBuilderRejectsEmptyAgentID(t *testing.T) {
	if _, err := NewTraceBuilder("", nil); err == nil {
		t.Fatal("expected an error for an empty agentId")
	}
}

func TestAddSpanAndEventLifecycle(t *testing.T) {
	b := testBuilder(t)

	span, err := b.AddSpan(SpanInput{Name: "work"})
	if err != nil {
		t.Fatal(err)
	}
	if span.SpanSeq != 0 {
		t.Fatalf("expected first span seq 0, got %d", span.SpanSeq)
	}

	event, err := b.AddEvent(span.SpanID, EventInput{
		Kind:    EventKindCommand,
		Command: &CommandPayload{Command: "echo", Args: []string{"hi"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if event.Seq != 0 {
		t.Fatalf("expected first event seq 0, got %d", event.Seq)
	}
	if event.EventHash == "" {
		t.Fatal("expected a non-empty eventHash")
	}
	if event.Visibility != VisibilityPublic {
		t.Fatalf("expected command event to default to public visibility, got %s", event.Visibility)
	}

	closed, err := b.CloseSpan(span.SpanID, "")
	if err != nil {
		t.Fatal(err)
	}
	if closed.Status != StatusCompleted {
		t.Fatalf("expected default close status completed, got %s", closed.Status)
	}
	if closed.SpanHash == "" {
		t.Fatal("expected a non-empty spanHash after close")
	}
}

func TestAddEventRejectsUnknownSpan(t *testing.T) {
	b := testBuilder(t)
	if _, err := b.AddEvent(SpanID{}, EventInput{Kind: EventKindCommand, Command: &CommandPayload{Command: "x"}}); err == nil {
		t.Fatal("expected an error adding an event to a nonexistent span")
	}
}

func TestAddEventRejectsClosedSpan(t *testing.T) {
	b := testBuilder(t)
	span, err := b.AddSpan(SpanInput{Name: "work"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.CloseSpan(span.SpanID, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddEvent(span.SpanID, EventInput{Kind: EventKindCommand, Command: &CommandPayload{Command: "x"}}); err == nil {
		t.Fatal("expected an error adding an event to a closed span")
	}
}

func TestAddSpanRejectsUnknownOrClosedParent(t *testing.T) {
	b := testBuilder(t)
	missing := SpanID{0xff}
	if _, err := b.AddSpan(SpanInput{Name: "child", ParentSpanID: &missing}); err == nil {
		t.Fatal("expected an error for an unknown parent span")
	}

	parent, err := b.AddSpan(SpanInput{Name: "parent"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.CloseSpan(parent.SpanID, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddSpan(SpanInput{Name: "child", ParentSpanID: &parent.SpanID}); err == nil {
		t.Fatal("expected an error adding a child to a closed parent")
	}
}

func TestFinalizeForceClosesRunningSpans(t *testing.T) {
	b := testBuilder(t)
	span, err := b.AddSpan(SpanInput{Name: "still-running"})
	if err != nil {
		t.Fatal(err)
	}
	bundle, err := b.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	closedSpan := bundle.PrivateRun.Spans[span.SpanID]
	if closedSpan.Status != StatusCompleted {
		t.Fatalf("expected force-closed span to be completed, got %s", closedSpan.Status)
	}
	if closedSpan.SpanHash == "" {
		t.Fatal("expected force-closed span to have a spanHash")
	}
}

func TestFinalizeIsOneShot(t *testing.T) {
	b := testBuilder(t)
	if _, err := b.Finalize(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Finalize(); err == nil {
		t.Fatal("expected a second Finalize call to fail")
	}
}

func TestMutationAfterFinalizeFails(t *testing.T) {
	b := testBuilder(t)
	span, err := b.AddSpan(SpanInput{Name: "work"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Finalize(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddSpan(SpanInput{Name: "too-late"}); err == nil {
		t.Fatal("expected AddSpan to fail after Finalize")
	}
	if _, err := b.AddEvent(span.SpanID, EventInput{Kind: EventKindCommand, Command: &CommandPayload{Command: "x"}}); err == nil {
		t.Fatal("expected AddEvent to fail after Finalize")
	}
}

func TestFinalizeEmptyRunIsValid(t *testing.T) {
	b := testBuilder(t)
	bundle, err := b.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if bundle.MerkleRoot != EmptyMerkleRoot {
		t.Fatalf("expected empty merkle root for a run with no spans, got %q", bundle.MerkleRoot)
	}
	if err := bundle.VerifyCommitments(); err != nil {
		t.Fatalf("expected an empty finalized run to verify: %v", err)
	}
}
