package poitrace

import "testing"

func buildTestBundle(t *testing.T) *TraceBundle {
	t.Helper()
	b := testBuilder(t)

	span, err := b.AddSpan(SpanInput{Name: "outer", Visibility: VisibilityPublic})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddEvent(span.SpanID, EventInput{Kind: EventKindCommand, Command: &CommandPayload{Command: "ls"}}); err != nil {
		t.Fatal(err)
	}
	child, err := b.AddSpan(SpanInput{Name: "inner", ParentSpanID: &span.SpanID, Visibility: VisibilityPrivate})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddEvent(child.SpanID, EventInput{Kind: EventKindObservation, Observation: &ObservationPayload{Observation: "noted"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.CloseSpan(child.SpanID, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := b.CloseSpan(span.SpanID, ""); err != nil {
		t.Fatal(err)
	}

	bundle, err := b.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	return bundle
}

func TestVerifyCommitmentsOnFreshBundle(t *testing.T) {
	bundle := buildTestBundle(t)
	if err := bundle.VerifyCommitments(); err != nil {
		t.Fatalf("expected a freshly finalized bundle to verify: %v", err)
	}
}

func TestVerifyCommitmentsDetectsTamperedRollingHash(t *testing.T) {
	bundle := buildTestBundle(t)
	bundle.PrivateRun.RollingHash = "not-the-real-chain"
	if err := bundle.VerifyCommitments(); err == nil {
		t.Fatal("expected VerifyCommitments to fail for a tampered rolling hash")
	}
}

func TestVerifyCommitmentsDetectsTamperedMerkleRoot(t *testing.T) {
	bundle := buildTestBundle(t)
	bundle.MerkleRoot = "not-the-real-root"
	if err := bundle.VerifyCommitments(); err == nil {
		t.Fatal("expected VerifyCommitments to fail for a tampered merkle root")
	}
}

func TestVerifyCommitmentsDetectsTamperedRootHash(t *testing.T) {
	bundle := buildTestBundle(t)
	bundle.RootHash = "not-the-real-root-hash"
	if err := bundle.VerifyCommitments(); err == nil {
		t.Fatal("expected VerifyCommitments to fail for a tampered root hash")
	}
}

func TestVerifyCommitmentsAccumulatesMultipleDefects(t *testing.T) {
	bundle := buildTestBundle(t)
	bundle.PrivateRun.RollingHash = "tampered"
	bundle.MerkleRoot = "tampered"
	err := bundle.VerifyCommitments()
	if err == nil {
		t.Fatal("expected an error")
	}
	merr, ok := err.(*MultiError)
	if !ok {
		t.Fatalf("expected *MultiError, got %T", err)
	}
	if len(merr.Errors) < 2 {
		t.Fatalf("expected at least 2 accumulated errors, got %d", len(merr.Errors))
	}
}
