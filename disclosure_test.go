package poitrace

import "testing"

func outerSpanID(t *testing.T, bundle *TraceBundle) SpanID {
	t.Helper()
	for _, s := range bundle.PrivateRun.SpansBySeq() {
		if s.Name == "outer" {
			return s.SpanID
		}
	}
	t.Fatal("outer span not found")
	return SpanID{}
}

func TestDiscloseMembershipHidesContent(t *testing.T) {
	bundle := buildTestBundle(t)
	spanID := outerSpanID(t, bundle)

	result, err := Disclose(bundle, []SpanID{spanID}, DisclosureMembership)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Disclosed) != 1 {
		t.Fatalf("expected 1 disclosed span, got %d", len(result.Disclosed))
	}
	if result.Disclosed[0].Span != nil {
		t.Fatal("membership disclosure must not reveal span content")
	}
	if err := VerifyDisclosure(result, bundle.RootHash, bundle.MerkleRoot); err != nil {
		t.Fatalf("expected verification to succeed: %v", err)
	}
}

func TestDiscloseFullRevealsContentAndVerifies(t *testing.T) {
	bundle := buildTestBundle(t)
	spanID := outerSpanID(t, bundle)

	result, err := Disclose(bundle, []SpanID{spanID}, DisclosureFull)
	if err != nil {
		t.Fatal(err)
	}
	if result.Disclosed[0].Span == nil {
		t.Fatal("full disclosure must reveal span content")
	}
	if err := VerifyDisclosure(result, bundle.RootHash, bundle.MerkleRoot); err != nil {
		t.Fatalf("expected verification to succeed: %v", err)
	}
}

func TestDiscloseRejectsUnknownSpan(t *testing.T) {
	bundle := buildTestBundle(t)
	if _, err := Disclose(bundle, []SpanID{{0xff}}, DisclosureMembership); err == nil {
		t.Fatal("expected an error disclosing an unknown span")
	}
}

func TestVerifyDisclosureDetectsWrongAnchors(t *testing.T) {
	bundle := buildTestBundle(t)
	spanID := outerSpanID(t, bundle)
	result, err := Disclose(bundle, []SpanID{spanID}, DisclosureFull)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyDisclosure(result, "wrong-root-hash", bundle.MerkleRoot); err == nil {
		t.Fatal("expected verification to fail against a wrong root hash")
	}
}

func TestVerifyDisclosureDetectsTamperedSpanContent(t *testing.T) {
	bundle := buildTestBundle(t)
	spanID := outerSpanID(t, bundle)
	result, err := Disclose(bundle, []SpanID{spanID}, DisclosureFull)
	if err != nil {
		t.Fatal(err)
	}
	result.Disclosed[0].Span.Name = "tampered-name"
	if err := VerifyDisclosure(result, bundle.RootHash, bundle.MerkleRoot); err == nil {
		t.Fatal("expected verification to fail for tampered disclosed span content")
	}
}

func TestVerifyDisclosureDetectsTamperedProof(t *testing.T) {
	bundle := buildTestBundle(t)
	spanID := outerSpanID(t, bundle)
	result, err := Disclose(bundle, []SpanID{spanID}, DisclosureMembership)
	if err != nil {
		t.Fatal(err)
	}
	result.Disclosed[0].Proof.LeafHash = hashBytes([]byte("tampered"))
	if err := VerifyDisclosure(result, bundle.RootHash, bundle.MerkleRoot); err == nil {
		t.Fatal("expected verification to fail for a tampered proof")
	}
}

func TestCanDiscloseAndGetSpanIndex(t *testing.T) {
	bundle := buildTestBundle(t)
	spanID := outerSpanID(t, bundle)
	if !CanDisclose(bundle, spanID) {
		t.Fatal("expected CanDisclose to report true for an existing span")
	}
	if CanDisclose(bundle, SpanID{0xff}) {
		t.Fatal("expected CanDisclose to report false for a nonexistent span")
	}
	idx, err := GetSpanIndex(bundle, spanID)
	if err != nil {
		t.Fatal(err)
	}
	if idx != bundle.PrivateRun.Spans[spanID].SpanSeq {
		t.Fatal("GetSpanIndex should match the span's SpanSeq")
	}
}

func TestCreateDisclosureRequestValidatesSpans(t *testing.T) {
	bundle := buildTestBundle(t)
	spanID := outerSpanID(t, bundle)

	req, err := CreateDisclosureRequest(bundle, []SpanID{spanID}, DisclosureFull)
	if err != nil {
		t.Fatal(err)
	}
	if req.RunID != bundle.PrivateRun.RunID {
		t.Fatal("expected request RunID to match the bundle's")
	}

	if _, err := CreateDisclosureRequest(bundle, []SpanID{{0xff}}, DisclosureFull); err == nil {
		t.Fatal("expected an error for a request naming an unknown span")
	}
}
