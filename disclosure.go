package poitrace

// DisclosureMode selects how much a disclosure package reveals about a
// span: membership-only (existence, no contents) or full (contents plus
// inclusion proof).
type DisclosureMode string

const (
	DisclosureMembership DisclosureMode = "membership"
	DisclosureFull       DisclosureMode = "full"
)

// DisclosedSpan is one entry of a DisclosureResult. Span and Events are
// only populated in DisclosureFull mode.
type DisclosedSpan struct {
	SpanID SpanID       `json:"spanId"`
	Proof  *MerkleProof `json:"proof"`
	Span   *Span        `json:"span,omitempty"`
	Events []Event      `json:"events,omitempty"`
}

// DisclosureResult is the artifact handed to a verifier, per spec.md §3
// and §4.8.
type DisclosureResult struct {
	Mode       DisclosureMode  `json:"mode"`
	RootHash   string          `json:"rootHash"`
	MerkleRoot string          `json:"merkleRoot"`
	Disclosed  []DisclosedSpan `json:"disclosedSpans"`
}

// DisclosureRequest is a serializable request for a disclosure, per
// spec.md §4.8's createDisclosureRequest helper — a transport-ready
// struct so a requester and discloser can exchange it the same way a
// TraceBundle round-trips through JSON.
type DisclosureRequest struct {
	RunID   RunID          `json:"runId"`
	SpanIDs []SpanID       `json:"spanIds"`
	Mode    DisclosureMode `json:"mode"`
}

// CanDisclose reports whether spanID exists in bundle.
func CanDisclose(bundle *TraceBundle, spanID SpanID) bool {
	_, ok := bundle.PrivateRun.Spans[spanID]
	return ok
}

// GetSpanIndex returns spanID's position in spanSeq-sorted order, the
// Merkle leaf index used for its proof.
func GetSpanIndex(bundle *TraceBundle, spanID SpanID) (int, error) {
	span, ok := bundle.PrivateRun.Spans[spanID]
	if !ok {
		return 0, errNotFound(spanID.String(), "span %s does not exist", spanID)
	}
	return span.SpanSeq, nil
}

// CreateDisclosureRequest builds a serializable DisclosureRequest for
// spanIDs, validating each exists in bundle first.
func CreateDisclosureRequest(bundle *TraceBundle, spanIDs []SpanID, mode DisclosureMode) (*DisclosureRequest, error) {
	for _, id := range spanIDs {
		if !CanDisclose(bundle, id) {
			return nil, errDisclosurePolicy(id.String(), "span %s does not exist in bundle", id)
		}
	}
	return &DisclosureRequest{RunID: bundle.PrivateRun.RunID, SpanIDs: spanIDs, Mode: mode}, nil
}

// Disclose builds a DisclosureResult for spanIDs against bundle, per
// spec.md §4.8. In DisclosureMembership mode only {spanId, proof} is
// emitted; in DisclosureFull mode the span and its member events (in seq
// order) are included too.
func Disclose(bundle *TraceBundle, spanIDs []SpanID, mode DisclosureMode) (*DisclosureResult, error) {
	if mode != DisclosureMembership && mode != DisclosureFull {
		return nil, errDisclosurePolicy("", "invalid disclosure mode %q", mode)
	}

	spans := bundle.PrivateRun.SpansBySeq()
	spanHashes := make([]string, len(spans))
	for i, s := range spans {
		spanHashes[i] = s.SpanHash
	}
	tree := BuildMerkleTree(spanHashes)

	eventByID := make(map[EventID]*Event, len(bundle.PrivateRun.Events))
	for i := range bundle.PrivateRun.Events {
		eventByID[bundle.PrivateRun.Events[i].ID] = &bundle.PrivateRun.Events[i]
	}

	result := &DisclosureResult{
		Mode:       mode,
		RootHash:   bundle.RootHash,
		MerkleRoot: bundle.MerkleRoot,
	}

	for _, id := range spanIDs {
		span, ok := bundle.PrivateRun.Spans[id]
		if !ok {
			return nil, errDisclosurePolicy(id.String(), "span %s does not exist in bundle", id)
		}

		proof, err := tree.Proof(span.SpanSeq)
		if err != nil {
			return nil, err
		}

		disclosed := DisclosedSpan{SpanID: id, Proof: proof}
		if mode == DisclosureFull {
			events := make([]Event, 0, len(span.EventIDs))
			for _, eid := range span.EventIDs {
				if e := eventByID[eid]; e != nil {
					events = append(events, *e)
				}
			}
			spanCopy := *span
			disclosed.Span = &spanCopy
			disclosed.Events = events
		}

		result.Disclosed = append(result.Disclosed, disclosed)
	}

	return result, nil
}

// VerifyDisclosure checks result against the anchor values
// (expectedRootHash, expectedMerkleRoot), per spec.md §4.8's verification
// contract: valid iff (i) the anchors match, (ii) every proof's rootHash
// equals expectedMerkleRoot, (iii) every Merkle proof verifies, and (iv) in
// full mode every recomputed leaf hash matches its proof's leafHash. Every
// defect is accumulated rather than short-circuited, so the caller sees a
// complete diagnostic in one pass.
func VerifyDisclosure(result *DisclosureResult, expectedRootHash, expectedMerkleRoot string) error {
	merr := &MultiError{}

	if result.RootHash != expectedRootHash {
		merr.add(errIntegrityFailure("disclosure rootHash %q does not match expected %q", result.RootHash, expectedRootHash))
	}
	if result.MerkleRoot != expectedMerkleRoot {
		merr.add(errIntegrityFailure("disclosure merkleRoot %q does not match expected %q", result.MerkleRoot, expectedMerkleRoot))
	}

	for _, d := range result.Disclosed {
		if d.Proof == nil {
			merr.add(errIntegrityFailure("span %s: disclosure carries no proof", d.SpanID))
			continue
		}
		if d.Proof.RootHash != expectedMerkleRoot {
			merr.add(errIntegrityFailure("span %s: proof rootHash %q does not match expected %q", d.SpanID, d.Proof.RootHash, expectedMerkleRoot))
		}
		if !d.Proof.Verify() {
			merr.add(errIntegrityFailure("span %s: merkle proof does not verify", d.SpanID))
		}

		if result.Mode == DisclosureFull {
			if d.Span == nil {
				merr.add(errIntegrityFailure("span %s: full disclosure missing span", d.SpanID))
				continue
			}
			memberHashes := make([]string, len(d.Events))
			for i, e := range d.Events {
				memberHashes[i] = e.EventHash
			}
			recomputedSpanHash, err := d.Span.computeSpanHash(memberHashes)
			if err != nil {
				merr.add(err)
				continue
			}
			if recomputedSpanHash != d.Span.SpanHash {
				merr.add(errIntegrityFailure("span %s: recomputed spanHash %q does not match disclosed %q", d.SpanID, recomputedSpanHash, d.Span.SpanHash))
				continue
			}
			recomputedLeaf := leafHash(recomputedSpanHash)
			if recomputedLeaf != d.Proof.LeafHash {
				merr.add(errIntegrityFailure("span %s: recomputed leaf hash %q does not match proof leafHash %q", d.SpanID, recomputedLeaf, d.Proof.LeafHash))
			}
		}
	}

	if merr.HasErrors() {
		return merr
	}
	return nil
}
