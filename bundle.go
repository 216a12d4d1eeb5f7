package poitrace

// TraceBundle is BundleFinalizer's output: the finalized private Run, its
// derived PublicView, and the two commitments that anchor them (spec.md
// §3, §4.6). TraceBuilder.Finalize builds one exactly once per Run, and
// DeserializeBundle rebuilds one from its serialized form. The Run,
// PublicView and commitments are not changed after that; ChunkBundle later
// fills ManifestHash, and SignBundle fills SignerID and Signature.
type TraceBundle struct {
	FormatVersion string      `json:"formatVersion"`
	PublicView    *PublicView `json:"publicView"`
	PrivateRun    *Run        `json:"privateRun"`
	MerkleRoot    string      `json:"merkleRoot"`
	RootHash      string      `json:"rootHash"`

	ManifestHash string `json:"manifestHash,omitempty"`
	SignerID     string `json:"signerId,omitempty"`
	Signature    []byte `json:"signature,omitempty"`
}

// VerifyCommitments recomputes every event's eventHash from its content,
// then the rolling hash, the Merkle root and the root hash from
// b.PrivateRun, and reports whether they match the values stored in the
// bundle, per spec.md §8's quantified invariants. Span hashes are taken as
// stored: span headers are not re-hashed here. It is the bundle-level
// counterpart to VerifyRollingHash/VerifyMerkleRoot — callers that only
// have a deserialized bundle (no live TraceBuilder) use this to confirm
// the two commitments are internally consistent before trusting rootHash.
func (b *TraceBundle) VerifyCommitments() error {
	merr := &MultiError{}

	for i := range b.PrivateRun.Events {
		e := &b.PrivateRun.Events[i]
		if got, err := e.computeHash(); err != nil {
			merr.add(err)
		} else if got != e.EventHash {
			merr.add(errIntegrityFailure("event %s: recomputed eventHash %q, claimed %q", e.ID, got, e.EventHash))
		}
	}

	if err := VerifyRollingHash(b.PrivateRun.EventHashes(), b.PrivateRun.RollingHash); err != nil {
		merr.add(err)
	}

	spans := b.PrivateRun.SpansBySeq()
	spanHashes := make([]string, len(spans))
	for i, s := range spans {
		spanHashes[i] = s.SpanHash
	}
	if err := VerifyMerkleRoot(spanHashes, b.MerkleRoot); err != nil {
		merr.add(err)
	}

	rootInput := map[string]any{
		"rollingHash":   b.PrivateRun.RollingHash,
		"merkleRoot":    b.MerkleRoot,
		"runId":         b.PrivateRun.RunID.String(),
		"schemaVersion": b.PrivateRun.SchemaVersion,
	}
	canon, err := Canonicalize(rootInput, CanonicalOptions{})
	if err != nil {
		merr.add(err)
	} else if got := hashBytes([]byte(domainRoot + string(canon))); got != b.RootHash {
		merr.add(errIntegrityFailure("root hash mismatch: recomputed %q, claimed %q", got, b.RootHash))
	}

	if merr.HasErrors() {
		return merr
	}
	return nil
}
