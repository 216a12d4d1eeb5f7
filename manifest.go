package poitrace

import (
	"time"

	"github.com/pkg/errors"
)

// defaultChunkByteBudget is the default per-chunk size target used by
// ChunkBundle when callers do not supply one.
const defaultChunkByteBudget = 64 * 1024

// Chunk describes one entry of a Manifest's chunk index: a contiguous
// run of spans (the unit of partition, per spec.md §4.9 — "spans are not
// split across chunks"), content-addressed by chunkHash.
type Chunk struct {
	Index   int      `json:"index"`
	Hash    string   `json:"hash"`
	SpanIDs []SpanID `json:"spanIds"`
	Size    int      `json:"size"`
}

// Manifest is the public-safe index over a bundle's chunked storage,
// per spec.md §4.9: it carries only PublicView data plus chunk hashes,
// never private span/event content, so it is always safe to share.
// Grounded on lattice-substrate-json-canon's EvidenceBundle shape
// (per-component SHA-256 fields bundled together) and Chartly2.0's
// envelope metadata conventions.
type Manifest struct {
	RunID      RunID     `json:"runId"`
	AgentID    string    `json:"agentId"`
	RootHash   string    `json:"rootHash"`
	MerkleRoot string    `json:"merkleRoot"`

	TotalSpans  int `json:"totalSpans"`
	TotalEvents int `json:"totalEvents"`

	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt,omitempty"`
	DurationMs int64     `json:"durationMs,omitempty"`

	PublicView *PublicView `json:"publicView"`
	Chunks     []Chunk     `json:"chunks"`

	ManifestHash string `json:"manifestHash,omitempty"`
}

// ChunkStore holds private chunk bytes keyed by chunk hash, for off-core
// storage. This package never writes to disk (spec.md §1's non-goals
// exclude "on-disk layout beyond the manifest/chunk contract"); a caller
// that wants a chunks/<hash> directory layout copies these bytes out
// itself, matching the names in the Manifest's Chunks list.
type ChunkStore map[string][]byte

type chunkContent struct {
	Spans  []*Span `json:"spans"`
	Events []Event `json:"events"`
}

// ChunkBundle splits a finalized bundle into an ordered, content-addressed
// chunk set plus a public-safe Manifest, per spec.md §4.9. byteBudget <= 0
// uses defaultChunkByteBudget. The returned Manifest's ManifestHash is
// also written back into bundle.ManifestHash.
func ChunkBundle(bundle *TraceBundle, byteBudget int) (*Manifest, ChunkStore, error) {
	if byteBudget <= 0 {
		byteBudget = defaultChunkByteBudget
	}

	eventsBySpan := make(map[SpanID][]Event, len(bundle.PrivateRun.Spans))
	eventByID := make(map[EventID]*Event, len(bundle.PrivateRun.Events))
	for i := range bundle.PrivateRun.Events {
		eventByID[bundle.PrivateRun.Events[i].ID] = &bundle.PrivateRun.Events[i]
	}
	for _, span := range bundle.PrivateRun.Spans {
		for _, id := range span.EventIDs {
			if e := eventByID[id]; e != nil {
				eventsBySpan[span.SpanID] = append(eventsBySpan[span.SpanID], *e)
			}
		}
	}

	store := make(ChunkStore)
	var chunks []Chunk

	flush := func(content chunkContent) error {
		if len(content.Spans) == 0 {
			return nil
		}
		m, err := ToCanonicalMap(content)
		if err != nil {
			return errors.Wrap(err, "canonicalize chunk content")
		}
		canon, err := Canonicalize(m, CanonicalOptions{})
		if err != nil {
			return errors.Wrapf(err, "canonicalize chunk %d", len(chunks))
		}
		hash := hashBytes(canon)
		ids := make([]SpanID, len(content.Spans))
		for i, s := range content.Spans {
			ids[i] = s.SpanID
		}
		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			Hash:    hash,
			SpanIDs: ids,
			Size:    len(canon),
		})
		store[hash] = canon
		return nil
	}

	var current chunkContent
	for _, span := range bundle.PrivateRun.SpansBySeq() {
		events := eventsBySpan[span.SpanID]
		candidate := chunkContent{
			Spans:  append(append([]*Span(nil), current.Spans...), span),
			Events: append(append([]Event(nil), current.Events...), events...),
		}
		m, err := ToCanonicalMap(candidate)
		if err != nil {
			return nil, nil, errors.Wrap(err, "canonicalize candidate chunk")
		}
		canon, err := Canonicalize(m, CanonicalOptions{})
		if err != nil {
			return nil, nil, errors.Wrap(err, "canonicalize candidate chunk")
		}

		if len(current.Spans) > 0 && len(canon) > byteBudget {
			if err := flush(current); err != nil {
				return nil, nil, err
			}
			current = chunkContent{Spans: []*Span{span}, Events: events}
		} else {
			current = candidate
		}
	}
	if err := flush(current); err != nil {
		return nil, nil, err
	}

	manifest := &Manifest{
		RunID:       bundle.PrivateRun.RunID,
		AgentID:     bundle.PrivateRun.AgentID,
		RootHash:    bundle.RootHash,
		MerkleRoot:  bundle.MerkleRoot,
		TotalSpans:  len(bundle.PrivateRun.Spans),
		TotalEvents: len(bundle.PrivateRun.Events),
		StartedAt:   bundle.PrivateRun.StartedAt,
		EndedAt:     bundle.PrivateRun.EndedAt,
		DurationMs:  bundle.PrivateRun.DurationMs,
		PublicView:  bundle.PublicView,
		Chunks:      chunks,
	}

	m, err := ToCanonicalMap(manifest)
	if err != nil {
		return nil, nil, errors.Wrap(err, "canonicalize manifest")
	}
	canon, err := Canonicalize(m, CanonicalOptions{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "canonicalize manifest")
	}
	manifest.ManifestHash = hashBytes([]byte(domainManifest + string(canon)))
	bundle.ManifestHash = manifest.ManifestHash

	return manifest, store, nil
}
