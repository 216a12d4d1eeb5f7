package poitrace

import "github.com/google/uuid"

// RunID, SpanID, and EventID are the 128-bit unique identifiers spec.md
// §3 calls for. The teacher mints its own fixed-width ids with
// crypto/rand directly (tracing.go's TraceID/SpanID); poitrace keeps
// that "crypto/rand-backed 128-bit id" shape but routes it through
// google/uuid, the id library used throughout the retrieval pack, so
// every identifier in a bundle canonicalizes the same way regardless of
// which part of the system minted it.
type RunID = uuid.UUID
type SpanID = uuid.UUID
type EventID = uuid.UUID

// IDGenerator mints identifiers. TraceBuilder depends on this interface,
// not on uuid.New directly, so tests can supply a deterministic generator
// (see BuilderOption WithIDGenerator in options.go).
type IDGenerator interface {
	NewID() uuid.UUID
}

type randomIDGenerator struct{}

func (randomIDGenerator) NewID() uuid.UUID { return uuid.New() }

// DefaultIDGenerator mints random (v4) ids via github.com/google/uuid.
var DefaultIDGenerator IDGenerator = randomIDGenerator{}
