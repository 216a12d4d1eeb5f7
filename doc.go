// Package poitrace builds cryptographically committed trace bundles for an
// autonomous agent's execution history: commands, outputs, decisions,
// observations, errors, and custom events, grouped into spans, chained by a
// rolling hash and bound into a Merkle tree, with selective disclosure of
// individual spans to a verifier who never sees the rest of the run.
package poitrace
