package poitrace

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// SerializeBundle encodes bundle as JSON using the same field names and
// tags the canonicalizer reads (spec.md §6: "the wire format and the
// canonicalization input use one struct definition, never two"). The
// result is ordinary (non-canonical) JSON, suitable for storage or
// transport; DeserializeBundle is its exact inverse.
func SerializeBundle(bundle *TraceBundle) ([]byte, error) {
	data, err := json.Marshal(bundle)
	if err != nil {
		return nil, errors.Wrap(err, "serialize bundle")
	}
	return data, nil
}

// DeserializeBundle decodes data produced by SerializeBundle back into a
// TraceBundle. It does not call VerifyCommitments itself: a caller that
// distrusts the source should call VerifyCommitments explicitly after
// deserializing, per spec.md §8 ("loading a bundle never implies trusting
// it").
func DeserializeBundle(data []byte) (*TraceBundle, error) {
	var bundle TraceBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, errors.Wrap(err, "deserialize bundle")
	}
	if bundle.PrivateRun == nil {
		return nil, errCanonical("deserialized bundle has no privateRun")
	}
	if bundle.PrivateRun.Spans == nil {
		bundle.PrivateRun.Spans = make(map[SpanID]*Span)
	}
	return &bundle, nil
}

// SerializeManifest encodes manifest as JSON. Unlike SerializeBundle, a
// Manifest never carries private content, so it is always safe to write to
// a public location alongside the chunk store it indexes.
func SerializeManifest(manifest *Manifest) ([]byte, error) {
	data, err := json.Marshal(manifest)
	if err != nil {
		return nil, errors.Wrap(err, "serialize manifest")
	}
	return data, nil
}

// DeserializeManifest decodes data produced by SerializeManifest.
func DeserializeManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(err, "deserialize manifest")
	}
	return &manifest, nil
}
