package poitrace

// SignatureProvider is the capability boundary spec.md §4.10 requires: this
// package commits and verifies trace content but never implements a
// signature algorithm itself. A caller that wants signed bundles supplies a
// SignatureProvider backed by whatever scheme it chooses (ed25519, a
// hardware key, a remote signer); poitrace only defines the bytes that get
// signed and where the result is stored.
type SignatureProvider interface {
	// SignerID identifies the key/identity a signature should be
	// attributed to (e.g. a public key fingerprint or key id).
	SignerID() string
	// Sign returns a signature over payload. The caller owns the
	// algorithm; poitrace only guarantees payload is the same bytes on
	// both the signing and verifying side.
	Sign(payload []byte) ([]byte, error)
	// Verify returns nil when sig is a valid signature over payload for
	// signerID, and an error otherwise, including when the implementation
	// cannot resolve signerID to a key.
	Verify(signerID string, payload []byte, sig []byte) error
}

// signaturePayload returns the exact bytes a SignatureProvider signs and
// verifies for bundle: the domain-separated canonical encoding of
// {runId, rootHash, merkleRoot, manifestHash?}, per spec.md §4.10/§6. A
// bundle that has not been through ChunkBundle yet has no manifestHash, so
// the field is omitted rather than signed as empty; once ChunkBundle sets
// bundle.ManifestHash, any later signature binds it too, and a manifest or
// chunk-index substitution after signing is caught by VerifyBundleSignature.
func signaturePayload(bundle *TraceBundle) ([]byte, error) {
	input := map[string]any{
		"runId":      bundle.PrivateRun.RunID.String(),
		"rootHash":   bundle.RootHash,
		"merkleRoot": bundle.MerkleRoot,
	}
	if bundle.ManifestHash != "" {
		input["manifestHash"] = bundle.ManifestHash
	}
	m, err := ToCanonicalMap(input)
	if err != nil {
		return nil, errCanonical("canonicalize signature payload: %v", err)
	}
	canon, err := Canonicalize(m, CanonicalOptions{})
	if err != nil {
		return nil, errCanonical("canonicalize signature payload: %v", err)
	}
	return []byte(domainSig + string(canon)), nil
}

// SignBundle signs bundle's commitments with provider and records
// SignerID/Signature on bundle. Finalized bundles that are never signed
// simply carry empty SignerID/Signature, per spec.md's non-goal that
// signing is optional and capability-only.
func SignBundle(bundle *TraceBundle, provider SignatureProvider) error {
	payload, err := signaturePayload(bundle)
	if err != nil {
		return err
	}
	sig, err := provider.Sign(payload)
	if err != nil {
		return errSignatureFailure("sign bundle: %v", err)
	}
	bundle.SignerID = provider.SignerID()
	bundle.Signature = sig
	return nil
}

// VerifyBundleSignature checks bundle.Signature against provider for
// bundle.SignerID. It fails closed: a bundle with no signature recorded is
// reported as unsigned, never silently accepted.
func VerifyBundleSignature(bundle *TraceBundle, provider SignatureProvider) error {
	if len(bundle.Signature) == 0 || bundle.SignerID == "" {
		return errSignatureFailure("bundle carries no signature")
	}
	payload, err := signaturePayload(bundle)
	if err != nil {
		return err
	}
	if err := provider.Verify(bundle.SignerID, payload, bundle.Signature); err != nil {
		return errSignatureFailure("signature verification failed for signer %s: %v", bundle.SignerID, err)
	}
	return nil
}
