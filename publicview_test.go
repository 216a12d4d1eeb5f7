package poitrace

import "testing"

func TestPublicViewRedactsPrivateSpansButKeepsTheirHash(t *testing.T) {
	bundle := buildTestBundle(t)
	view := bundle.PublicView

	if len(view.PublicSpans) != 1 {
		t.Fatalf("expected exactly 1 public span, got %d", len(view.PublicSpans))
	}
	if view.PublicSpans[0].Name != "outer" {
		t.Fatalf("expected the public span to be %q, got %q", "outer", view.PublicSpans[0].Name)
	}

	if len(view.RedactedSpanHashes) != 1 {
		t.Fatalf("expected exactly 1 redacted span hash, got %d", len(view.RedactedSpanHashes))
	}
	innerHash := bundle.PrivateRun.Spans[view.RedactedSpanHashes[0].SpanID].SpanHash
	if view.RedactedSpanHashes[0].SpanHash != innerHash {
		t.Fatal("redacted span hash should match the private span's actual spanHash")
	}
}

func TestPublicViewExcludesPrivateEventsFromPublicSpans(t *testing.T) {
	bundle := buildTestBundle(t)
	view := bundle.PublicView
	for _, e := range view.PublicSpans[0].Events {
		if e.Visibility != VisibilityPublic {
			t.Fatalf("public span should only carry public events, found %s", e.Visibility)
		}
	}
}

func TestPublicViewRootHashesMatchBundle(t *testing.T) {
	bundle := buildTestBundle(t)
	if bundle.PublicView.RootHash != bundle.RootHash {
		t.Fatal("PublicView.RootHash should match bundle.RootHash")
	}
	if bundle.PublicView.MerkleRoot != bundle.MerkleRoot {
		t.Fatal("PublicView.MerkleRoot should match bundle.MerkleRoot")
	}
}
