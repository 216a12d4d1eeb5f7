package poitrace

import (
	"strings"
	"testing"
)

func TestMultiErrorAccumulatesAndReportsHasErrors(t *testing.T) {
	var merr MultiError
	if merr.HasErrors() {
		t.Fatal("expected a fresh MultiError to report no errors")
	}
	merr.add(nil)
	if merr.HasErrors() {
		t.Fatal("adding nil should not count as an error")
	}
	merr.add(errInvalidArgument("first"))
	merr.add(errNotFound("id-1", "second"))
	if !merr.HasErrors() {
		t.Fatal("expected HasErrors to be true after adding real errors")
	}
	if len(merr.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(merr.Errors))
	}
}

func TestErrorKindsRoundTripThroughErrorString(t *testing.T) {
	err := errIntegrityFailure("root hash mismatch")
	if err.Kind != KindIntegrityFailure {
		t.Fatalf("expected kind %s, got %s", KindIntegrityFailure, err.Kind)
	}
	if !strings.Contains(err.Error(), string(KindIntegrityFailure)) {
		t.Fatalf("expected the error string to carry kind %s, got %q", KindIntegrityFailure, err.Error())
	}
}

func TestWrapErrPreservesCause(t *testing.T) {
	cause := errInvalidArgument("bad input")
	wrapped := wrapErr(KindIllegalState, "", cause, "wrapping context")
	if wrapped.Unwrap() != cause {
		t.Fatal("expected Unwrap to return the original cause")
	}
}

func TestNewStacktraceCapturesFrames(t *testing.T) {
	st := NewStacktrace()
	if st == nil || len(st.Frames) == 0 {
		t.Fatal("expected NewStacktrace to capture at least one frame")
	}
}
