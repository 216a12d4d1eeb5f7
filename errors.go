package poitrace

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// ErrorKind classifies a core error per the taxonomy the callers are
// expected to branch on.
type ErrorKind string

const (
	KindInvalidArgument  ErrorKind = "invalid_argument"
	KindNotFound         ErrorKind = "not_found"
	KindIllegalState     ErrorKind = "illegal_state"
	KindCanonical        ErrorKind = "canonical"
	KindIntegrityFailure ErrorKind = "integrity_failure"
	KindDisclosurePolicy ErrorKind = "disclosure_policy"
	KindSignatureFailure ErrorKind = "signature_failure"
)

// Error is the core's single error type. Errors raised by the package's own
// checks are *Error values. VerifyCommitments and VerifyDisclosure return a
// *MultiError holding them; Canonicalize adds key/index context to errors
// from nested values with fmt.Errorf, and ChunkBundle and the (de)serialize
// functions wrap theirs with github.com/pkg/errors, so errors.As recovers
// the *Error, where there is one, from those.
type Error struct {
	Kind    ErrorKind
	Message string
	Ident   string // offending span/event id, when applicable
	Cause   error
	stack   *Stacktrace
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Ident != "" {
		fmt.Fprintf(&b, " (id=%s)", e.Ident)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %s", e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Stack returns the stack trace captured when the error was constructed, if
// any. Errors constructed with newErr, wrapErr included, carry the stack of
// their construction site; wrapErr falls back to the cause's stack (via
// ExtractStacktrace) only when no stack could be captured there.
func (e *Error) Stack() *Stacktrace { return e.stack }

func newErr(kind ErrorKind, ident, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Ident:   ident,
		stack:   NewStacktrace(),
	}
}

func wrapErr(kind ErrorKind, ident string, cause error, format string, args ...any) *Error {
	e := newErr(kind, ident, format, args...)
	e.Cause = cause
	if e.stack == nil {
		e.stack = ExtractStacktrace(cause)
	}
	return e
}

func errInvalidArgument(format string, args ...any) *Error {
	return newErr(KindInvalidArgument, "", format, args...)
}

func errNotFound(ident, format string, args ...any) *Error {
	return newErr(KindNotFound, ident, format, args...)
}

func errIllegalState(ident, format string, args ...any) *Error {
	return newErr(KindIllegalState, ident, format, args...)
}

func errCanonical(format string, args ...any) *Error {
	return newErr(KindCanonical, "", format, args...)
}

func errIntegrityFailure(format string, args ...any) *Error {
	return newErr(KindIntegrityFailure, "", format, args...)
}

func errDisclosurePolicy(ident, format string, args ...any) *Error {
	return newErr(KindDisclosurePolicy, ident, format, args...)
}

func errSignatureFailure(format string, args ...any) *Error {
	return newErr(KindSignatureFailure, "", format, args...)
}

// MultiError accumulates zero or more errors discovered during a
// verification pass. The verification paths that check several things
// (TraceBundle.VerifyCommitments, VerifyDisclosure) never stop at the first
// defect: they report everything they find.
type MultiError struct {
	Errors []error
}

func (m *MultiError) add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *MultiError) HasErrors() bool { return len(m.Errors) > 0 }

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	msgs := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Stacktrace holds the frames of a captured stack, independent of where the
// error originated. Field names and JSON tags match a conventional
// structured-stack shape so bundles that embed them remain self-describing.
type Stacktrace struct {
	Frames []Frame `json:"frames,omitempty"`
}

// Frame describes a single call frame.
type Frame struct {
	Function string `json:"function,omitempty"`
	Module   string `json:"module,omitempty"`
	Filename string `json:"filename,omitempty"`
	Lineno   int    `json:"lineno,omitempty"`
}

// NewStacktrace captures the current goroutine's call stack, skipping
// frames internal to poitrace.
func NewStacktrace() *Stacktrace {
	pc := make([]uintptr, 64)
	const skip = 2 // skip runtime.Callers and NewStacktrace itself
	n := runtime.Callers(skip, pc)
	if n == 0 {
		return nil
	}
	return &Stacktrace{Frames: userFrames(pc[:n])}
}

func userFrames(pc []uintptr) []Frame {
	frames := runtime.CallersFrames(pc)
	var out []Frame
	for {
		frame, more := frames.Next()
		if strings.HasPrefix(frame.Function, "github.com/Flux-Point-Studios/poitrace.") {
			if !more {
				break
			}
			continue
		}
		if strings.HasPrefix(frame.Function, "runtime.") {
			break
		}
		module, fn := deconstructFunctionName(frame.Function)
		out = append(out, Frame{
			Function: fn,
			Module:   module,
			Filename: frame.File,
			Lineno:   frame.Line,
		})
		if !more {
			break
		}
	}
	return out
}

func deconstructFunctionName(name string) (module, function string) {
	if idx := strings.LastIndex(name, "."); idx != -1 {
		return name[:idx], name[idx+1:]
	}
	return "", name
}

// ExtractStacktrace recovers a Stacktrace from an arbitrary error value by
// duck-typing against the handful of stack-trace-bearing conventions used
// across the Go ecosystem (github.com/pkg/errors' StackTrace() method,
// github.com/pingcap/errors' GetStackTracer(), github.com/go-errors/errors'
// StackFrames()) without importing any of them: the whole point is to
// recognize a caller's error-wrapping library of choice by its methods
// rather than by its types.
func ExtractStacktrace(err error) *Stacktrace {
	if err == nil {
		return nil
	}
	method := stackMethod(err)
	if !method.IsValid() {
		return nil
	}
	pcs := callProgramCounters(method)
	if len(pcs) == 0 {
		return nil
	}
	return &Stacktrace{Frames: userFrames(pcs)}
}

func stackMethod(err error) reflect.Value {
	v := reflect.ValueOf(err)

	var method reflect.Value
	if m := v.MethodByName("GetStackTracer"); m.IsValid() {
		if tracer := m.Call(nil)[0]; tracer.IsValid() {
			if st := reflect.ValueOf(tracer.Interface()).MethodByName("StackTrace"); st.IsValid() {
				method = st
			}
		}
	}
	if m := v.MethodByName("StackTrace"); m.IsValid() {
		method = m
	}
	if m := v.MethodByName("StackFrames"); m.IsValid() {
		method = m
	}
	return method
}

func callProgramCounters(method reflect.Value) []uintptr {
	defer func() { recover() }() //nolint:errcheck // defensive against ill-behaved third-party stack types
	result := method.Call(nil)
	if len(result) == 0 {
		return nil
	}
	slice := result[0]
	if slice.Kind() != reflect.Slice {
		return nil
	}
	pcs := make([]uintptr, 0, slice.Len())
	for i := 0; i < slice.Len(); i++ {
		item := slice.Index(i)
		switch item.Kind() {
		case reflect.Uintptr:
			pcs = append(pcs, uintptr(item.Uint()))
		case reflect.Struct:
			if f := item.FieldByName("ProgramCounter"); f.IsValid() && f.Kind() == reflect.Uintptr {
				pcs = append(pcs, uintptr(f.Uint()))
			}
		}
	}
	return pcs
}
