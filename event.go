package poitrace

import "time"

// EventKind discriminates the six observation kinds spec.md §3 defines.
// It is always part of the canonicalized payload (canonical.go via
// ToCanonicalMap) so that two events of different kinds with otherwise
// identical bodies can never share a hash — grounded on the teacher's
// Event/Exception/Thread sum-of-optional-fields shape in interfaces.go,
// made explicit with a discriminator field since the spec calls for a
// closed six-way tagged variant rather than an open bag of fields.
type EventKind string

const (
	EventKindCommand     EventKind = "command"
	EventKindOutput      EventKind = "output"
	EventKindDecision    EventKind = "decision"
	EventKindObservation EventKind = "observation"
	EventKindError       EventKind = "error"
	EventKindCustom      EventKind = "custom"
)

// Visibility is the disclosure level attached to every event and span.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilitySecret  Visibility = "secret"
)

// defaultVisibility returns the default visibility for a kind per
// spec.md §3: command/observation default to public, everything else
// (output, decision, error, custom) defaults to private.
func defaultVisibility(kind EventKind) Visibility {
	switch kind {
	case EventKindCommand, EventKindObservation:
		return VisibilityPublic
	default:
		return VisibilityPrivate
	}
}

// OutputStream identifies which stream an output event captured.
type OutputStream string

const (
	StreamStdout   OutputStream = "stdout"
	StreamStderr   OutputStream = "stderr"
	StreamCombined OutputStream = "combined"
)

// CommandPayload is the kind-specific body of a "command" event.
type CommandPayload struct {
	Command  string            `json:"command"`
	Args     []string          `json:"args,omitempty"`
	Cwd      string            `json:"cwd,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
	ExitCode *int              `json:"exitCode,omitempty"`
}

// OutputPayload is the kind-specific body of an "output" event.
type OutputPayload struct {
	Stream         OutputStream `json:"stream"`
	Content        string       `json:"content"`
	Truncated      bool         `json:"truncated,omitempty"`
	TruncatedBytes *int64       `json:"truncatedBytes,omitempty"`
}

// DecisionPayload is the kind-specific body of a "decision" event.
//
// Confidence is expressed as an integer percentage (0-100) rather than a
// fractional score: spec.md §9 directs the canonicalizer to reject
// non-integer numerics in hashed payloads absent an explicit decimal
// encoding, and a 0-100 integer scale is precise enough for the confidence
// use case while keeping every hashed field an integer.
type DecisionPayload struct {
	Decision     string   `json:"decision"`
	Reasoning    string   `json:"reasoning,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
	Confidence   *int     `json:"confidence,omitempty"`
}

// ObservationPayload is the kind-specific body of an "observation" event.
type ObservationPayload struct {
	Observation string         `json:"observation"`
	Category    string         `json:"category,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// ErrorPayload is the kind-specific body of an "error" event.
type ErrorPayload struct {
	Message     string      `json:"message"`
	Code        string      `json:"code,omitempty"`
	Stack       *Stacktrace `json:"stack,omitempty"`
	Recoverable *bool       `json:"recoverable,omitempty"`
}

// CustomPayload is the kind-specific body of a "custom" event.
type CustomPayload struct {
	EventType string         `json:"eventType"`
	Data      map[string]any `json:"data,omitempty"`
}

// Event is a single observation recorded against a run. Exactly one of
// the kind-specific payload fields is populated, matching Kind.
type Event struct {
	ID         EventID    `json:"id"`
	Seq        int        `json:"seq"`
	SpanID     SpanID     `json:"spanId"`
	Timestamp  time.Time  `json:"timestamp"`
	Visibility Visibility `json:"visibility"`
	Kind       EventKind  `json:"kind"`

	Command     *CommandPayload     `json:"command,omitempty"`
	Output      *OutputPayload      `json:"output,omitempty"`
	Decision    *DecisionPayload    `json:"decision,omitempty"`
	Observation *ObservationPayload `json:"observation,omitempty"`
	Error       *ErrorPayload       `json:"error,omitempty"`
	Custom      *CustomPayload      `json:"custom,omitempty"`

	EventHash string `json:"eventHash"`
}

// header returns a shallow copy of e with EventHash cleared and Timestamp
// trimmed to millisecond precision, which is the exact input eventHash is
// derived from: "eventHash = H(domain_event | canon(event without hash))"
// (spec.md §4.5). Visibility is included deliberately — see spec.md §9 on
// why post-hoc relabeling must change the hash. Timestamps
// are trimmed to milliseconds per SPEC_FULL.md's canonical-encoding rule,
// so two implementations fed the same wall-clock instant at different
// sub-millisecond resolutions still agree on eventHash.
func (e Event) header() Event {
	e.EventHash = ""
	e.Timestamp = e.Timestamp.Truncate(time.Millisecond)
	return e
}

// computeHash derives and returns eventHash for e without mutating e.
func (e Event) computeHash() (string, error) {
	m, err := ToCanonicalMap(e.header())
	if err != nil {
		return "", err
	}
	canon, err := Canonicalize(m, CanonicalOptions{})
	if err != nil {
		return "", err
	}
	return hashBytes([]byte(domainEvent + string(canon))), nil
}

// EventInput is what callers pass to TraceBuilder.AddEvent: everything
// about an event except the fields the builder itself assigns (id, seq,
// timestamp, hash).
type EventInput struct {
	Kind       EventKind
	Visibility Visibility // zero value means "use the kind's default"

	Command     *CommandPayload
	Output      *OutputPayload
	Decision    *DecisionPayload
	Observation *ObservationPayload
	Error       *ErrorPayload
	Custom      *CustomPayload
}

func (in EventInput) validate() error {
	populated := 0
	for _, set := range []bool{in.Command != nil, in.Output != nil, in.Decision != nil, in.Observation != nil, in.Error != nil, in.Custom != nil} {
		if set {
			populated++
		}
	}
	if populated > 1 {
		return errInvalidArgument("event carries %d payloads, only the one matching its kind is allowed", populated)
	}
	switch in.Kind {
	case EventKindCommand:
		if in.Command == nil || in.Command.Command == "" {
			return errInvalidArgument("command event requires a non-empty Command payload")
		}
	case EventKindOutput:
		if in.Output == nil {
			return errInvalidArgument("output event requires an Output payload")
		}
		switch in.Output.Stream {
		case StreamStdout, StreamStderr, StreamCombined:
		default:
			return errInvalidArgument("output event has invalid stream %q", in.Output.Stream)
		}
	case EventKindDecision:
		if in.Decision == nil || in.Decision.Decision == "" {
			return errInvalidArgument("decision event requires a non-empty Decision payload")
		}
	case EventKindObservation:
		if in.Observation == nil || in.Observation.Observation == "" {
			return errInvalidArgument("observation event requires a non-empty Observation payload")
		}
	case EventKindError:
		if in.Error == nil || in.Error.Message == "" {
			return errInvalidArgument("error event requires a non-empty Error payload")
		}
	case EventKindCustom:
		if in.Custom == nil || in.Custom.EventType == "" {
			return errInvalidArgument("custom event requires a non-empty EventType")
		}
	default:
		return errInvalidArgument("invalid event kind %q", in.Kind)
	}
	return nil
}
