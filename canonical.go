package poitrace

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// CanonicalOptions tunes the Canonicalizer's behavior.
type CanonicalOptions struct {
	// RemoveNulls drops object keys whose value is nil before sorting and
	// encoding, instead of preserving them. Off by default: null values
	// are preserved, per spec.md §4.1.
	RemoveNulls bool
}

// Canonicalize encodes an arbitrary structured value (recursively built
// from map[string]any, []any, string, bool, nil, and integer/float numeric
// types) into the deterministic byte form used everywhere a value must be
// hashed. Two calls with logically equivalent values always produce
// bitwise-identical output; this is the only hashing input-preparation
// path in the package (hash.go's hashCanonical calls this exclusively).
//
// Grounded on certenIO-certen-validator's canonicalizeValue (recursive
// map-key sort, array order preserved) and Chartly2.0's canonical package
// ("sorted keys at all depths"), generalized with duplicate-key rejection
// and NaN/Inf/non-integer-numeric rejection per spec.md §4.1 and §9.
func Canonicalize(v any, opts CanonicalOptions) ([]byte, error) {
	var b strings.Builder
	if err := encodeValue(&b, v, opts); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func encodeValue(b *strings.Builder, v any, opts CanonicalOptions) error {
	switch vv := v.(type) {
	case nil:
		b.WriteString("null")
		return nil
	case bool:
		if vv {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
		return nil
	case string:
		encodeString(b, vv)
		return nil
	case int:
		b.WriteString(strconv.FormatInt(int64(vv), 10))
		return nil
	case int32:
		b.WriteString(strconv.FormatInt(int64(vv), 10))
		return nil
	case int64:
		b.WriteString(strconv.FormatInt(vv, 10))
		return nil
	case uint:
		b.WriteString(strconv.FormatUint(uint64(vv), 10))
		return nil
	case uint64:
		b.WriteString(strconv.FormatUint(vv, 10))
		return nil
	case float32:
		return encodeFloat(b, float64(vv))
	case float64:
		return encodeFloat(b, vv)
	case map[string]any:
		return encodeObject(b, vv, opts)
	case []any:
		return encodeArray(b, vv, opts)
	case []string:
		arr := make([]any, len(vv))
		for i, s := range vv {
			arr[i] = s
		}
		return encodeArray(b, arr, opts)
	default:
		return errCanonical("unsupported value of type %T", v)
	}
}

func encodeFloat(b *strings.Builder, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errCanonical("NaN/Infinity are not hashable")
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		b.WriteString(strconv.FormatInt(int64(f), 10))
		return nil
	}
	return errCanonical("non-integer numeric value %v is not allowed in hashed payloads", f)
}

func encodeObject(b *strings.Builder, m map[string]any, opts CanonicalOptions) error {
	keys := make([]string, 0, len(m))
	seen := make(map[string]struct{}, len(m))
	for k := range m {
		if _, dup := seen[k]; dup {
			return errCanonical("duplicate key %q", k)
		}
		seen[k] = struct{}{}
		if opts.RemoveNulls && m[k] == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		encodeString(b, k)
		b.WriteByte(':')
		if err := encodeValue(b, m[k], opts); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
	}
	b.WriteByte('}')
	return nil
}

func encodeArray(b *strings.Builder, arr []any, opts CanonicalOptions) error {
	b.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := encodeValue(b, elem, opts); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	b.WriteByte(']')
	return nil
}

// encodeString writes v as a JSON-compatible escaped string literal,
// UTF-8 throughout, with no non-canonical whitespace.
func encodeString(b *strings.Builder, v string) {
	b.WriteByte('"')
	for _, r := range v {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

// ToCanonicalMap converts a struct (via its JSON tags) into the
// map[string]any/[]any/scalar shape Canonicalize expects, by round-tripping
// through encoding/json. This is how every header/event/span type in this
// package feeds the canonicalizer: json.Marshal already knows how to apply
// `json:"...,omitempty"` tags and produce floats-as-numbers, and
// json.Unmarshal into `any` gives us the generic tree Canonicalize walks.
func ToCanonicalMap(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errCanonical("marshal: %v", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, errCanonical("unmarshal: %v", err)
	}
	return normalizeJSONNumbers(generic), nil
}

// normalizeJSONNumbers converts json.Unmarshal's float64 representation of
// integral numbers back into int64 so encodeFloat's integer-only policy
// does not reject legitimate counts/durations/sequence numbers that simply
// passed through encoding/json on their way here.
func normalizeJSONNumbers(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		for k, val := range vv {
			vv[k] = normalizeJSONNumbers(val)
		}
		return vv
	case []any:
		for i, val := range vv {
			vv[i] = normalizeJSONNumbers(val)
		}
		return vv
	case float64:
		if vv == math.Trunc(vv) && math.Abs(vv) < 1e15 {
			return int64(vv)
		}
		return vv
	default:
		return vv
	}
}
