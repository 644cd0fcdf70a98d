package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Payload is a decoded JSON object of unknown shape: user input, a stored
// record written by an older build, or a row from a bulk import file.
//
// Construction and read-time adapters in this package pull typed values out
// of a Payload through the accessors below. None of them fail: anything that
// does not have the expected shape reads as the zero value.
type Payload map[string]any

// DecodePayload unmarshals a JSON object. A JSON null decodes to an empty Payload.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p == nil {
		p = Payload{}
	}
	return p, nil
}

// Has reports whether key is present with a non-null value.
func (p Payload) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String returns the value at key as a string. Numbers are formatted without
// exponent so legacy numeric fields like altitude survive the trip.
func (p Payload) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// FirstString returns the first non-empty string among keys.
func (p Payload) FirstString(keys ...string) string {
	for _, k := range keys {
		if s := p.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Number returns ParseNumber of the value at key.
func (p Payload) Number(key string) *float64 {
	return ParseNumber(p[key])
}

// Bool is true only for a JSON true.
func (p Payload) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Object returns the nested object at key, or an empty Payload.
func (p Payload) Object(key string) Payload {
	switch v := p[key].(type) {
	case map[string]any:
		return Payload(v)
	case Payload:
		return v
	}
	return Payload{}
}

// Strings returns the string elements of the array at key, skipping
// anything that is not a string. The result is never nil.
func (p Payload) Strings(key string) []string {
	out := []string{}
	switch v := p[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, v...)
	}
	return out
}

// Time reads a timestamp from key. Accepted forms: time.Time, RFC 3339
// strings, Unix milliseconds, and the extended JSON wrapper {"$date": ...}.
func (p Payload) Time(key string) (time.Time, bool) {
	return ParseTime(p[key])
}

// ParseTime is the value-level form of Payload.Time.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(t)), true
	case map[string]any:
		return ParseTime(t["$date"])
	case Payload:
		return ParseTime(t["$date"])
	}
	return time.Time{}, false
}

// ParseNumber coerces a numeric-like value. Finite numbers and numeric
// strings yield a value; empty strings, NaN, infinities and every other type
// yield nil. Zero is a value, not absence.
func ParseNumber(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Float returns a pointer to f. Handy for literals in tests and callers.
func Float(f float64) *float64 {
	return &f
}

func valueOr(f *float64, fallback float64) float64 {
	if f == nil {
		return fallback
	}
	return *f
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
