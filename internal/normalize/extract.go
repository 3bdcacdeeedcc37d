// Package normalize maps loosely structured webhook payloads onto the
// canonical engagement and visit records.
//
// Every canonical field is resolved from a priority-ordered list of gjson
// path expressions (see Candidates) evaluated by one generic resolver, so
// supporting a new provider shape is a one-line edit to a path list.
package normalize

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"

	"github.com/tidwall/gjson"
)

// Payload is an inbound webhook body known to be a JSON object.
type Payload struct {
	raw []byte
}

// ParsePayload validates body and wraps it for extraction.
func ParsePayload(body []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Payload{}, &domain.ErrMalformedPayload{Reason: "empty body"}
	}
	if !gjson.ValidBytes(trimmed) {
		return Payload{}, &domain.ErrMalformedPayload{Reason: "body is not valid JSON"}
	}
	if !gjson.ParseBytes(trimmed).IsObject() {
		return Payload{}, &domain.ErrMalformedPayload{Reason: "top-level JSON value must be an object"}
	}
	return Payload{raw: trimmed}, nil
}

// Raw returns the payload bytes as received (surrounding whitespace trimmed).
func (p Payload) Raw() []byte {
	return p.raw
}

// Get resolves a single path. Missing intermediate objects yield a
// non-existent result, never a panic.
func (p Payload) Get(path string) gjson.Result {
	if len(p.raw) == 0 {
		return gjson.Result{}
	}
	return gjson.GetBytes(p.raw, path)
}

// First returns the first candidate path whose value is present. Absent
// covers an unresolved path, JSON null and the empty string; false and 0
// are present values.
func (p Payload) First(paths ...string) (gjson.Result, bool) {
	for _, path := range paths {
		if r := p.Get(path); present(r) {
			return r, true
		}
	}
	return gjson.Result{}, false
}

// FirstString is First coerced to a string. Objects and arrays come back as
// their raw JSON text.
func (p Payload) FirstString(paths ...string) (string, bool) {
	r, ok := p.First(paths...)
	if !ok {
		return "", false
	}
	return r.String(), true
}

// FirstBool returns the first candidate that is present and reads as a
// boolean: JSON true/false, numbers (non-zero is true) or strings such as
// "true", "0" or "sim". Values that are present but not boolean-like are
// skipped.
func (p Payload) FirstBool(paths ...string) (bool, bool) {
	for _, path := range paths {
		r := p.Get(path)
		if !present(r) {
			continue
		}
		if b, ok := toBool(r); ok {
			return b, true
		}
	}
	return false, false
}

// FirstInt returns the first candidate that is present and numeric, either
// as a JSON number or a numeric string. Fractions are truncated.
func (p Payload) FirstInt(paths ...string) (int64, bool) {
	for _, path := range paths {
		r := p.Get(path)
		if !present(r) {
			continue
		}
		switch r.Type {
		case gjson.Number:
			return int64(r.Num), true
		case gjson.String:
			if f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64); err == nil {
				return int64(f), true
			}
		}
	}
	return 0, false
}

// FirstTime returns the first candidate that parses as a timestamp.
func (p Payload) FirstTime(paths ...string) (time.Time, bool) {
	for _, path := range paths {
		r := p.Get(path)
		if !present(r) {
			continue
		}
		if t, ok := parseTime(r); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func present(r gjson.Result) bool {
	if !r.Exists() {
		return false
	}
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.String:
		return r.Str != ""
	}
	return true
}

func toBool(r gjson.Result) (bool, bool) {
	switch r.Type {
	case gjson.True:
		return true, true
	case gjson.False:
		return false, true
	case gjson.Number:
		return r.Num != 0, true
	case gjson.String:
		switch strings.ToLower(strings.TrimSpace(r.Str)) {
		case "true", "1", "yes", "sim", "y", "s":
			return true, true
		case "false", "0", "no", "nao", "não", "n":
			return false, true
		}
	}
	return false, false
}
