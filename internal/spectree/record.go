package spectree

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is a single JSON object carried inside an array-valued property,
// e.g. one destination or one access entry.
type Record map[string]any

// Has reports whether the record carries the key at all.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// String returns the key's value as a string.
func (r Record) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns the key's value as a bool. JSON true/false only.
func (r Record) Bool(key string) (bool, bool) {
	v, ok := r[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Record returns the key's value as a nested record.
func (r Record) Record(key string) (Record, bool) {
	v, ok := r[key]
	if !ok {
		return nil, false
	}
	rec, ok := v.(Record)
	return rec, ok
}

// Records returns the key's value as a list of records.
func (r Record) Records(key string) ([]Record, bool) {
	v, ok := r[key]
	if !ok {
		return nil, false
	}
	return asRecords(v)
}

// Strings returns the key's value as a list of strings.
func (r Record) Strings(key string) ([]string, bool) {
	v, ok := r[key]
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Uint returns the key's value as an unsigned integer. Accepts JSON numbers,
// decimal strings and 0x-prefixed hex strings, which is how addresses and
// sizes appear in isolation specifications.
func (r Record) Uint(key string) (uint64, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	return AsUint(v)
}

// AsUint converts a property value to an unsigned integer using the same
// rules as Record.Uint.
func AsUint(v any) (uint64, bool) {
	switch t := v.(type) {
	case json.Number:
		u, err := strconv.ParseUint(t.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return u, true
	case string:
		s := strings.TrimSpace(t)
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s = s[2:]
			base = 16
		}
		u, err := strconv.ParseUint(s, base, 64)
		if err != nil {
			return 0, false
		}
		return u, true
	default:
		return 0, false
	}
}

// RawString renders a property value the way it appeared in the document:
// strings stay verbatim, numbers keep their textual form.
func RawString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Truthy reports whether a property value counts as "set". Flags omitted or
// carrying an empty/false/zero value are not set; anything else is.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		return t.String() != "0"
	default:
		return true
	}
}
