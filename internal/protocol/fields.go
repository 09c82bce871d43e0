package protocol

import (
	"encoding/json"
	"strconv"
)

// Fields is a decoded tagged-object frame (or any backend JSON body).
// Every accessor degrades to a documented default instead of failing:
// the backend's framing is intentionally loose and a missing or oddly
// typed field must never reject the whole frame.
type Fields map[string]any

// ParseJSON decodes a tagged-object frame. ok is false only when the
// bytes are not a JSON object at all.
func ParseJSON(data []byte) (Fields, bool) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return Fields(m), true
}

func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Str returns the string value for key, or "" when missing or not a string.
func (f Fields) Str(key string) string {
	return f.StrOr(key, "")
}

func (f Fields) StrOr(key, def string) string {
	if v, ok := f[key].(string); ok {
		return v
	}
	return def
}

// Int returns the integer value for key, or -1 when missing. Numbers
// arrive as float64 from encoding/json; numeric strings are accepted
// because the backend sometimes quotes ids.
func (f Fields) Int(key string) int {
	return f.IntOr(key, -1)
}

func (f Fields) IntOr(key string, def int) int {
	switch v := f[key].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}

// Bool returns the boolean value for key, or false when missing. The
// backend emits "1"/"true" strings in a few places.
func (f Fields) Bool(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	case float64:
		return v != 0
	}
	return false
}

// Child returns the nested object at key. A missing or non-object value
// yields an empty Fields so chained reads fall through to defaults.
func (f Fields) Child(key string) Fields {
	if v, ok := f[key].(map[string]any); ok {
		return Fields(v)
	}
	return Fields{}
}

// List returns the array of objects at key; non-object elements are skipped.
func (f Fields) List(key string) []Fields {
	raw, ok := f[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Fields, 0, len(raw))
	for _, el := range raw {
		if m, ok := el.(map[string]any); ok {
			out = append(out, Fields(m))
		}
	}
	return out
}
