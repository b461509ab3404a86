// Package extractor reads typed values out of nested raw records
package extractor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Extractor handles extracting values from nested data structures
type Extractor struct {
	timeLayouts []string
}

// DefaultTimeLayouts are tried in order when a timestamp is a string
var DefaultTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// New creates a new Extractor. With no layouts, DefaultTimeLayouts are used.
func New(timeLayouts ...string) *Extractor {
	if len(timeLayouts) == 0 {
		timeLayouts = DefaultTimeLayouts
	}
	return &Extractor{timeLayouts: timeLayouts}
}

// Extract extracts a value from data using a dot path.
// Supported syntax:
//   - keys: "name", "contact.phone"
//   - index: "phones[0]"
//   - first non-nil element: "phones[*]", "phones[*].number"
//   - first element whose key equals a value: "custom_fields[code=chat_link].value"
//
// A missing key yields (nil, nil); a path that runs into the wrong type is an error.
func (e *Extractor) Extract(data any, path string) (any, error) {
	if path == "" {
		return data, nil
	}
	return e.extractParts(data, parsePath(path))
}

func (e *Extractor) extractParts(data any, parts []pathPart) (any, error) {
	current := data
	for i, part := range parts {
		value, err := lookupKey(current, part.key)
		if err != nil || value == nil {
			return nil, err
		}

		switch part.kind {
		case partIndex:
			arr, ok := toArray(value)
			if !ok {
				return nil, fmt.Errorf("expected array for index access at %q, got %T", part.key, value)
			}
			if part.index < 0 || part.index >= len(arr) {
				return nil, nil
			}
			value = arr[part.index]
		case partWildcard, partFilter:
			arr, ok := toArray(value)
			if !ok {
				return nil, fmt.Errorf("expected array at %q, got %T", part.key, value)
			}
			// The rest of the path is resolved per element; the first hit wins
			for _, elem := range arr {
				if part.kind == partFilter && !matchesFilter(elem, part.filterKey, part.filterValue) {
					continue
				}
				found, err := e.extractParts(elem, parts[i+1:])
				if err == nil && found != nil {
					return found, nil
				}
			}
			return nil, nil
		}

		current = value
	}
	return current, nil
}

// ExtractString extracts a value as a trimmed string, "" when missing
func (e *Extractor) ExtractString(data any, path string) (string, error) {
	value, err := e.Extract(data, path)
	if err != nil || value == nil {
		return "", err
	}
	return strings.TrimSpace(toString(value)), nil
}

// ExtractFloat extracts a number. Numeric strings are accepted; blank means missing.
func (e *Extractor) ExtractFloat(data any, path string) (*float64, error) {
	value, err := e.Extract(data, path)
	if err != nil || value == nil {
		return nil, err
	}

	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		f, err = v.Float64()
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		f, err = strconv.ParseFloat(s, 64)
	default:
		return nil, fmt.Errorf("cannot read %T at %q as a number", value, path)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid number at %q: %w", path, err)
	}
	return &f, nil
}

// ExtractTime extracts a timestamp from a string in one of the extractor's layouts,
// or from a number of unix milliseconds. The zero time means missing.
func (e *Extractor) ExtractTime(data any, path string) (time.Time, error) {
	value, err := e.Extract(data, path)
	if err != nil || value == nil {
		return time.Time{}, err
	}

	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case float64:
		return time.UnixMilli(int64(v)).UTC(), nil
	case int:
		return time.UnixMilli(int64(v)).UTC(), nil
	case int64:
		return time.UnixMilli(v).UTC(), nil
	case json.Number:
		ms, err := v.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp at %q: %w", path, err)
		}
		return time.UnixMilli(ms).UTC(), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range e.timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q at %q", s, path)
	default:
		return time.Time{}, fmt.Errorf("cannot read %T at %q as a timestamp", value, path)
	}
}

type partKind int

const (
	partKey partKind = iota
	partIndex
	partWildcard
	partFilter
)

// pathPart represents a parsed path segment
type pathPart struct {
	key         string
	kind        partKind
	index       int
	filterKey   string
	filterValue string
}

// parsePath parses a dot path into parts
func parsePath(path string) []pathPart {
	var parts []pathPart
	for _, seg := range splitPath(path) {
		part := pathPart{key: seg}

		open := strings.Index(seg, "[")
		if open != -1 && strings.HasSuffix(seg, "]") {
			part.key = seg[:open]
			inner := seg[open+1 : len(seg)-1]
			switch {
			case inner == "*":
				part.kind = partWildcard
			case strings.Contains(inner, "="):
				kv := strings.SplitN(inner, "=", 2)
				part.kind = partFilter
				part.filterKey, part.filterValue = kv[0], kv[1]
			default:
				if i, err := strconv.Atoi(inner); err == nil {
					part.kind = partIndex
					part.index = i
				}
			}
		}

		parts = append(parts, part)
	}
	return parts
}

// splitPath splits on dots outside brackets
func splitPath(path string) []string {
	var parts []string
	var current strings.Builder

	depth := 0
	for _, c := range path {
		switch {
		case c == '[':
			depth++
		case c == ']':
			depth--
		case c == '.' && depth == 0:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			continue
		}
		current.WriteRune(c)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func lookupKey(data any, key string) (any, error) {
	if key == "" {
		return data, nil
	}
	switch v := data.(type) {
	case map[string]any:
		return v[key], nil
	case map[string]string:
		s, ok := v[key]
		if !ok {
			return nil, nil
		}
		return s, nil
	default:
		return nil, fmt.Errorf("cannot extract key %q from type %T", key, data)
	}
}

func matchesFilter(v any, key, expected string) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	val, ok := m[key]
	return ok && toString(val) == expected
}

func toArray(v any) ([]any, bool) {
	switch arr := v.(type) {
	case []any:
		return arr, true
	case []string:
		out := make([]any, len(arr))
		for i, s := range arr {
			out[i] = s
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(arr))
		for i, m := range arr {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

// toString converts a scalar to its display form; composites are JSON encoded
func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case nil:
		return ""
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// FromJSON parses a JSON object
func FromJSON(data json.RawMessage) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
