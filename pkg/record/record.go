// Package record holds the open field mapping exchanged with both systems.
package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/hubsync/pkg/constants"
)

// Record is one business object in either system's native shape.
type Record map[string]any

// Clone returns a deep copy of the record. Nested maps and slices are copied
// so that mapping one side never mutates the other side's data.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep copies a decoded JSON value.
func CloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return map[string]any(Record(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, item := range t {
			out[i] = map[string]any(Record(item).Clone())
		}
		return out
	default:
		return v
	}
}

// String returns the field as a string. Numbers are formatted without
// exponent so numeric ids survive the conversion.
func (r Record) String(key string) string {
	return Stringify(r[key])
}

// Stringify formats a decoded JSON value as a string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Has reports whether the field is present and non-empty.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// Time parses the field as a timestamp.
func (r Record) Time(key string) (utc.Time, bool) {
	return ParseTime(r[key])
}

// UpdatedAt returns the Hub-style updated_at timestamp.
func (r Record) UpdatedAt() (utc.Time, bool) {
	return r.Time(constants.UpdatedAtField)
}

// HubID returns the Hub identity carried through a mapping round trip.
func (r Record) HubID() string {
	return r.String(constants.HubIDField)
}

// WithHubID returns a copy carrying the given Hub identity.
// An empty id leaves the record unchanged.
func (r Record) WithHubID(id string) Record {
	if id == "" {
		return r
	}
	out := r.Clone()
	if out == nil {
		out = Record{}
	}
	out[constants.HubIDField] = id
	return out
}

// WithoutHubID returns a copy without the carried Hub identity, and the
// identity that was removed.
func (r Record) WithoutHubID() (Record, string) {
	id := r.HubID()
	if _, ok := r[constants.HubIDField]; !ok {
		return r, id
	}
	out := r.Clone()
	delete(out, constants.HubIDField)
	return out, id
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime converts a decoded JSON value into a UTC timestamp. Strings in the
// common ISO 8601 layouts, time values and unix seconds are accepted.
func ParseTime(v any) (utc.Time, bool) {
	switch t := v.(type) {
	case utc.Time:
		return t, !t.IsZero()
	case *utc.Time:
		if t == nil {
			return utc.Time{}, false
		}
		return *t, !t.IsZero()
	case time.Time:
		return utc.New(t), !t.IsZero()
	case float64:
		return utc.New(time.Unix(int64(t), 0)), true
	case int64:
		return utc.New(time.Unix(t, 0)), true
	case int:
		return utc.New(time.Unix(int64(t), 0)), true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return utc.Time{}, false
		}
		return utc.New(time.Unix(n, 0)), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return utc.Time{}, false
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return utc.New(parsed), true
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return utc.New(time.Unix(n, 0)), true
		}
	}
	return utc.Time{}, false
}
