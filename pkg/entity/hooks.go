package entity

import (
	"context"
	"slices"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/hubsync/pkg/constants"
	"github.com/agentstation/hubsync/pkg/record"
)

// Hooks are the per entity type strategies the reconciler consults. Nil
// hooks fall back to the defaults described on each field.
type Hooks struct {
	// ExternalID derives the External id of a record. Default: field "id".
	ExternalID func(r record.Record) string
	// ExternalUpdatedAt extracts the External last update time.
	// Default: field "updated_at".
	ExternalUpdatedAt func(r record.Record) (utc.Time, bool)
	// HubName labels a Hub record. Default: field "name".
	HubName func(r record.Record) string
	// ExternalName labels an External record. Default: field "name".
	ExternalName func(r record.Record) string
	// ExternalInactive flags records deleted or archived in External.
	// Default: never inactive.
	ExternalInactive func(r record.Record) bool
	// FilterHub emulates the Hub query filter for records delivered by a
	// webhook instead of a fetch. Default: identity.
	FilterHub func(records []record.Record) []record.Record
	// BeforeSync runs before anything is fetched. Default: no-op.
	BeforeSync func(ctx context.Context, lastSync *utc.Time) error
	// AfterSync runs once both pushes completed. Default: no-op.
	AfterSync func(ctx context.Context, lastSync *utc.Time) error
}

// WithDefaults returns h with every nil hook replaced by its default.
func (h Hooks) WithDefaults() Hooks {
	if h.ExternalID == nil {
		h.ExternalID = func(r record.Record) string { return r.String("id") }
	}
	if h.ExternalUpdatedAt == nil {
		h.ExternalUpdatedAt = func(r record.Record) (utc.Time, bool) { return r.Time(constants.UpdatedAtField) }
	}
	if h.HubName == nil {
		h.HubName = func(r record.Record) string { return r.String("name") }
	}
	if h.ExternalName == nil {
		h.ExternalName = func(r record.Record) string { return r.String("name") }
	}
	if h.ExternalInactive == nil {
		h.ExternalInactive = func(record.Record) bool { return false }
	}
	if h.FilterHub == nil {
		h.FilterHub = func(records []record.Record) []record.Record { return records }
	}
	if h.BeforeSync == nil {
		h.BeforeSync = func(context.Context, *utc.Time) error { return nil }
	}
	if h.AfterSync == nil {
		h.AfterSync = func(context.Context, *utc.Time) error { return nil }
	}
	return h
}

// Fields names the record fields hooks read when an entity type is declared
// in configuration rather than code.
type Fields struct {
	ExternalID        string   `yaml:"external_id,omitempty"`
	ExternalUpdatedAt string   `yaml:"external_updated_at,omitempty"`
	HubName           string   `yaml:"hub_name,omitempty"`
	ExternalName      string   `yaml:"external_name,omitempty"`
	ExternalInactive  string   `yaml:"external_inactive,omitempty"`
	InactiveValues    []string `yaml:"inactive_values,omitempty"`
}

// Hooks builds field-reading hooks. Empty field names keep the defaults.
// A record is inactive when its inactive field holds true or one of the
// inactive values (compared case-insensitively).
func (f Fields) Hooks() Hooks {
	var h Hooks
	if f.ExternalID != "" {
		h.ExternalID = func(r record.Record) string { return fieldString(r, f.ExternalID) }
	}
	if f.ExternalUpdatedAt != "" {
		h.ExternalUpdatedAt = func(r record.Record) (utc.Time, bool) {
			v, _ := r.Get(f.ExternalUpdatedAt)
			return record.ParseTime(v)
		}
	}
	if f.HubName != "" {
		h.HubName = nameHook(f.HubName)
	}
	if f.ExternalName != "" {
		h.ExternalName = nameHook(f.ExternalName)
	}
	if f.ExternalInactive != "" {
		values := make([]string, len(f.InactiveValues))
		for i, v := range f.InactiveValues {
			values[i] = strings.ToLower(v)
		}
		h.ExternalInactive = func(r record.Record) bool {
			v, ok := r.Get(f.ExternalInactive)
			if !ok {
				return false
			}
			if b, ok := v.(bool); ok {
				return b
			}
			return slices.Contains(values, strings.ToLower(record.Stringify(v)))
		}
	}
	return h
}

// nameHook joins several space separated field paths, e.g. "first_name last_name".
func nameHook(spec string) func(record.Record) string {
	paths := strings.Fields(spec)
	return func(r record.Record) string {
		var parts []string
		for _, p := range paths {
			if s := fieldString(r, p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
}

func fieldString(r record.Record, path string) string {
	v, ok := r.Get(path)
	if !ok {
		return ""
	}
	return record.Stringify(v)
}
