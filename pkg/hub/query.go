package hub

import (
	"net/url"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/hubsync/pkg/constants"
)

// Query holds the caller controls of a fetch.
type Query struct {
	// FullSync ignores the last synchronization time.
	FullSync bool
	// Filter is a Hub filter expression conjoined with the incremental
	// filter, or used alone on a full pull.
	Filter string
	// OrderBy is forwarded as $orderby.
	OrderBy string
}

// Values builds the query string parameters for a fetch.
func (q Query) Values(lastSync *utc.Time) url.Values {
	v := url.Values{}
	if q.OrderBy != "" {
		v.Set("$orderby", q.OrderBy)
	}
	if lastSync == nil || lastSync.IsZero() || q.FullSync {
		if q.Filter != "" {
			v.Set("$filter", q.Filter)
		}
		return v
	}

	filter := constants.UpdatedAtField + " gt '" + lastSync.Time.UTC().Format(time.RFC3339) + "'"
	if q.Filter != "" {
		filter += " and " + q.Filter
	}
	v.Set("$filter", filter)
	return v
}

// Incremental reports whether the query selects only records changed since
// lastSync.
func (q Query) Incremental(lastSync *utc.Time) bool {
	return lastSync != nil && !lastSync.IsZero() && !q.FullSync
}
