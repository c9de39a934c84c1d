// Package events fans synchronization events out to the live transports
// of the run server (WebSocket, SSE).
//
// The client hooks and the ingest handler publish to a Broker; each
// transport is a Subscriber.
package events

import "time"

// EventType represents the type of a stream event.
type EventType string

// Event types published on the stream.
const (
	// Cycle outcomes (from client hooks).
	SyncCompleted EventType = "sync.completed"
	SyncFailed    EventType = "sync.failed"

	// Record failures (from client hooks).
	RecordFailed EventType = "record.failed"

	// Webhook deliveries (from the ingest handler).
	RecordsIngested EventType = "records.ingested"

	// Client events (from transport layers).
	ClientConnected EventType = "client.connected"
)

// Event represents a stream event with type, timestamp, and data.
// Organization is empty for events not tied to one organization.
type Event struct {
	Type         EventType `json:"type"`
	Organization string    `json:"organization,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Data         any       `json:"data"`
}

// For reports whether a client following organization receives e. An empty
// organization follows every event.
func (e Event) For(organization string) bool {
	return organization == "" || e.Organization == "" || e.Organization == organization
}
