package events

// Subscriber consumes the event stream. The SSE broadcaster and the
// WebSocket hub are the run server's subscribers.
type Subscriber interface {
	// Send delivers an event. It must not block on slow clients.
	Send(Event) error

	// Close disconnects every client of the subscriber.
	Close() error
}
