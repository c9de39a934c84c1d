package reconciler

import (
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/push"
)

// Options configures a reconciler.
type options struct {
	strategy Strategy
	sink     events.Sink
}

func defaultOptions() *options {
	return &options{
		strategy: NewLatestStrategy(),
		sink:     events.Nop,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithStrategy sets the conflict resolution strategy.
func WithStrategy(strategy Strategy) Option {
	return func(r *options) error {
		if strategy == nil {
			return &errors.ValidationError{
				Field:   "strategy",
				Message: "cannot be nil",
			}
		}
		r.strategy = strategy
		return nil
	}
}

// WithPreemption makes side win every conflict. An empty side keeps the
// configured strategy.
func WithPreemption(side push.Side) Option {
	return func(r *options) error {
		switch side {
		case "":
			return nil
		case push.Hub, push.External:
			r.strategy = NewPreemptionStrategy(side)
			return nil
		default:
			return &errors.ValidationError{
				Field:   "preemption",
				Value:   side,
				Message: "must be hub or external",
			}
		}
	}
}

// WithEventSink sets the sink receiving discard and conflict events.
func WithEventSink(sink events.Sink) Option {
	return func(r *options) error {
		if sink != nil {
			r.sink = sink
		}
		return nil
	}
}
