package hub

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/hubsync/pkg/constants"
)

// Options configures a Pusher.
type Options struct {
	// BatchSize caps the operations per batch call (default 100).
	BatchSize int
	// APIPath prefixes operation urls (default "/api/v2").
	APIPath string
	// Now stamps successful pushes (default utc.Now).
	Now func() utc.Time
}

// Option is a function that configures pusher Options.
type Option func(*Options)

// Defaults returns the default pusher options.
func Defaults() *Options {
	return &Options{
		BatchSize: constants.DefaultBatchSize,
		APIPath:   "/api/v2",
		Now:       utc.Now,
	}
}

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithBatchSize sets the number of operations per batch call. Values
// outside 1..MaxBatchSize are ignored.
func WithBatchSize(size int) Option {
	return func(o *Options) {
		if size > 0 && size <= constants.MaxBatchSize {
			o.BatchSize = size
		}
	}
}

// WithAPIPath sets the api path prefixing operation urls.
func WithAPIPath(path string) Option {
	return func(o *Options) {
		if path != "" {
			o.APIPath = path
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() utc.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}
