package application

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/agentstation/hubsync"
	"github.com/agentstation/hubsync/pkg/errors"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
type Mock struct {
	ClientFunc    func() (hubsync.Client, error)
	StoreFunc     func() (Store, error)
	RegistryValue *prometheus.Registry
	LoggerValue   *zerolog.Logger
	Format        string
	Interval      time.Duration
	Addr          string
	Key           string
	VersionValue  string
}

// Client returns a client using the mock function or an error.
func (m *Mock) Client() (hubsync.Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc()
	}
	return nil, errors.NewConfigError("client", "not configured", errors.ErrNotFound)
}

// Store returns a store using the mock function or an error.
func (m *Mock) Store() (Store, error) {
	if m.StoreFunc != nil {
		return m.StoreFunc()
	}
	return nil, errors.NewConfigError("store", "not configured", errors.ErrNotFound)
}

// Registry returns the configured registry or a fresh one.
func (m *Mock) Registry() *prometheus.Registry {
	if m.RegistryValue == nil {
		m.RegistryValue = prometheus.NewRegistry()
	}
	return m.RegistryValue
}

// Logger returns the configured logger or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerValue != nil {
		return m.LoggerValue
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the configured format or "json".
func (m *Mock) OutputFormat() string {
	if m.Format != "" {
		return m.Format
	}
	return "json"
}

// SyncInterval returns the configured interval.
func (m *Mock) SyncInterval() time.Duration {
	return m.Interval
}

// ListenAddr returns the configured address.
func (m *Mock) ListenAddr() string {
	return m.Addr
}

// APIKey returns the configured key.
func (m *Mock) APIKey() string {
	return m.Key
}

// Version returns the configured version or "test".
func (m *Mock) Version() string {
	if m.VersionValue != "" {
		return m.VersionValue
	}
	return "test"
}

// Commit returns "test".
func (m *Mock) Commit() string { return "test" }

// Date returns "test".
func (m *Mock) Date() string { return "test" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// Ensure Mock implements Application at compile time.
var _ Application = (*Mock)(nil)
