package hubsync

import (
	"context"
	gosync "sync"

	"github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/sync"
)

// Compile-time interface check to ensure proper implementation.
var _ Hooks = (*client)(nil)

// Hook function types for sync events
type (
	// SyncCompletedHook is called when an organization cycle finished with
	// at least one entity type synced
	SyncCompletedHook func(result *sync.Result)

	// SyncFailedHook is called when an organization cycle could not run or
	// every entity type failed
	SyncFailedHook func(organization string, err error)

	// RecordFailedHook is called for every record a push could not write
	RecordFailedHook func(event events.Event)
)

// Hooks provides event callback registration.
type Hooks interface {
	// OnSyncCompleted registers a callback for finished cycles
	OnSyncCompleted(SyncCompletedHook)

	// OnSyncFailed registers a callback for failed cycles
	OnSyncFailed(SyncFailedHook)

	// OnRecordFailed registers a callback for records that failed to push
	OnRecordFailed(RecordFailedHook)
}

// hooks manages event callbacks for sync outcomes
type hooks struct {
	mu              gosync.RWMutex
	onSyncCompleted []SyncCompletedHook
	onSyncFailed    []SyncFailedHook
	onRecordFailed  []RecordFailedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnSyncCompleted registers a callback for finished cycles.
func (c *client) OnSyncCompleted(fn SyncCompletedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onSyncCompleted = append(c.hooks.onSyncCompleted, fn)
}

// OnSyncFailed registers a callback for failed cycles.
func (c *client) OnSyncFailed(fn SyncFailedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onSyncFailed = append(c.hooks.onSyncFailed, fn)
}

// OnRecordFailed registers a callback for records that failed to push.
func (c *client) OnRecordFailed(fn RecordFailedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onRecordFailed = append(c.hooks.onRecordFailed, fn)
}

// Emit implements events.Sink so record failures reach the hooks.
func (h *hooks) Emit(_ context.Context, e events.Event) {
	if e.Stage != events.RecordFailed {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onRecordFailed {
		hook(e)
	}
}

// triggerSyncResult dispatches the outcome of one organization cycle
func (h *hooks) triggerSyncResult(organization string, result *sync.Result, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if err != nil {
		for _, hook := range h.onSyncFailed {
			hook(organization, err)
		}
		return
	}
	for _, hook := range h.onSyncCompleted {
		hook(result)
	}
}
