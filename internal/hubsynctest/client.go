// Package hubsynctest provides a programmable hubsync.Client for command tests.
package hubsynctest

import (
	"context"
	gosync "sync"

	"github.com/agentstation/hubsync"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/record"
	"github.com/agentstation/hubsync/pkg/sync"
	"github.com/agentstation/hubsync/pkg/tenant"
)

// Client records calls and answers with the configured functions. Nil
// functions answer with empty results.
type Client struct {
	SyncFunc    func(ctx context.Context, organization string, opts *sync.Options) (*sync.Result, error)
	SyncAllFunc func(ctx context.Context, opts *sync.Options) ([]*sync.Result, error)
	IngestFunc  func(ctx context.Context, organization, entity string, records []record.Record) (*sync.EntityResult, error)
	Orgs        []*tenant.Organization

	mu       gosync.Mutex
	autoSync bool
	calls    []string
}

var _ hubsync.Client = (*Client)(nil)

// Sync implements hubsync.Syncer.
func (c *Client) Sync(ctx context.Context, organization string, opts ...sync.Option) (*sync.Result, error) {
	c.record("sync " + organization)
	if c.SyncFunc != nil {
		return c.SyncFunc(ctx, organization, sync.Defaults().Apply(opts...))
	}
	return &sync.Result{Organization: organization}, nil
}

// SyncAll implements hubsync.Syncer.
func (c *Client) SyncAll(ctx context.Context, opts ...sync.Option) ([]*sync.Result, error) {
	c.record("sync-all")
	if c.SyncAllFunc != nil {
		return c.SyncAllFunc(ctx, sync.Defaults().Apply(opts...))
	}
	return nil, nil
}

// Ingest implements hubsync.Syncer.
func (c *Client) Ingest(ctx context.Context, organization, entity string, records []record.Record, _ ...sync.Option) (*sync.EntityResult, error) {
	c.record("ingest " + organization + " " + entity)
	if c.IngestFunc != nil {
		return c.IngestFunc(ctx, organization, entity, records)
	}
	return &sync.EntityResult{Entity: entity}, nil
}

// AutoSyncOn implements hubsync.AutoSyncer.
func (c *Client) AutoSyncOn() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoSync {
		return errors.NewValidationError("auto-sync", true, "already running")
	}
	c.autoSync = true
	c.calls = append(c.calls, "auto-sync on")
	return nil
}

// AutoSyncOff implements hubsync.AutoSyncer.
func (c *Client) AutoSyncOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoSync {
		c.calls = append(c.calls, "auto-sync off")
	}
	c.autoSync = false
	return nil
}

// AutoSyncing reports whether scheduled cycles are on.
func (c *Client) AutoSyncing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoSync
}

// OnSyncCompleted implements hubsync.Hooks.
func (c *Client) OnSyncCompleted(hubsync.SyncCompletedHook) {}

// OnSyncFailed implements hubsync.Hooks.
func (c *Client) OnSyncFailed(hubsync.SyncFailedHook) {}

// OnRecordFailed implements hubsync.Hooks.
func (c *Client) OnRecordFailed(hubsync.RecordFailedHook) {}

// Organizations implements hubsync.Client.
func (c *Client) Organizations() []*tenant.Organization {
	return c.Orgs
}

// Calls lists the calls received so far.
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *Client) record(call string) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}
