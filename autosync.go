package hubsync

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/logging"
)

// Compile-time interface check to ensure proper implementation.
var _ AutoSyncer = (*client)(nil)

// AutoSyncer provides controls for scheduled sync cycles.
type AutoSyncer interface {
	// AutoSyncOn begins scheduled cycles
	AutoSyncOn() error

	// AutoSyncOff stops scheduled cycles
	AutoSyncOff() error
}

// AutoSyncOn begins scheduled cycles of every organization.
func (c *client) AutoSyncOn() error {
	if c.options.autoSyncInterval <= 0 {
		return &errors.ValidationError{
			Field:   "autoSyncInterval",
			Value:   c.options.autoSyncInterval,
			Message: "sync interval must be positive",
		}
	}

	// Stop any existing schedule to prevent resource leaks
	if err := c.AutoSyncOff(); err != nil {
		return err
	}

	// Recreate stopCh since it was closed in AutoSyncOff
	c.stopCh = make(chan struct{})

	c.updateTicker = time.NewTicker(c.options.autoSyncInterval)

	// Create a cancellable context for the scheduling goroutine
	ctx, cancel := context.WithCancel(context.Background())
	c.updateCancel = cancel

	go func(parentCtx context.Context, ticker *time.Ticker, stopCh chan struct{}) {
		for {
			select {
			case <-ticker.C:
				// Each organization cycle is bounded by the sync timeout
				_, err := c.SyncAll(parentCtx)
				if err != nil {
					// Check if context was canceled - if so, exit the loop
					if stderrors.Is(err, context.Canceled) && parentCtx.Err() != nil {
						return
					}
					// Log other errors but continue
					logging.Error().Err(err).Msg("Scheduled sync failed")
				}
			case <-parentCtx.Done():
				return
			case <-stopCh:
				return
			}
		}
	}(ctx, c.updateTicker, c.stopCh)

	return nil
}

// AutoSyncOff stops scheduled cycles. A running cycle is canceled.
func (c *client) AutoSyncOff() error {
	if c.updateTicker != nil {
		c.updateTicker.Stop()
		c.updateTicker = nil
	}
	if c.updateCancel != nil {
		c.updateCancel()
		c.updateCancel = nil
	}
	select {
	case <-c.stopCh:
		// Already closed
	default:
		close(c.stopCh)
	}
	return nil
}
