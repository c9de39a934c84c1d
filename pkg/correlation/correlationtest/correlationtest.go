// Package correlationtest holds a behavioural test suite shared by every
// correlation.Store and correlation.History implementation.
package correlationtest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/errors"
)

// Backend is a store under test.
type Backend interface {
	correlation.Store
	correlation.History
}

// Run exercises the backend returned by newBackend. Each subtest receives a
// fresh backend.
func Run(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Helper()

	base := correlation.Key{OrganizationID: "org-1", HubEntity: "contacts", ExternalEntity: "customer"}

	t.Run("FindOrCreateDefaults", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		c, err := b.FindOrCreate(ctx, base.WithHubID("h-1"))
		require.NoError(t, err)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "h-1", c.HubID)
		assert.Empty(t, c.ExternalID)
		assert.True(t, c.ToHub)
		assert.True(t, c.ToExternal)
		assert.False(t, c.ExternalInactive)
		assert.Nil(t, c.LastPushToHub)
		assert.Nil(t, c.LastPushToExternal)

		again, err := b.FindOrCreate(ctx, base.WithHubID("h-1"))
		require.NoError(t, err)
		assert.Equal(t, c.ID, again.ID)
	})

	t.Run("FindByEitherID", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		c, err := b.Create(ctx, correlation.Key{
			OrganizationID: base.OrganizationID,
			HubEntity:      base.HubEntity,
			ExternalEntity: base.ExternalEntity,
			HubID:          "h-1",
			ExternalID:     "e-1",
		})
		require.NoError(t, err)

		byHub, err := b.Find(ctx, base.WithHubID("h-1"))
		require.NoError(t, err)
		assert.Equal(t, c.ID, byHub.ID)

		byExt, err := b.Find(ctx, base.WithExternalID("e-1"))
		require.NoError(t, err)
		assert.Equal(t, c.ID, byExt.ID)

		_, err = b.Find(ctx, base.WithExternalID("e-2"))
		assert.True(t, errors.IsNotFound(err))

		other := base
		other.OrganizationID = "org-2"
		_, err = b.Find(ctx, other.WithHubID("h-1"))
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("CreateAlwaysInserts", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		first, err := b.Create(ctx, base)
		require.NoError(t, err)
		second, err := b.Create(ctx, base)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		all, err := b.List(ctx, base.OrganizationID, correlation.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("UpdatePersists", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		c, err := b.FindOrCreate(ctx, base.WithExternalID("e-1"))
		require.NoError(t, err)

		pushed := utc.New(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
		require.NoError(t, b.Update(ctx, c, correlation.Fields{
			HubID:            correlation.String("h-9"),
			Name:             correlation.String("Acme"),
			LastPushToHub:    &pushed,
			ExternalInactive: correlation.Bool(true),
			ToExternal:       correlation.Bool(false),
		}))
		assert.Equal(t, "h-9", c.HubID)

		got, err := b.Find(ctx, base.WithHubID("h-9"))
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
		assert.Equal(t, "Acme", got.Name)
		assert.Equal(t, "e-1", got.ExternalID)
		require.NotNil(t, got.LastPushToHub)
		assert.True(t, got.LastPushToHub.Time.Equal(pushed.Time))
		assert.Nil(t, got.LastPushToExternal)
		assert.True(t, got.ExternalInactive)
		assert.False(t, got.ToExternal)
		assert.True(t, got.ToHub)
	})

	t.Run("MessageTruncatedAndCleared", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		c, err := b.FindOrCreate(ctx, base.WithHubID("h-1"))
		require.NoError(t, err)

		require.NoError(t, b.Update(ctx, c, correlation.Failed(strings.Repeat("x", 400))))
		got, err := b.Find(ctx, base.WithHubID("h-1"))
		require.NoError(t, err)
		assert.Len(t, got.Message, 255)

		failed, err := b.List(ctx, base.OrganizationID, correlation.Filter{Failed: true})
		require.NoError(t, err)
		assert.Len(t, failed, 1)

		require.NoError(t, b.Update(ctx, c, correlation.PushedToHub(utc.Now())))
		got, err = b.Find(ctx, base.WithHubID("h-1"))
		require.NoError(t, err)
		assert.Empty(t, got.Message)
		assert.NotNil(t, got.LastPushToHub)
	})

	t.Run("ListFilters", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		for _, id := range []string{"h-1", "h-2", "h-3"} {
			_, err := b.FindOrCreate(ctx, base.WithHubID(id))
			require.NoError(t, err)
		}
		invoices := correlation.Key{OrganizationID: "org-1", HubEntity: "invoices", ExternalEntity: "bill"}
		_, err := b.FindOrCreate(ctx, invoices.WithHubID("i-1"))
		require.NoError(t, err)

		all, err := b.List(ctx, "org-1", correlation.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 4)

		contacts, err := b.List(ctx, "org-1", correlation.Filter{HubEntity: "contacts"})
		require.NoError(t, err)
		require.Len(t, contacts, 3)
		assert.Equal(t, "h-1", contacts[0].HubID)

		limited, err := b.List(ctx, "org-1", correlation.Filter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		none, err := b.List(ctx, "org-2", correlation.Filter{})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("History", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		_, err := b.LastSuccess(ctx, "org-1")
		assert.True(t, errors.IsNotFound(err))

		first, err := b.Start(ctx, "org-1")
		require.NoError(t, err)
		assert.Equal(t, correlation.StatusRunning, first.Status)
		require.NoError(t, b.Finish(ctx, first, correlation.StatusSuccess, ""))
		assert.Equal(t, correlation.StatusSuccess, first.Status)
		assert.NotNil(t, first.FinishedAt)

		second, err := b.Start(ctx, "org-1")
		require.NoError(t, err)
		require.NoError(t, b.Finish(ctx, second, correlation.StatusError, "boom"))

		last, err := b.LastSuccess(ctx, "org-1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, last.ID)

		recent, err := b.Recent(ctx, "org-1", 10)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, second.ID, recent[0].ID)
		assert.Equal(t, "boom", recent[0].Message)
	})
}
