package correlation

import (
	"strings"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
)

func TestKeyMatches(t *testing.T) {
	c := &Correlation{OrganizationID: "o", HubEntity: "contacts", ExternalEntity: "customer", HubID: "h", ExternalID: "e"}
	base := Key{OrganizationID: "o", HubEntity: "contacts", ExternalEntity: "customer"}

	assert.True(t, base.Matches(c))
	assert.True(t, base.WithHubID("h").Matches(c))
	assert.True(t, base.WithExternalID("e").Matches(c))
	assert.False(t, base.WithHubID("x").Matches(c))

	other := base
	other.ExternalEntity = "lead"
	assert.False(t, other.Matches(c))
}

func TestFieldsApply(t *testing.T) {
	now := utc.New(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	c := New("id", Key{OrganizationID: "o"}, utc.Time{})

	Fields{}.Apply(c, now)
	assert.True(t, Fields{}.IsZero())
	assert.True(t, c.ToHub)
	assert.Equal(t, now, c.UpdatedAt)

	pushed := PushedToExternal(now)
	assert.False(t, pushed.IsZero())
	c.Message = "old error"
	pushed.Apply(c, now)
	assert.Empty(t, c.Message)
	assert.True(t, c.HasPushedToExternal())

	// the patch owns its own copy of the timestamp
	later := utc.New(now.Time.Add(time.Hour))
	*pushed.LastPushToExternal = later
	assert.True(t, c.LastPushToExternal.Time.Equal(now.Time))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short"))

	long := strings.Repeat("é", 300)
	got := Truncate(long)
	assert.Equal(t, 255, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestClone(t *testing.T) {
	at := utc.Now()
	c := &Correlation{ID: "a", LastPushToHub: &at}
	cp := c.Clone()
	cp.LastPushToHub = nil
	cp.Name = "changed"

	assert.NotNil(t, c.LastPushToHub)
	assert.Empty(t, c.Name)
	assert.Nil(t, (*Correlation)(nil).Clone())
}
