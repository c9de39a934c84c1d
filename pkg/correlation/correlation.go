// Package correlation defines the persistent id map linking one logical
// entity's Hub identity with its External identity, and the bookkeeping the
// sync core keeps about it.
//
// A Correlation is the only mutable record of whether an entity exists on a
// side and when it was last pushed there. Correlations are created lazily by
// find-or-create on first sight of a record and are never deleted by the core.
package correlation

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/hubsync/pkg/constants"
)

// Correlation links a Hub id and an External id for one organization and
// entity type pair.
type Correlation struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	HubEntity      string `json:"hub_entity"`
	ExternalEntity string `json:"external_entity"`

	HubID      string `json:"hub_id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	Name       string `json:"name,omitempty"`

	LastPushToHub      *utc.Time `json:"last_push_to_hub,omitempty"`
	LastPushToExternal *utc.Time `json:"last_push_to_external,omitempty"`

	ExternalInactive bool `json:"external_inactive"`
	ToHub            bool `json:"to_hub"`
	ToExternal       bool `json:"to_external"`

	// Message holds the last push error, empty once a push succeeds.
	Message string `json:"message,omitempty"`

	CreatedAt utc.Time `json:"created_at"`
	UpdatedAt utc.Time `json:"updated_at"`
}

// Key addresses correlations. The organization and entity names scope the
// lookup; HubID and ExternalID narrow it when set. A key with neither id
// addresses the single correlation of a singleton entity type.
type Key struct {
	OrganizationID string
	HubEntity      string
	ExternalEntity string
	HubID          string
	ExternalID     string
}

// WithHubID returns a copy of the key narrowed to a Hub id.
func (k Key) WithHubID(id string) Key {
	k.HubID = id
	k.ExternalID = ""
	return k
}

// WithExternalID returns a copy of the key narrowed to an External id.
func (k Key) WithExternalID(id string) Key {
	k.HubID = ""
	k.ExternalID = id
	return k
}

// Matches reports whether c falls under the key.
func (k Key) Matches(c *Correlation) bool {
	if c.OrganizationID != k.OrganizationID || c.HubEntity != k.HubEntity || c.ExternalEntity != k.ExternalEntity {
		return false
	}
	if k.HubID != "" && c.HubID != k.HubID {
		return false
	}
	if k.ExternalID != "" && c.ExternalID != k.ExternalID {
		return false
	}
	return true
}

// New returns a correlation for the key with default bookkeeping.
func New(id string, k Key, now utc.Time) *Correlation {
	return &Correlation{
		ID:             id,
		OrganizationID: k.OrganizationID,
		HubEntity:      k.HubEntity,
		ExternalEntity: k.ExternalEntity,
		HubID:          k.HubID,
		ExternalID:     k.ExternalID,
		ToHub:          true,
		ToExternal:     true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a copy that shares no pointers with c.
func (c *Correlation) Clone() *Correlation {
	if c == nil {
		return nil
	}
	out := *c
	if c.LastPushToHub != nil {
		t := *c.LastPushToHub
		out.LastPushToHub = &t
	}
	if c.LastPushToExternal != nil {
		t := *c.LastPushToExternal
		out.LastPushToExternal = &t
	}
	return &out
}

// HasPushedToExternal reports whether a push to External ever succeeded.
func (c *Correlation) HasPushedToExternal() bool {
	return c.LastPushToExternal != nil
}

// Fields is a partial update. Nil fields are left untouched.
type Fields struct {
	HubID              *string
	ExternalID         *string
	Name               *string
	Message            *string
	LastPushToHub      *utc.Time
	LastPushToExternal *utc.Time
	ExternalInactive   *bool
	ToHub              *bool
	ToExternal         *bool
}

// IsZero reports whether the patch changes nothing.
func (f Fields) IsZero() bool {
	return f == Fields{}
}

// Apply writes the set fields onto c. Messages are truncated to the
// storable length.
func (f Fields) Apply(c *Correlation, now utc.Time) {
	if f.HubID != nil {
		c.HubID = *f.HubID
	}
	if f.ExternalID != nil {
		c.ExternalID = *f.ExternalID
	}
	if f.Name != nil {
		c.Name = *f.Name
	}
	if f.Message != nil {
		c.Message = Truncate(*f.Message)
	}
	if f.LastPushToHub != nil {
		t := *f.LastPushToHub
		c.LastPushToHub = &t
	}
	if f.LastPushToExternal != nil {
		t := *f.LastPushToExternal
		c.LastPushToExternal = &t
	}
	if f.ExternalInactive != nil {
		c.ExternalInactive = *f.ExternalInactive
	}
	if f.ToHub != nil {
		c.ToHub = *f.ToHub
	}
	if f.ToExternal != nil {
		c.ToExternal = *f.ToExternal
	}
	c.UpdatedAt = now
}

// PushedToHub returns the patch recorded after a successful Hub push.
func PushedToHub(at utc.Time) Fields {
	return Fields{LastPushToHub: &at, Message: String("")}
}

// PushedToExternal returns the patch recorded after a successful External push.
func PushedToExternal(at utc.Time) Fields {
	return Fields{LastPushToExternal: &at, Message: String("")}
}

// Failed returns the patch recorded after a failed push. Timestamps are
// left alone so the record stays eligible next cycle.
func Failed(message string) Fields {
	return Fields{Message: String(message)}
}

// Truncate shortens s to the storable message length, marking the cut with
// an ellipsis.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= constants.MaxMessageLength {
		return s
	}
	return string(runes[:constants.MaxMessageLength-3]) + "..."
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Time returns a pointer to t.
func Time(t utc.Time) *utc.Time { return &t }
