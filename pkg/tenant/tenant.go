// Package tenant describes the organizations hubsync synchronizes on behalf of.
package tenant

import (
	"github.com/agentstation/hubsync/pkg/errors"
)

// Organization is one tenant linked to both the Hub and an External system.
type Organization struct {
	// ID is the local identifier used to scope correlations.
	ID string `json:"id" yaml:"id"`
	// UID is the Hub-side organization identifier used in batch urls.
	UID string `json:"uid" yaml:"uid"`
	// Provider names the External system in Hub identity lists (e.g. "shopify").
	Provider string `json:"provider" yaml:"provider"`
	// Realm is the organization's account identifier inside the External system.
	Realm string `json:"realm" yaml:"realm"`
	// Name is a display label.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Validate checks that the fields the sync core depends on are present.
func (o *Organization) Validate() error {
	switch {
	case o == nil:
		return errors.NewValidationError("organization", nil, "organization is required")
	case o.ID == "":
		return errors.NewValidationError("id", o.ID, "organization id is required")
	case o.UID == "":
		return errors.NewValidationError("uid", o.UID, "organization uid is required")
	case o.Provider == "":
		return errors.NewValidationError("provider", o.Provider, "organization provider is required")
	}
	return nil
}

// String returns the display name, falling back to the id.
func (o *Organization) String() string {
	if o.Name != "" {
		return o.Name
	}
	return o.ID
}
