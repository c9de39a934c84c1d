// Package entity declares the entity types synchronized between the Hub and
// an External system: their names on both sides, which directions are
// enabled, how records are mapped, and the hooks the reconciler consults.
package entity

import (
	"strings"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/references"
)

// Definition describes one synchronized entity type.
type Definition struct {
	// HubEntity is the Hub entity name, e.g. "Contact" or "tax codes".
	HubEntity string
	// ExternalEntity is the External entity name, e.g. "customer".
	ExternalEntity string
	// Singleton entity types hold at most one record per organization.
	Singleton bool

	Capabilities Capabilities
	References   []references.Field
	// Mapper defaults to IdentityMapper.
	Mapper Mapper
	Hooks  Hooks
}

// Validate checks the definition is usable.
func (d *Definition) Validate() error {
	if d == nil {
		return errors.NewValidationError("entity", nil, "definition is required")
	}
	if d.Collection() == "" {
		return errors.NewValidationError("hub_entity", d.HubEntity, "hub entity name is required")
	}
	if strings.TrimSpace(d.ExternalEntity) == "" {
		return errors.NewValidationError("external_entity", d.ExternalEntity, "external entity name is required")
	}
	for _, ref := range d.References {
		if ref.Path == "" {
			return errors.NewValidationError("references", ref, "reference path is required")
		}
	}
	return nil
}

// Name is the label used in logs and events.
func (d *Definition) Name() string {
	return d.Collection()
}

// Collection is the Hub collection name used in urls and response keys.
func (d *Definition) Collection() string {
	return Normalize(d.HubEntity, d.Singleton)
}

// Singular is the key wrapping a payload in a Hub batch operation.
func (d *Definition) Singular() string {
	return Singularize(d.HubEntity)
}

// ExternalName is the normalized External entity name.
func (d *Definition) ExternalName() string {
	return strings.ToLower(strings.TrimSpace(d.ExternalEntity))
}

// Named reports whether name designates this entity type: its collection,
// its External name or its Hub display name in any spelling.
func (d *Definition) Named(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	return name == d.Collection() ||
		name == d.ExternalName() ||
		name == strings.ToLower(d.HubEntity) ||
		Normalize(name, d.Singleton) == d.Collection()
}

// ReferenceFields returns the references with HubEntity normalized to the
// collection the referenced entity type's correlations are keyed by.
func (d *Definition) ReferenceFields() []references.Field {
	if len(d.References) == 0 {
		return nil
	}
	out := make([]references.Field, len(d.References))
	for i, f := range d.References {
		f.HubEntity = Normalize(f.HubEntity, f.Singleton)
		out[i] = f
	}
	return out
}

// Key returns the correlation key scoping this entity type for an
// organization.
func (d *Definition) Key(organizationID string) correlation.Key {
	return correlation.Key{
		OrganizationID: organizationID,
		HubEntity:      d.Collection(),
		ExternalEntity: d.ExternalName(),
	}
}

// MapperOrDefault returns the configured mapper or IdentityMapper.
func (d *Definition) MapperOrDefault() Mapper {
	if d.Mapper == nil {
		return IdentityMapper{}
	}
	return d.Mapper
}

// ResolvedHooks returns the hooks with defaults applied.
func (d *Definition) ResolvedHooks() Hooks {
	return d.Hooks.WithDefaults()
}
