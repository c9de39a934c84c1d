// Package references translates identifiers embedded in records between the
// Hub's identity lists and the plain External ids an External system expects.
//
// The Hub exposes every id it knows for an object as a list of
// {id, provider, realm} entries. Unfolding picks the entry issued by the
// organization's External account, falling back to the correlation store;
// folding wraps External ids back into identity lists.
package references

import (
	"context"
	"strings"

	"github.com/agentstation/hubsync/pkg/constants"
	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/record"
	"github.com/agentstation/hubsync/pkg/tenant"
)

// Field is a record field pointing at another entity type.
type Field struct {
	// Path is the dotted path of the field; arrays are descended.
	Path string `yaml:"path"`
	// HubEntity is the Hub collection of the referenced entity type. It must
	// match the collection correlations are keyed by; Definition.ReferenceFields
	// normalizes display names.
	HubEntity string `yaml:"hub_entity"`
	// ExternalEntity is the External name of the referenced entity type.
	ExternalEntity string `yaml:"external_entity"`
	// Singleton marks a reference to a singleton entity type.
	Singleton bool `yaml:"singleton,omitempty"`
	// Optional references are removed when they cannot be resolved instead
	// of dropping the whole record.
	Optional bool `yaml:"optional,omitempty"`
}

// Resolver folds and unfolds references for one organization.
type Resolver struct {
	org   *tenant.Organization
	store correlation.Store
}

// NewResolver returns a resolver. store may be nil, in which case only ids
// already known to the Hub are resolved.
func NewResolver(org *tenant.Organization, store correlation.Store) *Resolver {
	return &Resolver{org: org, store: store}
}

// Unfold returns a copy of a Hub record in which "id" holds the External id
// known to the Hub (absent when there is none), the Hub id is carried in the
// hub id metadata field, and every reference holds a plain External id.
// The boolean is false when a required reference could not be resolved and
// the record must be skipped.
func (r *Resolver) Unfold(ctx context.Context, rec record.Record, fields []Field) (record.Record, bool, error) {
	out := rec.Clone()

	ids := record.ParseIdentities(rec["id"])
	delete(out, "id")
	if ext := record.Find(ids, r.org.Provider, r.org.Realm); ext != "" {
		out["id"] = ext
	}
	if hub := record.FindHub(ids); hub != "" {
		out[constants.HubIDField] = hub
	}

	for _, f := range fields {
		var (
			firstErr   error
			unresolved bool
		)
		out.Walk(f.Path, func(parent map[string]any, key string) {
			if firstErr != nil || unresolved {
				return
			}
			ids := record.ParseIdentities(parent[key])
			if len(ids) == 0 {
				return
			}
			ext, err := r.externalID(ctx, f, ids)
			if err != nil {
				firstErr = err
				return
			}
			if ext != "" {
				parent[key] = ext
				return
			}
			if f.Optional {
				delete(parent, key)
				return
			}
			unresolved = true
		})
		if firstErr != nil {
			return nil, false, firstErr
		}
		if unresolved {
			return nil, false, nil
		}
	}
	return out, true, nil
}

func (r *Resolver) externalID(ctx context.Context, f Field, ids []record.Identity) (string, error) {
	if ext := record.Find(ids, r.org.Provider, r.org.Realm); ext != "" {
		return ext, nil
	}
	hub := record.FindHub(ids)
	if hub == "" || r.store == nil {
		return "", nil
	}
	c, err := r.store.Find(ctx, correlation.Key{
		OrganizationID: r.org.ID,
		HubEntity:      f.HubEntity,
		ExternalEntity: strings.ToLower(f.ExternalEntity),
		HubID:          hub,
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return c.ExternalID, nil
}

// Fold returns a copy of a record mapped to the Hub shape in which "id" and
// every reference are identity lists issued by the organization's External
// account.
func (r *Resolver) Fold(rec record.Record, externalID string, fields []Field) record.Record {
	out := rec.Clone()
	if out == nil {
		out = record.Record{}
	}
	if externalID != "" {
		out["id"] = r.identityList(externalID)
	}
	for _, f := range fields {
		out.Walk(f.Path, func(parent map[string]any, key string) {
			id := record.Stringify(parent[key])
			if id == "" {
				return
			}
			parent[key] = r.identityList(id)
		})
	}
	return out
}

// Backlink returns the payload telling the Hub which External id belongs to
// one of its records.
func (r *Resolver) Backlink(externalID string) record.Record {
	return record.Record{"id": r.identityList(externalID)}
}

func (r *Resolver) identityList(id string) []any {
	return record.IdentityValues([]record.Identity{{ID: id, Provider: r.org.Provider, Realm: r.org.Realm}})
}
