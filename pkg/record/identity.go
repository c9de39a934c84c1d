package record

import (
	"github.com/agentstation/hubsync/pkg/constants"
)

// Identity is one entry of a Hub identity list. The Hub exposes every id it
// knows for an object, each tagged with the system that issued it.
type Identity struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Realm    string `json:"realm,omitempty"`
}

// HubIdentity returns the identity entry for a Hub-issued id.
func HubIdentity(id string) Identity {
	return Identity{ID: id, Provider: constants.HubProvider}
}

// IsHub reports whether the identity was issued by the Hub.
func (i Identity) IsHub() bool {
	return i.Provider == constants.HubProvider
}

// Matches reports whether the identity was issued by the given system account.
func (i Identity) Matches(provider, realm string) bool {
	return i.Provider == provider && i.Realm == realm
}

// Map returns the JSON object form of the identity.
func (i Identity) Map() map[string]any {
	m := map[string]any{"id": i.ID, "provider": i.Provider}
	if i.Realm != "" {
		m["realm"] = i.Realm
	}
	return m
}

// ParseIdentities reads an identity list from a decoded JSON value.
// A bare string is treated as a single Hub id.
func ParseIdentities(v any) []Identity {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []Identity{HubIdentity(t)}
	case []Identity:
		return t
	case Identity:
		return []Identity{t}
	case []map[string]any:
		out := make([]Identity, 0, len(t))
		for _, m := range t {
			out = append(out, identityFromMap(m))
		}
		return out
	case []any:
		out := make([]Identity, 0, len(t))
		for _, item := range t {
			switch m := item.(type) {
			case map[string]any:
				out = append(out, identityFromMap(m))
			case Record:
				out = append(out, identityFromMap(m))
			case Identity:
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return []Identity{identityFromMap(t)}
	}
	return nil
}

func identityFromMap(m map[string]any) Identity {
	return Identity{
		ID:       Stringify(m["id"]),
		Provider: Stringify(m["provider"]),
		Realm:    Stringify(m["realm"]),
	}
}

// IdentityValues converts identities into their JSON object form.
func IdentityValues(ids []Identity) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Map())
	}
	return out
}

// FindHub returns the Hub-issued id in the list.
func FindHub(ids []Identity) string {
	for _, id := range ids {
		if id.IsHub() && id.ID != "" {
			return id.ID
		}
	}
	return ""
}

// Find returns the id issued by the given system account.
func Find(ids []Identity, provider, realm string) string {
	for _, id := range ids {
		if id.Matches(provider, realm) && id.ID != "" {
			return id.ID
		}
	}
	return ""
}
