// Package config loads the organizations and entity types hubsync
// synchronizes from a YAML file.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/hubsync/internal/httpclient"
	"github.com/agentstation/hubsync/internal/utils/ptr"
	"github.com/agentstation/hubsync/pkg/entity"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/external"
	"github.com/agentstation/hubsync/pkg/references"
	"github.com/agentstation/hubsync/pkg/tenant"
)

// File is the root of an entity configuration file.
type File struct {
	Organizations []Organization `yaml:"organizations"`
	Entities      []Entity       `yaml:"entities"`
}

// Organization declares one tenant and how to reach its External system.
type Organization struct {
	tenant.Organization `yaml:",inline"`

	External External `yaml:"external"`
	// Entities restricts the organization to some entity types, by Hub or
	// External name. Empty means every declared entity type.
	Entities []string `yaml:"entities,omitempty"`
}

// External configures the REST client of an organization. Secrets are
// never written in the file: *_env fields name the variables holding them.
type External struct {
	System     string        `yaml:"system,omitempty"`
	BaseURL    string        `yaml:"base_url"`
	Auth       Auth          `yaml:"auth,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	RateLimit  float64       `yaml:"rate_limit,omitempty"`
	RateBurst  int           `yaml:"rate_burst,omitempty"`
	MaxRetries int           `yaml:"max_retries,omitempty"`
}

// Auth selects an authentication scheme: none, basic, bearer or api_key.
type Auth struct {
	Type        string `yaml:"type"`
	UsernameEnv string `yaml:"username_env,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"`
	TokenEnv    string `yaml:"token_env,omitempty"`
	KeyEnv      string `yaml:"key_env,omitempty"`
	Header      string `yaml:"header,omitempty"`
}

// Entity declares one entity type.
type Entity struct {
	Hub       string `yaml:"hub"`
	External  string `yaml:"external"`
	Singleton bool   `yaml:"singleton,omitempty"`

	// Direction is a shorthand for capabilities: both (default), to_hub or
	// to_external. Explicit capabilities take precedence.
	Direction    entity.Direction    `yaml:"direction,omitempty"`
	Capabilities entity.Capabilities `yaml:"capabilities,omitempty"`
	Fields       entity.Fields       `yaml:"fields,omitempty"`
	Mapping      *entity.FieldMapper `yaml:"mapping,omitempty"`
	References   []references.Field  `yaml:"references,omitempty"`
	Endpoint     external.Endpoint   `yaml:"endpoint"`
}

// Load reads and validates a configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("entities", "reading "+path, err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration data. Unknown keys are errors.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.NewConfigError("entities", "parsing", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks organizations and entity types.
func (f *File) Validate() error {
	seen := map[string]bool{}
	for i := range f.Organizations {
		org := &f.Organizations[i]
		if err := org.Organization.Validate(); err != nil {
			return errors.NewConfigError("organizations", fmt.Sprintf("organization %d", i), err)
		}
		if seen[org.ID] {
			return errors.NewConfigError("organizations", "duplicate organization "+org.ID, errors.ErrInvalidInput)
		}
		seen[org.ID] = true
		if org.External.BaseURL == "" {
			return errors.NewConfigError("organizations", org.ID+": external base_url is required", errors.ErrInvalidInput)
		}
		if _, err := org.External.Auth.build(func(string) string { return "" }); err != nil && !errors.Is(err, errMissingSecret) {
			return errors.NewConfigError("organizations", org.ID, err)
		}
	}

	names := map[string]bool{}
	for i, e := range f.Entities {
		def, err := e.Definition()
		if err != nil {
			return errors.NewConfigError("entities", fmt.Sprintf("entity %d", i), err)
		}
		if names[def.Collection()] {
			return errors.NewConfigError("entities", "duplicate entity "+def.Collection(), errors.ErrInvalidInput)
		}
		names[def.Collection()] = true
	}
	return nil
}

// Definition builds the entity definition.
func (e Entity) Definition() (*entity.Definition, error) {
	caps := e.Capabilities
	switch e.Direction {
	case entity.Both, "both":
	case entity.ToHub:
		if caps.WriteExternal == nil {
			caps.WriteExternal = ptr.Bool(false)
		}
	case entity.ToExternal:
		if caps.WriteHub == nil {
			caps.WriteHub = ptr.Bool(false)
		}
	default:
		return nil, errors.NewValidationError("direction", e.Direction, "direction must be to_hub or to_external")
	}

	def := &entity.Definition{
		HubEntity:      e.Hub,
		ExternalEntity: e.External,
		Singleton:      e.Singleton,
		Capabilities:   caps,
		References:     e.References,
		Hooks:          e.Fields.Hooks(),
	}
	if e.Mapping != nil {
		def.Mapper = *e.Mapping
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if e.Endpoint.Path == "" {
		return nil, errors.NewValidationError("endpoint", e.External, "external endpoint path is required")
	}
	return def, nil
}

// Definitions returns the entity types synced for org, in file order.
func (f *File) Definitions(org Organization) ([]*entity.Definition, error) {
	all := make([]*entity.Definition, 0, len(f.Entities))
	for _, e := range f.Entities {
		def, err := e.Definition()
		if err != nil {
			return nil, err
		}
		all = append(all, def)
	}

	var defs []*entity.Definition
	for _, def := range all {
		def.References = linkReferences(def.References, all)
		if org.includes(def) {
			defs = append(defs, def)
		}
	}
	return defs, nil
}

// linkReferences points each reference at the declared entity type it
// names, taking that type's collection and singleton flag.
func linkReferences(refs []references.Field, defs []*entity.Definition) []references.Field {
	out := slices.Clone(refs)
	for i := range out {
		for _, def := range defs {
			if !def.Named(out[i].HubEntity) {
				continue
			}
			out[i].HubEntity = def.Collection()
			out[i].Singleton = def.Singleton
			if out[i].ExternalEntity == "" {
				out[i].ExternalEntity = def.ExternalEntity
			}
			break
		}
	}
	return out
}

// ExternalClient builds the REST client of org. lookup resolves the
// environment variables named by the auth settings.
func (f *File) ExternalClient(org Organization, lookup func(string) string) (*external.RESTClient, error) {
	auth, err := org.External.Auth.build(lookup)
	if err != nil {
		return nil, errors.NewConfigError("organizations", org.ID, err)
	}

	endpoints := make(map[string]external.Endpoint, len(f.Entities))
	for _, e := range f.Entities {
		def, err := e.Definition()
		if err != nil {
			return nil, err
		}
		if org.includes(def) {
			endpoints[def.ExternalName()] = e.Endpoint
		}
	}

	system := org.External.System
	if system == "" {
		system = org.Provider
	}
	return external.NewRESTClient(external.RESTConfig{
		System:     system,
		BaseURL:    org.External.BaseURL,
		Auth:       auth,
		Timeout:    org.External.Timeout,
		RateLimit:  org.External.RateLimit,
		RateBurst:  org.External.RateBurst,
		MaxRetries: org.External.MaxRetries,
		Endpoints:  endpoints,
	})
}

// Organization looks up an organization by id.
func (f *File) Organization(id string) (Organization, error) {
	for _, org := range f.Organizations {
		if org.ID == id {
			return org, nil
		}
	}
	return Organization{}, errors.NewNotFoundError("organization", id)
}

func (o Organization) includes(def *entity.Definition) bool {
	if len(o.Entities) == 0 {
		return true
	}
	for _, name := range o.Entities {
		if entity.Normalize(name, def.Singleton) == def.Collection() || entity.Normalize(name, false) == entity.Normalize(def.ExternalEntity, false) {
			return true
		}
	}
	return false
}

var errMissingSecret = errors.New("secret not set")

func (a Auth) build(lookup func(string) string) (httpclient.Auth, error) {
	secret := func(env string) (string, error) {
		if env == "" {
			return "", errors.NewValidationError("auth", a.Type, "variable name is required for "+a.Type+" auth")
		}
		v := lookup(env)
		if v == "" {
			return "", fmt.Errorf("%w: %s", errMissingSecret, env)
		}
		return v, nil
	}

	switch a.Type {
	case "", "none":
		return httpclient.NoAuth{}, nil
	case "basic":
		user, err := secret(a.UsernameEnv)
		if err != nil {
			return nil, err
		}
		pass, err := secret(a.PasswordEnv)
		if err != nil {
			return nil, err
		}
		return httpclient.BasicAuth{Username: user, Password: pass}, nil
	case "bearer":
		token, err := secret(a.TokenEnv)
		if err != nil {
			return nil, err
		}
		return httpclient.BearerToken{Token: token}, nil
	case "api_key":
		key, err := secret(a.KeyEnv)
		if err != nil {
			return nil, err
		}
		return httpclient.APIKey{Key: key, Header: a.Header}, nil
	default:
		return nil, errors.NewValidationError("auth", a.Type, "auth type must be none, basic, bearer or api_key")
	}
}
