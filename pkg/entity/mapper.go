package entity

import (
	"context"

	"github.com/agentstation/hubsync/pkg/record"
)

// Mapper converts records between the Hub shape and the External shape of
// one entity type.
type Mapper interface {
	// ToExternal maps a Hub record into the External shape.
	ToExternal(ctx context.Context, hub record.Record) (record.Record, error)
	// ToHub maps an External record into the Hub shape.
	ToHub(ctx context.Context, external record.Record) (record.Record, error)
}

// IdentityMapper copies records unchanged.
type IdentityMapper struct{}

// ToExternal implements Mapper.
func (IdentityMapper) ToExternal(_ context.Context, hub record.Record) (record.Record, error) {
	return hub.Clone(), nil
}

// ToHub implements Mapper.
func (IdentityMapper) ToHub(_ context.Context, external record.Record) (record.Record, error) {
	return external.Clone(), nil
}

// Direction restricts a field mapping to one way.
type Direction string

// Directions.
const (
	Both       Direction = ""
	ToHub      Direction = "to_hub"
	ToExternal Direction = "to_external"
)

// FieldMapping copies one field between shapes. Paths are dotted.
type FieldMapping struct {
	Hub       string    `yaml:"hub"`
	External  string    `yaml:"external"`
	Direction Direction `yaml:"direction,omitempty"`
}

// FieldMapper maps records field by field. Fields without a mapping are
// dropped; defaults are written before mapped values.
type FieldMapper struct {
	Fields           []FieldMapping `yaml:"fields"`
	HubDefaults      map[string]any `yaml:"hub_defaults,omitempty"`
	ExternalDefaults map[string]any `yaml:"external_defaults,omitempty"`
}

// ToExternal implements Mapper.
func (m FieldMapper) ToExternal(_ context.Context, hub record.Record) (record.Record, error) {
	out := record.Record{}
	for path, v := range m.ExternalDefaults {
		out.Set(path, record.CloneValue(v))
	}
	for _, f := range m.Fields {
		if f.Direction == ToHub {
			continue
		}
		if v, ok := hub.Get(f.Hub); ok {
			out.Set(f.External, record.CloneValue(v))
		}
	}
	return out, nil
}

// ToHub implements Mapper.
func (m FieldMapper) ToHub(_ context.Context, external record.Record) (record.Record, error) {
	out := record.Record{}
	for path, v := range m.HubDefaults {
		out.Set(path, record.CloneValue(v))
	}
	for _, f := range m.Fields {
		if f.Direction == ToExternal {
			continue
		}
		if v, ok := external.Get(f.External); ok {
			out.Set(f.Hub, record.CloneValue(v))
		}
	}
	return out, nil
}

// MapperFuncs adapts two functions to Mapper.
type MapperFuncs struct {
	External func(ctx context.Context, hub record.Record) (record.Record, error)
	Hub      func(ctx context.Context, external record.Record) (record.Record, error)
}

// ToExternal implements Mapper.
func (m MapperFuncs) ToExternal(ctx context.Context, hub record.Record) (record.Record, error) {
	if m.External == nil {
		return IdentityMapper{}.ToExternal(ctx, hub)
	}
	return m.External(ctx, hub)
}

// ToHub implements Mapper.
func (m MapperFuncs) ToHub(ctx context.Context, external record.Record) (record.Record, error) {
	if m.Hub == nil {
		return IdentityMapper{}.ToHub(ctx, external)
	}
	return m.Hub(ctx, external)
}
