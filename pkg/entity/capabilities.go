package entity

// Capabilities toggles reads and writes per side. Unset values default to
// true, except reads which mirror the other side's write capability: there is
// no point reading Hub records that can never be written to External.
type Capabilities struct {
	ReadHub        *bool `json:"read_hub,omitempty" yaml:"read_hub,omitempty"`
	WriteHub       *bool `json:"write_hub,omitempty" yaml:"write_hub,omitempty"`
	ReadExternal   *bool `json:"read_external,omitempty" yaml:"read_external,omitempty"`
	WriteExternal  *bool `json:"write_external,omitempty" yaml:"write_external,omitempty"`
	UpdateExternal *bool `json:"update_external,omitempty" yaml:"update_external,omitempty"`
}

// CanReadHub defaults to CanWriteExternal.
func (c Capabilities) CanReadHub() bool {
	if c.ReadHub != nil {
		return *c.ReadHub
	}
	return c.CanWriteExternal()
}

// CanReadExternal defaults to CanWriteHub.
func (c Capabilities) CanReadExternal() bool {
	if c.ReadExternal != nil {
		return *c.ReadExternal
	}
	return c.CanWriteHub()
}

// CanWriteHub defaults to true.
func (c Capabilities) CanWriteHub() bool {
	return c.WriteHub == nil || *c.WriteHub
}

// CanWriteExternal defaults to true.
func (c Capabilities) CanWriteExternal() bool {
	return c.WriteExternal == nil || *c.WriteExternal
}

// CanUpdateExternal defaults to true.
func (c Capabilities) CanUpdateExternal() bool {
	return c.UpdateExternal == nil || *c.UpdateExternal
}

// ReadOnlyFromHub returns capabilities for entity types only ever copied from
// the Hub to External.
func ReadOnlyFromHub() Capabilities {
	f := false
	return Capabilities{WriteHub: &f}
}

// ReadOnlyFromExternal returns capabilities for entity types only ever copied
// from External to the Hub.
func ReadOnlyFromExternal() Capabilities {
	f := false
	return Capabilities{WriteExternal: &f}
}
