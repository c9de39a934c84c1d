package entity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/record"
	"github.com/agentstation/hubsync/pkg/references"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		singleton bool
		want      string
	}{
		{"Contact", false, "contacts"},
		{"contacts", false, "contacts"},
		{"Tax Code", false, "tax_codes"},
		{"  sales-order ", false, "sales_orders"},
		{"Company", true, "company"},
		{"companies", true, "company"},
		{"", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.name, tt.singleton))
		})
	}
	assert.Equal(t, "tax_code", Singularize("Tax Codes"))
}

func TestDefinitionNames(t *testing.T) {
	d := &Definition{HubEntity: "Contact", ExternalEntity: "Customer"}
	require.NoError(t, d.Validate())

	assert.Equal(t, "contacts", d.Collection())
	assert.Equal(t, "contact", d.Singular())
	assert.Equal(t, "customer", d.ExternalName())
	assert.Equal(t, correlation.Key{OrganizationID: "org-1", HubEntity: "contacts", ExternalEntity: "customer"}, d.Key("org-1"))
	assert.IsType(t, IdentityMapper{}, d.MapperOrDefault())
}

func TestDefinitionNamed(t *testing.T) {
	d := &Definition{HubEntity: "Tax Code", ExternalEntity: "TaxCode"}

	for _, name := range []string{"tax_codes", "Tax Code", "tax codes", "taxcode", " TAX_CODES "} {
		assert.True(t, d.Named(name), name)
	}
	assert.False(t, d.Named("contacts"))
}

func TestReferenceFields(t *testing.T) {
	d := &Definition{
		HubEntity:      "Contact",
		ExternalEntity: "Customer",
		References: []references.Field{
			{Path: "tax_code", HubEntity: "tax codes", ExternalEntity: "TaxCode"},
			{Path: "lines.item", HubEntity: "Items"},
			{Path: "company", HubEntity: "Company", Singleton: true},
		},
	}

	refs := d.ReferenceFields()
	require.Len(t, refs, 3)
	assert.Equal(t, "tax_codes", refs[0].HubEntity)
	assert.Equal(t, "TaxCode", refs[0].ExternalEntity)
	assert.Equal(t, "items", refs[1].HubEntity)
	assert.Equal(t, "company", refs[2].HubEntity)
	// the declared references are left untouched
	assert.Equal(t, "tax codes", d.References[0].HubEntity)
	assert.Nil(t, (&Definition{HubEntity: "Contact"}).ReferenceFields())
}

func TestDefinitionValidate(t *testing.T) {
	var nilDef *Definition
	assert.True(t, errors.IsValidationError(nilDef.Validate()))
	assert.True(t, errors.IsValidationError((&Definition{ExternalEntity: "customer"}).Validate()))
	assert.True(t, errors.IsValidationError((&Definition{HubEntity: "contact"}).Validate()))
}

func TestCapabilitiesDefaults(t *testing.T) {
	var c Capabilities
	assert.True(t, c.CanReadHub())
	assert.True(t, c.CanWriteHub())
	assert.True(t, c.CanReadExternal())
	assert.True(t, c.CanWriteExternal())
	assert.True(t, c.CanUpdateExternal())

	fromHub := ReadOnlyFromHub()
	assert.False(t, fromHub.CanWriteHub())
	assert.False(t, fromHub.CanReadExternal(), "read external mirrors write hub")
	assert.True(t, fromHub.CanReadHub())

	fromExt := ReadOnlyFromExternal()
	assert.False(t, fromExt.CanReadHub(), "read hub mirrors write external")
	assert.True(t, fromExt.CanReadExternal())

	yes := true
	override := Capabilities{WriteExternal: fromExt.WriteExternal, ReadHub: &yes}
	assert.True(t, override.CanReadHub())
}

func TestHooksDefaults(t *testing.T) {
	h := Hooks{}.WithDefaults()
	r := record.Record{"id": 12.0, "name": "Acme", "updated_at": "2024-05-01T10:00:00Z"}

	assert.Equal(t, "12", h.ExternalID(r))
	assert.Equal(t, "Acme", h.HubName(r))
	assert.Equal(t, "Acme", h.ExternalName(r))
	assert.False(t, h.ExternalInactive(r))
	at, ok := h.ExternalUpdatedAt(r)
	require.True(t, ok)
	assert.True(t, at.Time.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.NoError(t, h.BeforeSync(context.Background(), nil))
	assert.NoError(t, h.AfterSync(context.Background(), nil))
	assert.Len(t, h.FilterHub([]record.Record{r}), 1)
}

func TestFieldHooks(t *testing.T) {
	h := Fields{
		ExternalID:        "Id",
		ExternalUpdatedAt: "meta.modified",
		HubName:           "first_name last_name",
		ExternalName:      "DisplayName",
		ExternalInactive:  "Status",
		InactiveValues:    []string{"ARCHIVED", "deleted"},
	}.Hooks().WithDefaults()

	ext := record.Record{
		"Id":          "C-7",
		"DisplayName": "Jane Doe",
		"Status":      "archived",
		"meta":        map[string]any{"modified": "2024-05-01T10:00:00Z"},
	}
	assert.Equal(t, "C-7", h.ExternalID(ext))
	assert.Equal(t, "Jane Doe", h.ExternalName(ext))
	assert.True(t, h.ExternalInactive(ext))
	_, ok := h.ExternalUpdatedAt(ext)
	assert.True(t, ok)

	assert.Equal(t, "Jane Doe", h.HubName(record.Record{"first_name": "Jane", "last_name": "Doe"}))
	assert.Equal(t, "Jane", h.HubName(record.Record{"first_name": "Jane"}))

	active := record.Record{"Status": "ACTIVE"}
	assert.False(t, h.ExternalInactive(active))
	assert.True(t, Fields{ExternalInactive: "archived"}.Hooks().ExternalInactive(record.Record{"archived": true}))
}

func TestFieldMapper(t *testing.T) {
	m := FieldMapper{
		Fields: []FieldMapping{
			{Hub: "name", External: "DisplayName"},
			{Hub: "address.city", External: "City"},
			{Hub: "code", External: "Ref", Direction: ToExternal},
			{Hub: "balance", External: "Balance", Direction: ToHub},
		},
		ExternalDefaults: map[string]any{"Type": "customer"},
	}
	ctx := context.Background()

	ext, err := m.ToExternal(ctx, record.Record{
		"name":    "Acme",
		"address": map[string]any{"city": "Paris"},
		"code":    "A1",
		"balance": 10.0,
		"ignored": true,
	})
	require.NoError(t, err)
	assert.Equal(t, record.Record{"DisplayName": "Acme", "City": "Paris", "Ref": "A1", "Type": "customer"}, ext)

	hub, err := m.ToHub(ctx, record.Record{"DisplayName": "Acme", "City": "Lyon", "Ref": "A1", "Balance": 3.0})
	require.NoError(t, err)
	assert.Equal(t, record.Record{"name": "Acme", "address": map[string]any{"city": "Lyon"}, "balance": 3.0}, hub)
}

func TestMapperFuncs(t *testing.T) {
	m := MapperFuncs{
		Hub: func(_ context.Context, ext record.Record) (record.Record, error) {
			return record.Record{"name": ext["title"]}, nil
		},
	}
	hub, err := m.ToHub(context.Background(), record.Record{"title": "x"})
	require.NoError(t, err)
	assert.Equal(t, record.Record{"name": "x"}, hub)

	ext, err := m.ToExternal(context.Background(), record.Record{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, record.Record{"a": 1}, ext)
}
