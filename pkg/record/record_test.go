package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync/pkg/constants"
)

func TestCloneIsDeep(t *testing.T) {
	original := Record{
		"name":  "Acme",
		"lines": []any{map[string]any{"qty": 1.0}},
		"address": map[string]any{
			"city": "Paris",
		},
	}

	clone := original.Clone()
	clone["lines"].([]any)[0].(map[string]any)["qty"] = 2.0
	clone["address"].(map[string]any)["city"] = "Lyon"

	assert.Equal(t, 1.0, original["lines"].([]any)[0].(map[string]any)["qty"])
	assert.Equal(t, "Paris", original["address"].(map[string]any)["city"])
	assert.Nil(t, Record(nil).Clone())
}

func TestString(t *testing.T) {
	r := Record{"a": "x", "b": 42.0, "c": 7, "d": nil}
	assert.Equal(t, "x", r.String("a"))
	assert.Equal(t, "42", r.String("b"))
	assert.Equal(t, "7", r.String("c"))
	assert.Equal(t, "", r.String("d"))
	assert.Equal(t, "", r.String("missing"))
}

func TestHas(t *testing.T) {
	r := Record{"empty": "", "zero": 0, "nil": nil, "set": "v"}
	assert.False(t, r.Has("empty"))
	assert.False(t, r.Has("nil"))
	assert.False(t, r.Has("missing"))
	assert.True(t, r.Has("zero"))
	assert.True(t, r.Has("set"))
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input any
		ok    bool
	}{
		{"rfc3339", "2024-05-01T10:30:00Z", true},
		{"offset", "2024-05-01T12:30:00+02:00", true},
		{"space layout", "2024-05-01 10:30:00", true},
		{"unix float", float64(want.Unix()), true},
		{"unix string", "1714559400", true},
		{"time value", want, true},
		{"empty", "", false},
		{"garbage", "yesterday", false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTime(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Time.Equal(want), "got %s", got.Time)
			}
		})
	}
}

func TestHubIDRoundTrip(t *testing.T) {
	r := Record{"name": "Acme"}
	assert.Equal(t, "", r.HubID())

	carried := r.WithHubID("hub-1")
	assert.Equal(t, "hub-1", carried.HubID())
	assert.NotContains(t, r, constants.HubIDField)

	stripped, id := carried.WithoutHubID()
	assert.Equal(t, "hub-1", id)
	assert.NotContains(t, stripped, constants.HubIDField)
	assert.Contains(t, carried, constants.HubIDField)

	same := r.WithHubID("")
	assert.Equal(t, r, same)
}

func TestIdentities(t *testing.T) {
	decoded := []any{
		map[string]any{"id": "h-1", "provider": "hub"},
		map[string]any{"id": "e-9", "provider": "shop", "realm": "r1"},
	}

	ids := ParseIdentities(decoded)
	require.Len(t, ids, 2)
	assert.Equal(t, "h-1", FindHub(ids))
	assert.Equal(t, "e-9", Find(ids, "shop", "r1"))
	assert.Equal(t, "", Find(ids, "shop", "other"))

	assert.Equal(t, []Identity{HubIdentity("h-2")}, ParseIdentities("h-2"))
	assert.Nil(t, ParseIdentities(""))

	values := IdentityValues([]Identity{{ID: "e-9", Provider: "shop", Realm: "r1"}})
	assert.Equal(t, []any{map[string]any{"id": "e-9", "provider": "shop", "realm": "r1"}}, values)
}
