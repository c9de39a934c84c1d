package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync/internal/cmd/table"
	"github.com/agentstation/hubsync/pkg/errors"
)

func sample() Result {
	return Result{
		Rows: table.Data{
			Headers:         []string{"Entity", "To Hub"},
			Rows:            [][]string{{"contacts", "2"}},
			ColumnAlignment: []table.Align{table.AlignLeft, table.AlignRight},
		},
		Value: map[string]any{"entity": "contacts", "to_hub": 2},
		Empty: "Nothing synced.",
	}
}

func TestPrint(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		check  func(t *testing.T, out string)
	}{
		{"table", Table, func(t *testing.T, out string) {
			assert.Contains(t, out, "contacts")
			assert.Contains(t, strings.ToLower(out), "to hub")
		}},
		{"json", JSON, func(t *testing.T, out string) {
			assert.JSONEq(t, `{"entity": "contacts", "to_hub": 2}`, out)
		}},
		{"yaml", YAML, func(t *testing.T, out string) {
			assert.Contains(t, out, "entity: contacts\n")
			assert.Contains(t, out, "to_hub: 2\n")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Print(&buf, tt.format, sample()))
			tt.check(t, buf.String())
		})
	}
}

func TestPrintEmptyTable(t *testing.T) {
	r := sample()
	r.Rows.Rows = nil
	r.Value = []string{}

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, Table, r))
	assert.Equal(t, "Nothing synced.\n", buf.String())

	buf.Reset()
	require.NoError(t, Print(&buf, JSON, r))
	assert.JSONEq(t, "[]", buf.String())
}

func TestResolve(t *testing.T) {
	f, err := Resolve(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)

	f, err = Resolve("")
	require.NoError(t, err)
	assert.Contains(t, []Format{Table, JSON}, f)

	_, err = Resolve("xml")
	assert.True(t, errors.IsValidationError(err))
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, "csv", sample())
	assert.True(t, errors.IsValidationError(err))
	assert.Empty(t, buf.String())
}
