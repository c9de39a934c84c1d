// Package output prints command results. A terminal gets a table while pipes
// and redirects get JSON, unless --format names one.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/agentstation/hubsync/internal/cmd/table"
	"github.com/agentstation/hubsync/pkg/errors"
)

// Format is an output format accepted by --format.
type Format string

// Output formats.
const (
	Table Format = "table"
	JSON  Format = "json"
	YAML  Format = "yaml"
)

// Resolve returns the format named by flag. An empty flag picks a table for
// a terminal stdout and JSON otherwise.
func Resolve(flag string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(flag))); f {
	case Table, JSON, YAML:
		return f, nil
	case "":
		if fd := os.Stdout.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			return Table, nil
		}
		return JSON, nil
	default:
		return "", errors.NewValidationError("format", flag, "must be one of: table, json, yaml")
	}
}

// Result is what a command prints: rows for the table format and the value
// encoded by JSON and YAML.
type Result struct {
	Rows  table.Data
	Value any
	// Empty replaces a table with no rows.
	Empty string
}

// Print writes r to w in format.
func Print(w io.Writer, format Format, r Result) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r.Value)
	case YAML:
		b, err := yaml.MarshalWithOptions(r.Value, yaml.Indent(2), yaml.IndentSequence(false))
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case Table:
		if len(r.Rows.Rows) == 0 && r.Empty != "" {
			_, err := fmt.Fprintln(w, r.Empty)
			return err
		}
		return render(w, r.Rows)
	default:
		return errors.NewValidationError("format", string(format), "must be one of: table, json, yaml")
	}
}

// Write resolves flag and prints r.
func Write(w io.Writer, flag string, r Result) error {
	f, err := Resolve(flag)
	if err != nil {
		return err
	}
	return Print(w, f, r)
}

var alignments = map[table.Align]tw.Align{
	table.AlignLeft:   tw.AlignLeft,
	table.AlignCenter: tw.AlignCenter,
	table.AlignRight:  tw.AlignRight,
}

func render(w io.Writer, data table.Data) error {
	var cfg tablewriter.Config
	if len(data.ColumnAlignment) > 0 {
		per := make([]tw.Align, len(data.ColumnAlignment))
		for i, a := range data.ColumnAlignment {
			align, ok := alignments[a]
			if !ok {
				align = tw.Skip
			}
			per[i] = align
		}
		cfg.Header.Alignment = tw.CellAlignment{PerColumn: per}
		cfg.Row.Alignment = tw.CellAlignment{PerColumn: per}
	}

	t := tablewriter.NewTable(w, tablewriter.WithConfig(cfg))
	if len(data.Headers) > 0 {
		t.Header(cells(data.Headers)...)
	}
	for _, row := range data.Rows {
		if err := t.Append(cells(row)...); err != nil {
			return err
		}
	}
	return t.Render()
}

func cells(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
