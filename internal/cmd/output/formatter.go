// Package output renders command results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/scansync/internal/cmd/table"
)

// Format is an output format accepted by --format.
type Format string

const (
	// FormatTable renders aligned columns.
	FormatTable Format = "table"
	// FormatWide is a table with extra columns such as fingerprints.
	FormatWide Format = "wide"
	// FormatJSON renders indented JSON.
	FormatJSON Format = "json"
	// FormatYAML renders YAML through the values' JSON encoding.
	FormatYAML Format = "yaml"
)

// Formats lists every accepted format.
func Formats() []Format {
	return []Format{FormatTable, FormatWide, FormatJSON, FormatYAML}
}

// Data is a rendered table.
type Data = table.Data

// ParseFormat validates s. An empty string is valid and means auto-detect.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(s))
	if format == "" {
		return "", nil
	}
	for _, f := range Formats() {
		if format == f {
			return format, nil
		}
	}
	return "", fmt.Errorf("invalid format %q: must be one of: table, wide, json, yaml", s)
}

// Resolve validates an explicit format. Without one, terminals get a
// table and pipes get JSON.
func Resolve(explicit string) (Format, error) {
	format, err := ParseFormat(explicit)
	if err != nil || format != "" {
		return format, err
	}
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return FormatTable, nil
	}
	return FormatJSON, nil
}

// IsTable reports whether format renders a table.
func (f Format) IsTable() bool {
	return f == FormatTable || f == FormatWide
}

// Write renders a command result. Table formats print rows; structured
// formats print raw so JSON and YAML keep every field.
func Write(w io.Writer, format Format, rows Data, raw any) error {
	switch {
	case format.IsTable():
		return renderTable(w, rows)
	case format == FormatYAML:
		return encodeYAML(w, raw)
	default:
		return encodeJSON(w, raw)
	}
}

// WriteRecord renders a single struct, as a Property/Value table in
// table formats.
func WriteRecord(w io.Writer, format Format, record any) error {
	if format.IsTable() {
		return renderTable(w, Record(record))
	}
	return Write(w, format, Data{}, record)
}

// Record turns the exported fields of a struct into Property/Value rows.
// Properties are titled from json tags; empty strings show as "-".
func Record(record any) Data {
	data := Data{
		Headers:         []string{"Property", "Value"},
		ColumnAlignment: []table.Align{table.AlignLeft, table.AlignLeft},
	}

	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return data
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		data.Rows = append(data.Rows, []string{"Value", fmt.Sprint(record)})
		return data
	}

	title := cases.Title(language.English)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, skip := fieldName(field)
		if skip {
			continue
		}

		value := fmt.Sprint(v.Field(i).Interface())
		if value == "" {
			value = "-"
		}
		data.Rows = append(data.Rows, []string{title.String(name), value})
	}
	return data
}

func fieldName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return strings.ReplaceAll(name, "_", " "), false
	}
	return field.Name, false
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func encodeYAML(w io.Writer, v any) error {
	data, err := yaml.MarshalWithOptions(v,
		yaml.Indent(2),
		yaml.IndentSequence(false),
		yaml.UseJSONMarshaler(),
	)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func renderTable(w io.Writer, data Data) error {
	config := tablewriter.Config{}
	if len(data.ColumnAlignment) > 0 {
		align := make([]tw.Align, len(data.ColumnAlignment))
		for i, a := range data.ColumnAlignment {
			switch a {
			case table.AlignLeft:
				align[i] = tw.AlignLeft
			case table.AlignCenter:
				align[i] = tw.AlignCenter
			case table.AlignRight:
				align[i] = tw.AlignRight
			default:
				align[i] = tw.Skip
			}
		}
		config.Header.Alignment = tw.CellAlignment{PerColumn: align}
		config.Row.Alignment = tw.CellAlignment{PerColumn: align}
	}

	tbl := tablewriter.NewTable(w, tablewriter.WithConfig(config))
	if len(data.Headers) > 0 {
		headers := make([]any, len(data.Headers))
		for i, h := range data.Headers {
			headers[i] = h
		}
		tbl.Header(headers...)
	}
	for _, row := range data.Rows {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		if err := tbl.Append(cells...); err != nil {
			return err
		}
	}
	return tbl.Render()
}
