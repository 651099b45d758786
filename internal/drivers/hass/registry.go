package hass

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry column names.
const (
	colEntityID      = "Entity ID"
	colEntityPoint   = "Entity Point"
	colPointName     = "Volttron Point Name"
	colUnits         = "Units"
	colWritable      = "Writable"
	colStartingValue = "Starting Value"
	colType          = "Type"
	colNotes         = "Notes"
	colAttributes    = "Attributes"
)

// RegistryRow is one point definition as written in a registry file.
type RegistryRow struct {
	EntityID      Cell           `json:"Entity ID" yaml:"Entity ID"`
	EntityPoint   Cell           `json:"Entity Point" yaml:"Entity Point"`
	PointName     Cell           `json:"Volttron Point Name" yaml:"Volttron Point Name"`
	Units         Cell           `json:"Units,omitempty" yaml:"Units,omitempty"`
	Writable      Cell           `json:"Writable,omitempty" yaml:"Writable,omitempty"`
	StartingValue Cell           `json:"Starting Value,omitempty" yaml:"Starting Value,omitempty"`
	Type          Cell           `json:"Type,omitempty" yaml:"Type,omitempty"`
	Notes         Cell           `json:"Notes,omitempty" yaml:"Notes,omitempty"`
	Attributes    map[string]any `json:"Attributes,omitempty" yaml:"Attributes,omitempty"`
}

// Cell is a registry text column. JSON and YAML documents may hold numbers
// or booleans in text columns; they are kept in their textual form.
type Cell string

func (c Cell) trimmed() string { return strings.TrimSpace(string(c)) }

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*c = ""
	case string:
		*c = Cell(x)
	case json.Number:
		*c = Cell(x.String())
	case bool:
		*c = Cell(strconv.FormatBool(x))
	default:
		return fmt.Errorf("registry cell must be a scalar, got %T", v)
	}
	return nil
}

// UnmarshalYAML accepts any scalar.
func (c *Cell) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("registry cell must be a scalar (line %d)", node.Line)
	}
	if node.Tag == "!!null" {
		*c = ""
		return nil
	}
	*c = Cell(node.Value)
	return nil
}

// ParseRegistry builds registers from rows, in row order.
//
// Rows with an empty Entity ID are skipped. A point is read-only unless
// Writable is "true" (any case). Unknown type names mean string. A
// non-empty Starting Value is coerced to the declared type and recorded
// as both the revert default and the initial value.
//
// Duplicate point names, rows without a point name and unusable starting
// values are all reported together in one *ConfigError.
func ParseRegistry(rows []RegistryRow) ([]*Register, error) {
	cerr := &ConfigError{}
	seen := make(map[string]int, len(rows))
	regs := make([]*Register, 0, len(rows))

	for i, row := range rows {
		line := i + 1
		entityID := row.EntityID.trimmed()
		if entityID == "" {
			continue
		}

		name := row.PointName.trimmed()
		if name == "" {
			cerr.Problems = append(cerr.Problems, fmt.Sprintf("row %d (%s): %s is required", line, entityID, colPointName))
			continue
		}
		if first, dup := seen[name]; dup {
			cerr.Problems = append(cerr.Problems, fmt.Sprintf("row %d: duplicate point name %q (first defined in row %d)", line, name, first))
			continue
		}
		seen[name] = line

		reg := NewRegister(
			name,
			entityID,
			row.EntityPoint.trimmed(),
			ParseValueType(string(row.Type)),
			!strings.EqualFold(row.Writable.trimmed(), "true"),
		)
		reg.Units = row.Units.trimmed()
		reg.Description = row.Notes.trimmed()
		reg.Attributes = row.Attributes

		if sv := row.StartingValue.trimmed(); sv != "" {
			v, err := Coerce(reg.Type, sv)
			if err != nil {
				cerr.Problems = append(cerr.Problems, fmt.Sprintf("row %d (%s): starting value %q is not a valid %s", line, name, sv, reg.Type))
				continue
			}
			reg.setDefault(v)
			reg.setLastValue(v)
		}

		regs = append(regs, reg)
	}

	if !cerr.empty() {
		return nil, cerr
	}
	return regs, nil
}

// ParseRegistryJSON decodes a JSON array of rows after validating it
// against the registry schema.
func ParseRegistryJSON(data []byte) ([]RegistryRow, error) {
	if err := validateRegistryDocument(data); err != nil {
		return nil, err
	}
	var rows []RegistryRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, configProblem("decoding registry: %v", err)
	}
	return rows, nil
}

// ParseRegistryYAML decodes a YAML list of rows. The document is
// converted to JSON and validated with the same schema as JSON registries.
func ParseRegistryYAML(data []byte) ([]RegistryRow, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, configProblem("decoding registry: %v", err)
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, configProblem("converting registry: %v", err)
	}
	return ParseRegistryJSON(asJSON)
}

// ParseRegistryCSV reads a registry with a header row. Columns are matched
// by header name; unknown columns are ignored and an Attributes column, if
// present, must hold a JSON object.
func ParseRegistryCSV(r io.Reader) ([]RegistryRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, configProblem("registry is empty")
	}
	if err != nil {
		return nil, configProblem("reading registry header: %v", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{colEntityID, colEntityPoint, colPointName} {
		if _, ok := index[required]; !ok {
			return nil, configProblem("registry header is missing column %q", required)
		}
	}

	var rows []RegistryRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, configProblem("reading registry line %d: %v", line, err)
		}
		get := func(col string) Cell {
			if i, ok := index[col]; ok && i < len(record) {
				return Cell(record[i])
			}
			return ""
		}
		row := RegistryRow{
			EntityID:      get(colEntityID),
			EntityPoint:   get(colEntityPoint),
			PointName:     get(colPointName),
			Units:         get(colUnits),
			Writable:      get(colWritable),
			StartingValue: get(colStartingValue),
			Type:          get(colType),
			Notes:         get(colNotes),
		}
		if raw := get(colAttributes).trimmed(); raw != "" {
			if err := json.Unmarshal([]byte(raw), &row.Attributes); err != nil {
				return nil, configProblem("registry line %d: Attributes must be a JSON object: %v", line, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func configProblem(format string, args ...any) error {
	return &ConfigError{Problems: []string{fmt.Sprintf(format, args...)}}
}
