package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type Use string

const (
	UseInput  Use = "input"
	UseTarget Use = "target"
	UseUnused Use = "unused"
)

type Variable struct {
	Name string `json:"name"`
	Use  Use    `json:"use"`
}

// Dataset is a numeric table with named columns. Columns take part in
// training according to their Use.
type Dataset struct {
	Name      string      `json:"name"`
	Variables []Variable  `json:"variables"`
	Rows      [][]float64 `json:"rows"`
	Split     Split       `json:"split"`
}

type LoadOptions struct {
	Name string
	// Targets names the target columns. Empty means the last column.
	Targets []string
	// Unused names columns that are loaded but neither inputs nor targets.
	Unused []string
}

func Load(in io.Reader, opts LoadOptions) (*Dataset, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("dataset csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset csv header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("dataset needs at least two columns, got %d", len(header))
	}

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = "dataset"
	}
	d := &Dataset{Name: name, Variables: make([]Variable, len(header))}
	for i, raw := range header {
		d.Variables[i] = Variable{Name: strings.TrimSpace(raw), Use: UseInput}
	}
	if err := d.assignUses(opts); err != nil {
		return nil, err
	}

	rowIndex := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset csv row %d: %w", rowIndex, err)
		}
		if blankRecord(record) {
			continue
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("dataset row %d has %d columns, want %d", rowIndex, len(record), len(header))
		}
		row := make([]float64, len(record))
		for i, raw := range record {
			value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("parse dataset row %d column %s: %w", rowIndex, d.Variables[i].Name, err)
			}
			row[i] = value
		}
		d.Rows = append(d.Rows, row)
		rowIndex++
	}
	if len(d.Rows) == 0 {
		return nil, fmt.Errorf("dataset %s has no rows", name)
	}
	d.Split = Split{Training: sequence(len(d.Rows))}
	return d, nil
}

func ReadFile(path string, opts LoadOptions) (*Dataset, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("dataset path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, opts)
}

func (d *Dataset) assignUses(opts LoadOptions) error {
	if len(opts.Targets) == 0 {
		d.Variables[len(d.Variables)-1].Use = UseTarget
	}
	for _, name := range opts.Targets {
		i, err := d.VariableIndex(name)
		if err != nil {
			return err
		}
		d.Variables[i].Use = UseTarget
	}
	for _, name := range opts.Unused {
		i, err := d.VariableIndex(name)
		if err != nil {
			return err
		}
		d.Variables[i].Use = UseUnused
	}
	if len(d.InputIndices()) == 0 {
		return fmt.Errorf("dataset has no input columns")
	}
	if len(d.TargetIndices()) == 0 {
		return fmt.Errorf("dataset has no target columns")
	}
	return nil
}

func (d *Dataset) VariableIndex(name string) (int, error) {
	name = strings.TrimSpace(name)
	for i, v := range d.Variables {
		if v.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown dataset column: %s", name)
}

func (d *Dataset) indices(use Use) []int {
	var out []int
	for i, v := range d.Variables {
		if v.Use == use {
			out = append(out, i)
		}
	}
	return out
}

func (d *Dataset) InputIndices() []int { return d.indices(UseInput) }
func (d *Dataset) TargetIndices() []int { return d.indices(UseTarget) }

func (d *Dataset) InputNames() []string {
	idx := d.InputIndices()
	out := make([]string, len(idx))
	for i, col := range idx {
		out[i] = d.Variables[col].Name
	}
	return out
}

func (d *Dataset) Uses() []Use {
	out := make([]Use, len(d.Variables))
	for i, v := range d.Variables {
		out[i] = v.Use
	}
	return out
}

func (d *Dataset) SetUses(uses []Use) error {
	if len(uses) != len(d.Variables) {
		return fmt.Errorf("uses size mismatch: got=%d want=%d", len(uses), len(d.Variables))
	}
	for i, use := range uses {
		switch use {
		case UseInput, UseTarget, UseUnused:
		default:
			return fmt.Errorf("unknown variable use %q for %s", use, d.Variables[i].Name)
		}
	}
	for i, use := range uses {
		d.Variables[i].Use = use
	}
	return nil
}

// Column returns the values of column col for the given instances.
func (d *Dataset) Column(col int, instances []int) []float64 {
	out := make([]float64, len(instances))
	for i, row := range instances {
		out[i] = d.Rows[row][col]
	}
	return out
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
