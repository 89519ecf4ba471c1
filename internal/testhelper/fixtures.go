// Package testhelper loads column-table fixtures from YAML for use by the
// engine's package tests. Grounded in the teacher's
// internal/testhelper/examples_test.go, which unmarshals a YAML fixture
// file into typed Go structs with gopkg.in/yaml.v3 and builds runnable
// state from it; this rewrite keeps that YAML-fixture idiom but builds
// table.ColumnarTables via the column package's typed writers instead of
// driving CREATE TABLE/INSERT statements through a SQL parser, since this
// engine has no SQL frontend to drive.
package testhelper

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tinycolex/colexec/internal/column"
	"github.com/tinycolex/colexec/internal/table"
)

// ColumnSpec is one column of a fixture table: its name, scalar type, and
// values, where a nil entry in Values encodes a SQL-style NULL.
type ColumnSpec struct {
	Name   string        `yaml:"name"`
	Type   string        `yaml:"type"`
	Values []interface{} `yaml:"values"`
}

// TableSpec is a fixture table: an ordered list of columns (a YAML
// sequence, not a map, so declaration order survives decoding).
type TableSpec struct {
	Columns []ColumnSpec `yaml:"columns"`
}

// FixtureFile is the root of a fixtures YAML document: named tables, each
// a set of equal-length typed columns.
type FixtureFile struct {
	Tables map[string]TableSpec `yaml:"tables"`
}

// LoadFixtures parses a YAML fixture file into typed ColumnarTables, one
// per declared table, in the table's declared column order.
func LoadFixtures(path string) (map[string]*table.ColumnarTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testhelper: read fixture %s: %w", path, err)
	}
	var f FixtureFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("testhelper: parse fixture %s: %w", path, err)
	}

	out := make(map[string]*table.ColumnarTable, len(f.Tables))
	for name, spec := range f.Tables {
		ct, err := buildTable(spec)
		if err != nil {
			return nil, fmt.Errorf("testhelper: fixture table %q: %w", name, err)
		}
		out[name] = ct
	}
	return out, nil
}

func buildTable(spec TableSpec) (*table.ColumnarTable, error) {
	ct := &table.ColumnarTable{Columns: make([]*table.Column, len(spec.Columns))}
	for i, cs := range spec.Columns {
		col, err := buildColumn(cs)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", cs.Name, err)
		}
		ct.Columns[i] = col
		if i == 0 {
			ct.NumRows = col.Rows
		}
	}
	return ct, nil
}

func buildColumn(cs ColumnSpec) (*table.Column, error) {
	switch cs.Type {
	case "i32":
		w := column.NewI32Writer()
		for _, v := range cs.Values {
			if v == nil {
				w.Append(0, false)
				continue
			}
			n, err := toInt(v)
			if err != nil {
				return nil, err
			}
			w.Append(int32(n), true)
		}
		return w.Finish(), nil
	case "i64":
		w := column.NewI64Writer()
		for _, v := range cs.Values {
			if v == nil {
				w.Append(0, false)
				continue
			}
			n, err := toInt(v)
			if err != nil {
				return nil, err
			}
			w.Append(n, true)
		}
		return w.Finish(), nil
	case "f64":
		w := column.NewF64Writer()
		for _, v := range cs.Values {
			if v == nil {
				w.Append(0, false)
				continue
			}
			f, err := toFloat(v)
			if err != nil {
				return nil, err
			}
			w.Append(f, true)
		}
		return w.Finish(), nil
	case "string":
		w := column.NewStringWriter()
		for _, v := range cs.Values {
			if v == nil {
				w.Append("", false)
				continue
			}
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("value %v is not a string", v)
			}
			w.Append(s, true)
		}
		return w.Finish(), nil
	default:
		return nil, fmt.Errorf("unknown column type %q", cs.Type)
	}
}

func toInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, fmt.Errorf("value %v is not an integer", v)
	}
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("value %v is not a number", v)
	}
}
