package importer

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// Kind names what an uploaded file contains
type Kind string

const (
	KindLicenses    Kind = "licenses"
	KindEmployees   Kind = "employees"
	KindGroups      Kind = "groups"
	KindAssignments Kind = "assignments"
	KindSeats       Kind = "seats"
)

// Kinds lists every import kind in display order
var Kinds = []Kind{KindLicenses, KindEmployees, KindGroups, KindAssignments, KindSeats}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Template describes the columns of one import kind
type Template struct {
	Label      string     `yaml:"label" json:"label"`
	Required   []string   `yaml:"required" json:"required"`
	Headers    []string   `yaml:"headers" json:"headers"`
	SampleRows [][]string `yaml:"sample_rows" json:"-"`
}

//go:embed templates.yaml
var catalogYAML []byte

var catalog = sync.OnceValues(func() (map[Kind]*Template, error) {
	var c map[Kind]*Template
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, fmt.Errorf("failed to parse template catalog: %w", err)
	}
	for _, k := range Kinds {
		if c[k] == nil {
			return nil, fmt.Errorf("template catalog has no %s entry", k)
		}
	}
	return c, nil
})

// TemplateFor returns the column description of kind
func TemplateFor(kind Kind) (*Template, error) {
	c, err := catalog()
	if err != nil {
		return nil, err
	}
	t, ok := c[kind]
	if !ok {
		return nil, fmt.Errorf("unknown import kind %q", kind)
	}
	return t, nil
}

// TemplateCSV renders a sample file for kind. It starts with a UTF-8 byte
// order mark so spreadsheet programs pick the right encoding.
func TemplateCSV(kind Kind) ([]byte, error) {
	t, err := TemplateFor(kind)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Headers); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.SampleRows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
