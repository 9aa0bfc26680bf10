package fields

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// ParseJSON decodes a JSON object of field id to field metadata.
func ParseJSON(data []byte) (Table, error) {
	t := Table{}
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing json fields: %w", err)
	}
	return t.WithIDs(), nil
}

// ParseYAML decodes a YAML document holding a "fields" mapping of field id to
// field metadata.
func ParseYAML(data []byte) (Table, error) {
	doc := struct {
		Fields map[string]*Field `yaml:"fields"`
	}{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing yml fields: %w", err)
	}
	if doc.Fields == nil {
		return nil, fmt.Errorf("fields document has no fields information")
	}
	return Table(doc.Fields).WithIDs(), nil
}

// ReadFile loads a field table from a .json, .yml or .yaml file.
func ReadFile(path string) (Table, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading fields file %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return ParseYAML(data)
	}
	return ParseJSON(data)
}

// WithIDs sets every field's ID from its table key and drops null entries.
func (t Table) WithIDs() Table {
	for id, f := range t {
		if f == nil {
			delete(t, id)
			continue
		}
		f.ID = id
	}
	return t
}
