package colmap

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GridFile is the YAML shape of a grid definition: a source table plus its
// ordered column configurations.
type GridFile struct {
	Source  string         `yaml:"source"`
	Columns []ColumnConfig `yaml:"columns"`

	// Filter names the shared cross-filter selection this grid reads and
	// publishes to; grids naming the same selection cross-filter each other.
	Filter string `yaml:"filter"`
	// RowSelection names the shared row-selection broadcast, keyed by RowKey.
	RowSelection string `yaml:"rowSelection"`
	RowKey       string `yaml:"rowKey"`
	// Highlight appends the 0/1 emphasis column to every row query.
	Highlight bool `yaml:"highlight"`
}

// GridsFile is the YAML shape of a configuration file declaring one or more
// named grids.
type GridsFile struct {
	Grids map[string]GridFile `yaml:"grids"`
}

// LoadFile reads a grids YAML file and builds a validated Mapper per grid.
// Unknown YAML fields are rejected so typos in column configuration fail at
// load time rather than silently degrading.
func LoadFile(path string) (map[string]GridFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grid config: %w", err)
	}
	return Parse(data)
}

// Parse decodes grid configuration YAML.
func Parse(data []byte) (map[string]GridFile, error) {
	var file GridsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse grid config: %w", err)
	}
	if len(file.Grids) == 0 {
		return nil, fmt.Errorf("grid config declares no grids")
	}
	for name, grid := range file.Grids {
		if grid.Source == "" {
			return nil, fmt.Errorf("grid %q: source is required", name)
		}
		// Validate columns eagerly; the caller rebuilds mappers on demand.
		if _, err := New(grid.Columns); err != nil {
			return nil, fmt.Errorf("grid %q: %w", name, err)
		}
	}
	return file.Grids, nil
}
