package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/phrazzld/verbdrill/internal/domain"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

type yamlCatalog struct {
	Items []domain.Item `yaml:"items"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Static, error) {
	return parseYAML(defaultCatalogYAML)
}

// LoadYAML reads a catalog document of the form
//
//	items:
//	  - id: go
//	    category: irregular
//	    fields: {base_form: go, simple_past: went, past_participle: gone}
func LoadYAML(r io.Reader) (*Static, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return parseYAML(data)
}

// LoadYAMLFile reads a YAML catalog from path.
func LoadYAMLFile(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return LoadYAML(f)
}

func parseYAML(data []byte) (*Static, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: catalog yaml: %w", domain.ErrInvalidFormat, err)
	}
	return NewStatic(doc.Items)
}
