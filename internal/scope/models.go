package scope

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// modelsFile is the YAML shape of a model-declaration source.
type modelsFile struct {
	Extensions []ExtensionDeclaration `yaml:"extensions"`
	Tables     []TableDeclaration     `yaml:"tables"`
}

// LoadModels reads a model-declaration file and returns a populated Registry.
// The file carries explicit scope tags per declaration; nothing is inferred
// from file paths.
func LoadModels(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading models file %s: %w", path, err)
	}

	var raw modelsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing models file %s: %w", path, err)
	}

	reg := NewRegistry()

	for _, ext := range raw.Extensions {
		if err := reg.DeclareExtension(ext); err != nil {
			return nil, fmt.Errorf("models file %s: %w", path, err)
		}
	}

	for _, table := range raw.Tables {
		if err := reg.DeclareTable(table); err != nil {
			return nil, fmt.Errorf("models file %s: %w", path, err)
		}
	}

	return reg, nil
}
