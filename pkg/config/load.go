package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML or JSON configuration file into Values. The order of the
// `loaders` mapping is preserved so the chain tries loaders in document order.
func Load(path string) (Values, error) {
	if path == "" {
		return nil, fmt.Errorf("config: path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	values, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return values, nil
}

// Parse decodes YAML (or JSON, which YAML accepts) configuration bytes.
func Parse(data []byte) (Values, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Values{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config: top level must be a mapping")
	}

	// yaml.v3 reuses a named map type for nested mappings, so only the top
	// level becomes Values.
	var raw map[string]any
	if err := root.Decode(&raw); err != nil {
		return nil, err
	}
	values := Values(raw)
	if values == nil {
		values = Values{}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != KeyLoaders {
			continue
		}
		specs, err := decodeLoaderNode(root.Content[i+1])
		if err != nil {
			return nil, err
		}
		values[KeyLoaders] = specs
	}
	return values, nil
}

func decodeLoaderNode(node *yaml.Node) ([]LoaderSpec, error) {
	switch node.Kind {
	case yaml.MappingNode:
		specs := make([]LoaderSpec, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var args any
			if err := node.Content[i+1].Decode(&args); err != nil {
				return nil, fmt.Errorf("config: loader %q: %w", node.Content[i].Value, err)
			}
			specs = append(specs, LoaderSpec{
				Name: node.Content[i].Value,
				Args: argumentList(args),
			})
		}
		return specs, nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("config: %q must be a mapping of loader name to arguments", KeyLoaders)
}
