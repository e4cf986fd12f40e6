// Loads the starter project template from the embedded YAML definition.

package storage

import (
	_ "embed"
	"fmt"

	"github.com/cipherstudio/studio/internal/entity"
	"github.com/cipherstudio/studio/internal/jsonldb"
	"gopkg.in/yaml.v3"
)

//go:embed template.yaml
var templateYAML []byte

type templateFile struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Parent  string `yaml:"parent,omitempty"`
	Content string `yaml:"content,omitempty"`
}

type templateDef struct {
	Files []templateFile `yaml:"files"`
}

// StarterFiles materializes the starter template with fresh node IDs.
// Template entries may reference a parent folder by name; the referenced
// folder must be declared earlier in the file.
func StarterFiles() ([]entity.FileNode, error) {
	var def templateDef
	if err := yaml.Unmarshal(templateYAML, &def); err != nil {
		return nil, fmt.Errorf("failed to parse starter template: %w", err)
	}

	byName := make(map[string]jsonldb.ID, len(def.Files))
	nodes := make([]entity.FileNode, 0, len(def.Files))
	for _, f := range def.Files {
		kind := entity.NodeKind(f.Kind)
		if !kind.Valid() {
			return nil, fmt.Errorf("starter template entry %q: unknown kind %q", f.Name, f.Kind)
		}
		var parentID jsonldb.ID
		if f.Parent != "" {
			id, ok := byName[f.Parent]
			if !ok {
				return nil, fmt.Errorf("starter template entry %q: parent %q not declared", f.Name, f.Parent)
			}
			parentID = id
		}
		n := entity.FileNode{
			ID:       jsonldb.NewID(),
			Name:     f.Name,
			Kind:     kind,
			ParentID: parentID,
		}
		if kind == entity.KindFile {
			n.Content = f.Content
		}
		byName[f.Name] = n.ID
		nodes = append(nodes, n)
	}

	if err := entity.ValidateTree(nodes); err != nil {
		return nil, fmt.Errorf("starter template is invalid: %w", err)
	}
	return nodes, nil
}
