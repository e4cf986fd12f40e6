package editor

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cipherstudio/studio/internal/entity"
)

// Export writes the project as indented JSON, suitable for backup or
// transfer between installations.
func Export(w io.Writer, p *entity.Project) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p.Clone()); err != nil {
		return fmt.Errorf("export project: %w", err)
	}
	return nil
}

// Import reads a project previously written by Export. Unknown fields are
// ignored, which also drops any legacy nested children embedded in nodes;
// the flat collection is re-normalized and validated before the project is
// accepted.
func Import(r io.Reader) (*entity.Project, error) {
	var p entity.Project
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("import project: %w", err)
	}
	p.Files = entity.NormalizeTree(p.Files)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("import project: %w", err)
	}
	return &p, nil
}
