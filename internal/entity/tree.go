// Pure validation and derivation over the flat node collection. No mutation,
// no I/O.

package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cipherstudio/studio/internal/jsonldb"
)

var (
	// ErrDuplicateID is returned when two nodes share an ID.
	ErrDuplicateID = errors.New("duplicate node id")
	// ErrInvalidParent is returned when ParentID is dangling, references a
	// file, references the node itself, or closes a cycle.
	ErrInvalidParent = errors.New("invalid parent")
	// ErrMissingNodeID is returned when a node carries the zero ID.
	ErrMissingNodeID = errors.New("node id is required")
	// ErrUnknownKind is returned when Kind is neither file nor folder.
	ErrUnknownKind = errors.New("unknown node kind")
)

// ValidateNode checks one node against the rest of the collection: non-empty
// bounded name, known kind, unique ID, and a ParentID that resolves to an
// existing folder without forming a cycle.
func ValidateNode(n FileNode, nodes []FileNode) error {
	if n.ID.IsZero() {
		return ErrMissingNodeID
	}
	if err := ValidateName(n.Name); err != nil {
		return err
	}
	if !n.Kind.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownKind, n.Kind)
	}
	if n.Kind == KindFolder && n.Content != "" {
		return errors.New("folder cannot carry content")
	}

	byID := make(map[jsonldb.ID]FileNode, len(nodes))
	for _, other := range nodes {
		if other.ID == n.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
		}
		byID[other.ID] = other
	}
	return checkParent(n, byID)
}

// checkParent walks the parent chain of n through byID, rejecting dangling
// references, non-folder parents, self-references and cycles.
func checkParent(n FileNode, byID map[jsonldb.ID]FileNode) error {
	if n.ParentID.IsZero() {
		return nil
	}
	if n.ParentID == n.ID {
		return fmt.Errorf("%w: node %s is its own parent", ErrInvalidParent, n.ID)
	}
	seen := map[jsonldb.ID]bool{n.ID: true}
	cur := n.ParentID
	for !cur.IsZero() {
		if seen[cur] {
			return fmt.Errorf("%w: cycle through %s", ErrInvalidParent, cur)
		}
		seen[cur] = true
		parent, ok := byID[cur]
		if !ok {
			return fmt.Errorf("%w: %s does not exist", ErrInvalidParent, cur)
		}
		if parent.Kind != KindFolder {
			return fmt.Errorf("%w: %s is not a folder", ErrInvalidParent, cur)
		}
		cur = parent.ParentID
	}
	return nil
}

// ValidateTree checks the whole flat collection: unique IDs, every ParentID
// resolving to an existing folder, and an acyclic parent relation.
func ValidateTree(nodes []FileNode) error {
	byID := make(map[jsonldb.ID]FileNode, len(nodes))
	for _, n := range nodes {
		if n.ID.IsZero() {
			return ErrMissingNodeID
		}
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
		}
		byID[n.ID] = n
	}
	for _, n := range nodes {
		if err := ValidateName(n.Name); err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		if !n.Kind.Valid() {
			return fmt.Errorf("node %s: %w %q", n.ID, ErrUnknownKind, n.Kind)
		}
		if err := checkParent(n, byID); err != nil {
			return err
		}
	}
	return nil
}

// DeriveChildren groups nodes by ParentID, preserving the insertion order of
// the flat collection. The zero ID key holds root-level nodes. The result is
// a read-only projection; it is never persisted or mutated directly.
func DeriveChildren(nodes []FileNode) map[jsonldb.ID][]FileNode {
	children := make(map[jsonldb.ID][]FileNode)
	for _, n := range nodes {
		children[n.ParentID] = append(children[n.ParentID], n)
	}
	return children
}

// Descendants returns the IDs of all transitive children of id, in flat
// collection order. The node itself is not included.
func Descendants(nodes []FileNode, id jsonldb.ID) []jsonldb.ID {
	children := DeriveChildren(nodes)
	var out []jsonldb.ID
	queue := []jsonldb.ID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			out = append(out, child.ID)
			queue = append(queue, child.ID)
		}
	}
	return out
}

// NormalizeTree strips legacy artifacts from nodes loaded from external
// documents: folder content is cleared and names are trimmed. Dangling
// parents are not repaired here; ValidateTree rejects them.
func NormalizeTree(nodes []FileNode) []FileNode {
	out := make([]FileNode, len(nodes))
	for i, n := range nodes {
		n.Name = strings.TrimSpace(n.Name)
		if n.Kind == KindFolder {
			n.Content = ""
		}
		out[i] = n
	}
	return out
}
