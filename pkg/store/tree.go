// Package store provides the mutable store shared by processes within one
// invocation: an opaque, arbitrarily nested key-value tree. The host
// serializes the tree between invocations and reloads it unmodified for
// the next one. Invocations never overlap, so the tree carries no locks.
package store

import (
	"encoding/json"
	"fmt"
)

// Tree is the nested key-value store handed to every process. Interior
// nodes are maps; leaves are whatever a process put there. Within one
// invocation later (lower-priority) processes observe earlier processes'
// writes by construction of sequential execution.
type Tree struct {
	root map[string]any
}

// NewTree creates an empty store tree.
func NewTree() *Tree {
	return &Tree{root: make(map[string]any)}
}

// Get walks the path and returns the value at its end. The second return
// is false when any path segment is missing or a non-map is traversed.
func (t *Tree) Get(path ...string) (any, bool) {
	if len(path) == 0 {
		return t.root, true
	}
	node := t.root
	for _, key := range path[:len(path)-1] {
		next, ok := node[key].(map[string]any)
		if !ok {
			return nil, false
		}
		node = next
	}
	v, ok := node[path[len(path)-1]]
	return v, ok
}

// GetFloat reads a numeric leaf, tolerating the float64 that JSON
// round-tripping produces for every number.
func (t *Tree) GetFloat(path ...string) (float64, bool) {
	v, ok := t.Get(path...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// GetString reads a string leaf.
func (t *Tree) GetString(path ...string) (string, bool) {
	v, ok := t.Get(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set writes a value at the path, creating interior maps as needed.
// Setting through an existing non-map leaf replaces it.
func (t *Tree) Set(value any, path ...string) error {
	if len(path) == 0 {
		return fmt.Errorf("store: empty path")
	}
	node := t.root
	for _, key := range path[:len(path)-1] {
		next, ok := node[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[key] = next
		}
		node = next
	}
	node[path[len(path)-1]] = value
	return nil
}

// Delete removes the value at the path. Missing paths are a no-op.
func (t *Tree) Delete(path ...string) {
	if len(path) == 0 {
		return
	}
	node := t.root
	for _, key := range path[:len(path)-1] {
		next, ok := node[key].(map[string]any)
		if !ok {
			return
		}
		node = next
	}
	delete(node, path[len(path)-1])
}

// Len returns the number of top-level keys.
func (t *Tree) Len() int { return len(t.root) }

// Marshal serializes the tree for host hand-off.
func (t *Tree) Marshal() ([]byte, error) {
	return json.Marshal(t.root)
}

// Unmarshal replaces the tree contents with previously serialized data.
func (t *Tree) Unmarshal(data []byte) error {
	root := make(map[string]any)
	if err := json.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("store: decode tree: %w", err)
	}
	t.root = root
	return nil
}

// Load builds a tree from previously serialized data.
func Load(data []byte) (*Tree, error) {
	t := NewTree()
	if err := t.Unmarshal(data); err != nil {
		return nil, err
	}
	return t, nil
}
