// Package graph defines the value objects and narrow storage contracts the
// scheduling and analysis layers are built on. In-memory Node and
// Relationship values are transient snapshots; the backing store owns
// persisted state.
package graph

import (
	"strings"
	"time"
)

// Node is a labeled entity with an identity and a property map.
type Node struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// NewNode validates and constructs a Node. The ID is trimmed and must be
// non-empty; labels must each be non-empty after trimming.
func NewNode(id string, labels []string, properties map[string]any) (*Node, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, NewValidationError("id", "must not be empty")
	}
	cleaned := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			return nil, NewValidationError("labels", "label must not be empty")
		}
		cleaned = append(cleaned, l)
	}
	props := make(map[string]any, len(properties))
	for k, v := range properties {
		props[k] = v
	}
	return &Node{ID: id, Labels: cleaned, Properties: props}, nil
}

// HasLabel reports whether the node carries the given label. Label order is
// insignificant.
func (n *Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// SetProperty sets a property and stamps updated_at.
func (n *Node) SetProperty(key string, value any) {
	if n.Properties == nil {
		n.Properties = make(map[string]any)
	}
	n.Properties[key] = value
	n.Properties["updated_at"] = time.Now().UTC().Format(time.RFC3339)
}

// RemoveProperty deletes a property and stamps updated_at.
func (n *Node) RemoveProperty(key string) {
	if n.Properties == nil {
		return
	}
	delete(n.Properties, key)
	n.Properties["updated_at"] = time.Now().UTC().Format(time.RFC3339)
}

// StringProperty returns a string property, or "" when absent or not a
// string.
func (n *Node) StringProperty(key string) string {
	if n.Properties == nil {
		return ""
	}
	s, _ := n.Properties[key].(string)
	return s
}

// FloatProperty returns a numeric property as float64. Neo4j returns
// integers as int64, so both encodings are accepted.
func (n *Node) FloatProperty(key string) (float64, bool) {
	if n.Properties == nil {
		return 0, false
	}
	return asFloat(n.Properties[key])
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
