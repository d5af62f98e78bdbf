// Package depgraph builds an exportable view of the task dependency graph.
package depgraph

// Node represents a node in the dependency graph.
type Node struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Kind     NodeKind          `json:"kind"`
	Status   string            `json:"status,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NodeKind classifies graph nodes.
type NodeKind string

const (
	NodeTask     NodeKind = "task"
	NodeResource NodeKind = "resource"
)

// Edge represents a directed edge between two nodes.
type Edge struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Kind   EdgeKind `json:"kind"`
	Weight float64  `json:"weight,omitempty"`
	Label  string   `json:"label,omitempty"`
}

// EdgeKind classifies relationships.
type EdgeKind string

const (
	EdgeDependsOn   EdgeKind = "depends_on"
	EdgeFallbackFor EdgeKind = "fallback_for"
	EdgeCleanupFor  EdgeKind = "cleanup_for"
	EdgeRequires    EdgeKind = "requires"
	EdgeCanUse      EdgeKind = "can_use"
)

// Graph is the full dependency graph.
type Graph struct {
	Nodes []Node     `json:"nodes"`
	Edges []Edge     `json:"edges"`
	Stats GraphStats `json:"stats"`
}

// GraphStats holds computed metrics about the graph.
type GraphStats struct {
	TotalNodes          int            `json:"total_nodes"`
	TotalEdges          int            `json:"total_edges"`
	TaskCount           int            `json:"task_count"`
	ResourceCount       int            `json:"resource_count"`
	StatusCounts        map[string]int `json:"status_counts"`
	MaxFanOut           int            `json:"max_fan_out"`  // most dependencies
	MaxFanIn            int            `json:"max_fan_in"`   // most dependents
	HotspotNode         string         `json:"hotspot_node"` // task with most dependencies
	ConnectedComponents int            `json:"connected_components"`
	Cycles              [][]string     `json:"cycles,omitempty"`
}
