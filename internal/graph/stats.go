package graph

// Stats holds aggregate graph counts and derived metrics.
type Stats struct {
	NodeCount         int            `json:"node_count"`
	RelationshipCount int            `json:"relationship_count"`
	LabelCounts       map[string]int `json:"label_counts"`
	TypeCounts        map[string]int `json:"type_counts"`
	Density           float64        `json:"density"`
}

// NewStats builds a Stats value and computes density.
func NewStats(nodeCount, relationshipCount int, labelCounts, typeCounts map[string]int) *Stats {
	return &Stats{
		NodeCount:         nodeCount,
		RelationshipCount: relationshipCount,
		LabelCounts:       labelCounts,
		TypeCounts:        typeCounts,
		Density:           CalculateDensity(nodeCount, relationshipCount),
	}
}

// CalculateDensity returns relationshipCount / (nodeCount * (nodeCount-1))
// clamped to [0, 1]. Defined as 0 for fewer than two nodes.
func CalculateDensity(nodeCount, relationshipCount int) float64 {
	if nodeCount < 2 {
		return 0
	}
	d := float64(relationshipCount) / float64(nodeCount*(nodeCount-1))
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}
