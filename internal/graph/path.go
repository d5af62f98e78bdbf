package graph

// Path is an ordered sequence of nodes and the relationships connecting
// them. Length equals the number of relationships.
type Path struct {
	Nodes         []*Node         `json:"nodes"`
	Relationships []*Relationship `json:"relationships"`
}

// NewPath constructs a Path, checking the length invariant: a path over N
// nodes has exactly N-1 relationships (an empty path has neither).
func NewPath(nodes []*Node, relationships []*Relationship) (*Path, error) {
	if len(nodes) == 0 {
		if len(relationships) != 0 {
			return nil, NewValidationError("relationships", "empty path must have no relationships")
		}
		return &Path{}, nil
	}
	if len(relationships) != len(nodes)-1 {
		return nil, NewValidationError("relationships", "relationship count must equal node count minus one")
	}
	return &Path{Nodes: nodes, Relationships: relationships}, nil
}

// Length is the number of relationships in the path.
func (p *Path) Length() int { return len(p.Relationships) }

// NodeIDs returns the node identities in path order.
func (p *Path) NodeIDs() []string {
	ids := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.ID
	}
	return ids
}
