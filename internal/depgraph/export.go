package depgraph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportDOT generates a Graphviz DOT representation of the graph.
func ExportDOT(g *Graph) string {
	var b strings.Builder
	b.WriteString("digraph taskgraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\" fontsize=10];\n\n")

	for _, n := range g.Nodes {
		shape := nodeShape(n.Kind)
		color := nodeColor(n)
		b.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\" shape=%s style=filled fillcolor=\"%s\"];\n",
			n.ID, n.Name, shape, color))
	}
	b.WriteString("\n")

	for _, e := range g.Edges {
		style := edgeStyle(e.Kind)
		color := edgeColor(e.Kind)
		label := ""
		if e.Weight != 0 {
			label = fmt.Sprintf(" label=\"%g\"", e.Weight)
		} else if e.Label != "" {
			label = fmt.Sprintf(" label=\"%s\"", e.Label)
		}
		b.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [style=%s color=\"%s\"%s];\n",
			e.From, e.To, style, color, label))
	}

	b.WriteString("}\n")
	return b.String()
}

// ExportMermaid generates a Mermaid diagram of the graph.
func ExportMermaid(g *Graph) string {
	var b strings.Builder
	b.WriteString("graph LR\n")

	for _, n := range g.Nodes {
		b.WriteString(fmt.Sprintf("  %s%s\n", sanitizeID(n.ID), mermaidNodeShape(n)))
	}

	for _, e := range g.Edges {
		arrow := mermaidArrow(e.Kind)
		label := ""
		if e.Kind != EdgeDependsOn {
			label = "|" + string(e.Kind) + "|"
		}
		b.WriteString(fmt.Sprintf("  %s %s%s %s\n",
			sanitizeID(e.From), arrow, label, sanitizeID(e.To)))
	}

	return b.String()
}

// ExportJSON serializes the graph to JSON.
func ExportJSON(g *Graph) ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

func sanitizeID(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}

func nodeShape(kind NodeKind) string {
	switch kind {
	case NodeTask:
		return "box"
	case NodeResource:
		return "ellipse"
	default:
		return "box"
	}
}

func nodeColor(n Node) string {
	if n.Kind == NodeResource {
		return "#8957e5"
	}
	switch n.Status {
	case "completed":
		return "#238636"
	case "running":
		return "#1f6feb"
	case "failed":
		return "#f85149"
	case "ready":
		return "#d29922"
	default:
		return "#30363d"
	}
}

func edgeStyle(kind EdgeKind) string {
	switch kind {
	case EdgeDependsOn:
		return "solid"
	case EdgeFallbackFor:
		return "dashed"
	case EdgeCleanupFor:
		return "dotted"
	case EdgeRequires, EdgeCanUse:
		return "bold"
	default:
		return "solid"
	}
}

func edgeColor(kind EdgeKind) string {
	switch kind {
	case EdgeDependsOn:
		return "#3fb950"
	case EdgeFallbackFor:
		return "#d29922"
	case EdgeCleanupFor:
		return "#8b949e"
	case EdgeRequires:
		return "#f85149"
	case EdgeCanUse:
		return "#8957e5"
	default:
		return "#c9d1d9"
	}
}

func mermaidNodeShape(n Node) string {
	switch n.Kind {
	case NodeResource:
		return fmt.Sprintf("([\"%s\"])", n.Name)
	default:
		return fmt.Sprintf("[\"%s\"]", n.Name)
	}
}

func mermaidArrow(kind EdgeKind) string {
	switch kind {
	case EdgeDependsOn:
		return "-->"
	case EdgeFallbackFor:
		return "-.->"
	case EdgeCleanupFor:
		return "-..->"
	case EdgeRequires, EdgeCanUse:
		return "==>"
	default:
		return "-->"
	}
}
