// Package visualize renders a documentation graph as Mermaid, Graphviz DOT
// or plain-text diagrams.
package visualize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sopforge/core/internal/models"
)

type Format string

const (
	Mermaid Format = "mermaid"
	DOT     Format = "dot"
	ASCII   Format = "ascii"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mermaid":
		return Mermaid, nil
	case "dot", "graphviz":
		return DOT, nil
	case "ascii", "text":
		return ASCII, nil
	}
	return "", fmt.Errorf("unknown format %q (want mermaid, dot or ascii)", s)
}

// Filename is the default output file name for the format.
func (f Format) Filename() string {
	switch f {
	case DOT:
		return "sop-graph.dot"
	case ASCII:
		return "sop-graph.txt"
	default:
		return "sop-graph.mermaid.md"
	}
}

func Render(g *models.Graph, f Format) (string, error) {
	switch f {
	case Mermaid:
		return RenderMermaid(g), nil
	case DOT:
		return RenderDOT(g), nil
	case ASCII:
		return RenderASCII(g), nil
	}
	return "", fmt.Errorf("unknown format %q", f)
}

type style struct {
	mermaidOpen, mermaidClose string
	mermaidClass              string
	dotShape, dotColor        string
	icon                      string
}

var styles = map[models.NodeType]style{
	models.NodeSOP:      {"[", "]", "sopStyle", "box", "lightblue", "📄"},
	models.NodeOrganism: {"([", "])", "organismStyle", "ellipse", "plum", "🔷"},
	models.NodeMolecule: {"[[", "]]", "moleculeStyle", "diamond", "lightgreen", "🔹"},
	models.NodeAtom:     {"(((", ")))", "atomStyle", "circle", "lightyellow", "⚛"},
	models.NodeJourney:  {"[/", "/]", "journeyStyle", "house", "lightcoral", "🧭"},
	models.NodePhase:    {"{{", "}}", "phaseStyle", "hexagon", "lightsalmon", "▶"},
	models.NodeModule:   {"[(", ")]", "moduleStyle", "cylinder", "khaki", "▣"},
}

var defaultStyle = style{"[", "]", "", "box", "white", "•"}

// tiers is the display order of node types, outermost first.
var tiers = []models.NodeType{
	models.NodeJourney, models.NodePhase, models.NodeModule,
	models.NodeSOP, models.NodeOrganism, models.NodeMolecule, models.NodeAtom,
}

func styleOf(t models.NodeType) style {
	if s, ok := styles[t]; ok {
		return s
	}
	return defaultStyle
}

// RenderMermaid returns a fenced "graph TD" block. Strong edges use thick
// arrows and component-of edges dotted ones.
func RenderMermaid(g *models.Graph) string {
	var b strings.Builder
	b.WriteString("```mermaid\ngraph TD\n")

	for _, id := range g.NodeIDs() {
		n := g.Nodes[id]
		if n == nil {
			continue
		}
		s := styleOf(n.Type)
		fmt.Fprintf(&b, "    %s%s\"%s\"%s\n", id, s.mermaidOpen, mermaidLabel(label(id, n)), s.mermaidClose)
		if s.mermaidClass != "" {
			fmt.Fprintf(&b, "    class %s %s\n", id, s.mermaidClass)
		}
	}
	b.WriteString("\n")

	for _, e := range g.Edges {
		fmt.Fprintf(&b, "    %s %s|%s| %s\n", e.Source, mermaidArrow(e), edgeLabel(e), e.Target)
	}

	b.WriteString(`
    classDef journeyStyle fill:#fde2e4,stroke:#9d0208,stroke-width:3px
    classDef phaseStyle fill:#ffe8d6,stroke:#bc6c25,stroke-width:2px
    classDef moduleStyle fill:#fefae0,stroke:#606c38,stroke-width:2px
    classDef sopStyle fill:#e1f5ff,stroke:#01579b,stroke-width:3px
    classDef organismStyle fill:#f3e5f5,stroke:#4a148c,stroke-width:2px
    classDef moleculeStyle fill:#e8f5e9,stroke:#1b5e20,stroke-width:2px
    classDef atomStyle fill:#fff3e0,stroke:#e65100,stroke-width:1px
`)
	b.WriteString("```\n")
	return b.String()
}

func mermaidArrow(e models.Edge) string {
	switch {
	case e.IsStrong():
		return "==>"
	case e.Type == models.EdgeComponentOf:
		return "-.->"
	default:
		return "-->"
	}
}

func mermaidLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

func edgeLabel(e models.Edge) string {
	if e.Type == models.EdgeDependsOn {
		return "depends on"
	}
	return string(e.Type)
}

// RenderDOT returns a Graphviz digraph with a legend cluster.
func RenderDOT(g *models.Graph) string {
	var b strings.Builder
	b.WriteString("digraph SOPGraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"Arial\", fontsize=10];\n")
	b.WriteString("  edge [fontname=\"Arial\", fontsize=8];\n\n")

	for _, id := range g.NodeIDs() {
		n := g.Nodes[id]
		if n == nil {
			continue
		}
		s := styleOf(n.Type)
		fmt.Fprintf(&b, "  %q [label=%q, shape=%s, style=filled, fillcolor=%q];\n", id, label(id, n), s.dotShape, s.dotColor)
	}
	b.WriteString("\n")

	for _, e := range g.Edges {
		style, color := "solid", "blue"
		if e.IsStrong() {
			style = "bold"
		}
		if e.Type == models.EdgeDependsOn {
			color = "red"
		}
		lbl := string(e.Type)
		if e.Description != "" {
			lbl = truncate(e.Description, 30)
		}
		fmt.Fprintf(&b, "  %q -> %q [label=%q, style=%s, color=%s];\n", e.Source, e.Target, lbl, style, color)
	}

	b.WriteString("\n  subgraph cluster_legend {\n")
	b.WriteString("    label=\"Legend\";\n")
	b.WriteString("    style=filled;\n")
	b.WriteString("    color=lightgrey;\n")
	b.WriteString("    node [style=filled];\n")
	for _, t := range legendTypes(g) {
		s := styleOf(t)
		fmt.Fprintf(&b, "    %q [fillcolor=%q, shape=%s];\n", "legend-"+string(t), s.dotColor, s.dotShape)
	}
	b.WriteString("  }\n")
	b.WriteString("}\n")
	return b.String()
}

// legendTypes lists the tiers present in g.
func legendTypes(g *models.Graph) []models.NodeType {
	present := g.Stats().NodesByType
	var out []models.NodeType
	for _, t := range tiers {
		if present[t] > 0 {
			out = append(out, t)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// RenderASCII lists nodes grouped by tier with their outgoing edges, followed
// by edge statistics.
func RenderASCII(g *models.Graph) string {
	var b strings.Builder
	rule := strings.Repeat("─", 60)

	b.WriteString("\n")
	b.WriteString("╔════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║              SOP DEPENDENCY GRAPH (ASCII View)             ║\n")
	b.WriteString("╚════════════════════════════════════════════════════════════╝\n\n")

	outgoing := make(map[string][]models.Edge)
	for _, e := range g.Edges {
		outgoing[e.Source] = append(outgoing[e.Source], e)
	}

	for _, t := range tiers {
		nodes := g.NodesOfType(t)
		if len(nodes) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%sS:\n%s\n", strings.ToUpper(string(t)), rule)

		for _, n := range nodes {
			fmt.Fprintf(&b, "  %s %s\n", styleOf(t).icon, n.ID)
			title := n.Title
			if title == "" {
				title = "Untitled"
			}
			fmt.Fprintf(&b, "     └─ %s\n", title)
			if n.Version != "" {
				fmt.Fprintf(&b, "        Version: %s\n", n.Version)
			}
			if deps := outgoing[n.ID]; len(deps) > 0 {
				b.WriteString("        Dependencies:\n")
				for _, e := range deps {
					arrow := "───>"
					if e.IsStrong() {
						arrow = "═══>"
					}
					target := "Unknown"
					if tn, ok := g.Node(e.Target); ok && tn.Title != "" {
						target = tn.Title
					}
					fmt.Fprintf(&b, "          %s %s (%s)\n", arrow, e.Target, target)
				}
			}
			b.WriteString("\n")
		}
	}

	stats := g.Stats()
	fmt.Fprintf(&b, "\nDEPENDENCY STATISTICS:\n%s\n", rule)
	types := make([]string, 0, len(stats.EdgesByType))
	for t := range stats.EdgesByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(&b, "  %s: %d\n", t, stats.EdgesByType[models.EdgeType(t)])
	}
	fmt.Fprintf(&b, "  Strong dependencies: %d\n\n", stats.StrongEdges)
	return b.String()
}

func label(id string, n *models.Node) string {
	if n.Title != "" {
		return n.Title
	}
	return id
}
