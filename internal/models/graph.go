// Package models defines the core data structures of the SOP dependency graph.
// It includes node and edge definitions plus read-only helpers used by the
// traversal, validation and reporting packages.
package models

import "sort"

type NodeType string

const (
	NodeAtom     NodeType = "atom"
	NodeMolecule NodeType = "molecule"
	NodeOrganism NodeType = "organism"
	NodeSOP      NodeType = "sop"

	NodeJourney NodeType = "journey"
	NodePhase   NodeType = "phase"
	NodeModule  NodeType = "module"
)

// Known reports whether t belongs to the closed tag set of either graph flavor.
func (t NodeType) Known() bool {
	switch t {
	case NodeAtom, NodeMolecule, NodeOrganism, NodeSOP, NodeJourney, NodePhase, NodeModule:
		return true
	}
	return false
}

type EdgeType string

const (
	EdgeComponentOf   EdgeType = "component-of"
	EdgeDependsOn     EdgeType = "depends-on"
	EdgeRelatedTo     EdgeType = "related-to"
	EdgeUsesComponent EdgeType = "uses-component"
)

type Strength string

const (
	StrengthNormal Strength = "normal"
	StrengthStrong Strength = "strong"
)

type Flavor string

const (
	FlavorSOP     Flavor = "sop"
	FlavorJourney Flavor = "journey"
)

type Graph struct {
	Metadata map[string]any   `json:"metadata,omitempty"`
	Nodes    map[string]*Node `json:"nodes"`
	Edges    []Edge           `json:"edges"`
}

type Edge struct {
	Source      string         `json:"source"`
	Target      string         `json:"target"`
	Type        EdgeType       `json:"type"`
	Strength    Strength       `json:"strength,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// IsStrong reports whether the edge is marked as a critical dependency.
// An empty strength means normal.
func (e Edge) IsStrong() bool {
	return e.Strength == StrengthStrong
}

// Reason returns metadata.reason when present.
func (e Edge) Reason() string {
	if r, ok := e.Metadata["reason"].(string); ok {
		return r
	}
	return ""
}

type Stats struct {
	TotalNodes  int              `json:"total_nodes"`
	TotalEdges  int              `json:"total_edges"`
	NodesByType map[NodeType]int `json:"nodes_by_type,omitempty"`
	EdgesByType map[EdgeType]int `json:"edges_by_type,omitempty"`
	StrongEdges int              `json:"strong_edges"`
}

// Node returns the node stored under id.
func (g *Graph) Node(id string) (*Node, bool) {
	if g == nil || g.Nodes == nil {
		return nil, false
	}
	n, ok := g.Nodes[id]
	return n, ok && n != nil
}

// NodeIDs returns every node key in sorted order. All packages iterate the
// graph in this order so results are deterministic.
func (g *Graph) NodeIDs() []string {
	if g == nil {
		return nil
	}
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *Graph) NodesOfType(t NodeType) []*Node {
	var out []*Node
	for _, id := range g.NodeIDs() {
		if n := g.Nodes[id]; n != nil && n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// ContainmentEdges derives parent -> child edges from the containment lists
// (composedOf, components, atoms, modules, phases). The edges are not part of
// g.Edges; validators use them to check that containment is acyclic.
func (g *Graph) ContainmentEdges() []Edge {
	var edges []Edge
	for _, id := range g.NodeIDs() {
		n := g.Nodes[id]
		if n == nil {
			continue
		}
		for _, child := range n.Children() {
			edges = append(edges, Edge{Source: id, Target: child, Type: EdgeUsesComponent})
		}
	}
	return edges
}

func (g *Graph) Flavor() Flavor {
	for _, n := range g.Nodes {
		if n == nil {
			continue
		}
		switch n.Type {
		case NodeJourney, NodePhase, NodeModule:
			return FlavorJourney
		}
	}
	return FlavorSOP
}

func (g *Graph) Stats() Stats {
	stats := Stats{
		TotalNodes:  len(g.Nodes),
		TotalEdges:  len(g.Edges),
		NodesByType: make(map[NodeType]int),
		EdgesByType: make(map[EdgeType]int),
	}

	for _, n := range g.Nodes {
		if n != nil {
			stats.NodesByType[n.Type]++
		}
	}

	for _, e := range g.Edges {
		stats.EdgesByType[e.Type]++
		if e.IsStrong() {
			stats.StrongEdges++
		}
	}

	return stats
}
