package graph

import (
	"slices"

	"github.com/sopforge/core/internal/models"
)

// Neighbor is one direct relationship of a node. Node is nil when the edge
// points at an id that is not in the graph.
type Neighbor struct {
	ID   string       `json:"id"`
	Node *models.Node `json:"-"`
	Edge models.Edge  `json:"edge"`
}

func (n Neighbor) Strong() bool {
	return n.Edge.IsStrong()
}

// Usage relationships reported by ComponentUsage.
const (
	RelUsesComponent     = "uses-component"
	RelIncludesComponent = "includes-component"
)

// Usage is a node that lists a component among its children.
type Usage struct {
	ID           string       `json:"id"`
	Node         *models.Node `json:"-"`
	Relationship string       `json:"relationship"`
}

// Dependencies returns the targets of edges leaving id, in graph order.
func Dependencies(g *models.Graph, id string) ([]Neighbor, error) {
	return neighbors(g, id, Downstream)
}

// Dependents returns the sources of edges entering id, in graph order.
func Dependents(g *models.Graph, id string) ([]Neighbor, error) {
	return neighbors(g, id, Upstream)
}

func neighbors(g *models.Graph, id string, dir Direction) ([]Neighbor, error) {
	if _, ok := g.Node(id); !ok {
		return nil, &NotFoundError{ID: id, Available: g.NodeIDs()}
	}

	var out []Neighbor
	for _, e := range adjacency(g.Edges, dir)[id] {
		other := farEnd(e, dir)
		n, _ := g.Node(other)
		out = append(out, Neighbor{ID: other, Node: n, Edge: e})
	}
	return out, nil
}

// ComponentUsage returns the nodes that list id in composedOf or components,
// in sorted id order.
func ComponentUsage(g *models.Graph, id string) []Usage {
	var out []Usage
	for _, parentID := range g.NodeIDs() {
		parent := g.Nodes[parentID]
		if parent == nil || parent.Composition == nil {
			continue
		}
		if slices.Contains(parent.ComposedOf, id) {
			out = append(out, Usage{ID: parentID, Node: parent, Relationship: RelUsesComponent})
		}
		if slices.Contains(parent.Components, id) {
			out = append(out, Usage{ID: parentID, Node: parent, Relationship: RelIncludesComponent})
		}
	}
	return out
}
