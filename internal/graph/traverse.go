package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sopforge/core/internal/models"
)

// Direction selects which edges a traversal follows.
type Direction int

const (
	// Downstream follows outgoing edges (edge.Source == current).
	Downstream Direction = iota
	// Upstream follows incoming edges (edge.Target == current).
	Upstream
)

func (d Direction) String() string {
	if d == Upstream {
		return "upstream"
	}
	return "downstream"
}

// ParseDirection accepts "downstream", "upstream" or an empty string.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "downstream", "down":
		return Downstream, nil
	case "upstream", "up":
		return Upstream, nil
	}
	return Downstream, fmt.Errorf("invalid direction %q: must be downstream or upstream", s)
}

type Options struct {
	Direction Direction
	// IncludeStart puts the start node first in the result. Without it the
	// start node is never part of the result, even when a cycle leads back.
	IncludeStart bool
}

// DanglingEdge is an edge whose far end does not resolve to a node.
type DanglingEdge struct {
	Edge    models.Edge `json:"edge"`
	Missing string      `json:"missing"`
}

// Reachability is the result of Reachable.
type Reachability struct {
	Start string `json:"start"`
	// Nodes holds reachable ids in depth-first pre-order.
	Nodes []string `json:"nodes"`
	// Edges holds every edge followed from an expanded node whose far end
	// exists, in visit order.
	Edges    []models.Edge  `json:"edges"`
	Dangling []DanglingEdge `json:"dangling,omitempty"`
}

func (r *Reachability) Set() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Nodes))
	for _, id := range r.Nodes {
		set[id] = struct{}{}
	}
	return set
}

func (r *Reachability) Contains(id string) bool {
	return slices.Contains(r.Nodes, id)
}

func (r *Reachability) Len() int {
	return len(r.Nodes)
}

// Reachable computes every node transitively reachable from startID.
// Dangling edges are skipped and reported in the result. A missing start
// node yields a *NotFoundError.
func Reachable(g *models.Graph, startID string, opts Options) (*Reachability, error) {
	if _, ok := g.Node(startID); !ok {
		return nil, &NotFoundError{ID: startID, Available: g.NodeIDs()}
	}

	result := &Reachability{Start: startID, Nodes: []string{}}
	if opts.IncludeStart {
		result.Nodes = append(result.Nodes, startID)
	}

	adj := adjacency(g.Edges, opts.Direction)
	visited := map[string]bool{startID: true}
	walk(g, adj, startID, opts.Direction, visited, result)

	return result, nil
}

func walk(g *models.Graph, adj map[string][]models.Edge, current string, dir Direction, visited map[string]bool, result *Reachability) {
	for _, edge := range adj[current] {
		next := farEnd(edge, dir)
		if _, ok := g.Node(next); !ok {
			result.Dangling = append(result.Dangling, DanglingEdge{Edge: edge, Missing: next})
			continue
		}

		result.Edges = append(result.Edges, edge)
		if visited[next] {
			continue
		}

		visited[next] = true
		result.Nodes = append(result.Nodes, next)
		walk(g, adj, next, dir, visited, result)
	}
}

// adjacency indexes edges by their near end, keeping graph order.
func adjacency(edges []models.Edge, dir Direction) map[string][]models.Edge {
	adj := make(map[string][]models.Edge)
	for _, e := range edges {
		near := e.Source
		if dir == Upstream {
			near = e.Target
		}
		adj[near] = append(adj[near], e)
	}
	return adj
}

func farEnd(e models.Edge, dir Direction) string {
	if dir == Upstream {
		return e.Source
	}
	return e.Target
}
