package graph

import (
	"slices"
	"strings"

	"github.com/sopforge/core/internal/models"
)

// Cycle is a closed path: the first id is repeated at the end, and each
// consecutive pair is an edge of the graph.
type Cycle []string

func (c Cycle) Contains(id string) bool {
	return slices.Contains(c, id)
}

// Members returns the distinct ids of the cycle without the closing repeat.
func (c Cycle) Members() []string {
	if len(c) < 2 {
		return c
	}
	return c[:len(c)-1]
}

func (c Cycle) String() string {
	return strings.Join(c, " → ")
}

// DetectCycles reports every cycle closed by a back edge in g.Edges.
// The search starts from each unvisited node in sorted id order; edges to
// nodes that do not exist are ignored.
func DetectCycles(g *models.Graph) []Cycle {
	if g == nil {
		return nil
	}
	return detect(g, g.Edges)
}

// DetectContainmentCycles runs the same search over the edges implied by the
// containment lists (composedOf, components, atoms, modules, phases).
func DetectContainmentCycles(g *models.Graph) []Cycle {
	if g == nil {
		return nil
	}
	return detect(g, g.ContainmentEdges())
}

func detect(g *models.Graph, edges []models.Edge) []Cycle {
	adj := make(map[string][]string)
	for _, e := range edges {
		if _, ok := g.Node(e.Source); !ok {
			continue
		}
		if _, ok := g.Node(e.Target); !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	seen := make(map[string]bool)
	var cycles []Cycle

	for _, id := range g.NodeIDs() {
		if !visited[id] {
			cycles = visit(id, adj, visited, onStack, nil, seen, cycles)
		}
	}
	return cycles
}

func visit(id string, adj map[string][]string, visited, onStack map[string]bool, path []string, seen map[string]bool, cycles []Cycle) []Cycle {
	visited[id] = true
	onStack[id] = true
	path = append(path, id)

	for _, next := range adj[id] {
		if onStack[next] {
			c := closePath(path, next)
			if key := c.String(); !seen[key] {
				seen[key] = true
				cycles = append(cycles, c)
			}
			continue
		}
		if !visited[next] {
			cycles = visit(next, adj, visited, onStack, path, seen, cycles)
		}
	}

	onStack[id] = false
	return cycles
}

// closePath copies the tail of path starting at target and closes it.
func closePath(path []string, target string) Cycle {
	start := len(path) - 1
	for i, id := range path {
		if id == target {
			start = i
			break
		}
	}
	c := make(Cycle, 0, len(path)-start+1)
	c = append(c, path[start:]...)
	return append(c, target)
}
