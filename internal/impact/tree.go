package impact

import (
	"fmt"
	"slices"
	"sort"

	"github.com/sopforge/core/internal/graph"
	"github.com/sopforge/core/internal/models"
	"github.com/sopforge/core/internal/risk"
)

const DefaultMaxDepth = 10

type BranchStatus string

const (
	BranchExpanded  BranchStatus = "expanded"
	BranchCircular  BranchStatus = "circular"
	BranchTruncated BranchStatus = "truncated"
	BranchMissing   BranchStatus = "missing"
)

// Dependent is a node that uses the tree node, either through an edge
// pointing at it or by listing it as a component.
type Dependent struct {
	ID           string          `json:"id"`
	Title        string          `json:"title,omitempty"`
	Type         models.NodeType `json:"type,omitempty"`
	Relationship string          `json:"relationship"`
	Strength     models.Strength `json:"strength,omitempty"`
	Description  string          `json:"description,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

type Branch struct {
	Dependent
	Status BranchStatus `json:"status"`
	// Path is set for circular branches and ends with the repeated id.
	Path   []string  `json:"path,omitempty"`
	Impact *TreeNode `json:"impact,omitempty"`
}

// TreeNode is one level of the upstream impact tree: who uses this node, and
// recursively who uses them.
type TreeNode struct {
	ID             string          `json:"id"`
	Title          string          `json:"title,omitempty"`
	Type           models.NodeType `json:"type"`
	Version        string          `json:"version,omitempty"`
	Depth          int             `json:"depth"`
	Risk           risk.Level      `json:"risk_level"`
	Dependents     []Dependent     `json:"direct_dependents"`
	ComponentUsage []Dependent     `json:"component_usage"`
	Downstream     []Branch        `json:"downstream_impacts"`
}

// DirectCount is the number of documents that use this node directly.
func (t *TreeNode) DirectCount() int {
	return len(t.Dependents) + len(t.ComponentUsage)
}

// Tree builds the impact tree of id up to maxDepth levels. A path that
// returns to a node already on it is cut and marked circular.
func (a *Analyzer) Tree(g *models.Graph, id string, maxDepth int) (*TreeNode, error) {
	if _, ok := g.Node(id); !ok {
		return nil, &graph.NotFoundError{ID: id, Available: g.NodeIDs()}
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return expand(g, id, 0, maxDepth, nil), nil
}

func expand(g *models.Graph, id string, depth, maxDepth int, path []string) *TreeNode {
	n := g.Nodes[id]
	tn := &TreeNode{
		ID:             id,
		Title:          n.Title,
		Type:           n.Type,
		Version:        n.Version,
		Depth:          depth,
		Dependents:     []Dependent{},
		ComponentUsage: []Dependent{},
		Downstream:     []Branch{},
	}

	neighbors, _ := graph.Dependents(g, id)
	strong := false
	for _, nb := range neighbors {
		d := Dependent{
			ID:           nb.ID,
			Relationship: string(nb.Edge.Type),
			Strength:     nb.Edge.Strength,
			Description:  nb.Edge.Description,
			Reason:       nb.Edge.Reason(),
		}
		if d.Strength == "" {
			d.Strength = models.StrengthNormal
		}
		if nb.Node != nil {
			d.Title, d.Type = nb.Node.Title, nb.Node.Type
		}
		strong = strong || nb.Strong()
		tn.Dependents = append(tn.Dependents, d)
	}

	for _, u := range graph.ComponentUsage(g, id) {
		tn.ComponentUsage = append(tn.ComponentUsage, Dependent{
			ID:           u.ID,
			Title:        u.Node.Title,
			Type:         u.Node.Type,
			Relationship: u.Relationship,
		})
	}

	tn.Risk = risk.FanOutLevel(tn.DirectCount(), strong)

	childPath := append(slices.Clip(path), id)
	for _, d := range append(slices.Clone(tn.Dependents), tn.ComponentUsage...) {
		b := Branch{Dependent: d}
		switch {
		case depth+1 > maxDepth:
			b.Status = BranchTruncated
		case slices.Contains(childPath, d.ID):
			b.Status = BranchCircular
			b.Path = append(slices.Clone(childPath), d.ID)
		case !exists(g, d.ID):
			b.Status = BranchMissing
		default:
			b.Status = BranchExpanded
			b.Impact = expand(g, d.ID, depth+1, maxDepth, childPath)
		}
		tn.Downstream = append(tn.Downstream, b)
	}

	return tn
}

func exists(g *models.Graph, id string) bool {
	_, ok := g.Node(id)
	return ok
}

type Summary struct {
	TotalAffected      int                     `json:"total_affected"`
	ByType             map[models.NodeType]int `json:"by_type"`
	ByRiskLevel        map[risk.Level]int      `json:"by_risk_level"`
	StrongDependencies int                     `json:"strong_dependencies"`
	Highest            risk.Level              `json:"highest_risk"`
	Circular           int                     `json:"circular_paths"`
	Truncated          int                     `json:"truncated_paths"`
	Recommendations    []string                `json:"recommendations"`
}

// Summarize totals a tree. Each affected node is counted once no matter how
// many paths reach it; the root is not counted as affected.
func Summarize(root *TreeNode) Summary {
	s := Summary{
		ByType:      make(map[models.NodeType]int),
		ByRiskLevel: make(map[risk.Level]int),
		Highest:     risk.Low,
	}
	if root == nil {
		return s
	}

	seen := map[string]bool{root.ID: true}
	var walk func(t *TreeNode)
	walk = func(t *TreeNode) {
		for _, d := range t.Dependents {
			if d.Strength == models.StrengthStrong {
				s.StrongDependencies++
			}
		}
		if t.Risk.Exceeds(s.Highest) {
			s.Highest = t.Risk
		}
		for _, b := range t.Downstream {
			switch b.Status {
			case BranchCircular:
				s.Circular++
			case BranchTruncated:
				s.Truncated++
			case BranchExpanded:
				if seen[b.ID] {
					continue
				}
				seen[b.ID] = true
				s.TotalAffected++
				s.ByType[b.Impact.Type]++
				s.ByRiskLevel[b.Impact.Risk]++
				walk(b.Impact)
			}
		}
	}
	walk(root)

	s.Recommendations = advice(s.TotalAffected, s.StrongDependencies)
	return s
}

func advice(affected, strong int) []string {
	var out []string
	switch {
	case affected == 0:
		out = append(out,
			"Low risk change: no dependencies affected",
			"Safe to proceed with modifications")
	case affected <= 2:
		out = append(out,
			"Low-medium risk: minimal impact",
			"Review affected documents before making changes",
			"Notify document owners of planned changes")
	case affected <= 5:
		out = append(out,
			"Medium risk: moderate impact scope",
			"Conduct thorough review of all affected documents",
			"Create change management plan",
			"Notify all stakeholders")
	default:
		out = append(out,
			"High risk: significant impact scope",
			"Require approval from all affected document owners",
			"Create detailed change management plan",
			"Consider phased rollout approach",
			"Schedule stakeholder meeting before changes")
	}
	if strong > 0 {
		out = append(out, fmt.Sprintf("%d strong dependencies detected: critical coordination required", strong))
	}
	return out
}

// AffectedIDs lists the distinct expanded ids of a tree in sorted order.
func AffectedIDs(root *TreeNode) []string {
	seen := make(map[string]bool)
	var walk func(t *TreeNode)
	walk = func(t *TreeNode) {
		for _, b := range t.Downstream {
			if b.Status == BranchExpanded && !seen[b.ID] {
				seen[b.ID] = true
				walk(b.Impact)
			}
		}
	}
	if root != nil {
		walk(root)
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
