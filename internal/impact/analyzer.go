// Package impact answers "what breaks if this node changes": it walks the
// dependency graph from a node, categorises everything it reaches and scores
// the result with a risk policy.
package impact

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sopforge/core/internal/graph"
	"github.com/sopforge/core/internal/models"
	"github.com/sopforge/core/internal/risk"
)

const (
	AtomTypeBackOffice   = "back-office-action"
	AtomTypeSystemAction = risk.AtomTypeSystemAction
)

type ChangeType string

const (
	ChangeModify    ChangeType = "modify"
	ChangeDelete    ChangeType = "delete"
	ChangeUpdateSLA ChangeType = "update-sla"
)

func ParseChangeType(s string) (ChangeType, error) {
	switch ChangeType(s) {
	case "":
		return ChangeModify, nil
	case ChangeModify, ChangeDelete, ChangeUpdateSLA:
		return ChangeType(s), nil
	}
	return "", fmt.Errorf("invalid change type %q: must be modify, delete or update-sla", s)
}

type Options struct {
	ChangeType   ChangeType
	Direction    graph.Direction
	IncludeStart bool
}

// Touchpoint is an affected node with the payload reports show for it.
type Touchpoint struct {
	ID             string          `json:"id"`
	Title          string          `json:"title,omitempty"`
	Type           models.NodeType `json:"type"`
	Actor          string          `json:"actor,omitempty"`
	SLAHours       float64         `json:"sla_hours,omitempty"`
	RegulatoryRefs []string        `json:"regulatory_refs,omitempty"`
}

type Recommendation struct {
	Category string     `json:"category"`
	Priority risk.Level `json:"priority"`
	Action   string     `json:"action"`
	Details  string     `json:"details"`
}

type Report struct {
	NodeID       string          `json:"node_id"`
	Title        string          `json:"title,omitempty"`
	NodeType     models.NodeType `json:"node_type"`
	ChangeType   ChangeType      `json:"change_type"`
	Direction    string          `json:"direction"`
	IncludeStart bool            `json:"include_start"`

	Affected       []string     `json:"affected"`
	CustomerFacing []Touchpoint `json:"customer_facing"`
	BackOffice     []Touchpoint `json:"back_office"`
	System         []Touchpoint `json:"system"`
	Regulatory     []Touchpoint `json:"regulatory"`

	ModulesAffected  []string                `json:"modules_affected"`
	PhasesAffected   []string                `json:"phases_affected"`
	JourneysAffected []string                `json:"journeys_affected"`
	ByType           map[models.NodeType]int `json:"by_type"`

	TotalSLAHours      float64 `json:"total_sla_hours"`
	StrongDependencies int     `json:"strong_dependencies"`

	Risk            risk.Assessment      `json:"risk"`
	Recommendations []Recommendation     `json:"recommendations"`
	Dangling        []graph.DanglingEdge `json:"dangling,omitempty"`
	Cycles          []graph.Cycle        `json:"cycles,omitempty"`
	GeneratedAt     time.Time            `json:"generated_at"`
}

// RegulatoryRefs returns the distinct references across regulatory
// touchpoints, sorted.
func (r *Report) RegulatoryRefs() []string {
	seen := make(map[string]bool)
	var refs []string
	for _, tp := range r.Regulatory {
		for _, ref := range tp.RegulatoryRefs {
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
	}
	sort.Strings(refs)
	return refs
}

type Analyzer struct {
	policy risk.Policy
	logger *slog.Logger
	now    func() time.Time
}

func NewAnalyzer(policy risk.Policy, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Analyzer{policy: policy, logger: logger, now: time.Now}
}

func (a *Analyzer) Policy() risk.Policy {
	return a.policy
}

// Analyze computes the impact of changing id. The graph is only read.
func (a *Analyzer) Analyze(ctx context.Context, g *models.Graph, id string, opts Options) (*Report, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	changeType, err := ParseChangeType(string(opts.ChangeType))
	if err != nil {
		analysisErrors.Inc()
		return nil, err
	}

	reach, err := graph.Reachable(g, id, graph.Options{Direction: opts.Direction, IncludeStart: opts.IncludeStart})
	if err != nil {
		analysisErrors.Inc()
		return nil, err
	}

	node := g.Nodes[id]
	report := &Report{
		NodeID:           id,
		Title:            node.Title,
		NodeType:         node.Type,
		ChangeType:       changeType,
		Direction:        opts.Direction.String(),
		IncludeStart:     opts.IncludeStart,
		Affected:         reach.Nodes,
		CustomerFacing:   []Touchpoint{},
		BackOffice:       []Touchpoint{},
		System:           []Touchpoint{},
		Regulatory:       []Touchpoint{},
		ModulesAffected:  []string{},
		PhasesAffected:   []string{},
		JourneysAffected: []string{},
		ByType:           make(map[models.NodeType]int),
		Dangling:         reach.Dangling,
		GeneratedAt:      a.now().UTC(),
	}

	categorize(g, reach.Nodes, report)

	for _, e := range reach.Edges {
		if e.IsStrong() {
			report.StrongDependencies++
		}
	}

	report.Risk = a.policy.Classify(g, reach.Nodes, reach.Edges)
	report.Cycles = touchingCycles(graph.DetectCycles(g), id, reach)
	report.Recommendations = recommend(report)

	analysesTotal.WithLabelValues(string(report.Risk.Level)).Inc()
	analysisDuration.Observe(time.Since(start).Seconds())
	impactSetSize.Observe(float64(len(report.Affected)))

	if len(report.Dangling) > 0 {
		a.logger.WarnContext(ctx, "impact traversal skipped dangling edges",
			"node", id, "dangling", len(report.Dangling))
	}
	a.logger.InfoContext(ctx, "impact analysis complete",
		"node", id,
		"change_type", changeType,
		"direction", report.Direction,
		"affected", len(report.Affected),
		"risk", report.Risk.Level,
		"score", report.Risk.Score,
		"duration", time.Since(start))

	return report, nil
}

func categorize(g *models.Graph, ids []string, report *Report) {
	for _, id := range ids {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		report.ByType[n.Type]++

		switch n.Type {
		case models.NodeModule:
			report.ModulesAffected = append(report.ModulesAffected, id)
		case models.NodePhase:
			report.PhasesAffected = append(report.PhasesAffected, id)
		case models.NodeJourney:
			report.JourneysAffected = append(report.JourneysAffected, id)
		}

		if n.Touchpoint == nil {
			continue
		}

		tp := Touchpoint{
			ID:             id,
			Title:          n.Title,
			Type:           n.Type,
			Actor:          n.Actor,
			SLAHours:       n.SLA(),
			RegulatoryRefs: n.Regulatory(),
		}

		if n.IsCustomerVisible() {
			report.CustomerFacing = append(report.CustomerFacing, tp)
		} else if n.AtomType == AtomTypeBackOffice {
			report.BackOffice = append(report.BackOffice, tp)
		}
		if n.AtomType == AtomTypeSystemAction {
			report.System = append(report.System, tp)
		}
		if len(tp.RegulatoryRefs) > 0 {
			report.Regulatory = append(report.Regulatory, tp)
		}
		if sla := n.SLA(); sla > 0 {
			report.TotalSLAHours += sla
		}
	}
}

func touchingCycles(cycles []graph.Cycle, start string, reach *graph.Reachability) []graph.Cycle {
	var out []graph.Cycle
	for _, c := range cycles {
		if c.Contains(start) {
			out = append(out, c)
			continue
		}
		for _, id := range c.Members() {
			if reach.Contains(id) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
