package risk

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/sopforge/core/internal/models"
)

// AtomTypeSystemAction marks automated touchpoints.
const AtomTypeSystemAction = "system-action"

var policyValidate = validator.New()

type Weights struct {
	CustomerFacing   int `yaml:"customer_facing" json:"customer_facing" validate:"gte=0"`
	Regulatory       int `yaml:"regulatory" json:"regulatory" validate:"gte=0"`
	SystemAction     int `yaml:"system_action" json:"system_action" validate:"gte=0"`
	Phase            int `yaml:"phase" json:"phase" validate:"gte=0"`
	StrongDependency int `yaml:"strong_dependency" json:"strong_dependency" validate:"gte=0"`
}

// Thresholds are the minimum scores of each band above Low.
type Thresholds struct {
	Critical int `yaml:"critical" json:"critical" validate:"gte=0"`
	High     int `yaml:"high" json:"high" validate:"gte=0"`
	Medium   int `yaml:"medium" json:"medium" validate:"gte=0"`
}

// SLATier adds Points when total downstream SLA is strictly greater than
// OverHours.
type SLATier struct {
	OverHours float64 `yaml:"over_hours" json:"over_hours" validate:"gte=0"`
	Points    int     `yaml:"points" json:"points" validate:"gte=0"`
}

type Policy struct {
	Weights    Weights    `yaml:"weights" json:"weights"`
	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`
	SLATiers   []SLATier  `yaml:"sla_tiers" json:"sla_tiers" validate:"dive"`
}

func DefaultPolicy() Policy {
	return Policy{
		Weights: Weights{
			CustomerFacing:   5,
			Regulatory:       10,
			SystemAction:     3,
			Phase:            7,
			StrongDependency: 15,
		},
		Thresholds: Thresholds{Critical: 50, High: 30, Medium: 15},
		SLATiers: []SLATier{
			{OverHours: 48, Points: 15},
			{OverHours: 24, Points: 10},
			{OverHours: 8, Points: 5},
		},
	}
}

// Validate rejects negative weights and thresholds that are out of order.
func (p Policy) Validate() error {
	if err := policyValidate.Struct(p); err != nil {
		return fmt.Errorf("invalid risk policy: %w", err)
	}
	t := p.Thresholds
	if t.Medium > t.High || t.High > t.Critical {
		return errors.New("invalid risk policy: thresholds must satisfy medium <= high <= critical")
	}
	return nil
}

// Signals are the counts the score is computed from.
type Signals struct {
	CustomerFacing int     `json:"customer_facing"`
	Regulatory     int     `json:"regulatory"`
	SystemActions  int     `json:"system_actions"`
	Phases         int     `json:"phases"`
	StrongEdges    int     `json:"strong_edges"`
	TotalSLAHours  float64 `json:"total_sla_hours"`
}

// Collect counts risk signals over the impact set. Ids that do not resolve
// are ignored; negative SLA values count as zero.
func Collect(g *models.Graph, ids []string, edges []models.Edge) Signals {
	var s Signals
	for _, id := range ids {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		if n.IsCustomerVisible() {
			s.CustomerFacing++
		}
		if len(n.Regulatory()) > 0 {
			s.Regulatory++
		}
		if n.Touchpoint != nil && n.AtomType == AtomTypeSystemAction {
			s.SystemActions++
		}
		if n.Type == models.NodePhase {
			s.Phases++
		}
		if sla := n.SLA(); sla > 0 {
			s.TotalSLAHours += sla
		}
	}
	for _, e := range edges {
		if e.IsStrong() {
			s.StrongEdges++
		}
	}
	return s
}

type Assessment struct {
	Level   Level    `json:"level"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// Assess scores signals. Every term is non-negative, so adding a signal never
// lowers the band.
func (p Policy) Assess(s Signals) Assessment {
	var a Assessment
	add := func(count, weight int, label string) {
		if count == 0 || weight == 0 {
			return
		}
		points := count * weight
		a.Score += points
		a.Reasons = append(a.Reasons, fmt.Sprintf("%d %s (+%d)", count, label, points))
	}

	add(s.CustomerFacing, p.Weights.CustomerFacing, "customer-facing touchpoints")
	add(s.Regulatory, p.Weights.Regulatory, "regulatory touchpoints")
	add(s.SystemActions, p.Weights.SystemAction, "system actions")
	add(s.Phases, p.Weights.Phase, "phases")
	add(s.StrongEdges, p.Weights.StrongDependency, "strong dependencies")

	if tier, ok := p.slaTier(s.TotalSLAHours); ok && tier.Points > 0 {
		a.Score += tier.Points
		a.Reasons = append(a.Reasons, fmt.Sprintf("%.1fh downstream SLA over %.0fh (+%d)", s.TotalSLAHours, tier.OverHours, tier.Points))
	}

	a.Level = p.band(a.Score)
	return a
}

// Classify collects signals for the impact set and assesses them.
func (p Policy) Classify(g *models.Graph, ids []string, edges []models.Edge) Assessment {
	return p.Assess(Collect(g, ids, edges))
}

// slaTier returns the matching tier worth the most points.
func (p Policy) slaTier(hours float64) (SLATier, bool) {
	tiers := append([]SLATier(nil), p.SLATiers...)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Points > tiers[j].Points })
	for _, t := range tiers {
		if hours > t.OverHours {
			return t, true
		}
	}
	return SLATier{}, false
}

func (p Policy) band(score int) Level {
	switch {
	case score >= p.Thresholds.Critical:
		return Critical
	case score >= p.Thresholds.High:
		return High
	case score >= p.Thresholds.Medium:
		return Medium
	default:
		return Low
	}
}
