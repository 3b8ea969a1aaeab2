package impact

import (
	"fmt"
	"strings"

	"github.com/sopforge/core/internal/risk"
)

func recommend(r *Report) []Recommendation {
	var recs []Recommendation

	if n := len(r.CustomerFacing); n > 0 {
		recs = append(recs, Recommendation{
			Category: "Customer Experience",
			Priority: risk.High,
			Action:   fmt.Sprintf("Test customer-facing touchpoints (%d affected)", n),
			Details:  "Conduct usability testing and gather customer feedback before deployment",
		})
	}

	if n := len(r.Regulatory); n > 0 {
		recs = append(recs, Recommendation{
			Category: "Compliance",
			Priority: risk.Critical,
			Action:   "Legal/Compliance review required",
			Details: fmt.Sprintf("%d touchpoints with regulatory requirements affected. Review %s implications.",
				n, strings.Join(r.RegulatoryRefs(), ", ")),
		})
	}

	if r.TotalSLAHours > 24 {
		recs = append(recs, Recommendation{
			Category: "Timeline",
			Priority: risk.High,
			Action:   "Review SLA commitments",
			Details:  fmt.Sprintf("%.1f days of downstream SLA affected. May impact closing timeline.", r.TotalSLAHours/24),
		})
	}

	if n := len(r.System); n > 0 {
		recs = append(recs, Recommendation{
			Category: "Technology",
			Priority: risk.Medium,
			Action:   "IT system testing required",
			Details:  fmt.Sprintf("%d system integrations affected. Test every integration the touchpoints call.", n),
		})
	}

	if len(r.PhasesAffected) > 1 {
		recs = append(recs, Recommendation{
			Category: "Process",
			Priority: risk.High,
			Action:   "Cross-phase coordination needed",
			Details:  "Multiple phases affected. Coordinate with all department heads before implementation.",
		})
	}

	if r.StrongDependencies > 0 {
		recs = append(recs, Recommendation{
			Category: "Change Coordination",
			Priority: risk.High,
			Action:   fmt.Sprintf("%d strong dependencies detected", r.StrongDependencies),
			Details:  "Critical coordination required with the owners of every strongly dependent document.",
		})
	}

	switch r.ChangeType {
	case ChangeDelete:
		recs = append(recs, Recommendation{
			Category: "Risk Management",
			Priority: risk.Critical,
			Action:   "Verify no orphaned dependencies",
			Details:  "Removing this node may break downstream workflows. Ensure all dependencies are updated or rerouted.",
		})
	case ChangeUpdateSLA:
		recs = append(recs, Recommendation{
			Category: "Timeline",
			Priority: risk.Medium,
			Action:   "Recalculate downstream SLA commitments",
			Details:  fmt.Sprintf("%.1f hours of downstream SLA depend on this node.", r.TotalSLAHours),
		})
	}

	if len(r.Cycles) > 0 {
		recs = append(recs, Recommendation{
			Category: "Structure",
			Priority: risk.High,
			Action:   "Resolve circular dependencies",
			Details:  fmt.Sprintf("%d cycles pass through the affected nodes: %s", len(r.Cycles), r.Cycles[0]),
		})
	}

	recs = append(recs, Recommendation{
		Category: "Quality Assurance",
		Priority: risk.High,
		Action:   "End-to-end journey testing",
		Details:  "Test the complete flow end to end to verify no broken workflows.",
	})

	return recs
}
