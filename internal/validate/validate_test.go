package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sopforge/core/internal/build"
	"github.com/sopforge/core/internal/models"
	"github.com/sopforge/core/internal/parser"
)

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }

func messages(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Message)
	}
	return out
}

func journeyGraph() *models.Graph {
	return &models.Graph{
		Metadata: map[string]any{"schema_version": "1.0", "stats": map[string]any{}},
		Nodes: map[string]*models.Node{
			"atom-apply": {ID: "atom-apply", Type: models.NodeAtom, Title: "Submit Application",
				Touchpoint: &models.Touchpoint{Actor: "borrower", AtomType: "customer-action",
					CustomerVisible: boolPtr(true), SLAHours: floatPtr(2), RegulatoryRefs: []string{"ECOA"}}},
			"atom-pull-credit": {ID: "atom-pull-credit", Type: models.NodeAtom, Title: "Pull Credit",
				Touchpoint: &models.Touchpoint{Actor: "system", AtomType: "system-action",
					CustomerVisible: boolPtr(false), SLAHours: floatPtr(1)}},
			"module-intake": {ID: "module-intake", Type: models.NodeModule, Title: "Intake",
				Composition: &models.Composition{Atoms: []string{"atom-apply", "atom-pull-credit"}},
				Touchpoint:  &models.Touchpoint{SLAHours: floatPtr(3)}},
			"phase-application": {ID: "phase-application", Type: models.NodePhase, Title: "Application",
				Composition: &models.Composition{Modules: []string{"module-intake"}}},
			"journey-purchase": {ID: "journey-purchase", Type: models.NodeJourney, Title: "Purchase",
				Composition: &models.Composition{Phases: []string{"phase-application"}}},
		},
		Edges: []models.Edge{
			{Source: "atom-apply", Target: "atom-pull-credit", Type: models.EdgeDependsOn},
		},
	}
}

func sopGraph() *models.Graph {
	return &models.Graph{
		Nodes: map[string]*models.Node{
			"sop-onboarding": {ID: "sop-onboarding", Type: models.NodeSOP, Title: "Onboarding",
				Version: "1.2.0", Status: "active", Owner: "hr",
				Composition: &models.Composition{ComposedOf: []string{"molecule-checklist"}}},
			"molecule-checklist": {ID: "molecule-checklist", Type: models.NodeMolecule, Title: "Checklist",
				Version: "1.0.0"},
		},
		Edges: []models.Edge{
			{Source: "molecule-checklist", Target: "sop-onboarding", Type: models.EdgeComponentOf},
		},
	}
}

func TestValidate_Structure(t *testing.T) {
	r := New(false, nil).Validate(&models.Graph{})

	assert.Equal(t, StatusFail, r.Status)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0].Message, "nodes")
	assert.Contains(t, r.Errors[0].Message, "edges")
}

func TestValidate_Journey(t *testing.T) {
	t.Run("clean graph passes", func(t *testing.T) {
		v := New(false, nil)
		v.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

		r := v.Validate(journeyGraph())

		assert.Equal(t, StatusPass, r.Status)
		assert.Equal(t, models.FlavorJourney, r.Flavor)
		assert.Empty(t, r.Errors)
		assert.Empty(t, r.Warnings)
		assert.Equal(t, 5, r.Summary.TotalNodes)
		assert.Equal(t, 1, r.Summary.TotalEdges)
		assert.Contains(t, messages(r.Info), "no circular dependencies found")
		assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), r.Timestamp)
	})

	t.Run("broken graph reports each problem", func(t *testing.T) {
		g := journeyGraph()
		delete(g.Metadata, "stats")
		g.Nodes["atom-bare"] = &models.Node{ID: "atom-bare", Type: models.NodeAtom, Title: "Bare"}
		g.Nodes["atom-disclose"] = &models.Node{ID: "atom-disclose", Type: models.NodeAtom, Title: "Disclose",
			Touchpoint: &models.Touchpoint{Actor: "lender", AtomType: "customer-action",
				CustomerVisible: boolPtr(true), SLAHours: floatPtr(-1)}}
		g.Nodes["module-intake"].Atoms = append(g.Nodes["module-intake"].Atoms, "phase-application", "atom-disclose")
		g.Nodes["phase-empty"] = &models.Node{ID: "phase-empty", Type: models.NodePhase, Title: "Empty"}
		g.Edges = append(g.Edges, models.Edge{Source: "atom-apply", Target: "atom-gone", Type: models.EdgeDependsOn})

		r := New(false, nil).Validate(g)

		assert.Equal(t, StatusFail, r.Status)
		errs := messages(r.Errors)
		assert.Contains(t, errs, "atom atom-bare missing 'actor' field")
		assert.Contains(t, errs, "atom atom-bare missing or invalid 'sla_hours' field")
		assert.Contains(t, errs, "phase phase-empty missing or invalid 'modules' array")
		assert.Contains(t, errs, "module module-intake references phase-application which is not a atom")
		assert.Contains(t, errs, "edge references non-existent target: atom-gone")
		assert.Contains(t, errs, "atom atom-disclose has invalid sla_hours: -1")

		warns := messages(r.Warnings)
		assert.Contains(t, warns, "metadata missing stats")
		assert.Contains(t, warns, "found 1 orphaned atoms: atom-bare")
		assert.Contains(t, warns, "customer-visible atom atom-disclose missing regulatory_refs")
		assert.Contains(t, warns, "module module-intake SLA (3h) doesn't match sum of atoms (2h)")
		assert.Equal(t, len(r.Errors), r.Summary.Errors)
	})

	t.Run("id mismatch is an error", func(t *testing.T) {
		g := journeyGraph()
		g.Nodes["journey-purchase"].ID = "journey-refi"

		r := New(false, nil).Validate(g)

		assert.Contains(t, messages(r.Errors), "node journey-purchase: id field 'journey-refi' does not match key")
	})
}

func TestValidate_SOP(t *testing.T) {
	t.Run("clean graph passes", func(t *testing.T) {
		r := New(false, nil).Validate(sopGraph())

		assert.Equal(t, StatusPass, r.Status)
		assert.Equal(t, models.FlavorSOP, r.Flavor)
		assert.Empty(t, r.Warnings)
	})

	t.Run("metadata and references", func(t *testing.T) {
		g := sopGraph()
		sop := g.Nodes["sop-onboarding"]
		sop.Owner = ""
		sop.Version = "1.2"
		sop.ComposedOf = append(sop.ComposedOf, "atom-missing", "atom-in-library")

		lib := build.NewLibrary(&build.Component{
			ID:          "atom-in-library",
			Kind:        "atoms",
			Frontmatter: &parser.Frontmatter{ID: "atom-in-library", Title: "Library Atom", Version: "v1"},
		})

		r := New(false, lib).Validate(g)

		assert.Equal(t, []string{"node sop-onboarding composed of non-existent component: atom-missing"}, messages(r.Errors))
		warns := messages(r.Warnings)
		assert.Contains(t, warns, "node sop-onboarding has invalid semantic version: 1.2")
		assert.Contains(t, warns, "SOP sop-onboarding missing required field: owner")
		assert.Contains(t, warns, "component atom-in-library missing required field: type")
		assert.Contains(t, warns, "component atom-in-library has invalid semantic version: v1")
		assert.Equal(t, 1, r.Summary.TotalComponents)
	})

	t.Run("cycles are errors", func(t *testing.T) {
		g := sopGraph()
		g.Edges = append(g.Edges, models.Edge{Source: "sop-onboarding", Target: "molecule-checklist", Type: models.EdgeDependsOn})

		r := New(false, nil).Validate(g)

		assert.Contains(t, messages(r.Errors), "circular dependency detected: molecule-checklist → sop-onboarding → molecule-checklist")
	})

	t.Run("containment cycles are errors", func(t *testing.T) {
		g := sopGraph()
		g.Nodes["molecule-checklist"].Composition = &models.Composition{Components: []string{"sop-onboarding"}}

		r := New(false, nil).Validate(g)

		assert.Contains(t, messages(r.Errors), "circular containment detected: molecule-checklist → sop-onboarding → molecule-checklist")
	})

	t.Run("strict mode promotes warnings", func(t *testing.T) {
		g := sopGraph()
		g.Nodes["sop-onboarding"].Status = ""

		lenient := New(false, nil).Validate(g)
		strict := New(true, nil).Validate(g)

		assert.Equal(t, StatusPass, lenient.Status)
		assert.Len(t, lenient.Warnings, 1)
		assert.Equal(t, StatusFail, strict.Status)
		assert.Empty(t, strict.Warnings)
		assert.Equal(t, []string{"SOP sop-onboarding missing required field: status"}, messages(strict.Errors))
		assert.True(t, strict.Strict)
	})

	t.Run("library warnings are surfaced", func(t *testing.T) {
		lib := build.NewLibrary()
		lib.Warnings = []string{"component file missing frontmatter: atoms/x.md"}

		r := New(false, lib).Validate(sopGraph())

		assert.Contains(t, messages(r.Warnings), "component file missing frontmatter: atoms/x.md")
	})
}
