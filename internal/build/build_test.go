package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sopforge/core/internal/graph"
	"github.com/sopforge/core/internal/models"
)

func component(id, kind, body string) *Component {
	return &Component{ID: id, Kind: kind, Body: body}
}

func TestLoadLibrary(t *testing.T) {
	fsys := fstest.MapFS{
		"lib/atoms/verify.md":        {Data: []byte("---\nid: atom-verify\ntitle: Verify Identity\nversion: 1.0.0\n---\nCheck the ID.\n")},
		"lib/atoms/notes.txt":        {Data: []byte("ignored")},
		"lib/atoms/plain.md":         {Data: []byte("no frontmatter here")},
		"lib/atoms/noid.md":          {Data: []byte("---\ntitle: Nameless\n---\nbody")},
		"lib/molecules/checklist.md": {Data: []byte("---\nid: molecule-checklist\n---\n{{include: atom-verify}}")},
	}

	lib, err := LoadLibrary(fsys, "lib")

	require.NoError(t, err)
	assert.Equal(t, 2, lib.Len())

	c, ok := lib.Get("atom-verify")
	require.True(t, ok)
	assert.Equal(t, "atoms", c.Kind)
	assert.Equal(t, "Verify Identity", c.Frontmatter.Title)
	assert.Equal(t, "Check the ID.\n", c.Body)

	require.Len(t, lib.Warnings, 3)
	assert.Contains(t, lib.Warnings[0], "missing 'id'")
	assert.Contains(t, lib.Warnings[1], "missing frontmatter")
	assert.Contains(t, lib.Warnings[2], "organisms")

	ids := []string{}
	for _, c := range lib.All() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"atom-verify", "molecule-checklist"}, ids)
}

func TestExpand(t *testing.T) {
	lib := NewLibrary(
		component("atom-a", "atoms", "A {{include: atom-b}}"),
		component("atom-b", "atoms", "B"),
		component("atom-x", "atoms", "X {{include: atom-y}}"),
		component("atom-y", "atoms", "Y {{INCLUDE: atom-x}}"),
	)

	t.Run("nested includes", func(t *testing.T) {
		out, warnings := lib.Expand("start {{include: atom-a}} end")

		assert.Equal(t, "start A B end", out)
		assert.Empty(t, warnings)
	})

	t.Run("missing component", func(t *testing.T) {
		out, warnings := lib.Expand("{{include: atom-ghost}}")

		assert.Contains(t, out, "<!-- Component atom-ghost not found -->")
		assert.Equal(t, []string{"component 'atom-ghost' not found"}, warnings)
	})

	t.Run("circular include is cut", func(t *testing.T) {
		out, warnings, ok := lib.ExpandComponent("atom-x")

		require.True(t, ok)
		assert.Contains(t, out, "X Y")
		assert.Contains(t, out, "<!-- Circular reference: atom-x -->")
		assert.Equal(t, []string{"circular reference detected: atom-x"}, warnings)
	})

	t.Run("siblings may repeat", func(t *testing.T) {
		out, warnings := lib.Expand("{{include: atom-b}}{{include: atom-b}}")

		assert.Equal(t, "BB", out)
		assert.Empty(t, warnings)
	})

	t.Run("references become links", func(t *testing.T) {
		out, _ := lib.Expand("{{reference: atom-b}}")

		assert.Contains(t, out, "[atom-b](../sop-components/atom-b.md)")
	})

	t.Run("unknown component", func(t *testing.T) {
		_, warnings, ok := lib.ExpandComponent("atom-ghost")

		assert.False(t, ok)
		assert.Len(t, warnings, 1)
	})
}

func sopFixture() (*models.Graph, *Library) {
	g := &models.Graph{
		Nodes: map[string]*models.Node{
			"sop-onboarding": {ID: "sop-onboarding", Type: models.NodeSOP, Title: "Employee Onboarding",
				Version:     "2.1.0",
				Composition: &models.Composition{ComposedOf: []string{"molecule-checklist", "atom-ghost"}},
				Governance:  &models.Governance{Department: "HR", ComplianceFrameworks: []string{"SOX", "ISO 27001"}}},
			"sop-access": {ID: "sop-access", Type: models.NodeSOP, Title: "Access Management"},
			"sop-offboarding": {ID: "sop-offboarding", Type: models.NodeSOP, Title: "Offboarding",
				Owner: "it-ops"},
			"molecule-checklist": {ID: "molecule-checklist", Type: models.NodeMolecule},
		},
		Edges: []models.Edge{
			{Source: "sop-onboarding", Target: "sop-access", Type: models.EdgeDependsOn,
				Strength: models.StrengthStrong, Description: "needs accounts"},
			{Source: "sop-offboarding", Target: "sop-onboarding", Type: models.EdgeRelatedTo},
		},
	}
	lib := NewLibrary(
		component("molecule-checklist", "molecules", "Checklist: {{include: atom-verify}}"),
		component("atom-verify", "atoms", "Verify identity."),
	)
	return g, lib
}

func newTestBuilder(g *models.Graph, lib *Library) *Builder {
	b := NewBuilder(g, lib, nil)
	b.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	return b
}

func TestBuild(t *testing.T) {
	g, lib := sopFixture()
	b := newTestBuilder(g, lib)

	t.Run("assembles the document", func(t *testing.T) {
		doc, err := b.Build("sop-onboarding")

		require.NoError(t, err)
		assert.Equal(t, "Employee Onboarding", doc.Title)
		assert.Contains(t, doc.Content, "sop_id: sop-onboarding")
		assert.Contains(t, doc.Content, "generated_date: 2026-03-04T05:06:07Z")
		assert.Contains(t, doc.Content, "**SOP ID**: sop-onboarding")
		assert.Contains(t, doc.Content, "**Version**: 2.1.0")
		assert.Contains(t, doc.Content, "**Owner**: Unassigned")
		assert.Contains(t, doc.Content, "**Approved By**: Pending approval")
		assert.Contains(t, doc.Content, "**Department**: HR")
		assert.Contains(t, doc.Content, "**Compliance Frameworks**: SOX, ISO 27001")
		assert.Contains(t, doc.Content, "- **[sop-access](sop-access.md)**: Access Management")
		assert.Contains(t, doc.Content, "**Strong dependency** - Critical dependency")
		assert.Contains(t, doc.Content, "- **molecule-checklist** (molecule)")
		assert.Contains(t, doc.Content, "- **atom-ghost** (not found in component library)")
		assert.Contains(t, doc.Content, "Checklist: Verify identity.")
		assert.Contains(t, doc.Content, "- [sop-offboarding](sop-offboarding.md): Offboarding")
		assert.Contains(t, doc.Content, "**Build Tool**: sopforge")
		assert.Equal(t, []string{"component 'atom-ghost' not found"}, doc.Warnings)
	})

	t.Run("sop without components", func(t *testing.T) {
		doc, err := b.Build("sop-access")

		require.NoError(t, err)
		assert.Contains(t, doc.Content, "does not reference any modular components")
		assert.Contains(t, doc.Content, "**Status**: draft")
		assert.NotContains(t, doc.Content, "## Dependencies")
	})

	t.Run("not an SOP", func(t *testing.T) {
		_, err := b.Build("molecule-checklist")

		assert.ErrorIs(t, err, ErrNotSOP)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := b.Build("sop-nope")

		assert.ErrorIs(t, err, graph.ErrNodeNotFound)
	})
}

func TestBuildAll(t *testing.T) {
	g, lib := sopFixture()

	results := newTestBuilder(g, lib).BuildAll()

	require.Len(t, results, 3)
	assert.Equal(t, "sop-access", results[0].SOPID)
	assert.Equal(t, "sop-offboarding", results[1].SOPID)
	assert.Equal(t, "sop-onboarding", results[2].SOPID)
	for _, r := range results {
		assert.Equal(t, StatusSuccess, r.Status)
	}
}

func TestWriteAll(t *testing.T) {
	g, lib := sopFixture()
	dir := t.TempDir()

	report, err := newTestBuilder(g, lib).WriteAll(dir)

	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalSOPs)
	assert.Equal(t, 3, report.Successful)
	assert.Zero(t, report.Failed)

	content, err := os.ReadFile(filepath.Join(dir, "sops", "sop-onboarding.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Employee Onboarding")

	data, err := os.ReadFile(filepath.Join(dir, "build-report.json"))
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 3, decoded.Successful)
	assert.Equal(t, filepath.Join(dir, "sops", "sop-access.md"), decoded.Results[0].Path)

	t.Run("selected ids", func(t *testing.T) {
		report, err := newTestBuilder(g, lib).WriteAll(t.TempDir(), "sop-access")

		require.NoError(t, err)
		assert.Equal(t, 1, report.TotalSOPs)
	})

	t.Run("selected id that is not an SOP", func(t *testing.T) {
		_, err := newTestBuilder(g, lib).WriteAll(t.TempDir(), "molecule-checklist")

		assert.ErrorIs(t, err, ErrNotSOP)
	})
}
