// Package models defines the core data structures of the SOP dependency graph.
// It includes node and edge definitions plus read-only helpers used by the
// traversal, validation and reporting packages.
package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }

func TestGraphUnmarshal(t *testing.T) {
	t.Run("empty graph", func(t *testing.T) {
		jsonData := `{
			"nodes": {},
			"edges": []
		}`

		var graph Graph
		err := json.Unmarshal([]byte(jsonData), &graph)

		require.NoError(t, err)
		assert.Empty(t, graph.Nodes)
		assert.NotNil(t, graph.Nodes)
		assert.Empty(t, graph.Edges)
	})

	t.Run("graph with nodes and edges", func(t *testing.T) {
		jsonData := `{
			"metadata": {"version": "1.0.0"},
			"nodes": {
				"sop-001": {
					"id": "sop-001",
					"type": "sop",
					"title": "Access Management",
					"version": "1.2.0",
					"owner": "IT Security",
					"composedOf": ["organism-access-review"],
					"approver": "CISO",
					"complianceFrameworks": ["SOX"]
				},
				"organism-access-review": {
					"id": "organism-access-review",
					"type": "organism",
					"title": "Access Review"
				}
			},
			"edges": [
				{
					"source": "sop-001",
					"target": "organism-access-review",
					"type": "uses-component",
					"strength": "strong"
				}
			]
		}`

		var graph Graph
		err := json.Unmarshal([]byte(jsonData), &graph)

		require.NoError(t, err)
		assert.Len(t, graph.Nodes, 2)
		assert.Len(t, graph.Edges, 1)

		sop := graph.Nodes["sop-001"]
		require.NotNil(t, sop)
		assert.Equal(t, NodeSOP, sop.Type)
		require.NotNil(t, sop.Composition)
		assert.Equal(t, []string{"organism-access-review"}, sop.ComposedOf)
		require.NotNil(t, sop.Governance)
		assert.Equal(t, "CISO", sop.Approver)
		assert.Nil(t, sop.Touchpoint)

		organism := graph.Nodes["organism-access-review"]
		assert.Nil(t, organism.Composition)
		assert.Nil(t, organism.Governance)

		assert.True(t, graph.Edges[0].IsStrong())
	})

	t.Run("journey atom payload", func(t *testing.T) {
		jsonData := `{
			"id": "atom-w2-upload",
			"type": "atom",
			"title": "Upload W2",
			"actor": "customer",
			"atom_type": "customer-action",
			"customer_visible": true,
			"sla_hours": 24,
			"regulatory_refs": ["ECOA"]
		}`

		var node Node
		err := json.Unmarshal([]byte(jsonData), &node)

		require.NoError(t, err)
		require.NotNil(t, node.Touchpoint)
		assert.True(t, node.IsCustomerVisible())
		assert.Equal(t, 24.0, node.SLA())
		assert.Equal(t, []string{"ECOA"}, node.Regulatory())
	})

	t.Run("unknown fields are kept in Extra", func(t *testing.T) {
		jsonData := `{"id": "a", "type": "atom", "form_number": "F-12", "tags": ["x"]}`

		var node Node
		require.NoError(t, json.Unmarshal([]byte(jsonData), &node))

		assert.Equal(t, "F-12", node.Extra["form_number"])
		assert.Equal(t, []any{"x"}, node.Extra["tags"])
		assert.NotContains(t, node.Extra, "id")
	})
}

func TestGraphRoundTrip(t *testing.T) {
	graph := &Graph{
		Metadata: map[string]any{"schema_version": "2.0"},
		Nodes: map[string]*Node{
			"journey-purchase": {
				ID:          "journey-purchase",
				Type:        NodeJourney,
				Title:       "Purchase",
				Composition: &Composition{Phases: []string{"phase-application"}},
			},
			"phase-application": {
				ID:          "phase-application",
				Type:        NodePhase,
				Composition: &Composition{Modules: []string{"module-income"}},
			},
			"module-income": {
				ID:          "module-income",
				Type:        NodeModule,
				Composition: &Composition{Atoms: []string{"atom-w2"}},
			},
			"atom-w2": {
				ID:   "atom-w2",
				Type: NodeAtom,
				Touchpoint: &Touchpoint{
					Actor:           "customer",
					CustomerVisible: boolPtr(true),
					SLAHours:        floatPtr(4),
					RegulatoryRefs:  []string{"TRID"},
				},
				Extra: map[string]any{"channel": "portal", "weight": 2.5},
			},
		},
		Edges: []Edge{
			{Source: "atom-w2", Target: "module-income", Type: EdgeComponentOf, Strength: StrengthStrong,
				Metadata: map[string]any{"reason": "gate"}},
		},
	}

	data, err := json.Marshal(graph)
	require.NoError(t, err)

	var decoded Graph
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, graph, &decoded)
}

func TestNodeChildren(t *testing.T) {
	t.Run("union preserves order and drops duplicates", func(t *testing.T) {
		n := &Node{Composition: &Composition{
			ComposedOf: []string{"m1", "m2"},
			Components: []string{"m2", "a1"},
		}}

		assert.Equal(t, []string{"m1", "m2", "a1"}, n.Children())
	})

	t.Run("node without composition has no children", func(t *testing.T) {
		assert.Nil(t, (&Node{}).Children())
	})
}

func TestGraphHelpers(t *testing.T) {
	graph := &Graph{
		Nodes: map[string]*Node{
			"sop-b": {ID: "sop-b", Type: NodeSOP, Composition: &Composition{ComposedOf: []string{"mol-a"}}},
			"mol-a": {ID: "mol-a", Type: NodeMolecule, Composition: &Composition{Components: []string{"atom-1"}}},
			"atom-1": {ID: "atom-1", Type: NodeAtom},
		},
		Edges: []Edge{
			{Source: "sop-b", Target: "mol-a", Type: EdgeDependsOn, Strength: StrengthStrong},
			{Source: "mol-a", Target: "atom-1", Type: EdgeUsesComponent},
		},
	}

	t.Run("node ids are sorted", func(t *testing.T) {
		assert.Equal(t, []string{"atom-1", "mol-a", "sop-b"}, graph.NodeIDs())
	})

	t.Run("containment edges follow children", func(t *testing.T) {
		edges := graph.ContainmentEdges()

		require.Len(t, edges, 2)
		assert.Equal(t, Edge{Source: "mol-a", Target: "atom-1", Type: EdgeUsesComponent}, edges[0])
		assert.Equal(t, Edge{Source: "sop-b", Target: "mol-a", Type: EdgeUsesComponent}, edges[1])
	})

	t.Run("stats", func(t *testing.T) {
		stats := graph.Stats()

		assert.Equal(t, 3, stats.TotalNodes)
		assert.Equal(t, 2, stats.TotalEdges)
		assert.Equal(t, 1, stats.NodesByType[NodeSOP])
		assert.Equal(t, 1, stats.EdgesByType[EdgeDependsOn])
		assert.Equal(t, 1, stats.StrongEdges)
	})

	t.Run("flavor", func(t *testing.T) {
		assert.Equal(t, FlavorSOP, graph.Flavor())

		journey := &Graph{Nodes: map[string]*Node{"p": {ID: "p", Type: NodePhase}}}
		assert.Equal(t, FlavorJourney, journey.Flavor())
	})

	t.Run("missing node lookup", func(t *testing.T) {
		_, ok := graph.Node("nope")
		assert.False(t, ok)

		var empty *Graph
		_, ok = empty.Node("x")
		assert.False(t, ok)
	})
}
