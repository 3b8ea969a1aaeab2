package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sopforge/core/internal/assistant"
	"github.com/sopforge/core/internal/audit"
	"github.com/sopforge/core/internal/compliance"
	"github.com/sopforge/core/internal/impact"
	"github.com/sopforge/core/internal/models"
	"github.com/sopforge/core/internal/validate"
)

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestGraphRoutes(t *testing.T) {
	a := newTestAPI()

	t.Run("graph", func(t *testing.T) {
		w := serve(a, http.MethodGet, "/api/graph", "")

		require.Equal(t, http.StatusOK, w.Code)
		g := decode[models.Graph](t, w.Body.Bytes())
		assert.Len(t, g.Nodes, 3)
		assert.Len(t, g.Edges, 2)
	})

	t.Run("stats", func(t *testing.T) {
		w := serve(a, http.MethodGet, "/api/graph/stats", "")

		require.Equal(t, http.StatusOK, w.Code)
		s := decode[StatsResponse](t, w.Body.Bytes())
		assert.Equal(t, 3, s.TotalNodes)
		assert.Equal(t, 1, s.StrongEdges)
		assert.Equal(t, models.FlavorSOP, s.Flavor)
		assert.Equal(t, uint64(3), s.Version)
	})

	t.Run("cycles on an acyclic graph", func(t *testing.T) {
		w := serve(a, http.MethodGet, "/api/cycles", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"has_cycles":false,"cycles":[],"containment_cycles":[]}`, w.Body.String())
	})

	t.Run("compliance", func(t *testing.T) {
		w := serve(a, http.MethodGet, "/api/compliance", "")

		require.Equal(t, http.StatusOK, w.Code)
		r := decode[compliance.Report](t, w.Body.Bytes())
		assert.Equal(t, 3, r.TotalSOPs)
		require.Len(t, r.Overdue, 1)
		assert.Equal(t, "sop-onboarding", r.Overdue[0].ID)
		assert.Equal(t, 31, r.Overdue[0].DaysOverdue)
		require.Len(t, r.Upcoming, 1)
		assert.Equal(t, "sop-access", r.Upcoming[0].ID)
		assert.Equal(t, 2, r.Coverage.TotalFrameworks)
		assert.InDelta(t, 1.5, r.Coverage.AverageSOPsPerFramework, 1e-9)
	})

	t.Run("wrong method", func(t *testing.T) {
		w := serve(a, http.MethodDelete, "/api/graph", "")

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestImpactRoutes(t *testing.T) {
	t.Run("downstream impact", func(t *testing.T) {
		w := serve(newTestAPI(), http.MethodGet, "/api/impact/sop-access", "")

		require.Equal(t, http.StatusOK, w.Code)
		r := decode[impact.Report](t, w.Body.Bytes())
		assert.Equal(t, "sop-access", r.NodeID)
		assert.Equal(t, []string{"sop-onboarding", "sop-offboarding"}, r.Affected)
		assert.Equal(t, 1, r.StrongDependencies)
		assert.Equal(t, impact.ChangeModify, r.ChangeType)
	})

	t.Run("query options", func(t *testing.T) {
		w := serve(newTestAPI(), http.MethodGet, "/api/impact/sop-offboarding?direction=upstream&include_start=true&change=delete", "")

		require.Equal(t, http.StatusOK, w.Code)
		r := decode[impact.Report](t, w.Body.Bytes())
		assert.ElementsMatch(t, []string{"sop-offboarding", "sop-onboarding", "sop-access"}, r.Affected)
		assert.Equal(t, "upstream", r.Direction)
		assert.Equal(t, impact.ChangeDelete, r.ChangeType)
	})

	t.Run("unknown node is 404 with alternatives", func(t *testing.T) {
		w := serve(newTestAPI(), http.MethodGet, "/api/impact/sop-missing", "")

		require.Equal(t, http.StatusNotFound, w.Code)
		e := decode[ErrorResponse](t, w.Body.Bytes())
		assert.Contains(t, e.Error, `"sop-missing" not found`)
		assert.Equal(t, []string{"sop-access", "sop-offboarding", "sop-onboarding"}, e.Available)
	})

	t.Run("bad parameters are 400", func(t *testing.T) {
		for _, target := range []string{
			"/api/impact/sop-access?change=rename",
			"/api/impact/sop-access?direction=sideways",
			"/api/impact/sop-access?include_start=maybe",
			"/api/impact/sop-access/tree?depth=0",
			"/api/impact/sop-access/tree?depth=deep",
		} {
			w := serve(newTestAPI(), http.MethodGet, target, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, target)
		}
	})

	t.Run("tree", func(t *testing.T) {
		w := serve(newTestAPI(), http.MethodGet, "/api/impact/sop-offboarding/tree?depth=5", "")

		require.Equal(t, http.StatusOK, w.Code)
		r := decode[TreeResponse](t, w.Body.Bytes())
		assert.Equal(t, "sop-offboarding", r.Tree.ID)
		require.Len(t, r.Tree.Dependents, 1)
		assert.Equal(t, "sop-onboarding", r.Tree.Dependents[0].ID)
		assert.Equal(t, 2, r.Summary.TotalAffected)
		assert.Equal(t, 1, r.Summary.StrongDependencies)
	})

	t.Run("tree for unknown node", func(t *testing.T) {
		w := serve(newTestAPI(), http.MethodGet, "/api/impact/nope/tree", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestValidateRoute(t *testing.T) {
	t.Run("warnings pass", func(t *testing.T) {
		w := serve(newTestAPI(), http.MethodGet, "/api/validate", "")

		require.Equal(t, http.StatusOK, w.Code)
		r := decode[validate.Result](t, w.Body.Bytes())
		assert.Equal(t, validate.StatusPass, r.Status)
		assert.NotEmpty(t, r.Warnings)
	})

	t.Run("strict fails", func(t *testing.T) {
		w := serve(newTestAPI(), http.MethodGet, "/api/validate?strict=true", "")

		require.Equal(t, http.StatusOK, w.Code)
		r := decode[validate.Result](t, w.Body.Bytes())
		assert.Equal(t, validate.StatusFail, r.Status)
		assert.True(t, r.Strict)
		assert.Empty(t, r.Warnings)
	})

	t.Run("bad strict value", func(t *testing.T) {
		w := serve(newTestAPI(), http.MethodGet, "/api/validate?strict=very", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAssistantRoutes(t *testing.T) {
	a := newTestAPI()

	t.Run("query", func(t *testing.T) {
		w := serve(a, http.MethodPost, "/api/assistant/query", `{"query":"wire limits","topK":2}`)

		require.Equal(t, http.StatusOK, w.Code)
		r := decode[assistant.Response](t, w.Body.Bytes())
		require.Len(t, r.Sources, 2)
		assert.Equal(t, "sop-mf-005", r.Sources[0].SOPID)
	})

	t.Run("empty query", func(t *testing.T) {
		w := serve(a, http.MethodPost, "/api/assistant/query", `{"query":""}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Query is required", decode[ErrorResponse](t, w.Body.Bytes()).Error)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := serve(a, http.MethodPost, "/api/assistant/query", `{"query":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("query requires POST", func(t *testing.T) {
		w := serve(a, http.MethodGet, "/api/assistant/query", "")

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("health", func(t *testing.T) {
		w := serve(a, http.MethodGet, "/api/assistant/health", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "operational", decode[assistant.Health](t, w.Body.Bytes()).Status)
	})
}

func TestAuditRoute(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		w := serve(newTestAPI(), http.MethodGet, "/api/audit", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("records impact and validation runs", func(t *testing.T) {
		log := &memoryAudit{}
		a := newTestAPI(WithAudit(log))

		serve(a, http.MethodGet, "/api/impact/sop-access", "")
		serve(a, http.MethodGet, "/api/validate", "")

		w := serve(a, http.MethodGet, "/api/audit", "")
		require.Equal(t, http.StatusOK, w.Code)
		events := decode[[]audit.Event](t, w.Body.Bytes())
		require.Len(t, events, 2)
		assert.Equal(t, audit.KindValidate, events[0].Kind)
		assert.Equal(t, "graph/sop-graph.json", events[0].Subject)
		assert.Equal(t, validate.StatusPass, events[0].Outcome)
		assert.Equal(t, audit.KindImpact, events[1].Kind)
		assert.Equal(t, "sop-access", events[1].Subject)
		assert.Contains(t, events[1].Details, "affected=2")

		w = serve(a, http.MethodGet, "/api/audit?subject=sop-access&limit=5", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]audit.Event](t, w.Body.Bytes()), 1)
	})

	t.Run("empty log is an empty list", func(t *testing.T) {
		w := serve(newTestAPI(WithAudit(&memoryAudit{})), http.MethodGet, "/api/audit", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("bad limit", func(t *testing.T) {
		w := serve(newTestAPI(WithAudit(&memoryAudit{})), http.MethodGet, "/api/audit?limit=-1", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("recording failures do not fail the request", func(t *testing.T) {
		a := newTestAPI(WithAudit(&memoryAudit{err: errors.New("disk full")}))

		w := serve(a, http.MethodGet, "/api/impact/sop-access", "")
		assert.Equal(t, http.StatusOK, w.Code)

		w = serve(a, http.MethodGet, "/api/audit", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
