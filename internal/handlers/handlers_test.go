// Package handlers provides HTTP request handlers for the API endpoints.
// It defines the routing logic, response formatting, and error handling mechanisms.
package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/sopforge/core/internal/audit"
	"github.com/sopforge/core/internal/build"
	"github.com/sopforge/core/internal/impact"
	"github.com/sopforge/core/internal/models"
	"github.com/sopforge/core/internal/risk"
	"github.com/sopforge/core/internal/store"
)

var fixedNow = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

type fixedSource struct {
	snap *store.Snapshot
}

func (f fixedSource) Snapshot() *store.Snapshot { return f.snap }

// memoryAudit keeps events in insertion order.
type memoryAudit struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (m *memoryAudit) Record(_ context.Context, e audit.Event) (audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return audit.Event{}, m.err
	}
	m.events = append(m.events, e)
	return e, nil
}

func (m *memoryAudit) Recent(_ context.Context, limit int) ([]audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []audit.Event
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func (m *memoryAudit) ForSubject(ctx context.Context, subject string, limit int) ([]audit.Event, error) {
	all, err := m.Recent(ctx, len(m.events))
	if err != nil {
		return nil, err
	}
	var out []audit.Event
	for _, e := range all {
		if e.Subject == subject && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

// sopGraph is sop-access -> sop-onboarding -> sop-offboarding, the first edge
// strong. sop-onboarding's review is overdue at fixedNow.
func sopGraph() *models.Graph {
	return &models.Graph{
		Nodes: map[string]*models.Node{
			"sop-access": {ID: "sop-access", Type: models.NodeSOP, Title: "Access Management",
				Governance: &models.Governance{NextReview: "2026-09-01", Department: "IT", ComplianceFrameworks: []string{"SOX"}}},
			"sop-onboarding": {ID: "sop-onboarding", Type: models.NodeSOP, Title: "Onboarding",
				Governance: &models.Governance{NextReview: "2026-06-01", Department: "HR", ComplianceFrameworks: []string{"SOX", "GDPR"}}},
			"sop-offboarding": {ID: "sop-offboarding", Type: models.NodeSOP, Title: "Offboarding"},
		},
		Edges: []models.Edge{
			{Source: "sop-access", Target: "sop-onboarding", Type: models.EdgeDependsOn, Strength: models.StrengthStrong},
			{Source: "sop-onboarding", Target: "sop-offboarding", Type: models.EdgeDependsOn},
		},
	}
}

func newTestAPI(opts ...Option) *API {
	snap := &store.Snapshot{
		Graph:    sopGraph(),
		Library:  build.NewLibrary(),
		Path:     "graph/sop-graph.json",
		LoadedAt: fixedNow.Add(-time.Hour),
		Version:  3,
	}
	a := NewAPI(fixedSource{snap: snap}, impact.NewAnalyzer(risk.DefaultPolicy(), nil), opts...)
	a.now = func() time.Time { return fixedNow }
	return a
}

// serve routes req through a mux so path values are populated.
func serve(a *API, method, target, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	a.Register(mux)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}
