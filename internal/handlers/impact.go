package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/sopforge/core/internal/audit"
	"github.com/sopforge/core/internal/graph"
	"github.com/sopforge/core/internal/impact"
)

// Impact serves GET /api/impact/{id}?direction=&include_start=&change=.
func (a *API) Impact(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	id := r.PathValue("id")
	q := r.URL.Query()

	change, err := impact.ParseChangeType(q.Get("change"))
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	dir, err := graph.ParseDirection(q.Get("direction"))
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	includeStart := false
	if s := q.Get("include_start"); s != "" {
		if includeStart, err = strconv.ParseBool(s); err != nil {
			a.writeError(w, r, http.StatusBadRequest, "Invalid include_start value: "+s)
			return
		}
	}

	report, err := a.analyzer.Analyze(r.Context(), a.source.Snapshot().Graph, id, impact.Options{
		ChangeType:   change,
		Direction:    dir,
		IncludeStart: includeStart,
	})
	if err != nil {
		a.writeLookupError(w, r, err)
		return
	}

	a.record(r, audit.Event{
		Kind:    audit.KindImpact,
		Subject: id,
		Outcome: string(report.Risk.Level),
		Score:   report.Risk.Score,
		Details: fmt.Sprintf("change=%s direction=%s affected=%d", report.ChangeType, report.Direction, len(report.Affected)),
	})
	a.writeJSON(w, r, http.StatusOK, report)
}

type TreeResponse struct {
	Tree    *impact.TreeNode `json:"tree"`
	Summary impact.Summary   `json:"summary"`
}

// ImpactTree serves GET /api/impact/{id}/tree?depth=.
func (a *API) ImpactTree(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	depth := impact.DefaultMaxDepth
	if s := r.URL.Query().Get("depth"); s != "" {
		d, err := strconv.Atoi(s)
		if err != nil || d < 1 {
			a.writeError(w, r, http.StatusBadRequest, "Invalid depth value: "+s)
			return
		}
		depth = d
	}

	tree, err := a.analyzer.Tree(a.source.Snapshot().Graph, r.PathValue("id"), depth)
	if err != nil {
		a.writeLookupError(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, TreeResponse{Tree: tree, Summary: impact.Summarize(tree)})
}
