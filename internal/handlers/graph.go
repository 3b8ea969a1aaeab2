package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sopforge/core/internal/audit"
	"github.com/sopforge/core/internal/compliance"
	"github.com/sopforge/core/internal/graph"
	"github.com/sopforge/core/internal/models"
	"github.com/sopforge/core/internal/validate"
)

func (a *API) Graph(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	a.writeJSON(w, r, http.StatusOK, a.source.Snapshot().Graph)
}

type StatsResponse struct {
	models.Stats
	Flavor     models.Flavor `json:"flavor"`
	Components int           `json:"components"`
	Version    uint64        `json:"version"`
	LoadedAt   time.Time     `json:"loaded_at"`
}

func (a *API) GraphStats(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	snap := a.source.Snapshot()
	a.writeJSON(w, r, http.StatusOK, StatsResponse{
		Stats:      snap.Graph.Stats(),
		Flavor:     snap.Graph.Flavor(),
		Components: snap.Library.Len(),
		Version:    snap.Version,
		LoadedAt:   snap.LoadedAt,
	})
}

type CyclesResponse struct {
	HasCycles   bool          `json:"has_cycles"`
	Cycles      []graph.Cycle `json:"cycles"`
	Containment []graph.Cycle `json:"containment_cycles"`
}

func (a *API) Cycles(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	g := a.source.Snapshot().Graph
	resp := CyclesResponse{
		Cycles:      nonNil(graph.DetectCycles(g)),
		Containment: nonNil(graph.DetectContainmentCycles(g)),
	}
	resp.HasCycles = len(resp.Cycles) > 0 || len(resp.Containment) > 0
	a.writeJSON(w, r, http.StatusOK, resp)
}

func nonNil(c []graph.Cycle) []graph.Cycle {
	if c == nil {
		return []graph.Cycle{}
	}
	return c
}

// Validate runs the validator over the served graph. The response is 200
// whether or not the graph passes; the verdict is in the body.
func (a *API) Validate(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	strict := false
	if s := r.URL.Query().Get("strict"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			a.writeError(w, r, http.StatusBadRequest, "Invalid strict value: "+s)
			return
		}
		strict = b
	}

	snap := a.source.Snapshot()
	res := validate.New(strict, snap.Library).Validate(snap.Graph)
	a.record(r, audit.Event{
		Kind:    audit.KindValidate,
		Subject: snap.Path,
		Outcome: res.Status,
		Score:   res.Summary.Errors,
		Details: "strict=" + strconv.FormatBool(strict),
	})
	a.writeJSON(w, r, http.StatusOK, res)
}

func (a *API) Compliance(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	a.writeJSON(w, r, http.StatusOK, compliance.Generate(a.source.Snapshot().Graph, a.now()))
}
