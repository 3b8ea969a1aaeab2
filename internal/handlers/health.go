// Package handlers provides HTTP request handlers for the API endpoints.
// It defines the routing logic, response formatting, and error handling mechanisms.
package handlers

import (
	"net/http"
	"runtime"
	"strconv"
	"time"
)

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Service   string            `json:"service"`
	Uptime    string            `json:"uptime,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Health reports liveness plus the version of the graph being served.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	snap := a.source.Snapshot()
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: a.now().UTC().Format(time.RFC3339),
		Service:   "sopforge-api",
		Uptime:    time.Since(a.started).String(),
		Details: map[string]string{
			"go_version":      runtime.Version(),
			"num_cpu":         strconv.Itoa(runtime.NumCPU()),
			"graph_path":      snap.Path,
			"graph_version":   strconv.FormatUint(snap.Version, 10),
			"graph_nodes":     strconv.Itoa(len(snap.Graph.Nodes)),
			"graph_loaded_at": snap.LoadedAt.UTC().Format(time.RFC3339),
		},
	}

	a.writeJSON(w, r, http.StatusOK, response)
}
