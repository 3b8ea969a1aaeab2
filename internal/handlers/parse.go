// Package handlers provides HTTP request handlers for the API endpoints.
// It defines the routing logic, response formatting, and error handling mechanisms.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/sopforge/core/internal/models"
	"github.com/sopforge/core/internal/parser"
)

const maxUploadBytes = 10 << 20

type ParseResponse struct {
	Graph  *models.Graph        `json:"graph"`
	Report parser.ConvertReport `json:"report"`
	Stats  models.Stats         `json:"stats"`
}

// Parse normalises an uploaded graph document: legacy array-format nodes are
// rewritten keyed by id. The served graph is not touched.
func (a *API) Parse(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.writeError(w, r, http.StatusRequestEntityTooLarge, "Graph too large")
			return
		}
		a.writeError(w, r, http.StatusBadRequest, "Failed to read body")
		return
	}
	defer r.Body.Close()

	g, report, err := parser.Convert(body)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, "Invalid graph: "+err.Error())
		return
	}
	if err := parser.CheckStructure(g); err != nil {
		a.writeError(w, r, http.StatusBadRequest, "Invalid graph: "+err.Error())
		return
	}

	a.writeJSON(w, r, http.StatusOK, ParseResponse{Graph: g, Report: report, Stats: g.Stats()})
}
