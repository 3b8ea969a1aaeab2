package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sopforge/core/internal/assistant"
)

func (a *API) AssistantQuery(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req assistant.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := a.assistant.Query(r.Context(), req)
	switch {
	case errors.Is(err, assistant.ErrEmptyQuery):
		a.writeError(w, r, http.StatusBadRequest, "Query is required")
		return
	case err != nil:
		a.logger.ErrorContext(r.Context(), "assistant query failed", "error", err)
		a.writeError(w, r, http.StatusInternalServerError, "Failed to process query")
		return
	}
	a.writeJSON(w, r, http.StatusOK, resp)
}

func (a *API) AssistantHealth(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	a.writeJSON(w, r, http.StatusOK, a.assistant.Health())
}
