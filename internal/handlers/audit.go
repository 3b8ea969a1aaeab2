package handlers

import (
	"net/http"
	"strconv"

	"github.com/sopforge/core/internal/audit"
)

// Audit lists recorded runs, newest first, optionally for one subject.
// It answers 404 when no audit log is configured.
func (a *API) Audit(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	if a.audit == nil {
		a.writeError(w, r, http.StatusNotFound, "Audit log is not enabled")
		return
	}

	q := r.URL.Query()
	limit := audit.DefaultLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			a.writeError(w, r, http.StatusBadRequest, "Invalid limit value: "+s)
			return
		}
		limit = n
	}

	var (
		events []audit.Event
		err    error
	)
	if subject := q.Get("subject"); subject != "" {
		events, err = a.audit.ForSubject(r.Context(), subject, limit)
	} else {
		events, err = a.audit.Recent(r.Context(), limit)
	}
	if err != nil {
		a.logger.ErrorContext(r.Context(), "read audit log", "error", err)
		a.writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	a.writeJSON(w, r, http.StatusOK, events)
}

// record appends e to the audit log when one is configured. Failures are
// logged and do not fail the request.
func (a *API) record(r *http.Request, e audit.Event) {
	if a.audit == nil {
		return
	}
	if _, err := a.audit.Record(r.Context(), e); err != nil {
		a.logger.WarnContext(r.Context(), "record audit event", "kind", e.Kind, "subject", e.Subject, "error", err)
	}
}
