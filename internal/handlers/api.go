// Package handlers provides HTTP request handlers for the API endpoints.
// It defines the routing logic, response formatting, and error handling mechanisms.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sopforge/core/internal/assistant"
	"github.com/sopforge/core/internal/audit"
	"github.com/sopforge/core/internal/graph"
	"github.com/sopforge/core/internal/impact"
	"github.com/sopforge/core/internal/store"
)

// SnapshotSource is the part of store.Store the handlers read from.
type SnapshotSource interface {
	Snapshot() *store.Snapshot
}

// AuditLog is the part of audit.Store the handlers use.
type AuditLog interface {
	Record(ctx context.Context, e audit.Event) (audit.Event, error)
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
	ForSubject(ctx context.Context, subject string, limit int) ([]audit.Event, error)
}

type API struct {
	source    SnapshotSource
	analyzer  *impact.Analyzer
	assistant *assistant.Assistant
	audit     AuditLog
	logger    *slog.Logger
	started   time.Time
	now       func() time.Time
}

type Option func(*API)

func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

func WithAssistant(as *assistant.Assistant) Option {
	return func(a *API) { a.assistant = as }
}

// WithAudit records impact and validation runs and serves /api/audit.
func WithAudit(log AuditLog) Option {
	return func(a *API) { a.audit = log }
}

func NewAPI(source SnapshotSource, analyzer *impact.Analyzer, opts ...Option) *API {
	a := &API{
		source:   source,
		analyzer: analyzer,
		logger:   slog.New(slog.DiscardHandler),
		started:  time.Now(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.assistant == nil {
		a.assistant = assistant.New(a.logger)
	}
	return a
}

// Register adds every route to mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", a.Health)
	mux.HandleFunc("/parse", a.Parse)
	mux.HandleFunc("/api/graph", a.Graph)
	mux.HandleFunc("/api/graph/stats", a.GraphStats)
	mux.HandleFunc("/api/impact/{id}", a.Impact)
	mux.HandleFunc("/api/impact/{id}/tree", a.ImpactTree)
	mux.HandleFunc("/api/cycles", a.Cycles)
	mux.HandleFunc("/api/validate", a.Validate)
	mux.HandleFunc("/api/compliance", a.Compliance)
	mux.HandleFunc("/api/assistant/query", a.AssistantQuery)
	mux.HandleFunc("/api/assistant/health", a.AssistantHealth)
	mux.HandleFunc("/api/audit", a.Audit)
}

type ErrorResponse struct {
	Error     string   `json:"error"`
	Available []string `json:"available,omitempty"`
}

func (a *API) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	if r.URL.Query().Get("pretty") == "true" {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(v); err != nil {
		a.logger.ErrorContext(r.Context(), "encode response", "path", r.URL.Path, "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	a.writeJSON(w, r, status, ErrorResponse{Error: msg})
}

// writeLookupError maps a missing node to 404 with the ids that do exist and
// anything else to 500.
func (a *API) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	var nf *graph.NotFoundError
	if errors.As(err, &nf) {
		a.writeJSON(w, r, http.StatusNotFound, ErrorResponse{Error: err.Error(), Available: nf.Available})
		return
	}
	a.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	a.writeError(w, r, http.StatusInternalServerError, "Internal server error")
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
