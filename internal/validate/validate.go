// Package validate checks the integrity of a documentation graph and its
// component library: structure, references, cycles, SLAs and metadata.
package validate

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sopforge/core/internal/build"
	"github.com/sopforge/core/internal/models"
)

var runsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sopforge_validation_runs_total",
		Help: "Total graph validation runs by outcome",
	},
	[]string{"status"},
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// Issue is one finding. NodeID is empty for graph-wide findings.
type Issue struct {
	Severity Severity `json:"type"`
	Message  string   `json:"message"`
	NodeID   string   `json:"node_id,omitempty"`
}

type Summary struct {
	TotalNodes      int `json:"totalNodes"`
	TotalEdges      int `json:"totalEdges"`
	TotalComponents int `json:"totalComponents"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Infos           int `json:"infos"`
}

type Result struct {
	Timestamp time.Time     `json:"timestamp"`
	Status    string        `json:"status"`
	Flavor    models.Flavor `json:"flavor"`
	Strict    bool          `json:"strict"`
	Summary   Summary       `json:"summary"`
	Errors    []Issue       `json:"errors"`
	Warnings  []Issue       `json:"warnings"`
	Info      []Issue       `json:"info"`
}

// Valid reports whether the run found no errors.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// Validator runs every check against a graph. Library is optional; without it
// component references must resolve to graph nodes.
type Validator struct {
	// Strict records every warning as an error.
	Strict  bool
	Library *build.Library

	now func() time.Time
}

func New(strict bool, library *build.Library) *Validator {
	return &Validator{Strict: strict, Library: library, now: time.Now}
}

func (v *Validator) Validate(g *models.Graph) *Result {
	now := time.Now
	if v.now != nil {
		now = v.now
	}

	c := &checker{graph: g, library: v.Library, strict: v.Strict}
	c.result = &Result{
		Timestamp: now().UTC(),
		Strict:    v.Strict,
		Errors:    []Issue{},
		Warnings:  []Issue{},
		Info:      []Issue{},
	}
	c.run()

	r := c.result
	r.Summary.Errors = len(r.Errors)
	r.Summary.Warnings = len(r.Warnings)
	r.Summary.Infos = len(r.Info)
	r.Status = StatusPass
	if !r.Valid() {
		r.Status = StatusFail
	}
	runsTotal.WithLabelValues(r.Status).Inc()
	return r
}

type checker struct {
	graph   *models.Graph
	library *build.Library
	strict  bool
	journey bool
	result  *Result
}

func (c *checker) errorf(nodeID, format string, args ...any) {
	c.result.Errors = append(c.result.Errors, Issue{
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		NodeID:   nodeID,
	})
}

func (c *checker) warnf(nodeID, format string, args ...any) {
	if c.strict {
		c.errorf(nodeID, format, args...)
		return
	}
	c.result.Warnings = append(c.result.Warnings, Issue{
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		NodeID:   nodeID,
	})
}

func (c *checker) infof(format string, args ...any) {
	c.result.Info = append(c.result.Info, Issue{Severity: SeverityInfo, Message: fmt.Sprintf(format, args...)})
}

// journeyOrSOP reports a finding that is an error in journey graphs and a
// warning in SOP graphs.
func (c *checker) journeyOrSOP(nodeID, format string, args ...any) {
	if c.journey {
		c.errorf(nodeID, format, args...)
		return
	}
	c.warnf(nodeID, format, args...)
}
