package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/sopforge/core/internal/graph"
	"github.com/sopforge/core/internal/models"
)

// ErrNotSOP is returned when Build is asked for a node that exists but is not
// an SOP.
var ErrNotSOP = errors.New("node is not an SOP")

const (
	defaultVersion      = "1.0.0"
	defaultStatus       = "draft"
	defaultOwner        = "Unassigned"
	defaultLastReviewed = "Not yet reviewed"
	defaultApprover     = "Pending approval"
	defaultReason       = "Critical dependency"

	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var sopTemplate = template.Must(template.New("sop").Funcs(template.FuncMap{"join": strings.Join}).Parse(`---
generated: true
generated_date: {{.Generated}}
sop_id: {{.ID}}
title: {{.Title}}
version: {{.Version}}
status: {{.Status}}
owner: {{.Owner}}
last_reviewed: {{.LastReviewed}}
approver: {{.Approver}}
---

# {{.Title}}

**SOP ID**: {{.ID}}
**Version**: {{.Version}}
**Status**: {{.Status}}
**Owner**: {{.Owner}}
**Last Reviewed**: {{.LastReviewed}}
**Approved By**: {{.Approver}}
{{- with .Governance}}
{{- if .Department}}
**Department**: {{.Department}}
{{- end}}
{{- if .NextReview}}
**Next Review**: {{.NextReview}}
{{- end}}
{{- if .ComplianceFrameworks}}
**Compliance Frameworks**: {{join .ComplianceFrameworks ", "}}
{{- end}}
{{- end}}

---

## Table of Contents

- [Overview](#overview)
- [Dependencies](#dependencies)
- [Components](#components)
- [Change History](#change-history)

---

## Overview

This SOP is automatically assembled from modular components to ensure consistency and maintainability.
{{if .Dependencies}}
## Dependencies

This SOP depends on the following:
{{range .Dependencies}}
- **[{{.ID}}]({{.ID}}.md)**: {{.Title}}
{{- if .Description}}
  - {{.Description}}
{{- end}}
{{- if .Strong}}
  - **Strong dependency** - {{.Reason}}
{{- end}}
{{- end}}
{{end}}
{{- if .Components}}
## Components

This SOP is composed of the following modular components:
{{range .Components}}
- **{{.ID}}** ({{if .Found}}{{.Kind}}{{else}}not found in component library{{end}})
{{- end}}

---

## SOP Content
{{range .Components}}
{{.Content}}

---
{{end}}
{{- else}}
## Content

_This SOP does not reference any modular components._
{{end}}
{{- if .Related}}
## Related SOPs
{{range .Related}}
- [{{.ID}}]({{.ID}}.md): {{.Title}}
{{- end}}
{{end}}
## Change History

| Version | Date | Changes | Approver |
|---------|------|---------|----------|
| {{.Version}} | {{.LastReviewed}} | Current version | {{.Approver}} |

---

**Last Built**: {{.Generated}}
**Build Tool**: sopforge
**Build Type**: Automated assembly from modular components
`))

type dependencyView struct {
	ID, Title, Description, Reason string
	Strong                         bool
}

type componentView struct {
	ID, Kind, Content string
	Found             bool
}

type relatedView struct {
	ID, Title string
}

type sopView struct {
	ID, Title, Version, Status, Owner string
	LastReviewed, Approver, Generated string
	Governance                        *models.Governance
	Dependencies                      []dependencyView
	Components                        []componentView
	Related                           []relatedView
}

// Document is one assembled SOP.
type Document struct {
	SOPID    string   `json:"sop_id"`
	Title    string   `json:"title"`
	Content  string   `json:"-"`
	Warnings []string `json:"warnings,omitempty"`
}

type Builder struct {
	graph   *models.Graph
	library *Library
	logger  *slog.Logger
	now     func() time.Time
}

func NewBuilder(g *models.Graph, library *Library, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if library == nil {
		library = NewLibrary()
	}
	return &Builder{graph: g, library: library, logger: logger, now: time.Now}
}

// Build renders the SOP id.
func (b *Builder) Build(id string) (*Document, error) {
	n, ok := b.graph.Node(id)
	if !ok {
		return nil, &graph.NotFoundError{ID: id, Available: b.graph.NodeIDs()}
	}
	if n.Type != models.NodeSOP {
		return nil, fmt.Errorf("build %s: %w (type %s)", id, ErrNotSOP, n.Type)
	}

	b.logger.Info("building SOP", "sop", id, "title", n.Title)

	view := sopView{
		ID:           id,
		Title:        n.Title,
		Version:      fallback(n.Version, defaultVersion),
		Status:       fallback(n.Status, defaultStatus),
		Owner:        fallback(n.Owner, defaultOwner),
		LastReviewed: fallback(metaString(n, "lastReviewed"), governance(n).LastReviewed, defaultLastReviewed),
		Approver:     fallback(metaString(n, "approver"), governance(n).Approver, defaultApprover),
		Generated:    b.now().UTC().Format(time.RFC3339),
		Governance:   n.Governance,
	}

	doc := &Document{SOPID: id, Title: n.Title}

	for _, e := range b.graph.Edges {
		if e.Source != id || e.Type != models.EdgeDependsOn {
			continue
		}
		dep := dependencyView{ID: e.Target, Description: e.Description, Strong: e.IsStrong()}
		if target, ok := b.graph.Node(e.Target); ok {
			dep.Title = target.Title
		}
		if dep.Strong {
			dep.Reason = fallback(e.Reason(), defaultReason)
		}
		view.Dependencies = append(view.Dependencies, dep)
	}

	for _, cid := range componentList(n) {
		content, warnings, found := b.library.ExpandComponent(cid)
		cv := componentView{ID: cid, Content: strings.TrimSpace(content), Found: found}
		if c, ok := b.library.Get(cid); ok {
			cv.Kind = strings.TrimSuffix(c.Kind, "s")
		}
		for _, w := range warnings {
			b.logger.Warn("component expansion", "sop", id, "component", cid, "warning", w)
		}
		doc.Warnings = append(doc.Warnings, warnings...)
		view.Components = append(view.Components, cv)
	}

	for _, e := range b.graph.Edges {
		if e.Type != models.EdgeRelatedTo || (e.Source != id && e.Target != id) {
			continue
		}
		other := e.Target
		if e.Target == id {
			other = e.Source
		}
		if rn, ok := b.graph.Node(other); ok {
			view.Related = append(view.Related, relatedView{ID: other, Title: rn.Title})
		}
	}

	var sb strings.Builder
	if err := sopTemplate.Execute(&sb, view); err != nil {
		return nil, fmt.Errorf("render %s: %w", id, err)
	}
	doc.Content = sb.String()
	return doc, nil
}

// Result is the outcome for one document. SOPID holds the journey id for
// journey builds.
type Result struct {
	SOPID  string    `json:"sop_id"`
	Status string    `json:"status"`
	Path   string    `json:"path,omitempty"`
	Error  string    `json:"error,omitempty"`
	Doc    *Document `json:"-"`
}

// BuildAll builds every SOP in id order. A failing SOP is recorded in its
// result and does not stop the others.
func (b *Builder) BuildAll() []Result {
	var results []Result
	for _, id := range b.graph.NodeIDs() {
		if n := b.graph.Nodes[id]; n == nil || n.Type != models.NodeSOP {
			continue
		}
		doc, err := b.Build(id)
		if err != nil {
			b.logger.Error("failed to build SOP", "sop", id, "error", err)
			results = append(results, Result{SOPID: id, Status: StatusFailed, Error: err.Error()})
			continue
		}
		results = append(results, Result{SOPID: id, Status: StatusSuccess, Doc: doc})
	}
	return results
}

type Report struct {
	BuildDate  time.Time `json:"buildDate"`
	TotalSOPs  int       `json:"totalSOPs"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Results    []Result  `json:"results"`
}

// WriteAll writes dir/sops/<id>.md for each result (every SOP when ids is
// empty) and dir/build-report.json.
func (b *Builder) WriteAll(dir string, ids ...string) (*Report, error) {
	var results []Result
	if len(ids) == 0 {
		results = b.BuildAll()
	} else {
		for _, id := range ids {
			doc, err := b.Build(id)
			if err != nil {
				return nil, err
			}
			results = append(results, Result{SOPID: id, Status: StatusSuccess, Doc: doc})
		}
	}

	return writeResults(dir, "sops", "build-report.json", results, b.now(), b.logger)
}

// writeResults writes dir/sub/<id>.md for every successful result and the
// report as dir/reportName.
func writeResults(dir, sub, reportName string, results []Result, now time.Time, logger *slog.Logger) (*Report, error) {
	docDir := filepath.Join(dir, sub)
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	report := &Report{BuildDate: now.UTC(), TotalSOPs: len(results)}
	for i := range results {
		r := &results[i]
		if r.Status == StatusSuccess {
			r.Path = filepath.Join(docDir, r.SOPID+".md")
			if err := os.WriteFile(r.Path, []byte(r.Doc.Content), 0o644); err != nil {
				return nil, fmt.Errorf("write %s: %w", r.Path, err)
			}
			logger.Info("wrote document", "id", r.SOPID, "path", r.Path)
			report.Successful++
		} else {
			report.Failed++
		}
	}
	report.Results = results

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode build report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, reportName), data, 0o644); err != nil {
		return nil, fmt.Errorf("write build report: %w", err)
	}
	return report, nil
}

// componentList prefers components and falls back to composedOf.
func componentList(n *models.Node) []string {
	if n.Composition == nil {
		return nil
	}
	if len(n.Components) > 0 {
		return n.Components
	}
	return n.ComposedOf
}

func governance(n *models.Node) models.Governance {
	if n.Governance == nil {
		return models.Governance{}
	}
	return *n.Governance
}

func metaString(n *models.Node, key string) string {
	if s, ok := n.Metadata[key].(string); ok {
		return s
	}
	return ""
}

func fallback(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
