package build

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/sopforge/core/internal/graph"
	"github.com/sopforge/core/internal/models"
)

// ErrNotJourney is returned when BuildJourney is asked for a node that exists
// but is not a journey.
var ErrNotJourney = errors.New("node is not a journey")

var journeyTemplate = template.Must(template.New("journey").Funcs(template.FuncMap{
	"join":  strings.Join,
	"days":  func(h float64) string { return strconv.FormatFloat(h/24, 'f', 1, 64) },
	"num":   func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
	"check": yesNo,
}).Parse(`# {{.Title}}

> **Journey ID:** ` + "`{{.ID}}`" + `
> **Type:** {{.LoanType}} | {{.TransactionType}}
> **Target SLA:** {{num .TargetDays}} days

---

## Overview

{{.Description}}

**Key Characteristics:**
- **Loan Type:** {{.LoanType}}
- **Transaction Type:** {{.TransactionType}}
- **Expected Timeline:** {{num .TargetDays}} days from application to closing

---

## Journey Phases
{{range .Phases}}
### {{.Title}}

{{.Description}}

**SLA:** {{num .SLAHours}} hours ({{days .SLAHours}} days)
{{range .Modules}}
#### {{.Title}}

{{.Description}}

**Module SLA:** {{num .SLAHours}} hours
{{if .Atoms}}
**Touchpoints:**
{{range .Atoms}}
##### {{.Title}}

| Property | Value |
|----------|-------|
| **Atom ID** | ` + "`{{.ID}}`" + ` |
| **Actor** | {{.Actor}} |
| **Type** | {{.AtomType}} |
| **Customer Visible** | {{check .CustomerVisible}} |
| **Front Stage** | {{check .FrontStage}} |
| **SLA** | {{num .SLAHours}} hours |
{{- if .Regulatory}}
| **Regulatory** | {{join .Regulatory ", "}} |
{{- end}}
{{if .Content}}
{{.Content}}
{{end}}
---
{{end}}
{{- end}}
{{- end}}
{{- end}}
---

## Timeline & SLA Breakdown

### Cumulative Timeline

| Touchpoint | SLA (hours) | Cumulative (hours) | Cumulative (days) |
|------------|-------------|--------------------|-------------------|
{{- range .Timeline}}
| {{.Title}} | {{num .Hours}} | {{num .Cumulative}} | {{days .Cumulative}} |
{{- end}}

**Total Journey SLA:** {{num .TotalHours}} hours ({{days .TotalHours}} days)

**Target SLA:** {{num .TargetDays}} days
{{if .WithinTarget}}**Status:** ✅ Within target SLA{{else}}**Status:** ⚠️ Exceeds target SLA by {{.OverBy}} days{{end}}

---

## Success Metrics

- **Time to Decision:** Target < {{num .TargetDays}} days
- **Regulatory Compliance:** Target 100%

---

*Built by sopforge on {{.Generated}}*
`))

type atomView struct {
	ID              string
	Title           string
	Actor           string
	AtomType        string
	CustomerVisible bool
	FrontStage      bool
	SLAHours        float64
	Regulatory      []string
	Content         string
}

type moduleView struct {
	Title       string
	Description string
	SLAHours    float64
	Atoms       []atomView
}

type phaseView struct {
	Title       string
	Description string
	SLAHours    float64
	Modules     []moduleView
}

type timelineRow struct {
	Title      string
	Hours      float64
	Cumulative float64
}

type journeyView struct {
	ID              string
	Title           string
	Description     string
	LoanType        string
	TransactionType string
	TargetDays      float64
	Phases          []phaseView
	Timeline        []timelineRow
	TotalHours      float64
	WithinTarget    bool
	OverBy          string
	Generated       string
}

// BuildJourney renders the journey id phase by phase, module by module, with
// a table per touchpoint and the cumulative SLA timeline. Atom text comes
// from the component library when it has a component with the atom's id.
// References to missing nodes are skipped with a warning.
func (b *Builder) BuildJourney(id string) (*Document, error) {
	n, ok := b.graph.Node(id)
	if !ok {
		return nil, &graph.NotFoundError{ID: id, Available: b.graph.NodeIDs()}
	}
	if n.Type != models.NodeJourney {
		return nil, fmt.Errorf("build %s: %w (type %s)", id, ErrNotJourney, n.Type)
	}

	b.logger.Info("building journey", "journey", id, "title", n.Title)

	doc := &Document{SOPID: id, Title: n.Label()}
	view := journeyView{
		ID:              id,
		Title:           n.Label(),
		Description:     n.Description,
		LoanType:        extraString(n, "loan_type"),
		TransactionType: extraString(n, "transaction_type"),
		TargetDays:      extraFloat(n, "sla_days"),
		Generated:       b.now().UTC().Format(time.RFC3339),
	}

	children := func(parent *models.Node, ids []string) []*models.Node {
		var out []*models.Node
		for _, cid := range ids {
			c, ok := b.graph.Node(cid)
			if !ok {
				doc.Warnings = append(doc.Warnings, fmt.Sprintf("%s %s references missing node %s", parent.Type, parent.ID, cid))
				continue
			}
			out = append(out, c)
		}
		return out
	}

	for _, p := range children(n, phaseIDs(n)) {
		pv := phaseView{Title: p.Label(), Description: p.Description, SLAHours: p.SLA()}
		for _, m := range children(p, moduleIDs(p)) {
			mv := moduleView{Title: m.Label(), Description: m.Description, SLAHours: m.SLA()}
			for _, a := range children(m, atomIDs(m)) {
				mv.Atoms = append(mv.Atoms, b.touchpoint(a, doc))
				view.TotalHours += a.SLA()
				view.Timeline = append(view.Timeline, timelineRow{Title: a.Label(), Hours: a.SLA(), Cumulative: view.TotalHours})
			}
			pv.Modules = append(pv.Modules, mv)
		}
		view.Phases = append(view.Phases, pv)
	}

	totalDays := view.TotalHours / 24
	view.WithinTarget = totalDays <= view.TargetDays
	if !view.WithinTarget {
		view.OverBy = strconv.FormatFloat(totalDays-view.TargetDays, 'f', 1, 64)
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("journey %s exceeds its target SLA by %s days", id, view.OverBy))
	}

	var sb strings.Builder
	if err := journeyTemplate.Execute(&sb, view); err != nil {
		return nil, fmt.Errorf("render %s: %w", id, err)
	}
	doc.Content = sb.String()
	return doc, nil
}

func (b *Builder) touchpoint(a *models.Node, doc *Document) atomView {
	av := atomView{
		ID:              a.ID,
		Title:           a.Label(),
		CustomerVisible: a.IsCustomerVisible(),
		FrontStage:      extraBool(a, "front_stage"),
		SLAHours:        a.SLA(),
		Regulatory:      a.Regulatory(),
	}
	if a.Touchpoint != nil {
		av.Actor, av.AtomType = a.Actor, a.AtomType
	}
	if _, ok := b.library.Get(a.ID); ok {
		content, warnings, _ := b.library.ExpandComponent(a.ID)
		av.Content = strings.TrimSpace(content)
		doc.Warnings = append(doc.Warnings, warnings...)
	}
	return av
}

// BuildAllJourneys builds every journey in id order.
func (b *Builder) BuildAllJourneys() []Result {
	var results []Result
	for _, id := range b.graph.NodeIDs() {
		if n := b.graph.Nodes[id]; n == nil || n.Type != models.NodeJourney {
			continue
		}
		doc, err := b.BuildJourney(id)
		if err != nil {
			b.logger.Error("failed to build journey", "journey", id, "error", err)
			results = append(results, Result{SOPID: id, Status: StatusFailed, Error: err.Error()})
			continue
		}
		results = append(results, Result{SOPID: id, Status: StatusSuccess, Doc: doc})
	}
	return results
}

// WriteJourneys writes dir/journeys/<id>.md for each journey (every journey
// when ids is empty) and dir/journey-report.json.
func (b *Builder) WriteJourneys(dir string, ids ...string) (*Report, error) {
	var results []Result
	if len(ids) == 0 {
		results = b.BuildAllJourneys()
	} else {
		for _, id := range ids {
			doc, err := b.BuildJourney(id)
			if err != nil {
				return nil, err
			}
			results = append(results, Result{SOPID: id, Status: StatusSuccess, Doc: doc})
		}
	}
	return writeResults(dir, "journeys", "journey-report.json", results, b.now(), b.logger)
}

func yesNo(b bool) string {
	if b {
		return "✓ Yes"
	}
	return "✗ No"
}

func phaseIDs(n *models.Node) []string {
	if n.Composition == nil {
		return nil
	}
	return n.Phases
}

func moduleIDs(n *models.Node) []string {
	if n.Composition == nil {
		return nil
	}
	return n.Modules
}

func atomIDs(n *models.Node) []string {
	if n.Composition == nil {
		return nil
	}
	return n.Atoms
}

func extraString(n *models.Node, key string) string {
	if s, ok := n.Extra[key].(string); ok {
		return s
	}
	return ""
}

func extraFloat(n *models.Node, key string) float64 {
	if f, ok := n.Extra[key].(float64); ok {
		return f
	}
	return 0
}

func extraBool(n *models.Node, key string) bool {
	b, _ := n.Extra[key].(bool)
	return b
}
