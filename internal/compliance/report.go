// Package compliance summarises SOP governance metadata: framework coverage,
// department ownership and review deadlines.
package compliance

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sopforge/core/internal/models"
)

const (
	DueSoonDays  = 30
	UpcomingDays = 90

	unknownDepartment = "Unknown"
)

type Entry struct {
	ID           string `json:"id"`
	Title        string `json:"title,omitempty"`
	Version      string `json:"version,omitempty"`
	Status       string `json:"status,omitempty"`
	Department   string `json:"department,omitempty"`
	Owner        string `json:"owner,omitempty"`
	LastReviewed string `json:"lastReviewed,omitempty"`
	NextReview   string `json:"nextReview,omitempty"`
	// DaysUntilReview is negative for overdue reviews.
	DaysUntilReview int `json:"daysUntilReview"`
	DaysOverdue     int `json:"daysOverdue,omitempty"`
}

type FrameworkCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Coverage struct {
	TotalFrameworks         int             `json:"totalFrameworks"`
	AverageSOPsPerFramework float64         `json:"averageSOPsPerFramework"`
	MostCovered             *FrameworkCount `json:"mostCoveredFramework"`
	LeastCovered            *FrameworkCount `json:"leastCoveredFramework"`
}

type Report struct {
	Timestamp    time.Time          `json:"timestamp"`
	TotalSOPs    int                `json:"totalSOPs"`
	ByFramework  map[string][]Entry `json:"byFramework"`
	ByDepartment map[string][]Entry `json:"byDepartment"`
	Overdue      []Entry            `json:"overdueReviews"`
	DueSoon      []Entry            `json:"reviewDueSoon"`
	Upcoming     []Entry            `json:"upcomingReviews"`
	Coverage     Coverage           `json:"complianceCoverage"`
	// Warnings name SOPs whose review dates could not be parsed.
	Warnings []string `json:"warnings,omitempty"`
}

// Frameworks returns the framework names ordered by SOP count, highest first.
func (r *Report) Frameworks() []FrameworkCount {
	out := make([]FrameworkCount, 0, len(r.ByFramework))
	for name, entries := range r.ByFramework {
		out = append(out, FrameworkCount{Name: name, Count: len(entries)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Generate builds the report for every SOP node in g as of now.
func Generate(g *models.Graph, now time.Time) *Report {
	r := &Report{
		Timestamp:    now.UTC(),
		ByFramework:  make(map[string][]Entry),
		ByDepartment: make(map[string][]Entry),
		Overdue:      []Entry{},
		DueSoon:      []Entry{},
		Upcoming:     []Entry{},
	}

	for _, n := range g.NodesOfType(models.NodeSOP) {
		r.TotalSOPs++
		gov := models.Governance{}
		if n.Governance != nil {
			gov = *n.Governance
		}

		e := Entry{
			ID:           n.ID,
			Title:        n.Title,
			Version:      n.Version,
			Status:       n.Status,
			Department:   gov.Department,
			Owner:        n.Owner,
			LastReviewed: gov.LastReviewed,
			NextReview:   gov.NextReview,
		}
		if e.LastReviewed == "" {
			e.LastReviewed = gov.EffectiveDate
		}

		dept := e.Department
		if dept == "" {
			dept = unknownDepartment
		}
		r.ByDepartment[dept] = append(r.ByDepartment[dept], e)
		for _, fw := range gov.ComplianceFrameworks {
			r.ByFramework[fw] = append(r.ByFramework[fw], e)
		}

		if gov.NextReview == "" {
			continue
		}
		next, err := ParseDate(gov.NextReview)
		if err != nil {
			r.Warnings = append(r.Warnings, fmt.Sprintf("SOP %s: invalid nextReview %q", n.ID, gov.NextReview))
			continue
		}

		e.DaysUntilReview = daysBetween(now, next)
		switch {
		case e.DaysUntilReview < 0:
			e.DaysOverdue = -e.DaysUntilReview
			r.Overdue = append(r.Overdue, e)
		case e.DaysUntilReview <= DueSoonDays:
			r.DueSoon = append(r.DueSoon, e)
		case e.DaysUntilReview <= UpcomingDays:
			r.Upcoming = append(r.Upcoming, e)
		}
	}

	sort.SliceStable(r.Overdue, func(i, j int) bool { return r.Overdue[i].DaysOverdue > r.Overdue[j].DaysOverdue })
	sort.SliceStable(r.DueSoon, func(i, j int) bool { return r.DueSoon[i].DaysUntilReview < r.DueSoon[j].DaysUntilReview })
	sort.SliceStable(r.Upcoming, func(i, j int) bool { return r.Upcoming[i].DaysUntilReview < r.Upcoming[j].DaysUntilReview })

	r.Coverage = coverage(r)
	return r
}

func coverage(r *Report) Coverage {
	counts := r.Frameworks()
	c := Coverage{TotalFrameworks: len(counts)}
	if len(counts) == 0 {
		return c
	}
	c.AverageSOPsPerFramework = math.Round(float64(r.TotalSOPs)/float64(len(counts))*10) / 10
	most, least := counts[0], counts[len(counts)-1]
	c.MostCovered, c.LeastCovered = &most, &least
	return c
}

// ParseDate accepts YYYY-MM-DD or RFC 3339. Date-only values are midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// daysBetween is the number of whole days from now until t, rounded down.
func daysBetween(now, t time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}
