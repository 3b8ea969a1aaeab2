// Package assistant is a retrieval-augmented question answering demo over a
// small fixed corpus of SOP sections. Embeddings and generation are mocked.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DefaultTopK = 5
	Model       = "mock-gpt-4"
)

var ErrEmptyQuery = errors.New("query is required")

var queriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sopforge_assistant_queries_total",
		Help: "Total assistant queries by whether any source was found",
	},
	[]string{"answered"},
)

type Metadata struct {
	Department           string   `json:"department"`
	Category             string   `json:"category"`
	ComplianceFrameworks []string `json:"complianceFrameworks"`
	LastUpdated          string   `json:"lastUpdated"`
}

// Document is one embedded SOP section.
type Document struct {
	ID        string    `json:"id"`
	SOPID     string    `json:"sopId"`
	Title     string    `json:"title"`
	Section   string    `json:"section"`
	Content   string    `json:"content"`
	Embedding []float64 `json:"-"`
	Metadata  Metadata  `json:"metadata"`
}

// DefaultCorpus returns the built-in demo sections.
func DefaultCorpus() []Document {
	mf := func(category string, frameworks ...string) Metadata {
		return Metadata{Department: "Mortgage Finance", Category: category, ComplianceFrameworks: frameworks, LastUpdated: "2025-11-16"}
	}
	return []Document{
		{
			ID: "sop-mf-003-section-1", SOPID: "sop-mf-003",
			Title: "FHA Underwriting Standards", Section: "Credit Score Methodology",
			Content:   "FHA requires minimum credit score of 580 for 3.5% down payment. Scores 500-579 require 10% down. Manual underwriting required for scores below 620.",
			Embedding: []float64{0.23, 0.45, 0.67, 0.12, 0.89},
			Metadata:  mf("Underwriting", "FHA Handbook 4000.1"),
		},
		{
			ID: "sop-mf-005-section-1", SOPID: "sop-mf-005",
			Title: "Wire Transfer Security", Section: "Approval Thresholds",
			Content:   "Wire transfers require tiered approval: $0-15K (1 Closer), $15K-100K (Closer + Manager), $100K-500K (Closer + Manager + VP), $500K+ (2 VPs + CFO).",
			Embedding: []float64{0.67, 0.23, 0.45, 0.89, 0.12},
			Metadata:  mf("Security", "SOX", "Fraud Prevention"),
		},
		{
			ID: "sop-mf-004-section-1", SOPID: "sop-mf-004",
			Title: "Clear to Close Procedures", Section: "Quality Checklist",
			Content:   "CTC requires 75-point quality checklist including: title commitment review, insurance verification, TRID compliance check, final walkthrough confirmation.",
			Embedding: []float64{0.45, 0.89, 0.23, 0.67, 0.12},
			Metadata:  mf("Quality Control", "TRID", "RESPA"),
		},
		{
			ID: "sop-mf-001-section-1", SOPID: "sop-mf-001",
			Title: "AUS Processing Workflow", Section: "Desktop Underwriter",
			Content:   "DU findings provide automated underwriting decision. Accept/Eligible requires standard documentation. Refer/Caution triggers manual underwriting review.",
			Embedding: []float64{0.12, 0.67, 0.89, 0.23, 0.45},
			Metadata:  mf("Processing", "Fannie Mae Guidelines"),
		},
	}
}

// topic keyword pairs, checked in order; the first word match wins.
var topics = []struct {
	name      string
	keywords  []string
	embedding []float64
}{
	{"credit", []string{"credit", "score"}, []float64{0.25, 0.45, 0.65, 0.15, 0.85}},
	{"wire", []string{"wire", "transfer"}, []float64{0.65, 0.25, 0.45, 0.85, 0.15}},
	{"close", []string{"close", "ctc"}, []float64{0.45, 0.85, 0.25, 0.65, 0.15}},
	{"aus", []string{"aus", "underwriting"}, []float64{0.15, 0.65, 0.85, 0.25, 0.45}},
}

var neutralEmbedding = []float64{0.5, 0.5, 0.5, 0.5, 0.5}

// Embed maps a query to a pseudo-embedding from its space-separated words.
func Embed(query string) []float64 {
	words := strings.Split(strings.ToLower(query), " ")
	for _, t := range topics {
		for _, k := range t.keywords {
			if slices.Contains(words, k) {
				return slices.Clone(t.embedding)
			}
		}
	}
	return slices.Clone(neutralEmbedding)
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or their lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

type Filters struct {
	Department string `json:"department,omitempty"`
	Category   string `json:"category,omitempty"`
}

type Match struct {
	Document
	Score float64 `json:"score"`
}

type Assistant struct {
	docs   []Document
	logger *slog.Logger
	now    func() time.Time
}

// New returns an assistant over docs, or over DefaultCorpus when docs is empty.
func New(logger *slog.Logger, docs ...Document) *Assistant {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if len(docs) == 0 {
		docs = DefaultCorpus()
	}
	return &Assistant{docs: docs, logger: logger, now: time.Now}
}

// Search ranks the corpus against embedding and returns the top k matches
// that pass the filters.
func (a *Assistant) Search(embedding []float64, k int, f Filters) []Match {
	if k <= 0 {
		k = DefaultTopK
	}
	var matches []Match
	for _, d := range a.docs {
		if f.Department != "" && d.Metadata.Department != f.Department {
			continue
		}
		if f.Category != "" && d.Metadata.Category != f.Category {
			continue
		}
		matches = append(matches, Match{Document: d, Score: Cosine(embedding, d.Embedding)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

type Request struct {
	Query   string  `json:"query"`
	Filters Filters `json:"filters"`
	TopK    int     `json:"topK,omitempty"`
}

type Source struct {
	SOPID   string `json:"sopId"`
	Title   string `json:"title"`
	Section string `json:"section"`
	// Relevance is the similarity score as a rounded percentage.
	Relevance int `json:"relevance"`
}

type ResponseMetadata struct {
	RetrievalCount int       `json:"retrievalCount"`
	ProcessingTime float64   `json:"processingTime"`
	Model          string    `json:"model"`
	Timestamp      time.Time `json:"timestamp"`
}

type Response struct {
	Query      string           `json:"query"`
	Answer     string           `json:"answer"`
	Confidence float64          `json:"confidence"`
	Sources    []Source         `json:"sources"`
	Metadata   ResponseMetadata `json:"metadata"`
}

const noAnswer = "I couldn't find specific information about that in our SOPs. Please try rephrasing your question or contact your department manager for clarification."

func (a *Assistant) Query(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := a.now()
	matches := a.Search(Embed(req.Query), req.TopK, req.Filters)

	resp := &Response{
		Query:   req.Query,
		Answer:  noAnswer,
		Sources: []Source{},
	}
	if len(matches) > 0 {
		primary := matches[0]
		resp.Answer = answer(req.Query, primary.Document)
		resp.Confidence = primary.Score
		for _, m := range matches {
			resp.Sources = append(resp.Sources, Source{
				SOPID:     m.SOPID,
				Title:     m.Title,
				Section:   m.Section,
				Relevance: int(math.Round(m.Score * 100)),
			})
		}
	}

	resp.Metadata = ResponseMetadata{
		RetrievalCount: len(matches),
		ProcessingTime: a.now().Sub(start).Seconds(),
		Model:          Model,
		Timestamp:      a.now().UTC(),
	}

	queriesTotal.WithLabelValues(fmt.Sprint(len(matches) > 0)).Inc()
	a.logger.InfoContext(ctx, "assistant query",
		"query", req.Query,
		"matches", len(matches),
		"confidence", resp.Confidence)
	return resp, nil
}

// answer fills the template for the query's topic from the primary source.
func answer(query string, d Document) string {
	q := strings.ToLower(query)
	frameworks := strings.Join(d.Metadata.ComplianceFrameworks, ", ")
	hasAny := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(q, w) {
				return true
			}
		}
		return false
	}

	switch {
	case hasAny("credit", "score"):
		return fmt.Sprintf("Based on %s, the credit requirements are: %s\n\nKey points:\n• This applies to %s\n• Complies with %s\n• Last updated: %s",
			d.Title, d.Content, d.Metadata.Department, frameworks, d.Metadata.LastUpdated)
	case hasAny("wire", "transfer"):
		return fmt.Sprintf("According to %s, wire transfer procedures require: %s\n\nImportant notes:\n• Follow the tiered approval process strictly\n• Document all approvals in the system\n• Verify beneficiary information via callback\n• Compliance framework: %s",
			d.Title, d.Content, frameworks)
	case hasAny("close", "ctc"):
		return fmt.Sprintf("Per %s, the clear to close process includes: %s\n\nQuality requirements:\n• Complete all checklist items\n• Obtain necessary signatures\n• Verify compliance with %s\n• Final review by closing manager",
			d.Title, d.Content, frameworks)
	}
	return fmt.Sprintf("According to %s (%s):\n\n%s\n\n**Reference:** %s\n**Department:** %s\n**Compliance:** %s",
		d.Title, d.Section, d.Content, d.SOPID, d.Metadata.Department, frameworks)
}

type Health struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
	Stats    map[string]int    `json:"stats"`
}

func (a *Assistant) Health() Health {
	return Health{
		Status:   "operational",
		Services: map[string]string{"vectorDB": "mock", "llm": "mock", "embeddings": "mock"},
		Stats:    map[string]int{"totalEmbeddings": len(a.docs)},
	}
}
