// Package quiz derives training quizzes from assembled SOP documents: who owns
// the procedure, which frameworks govern it, the order of its steps and the
// decision points in its text.
package quiz

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/sopforge/core/internal/models"
)

const (
	PassingScore = 80

	TypeMultipleChoice = "multiple-choice"
	TypeTrueFalse      = "true-false"
	TypeFillIn         = "fill-in-blank"
	TypeOrdering       = "ordering"

	Easy   = "easy"
	Medium = "medium"
	Hard   = "hard"

	// maxOrderingSteps caps how many steps an ordering question shows.
	maxOrderingSteps   = 4
	minutesPerQuestion = 1.5
)

var (
	distractorFrameworks = []string{"ISO 9001", "GDPR", "PCI DSS", "HIPAA"}
	distractorFirstSteps = []string{"Contact supervisor", "Complete documentation", "Submit for approval"}

	procedureHeading = regexp.MustCompile(`(?m)^##\s*Procedure\s*$`)
	numberedStep     = regexp.MustCompile(`(?m)^\d+\.\s+(.+?)\s*$`)
	decisionPoint    = regexp.MustCompile(`(?i)\b(?:if|when|must|require|should)\s+[^.!?\n]+[.!?]`)
)

// Source is what a quiz is generated from.
type Source struct {
	ID         string
	Title      string
	Version    string
	Status     string
	Owner      string
	Department string
	Category   string
	Frameworks []string
	Content    string
}

// FromNode takes the governance fields of an SOP node and the markdown it was
// built into.
func FromNode(n *models.Node, content string) Source {
	src := Source{
		ID:      n.ID,
		Title:   n.Label(),
		Version: n.Version,
		Status:  n.Status,
		Owner:   n.Owner,
		Content: content,
	}
	if n.Governance != nil {
		src.Department = n.Department
		src.Frameworks = n.ComplianceFrameworks
	}
	if c, ok := n.Metadata["category"].(string); ok {
		src.Category = c
	}
	return src
}

// Question answers are typed by question kind: Answer holds the option index
// for multiple-choice, a bool for true-false and the expected text for
// fill-in-blank. Ordering questions use CorrectOrder instead.
type Question struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Category     string   `json:"category"`
	Question     string   `json:"question"`
	Options      []string `json:"options,omitempty"`
	Answer       any      `json:"correctAnswer,omitempty"`
	CorrectOrder []int    `json:"correctOrder,omitempty"`
	Hints        []string `json:"hints,omitempty"`
	Explanation  string   `json:"explanation"`
	Difficulty   string   `json:"difficulty"`
	Tags         []string `json:"tags"`
}

type Metadata struct {
	TotalQuestions   int            `json:"totalQuestions"`
	EstimatedMinutes int            `json:"estimatedTime"`
	PassingScore     int            `json:"passingScore"`
	Difficulty       map[string]int `json:"difficultyDistribution"`
}

type Quiz struct {
	SOPID      string     `json:"sopId"`
	SOPTitle   string     `json:"sopTitle"`
	Department string     `json:"department,omitempty"`
	Category   string     `json:"category,omitempty"`
	Metadata   Metadata   `json:"quizMetadata"`
	Questions  []Question `json:"questions"`
}

// Generate builds the quiz for src. The output depends only on src.
func Generate(src Source) *Quiz {
	category := src.Category
	if category == "" {
		category = "processing"
	}
	department := src.Department
	if department == "" {
		department = "owning"
	}

	questions := []Question{{
		ID:       src.ID + "-q1",
		Type:     TypeMultipleChoice,
		Category: "identification",
		Question: fmt.Sprintf("What is the primary purpose of %s?", src.Title),
		Options: []string{
			"To provide guidelines for " + strings.ToLower(category),
			"To define organizational structure",
			"To establish compensation policies",
			"To outline marketing strategies",
		},
		Answer:      0,
		Explanation: fmt.Sprintf("This SOP focuses on %s procedures within the %s department.", category, department),
		Difficulty:  Easy,
		Tags:        []string{"purpose", "identification"},
	}}

	if len(src.Frameworks) > 0 {
		options := []string{src.Frameworks[0]}
		for _, f := range distractorFrameworks {
			if len(options) == 4 {
				break
			}
			if !slices.Contains(src.Frameworks, f) {
				options = append(options, f)
			}
		}
		questions = append(questions, Question{
			ID:          src.ID + "-q2",
			Type:        TypeMultipleChoice,
			Category:    "compliance",
			Question:    "Which compliance framework(s) does this SOP address?",
			Options:     options,
			Answer:      0,
			Explanation: "This SOP is governed by: " + strings.Join(src.Frameworks, ", "),
			Difficulty:  Medium,
			Tags:        []string{"compliance", "frameworks"},
		})
	}

	questions = append(questions, Question{
		ID:          src.ID + "-q3",
		Type:        TypeTrueFalse,
		Category:    "governance",
		Question:    fmt.Sprintf("The current version of this SOP is %s and its status is %q.", src.Version, src.Status),
		Answer:      true,
		Explanation: fmt.Sprintf("Always verify you are using the current version (%s) with status: %s.", src.Version, src.Status),
		Difficulty:  Easy,
		Tags:        []string{"version", "status"},
	})

	if src.Owner != "" {
		questions = append(questions, Question{
			ID:          src.ID + "-q4",
			Type:        TypeFillIn,
			Category:    "governance",
			Question:    "Who is the designated owner of this SOP?",
			Answer:      src.Owner,
			Hints:       []string{"Works in " + department, "Responsible for " + category},
			Explanation: src.Owner + " is responsible for maintaining and updating this SOP.",
			Difficulty:  Medium,
			Tags:        []string{"ownership", "accountability"},
		})
	}

	questions = append(questions, procedureQuestions(src.ID, src.Content)...)

	q := &Quiz{
		SOPID:      src.ID,
		SOPTitle:   src.Title,
		Department: src.Department,
		Category:   src.Category,
		Questions:  questions,
	}
	q.Metadata = Metadata{
		TotalQuestions:   len(questions),
		EstimatedMinutes: int(math.Ceil(float64(len(questions)) * minutesPerQuestion)),
		PassingScore:     PassingScore,
		Difficulty:       map[string]int{Easy: 0, Medium: 0, Hard: 0},
	}
	for _, question := range questions {
		q.Metadata.Difficulty[question.Difficulty]++
	}
	return q
}

// Steps returns the numbered steps under the first "## Procedure" heading,
// up to the next heading or rule.
func Steps(content string) []string {
	loc := procedureHeading.FindStringIndex(content)
	if loc == nil {
		return nil
	}
	section := content[loc[1]:]
	for _, stop := range []string{"\n##", "\n---"} {
		if i := strings.Index(section, stop); i >= 0 {
			section = section[:i]
		}
	}
	var steps []string
	for _, m := range numberedStep.FindAllStringSubmatch(section, -1) {
		steps = append(steps, m[1])
	}
	return steps
}

func procedureQuestions(id, content string) []Question {
	var questions []Question

	steps := Steps(content)
	if len(steps) >= 3 {
		shown := steps[:min(len(steps), maxOrderingSteps)]
		k := len(shown)
		// Options are the steps rotated by one; CorrectOrder lists, in
		// procedure order, where each step appears among the options.
		options := make([]string, k)
		order := make([]int, k)
		for i := range shown {
			options[i] = shown[(i+1)%k]
			order[i] = (i + k - 1) % k
		}
		questions = append(questions, Question{
			ID:           id + "-proc-q1",
			Type:         TypeOrdering,
			Category:     "procedure",
			Question:     "Arrange these steps in the correct order:",
			Options:      options,
			CorrectOrder: order,
			Explanation:  "Following the correct sequence ensures compliance and efficiency.",
			Difficulty:   Hard,
			Tags:         []string{"procedure", "sequence"},
		})
	}
	if len(steps) > 0 {
		questions = append(questions, Question{
			ID:          id + "-proc-q2",
			Type:        TypeMultipleChoice,
			Category:    "procedure",
			Question:    "What is the first step in this procedure?",
			Options:     append([]string{steps[0]}, distractorFirstSteps...),
			Answer:      0,
			Explanation: "The procedure begins with: " + steps[0],
			Difficulty:  Medium,
			Tags:        []string{"procedure", "first-step"},
		})
	}

	if d := decisionPoint.FindString(content); d != "" {
		questions = append(questions, Question{
			ID:          id + "-decision-q1",
			Type:        TypeTrueFalse,
			Category:    "decision-making",
			Question:    strings.TrimSpace(d),
			Answer:      true,
			Explanation: "This is a critical decision point in the procedure.",
			Difficulty:  Medium,
			Tags:        []string{"decision", "critical-point"},
		})
	}
	return questions
}

// WriteAll writes dir/quiz-<id>.json for each quiz and dir/quiz-metadata.json
// with all of them.
func WriteAll(dir string, quizzes []*Quiz) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create quiz directory: %w", err)
	}
	for _, q := range quizzes {
		if err := writeJSON(filepath.Join(dir, "quiz-"+q.SOPID+".json"), q); err != nil {
			return err
		}
	}
	if quizzes == nil {
		quizzes = []*Quiz{}
	}
	return writeJSON(filepath.Join(dir, "quiz-metadata.json"), quizzes)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
