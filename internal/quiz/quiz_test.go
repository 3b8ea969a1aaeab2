package quiz

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sopforge/core/internal/models"
)

const wireContent = `# Wire Transfers

## Procedure

1. Verify the customer's identity
2. Check the daily wire limit
3. Obtain dual approval
4. Release the wire
5. Archive the confirmation

## Notes

Wires over $50,000 must be approved by a second officer.
`

func wireSource() Source {
	return Source{
		ID:         "sop-wire",
		Title:      "Wire Transfers",
		Version:    "2.0.0",
		Status:     "active",
		Owner:      "Treasury Ops",
		Department: "Operations",
		Category:   "Payments",
		Frameworks: []string{"SOX", "GDPR"},
		Content:    wireContent,
	}
}

func byID(q *Quiz) map[string]Question {
	m := make(map[string]Question)
	for _, question := range q.Questions {
		m[question.ID] = question
	}
	return m
}

func TestSteps(t *testing.T) {
	assert.Equal(t, []string{
		"Verify the customer's identity",
		"Check the daily wire limit",
		"Obtain dual approval",
		"Release the wire",
		"Archive the confirmation",
	}, Steps(wireContent))

	t.Run("no procedure section", func(t *testing.T) {
		assert.Empty(t, Steps("1. orphan step\n2. another"))
	})

	t.Run("section ends at a rule", func(t *testing.T) {
		assert.Equal(t, []string{"one"}, Steps("## Procedure\n1. one\n---\n2. two\n"))
	})
}

func TestGenerate(t *testing.T) {
	q := Generate(wireSource())
	questions := byID(q)

	assert.Equal(t, "sop-wire", q.SOPID)
	require.Len(t, q.Questions, 7)
	assert.Equal(t, 7, q.Metadata.TotalQuestions)
	assert.Equal(t, 11, q.Metadata.EstimatedMinutes)
	assert.Equal(t, PassingScore, q.Metadata.PassingScore)
	assert.Equal(t, map[string]int{Easy: 2, Medium: 4, Hard: 1}, q.Metadata.Difficulty)

	t.Run("purpose", func(t *testing.T) {
		assert.Equal(t, "To provide guidelines for payments", questions["sop-wire-q1"].Options[0])
	})

	t.Run("frameworks exclude the ones already governing", func(t *testing.T) {
		assert.Equal(t, []string{"SOX", "ISO 9001", "PCI DSS", "HIPAA"}, questions["sop-wire-q2"].Options)
	})

	t.Run("owner", func(t *testing.T) {
		owner := questions["sop-wire-q4"]
		assert.Equal(t, TypeFillIn, owner.Type)
		assert.Equal(t, "Treasury Ops", owner.Answer)
	})

	t.Run("ordering uses the first four steps", func(t *testing.T) {
		ordering := questions["sop-wire-proc-q1"]
		assert.Equal(t, []string{
			"Check the daily wire limit",
			"Obtain dual approval",
			"Release the wire",
			"Verify the customer's identity",
		}, ordering.Options)
		for i, idx := range ordering.CorrectOrder {
			assert.Equal(t, Steps(wireContent)[i], ordering.Options[idx])
		}
	})

	t.Run("first step", func(t *testing.T) {
		assert.Equal(t, "Verify the customer's identity", questions["sop-wire-proc-q2"].Options[0])
	})

	t.Run("decision point", func(t *testing.T) {
		assert.Equal(t, "must be approved by a second officer.", questions["sop-wire-decision-q1"].Question)
	})

	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, q, Generate(wireSource()))
	})
}

func TestGenerateMinimal(t *testing.T) {
	q := Generate(Source{ID: "sop-bare", Title: "Bare", Version: "1.0.0", Status: "draft"})

	require.Len(t, q.Questions, 2)
	assert.Equal(t, "sop-bare-q1", q.Questions[0].ID)
	assert.Equal(t, "sop-bare-q3", q.Questions[1].ID)
	assert.Equal(t, "To provide guidelines for processing", q.Questions[0].Options[0])
}

func TestFromNode(t *testing.T) {
	n := &models.Node{
		ID:       "sop-wire",
		Type:     models.NodeSOP,
		Title:    "Wire Transfers",
		Owner:    "Treasury Ops",
		Metadata: map[string]any{"category": "Payments"},
		Governance: &models.Governance{
			Department:           "Operations",
			ComplianceFrameworks: []string{"SOX"},
		},
	}

	src := FromNode(n, "body")

	assert.Equal(t, "Wire Transfers", src.Title)
	assert.Equal(t, "Operations", src.Department)
	assert.Equal(t, "Payments", src.Category)
	assert.Equal(t, []string{"SOX"}, src.Frameworks)
	assert.Equal(t, "body", src.Content)
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "training")

	require.NoError(t, WriteAll(dir, []*Quiz{Generate(wireSource())}))

	assert.FileExists(t, filepath.Join(dir, "quiz-sop-wire.json"))
	data, err := os.ReadFile(filepath.Join(dir, "quiz-metadata.json"))
	require.NoError(t, err)
	var all []Quiz
	require.NoError(t, json.Unmarshal(data, &all))
	require.Len(t, all, 1)
	assert.Equal(t, "sop-wire", all[0].SOPID)
}
