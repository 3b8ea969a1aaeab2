package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sopforge/core/internal/build"
	"github.com/sopforge/core/internal/quiz"
)

func newQuizCmd(a *app) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "quiz [sop-id...]",
		Short: "Generate training quizzes from built SOPs",
		Long: `Build each SOP and derive a training quiz from it: purpose, governing
frameworks, version, owner, step order and decision points. Without ids every
SOP gets a quiz. Output is <out>/quiz-<id>.json plus quiz-metadata.json.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.load()
			if err != nil {
				return err
			}
			snap := s.Snapshot()
			if outDir == "" {
				outDir = filepath.Join(a.cfg.Build.OutputDir, "training")
			}

			builder := build.NewBuilder(snap.Graph, snap.Library, a.logger)
			var docs []*build.Document
			if len(args) == 0 {
				for _, r := range builder.BuildAll() {
					if r.Status == build.StatusSuccess {
						docs = append(docs, r.Doc)
					}
				}
			} else {
				for _, id := range args {
					doc, err := builder.Build(id)
					if err != nil {
						return lookupError(err)
					}
					docs = append(docs, doc)
				}
			}

			quizzes := make([]*quiz.Quiz, 0, len(docs))
			for _, doc := range docs {
				q := quiz.Generate(quiz.FromNode(snap.Graph.Nodes[doc.SOPID], doc.Content))
				quizzes = append(quizzes, q)
				fmt.Fprintln(a.out, successStyle.Render("  ✓ "+q.SOPID)+
					mutedStyle.Render(fmt.Sprintf(" %d questions, ~%d min", q.Metadata.TotalQuestions, q.Metadata.EstimatedMinutes)))
			}
			if err := quiz.WriteAll(outDir, quizzes); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "\nGenerated %d quizzes into %s\n", len(quizzes), outDir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default <build output>/training)")
	return cmd
}
