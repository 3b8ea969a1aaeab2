package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sopforge/core/internal/audit"
	"github.com/sopforge/core/internal/graph"
	"github.com/sopforge/core/internal/impact"
	"github.com/sopforge/core/internal/models"
	"github.com/sopforge/core/internal/risk"
)

type impactOptions struct {
	changeType   string
	direction    string
	includeStart bool
	tree         bool
	depth        int
	threshold    string
	asJSON       bool
}

func newImpactCmd(a *app) *cobra.Command {
	var o impactOptions
	cmd := &cobra.Command{
		Use:   "impact <node-id>",
		Short: "Analyze the impact of changing a node",
		Long: `Analyze what is affected when a node of the graph changes.

By default the analysis follows outgoing edges from the node and reports
every node it reaches, grouped into customer-facing, back-office, system and
regulatory touchpoints, with a risk level and recommendations.

--tree instead follows who uses the node, level by level, and rates each
level by how many documents depend on it.

Examples:
  sopctl impact atom-upload-w2
  sopctl impact sop-onboarding --change-type delete --include-start
  sopctl impact molecule-checklist --tree --depth 3
  sopctl impact atom-run-aus --threshold medium --json
  (exits 1 if risk exceeds threshold)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImpact(cmd.Context(), args[0], o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.changeType, "change-type", "modify", "Change type: modify, delete, update-sla")
	f.StringVar(&o.direction, "direction", "downstream", "Traversal direction: downstream or upstream")
	f.BoolVar(&o.includeStart, "include-start", false, "Count the changed node itself as affected")
	f.BoolVar(&o.tree, "tree", false, "Show the impact tree of documents using the node")
	f.IntVar(&o.depth, "depth", impact.DefaultMaxDepth, "Maximum tree depth (with --tree)")
	f.StringVar(&o.threshold, "threshold", "high", "Risk threshold for exit code: low, medium, high, critical")
	f.BoolVar(&o.asJSON, "json", false, "Output as JSON")
	return cmd
}

type treeOutput struct {
	Tree    *impact.TreeNode `json:"tree"`
	Summary impact.Summary   `json:"summary"`
}

func (a *app) runImpact(ctx context.Context, id string, o impactOptions) error {
	threshold, err := risk.ParseLevel(o.threshold)
	if err != nil {
		return err
	}
	s, err := a.load()
	if err != nil {
		return err
	}
	g := s.Graph()
	analyzer := impact.NewAnalyzer(a.cfg.Risk, a.logger)

	var (
		level   risk.Level
		score   int
		details string
	)
	if o.tree {
		tree, err := analyzer.Tree(g, id, o.depth)
		if err != nil {
			return lookupError(err)
		}
		summary := impact.Summarize(tree)
		if o.asJSON {
			err = a.writeJSON(treeOutput{Tree: tree, Summary: summary})
		} else {
			printTree(a.out, tree, summary)
		}
		if err != nil {
			return err
		}
		level = summary.Highest
		details = fmt.Sprintf("tree depth=%d affected=%d", o.depth, summary.TotalAffected)
	} else {
		change, err := impact.ParseChangeType(o.changeType)
		if err != nil {
			return err
		}
		dir, err := graph.ParseDirection(o.direction)
		if err != nil {
			return err
		}
		report, err := analyzer.Analyze(ctx, g, id, impact.Options{
			ChangeType:   change,
			Direction:    dir,
			IncludeStart: o.includeStart,
		})
		if err != nil {
			return lookupError(err)
		}
		if o.asJSON {
			if err := a.writeJSON(report); err != nil {
				return err
			}
		} else {
			printReport(a.out, report)
		}
		level, score = report.Risk.Level, report.Risk.Score
		details = fmt.Sprintf("change=%s direction=%s affected=%d", report.ChangeType, report.Direction, len(report.Affected))
	}

	a.record(ctx, audit.Event{Kind: audit.KindImpact, Subject: id, Outcome: string(level), Score: score, Details: details})

	if level.Exceeds(threshold) {
		return &findingsError{msg: fmt.Sprintf("risk %s exceeds threshold %s", level, threshold)}
	}
	return nil
}

func printReport(w io.Writer, r *impact.Report) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Impact Analysis: %s (%s)", labelOr(r.Title, r.NodeID), r.NodeID)))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Change: %s   Direction: %s   Type: %s", r.ChangeType, r.Direction, r.NodeType)))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Risk: %s (score %d)\n", riskStyle(r.Risk.Level).Render(string(r.Risk.Level)), r.Risk.Score)
	for _, reason := range r.Risk.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Affected nodes: %d", len(r.Affected))))
	printTouchpoints(w, "Customer-facing", r.CustomerFacing)
	printTouchpoints(w, "Back-office", r.BackOffice)
	printTouchpoints(w, "System", r.System)
	printTouchpoints(w, "Regulatory", r.Regulatory)
	if refs := r.RegulatoryRefs(); len(refs) > 0 {
		fmt.Fprintf(w, "  Regulations: %s\n", strings.Join(refs, ", "))
	}
	printIDs(w, "Modules affected", r.ModulesAffected)
	printIDs(w, "Phases affected", r.PhasesAffected)
	printIDs(w, "Journeys affected", r.JourneysAffected)
	fmt.Fprintf(w, "  Total SLA hours: %g\n", r.TotalSLAHours)
	fmt.Fprintf(w, "  Strong dependencies: %d\n", r.StrongDependencies)

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render("Recommendations"))
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "  [%s] %s: %s\n", riskStyle(rec.Priority).Render(string(rec.Priority)), rec.Category, rec.Action)
			fmt.Fprintf(w, "      %s\n", mutedStyle.Render(rec.Details))
		}
	}

	for _, c := range r.Cycles {
		fmt.Fprintln(w, warningStyle.Render("Warning: circular dependency "+c.String()))
	}
	for _, d := range r.Dangling {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("Warning: edge %s -> %s points at a missing node", d.Edge.Source, d.Edge.Target)))
	}
}

func printTouchpoints(w io.Writer, label string, tps []impact.Touchpoint) {
	if len(tps) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s (%d):\n", label, len(tps))
	for _, tp := range tps {
		line := fmt.Sprintf("    - %s", tp.ID)
		if tp.Title != "" {
			line += ": " + tp.Title
		}
		if tp.SLAHours > 0 {
			line += fmt.Sprintf(" [%gh]", tp.SLAHours)
		}
		fmt.Fprintln(w, line)
	}
}

func printIDs(w io.Writer, label string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s: %s\n", label, strings.Join(ids, ", "))
}

func printTree(w io.Writer, root *impact.TreeNode, s impact.Summary) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Impact Tree: %s (%s)", labelOr(root.Title, root.ID), root.ID)))
	fmt.Fprintln(w)
	printTreeNode(w, root, "")
	fmt.Fprintln(w)

	fmt.Fprintln(w, headerStyle.Render("Summary"))
	fmt.Fprintf(w, "  Total affected: %d\n", s.TotalAffected)
	fmt.Fprintf(w, "  Strong dependencies: %d\n", s.StrongDependencies)
	fmt.Fprintf(w, "  Highest risk: %s\n", riskStyle(s.Highest).Render(string(s.Highest)))
	if s.Circular > 0 {
		fmt.Fprintf(w, "  Circular paths: %d\n", s.Circular)
	}
	if s.Truncated > 0 {
		fmt.Fprintf(w, "  Paths cut at depth limit: %d\n", s.Truncated)
	}
	for _, rec := range s.Recommendations {
		fmt.Fprintf(w, "  - %s\n", rec)
	}
}

func printTreeNode(w io.Writer, t *impact.TreeNode, indent string) {
	fmt.Fprintf(w, "%s%s (%s) %s, %d direct\n", indent, t.ID, t.Type, riskStyle(t.Risk).Render(string(t.Risk)), t.DirectCount())
	for _, b := range t.Downstream {
		prefix := indent + "  └─ "
		rel := b.Relationship
		if b.Strength == models.StrengthStrong {
			rel += ", strong"
		}
		switch b.Status {
		case impact.BranchExpanded:
			fmt.Fprintf(w, "%s[%s]\n", prefix, rel)
			printTreeNode(w, b.Impact, indent+"     ")
		case impact.BranchCircular:
			fmt.Fprintln(w, prefix+warningStyle.Render(fmt.Sprintf("%s [%s] circular: %s", b.ID, rel, strings.Join(b.Path, " → "))))
		case impact.BranchTruncated:
			fmt.Fprintln(w, prefix+mutedStyle.Render(fmt.Sprintf("%s [%s] depth limit reached", b.ID, rel)))
		case impact.BranchMissing:
			fmt.Fprintln(w, prefix+errorStyle.Render(fmt.Sprintf("%s [%s] missing from graph", b.ID, rel)))
		}
	}
}

func labelOr(title, id string) string {
	if title != "" {
		return title
	}
	return id
}
