package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sopforge/core/internal/audit"
	"github.com/sopforge/core/internal/config"
	"github.com/sopforge/core/internal/graph"
	"github.com/sopforge/core/internal/logging"
	"github.com/sopforge/core/internal/store"
)

// app carries the global flags and what PersistentPreRunE builds from them.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	graphPath  string
	components string
	logLevel   string
	logFormat  string
	auditDB    string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{out: stdout, errOut: stderr}

	root := &cobra.Command{
		Use:   "sopctl",
		Short: "Dependency analysis and builds for SOP documentation",
		Long: `sopctl works on a documentation graph of SOPs, reusable components and
customer journeys. It answers "what is affected if this changes", checks the
graph for structural problems and assembles SOP documents from components.

Exit codes:
  0  success
  1  the run completed and found problems (risk over threshold, failed
     validation, circular dependencies)
  2  the run could not complete`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	pf.StringVar(&a.graphPath, "graph", "", "Path to the graph JSON (overrides config)")
	pf.StringVar(&a.components, "components", "", "Component library directory (overrides config)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&a.auditDB, "audit-db", "", "Record runs in this SQLite audit database")

	root.AddCommand(
		newImpactCmd(a),
		newCyclesCmd(a),
		newValidateCmd(a),
		newBuildCmd(a),
		newQuizCmd(a),
		newVisualizeCmd(a),
		newComplianceCmd(a),
		newConvertCmd(a),
		newAssistCmd(a),
		newMCPCmd(a),
		newAuditCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.graphPath != "" {
		cfg.Graph.Path = a.graphPath
	}
	if a.components != "" {
		cfg.Graph.ComponentsDir = a.components
	}
	if a.logLevel != "" {
		if _, err := logging.ParseLevel(a.logLevel); err != nil {
			return err
		}
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.auditDB != "" {
		cfg.Audit.DBPath = a.auditDB
	}

	a.cfg = cfg
	a.logger = logging.New(cfg.Log.Level, cfg.Log.Format, a.errOut)
	return nil
}

// load reads the graph and, when its directory exists, the component library.
func (a *app) load() (*store.Store, error) {
	opts := []store.Option{store.WithLogger(a.logger), store.WithDebounce(a.cfg.Graph.Debounce)}
	if dir := a.cfg.Graph.ComponentsDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			opts = append(opts, store.WithLibraryDir(dir))
		}
	}
	s, err := store.New(a.cfg.Graph.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	return s, nil
}

// record appends e to the audit database when one is configured. A failure
// to record is logged and does not fail the command.
func (a *app) record(ctx context.Context, e audit.Event) {
	if a.cfg.Audit.DBPath == "" {
		return
	}
	log, err := audit.Open(a.cfg.Audit.DBPath)
	if err != nil {
		a.logger.Warn("open audit database", "path", a.cfg.Audit.DBPath, "error", err)
		return
	}
	defer log.Close()
	if _, err := log.Record(ctx, e); err != nil {
		a.logger.Warn("record audit event", "kind", e.Kind, "error", err)
	}
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// lookupError adds the ids that do exist to a missing node error.
func lookupError(err error) error {
	var nf *graph.NotFoundError
	if !errors.As(err, &nf) {
		return err
	}
	ids := nf.Available
	more := ""
	if len(ids) > 20 {
		more = fmt.Sprintf(" (and %d more)", len(ids)-20)
		ids = ids[:20]
	}
	return fmt.Errorf("%w\navailable: %s%s", err, strings.Join(ids, ", "), more)
}
