// Package main starts an HTTP server that serves impact analysis, validation
// and compliance reports over a SOP dependency graph. The graph is reloaded
// from disk when it changes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sopforge/core/cmd/api/middleware"
	"github.com/sopforge/core/internal/assistant"
	"github.com/sopforge/core/internal/audit"
	"github.com/sopforge/core/internal/config"
	"github.com/sopforge/core/internal/handlers"
	"github.com/sopforge/core/internal/impact"
	"github.com/sopforge/core/internal/logging"
	"github.com/sopforge/core/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Getenv("SOP_CONFIG")); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	graphs, err := store.New(cfg.Graph.Path,
		store.WithLogger(logger),
		store.WithLibraryDir(libraryDir(cfg.Graph.ComponentsDir)),
		store.WithDebounce(cfg.Graph.Debounce))
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}

	opts := []handlers.Option{
		handlers.WithLogger(logger),
		handlers.WithAssistant(assistant.New(logger)),
	}
	if cfg.Audit.DBPath != "" {
		auditLog, err := audit.Open(cfg.Audit.DBPath)
		if err != nil {
			return err
		}
		defer auditLog.Close()
		opts = append(opts, handlers.WithAudit(auditLog))
	}

	api := handlers.NewAPI(graphs, impact.NewAnalyzer(cfg.Risk, logger), opts...)
	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      newHandler(api, cfg.Server.CORSOrigin, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Graph.Watch {
		go func() {
			if err := graphs.Watch(ctx); err != nil {
				logger.Error("graph watcher stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "graph", cfg.Graph.Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// libraryDir returns dir when it exists; the component library is optional.
func libraryDir(dir string) string {
	if dir == "" {
		return ""
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return dir
}

func newRouter(api *handlers.API) *http.ServeMux {
	mux := http.NewServeMux()
	api.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func newHandler(api *handlers.API, origin string, logger *slog.Logger) http.Handler {
	return middleware.Cors(origin)(middleware.Metrics(middleware.Logging(logger)(newRouter(api))))
}
