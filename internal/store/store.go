// Package store holds the current graph and component library in memory and
// swaps in a fresh copy whenever the files on disk change.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sopforge/core/internal/build"
	"github.com/sopforge/core/internal/models"
	"github.com/sopforge/core/internal/parser"
)

const DefaultDebounce = 200 * time.Millisecond

var (
	reloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sopforge_store_reloads_total",
			Help: "Total graph reloads by result",
		},
		[]string{"result"},
	)

	graphNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sopforge_store_graph_nodes",
			Help: "Number of nodes in the currently served graph",
		},
	)

	lastReload = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sopforge_store_last_reload_timestamp_seconds",
			Help: "Unix time of the last successful reload",
		},
	)
)

// Snapshot is an immutable view of the loaded data. Callers must not modify
// the graph or library they get from it.
type Snapshot struct {
	Graph    *models.Graph
	Library  *build.Library
	Path     string
	LoadedAt time.Time
	Version  uint64
}

type Store struct {
	path       string
	libraryDir string
	debounce   time.Duration
	logger     *slog.Logger

	mu      sync.Mutex // serialises reloads
	current atomic.Pointer[Snapshot]
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithLibraryDir loads the component library from dir alongside the graph.
func WithLibraryDir(dir string) Option {
	return func(s *Store) { s.libraryDir = dir }
}

func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

// New loads the graph at path. The initial load must succeed.
func New(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.libraryDir != "" {
		s.libraryDir = filepath.Clean(s.libraryDir)
	}

	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Graph is shorthand for Snapshot().Graph.
func (s *Store) Graph() *models.Graph {
	return s.current.Load().Graph
}

func (s *Store) Path() string {
	return s.path
}

// Reload reads the files again and publishes the result. On failure the
// previous snapshot stays in place.
func (s *Store) Reload() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		reloadsTotal.WithLabelValues("failure").Inc()
		s.logger.Error("graph reload failed", "path", s.path, "error", err)
		return nil, err
	}

	if prev := s.current.Load(); prev != nil {
		snap.Version = prev.Version + 1
	} else {
		snap.Version = 1
	}
	s.current.Store(snap)

	reloadsTotal.WithLabelValues("success").Inc()
	graphNodes.Set(float64(len(snap.Graph.Nodes)))
	lastReload.Set(float64(snap.LoadedAt.Unix()))
	s.logger.Info("graph loaded",
		"path", s.path,
		"version", snap.Version,
		"nodes", len(snap.Graph.Nodes),
		"edges", len(snap.Graph.Edges),
		"components", snap.Library.Len())
	return snap, nil
}

func (s *Store) load() (*Snapshot, error) {
	g, err := parser.LoadFile(s.path)
	if err != nil {
		return nil, err
	}
	if err := parser.CheckStructure(g); err != nil {
		return nil, fmt.Errorf("graph %s: %w", s.path, err)
	}

	lib := build.NewLibrary()
	if s.libraryDir != "" {
		lib, err = build.LoadLibrary(os.DirFS(s.libraryDir), ".")
		if err != nil {
			return nil, fmt.Errorf("component library %s: %w", s.libraryDir, err)
		}
	}

	return &Snapshot{Graph: g, Library: lib, Path: s.path, LoadedAt: time.Now()}, nil
}

// Watch reloads the store whenever the graph file or a component file
// changes, until ctx is cancelled. Bursts of events inside the debounce
// window cause a single reload.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	for _, dir := range s.watchDirs() {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	s.logger.Info("watching graph for changes", "path", s.path, "debounce", s.debounce)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !s.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
				timerC = timer.C
			} else {
				timer.Reset(s.debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", "error", err)

		case <-timerC:
			timer, timerC = nil, nil
			_, _ = s.Reload()
		}
	}
}

// watchDirs is the graph file's directory plus every existing library kind
// directory. Editors often replace files, so directories are watched rather
// than the files themselves.
func (s *Store) watchDirs() []string {
	dirs := []string{filepath.Dir(s.path)}
	if s.libraryDir == "" {
		return dirs
	}
	for _, kind := range build.Kinds {
		dir := filepath.Join(s.libraryDir, kind)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func (s *Store) relevant(e fsnotify.Event) bool {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) && !e.Has(fsnotify.Rename) && !e.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Clean(e.Name)
	if name == s.path {
		return true
	}
	return s.libraryDir != "" && strings.HasSuffix(name, ".md") && strings.HasPrefix(name, s.libraryDir+string(filepath.Separator))
}
