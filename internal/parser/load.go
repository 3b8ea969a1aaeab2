// Package parser provides utilities for parsing and transforming input data.
// It handles graph decoding, format conversion and component frontmatter.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sopforge/core/internal/models"
)

var errEmptyInput = errors.New("empty graph data")

// ParseError reports graph text that could not be decoded.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "parse graph: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StructuralError reports required top-level keys missing from a graph.
type StructuralError struct {
	Missing []string
}

func (e *StructuralError) Error() string {
	return "invalid graph structure: missing " + strings.Join(e.Missing, ", ")
}

type rawGraph struct {
	Metadata map[string]any  `json:"metadata,omitempty"`
	Nodes    json.RawMessage `json:"nodes"`
	Edges    []models.Edge   `json:"edges"`
}

// ParseGraph decodes a graph document. Nodes may be given as an object keyed
// by id or as the legacy array of node objects. Missing nodes or edges keys
// are not an error here; see CheckStructure.
func ParseGraph(data []byte) (*models.Graph, error) {
	graph, _, err := decode(data)
	return graph, err
}

// LoadFile reads and parses the graph at path.
func LoadFile(path string) (*models.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph %s: %w", path, err)
	}
	return ParseGraph(data)
}

// CheckStructure returns a *StructuralError when nodes or edges is absent.
func CheckStructure(g *models.Graph) error {
	var missing []string
	if g == nil || g.Nodes == nil {
		missing = append(missing, "nodes")
	}
	if g == nil || g.Edges == nil {
		missing = append(missing, "edges")
	}
	if len(missing) > 0 {
		return &StructuralError{Missing: missing}
	}
	return nil
}

type nodeFormat string

const (
	formatObject nodeFormat = "object"
	formatArray  nodeFormat = "array"
	formatAbsent nodeFormat = "absent"
)

type decodeStats struct {
	format  nodeFormat
	skipped int
}

func decode(data []byte) (*models.Graph, decodeStats, error) {
	var stats decodeStats

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, stats, &ParseError{Err: errEmptyInput}
	}

	var raw rawGraph
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, stats, &ParseError{Err: err}
	}

	graph := &models.Graph{
		Metadata: raw.Metadata,
		Edges:    raw.Edges,
	}

	nodes := bytes.TrimSpace(raw.Nodes)
	switch {
	case len(nodes) == 0 || bytes.Equal(nodes, []byte("null")):
		stats.format = formatAbsent

	case nodes[0] == '[':
		stats.format = formatArray
		var list []*models.Node
		if err := json.Unmarshal(nodes, &list); err != nil {
			return nil, stats, &ParseError{Err: err}
		}
		graph.Nodes = make(map[string]*models.Node, len(list))
		for _, n := range list {
			if n == nil || n.ID == "" {
				stats.skipped++
				continue
			}
			graph.Nodes[n.ID] = n
		}

	default:
		stats.format = formatObject
		if err := json.Unmarshal(nodes, &graph.Nodes); err != nil {
			return nil, stats, &ParseError{Err: err}
		}
		for id, n := range graph.Nodes {
			if n == nil {
				delete(graph.Nodes, id)
				stats.skipped++
			}
		}
	}

	return graph, stats, nil
}
