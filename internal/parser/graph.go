package parser

import (
	"time"

	"github.com/sopforge/core/internal/models"
)

type ConvertReport struct {
	InputFormat string                  `json:"input_format"`
	Converted   int                     `json:"converted"`
	Skipped     int                     `json:"skipped"`
	NodesByType map[models.NodeType]int `json:"nodes_by_type"`
}

// AlreadyObject reports whether the input needed no conversion.
func (r ConvertReport) AlreadyObject() bool {
	return r.InputFormat == string(formatObject)
}

// Convert rewrites a legacy array-format graph into the object format keyed
// by node id. Nodes without an id are skipped and counted. Converted graphs
// are stamped with metadata.format and metadata.convertedAt.
func Convert(data []byte) (*models.Graph, ConvertReport, error) {
	return convertAt(data, time.Now())
}

func convertAt(data []byte, now time.Time) (*models.Graph, ConvertReport, error) {
	graph, stats, err := decode(data)
	if err != nil {
		return nil, ConvertReport{}, err
	}

	report := ConvertReport{
		InputFormat: string(stats.format),
		Converted:   len(graph.Nodes),
		Skipped:     stats.skipped,
		NodesByType: make(map[models.NodeType]int),
	}
	for _, n := range graph.Nodes {
		report.NodesByType[n.Type]++
	}

	if stats.format != formatArray {
		report.Converted = 0
		return graph, report, nil
	}

	if graph.Metadata == nil {
		graph.Metadata = make(map[string]any)
	}
	graph.Metadata["format"] = string(formatObject)
	graph.Metadata["convertedAt"] = now.UTC().Format(time.RFC3339)

	return graph, report, nil
}
