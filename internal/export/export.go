// Package export renders a project's stored graph as JSON. Output is
// deterministic: nodes ordered by label then qualified name, edges by
// relationship then endpoints, so exports diff cleanly between scans.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/AperturePlus/synapse/internal/store"
)

// Graph is the export document.
type Graph struct {
	Project string        `json:"project"`
	Nodes   []*store.Node `json:"nodes"`
	Edges   []store.Edge  `json:"edges"`
}

// Write renders the project's graph to w as indented JSON.
func Write(ctx context.Context, s *store.Store, project string, w io.Writer) error {
	nodes, err := s.AllNodes(ctx, project)
	if err != nil {
		return fmt.Errorf("export nodes: %w", err)
	}
	edges, err := s.AllEdges(ctx, project)
	if err != nil {
		return fmt.Errorf("export edges: %w", err)
	}

	doc := Graph{Project: project, Nodes: nodes, Edges: edges}
	if doc.Nodes == nil {
		doc.Nodes = []*store.Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []store.Edge{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}
