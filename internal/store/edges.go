package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/AperturePlus/synapse/internal/graph"
)

const (
	edgeColumns  = 4
	maxEdgeBatch = 999 / edgeColumns
)

func insertEdges(ctx context.Context, q Querier, op *graph.BatchOp) error {
	if !graph.ValidRelType(op.RelType) {
		return fmt.Errorf("relationship type %q not in whitelist", op.RelType)
	}
	for start := 0; start < len(op.Edges); start += maxEdgeBatch {
		end := start + maxEdgeBatch
		if end > len(op.Edges) {
			end = len(op.Edges)
		}
		batch := op.Edges[start:end]

		placeholders := make([]string, 0, len(batch))
		args := make([]any, 0, len(batch)*edgeColumns)
		for _, e := range batch {
			placeholders = append(placeholders, "(?, ?, ?, ?)")
			args = append(args, op.Project, e.SourceID, e.TargetID, string(e.Type))
		}
		query := `INSERT INTO edges (project, source_id, target_id, rel) VALUES ` +
			strings.Join(placeholders, ", ") +
			` ON CONFLICT(project, source_id, target_id, rel) DO NOTHING`
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %d %s edges: %w", len(batch), op.RelType, err)
		}
	}
	return nil
}
