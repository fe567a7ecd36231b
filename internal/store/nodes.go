package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/AperturePlus/synapse/internal/graph"
)

// SQLite allows at most 999 bind variables per statement; row widths
// below keep multi-row statements under that limit.
const (
	nodeColumns  = 15
	maxNodeBatch = 999 / nodeColumns
)

const nodeInsertPrefix = `INSERT INTO nodes (
	project, id, label, qualified_name, name, kind, signature,
	language, visibility, module_id, type_id, file_path,
	start_line, end_line, path
) VALUES `

const nodeUpsertSuffix = ` ON CONFLICT(project, id) DO UPDATE SET
	label = excluded.label,
	qualified_name = excluded.qualified_name,
	name = excluded.name,
	kind = excluded.kind,
	signature = excluded.signature,
	language = excluded.language,
	visibility = excluded.visibility,
	module_id = excluded.module_id,
	type_id = excluded.type_id,
	file_path = excluded.file_path,
	start_line = excluded.start_line,
	end_line = excluded.end_line,
	path = excluded.path`

// ExecuteBatch applies one write chunk inside a transaction. Part of
// the graph.Client contract; every value is passed as a bind
// parameter.
func (s *Store) ExecuteBatch(ctx context.Context, op *graph.BatchOp) error {
	err := s.WithTransaction(ctx, func(q Querier) error {
		switch op.Kind {
		case graph.OpNodes:
			return upsertNodes(ctx, q, op)
		case graph.OpEdges:
			return insertEdges(ctx, q, op)
		default:
			return fmt.Errorf("unknown batch kind %d", op.Kind)
		}
	})
	if err != nil && retryable(err) {
		return graph.Transient(err)
	}
	return err
}

func upsertNodes(ctx context.Context, q Querier, op *graph.BatchOp) error {
	if !graph.ValidLabel(op.Label) {
		return fmt.Errorf("label %q not in whitelist", op.Label)
	}
	for start := 0; start < len(op.Nodes); start += maxNodeBatch {
		end := start + maxNodeBatch
		if end > len(op.Nodes) {
			end = len(op.Nodes)
		}
		batch := op.Nodes[start:end]

		placeholders := make([]string, 0, len(batch))
		args := make([]any, 0, len(batch)*nodeColumns)
		for _, n := range batch {
			placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				op.Project, n.ID, n.Label,
				propString(n.Props, "qualifiedName"),
				propString(n.Props, "name"),
				propString(n.Props, "kind"),
				propString(n.Props, "signature"),
				propString(n.Props, "language"),
				propString(n.Props, "visibility"),
				propString(n.Props, "moduleId"),
				propString(n.Props, "typeId"),
				propString(n.Props, "filePath"),
				propInt(n.Props, "startLine"),
				propInt(n.Props, "endLine"),
				propString(n.Props, "path"),
			)
		}
		query := nodeInsertPrefix + strings.Join(placeholders, ", ") + nodeUpsertSuffix
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert %d %s nodes: %w", len(batch), op.Label, err)
		}
	}
	return nil
}

// ExistingIDs returns the ids of all nodes stored for a project. Part
// of the graph.Client contract; the writer validates edge endpoints
// against this set.
func (s *Store) ExistingIDs(ctx context.Context, project string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM nodes WHERE project = ?`, project)
	if err != nil {
		return nil, fmt.Errorf("query node ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan node id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// ClearProject removes all nodes and edges of a project, used before a
// full rescan.
func (s *Store) ClearProject(ctx context.Context, project string) error {
	return s.WithTransaction(ctx, func(q Querier) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM edges WHERE project = ?`, project); err != nil {
			return fmt.Errorf("clear edges: %w", err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM nodes WHERE project = ?`, project); err != nil {
			return fmt.Errorf("clear nodes: %w", err)
		}
		return nil
	})
}

func propString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func propInt(props map[string]any, key string) int {
	if v, ok := props[key].(int); ok {
		return v
	}
	return 0
}
