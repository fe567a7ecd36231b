package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/AperturePlus/synapse/internal/ir"
)

// Node is the read model for a stored graph node.
type Node struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	QualifiedName string `json:"qualifiedName"`
	Name          string `json:"name"`
	Kind          string `json:"kind,omitempty"`
	Signature     string `json:"signature,omitempty"`
	Language      string `json:"language"`
	Visibility    string `json:"visibility,omitempty"`
	ModuleID      string `json:"moduleId,omitempty"`
	TypeID        string `json:"typeId,omitempty"`
	FilePath      string `json:"filePath,omitempty"`
	StartLine     int    `json:"startLine,omitempty"`
	EndLine       int    `json:"endLine,omitempty"`
	Path          string `json:"path,omitempty"`
}

// Edge is the read model for a stored relationship.
type Edge struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
	Rel      string `json:"rel"`
}

// ErrNotFound is returned when a lookup matches no node.
var ErrNotFound = errors.New("node not found")

const nodeSelect = `SELECT id, label, qualified_name, name, kind, signature,
	language, visibility, module_id, type_id, file_path, start_line, end_line, path
FROM nodes`

func scanNode(row interface{ Scan(...any) error }) (*Node, error) {
	var n Node
	err := row.Scan(&n.ID, &n.Label, &n.QualifiedName, &n.Name, &n.Kind, &n.Signature,
		&n.Language, &n.Visibility, &n.ModuleID, &n.TypeID, &n.FilePath, &n.StartLine, &n.EndLine, &n.Path)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// NodeByID fetches one node by entity id.
func (s *Store) NodeByID(ctx context.Context, project, id string) (*Node, error) {
	row := s.db.QueryRowContext(ctx, nodeSelect+` WHERE project = ? AND id = ?`, project, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("node by id: %w", err)
	}
	return n, nil
}

// NodesByQualifiedName fetches the nodes registered under a qualified
// name, ordered by signature so overloads come back in a stable order.
func (s *Store) NodesByQualifiedName(ctx context.Context, project, qn string) ([]*Node, error) {
	rows, err := s.db.QueryContext(ctx,
		nodeSelect+` WHERE project = ? AND qualified_name = ? ORDER BY signature`, project, qn)
	if err != nil {
		return nil, fmt.Errorf("nodes by qualified name: %w", err)
	}
	defer rows.Close()
	return collectNodes(rows)
}

// NodesByName fetches nodes by simple name, ordered by qualified name.
func (s *Store) NodesByName(ctx context.Context, project, name string) ([]*Node, error) {
	rows, err := s.db.QueryContext(ctx,
		nodeSelect+` WHERE project = ? AND name = ? ORDER BY qualified_name, signature`, project, name)
	if err != nil {
		return nil, fmt.Errorf("nodes by name: %w", err)
	}
	defer rows.Close()
	return collectNodes(rows)
}

// Direction selects which end of an edge to traverse from.
type Direction int

const (
	// Outgoing follows source -> target.
	Outgoing Direction = iota
	// Incoming follows target -> source.
	Incoming
)

// Neighbors returns the nodes one hop away from the given ids along
// rel, in the given direction, ordered by qualified name. It is the
// single-step primitive the traversal queries build breadth-first
// search on.
func (s *Store) Neighbors(ctx context.Context, project string, ids []string, rel ir.RelType, dir Direction) ([]*Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	from, to := "source_id", "target_id"
	if dir == Incoming {
		from, to = to, from
	}

	var out []*Node
	// Keep each IN list under the bind-variable limit.
	const maxIDs = 990
	for start := 0; start < len(ids); start += maxIDs {
		end := start + maxIDs
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		query := nodeSelect + ` WHERE project = ? AND id IN (
			SELECT ` + to + ` FROM edges
			WHERE project = ? AND rel = ? AND ` + from + ` IN (?` + strings.Repeat(", ?", len(batch)-1) + `)
		) ORDER BY qualified_name, signature`
		args := make([]any, 0, len(batch)+3)
		args = append(args, project, project, string(rel))
		for _, id := range batch {
			args = append(args, id)
		}
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("neighbors: %w", err)
		}
		nodes, err := collectNodes(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

// EdgesFor returns all edges touching the given node.
func (s *Store) EdgesFor(ctx context.Context, project, id string) ([]Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id, target_id, rel FROM edges
		 WHERE project = ? AND (source_id = ? OR target_id = ?)
		 ORDER BY rel, source_id, target_id`, project, id, id)
	if err != nil {
		return nil, fmt.Errorf("edges for node: %w", err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.SourceID, &e.TargetID, &e.Rel); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AllNodes returns every node of a project ordered by label then
// qualified name, used by the exporter.
func (s *Store) AllNodes(ctx context.Context, project string) ([]*Node, error) {
	rows, err := s.db.QueryContext(ctx,
		nodeSelect+` WHERE project = ? ORDER BY label, qualified_name, signature`, project)
	if err != nil {
		return nil, fmt.Errorf("all nodes: %w", err)
	}
	defer rows.Close()
	return collectNodes(rows)
}

// AllEdges returns every edge of a project in stable order, used by
// the exporter.
func (s *Store) AllEdges(ctx context.Context, project string) ([]Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id, target_id, rel FROM edges WHERE project = ?
		 ORDER BY rel, source_id, target_id`, project)
	if err != nil {
		return nil, fmt.Errorf("all edges: %w", err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.SourceID, &e.TargetID, &e.Rel); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountNodes returns per-label node counts for a project.
func (s *Store) CountNodes(ctx context.Context, project string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, COUNT(*) FROM nodes WHERE project = ? GROUP BY label`, project)
	if err != nil {
		return nil, fmt.Errorf("count nodes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[label] = n
	}
	return out, rows.Err()
}

func collectNodes(rows *sql.Rows) ([]*Node, error) {
	var out []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
