package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// Project is a registered scan target.
type Project struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	RootPath   string     `json:"rootPath"`
	CreatedAt  time.Time  `json:"createdAt"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
}

// ErrProjectExists is returned when registering a duplicate name.
var ErrProjectExists = errors.New("project already exists")

// ErrProjectNotFound is returned when a project name is unknown.
var ErrProjectNotFound = errors.New("project not found")

// CreateProject registers a project under a unique name.
func (s *Store) CreateProject(ctx context.Context, name, rootPath string) (*Project, error) {
	p := &Project{
		ID:        uuid.NewString(),
		Name:      name,
		RootPath:  rootPath,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, root_path, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.RootPath, p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrProjectExists
		}
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// GetProject fetches a project by name.
func (s *Store) GetProject(ctx context.Context, name string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, root_path, created_at, archived_at FROM projects WHERE name = ?`, name)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	return p, err
}

// ListProjects returns all projects ordered by name. Archived projects
// are included only when includeArchived is set.
func (s *Store) ListProjects(ctx context.Context, includeArchived bool) ([]*Project, error) {
	query := `SELECT id, name, root_path, created_at, archived_at FROM projects`
	if !includeArchived {
		query += ` WHERE archived_at IS NULL`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ArchiveProject soft-deletes a project: it stays listed with its
// graph intact but is excluded from default listings and scans.
func (s *Store) ArchiveProject(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET archived_at = ? WHERE name = ? AND archived_at IS NULL`,
		time.Now().UTC().Format(time.RFC3339), name)
	if err != nil {
		return fmt.Errorf("archive project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// DeleteProject removes a project and its entire graph.
func (s *Store) DeleteProject(ctx context.Context, name string) error {
	p, err := s.GetProject(ctx, name)
	if err != nil {
		return err
	}
	return s.WithTransaction(ctx, func(q Querier) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM edges WHERE project = ?`, p.Name); err != nil {
			return fmt.Errorf("delete edges: %w", err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM nodes WHERE project = ?`, p.Name); err != nil {
			return fmt.Errorf("delete nodes: %w", err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, p.ID); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
}

func scanProject(row interface{ Scan(...any) error }) (*Project, error) {
	var p Project
	var created string
	var archived sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.RootPath, &created, &archived); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	p.CreatedAt = t
	if archived.Valid {
		at, err := time.Parse(time.RFC3339, archived.String)
		if err != nil {
			return nil, fmt.Errorf("parse archived_at: %w", err)
		}
		p.ArchivedAt = &at
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
