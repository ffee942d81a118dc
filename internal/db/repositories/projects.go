package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"forge/pkg/models"
)

type ProjectRepo struct {
	db *sql.DB
}

func NewProjectRepo(db *sql.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) Create(ctx context.Context, name string) (*models.Project, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO projects (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *ProjectRepo) Get(ctx context.Context, id int64) (*models.Project, error) {
	var project models.Project
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, created_at, updated_at FROM projects WHERE id = ?", id).
		Scan(&project.ID, &project.Name, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]*models.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, created_at, updated_at FROM projects ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var project models.Project
		if err := rows.Scan(&project.ID, &project.Name, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, &project)
	}
	return projects, rows.Err()
}
