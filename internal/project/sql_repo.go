package project

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taskdash/internal/model"
	"taskdash/internal/sqldb"
)

type SQLRepo struct {
	db *sqldb.DB
}

func NewSQLRepo(db *sqldb.DB) *SQLRepo {
	return &SQLRepo{db: db}
}

func (r *SQLRepo) Create(ctx context.Context, p model.Project) (model.Project, error) {
	if err := normalize(&p); err != nil {
		return model.Project{}, err
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, p.Name, p.Description, now, now)
	if err != nil {
		return model.Project{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Project{}, err
	}
	p.ID = model.ProjectID(id)
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *SQLRepo) Get(ctx context.Context, id model.ProjectID) (model.Project, error) {
	var p model.Project
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, ErrNotFound
	}
	if err != nil {
		return model.Project{}, err
	}
	return p, nil
}

func (r *SQLRepo) List(ctx context.Context) ([]model.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at FROM projects ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Project{}
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLRepo) Delete(ctx context.Context, id model.ProjectID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}
