package task

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"taskdash/internal/model"
	"taskdash/internal/sqldb"
)

// SQLRepo stores tasks in the tasks table of a sqlite or mysql database.
type SQLRepo struct {
	db *sqldb.DB
}

func NewSQLRepo(db *sqldb.DB) *SQLRepo {
	return &SQLRepo{db: db}
}

const taskColumns = `task_id, task, meeting, project, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.Task, &t.Meeting, &t.Project, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *SQLRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	normalizeTask(&t)
	if err := validateTask(t); err != nil {
		return model.Task{}, err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (task, meeting, project, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, t.Task, t.Meeting, t.Project, now, now)
	if err != nil {
		return model.Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Task{}, err
	}
	t.ID = model.TaskID(id)
	t.CreatedAt = now
	t.UpdatedAt = now
	return t, nil
}

func (r *SQLRepo) Get(ctx context.Context, id model.TaskID) (model.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func (r *SQLRepo) Update(ctx context.Context, id model.TaskID, p Patch) (model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, err
	}
	defer tx.Rollback()

	t, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, err
	}

	applyPatch(&t, p)
	if err := validateTask(t); err != nil {
		return model.Task{}, err
	}
	t.UpdatedAt = time.Now().UTC()

	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks SET task = ?, meeting = ?, project = ?, updated_at = ?
		WHERE task_id = ?
	`, t.Task, t.Meeting, t.Project, t.UpdatedAt, id); err != nil {
		return model.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func (r *SQLRepo) Delete(ctx context.Context, id model.TaskID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE task_id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepo) List(ctx context.Context, filter ListFilter) ([]model.Task, error) {
	var (
		where []string
		args  []any
	)
	if p := strings.TrimSpace(filter.Project); p != "" {
		where = append(where, "project = ?")
		args = append(args, p)
	}
	if m := strings.TrimSpace(filter.Meeting); m != "" {
		where = append(where, "meeting = ?")
		args = append(args, m)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY task_id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
