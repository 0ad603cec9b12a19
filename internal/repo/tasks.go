package repo

import (
	"context"
	"database/sql"

	"github.com/zentriztech/zentriz-genesis/internal/domain"
)

// UpsertTasks inserts or refreshes a batch of board rows in one
// transaction. On conflict the mutable columns are overwritten except the
// optional ones, which keep their stored value when the incoming row
// carries none.
func (r Repo) UpsertTasks(ctx context.Context, tasks []domain.Task) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO project_tasks(project_id,task_id,module,owner_role,status,requirements,artifacts_ref,evidence,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(project_id,task_id) DO UPDATE SET
  module=excluded.module,
  owner_role=excluded.owner_role,
  status=excluded.status,
  requirements=COALESCE(excluded.requirements, requirements),
  artifacts_ref=COALESCE(excluded.artifacts_ref, artifacts_ref),
  evidence=COALESCE(excluded.evidence, evidence),
  updated_at=excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range tasks {
		_, err := stmt.ExecContext(ctx, t.ProjectID, t.TaskID, t.Module, t.OwnerRole, t.Status,
			nullablePtr(t.Requirements), nullablePtr(t.ArtifactsRef), nullablePtr(t.Evidence),
			t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// TaskPatch carries the per-task updatable fields; nil leaves a column alone.
type TaskPatch struct {
	Status       *string
	Evidence     *string
	ArtifactsRef *string
}

func (r Repo) UpdateTask(ctx context.Context, projectID, taskID string, patch TaskPatch, now string) error {
	fields := "updated_at=?"
	args := []any{now}
	if patch.Status != nil {
		fields += ", status=?"
		args = append(args, *patch.Status)
	}
	if patch.Evidence != nil {
		fields += ", evidence=?"
		args = append(args, *patch.Evidence)
	}
	if patch.ArtifactsRef != nil {
		fields += ", artifacts_ref=?"
		args = append(args, *patch.ArtifactsRef)
	}
	args = append(args, projectID, taskID)
	res, err := r.DB.ExecContext(ctx, `UPDATE project_tasks SET `+fields+` WHERE project_id=? AND task_id=?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, projectID, taskID string) (domain.Task, error) {
	var t domain.Task
	err := r.DB.QueryRowContext(ctx, `SELECT project_id,task_id,module,owner_role,status,requirements,artifacts_ref,evidence,created_at,updated_at
FROM project_tasks WHERE project_id=? AND task_id=?`, projectID, taskID).
		Scan(&t.ProjectID, &t.TaskID, &t.Module, &t.OwnerRole, &t.Status,
			&t.Requirements, &t.ArtifactsRef, &t.Evidence, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT project_id,task_id,module,owner_role,status,requirements,artifacts_ref,evidence,created_at,updated_at
FROM project_tasks WHERE project_id=? ORDER BY task_id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ProjectID, &t.TaskID, &t.Module, &t.OwnerRole, &t.Status,
			&t.Requirements, &t.ArtifactsRef, &t.Evidence, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
