package repo

import (
	"context"

	"github.com/zentriztech/zentriz-genesis/internal/domain"
)

func (r Repo) InsertDialogue(ctx context.Context, e domain.DialogueEntry) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO project_dialogue(project_id,from_role,to_role,event_type,summary,request_id,created_at) VALUES (?,?,?,?,?,?,?)`,
		e.ProjectID, e.FromRole, e.ToRole, nullablePtr(e.EventType), e.Summary, nullablePtr(e.RequestID), e.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListDialogue returns a project's transcript oldest first. The autoincrement
// id breaks ties between entries written within the same timestamp tick.
func (r Repo) ListDialogue(ctx context.Context, projectID string) ([]domain.DialogueEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,from_role,to_role,event_type,summary,request_id,created_at
FROM project_dialogue WHERE project_id=? ORDER BY created_at ASC, id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DialogueEntry
	for rows.Next() {
		var e domain.DialogueEntry
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.FromRole, &e.ToRole, &e.EventType, &e.Summary, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
