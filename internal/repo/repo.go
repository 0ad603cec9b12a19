package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/zentriztech/zentriz-genesis/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const projectColumns = `id,tenant_id,created_by,title,spec_ref,status,charter_summary,backlog_summary,created_at,updated_at,started_at,completed_at`

func scanProject(scan func(dest ...any) error) (domain.Project, error) {
	var p domain.Project
	var charter, backlog, started, completed sql.NullString
	err := scan(&p.ID, &p.TenantID, &p.CreatedBy, &p.Title, &p.SpecRef, &p.Status,
		&charter, &backlog, &p.CreatedAt, &p.UpdatedAt, &started, &completed)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.CharterSummary = nullString(charter)
	p.BacklogSummary = nullString(backlog)
	p.StartedAt = nullString(started)
	p.CompletedAt = nullString(completed)
	return p, nil
}

func (r Repo) InsertProject(ctx context.Context, p domain.Project) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO projects(`+projectColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.TenantID, p.CreatedBy, p.Title, p.SpecRef, p.Status,
		nullablePtr(p.CharterSummary), nullablePtr(p.BacklogSummary),
		p.CreatedAt, p.UpdatedAt, nullablePtr(p.StartedAt), nullablePtr(p.CompletedAt))
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id)
	return scanProject(row.Scan)
}

// ProjectFilter scopes a project listing; zero value lists everything.
type ProjectFilter struct {
	TenantID  string
	CreatedBy string
}

func (r Repo) ListProjects(ctx context.Context, f ProjectFilter) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	var (
		clauses []string
		args    []any
	)
	if f.TenantID != "" {
		clauses = append(clauses, "tenant_id=?")
		args = append(args, f.TenantID)
	}
	if f.CreatedBy != "" {
		clauses = append(clauses, "created_by=?")
		args = append(args, f.CreatedBy)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY updated_at DESC"
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// ProjectPatch carries the runner-writable fields; nil leaves a column alone.
type ProjectPatch struct {
	Status         *string
	StartedAt      *string
	CompletedAt    *string
	CharterSummary *string
	BacklogSummary *string
}

// UpdateProjectFields applies a partial update and stamps updated_at.
func (r Repo) UpdateProjectFields(ctx context.Context, id string, patch ProjectPatch, now string) error {
	var (
		fields []string
		args   []any
	)
	if patch.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, *patch.Status)
	}
	if patch.StartedAt != nil {
		fields = append(fields, "started_at=?")
		args = append(args, *patch.StartedAt)
	}
	if patch.CompletedAt != nil {
		fields = append(fields, "completed_at=?")
		args = append(args, *patch.CompletedAt)
	}
	if patch.CharterSummary != nil {
		fields = append(fields, "charter_summary=?")
		args = append(args, *patch.CharterSummary)
	}
	if patch.BacklogSummary != nil {
		fields = append(fields, "backlog_summary=?")
		args = append(args, *patch.BacklogSummary)
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, now, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE projects SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatusIf flips a project to the target status only when its current
// status is in the from set. The affected-row count is the success signal,
// which makes the runnable-set check atomic with the write.
func (r Repo) SetStatusIf(ctx context.Context, id, to string, from []string, now string, stampStarted bool) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("from set required")
	}
	placeholders := strings.Repeat("?,", len(from))
	placeholders = placeholders[:len(placeholders)-1]
	set := "status=?, updated_at=?"
	args := []any{to, now}
	if stampStarted {
		set += ", started_at=?"
		args = append(args, now)
	}
	args = append(args, id)
	for _, s := range from {
		args = append(args, s)
	}
	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf(`UPDATE projects SET %s WHERE id=? AND status IN (%s)`, set, placeholders), args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RollbackRun restores a project that is still running to its pre-run
// status and started_at. The status guard keeps it from clobbering a
// transition someone else won in the meantime.
func (r Repo) RollbackRun(ctx context.Context, id, toStatus string, startedAt *string, now string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE projects SET status=?, started_at=?, updated_at=? WHERE id=? AND status=?`,
		toStatus, nullablePtr(startedAt), now, id, domain.StatusRunning)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetStatus unconditionally flips a project's status.
func (r Repo) SetStatus(ctx context.Context, id, status, now string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE projects SET status=?, updated_at=? WHERE id=?`, status, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertSpecFile(ctx context.Context, f domain.SpecFile) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO project_spec_files(id,project_id,filename,file_path,mime_type,created_at) VALUES (?,?,?,?,?,?)`,
		f.ID, f.ProjectID, f.Filename, f.FilePath, f.MimeType, f.CreatedAt)
	return err
}

func (r Repo) ListSpecFiles(ctx context.Context, projectID string) ([]domain.SpecFile, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,filename,file_path,mime_type,created_at FROM project_spec_files WHERE project_id=? ORDER BY created_at ASC, id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SpecFile
	for rows.Next() {
		var f domain.SpecFile
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Filename, &f.FilePath, &f.MimeType, &f.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

// FirstMarkdownSpecPath returns the file path of the earliest-created .md
// spec file, which is the one handed to the runner.
func (r Repo) FirstMarkdownSpecPath(ctx context.Context, projectID string) (string, error) {
	var path string
	err := r.DB.QueryRowContext(ctx, `SELECT file_path FROM project_spec_files
WHERE project_id=? AND LOWER(filename) LIKE '%.md'
ORDER BY created_at ASC, id ASC LIMIT 1`, projectID).Scan(&path)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return path, err
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullablePtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
