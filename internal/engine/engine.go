// Package engine implements the project lifecycle: creating projects,
// attaching spec files, and the run / stop / accept transitions that hand
// work to the external pipeline runner.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/zentriztech/zentriz-genesis/internal/access"
	"github.com/zentriztech/zentriz-genesis/internal/auth"
	"github.com/zentriztech/zentriz-genesis/internal/config"
	"github.com/zentriztech/zentriz-genesis/internal/dialogue"
	"github.com/zentriztech/zentriz-genesis/internal/domain"
	"github.com/zentriztech/zentriz-genesis/internal/repo"
	"github.com/zentriztech/zentriz-genesis/internal/runner"
)

var (
	// ErrForbidden means the identity may not touch the project at all.
	// Callers translate it to a not-found response so project ids do not
	// leak across tenants.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict means the project's current status does not allow the
	// requested transition.
	ErrConflict = errors.New("status conflict")
	// ErrNoSpecFile means a run was requested with no markdown spec attached.
	ErrNoSpecFile = errors.New("no markdown spec file")
	// ErrPlanLimit means the tenant's plan ceiling was reached.
	ErrPlanLimit = errors.New("plan limit reached")
	// ErrNoTenant means a project has no tenant to live under.
	ErrNoTenant = errors.New("no tenant exists")
)

type Engine struct {
	DB         *sql.DB
	Repo       repo.Repo
	Dialogue   dialogue.Writer
	Config     *config.Config
	Dispatcher runner.Dispatcher
	Now        func() time.Time
}

func New(db *sql.DB, cfg *config.Config, d runner.Dispatcher) Engine {
	r := repo.Repo{DB: db}
	return Engine{
		DB:         db,
		Repo:       r,
		Dialogue:   dialogue.Writer{Repo: r},
		Config:     cfg,
		Dispatcher: d,
		Now:        time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowStr() string {
	return e.now().UTC().Format(time.RFC3339)
}

// loadProject fetches a project and applies the access rule. A project the
// identity may not see comes back as ErrNotFound.
func (e Engine) loadProject(ctx context.Context, id access.Identity, projectID string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if !access.CanAccessProject(id, p.TenantID, p.CreatedBy) {
		return domain.Project{}, repo.ErrNotFound
	}
	return p, nil
}

// GetProject returns a project the identity may access. Unlike the other
// operations it distinguishes forbidden from missing: a project that exists
// but belongs elsewhere yields ErrForbidden.
func (e Engine) GetProject(ctx context.Context, id access.Identity, projectID string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if !access.CanAccessProject(id, p.TenantID, p.CreatedBy) {
		return domain.Project{}, ErrForbidden
	}
	return p, nil
}

// ListProjects returns the projects visible to the identity: everything for
// platform admins, the tenant's projects for tenant members, the caller's
// own for tenantless users.
func (e Engine) ListProjects(ctx context.Context, id access.Identity) ([]domain.Project, error) {
	var f repo.ProjectFilter
	switch {
	case id.IsAdmin():
	case id.TenantID != "":
		f.TenantID = id.TenantID
	default:
		f.CreatedBy = id.UserID
	}
	return e.Repo.ListProjects(ctx, f)
}

// CreateProject registers a draft project for the identity's tenant,
// enforcing the tenant plan's project ceiling. A platform admin carries no
// tenant of their own; their projects land in the oldest tenant.
func (e Engine) CreateProject(ctx context.Context, id access.Identity, title, specRef string) (domain.Project, error) {
	if id.TenantID == "" && !id.IsAdmin() {
		return domain.Project{}, ErrForbidden
	}
	tenantID := id.TenantID
	if tenantID == "" {
		first, err := e.Repo.FirstTenantID(ctx)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.Project{}, ErrNoTenant
			}
			return domain.Project{}, err
		}
		tenantID = first
	}
	tenant, err := e.Repo.GetTenant(ctx, tenantID)
	if err != nil {
		return domain.Project{}, err
	}
	if tenant.Plan != nil {
		n, err := e.Repo.CountProjects(ctx, tenantID)
		if err != nil {
			return domain.Project{}, err
		}
		if n >= tenant.Plan.MaxProjects {
			return domain.Project{}, ErrPlanLimit
		}
	}
	now := e.nowStr()
	p := domain.Project{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		CreatedBy: id.UserID,
		Title:     title,
		SpecRef:   specRef,
		Status:    domain.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Repo.InsertProject(ctx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

// AttachSpecFile records an uploaded spec document and moves the project
// from draft to spec_submitted (markdown) or pending_conversion (anything
// else). Projects already past draft keep their status.
func (e Engine) AttachSpecFile(ctx context.Context, id access.Identity, projectID, filename, filePath, mimeType string) (domain.SpecFile, error) {
	p, err := e.loadProject(ctx, id, projectID)
	if err != nil {
		return domain.SpecFile{}, err
	}
	f := domain.SpecFile{
		ID:        uuid.NewString(),
		ProjectID: p.ID,
		Filename:  filename,
		FilePath:  filePath,
		MimeType:  mimeType,
		CreatedAt: e.nowStr(),
	}
	if err := e.Repo.InsertSpecFile(ctx, f); err != nil {
		return domain.SpecFile{}, fmt.Errorf("insert spec file: %w", err)
	}
	switch {
	case p.Status == domain.StatusDraft:
		next := domain.StatusSpecSubmitted
		if !config.IsMarkdown(filename) {
			next = domain.StatusPendingConversion
		}
		if err := e.Repo.SetStatus(ctx, p.ID, next, e.nowStr()); err != nil {
			return domain.SpecFile{}, err
		}
	case p.Status == domain.StatusSpecSubmitted && !config.IsMarkdown(filename):
		// Any non-markdown document pending conversion parks the project
		// until the converted spec arrives.
		if err := e.Repo.SetStatus(ctx, p.ID, domain.StatusPendingConversion, e.nowStr()); err != nil {
			return domain.SpecFile{}, err
		}
	}
	return f, nil
}

// Run hands the project to the runner. The runnable-status check and the
// flip to running happen in one conditional update, so two concurrent runs
// cannot both win. A failed dispatch restores the pre-run status.
func (e Engine) Run(ctx context.Context, id access.Identity, projectID string) (domain.Project, error) {
	p, err := e.loadProject(ctx, id, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if e.Dispatcher == nil {
		return domain.Project{}, runner.ErrNotConfigured
	}
	specPath, err := e.Repo.FirstMarkdownSpecPath(ctx, p.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Project{}, ErrNoSpecFile
		}
		return domain.Project{}, err
	}

	ok, err := e.Repo.SetStatusIf(ctx, p.ID, domain.StatusRunning, domain.RunnableStatuses, e.nowStr(), true)
	if err != nil {
		return domain.Project{}, err
	}
	if !ok {
		return domain.Project{}, ErrConflict
	}

	token, err := auth.Mint(e.Config.Auth.JWTSecret, id, e.Config.RunnerTokenTTL(), e.now())
	if err != nil {
		return domain.Project{}, fmt.Errorf("mint runner token: %w", err)
	}
	job := runner.Job{
		ProjectID:  p.ID,
		SpecPath:   specPath,
		APIBaseURL: e.Config.Server.APIBaseURL,
		Token:      token,
	}
	if err := e.Dispatcher.Start(ctx, job); err != nil {
		// A failed handoff leaves the project as it was. The status guard in
		// RollbackRun means only our own transition is undone.
		if _, rbErr := e.Repo.RollbackRun(ctx, p.ID, p.Status, p.StartedAt, e.nowStr()); rbErr != nil {
			log.Printf("engine: rollback after dispatch failure: %v", rbErr)
		}
		return domain.Project{}, err
	}

	if err := e.Dialogue.System(ctx, p.ID, "run", "Pipeline run started"); err != nil {
		log.Printf("engine: record run event: %v", err)
	}
	return e.Repo.GetProject(ctx, p.ID)
}

// Stop flips the project to stopped regardless of its current status and
// notifies a remote runner best-effort.
func (e Engine) Stop(ctx context.Context, id access.Identity, projectID string) (domain.Project, error) {
	p, err := e.loadProject(ctx, id, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if e.Dispatcher != nil {
		if err := e.Dispatcher.Stop(ctx, p.ID); err != nil {
			log.Printf("engine: runner stop notify for %s: %v", p.ID, err)
		}
	}
	if err := e.Repo.SetStatus(ctx, p.ID, domain.StatusStopped, e.nowStr()); err != nil {
		return domain.Project{}, err
	}
	if err := e.Dialogue.System(ctx, p.ID, "stop", "Pipeline run stopped by user"); err != nil {
		log.Printf("engine: record stop event: %v", err)
	}
	return e.Repo.GetProject(ctx, p.ID)
}

// Accept marks a delivered project as accepted. Accepting an already
// accepted project is a no-op; anything outside running, completed or
// stopped is a conflict.
func (e Engine) Accept(ctx context.Context, id access.Identity, projectID string) (domain.Project, error) {
	p, err := e.loadProject(ctx, id, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if p.Status == domain.StatusAccepted {
		return p, nil
	}
	from := []string{domain.StatusRunning, domain.StatusCompleted, domain.StatusStopped}
	ok, err := e.Repo.SetStatusIf(ctx, p.ID, domain.StatusAccepted, from, e.nowStr(), false)
	if err != nil {
		return domain.Project{}, err
	}
	if !ok {
		return domain.Project{}, ErrConflict
	}
	if err := e.Dialogue.System(ctx, p.ID, "accept", "Delivery accepted by user"); err != nil {
		log.Printf("engine: record accept event: %v", err)
	}
	return e.Repo.GetProject(ctx, p.ID)
}

// PatchOptions are the runner-writable project fields.
type PatchOptions struct {
	Status         *string
	StartedAt      *string
	CompletedAt    *string
	CharterSummary *string
	BacklogSummary *string
}

// Patch applies a runner progress update. Status values are checked for
// membership in the closed set but not for transition order: the runner
// owns the pipeline sequencing.
func (e Engine) Patch(ctx context.Context, id access.Identity, projectID string, opts PatchOptions) (domain.Project, error) {
	p, err := e.loadProject(ctx, id, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if opts.Status != nil && !domain.ValidProjectStatus(*opts.Status) {
		return domain.Project{}, fmt.Errorf("%w: unknown status %q", ErrConflict, *opts.Status)
	}
	patch := repo.ProjectPatch{
		Status:         opts.Status,
		StartedAt:      opts.StartedAt,
		CompletedAt:    opts.CompletedAt,
		CharterSummary: opts.CharterSummary,
		BacklogSummary: opts.BacklogSummary,
	}
	if err := e.Repo.UpdateProjectFields(ctx, p.ID, patch, e.nowStr()); err != nil {
		return domain.Project{}, err
	}
	if opts.Status != nil && *opts.Status == domain.StatusCompleted {
		e.notifyCompleted(ctx, p)
	}
	return e.Repo.GetProject(ctx, p.ID)
}

// notifyCompleted leaves a notification for the project creator. Failures
// are logged, never surfaced: the patch itself already succeeded.
func (e Engine) notifyCompleted(ctx context.Context, p domain.Project) {
	n := domain.Notification{
		ID:        uuid.NewString(),
		UserID:    p.CreatedBy,
		Type:      "project_completed",
		Title:     "Project completed",
		Body:      fmt.Sprintf("Project %q finished its pipeline run.", p.Title),
		CreatedAt: e.nowStr(),
	}
	if err := e.Repo.InsertNotification(ctx, n); err != nil {
		log.Printf("engine: insert completion notification: %v", err)
	}
}

// AppendDialogue records one transcript entry for a project.
func (e Engine) AppendDialogue(ctx context.Context, id access.Identity, entry domain.DialogueEntry) (domain.DialogueEntry, error) {
	p, err := e.loadProject(ctx, id, entry.ProjectID)
	if err != nil {
		return domain.DialogueEntry{}, err
	}
	entry.ProjectID = p.ID
	return e.Dialogue.Append(ctx, entry)
}

// ListDialogue returns a project's transcript oldest first.
func (e Engine) ListDialogue(ctx context.Context, id access.Identity, projectID string) ([]domain.DialogueEntry, error) {
	p, err := e.loadProject(ctx, id, projectID)
	if err != nil {
		return nil, err
	}
	return e.Repo.ListDialogue(ctx, p.ID)
}

// UpsertTasks inserts or refreshes a batch of board rows for a project.
func (e Engine) UpsertTasks(ctx context.Context, id access.Identity, projectID string, tasks []domain.Task) error {
	p, err := e.loadProject(ctx, id, projectID)
	if err != nil {
		return err
	}
	now := e.nowStr()
	for i := range tasks {
		tasks[i].ProjectID = p.ID
		tasks[i].CreatedAt = now
		tasks[i].UpdatedAt = now
	}
	return e.Repo.UpsertTasks(ctx, tasks)
}

// UpdateTask patches a single board row.
func (e Engine) UpdateTask(ctx context.Context, id access.Identity, projectID, taskID string, patch repo.TaskPatch) (domain.Task, error) {
	p, err := e.loadProject(ctx, id, projectID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := e.Repo.UpdateTask(ctx, p.ID, taskID, patch, e.nowStr()); err != nil {
		return domain.Task{}, err
	}
	return e.Repo.GetTask(ctx, p.ID, taskID)
}

// ListTasks returns a project's board ordered by task id.
func (e Engine) ListTasks(ctx context.Context, id access.Identity, projectID string) ([]domain.Task, error) {
	p, err := e.loadProject(ctx, id, projectID)
	if err != nil {
		return nil, err
	}
	return e.Repo.ListTasks(ctx, p.ID)
}

// ListSpecFiles returns a project's uploaded spec documents oldest first.
func (e Engine) ListSpecFiles(ctx context.Context, id access.Identity, projectID string) ([]domain.SpecFile, error) {
	p, err := e.loadProject(ctx, id, projectID)
	if err != nil {
		return nil, err
	}
	return e.Repo.ListSpecFiles(ctx, p.ID)
}
