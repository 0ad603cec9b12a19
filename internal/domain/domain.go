package domain

// Project statuses form a closed set. The lifecycle operations (run, stop,
// accept) only move between a subset of them; the runner may write any member
// through the patch endpoint.
const (
	StatusDraft             = "draft"
	StatusSpecSubmitted     = "spec_submitted"
	StatusPendingConversion = "pending_conversion"
	StatusCTOCharter        = "cto_charter"
	StatusPMBacklog         = "pm_backlog"
	StatusDevQA             = "dev_qa"
	StatusDevOps            = "devops"
	StatusCompleted         = "completed"
	StatusFailed            = "failed"
	StatusRunning           = "running"
	StatusStopped           = "stopped"
	StatusAccepted          = "accepted"
)

// User roles.
const (
	RoleUser        = "user"
	RoleTenantAdmin = "tenant_admin"
	RoleAdmin       = "zentriz_admin"
)

var projectStatuses = map[string]bool{
	StatusDraft:             true,
	StatusSpecSubmitted:     true,
	StatusPendingConversion: true,
	StatusCTOCharter:        true,
	StatusPMBacklog:         true,
	StatusDevQA:             true,
	StatusDevOps:            true,
	StatusCompleted:         true,
	StatusFailed:            true,
	StatusRunning:           true,
	StatusStopped:           true,
	StatusAccepted:          true,
}

// ValidProjectStatus reports whether s is a member of the closed status set.
func ValidProjectStatus(s string) bool {
	return projectStatuses[s]
}

// RunnableStatuses is the set of statuses a pipeline run may start from.
var RunnableStatuses = []string{
	StatusDraft,
	StatusSpecSubmitted,
	StatusPendingConversion,
	StatusCTOCharter,
	StatusPMBacklog,
	StatusStopped,
	StatusFailed,
}

// Runnable reports whether a run may start from the given status.
func Runnable(status string) bool {
	for _, s := range RunnableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Project struct {
	ID             string  `json:"id"`
	TenantID       string  `json:"tenant_id"`
	CreatedBy      string  `json:"created_by"`
	Title          string  `json:"title"`
	SpecRef        string  `json:"spec_ref"`
	Status         string  `json:"status" enum:"draft,spec_submitted,pending_conversion,cto_charter,pm_backlog,dev_qa,devops,completed,failed,running,stopped,accepted"`
	CharterSummary *string `json:"charter_summary,omitempty"`
	BacklogSummary *string `json:"backlog_summary,omitempty"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	UpdatedAt      string  `json:"updated_at" format:"date-time"`
	StartedAt      *string `json:"started_at,omitempty" format:"date-time"`
	CompletedAt    *string `json:"completed_at,omitempty" format:"date-time"`
}

type SpecFile struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Filename  string `json:"filename"`
	FilePath  string `json:"file_path"`
	MimeType  string `json:"mime_type"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// DialogueEntry is one recorded pipeline event. Entries are append-only and
// immutable once written.
type DialogueEntry struct {
	ID        int64   `json:"id"`
	ProjectID string  `json:"project_id"`
	FromRole  string  `json:"from_role"`
	ToRole    string  `json:"to_role"`
	EventType *string `json:"event_type,omitempty"`
	Summary   string  `json:"summary"`
	RequestID *string `json:"request_id,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

// Task is one unit of pipeline work, unique per (project, task id).
type Task struct {
	ProjectID    string  `json:"project_id"`
	TaskID       string  `json:"task_id"`
	Module       string  `json:"module"`
	OwnerRole    string  `json:"owner_role"`
	Requirements *string `json:"requirements,omitempty"`
	Status       string  `json:"status"`
	ArtifactsRef *string `json:"artifacts_ref,omitempty"`
	Evidence     *string `json:"evidence,omitempty"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
	UpdatedAt    string  `json:"updated_at" format:"date-time"`
}

type Plan struct {
	ID                string `json:"id"`
	Slug              string `json:"slug"`
	Name              string `json:"name"`
	MaxProjects       int    `json:"max_projects"`
	MaxUsersPerTenant int    `json:"max_users_per_tenant"`
}

type Tenant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PlanID    string `json:"plan_id"`
	Plan      *Plan  `json:"plan,omitempty"`
	Status    string `json:"status" enum:"active,suspended"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type User struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	PasswordHash string  `json:"-"`
	TenantID     *string `json:"tenant_id,omitempty"`
	Role         string  `json:"role" enum:"user,tenant_admin,zentriz_admin"`
	Status       string  `json:"status" enum:"active,inactive"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

type Notification struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
