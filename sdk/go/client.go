// Package genesissdk is a small client for the Genesis portal API, meant
// for pipeline runners reporting progress back to the portal.
package genesissdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the Genesis API on behalf of one project.
type Client struct {
	BaseURL     string
	ProjectID   string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults. For runners, baseURL and the
// bearer token arrive through the API_BASE_URL and GENESIS_API_TOKEN
// environment variables.
func New(baseURL, projectID, token string) *Client {
	return &Client{
		BaseURL:     baseURL,
		ProjectID:   projectID,
		BearerToken: token,
		Timeout:     10 * time.Second,
	}
}

// Project is the API project model.
type Project struct {
	ID             string  `json:"id"`
	TenantID       string  `json:"tenant_id"`
	Title          string  `json:"title"`
	Status         string  `json:"status"`
	CharterSummary *string `json:"charter_summary,omitempty"`
	BacklogSummary *string `json:"backlog_summary,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	StartedAt      *string `json:"started_at,omitempty"`
	CompletedAt    *string `json:"completed_at,omitempty"`
}

// DialogueEntry is one transcript entry.
type DialogueEntry struct {
	ID        int64   `json:"id"`
	ProjectID string  `json:"project_id"`
	FromRole  string  `json:"from_role"`
	ToRole    string  `json:"to_role"`
	EventType *string `json:"event_type,omitempty"`
	Summary   string  `json:"summary"`
	RequestID *string `json:"request_id,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// Task is one board row.
type Task struct {
	ProjectID    string  `json:"project_id"`
	TaskID       string  `json:"task_id"`
	Module       string  `json:"module"`
	OwnerRole    string  `json:"owner_role"`
	Requirements *string `json:"requirements,omitempty"`
	Status       string  `json:"status"`
	ArtifactsRef *string `json:"artifacts_ref,omitempty"`
	Evidence     *string `json:"evidence,omitempty"`
}

// TaskUpsert is the input shape for the bulk board update.
type TaskUpsert struct {
	TaskID       string  `json:"task_id"`
	Module       string  `json:"module"`
	OwnerRole    string  `json:"owner_role"`
	Status       string  `json:"status"`
	Requirements *string `json:"requirements,omitempty"`
	ArtifactsRef *string `json:"artifacts_ref,omitempty"`
	Evidence     *string `json:"evidence,omitempty"`
}

// ProjectPatch carries the runner-writable project fields; nil fields are
// left untouched.
type ProjectPatch struct {
	Status         *string `json:"status,omitempty"`
	StartedAt      *string `json:"started_at,omitempty"`
	CompletedAt    *string `json:"completed_at,omitempty"`
	CharterSummary *string `json:"charter_summary,omitempty"`
	BacklogSummary *string `json:"backlog_summary,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// GetProject fetches the client's project.
func (c *Client) GetProject(ctx context.Context) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, c.projectPath(""), nil, &resp)
	return resp, err
}

// PatchProject reports pipeline progress.
func (c *Client) PatchProject(ctx context.Context, patch ProjectPatch) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPatch, c.projectPath(""), patch, &resp)
	return resp, err
}

// SetStatus is a convenience wrapper around PatchProject.
func (c *Client) SetStatus(ctx context.Context, status string) (Project, error) {
	return c.PatchProject(ctx, ProjectPatch{Status: &status})
}

// AppendDialogue records one transcript entry.
func (c *Client) AppendDialogue(ctx context.Context, fromRole, toRole, summary string) (DialogueEntry, error) {
	body := map[string]any{
		"from_role": fromRole,
		"to_role":   toRole,
		"summary":   summary,
	}
	var resp DialogueEntry
	err := c.do(ctx, http.MethodPost, c.projectPath("dialogue"), body, &resp)
	return resp, err
}

// UpsertTasks inserts or refreshes board rows and returns the full board.
func (c *Client) UpsertTasks(ctx context.Context, tasks []TaskUpsert) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodPost, c.projectPath("tasks"), map[string]any{"tasks": tasks}, &resp)
	return resp, err
}

// UpdateTaskStatus patches one board row.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID, status string) (Task, error) {
	var resp Task
	endpoint := c.projectPath("tasks/" + url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// ListTasks returns the project's board.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodGet, c.projectPath("tasks"), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) projectPath(p string) string {
	endpoint := "api/projects/" + url.PathEscape(c.ProjectID)
	if p != "" {
		endpoint += "/" + strings.TrimLeft(p, "/")
	}
	return endpoint
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
