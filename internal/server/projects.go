package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/zentriztech/zentriz-genesis/internal/domain"
	"github.com/zentriztech/zentriz-genesis/internal/engine"
)

type ProjectPath struct {
	ProjectID string `path:"project_id"`
}

type projectBody struct {
	Body domain.Project `json:"body"`
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects visible to the caller",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		projects, err := e.ListProjects(ctx, id)
		if err != nil {
			return nil, handleError(err)
		}
		if projects == nil {
			projects = []domain.Project{}
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: projects}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get one project",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *ProjectPath) (*projectBody, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.GetProject(ctx, id, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &projectBody{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "patch-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}",
		Summary:     "Apply a runner progress update",
		Errors:      []int{http.StatusBadRequest, http.StatusConflict, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectPath
		Body struct {
			Status         *string `json:"status,omitempty"`
			StartedAt      *string `json:"started_at,omitempty" format:"date-time"`
			CompletedAt    *string `json:"completed_at,omitempty" format:"date-time"`
			CharterSummary *string `json:"charter_summary,omitempty"`
			BacklogSummary *string `json:"backlog_summary,omitempty"`
		}
	}) (*projectBody, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.Patch(ctx, id, input.ProjectID, engine.PatchOptions{
			Status:         input.Body.Status,
			StartedAt:      input.Body.StartedAt,
			CompletedAt:    input.Body.CompletedAt,
			CharterSummary: input.Body.CharterSummary,
			BacklogSummary: input.Body.BacklogSummary,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &projectBody{Body: p}, nil
	})

	type lifecycleResponse struct {
		OK        bool   `json:"ok"`
		Status    string `json:"status"`
		Message   string `json:"message,omitempty"`
		UpdatedAt string `json:"updated_at,omitempty" format:"date-time"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "run-project",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/run",
		Summary:       "Start a pipeline run",
		DefaultStatus: http.StatusAccepted,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusServiceUnavailable,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *ProjectPath) (*struct {
		Body lifecycleResponse `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.Run(ctx, id, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body lifecycleResponse `json:"body"`
		}{Body: lifecycleResponse{OK: true, Status: p.Status, Message: "pipeline run started"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "stop-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/stop",
		Summary:     "Stop a pipeline run",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *ProjectPath) (*struct {
		Body lifecycleResponse `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.Stop(ctx, id, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body lifecycleResponse `json:"body"`
		}{Body: lifecycleResponse{OK: true, Status: p.Status, Message: "pipeline run stopped"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/accept",
		Summary:     "Accept a delivered project",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *ProjectPath) (*struct {
		Body lifecycleResponse `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.Accept(ctx, id, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body lifecycleResponse `json:"body"`
		}{Body: lifecycleResponse{OK: true, Status: p.Status, UpdatedAt: p.UpdatedAt}}, nil
	})
}
