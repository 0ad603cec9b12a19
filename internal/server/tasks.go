package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/zentriztech/zentriz-genesis/internal/domain"
	"github.com/zentriztech/zentriz-genesis/internal/engine"
	"github.com/zentriztech/zentriz-genesis/internal/repo"
)

type taskUpsertBody struct {
	Tasks []struct {
		TaskID       string  `json:"task_id" minLength:"1"`
		Module       string  `json:"module"`
		OwnerRole    string  `json:"owner_role"`
		Status       string  `json:"status" minLength:"1"`
		Requirements *string `json:"requirements,omitempty"`
		ArtifactsRef *string `json:"artifacts_ref,omitempty"`
		Evidence     *string `json:"evidence,omitempty"`
	} `json:"tasks" minItems:"1"`
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/tasks",
		Summary:     "Project task board",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *ProjectPath) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		tasks, err := e.ListTasks(ctx, id, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "upsert-tasks",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/tasks",
		Summary:       "Insert or refresh a batch of tasks",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectPath
		Body taskUpsertBody
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		tasks := make([]domain.Task, 0, len(input.Body.Tasks))
		for _, t := range input.Body.Tasks {
			tasks = append(tasks, domain.Task{
				TaskID:       t.TaskID,
				Module:       t.Module,
				OwnerRole:    t.OwnerRole,
				Status:       t.Status,
				Requirements: t.Requirements,
				ArtifactsRef: t.ArtifactsRef,
				Evidence:     t.Evidence,
			})
		}
		if err := e.UpsertTasks(ctx, id, input.ProjectID, tasks); err != nil {
			return nil, handleError(err)
		}
		all, err := e.ListTasks(ctx, id, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: all}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}/tasks/{task_id}",
		Summary:     "Update one task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectPath
		TaskID string `path:"task_id"`
		Body   struct {
			Status       *string `json:"status,omitempty"`
			Evidence     *string `json:"evidence,omitempty"`
			ArtifactsRef *string `json:"artifacts_ref,omitempty"`
		}
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		task, err := e.UpdateTask(ctx, id, input.ProjectID, input.TaskID, repo.TaskPatch{
			Status:       input.Body.Status,
			Evidence:     input.Body.Evidence,
			ArtifactsRef: input.Body.ArtifactsRef,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})
}
