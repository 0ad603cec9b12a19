package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/zentriztech/zentriz-genesis/internal/domain"
	"github.com/zentriztech/zentriz-genesis/internal/engine"
)

func registerDialogue(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-dialogue",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/dialogue",
		Summary:     "Project transcript, oldest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *ProjectPath) (*struct {
		Body []domain.DialogueEntry `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		entries, err := e.ListDialogue(ctx, id, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		if entries == nil {
			entries = []domain.DialogueEntry{}
		}
		return &struct {
			Body []domain.DialogueEntry `json:"body"`
		}{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "append-dialogue",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/dialogue",
		Summary:       "Append one transcript entry",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectPath
		Body struct {
			FromRole  string  `json:"from_role" minLength:"1"`
			ToRole    string  `json:"to_role" minLength:"1"`
			EventType *string `json:"event_type,omitempty"`
			Summary   string  `json:"summary" minLength:"1"`
			RequestID *string `json:"request_id,omitempty"`
		}
	}) (*struct {
		Body domain.DialogueEntry `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		entry, err := e.AppendDialogue(ctx, id, domain.DialogueEntry{
			ProjectID: input.ProjectID,
			FromRole:  input.Body.FromRole,
			ToRole:    input.Body.ToRole,
			EventType: input.Body.EventType,
			Summary:   input.Body.Summary,
			RequestID: input.Body.RequestID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DialogueEntry `json:"body"`
		}{Body: entry}, nil
	})
}
