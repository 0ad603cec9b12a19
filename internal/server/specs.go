package server

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/zentriztech/zentriz-genesis/internal/config"
	"github.com/zentriztech/zentriz-genesis/internal/domain"
	"github.com/zentriztech/zentriz-genesis/internal/engine"
)

type specSubmitResponse struct {
	Project domain.Project    `json:"project"`
	Files   []domain.SpecFile `json:"files"`
}

func registerSpecs(api huma.API, e engine.Engine, uploadsDir string) {
	if uploadsDir == "" {
		uploadsDir = "uploads"
	}

	huma.Register(api, huma.Operation{
		OperationID:   "submit-spec",
		Method:        http.MethodPost,
		Path:          "/specs",
		Summary:       "Create a project from uploaded spec documents",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		RawBody multipart.Form
	}) (*struct {
		Body specSubmitResponse `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		title := strings.TrimSpace(formValue(input.RawBody, "title"))
		if title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		headers := formFiles(input.RawBody)
		if len(headers) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "at least one spec file is required", nil)
		}
		for _, fh := range headers {
			if !config.AllowedSpecExt(fh.Filename) {
				return nil, newAPIError(http.StatusBadRequest, "bad_request",
					fmt.Sprintf("unsupported file type %q", filepath.Base(fh.Filename)), nil)
			}
		}

		p, err := e.CreateProject(ctx, id, title, "")
		if err != nil {
			return nil, handleError(err)
		}
		var files []domain.SpecFile
		for _, fh := range headers {
			path, err := saveUpload(uploadsDir, p.ID, fh)
			if err != nil {
				return nil, handleError(err)
			}
			f, err := e.AttachSpecFile(ctx, id, p.ID, filepath.Base(fh.Filename), path, fh.Header.Get("Content-Type"))
			if err != nil {
				return nil, handleError(err)
			}
			files = append(files, f)
		}
		p, err = e.GetProject(ctx, id, p.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body specSubmitResponse `json:"body"`
		}{Body: specSubmitResponse{Project: p, Files: files}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "upload-spec-file",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/files",
		Summary:       "Attach a spec document to an existing project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectPath
		RawBody multipart.Form
	}) (*struct {
		Body domain.SpecFile `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		headers := formFiles(input.RawBody)
		if len(headers) != 1 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "exactly one file is required", nil)
		}
		fh := headers[0]
		if !config.AllowedSpecExt(fh.Filename) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request",
				fmt.Sprintf("unsupported file type %q", filepath.Base(fh.Filename)), nil)
		}
		path, err := saveUpload(uploadsDir, input.ProjectID, fh)
		if err != nil {
			return nil, handleError(err)
		}
		f, err := e.AttachSpecFile(ctx, id, input.ProjectID, filepath.Base(fh.Filename), path, fh.Header.Get("Content-Type"))
		if err != nil {
			// Refused attach must not leave the file behind.
			os.Remove(path)
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SpecFile `json:"body"`
		}{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-spec-files",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/files",
		Summary:     "List a project's spec documents",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *ProjectPath) (*struct {
		Body []domain.SpecFile `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		files, err := e.ListSpecFiles(ctx, id, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		if files == nil {
			files = []domain.SpecFile{}
		}
		return &struct {
			Body []domain.SpecFile `json:"body"`
		}{Body: files}, nil
	})
}

func formValue(form multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// formFiles gathers uploads from both the "file" and "files" fields.
func formFiles(form multipart.Form) []*multipart.FileHeader {
	var headers []*multipart.FileHeader
	for _, key := range []string{"file", "files"} {
		headers = append(headers, form.File[key]...)
	}
	return headers
}

func saveUpload(uploadsDir, projectID string, fh *multipart.FileHeader) (string, error) {
	dir := filepath.Join(uploadsDir, projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	path := filepath.Join(dir, filepath.Base(fh.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}
