package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteService hands projects to a runner service over HTTP.
type RemoteService struct {
	baseURL string
	client  *http.Client
}

func NewRemoteService(baseURL string, timeout time.Duration) *RemoteService {
	return &RemoteService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type runRequest struct {
	ProjectID  string `json:"projectId"`
	SpecPath   string `json:"specPath"`
	APIBaseURL string `json:"apiBaseUrl"`
	Token      string `json:"token"`
}

type stopRequest struct {
	ProjectID string `json:"projectId"`
}

func (r *RemoteService) Start(ctx context.Context, job Job) error {
	err := r.post(ctx, "/run", runRequest{
		ProjectID:  job.ProjectID,
		SpecPath:   job.SpecPath,
		APIBaseURL: job.APIBaseURL,
		Token:      job.Token,
	})
	if err != nil {
		return &DispatchError{Err: err}
	}
	return nil
}

func (r *RemoteService) Stop(ctx context.Context, projectID string) error {
	return r.post(ctx, "/stop", stopRequest{ProjectID: projectID})
}

func (r *RemoteService) post(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("runner service %s: status %d: %s", path, res.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
