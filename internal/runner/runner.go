// Package runner hands projects off to the external pipeline executor,
// either a local subprocess or a remote service.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/zentriztech/zentriz-genesis/internal/config"
)

// ErrNotConfigured means neither a runner command nor a runner service URL
// is set.
var ErrNotConfigured = errors.New("no runner configured")

// Job carries everything the executor needs to work a project.
type Job struct {
	ProjectID  string
	SpecPath   string
	APIBaseURL string
	Token      string
}

// Dispatcher starts and stops pipeline runs for projects.
//
// Start is fire-and-forget: a nil return means the handoff was accepted,
// not that the pipeline finished. Stop is best-effort.
type Dispatcher interface {
	Start(ctx context.Context, job Job) error
	Stop(ctx context.Context, projectID string) error
}

// A DispatchError wraps a failure to hand a project to the executor.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("runner dispatch: %v", e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// FromConfig builds the dispatcher the config selects. A runner command
// takes precedence over a service URL; with neither set it returns
// ErrNotConfigured.
func FromConfig(cfg *config.Config) (Dispatcher, error) {
	if cfg.Runner.Command != "" {
		return NewLocalProcess(cfg.Runner.Command)
	}
	if cfg.Runner.ServiceURL != "" {
		return NewRemoteService(cfg.Runner.ServiceURL, cfg.RunnerTimeout()), nil
	}
	return nil, ErrNotConfigured
}
