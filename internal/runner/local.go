package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// LocalProcess spawns the configured command as a detached subprocess,
// appending the spec file path to its arguments and passing the portal
// coordinates through the environment.
type LocalProcess struct {
	prog string
	args []string
}

func NewLocalProcess(command string) (*LocalProcess, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("runner command is empty")
	}
	return &LocalProcess{prog: parts[0], args: parts[1:]}, nil
}

func (l *LocalProcess) Start(ctx context.Context, job Job) error {
	args := append(append([]string{}, l.args...), "--spec-file", job.SpecPath)
	cmd := exec.Command(l.prog, args...)
	cmd.Env = append(os.Environ(),
		"API_BASE_URL="+job.APIBaseURL,
		"PROJECT_ID="+job.ProjectID,
		"GENESIS_API_TOKEN="+job.Token,
	)
	cmd.Stdout = nil
	cmd.Stderr = nil
	// Own session: the pipeline must outlive a portal restart.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return &DispatchError{Err: err}
	}
	pid := cmd.Process.Pid
	// Reap the child when it exits; the pipeline reports its own progress
	// back through the API, so the exit status is only logged.
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("runner: process %d for project %s exited: %v", pid, job.ProjectID, err)
		}
	}()
	return nil
}

// Stop is a no-op for local runs: the pipeline observes the project's
// stopped status through the API and winds itself down.
func (l *LocalProcess) Stop(ctx context.Context, projectID string) error {
	return nil
}
