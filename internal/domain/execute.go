package domain

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"twotokens/internal/store"
)

// Runner executes a task command line.
type Runner interface {
	Run(ctx context.Context, command string) (RunResult, error)
}

type RunResult struct {
	RunID    string
	ExitCode int
	Output   string
}

var _ Runner = (*ShellRunner)(nil)

// ShellRunner runs commands through sh -c. Env is appended to the
// parent environment.
type ShellRunner struct {
	Shell string
	Dir   string
	Env   []string
}

func (r *ShellRunner) Run(ctx context.Context, command string) (RunResult, error) {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), r.Env...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	res := RunResult{Output: out.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, errors.Errorf("command exited with status %d", res.ExitCode)
		}
		return res, errors.Wrap(err, "error starting command")
	}
	return res, nil
}

// ExecuteTask runs the command of the first task with the given name.
func (uc *UseCase) ExecuteTask(ctx context.Context, name string) (RunResult, error) {
	task, ok := uc.store.Task(name)
	if !ok {
		return RunResult{}, errors.Wrapf(store.ErrNotFound, "task %q", name)
	}
	runID := uuid.NewString()
	logger := log.With().Str("task", name).Str("runID", runID).Logger()
	logger.Info().Str("command", task.Command).Msg("executing task")
	started := time.Now()
	res, err := uc.runner.Run(ctx, task.Command)
	res.RunID = runID
	if err != nil {
		logger.Err(err).Int("exitCode", res.ExitCode).Str("output", res.Output).Msg("task failed")
		return res, errors.Wrapf(err, "task %s", name)
	}
	logger.Info().Dur("took", time.Since(started)).Msg("task finished")
	return res, nil
}

// NextRun reports when a schedule fires next after from.
func NextRun(schedule string, from time.Time) (time.Time, error) {
	next, err := gronx.NextTickAfter(schedule, from, false)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "schedule %q", schedule)
	}
	return next, nil
}
