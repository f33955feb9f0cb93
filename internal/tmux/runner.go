package tmux

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Runner abstracts command execution for testing.
type Runner interface {
	// Run executes a command and returns stdout, stderr and the exit code.
	// err is non-nil only if the command could not be run at all (binary not
	// found, context canceled); a non-zero exit is reported via exitCode.
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, exitCode int, err error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct{}

// Run executes the command and returns its output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stdout.String(), stderr.String(), -1, ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		return stdout.String(), stderr.String(), -1, err
	}
	return stdout.String(), stderr.String(), 0, nil
}
