package media

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// CommandResult captures one external command invocation
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Diagnostic returns the most useful text for error reporting
func (r CommandResult) Diagnostic() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// Runner executes external toolchain commands
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
}

// ExecRunner runs commands via os/exec
type ExecRunner struct{}

// Run executes the command and captures stdout, stderr and exit code
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}
