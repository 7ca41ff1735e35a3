// Package procrun executes external analysis processes and captures their
// output. The Runner interface exists so adapters can be tested without
// spawning real binaries.
package procrun

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Result is one process execution outcome.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts process execution.
type Runner interface {
	Run(ctx context.Context, dir string, env []string, name string, args ...string) (Result, error)
}

// ExecRunner runs commands via os/exec, bounded by the context.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		return res, err
	}
	return res, nil
}
