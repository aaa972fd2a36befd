package services

import (
	"bytes"
	"errors"
	"os/exec"
)

// Result holds what an external command produced.
type Result struct {
	Code   int
	Stdout string
	Stderr string
}

// Runner executes an external command and captures its output. A non-nil
// error means the command could not be started at all; a command that ran
// and exited non-zero is reported through Result.Code, not the error.
type Runner interface {
	Run(name string, args ...string) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func NewExecRunner() ExecRunner {
	return ExecRunner{}
}

func (ExecRunner) Run(name string, args ...string) (Result, error) {
	cmd := exec.Command(name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Code = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}

	return res, nil
}
