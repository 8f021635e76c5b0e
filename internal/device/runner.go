package device

import (
	"bytes"
	"context"
	"os/exec"

	"ampyfm/internal/log"
)

// Result is the outcome of one child process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// OK reports a zero exit status
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Runner executes an external command and waits for it to finish.
type Runner interface {
	Run(ctx context.Context, name string, args []string) Result
}

// ExecRunner runs commands with os/exec, capturing stdout and stderr
// separately.
type ExecRunner struct{}

// Run implements Runner. A command that cannot be started yields exit code -1
// with the start error as stderr.
func (ExecRunner) Run(ctx context.Context, name string, args []string) Result {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
		return res
	}

	log.LogWithFields(log.F("command", name)).Debugf("start failed: %v", err)
	res.ExitCode = -1
	if res.Stderr == "" {
		res.Stderr = err.Error()
	}
	return res
}

// LookPath reports whether name resolves to an executable.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
