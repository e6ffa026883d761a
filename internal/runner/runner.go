// Package runner executes external commands on behalf of the capture and
// diff engines. The Runner interface keeps process execution swappable so
// tests can inject canned output and exit codes.
package runner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Result holds the outcome of one external command invocation.
type Result struct {
	// Output is the interleaved stdout+stderr of the command.
	Output string
	// Stderr is the command's standard error alone, for error reporting.
	Stderr string
	// ExitCode is the command's exit status. Zero means success.
	ExitCode int
}

// Runner defines the interface for external command execution.
// This abstraction allows for easy testing with mock implementations.
type Runner interface {
	// Run executes name with args and waits for it to finish. A non-zero
	// exit status is not an error: it is reported via Result.ExitCode and
	// err is nil. Run returns a non-nil error only when the command could
	// not be started at all (binary missing, permission denied).
	//
	// There is no timeout. A hung command hangs the caller; runs are
	// operator-driven and cancelled only by killing the process.
	Run(name string, args ...string) (Result, error)
}

// Compile-time check that ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)

// ExecRunner implements Runner by executing real processes.
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command, capturing interleaved output and stderr.
func (r *ExecRunner) Run(name string, args ...string) (Result, error) {
	//nolint:gosec // G204: command lines come from the operator's own config
	cmd := exec.Command(name, args...)

	var combined, stderr bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = io.MultiWriter(&combined, &stderr)

	err := cmd.Run()
	if err == nil {
		return Result{Output: combined.String(), Stderr: stderr.String()}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{
			Output:   combined.String(),
			Stderr:   stderr.String(),
			ExitCode: exitErr.ExitCode(),
		}, nil
	}
	return Result{}, fmt.Errorf("running %s: %w", name, err)
}

// SplitCommand splits a configured command line into the binary name and
// its arguments.
//
// Splitting is on whitespace only. Quoted arguments and shell
// metacharacters are not supported; "echo 'a b'" becomes three tokens.
// This matches the config contract, which holds plain argument vectors.
func SplitCommand(line string) (string, []string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty command line")
	}
	return fields[0], fields[1:], nil
}
