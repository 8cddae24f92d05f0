package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	shell "github.com/kballard/go-shellquote"

	"github.com/oshokin/apk-packager/internal/domain/apk"
	"github.com/oshokin/apk-packager/internal/logger"
)

// DefaultTimeout bounds invocations that do not set their own budget.
const DefaultTimeout = 60 * time.Second

// waitDelay bounds how long Run waits for output pipes after the tool is killed.
// Wrapper scripts leave their java child holding the pipes otherwise.
const waitDelay = 2 * time.Second

// Invocation describes one call of an external tool.
type Invocation struct {
	// Tool is the binary name, resolved through PATH.
	Tool string
	// Args are passed verbatim.
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Timeout bounds the call; zero means DefaultTimeout.
	Timeout time.Duration
}

// String renders the invocation as a shell-quoted command line.
func (inv *Invocation) String() string {
	return shell.Join(append([]string{inv.Tool}, inv.Args...)...)
}

// Output holds what the tool printed.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// Runner executes tool invocations. Stages depend on this interface instead of
// calling exec directly so tests can script tool behavior.
type Runner interface {
	Run(ctx context.Context, inv *Invocation) (*Output, error)
}

// ToolError carries the captured output of a failed invocation.
type ToolError struct {
	Command  string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	cause    error
	kind     error
}

// Error implements error.
func (e *ToolError) Error() string {
	return fmt.Sprintf("running %s: %v (exit code %d)\n - stdout: %q\n - stderr: %q",
		e.Command, e.kind, e.ExitCode, e.Stdout, e.Stderr)
}

// Unwrap exposes both the classification sentinel and the underlying cause.
func (e *ToolError) Unwrap() []error {
	return []error{e.kind, e.cause}
}

// ExecRunner runs invocations with os/exec.
type ExecRunner struct {
	// LookPath resolves tool names; defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{LookPath: exec.LookPath}
}

// Available reports whether the tool resolves through PATH.
func (r *ExecRunner) Available(tool string) bool {
	_, err := r.resolve(tool)
	return err == nil
}

func (r *ExecRunner) resolve(tool string) (string, error) {
	if r.LookPath == nil {
		return exec.LookPath(tool)
	}

	return r.LookPath(tool)
}

// Run executes the invocation and classifies its failure.
func (r *ExecRunner) Run(ctx context.Context, inv *Invocation) (*Output, error) {
	path, err := r.resolve(inv.Tool)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inv.Tool, errors.Join(apk.ErrMissingTool, err))
	}

	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(runCtx, path, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	logger.DebugKV(ctx, "Running command", "command", inv.String(), "timeout", timeout)

	err = cmd.Run()
	out := &Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	switch {
	case err == nil:
		logger.DebugKV(ctx, "Command finished", "tool", inv.Tool, "stdout", string(out.Stdout))
		return out, nil
	case ctx.Err() != nil:
		return out, fmt.Errorf("%s: %w", inv.Tool, ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return out, newToolError(inv, out, apk.ErrToolTimeout, err)
	default:
		return out, newToolError(inv, out, apk.ErrToolNonZeroExit, err)
	}
}

func newToolError(inv *Invocation, out *Output, kind, cause error) *ToolError {
	exitCode := -1

	var exitErr *exec.ExitError
	if errors.As(cause, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	return &ToolError{
		Command:  inv.String(),
		ExitCode: exitCode,
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		cause:    cause,
		kind:     kind,
	}
}
