package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/apk-packager/internal/domain/apk"
)

// Handler scripts the behavior of one tool in a FakeRunner.
type Handler func(inv *Invocation) (*Output, error)

// FakeRunner is a scripted Runner for tests. Tools without a handler behave as
// if they were not installed.
type FakeRunner struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Invocation
}

// NewFakeRunner returns a runner where every tool is missing.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{handlers: make(map[string]Handler)}
}

// Handle installs a handler for the tool and returns the runner for chaining.
func (f *FakeRunner) Handle(tool string, h Handler) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers[tool] = h

	return f
}

// Run records the invocation and dispatches it to the tool handler.
// A done context fails the call like the exec runner does.
func (f *FakeRunner) Run(ctx context.Context, inv *Invocation) (*Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Invocation{
		Tool:    inv.Tool,
		Args:    append([]string(nil), inv.Args...),
		Dir:     inv.Dir,
		Timeout: inv.Timeout,
	})
	h, ok := f.handlers[inv.Tool]
	f.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%s: %w", inv.Tool, apk.ErrMissingTool)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", inv.Tool, err)
	}

	return h(inv)
}

// Available reports whether a handler is installed for the tool.
func (f *FakeRunner) Available(tool string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.handlers[tool]

	return ok
}

// Calls returns a copy of every recorded invocation.
func (f *FakeRunner) Calls() []Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Invocation(nil), f.calls...)
}

// Commands returns the recorded invocations as command lines.
func (f *FakeRunner) Commands() []string {
	calls := f.Calls()

	commands := make([]string, 0, len(calls))
	for i := range calls {
		commands = append(commands, calls[i].String())
	}

	return commands
}

// Succeed is a handler that exits cleanly without side effects.
func Succeed() Handler {
	return func(*Invocation) (*Output, error) {
		return &Output{}, nil
	}
}

// Fail is a handler that fails with the given classification.
func Fail(kind error) Handler {
	return func(inv *Invocation) (*Output, error) {
		out := &Output{Stderr: []byte("scripted failure")}
		return out, newToolError(inv, out, kind, kind)
	}
}

// WriteFile is a handler that succeeds after writing data to the path chosen by pick.
func WriteFile(pick func(inv *Invocation) string, data []byte) Handler {
	return func(inv *Invocation) (*Output, error) {
		path := pick(inv)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}

		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, err
		}

		return &Output{}, nil
	}
}

// ArgAfter returns a picker selecting the argument that follows flag.
func ArgAfter(flag string) func(inv *Invocation) string {
	return func(inv *Invocation) string {
		for i := 0; i < len(inv.Args)-1; i++ {
			if inv.Args[i] == flag {
				return inv.Args[i+1]
			}
		}

		return ""
	}
}

// LastArg returns a picker selecting the final argument.
func LastArg() func(inv *Invocation) string {
	return func(inv *Invocation) string {
		if len(inv.Args) == 0 {
			return ""
		}

		return inv.Args[len(inv.Args)-1]
	}
}
