package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// DefaultWaitDelay bounds how long Run waits for output pipes to drain
// after the analyzer has been killed.
const DefaultWaitDelay = 2 * time.Second

// Command describes one analyzer invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the current environment
}

// Result holds the captured output of a finished process.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ExecRunner abstracts process execution for testability.
type ExecRunner interface {
	// LookPath checks if a binary exists in PATH.
	LookPath(name string) (string, error)

	// Run executes the command until it exits or ctx is done.
	// A non-zero exit is reported as an *exec.ExitError alongside the captured output.
	Run(ctx context.Context, cmd Command) (Result, error)
}

// RealRunner implements ExecRunner using os/exec. The child runs in its own
// process group so that a timeout also stops anything it spawned.
type RealRunner struct {
	WaitDelay time.Duration
}

// NewRealRunner creates a runner with the default wait delay.
func NewRealRunner() *RealRunner {
	return &RealRunner{WaitDelay: DefaultWaitDelay}
}

// LookPath checks if a binary exists in PATH.
func (r *RealRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes the command and captures stdout and stderr separately.
func (r *RealRunner) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.WaitDelay = r.WaitDelay
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	return res, err
}

// ExitError reports a non-zero exit from a runner that does not use os/exec.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// ExitCode returns the process exit code.
func (e *ExitError) ExitCode() int { return e.Code }

// MockRunner implements ExecRunner for testing.
type MockRunner struct {
	mu       sync.Mutex
	lookPath map[string]string
	results  map[string]mockResult
	calls    []Command
}

type mockResult struct {
	res   Result
	err   error
	block bool
}

// NewMockRunner creates a new mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		lookPath: make(map[string]string),
		results:  make(map[string]mockResult),
	}
}

// SetLookPath configures the mock to return a path for the given name.
func (m *MockRunner) SetLookPath(name, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookPath[name] = path
}

// SetResult configures the output returned when name is run.
func (m *MockRunner) SetResult(name string, res Result, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[name] = mockResult{res: res, err: err}
}

// SetBlocking makes runs of name wait for ctx to finish.
func (m *MockRunner) SetBlocking(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[name] = mockResult{block: true}
}

// Calls returns every command run so far.
func (m *MockRunner) Calls() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Command, len(m.calls))
	copy(out, m.calls)
	return out
}

// LookPath implements ExecRunner.
func (m *MockRunner) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if path, ok := m.lookPath[name]; ok {
		return path, nil
	}
	return "", exec.ErrNotFound
}

// Run implements ExecRunner.
func (m *MockRunner) Run(ctx context.Context, c Command) (Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	r, ok := m.results[c.Name]
	m.mu.Unlock()

	if !ok {
		return Result{}, exec.ErrNotFound
	}
	if r.block {
		<-ctx.Done()
		return Result{ExitCode: -1}, ctx.Err()
	}
	return r.res, r.err
}
