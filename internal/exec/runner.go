// Package exec provides a stub-friendly interface for running external commands.
package exec

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// CmdResult holds the result of a command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunOpts holds optional parameters for command execution.
type RunOpts struct {
	Dir   string            // working directory (optional)
	Env   map[string]string // extra environment variables (overlay)
	Stdin []byte            // input piped to the process (git hash-object, mktree)
}

// CommandRunner is the interface for running external commands.
// Implementations must be safe for stubbing in tests.
type CommandRunner interface {
	// Run executes a command and returns the result.
	// Returns CmdResult with ExitCode set if the process exits (even non-zero).
	// Returns error only for execution failures (binary not found, ctx canceled, io failure).
	Run(ctx context.Context, name string, args []string, opts RunOpts) (CmdResult, error)
}

// RealRunner is the production implementation of CommandRunner using os/exec.
type RealRunner struct{}

// NewRealRunner creates a new RealRunner.
func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

// Run executes the command and captures stdout/stderr.
func (r *RealRunner) Run(ctx context.Context, name string, args []string, opts RunOpts) (CmdResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}

	if opts.Stdin != nil {
		cmd.Stdin = bytes.NewReader(opts.Stdin)
	}

	if len(opts.Env) > 0 {
		cmd.Env = cmd.Environ()
		for k, v := range opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	err := cmd.Run()

	result := CmdResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		// Exit error: process ran but exited non-zero.
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		// Other errors (binary not found, ctx canceled, etc.)
		return result, err
	}

	result.ExitCode = 0
	return result, nil
}

// StubRunner is a scripted CommandRunner for tests. Responses are keyed by
// the command line; calls are recorded for assertion.
type StubRunner struct {
	responses map[string]CmdResult
	errs      map[string]error
	// Fallback handles any call without a scripted response. Optional.
	Fallback func(name string, args []string, opts RunOpts) (CmdResult, error)
	Calls    []StubCall
}

// StubCall records one invocation of Run.
type StubCall struct {
	Name  string
	Args  []string
	Dir   string
	Stdin []byte
}

// NewStubRunner creates an empty StubRunner.
func NewStubRunner() *StubRunner {
	return &StubRunner{
		responses: make(map[string]CmdResult),
		errs:      make(map[string]error),
	}
}

// On registers a response for the given command line.
func (s *StubRunner) On(name string, args []string, result CmdResult) {
	s.responses[stubKey(name, args)] = result
}

// OnError registers an execution failure for the given command line.
func (s *StubRunner) OnError(name string, args []string, err error) {
	s.errs[stubKey(name, args)] = err
}

// Run returns the scripted response, the Fallback result, or exit 127.
func (s *StubRunner) Run(_ context.Context, name string, args []string, opts RunOpts) (CmdResult, error) {
	s.Calls = append(s.Calls, StubCall{Name: name, Args: args, Dir: opts.Dir, Stdin: opts.Stdin})

	key := stubKey(name, args)
	if err, ok := s.errs[key]; ok {
		return CmdResult{}, err
	}
	if result, ok := s.responses[key]; ok {
		return result, nil
	}
	if s.Fallback != nil {
		return s.Fallback(name, args, opts)
	}
	return CmdResult{ExitCode: 127, Stderr: "command not scripted: " + key}, nil
}

func stubKey(name string, args []string) string {
	return name + " " + strings.Join(args, " ")
}
