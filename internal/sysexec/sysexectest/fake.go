// Package sysexectest provides a recording sysexec.Runner for tests.
package sysexectest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pimigrate/tools/internal/sysexec"
)

// Result is the canned outcome of one command line.
type Result struct {
	Stdout string
	Err    error
}

// FakeRunner records every command it is asked to run and answers from
// Results, keyed by the space-joined command line. Unknown commands
// succeed with empty output.
type FakeRunner struct {
	mu       sync.Mutex
	Results  map[string]Result
	Commands [][]string

	// OnRun, if set, is called before the canned result is looked up and
	// can simulate side effects (e.g. partition nodes appearing). A non-nil
	// error is returned as the command's error.
	OnRun func(cmd sysexec.Command) error
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Results: make(map[string]Result)}
}

// Set registers the outcome for a command line.
func (f *FakeRunner) Set(cmdline, stdout string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Results == nil {
		f.Results = make(map[string]Result)
	}
	f.Results[cmdline] = Result{Stdout: stdout, Err: err}
}

// Fail makes cmdline exit with status 1.
func (f *FakeRunner) Fail(cmdline string) {
	f.Set(cmdline, "", &sysexec.ToolError{
		Argv:     []string{cmdline},
		ExitCode: 1,
		Err:      fmt.Errorf("exit status 1"),
	})
}

func (f *FakeRunner) Run(ctx context.Context, cmd sysexec.Command) (string, error) {
	f.mu.Lock()
	f.Commands = append(f.Commands, cmd.Argv())
	onRun := f.OnRun
	res := f.Results[cmd.String()]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if onRun != nil {
		if err := onRun(cmd); err != nil {
			return "", err
		}
	}
	if cmd.Stdout != nil && res.Stdout != "" {
		if _, err := io.WriteString(cmd.Stdout, res.Stdout); err != nil {
			return "", err
		}
		return "", res.Err
	}
	return res.Stdout, res.Err
}

// Ran reports whether a command with the given program name was run.
func (f *FakeRunner) Ran(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, argv := range f.Commands {
		if argv[0] == name {
			return true
		}
	}
	return false
}

// Names returns the program names in the order they were run.
func (f *FakeRunner) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.Commands))
	for _, argv := range f.Commands {
		names = append(names, argv[0])
	}
	return names
}
