// Package sysexec runs the external programs a migration is built from
// (parted, mkfs.*, rsync, blkid, ...) and turns their failures into errors
// that name the command line and carry what it printed to stderr.
package sysexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Command is one invocation of an external program.
type Command struct {
	Name string
	Args []string

	// Stdout, if non-nil, receives the program's standard output while it
	// runs. Run then returns an empty string.
	Stdout io.Writer
}

// Cmd is a convenience constructor for Command.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Argv returns the full argument vector, program name first.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Runner runs commands. Implementations must return a non-nil error for a
// non-zero exit status.
type Runner interface {
	Run(ctx context.Context, cmd Command) (stdout string, err error)
}

// ToolError is returned when an external program exits unsuccessfully.
type ToolError struct {
	Argv     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s: %v", strings.Join(e.Argv, " "), e.Err)
	if tail := stderrTail(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// stderrTail keeps the last few lines, which is where tools like parted
// and mkfs put the actual reason.
func stderrTail(stderr string) string {
	const maxLines = 3
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.TrimSpace(strings.Join(lines, "; "))
}

// ExecRunner runs commands with os/exec. Cancelling the context kills the
// running program.
type ExecRunner struct {
	Log *zap.Logger
}

// NewExecRunner returns an ExecRunner logging to log.
func NewExecRunner(log *zap.Logger) *ExecRunner {
	return &ExecRunner{Log: log}
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	log := r.Log.With(zap.Strings("argv", cmd.Argv()))
	log.Debug("exec")

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	killProcessGroup(c)
	// Children that escaped the process group may keep the output pipes
	// open.
	c.WaitDelay = 5 * time.Second
	var stdout, stderr bytes.Buffer
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	} else {
		c.Stdout = &stdout
	}
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	elapsed := time.Since(start)
	if err != nil {
		te := &ToolError{
			Argv:     cmd.Argv(),
			ExitCode: -1,
			Stderr:   stderr.String(),
			Err:      err,
		}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			te.ExitCode = ee.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			te.Err = fmt.Errorf("%v (%w)", err, ctxErr)
		}
		log.Debug("exec failed",
			zap.Int("exit_code", te.ExitCode),
			zap.Duration("elapsed", elapsed),
			zap.String("stderr", stderrTail(te.Stderr)))
		return stdout.String(), te
	}
	if s := strings.TrimSpace(stderr.String()); s != "" {
		log.Debug("exec stderr", zap.String("stderr", s))
	}
	log.Debug("exec done", zap.Duration("elapsed", elapsed))
	return stdout.String(), nil
}
