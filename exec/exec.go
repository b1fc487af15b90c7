// Package exec runs external commands with bounded lifetimes. Commands are
// executed directly, never through a shell, so arguments need no quoting.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/flanksource/commons/logger"
)

type Process struct {
	Started  *time.Time
	Env      map[string]string
	Cwd      string
	Err      error
	Log      logger.Logger
	Stderr   bytes.Buffer
	Stdout   bytes.Buffer
	Cmd      string
	Args     []string
	Timeout  time.Duration
	Duration time.Duration
	exitCode int
}

// New prepares cmd with args. Nothing runs until Run.
func New(cmd string, args ...string) Process {
	return Process{Cmd: cmd, Args: args, Log: logger.GetLogger("exec"), exitCode: -1}
}

func (p Process) Out() string {
	return p.Stderr.String() + p.Stdout.String()
}

func (p Process) WithEnv(env map[string]string) Process {
	p.Env = env
	return p
}

func (p Process) WithCwd(cwd string) Process {
	p.Cwd = cwd
	return p
}

func (p Process) WithLogger(log logger.Logger) Process {
	p.Log = log
	return p
}

// WithTimeout kills the process once d has elapsed.
func (p Process) WithTimeout(d time.Duration) Process {
	p.Timeout = d
	return p
}

func (p Process) Name() string {
	return p.Cmd
}

// String renders the command line for logs.
func (p Process) String() string {
	return strings.TrimSpace(p.Cmd + " " + strings.Join(p.Args, " "))
}

// Run executes the process to completion, or until ctx is done or the
// timeout elapses.
func (p Process) Run(ctx context.Context) Process {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.Cmd, p.Args...)
	cmd.Dir = p.Cwd
	cmd.Stderr = &p.Stderr
	cmd.Stdout = &p.Stdout
	if len(p.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range p.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	if p.Log != nil {
		p.Log.Debugf("Running %s", p)
	}
	start := time.Now()
	p.Started = &start
	p.Err = cmd.Run()
	p.Duration = time.Since(start)

	if cmd.ProcessState != nil {
		p.exitCode = cmd.ProcessState.ExitCode()
	}
	if ctx.Err() != nil && p.Err != nil {
		p.Err = fmt.Errorf("%s: %w", p.Err, ctx.Err())
	}
	return p
}

func (p Process) IsOK() bool {
	return p.Err == nil && p.exitCode == 0
}

// ExitCode is -1 when the process never started or was killed.
func (p Process) ExitCode() int {
	return p.exitCode
}

// TimedOut reports whether the process was stopped by its deadline.
func (p Process) TimedOut() bool {
	return errors.Is(p.Err, context.DeadlineExceeded)
}
