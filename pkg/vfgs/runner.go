package vfgs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Process represents a running synthesizer with lifecycle management.
type Process struct {
	cmd    *exec.Cmd
	pid    int
	done   chan struct{}
	err    error
	stderr bytes.Buffer
}

// PID returns the process ID, or 0 if not started.
func (p *Process) PID() int {
	return p.pid
}

// Wait blocks until the process completes and returns any error.
func (p *Process) Wait() error {
	<-p.done
	return p.err
}

// Kill sends SIGKILL to the process.
func (p *Process) Kill() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// Done returns a channel that closes when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Stderr returns the captured stderr output (available after Wait).
// vfgs prints its diagnostics on stdout, which is captured here too.
func (p *Process) Stderr() string {
	return p.stderr.String()
}

// Start starts binary with args. The process is killed when ctx is done.
// The caller is responsible for calling Wait() or Kill().
func Start(ctx context.Context, binary string, args []string) (*Process, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	p := &Process{
		cmd:  cmd,
		done: make(chan struct{}),
	}
	cmd.Stdout = &p.stderr
	cmd.Stderr = &p.stderr

	if err := cmd.Start(); err != nil {
		return nil, &Error{Binary: binary, Args: args, Err: fmt.Errorf("failed to start: %w", err)}
	}
	p.pid = cmd.Process.Pid

	go func() {
		defer close(p.done)
		p.err = cmd.Wait()
		if p.err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				p.err = ctxErr
				return
			}
			p.err = &Error{
				Binary: binary,
				Args:   args,
				Stderr: p.stderr.String(),
				Err:    p.err,
			}
		}
	}()

	return p, nil
}

// RunResult contains the outcome of an invocation, including its output.
type RunResult struct {
	Logs string
	Err  error
}

func runCapture(ctx context.Context, binary string, args []string) RunResult {
	proc, err := Start(ctx, binary, args)
	if err != nil {
		return RunResult{Err: err}
	}
	waitErr := proc.Wait()
	return RunResult{
		Logs: proc.Stderr(),
		Err:  waitErr,
	}
}

// Error represents a synthesizer execution error with context.
type Error struct {
	Binary string
	Args   []string
	Stderr string
	Err    error
}

// Error implements error.
func (e *Error) Error() string {
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	var lastLines string
	if len(lines) > 3 {
		lastLines = strings.Join(lines[len(lines)-3:], "\n")
	} else {
		lastLines = strings.Join(lines, "\n")
	}

	if lastLines != "" {
		return fmt.Sprintf("vfgs: %v: %s", e.Err, lastLines)
	}
	return fmt.Sprintf("vfgs: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// FullStderr returns the complete output.
func (e *Error) FullStderr() string {
	return e.Stderr
}

// Command returns the command that was executed.
func (e *Error) Command() string {
	return e.Binary + " " + strings.Join(e.Args, " ")
}
