// Package proc abstracts the processes a pipeline spawns: real OS processes
// for external programs and in-process tasks for built-ins whose output must
// still flow through the shell's pipe and file wiring.
package proc

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
)

// Handle is one spawned pipeline stage. The shell never inspects the
// process behind it, only its pid and exit status.
type Handle interface {
	// Pid returns the OS process id, or a virtual pid for in-process tasks.
	Pid() int
	// Wait blocks until the process exits and returns its exit code.
	// Safe to call more than once.
	Wait() int
	// Poll reports whether the process has exited without blocking.
	Poll() (code int, exited bool)
	// Signal delivers sig to the process. Signalling an already-exited
	// process returns an error.
	Signal(sig os.Signal) error
}

// OSProc wraps a started exec.Cmd. A waiter goroutine reaps the process
// exactly once and publishes the exit code, so Poll never blocks and never
// races Wait.
type OSProc struct {
	cmd  *exec.Cmd
	done chan struct{}
	code int
}

// StartOSProc starts cmd and closes every file in closeAfterStart once the
// child holds its own copies. The files are closed even if the start fails.
func StartOSProc(cmd *exec.Cmd, closeAfterStart ...io.Closer) (*OSProc, error) {
	err := cmd.Start()
	for _, c := range closeAfterStart {
		c.Close()
	}
	if err != nil {
		return nil, err
	}

	p := &OSProc{
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		if err := p.cmd.Wait(); err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				p.code = exitErr.ExitCode()
				return
			}
			p.code = 1
			return
		}
		p.code = 0
	}()
	return p, nil
}

func (p *OSProc) Pid() int {
	return p.cmd.Process.Pid
}

func (p *OSProc) Wait() int {
	<-p.done
	return p.code
}

func (p *OSProc) Poll() (int, bool) {
	select {
	case <-p.done:
		return p.code, true
	default:
		return 0, false
	}
}

func (p *OSProc) Signal(sig os.Signal) error {
	if _, exited := p.Poll(); exited {
		return fmt.Errorf("process %d already exited", p.Pid())
	}
	return p.cmd.Process.Signal(sig)
}

// taskPID hands out virtual pids for in-process tasks, well above the
// typical pid_max so they never collide with real process ids on screen.
var taskPID int64 = 1 << 22

// Task runs a built-in body on its own goroutine with the same wired
// stdio a real child would get. It owns the files it was wired with and
// closes them when the body returns, which is what lets a downstream pipe
// reader observe end-of-stream.
type Task struct {
	pid  int
	done chan struct{}
	code int
}

// StartTask runs fn asynchronously. Every closer in owned is closed after fn
// returns, in order.
func StartTask(fn func() int, owned ...io.Closer) *Task {
	t := &Task{
		pid:  int(atomic.AddInt64(&taskPID, 1)),
		done: make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		defer func() {
			for _, c := range owned {
				c.Close()
			}
		}()
		t.code = fn()
	}()
	return t
}

// ExitedTask returns a handle that is already complete with the given exit
// code. Used for stages that failed before anything could be spawned, so a
// job still gets one handle per stage.
func ExitedTask(code int) *Task {
	t := &Task{
		pid:  int(atomic.AddInt64(&taskPID, 1)),
		done: make(chan struct{}),
		code: code,
	}
	close(t.done)
	return t
}

func (t *Task) Pid() int {
	return t.pid
}

func (t *Task) Wait() int {
	<-t.done
	return t.code
}

func (t *Task) Poll() (int, bool) {
	select {
	case <-t.done:
		return t.code, true
	default:
		return 0, false
	}
}

// Signal is accepted but not delivered: built-in bodies are short-lived and
// run to completion. Signalling a finished task is still an error to match
// the OS process behavior.
func (t *Task) Signal(sig os.Signal) error {
	if _, exited := t.Poll(); exited {
		return fmt.Errorf("process %d already exited", t.pid)
	}
	return nil
}
