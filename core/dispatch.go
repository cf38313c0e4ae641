package core

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/hamzasclone2/quash/commands"
	"github.com/hamzasclone2/quash/core/proc"
	"github.com/hamzasclone2/quash/core/shell"
)

const (
	// exitNotFound is the conventional shell exit code for an unresolvable
	// command name.
	exitNotFound = 127
	// exitNotRunnable is the conventional code for a command that resolved
	// but could not be started.
	exitNotRunnable = 126
)

// dispatchChild runs the stage's child-side action with the wired streams
// and returns its handle. Generic commands become real OS processes;
// built-ins run as in-process tasks behind the same wiring. Stages whose
// only action is parent-side get an immediately-exited handle so every
// stage contributes exactly one handle to the job.
func (s *Session) dispatchChild(st *shell.Stage, stdin io.Reader, stdout io.Writer, wired []io.Closer) proc.Handle {
	switch st.Variant {
	case shell.GenericExec:
		return s.startExec(st, stdin, stdout, wired)

	case shell.Echo, shell.PrintWorkDir, shell.ListJobs:
		body := commands.AllCommands[st.Variant.String()]
		inv := &commands.Invocation{
			Args:   st.Argv,
			Stdin:  stdin,
			Stdout: stdout,
			Stderr: s.Stderr,
			// The child acts on a point-in-time copy of the shell's
			// state; the live table stays private to the shell.
			Jobs:  s.Jobs.Snapshot(),
			Getwd: os.Getwd,
		}
		return proc.StartTask(func() int { return body(inv) }, wired...)

	default:
		// Export, change-directory and send-signal mutate shell-local
		// state, so their work happens on the parent side. The child half
		// just exits.
		closeAll(wired)
		return proc.ExitedTask(0)
	}
}

// startExec resolves the command name and starts a real OS process. On a
// resolution failure the error is reported and the stage exits 127 instead
// of silently succeeding.
func (s *Session) startExec(st *shell.Stage, stdin io.Reader, stdout io.Writer, wired []io.Closer) proc.Handle {
	path, err := exec.LookPath(st.Argv[0])
	if err != nil {
		fmt.Fprintf(s.Stderr, "quash: %s: command not found\n", st.Argv[0])
		closeAll(wired)
		return proc.ExitedTask(exitNotFound)
	}

	cmd := &exec.Cmd{
		Path:   path,
		Args:   st.Argv,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: s.Stderr,
	}

	p, err := proc.StartOSProc(cmd, wired...)
	if err != nil {
		fmt.Fprintf(s.Stderr, "quash: %s: %v\n", st.Argv[0], err)
		return proc.ExitedTask(exitNotRunnable)
	}
	return p
}

// runParentAction performs the stage's action in the shell's own process.
// Only commands that must mutate shell-local state have one.
func (s *Session) runParentAction(st *shell.Stage) {
	switch st.Variant {
	case shell.Export:
		if err := os.Setenv(st.ExportName, st.ExportValue); err != nil {
			fmt.Fprintf(s.Stderr, "export: %v\n", err)
		}

	case shell.ChangeDir:
		s.changeDir(st.Dir)

	case shell.SendSignal:
		s.signalJob(st.JobID, st.Signal)
	}
}

// changeDir switches the shell's working directory and maintains the PWD
// and OLD_PWD environment variables. An absent target is reported and
// nothing changes.
func (s *Session) changeDir(dir string) {
	if dir == "" {
		dir = os.Getenv(EnvHome)
	}

	prev, err := os.Getwd()
	if err != nil {
		prev = os.Getenv(EnvPWD)
	}

	if err := os.Chdir(dir); err != nil {
		fmt.Fprintf(s.Stderr, "cd: %s: %v\n", dir, pathErr(err))
		return
	}

	os.Setenv(EnvOldPWD, prev)
	if wd, err := os.Getwd(); err == nil {
		os.Setenv(EnvPWD, wd)
	}
}

// signalJob resolves a job id and delivers the signal to every process of
// the job. A reaped or unknown id is a reported error, never fatal.
func (s *Session) signalJob(id, signum int) {
	job, ok := s.Jobs.Lookup(id)
	if !ok {
		fmt.Fprintf(s.Stderr, "kill: %%%d: no such job\n", id)
		return
	}

	sig := os.Signal(unix.SIGTERM)
	if signum > 0 {
		sig = unix.Signal(signum)
	}

	if err := job.Signal(sig); err != nil {
		fmt.Fprintf(s.Stderr, "kill: %v\n", err)
	}
}
