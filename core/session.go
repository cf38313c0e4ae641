// Package core drives pipelines end to end: it spawns one process per
// stage, wires their standard streams together and tracks background jobs
// until they are reaped.
package core

import (
	"fmt"
	"io"
	"os"

	"github.com/hamzasclone2/quash/core/jobs"
	"github.com/hamzasclone2/quash/core/logger"
	"github.com/hamzasclone2/quash/core/proc"
	"github.com/hamzasclone2/quash/core/shell"
)

// Session owns the job table and the shell's standard streams for one
// interactive session. It is constructed once at startup and used by a
// single thread of control; no locking is needed.
type Session struct {
	Jobs *jobs.Table
	Log  *logger.SessionLogger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewSession creates a session bound to the given streams.
func NewSession(log *logger.SessionLogger, stdin io.Reader, stdout, stderr io.Writer) *Session {
	return &Session{
		Jobs:   jobs.NewTable(),
		Log:    log,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}
}

// pipePair is one slot of the rotating pair of pipes used to chain stage
// i's output to stage i+1's input. At most two pipes are ever live, so the
// descriptor footprint is bounded regardless of pipeline length.
type pipePair struct {
	r *os.File
	w *os.File
}

// RunPipeline executes one parsed pipeline and returns its job record.
// Foreground pipelines block until every spawned process has exited;
// background pipelines register the job and return immediately.
func (s *Session) RunPipeline(line string, stages []shell.Stage) (*jobs.Job, error) {
	job := jobs.NewJob(line)
	var slots [2]*pipePair
	background := false

	for i := 0; i < len(stages); i++ {
		st := &stages[i]
		if st.Variant == shell.EndOfCommands {
			break
		}
		if st.Variant == shell.Exit {
			// Sentinel for the read loop; nothing to spawn.
			continue
		}
		if st.Background {
			background = true
		}

		if st.PipeToNext {
			r, w, err := os.Pipe()
			if err != nil {
				if prev := slots[(i+1)%2]; prev != nil {
					prev.r.Close()
				}
				return job, fmt.Errorf("pipe: %w", err)
			}
			slots[i%2] = &pipePair{r: r, w: w}
		}

		job.Append(s.spawnStage(st, slots[(i+1)%2], slots[i%2]))

		// The pipe that fed this stage is now wholly the child's:
		// spawnStage closed or handed off both ends, so the parent
		// forgets the slot and it can be reused two stages later.
		slots[(i+1)%2] = nil

		s.runParentAction(st)
	}

	if len(job.Procs()) == 0 {
		return job, nil
	}

	s.Log.Record(logger.Event{Type: logger.EventPipelineRun, Command: line})

	if background {
		s.Jobs.Register(job)
		fmt.Fprintf(s.Stdout, "Background job started: %s\n", job)
		s.Log.Record(logger.Event{
			Type:    logger.EventJobStarted,
			Command: job.Command,
			JobID:   job.ID,
			Pid:     job.Pid(),
		})
		return job, nil
	}

	job.Wait()
	return job, nil
}

// Reap performs one non-blocking pass over the job table, announcing every
// job whose processes have all exited. Called opportunistically before each
// new pipeline runs.
func (s *Session) Reap() {
	s.Jobs.CheckStatus(func(j *jobs.Job) {
		fmt.Fprintf(s.Stdout, "Completed: \t%s\n", j)
		s.Log.Record(logger.Event{
			Type:    logger.EventJobCompleted,
			Command: j.Command,
			JobID:   j.ID,
			Pid:     j.Pid(),
		})
	})
}

// spawnStage wires one stage's streams and dispatches its child-side
// action, returning the stage's process handle. Wiring happens in a fixed
// order: pipe ends first, then file redirections, so an explicit
// redirection always wins over pipe wiring for the same stream.
func (s *Session) spawnStage(st *shell.Stage, prev, cur *pipePair) proc.Handle {
	var stdin io.Reader = s.Stdin
	var stdout io.Writer = s.Stdout

	// wired collects the descriptors handed to the child half: the parent
	// closes them once a real process holds its own copies, while an
	// in-process task owns them until its body returns.
	var wired []io.Closer

	var pipeIn, pipeOut *os.File
	if st.PipeFromPrev && prev != nil {
		pipeIn = prev.r
		stdin = pipeIn
		wired = append(wired, pipeIn)
	}
	if st.PipeToNext && cur != nil {
		pipeOut = cur.w
		stdout = pipeOut
		wired = append(wired, pipeOut)
	}

	fail := func(code int) proc.Handle {
		closeAll(wired)
		return proc.ExitedTask(code)
	}

	if st.RedirectIn {
		f, err := os.Open(st.InPath)
		if err != nil {
			fmt.Fprintf(s.Stderr, "quash: %s: %v\n", st.InPath, pathErr(err))
			return fail(1)
		}
		if pipeIn != nil {
			// Displaced by the redirection; nothing reads it anymore.
			pipeIn.Close()
			wired = removeCloser(wired, pipeIn)
		}
		stdin = f
		wired = append(wired, f)
	}

	if st.RedirectOut {
		flags := os.O_WRONLY | os.O_CREATE
		if st.AppendOut {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(st.OutPath, flags, 0644)
		if err != nil {
			fmt.Fprintf(s.Stderr, "quash: %s: %v\n", st.OutPath, pathErr(err))
			return fail(1)
		}
		if pipeOut != nil {
			// Closing the displaced write end gives the downstream reader
			// an immediate end-of-stream.
			pipeOut.Close()
			wired = removeCloser(wired, pipeOut)
		}
		stdout = f
		wired = append(wired, f)
	}

	return s.dispatchChild(st, stdin, stdout, wired)
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		c.Close()
	}
}

func removeCloser(closers []io.Closer, victim io.Closer) []io.Closer {
	out := closers[:0]
	for _, c := range closers {
		if c != victim {
			out = append(out, c)
		}
	}
	return out
}

// pathErr unwraps fs.PathError so messages don't repeat the path.
func pathErr(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err
	}
	return err
}
