// Package jobs tracks background pipelines and reaps them without blocking
// the shell's read loop.
package jobs

import (
	"fmt"
	"io"
	"os"

	"github.com/hamzasclone2/quash/core/proc"
)

// Job is the bookkeeping record for one pipeline invocation: every stage's
// process handle under a single id.
type Job struct {
	// ID is assigned only when the job is registered as a background job.
	// Foreground pipelines never enter the table and keep a zero id.
	ID int

	// Command is the original, unparsed input line.
	Command string

	procs []proc.Handle

	// firstPid is remembered at append time so completion notices can name
	// the lead process after its handle has been reaped.
	firstPid int
}

// NewJob creates an empty job for the given command text.
func NewJob(command string) *Job {
	return &Job{Command: command}
}

// Append adds a stage's handle in left-to-right stage order.
func (j *Job) Append(h proc.Handle) {
	if len(j.procs) == 0 {
		j.firstPid = h.Pid()
	}
	j.procs = append(j.procs, h)
}

// Procs returns the job's live handles in stage order.
func (j *Job) Procs() []proc.Handle {
	return j.procs
}

// Pid returns the pid of the job's first process, defunct or not.
func (j *Job) Pid() int {
	return j.firstPid
}

// Wait blocks until every one of the job's processes has exited. Draining
// order does not matter for correctness; every handle is waited on.
func (j *Job) Wait() {
	for _, p := range j.procs {
		p.Wait()
	}
}

// Signal delivers sig to every process of the job. Delivery is attempted on
// every handle; the first error is returned.
func (j *Job) Signal(sig os.Signal) error {
	var firstErr error
	for _, p := range j.procs {
		if err := p.Signal(sig); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// String formats the job the way listings and notices print it.
func (j *Job) String() string {
	return fmt.Sprintf("[%d]\t%8d\t%s", j.ID, j.firstPid, j.Command)
}

// Table is the ordered collection of live background jobs, exclusively
// owned and mutated by the shell's single thread of control.
type Table struct {
	jobs []*Job
}

// NewTable returns an empty job table.
func NewTable() *Table {
	return &Table{}
}

// NextID allocates the id for a job about to be registered: one more than
// the highest live id, or 1 for an empty table. Ids of reaped jobs are
// never reused while a higher one is live.
func (t *Table) NextID() int {
	max := 0
	for _, j := range t.jobs {
		if j.ID > max {
			max = j.ID
		}
	}
	return max + 1
}

// Register assigns the job its id and adds it to the table.
func (t *Table) Register(j *Job) {
	j.ID = t.NextID()
	t.jobs = append(t.jobs, j)
}

// Lookup finds a live job by id.
func (t *Table) Lookup(id int) (*Job, bool) {
	for _, j := range t.jobs {
		if j.ID == id {
			return j, true
		}
	}
	return nil, false
}

// Snapshot returns a point-in-time copy of the table, the private copy a
// spawned stage receives. The live table stays exclusively with the shell.
func (t *Table) Snapshot() *Table {
	out := &Table{jobs: make([]*Job, len(t.jobs))}
	copy(out.jobs, t.jobs)
	return out
}

// Live returns the live jobs in table order.
func (t *Table) Live() []*Job {
	return t.jobs
}

// Len returns the number of live jobs.
func (t *Table) Len() int {
	return len(t.jobs)
}

// CheckStatus performs one non-blocking reaping pass. Every job present at
// the start of the pass has each handle polled; exited handles are dropped
// and a job whose handle list empties is removed and reported through
// onDone. Surviving jobs keep their relative order. The pass never blocks,
// and jobs registered during the pass are not visited.
func (t *Table) CheckStatus(onDone func(*Job)) {
	snapshot := len(t.jobs)

	var survivors []*Job
	for _, j := range t.jobs[:snapshot] {
		var live []proc.Handle
		for _, p := range j.procs {
			if _, exited := p.Poll(); !exited {
				live = append(live, p)
			}
		}
		j.procs = live

		if len(j.procs) == 0 {
			if onDone != nil {
				onDone(j)
			}
			continue
		}
		survivors = append(survivors, j)
	}

	t.jobs = append(survivors, t.jobs[snapshot:]...)
}

// PrintList writes one line per live job in table order.
func (t *Table) PrintList(w io.Writer) {
	for _, j := range t.jobs {
		fmt.Fprintln(w, j.String())
	}
}
