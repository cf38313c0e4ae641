package jobs

import (
	"bytes"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzasclone2/quash/core/proc"
)

// fakeProc is a handle whose exit is driven by the test.
type fakeProc struct {
	pid      int
	exited   bool
	code     int
	signals  []os.Signal
	signalErr error
}

func (f *fakeProc) Pid() int  { return f.pid }
func (f *fakeProc) Wait() int { return f.code }
func (f *fakeProc) Poll() (int, bool) {
	if f.exited {
		return f.code, true
	}
	return 0, false
}
func (f *fakeProc) Signal(sig os.Signal) error {
	f.signals = append(f.signals, sig)
	return f.signalErr
}

var _ proc.Handle = (*fakeProc)(nil)

func newJobWithProcs(command string, pids ...int) (*Job, []*fakeProc) {
	j := NewJob(command)
	var procs []*fakeProc
	for _, pid := range pids {
		p := &fakeProc{pid: pid}
		procs = append(procs, p)
		j.Append(p)
	}
	return j, procs
}

func TestJobRemembersFirstPid(t *testing.T) {
	j, procs := newJobWithProcs("cat | wc", 10, 11)
	assert.Equal(t, 10, j.Pid())

	// The first pid survives even after its handle is reaped.
	procs[0].exited = true
	procs[1].exited = true
	table := NewTable()
	table.Register(j)
	table.CheckStatus(nil)
	assert.Equal(t, 10, j.Pid())
}

func TestJobString(t *testing.T) {
	j, _ := newJobWithProcs("sleep 5", 42)
	table := NewTable()
	table.Register(j)

	assert.Equal(t, fmt.Sprintf("[1]\t%8d\tsleep 5", 42), j.String())
}

func TestIDAllocation(t *testing.T) {
	table := NewTable()

	first, _ := newJobWithProcs("a", 1)
	table.Register(first)
	assert.Equal(t, 1, first.ID)

	second, _ := newJobWithProcs("b", 2)
	table.Register(second)
	assert.Equal(t, 2, second.ID)

	third, _ := newJobWithProcs("c", 3)
	table.Register(third)
	assert.Equal(t, 3, third.ID)
}

func TestIDAllocationAfterReap(t *testing.T) {
	table := NewTable()

	first, firstProcs := newJobWithProcs("a", 1)
	table.Register(first)
	second, _ := newJobWithProcs("b", 2)
	table.Register(second)

	// Reap job 1; job 2 stays live so its id must not be reused.
	firstProcs[0].exited = true
	table.CheckStatus(nil)
	require.Equal(t, 1, table.Len())

	third, _ := newJobWithProcs("c", 3)
	table.Register(third)
	assert.Equal(t, 3, third.ID)
}

func TestIDRestartsOnEmptyTable(t *testing.T) {
	table := NewTable()

	first, procs := newJobWithProcs("a", 1)
	table.Register(first)
	procs[0].exited = true
	table.CheckStatus(nil)
	require.Equal(t, 0, table.Len())

	next, _ := newJobWithProcs("b", 2)
	table.Register(next)
	assert.Equal(t, 1, next.ID)
}

func TestCheckStatusRemovesOnlyFullyExitedJobs(t *testing.T) {
	table := NewTable()

	mixed, mixedProcs := newJobWithProcs("cat | wc", 1, 2)
	table.Register(mixed)
	done, doneProcs := newJobWithProcs("true", 3)
	table.Register(done)

	mixedProcs[0].exited = true
	doneProcs[0].exited = true

	var reaped []*Job
	table.CheckStatus(func(j *Job) { reaped = append(reaped, j) })

	require.Len(t, reaped, 1)
	assert.Equal(t, done, reaped[0])
	assert.Equal(t, 1, table.Len())
	// The partially-exited job dropped its finished handle.
	assert.Len(t, mixed.Procs(), 1)
}

func TestCheckStatusPreservesOrder(t *testing.T) {
	table := NewTable()

	var jobs []*Job
	var procs []*fakeProc
	for i := 0; i < 4; i++ {
		j, ps := newJobWithProcs(fmt.Sprintf("job%d", i), 100+i)
		table.Register(j)
		jobs = append(jobs, j)
		procs = append(procs, ps[0])
	}

	// Reap the middle two.
	procs[1].exited = true
	procs[2].exited = true
	table.CheckStatus(nil)

	live := table.Live()
	require.Len(t, live, 2)
	assert.Equal(t, jobs[0], live[0])
	assert.Equal(t, jobs[3], live[1])
	assert.Equal(t, 1, live[0].ID)
	assert.Equal(t, 4, live[1].ID)
}

func TestCheckStatusNeverBlocks(t *testing.T) {
	table := NewTable()
	for i := 0; i < 100; i++ {
		j, _ := newJobWithProcs(fmt.Sprintf("job%d", i), i)
		table.Register(j)
	}

	start := time.Now()
	table.CheckStatus(nil)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 100, table.Len())
}

func TestLookup(t *testing.T) {
	table := NewTable()
	j, _ := newJobWithProcs("a", 1)
	table.Register(j)

	got, ok := table.Lookup(j.ID)
	assert.True(t, ok)
	assert.Equal(t, j, got)

	_, ok = table.Lookup(99)
	assert.False(t, ok)
}

func TestJobSignal(t *testing.T) {
	j, procs := newJobWithProcs("cat | wc", 1, 2)

	require.NoError(t, j.Signal(os.Interrupt))
	assert.Len(t, procs[0].signals, 1)
	assert.Len(t, procs[1].signals, 1)

	t.Run("delivery continues past errors", func(t *testing.T) {
		j, procs := newJobWithProcs("cat | wc", 1, 2)
		procs[0].signalErr = fmt.Errorf("gone")

		assert.Error(t, j.Signal(os.Interrupt))
		assert.Len(t, procs[1].signals, 1, "second handle still signalled")
	})
}

func TestSnapshotIsIndependent(t *testing.T) {
	table := NewTable()
	j, _ := newJobWithProcs("a", 1)
	table.Register(j)

	snap := table.Snapshot()
	more, _ := newJobWithProcs("b", 2)
	table.Register(more)

	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, 2, table.Len())
}

func TestPrintList(t *testing.T) {
	table := NewTable()
	a, _ := newJobWithProcs("sleep 5", 7)
	table.Register(a)
	b, _ := newJobWithProcs("cat | wc", 8)
	table.Register(b)

	var buf bytes.Buffer
	table.PrintList(&buf)

	want := fmt.Sprintf("[1]\t%8d\tsleep 5\n[2]\t%8d\tcat | wc\n", 7, 8)
	assert.Equal(t, want, buf.String())
}
