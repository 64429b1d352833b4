package index

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/lock"
	"github.com/Aman-CERP/sitesearch/internal/record"
	"github.com/Aman-CERP/sitesearch/internal/store"
)

func newTestJob(t *testing.T, src Source, l Locker) (*Job, store.JobStore, *Mutator) {
	t.Helper()
	c, m := newTestCoordinator(t, src, []ClassSpec{{Name: "Page"}}, nil)
	js, err := store.OpenJobStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = js.Close() })

	j, err := NewJob(JobDependencies{Coordinator: c, Store: js, Lock: l})
	require.NoError(t, err)
	return j, js, m
}

func threePages() *memSource {
	src := newMemSource()
	src.add("Page", page(1, "One"), page(2, "Two"), page(3, "Three"))
	return src
}

func TestNewJob_RequiresDependencies(t *testing.T) {
	_, err := NewJob(JobDependencies{})
	assert.EqualError(t, err, "coordinator is required")

	c, _ := newTestCoordinator(t, newMemSource(), nil, nil)
	_, err = NewJob(JobDependencies{Coordinator: c})
	assert.EqualError(t, err, "job store is required")
}

func TestJob_RunToCompletion(t *testing.T) {
	// Given
	ctx := context.Background()
	j, js, m := newTestJob(t, threePages(), lock.New(t.TempDir()))
	var seen []int

	// When
	result, err := j.Run(ctx, JobConfig{Full: true, Progress: func(c Cursor) { seen = append(seen, c.Step) }})

	// Then: every record indexed, checkpoint cleared, completion recorded
	require.NoError(t, err)
	assert.True(t, result.Done)
	assert.False(t, result.Resumed)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, uint64(3), docCount(t, m.engine))

	cp, err := js.LoadCheckpoint(ctx, DefaultJobName)
	require.NoError(t, err)
	assert.Nil(t, cp)

	count, err := js.GetState(ctx, store.StateKeyLastReindexCount)
	require.NoError(t, err)
	assert.Equal(t, "3", count)
	at, err := js.GetState(ctx, store.StateKeyLastReindexAt)
	require.NoError(t, err)
	assert.NotEmpty(t, at)
}

func TestJob_PauseAndResume(t *testing.T) {
	// Given: a run stopped after one step with a failing second record
	ctx := context.Background()
	src := threePages()
	src.failLoad(record.Ref{Class: "Page", ID: 2}, fmt.Errorf("timeout"))
	j, js, m := newTestJob(t, src, nil)

	first, err := j.Run(ctx, JobConfig{MaxSteps: 2})
	require.NoError(t, err)
	assert.False(t, first.Done)
	assert.Equal(t, 2, first.Processed)

	cp, err := js.LoadCheckpoint(ctx, DefaultJobName)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, []record.Ref{{Class: "Page", ID: 3}}, cp.Remaining)

	// When: a page appears, then the job resumes
	src.add("Page", page(4, "Four"))
	second, err := j.Run(ctx, JobConfig{Resume: true})

	// Then: the saved cursor is used, not a fresh enumeration
	require.NoError(t, err)
	assert.True(t, second.Resumed)
	assert.True(t, second.Done)
	assert.Equal(t, 1, second.Steps)
	assert.Equal(t, 3, second.Processed)
	require.Len(t, second.Failures, 1)
	assert.Equal(t, record.Ref{Class: "Page", ID: 2}, second.Failures[0].Ref)
	assert.EqualError(t, second.Failures[0].Err, "timeout")
	assert.Equal(t, uint64(2), docCount(t, m.engine))
}

func TestJob_ResumeWithoutCheckpointStartsFresh(t *testing.T) {
	j, _, _ := newTestJob(t, threePages(), nil)

	result, err := j.Run(context.Background(), JobConfig{Resume: true})

	require.NoError(t, err)
	assert.False(t, result.Resumed)
	assert.True(t, result.Done)
	assert.Equal(t, 3, result.Processed)
}

func TestJob_LockHeld(t *testing.T) {
	// Given: another job holds the lock
	dir := t.TempDir()
	other := lock.New(dir)
	ok, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer other.Unlock()

	j, _, _ := newTestJob(t, threePages(), lock.New(dir))

	// When
	_, err = j.Run(context.Background(), JobConfig{})

	// Then
	require.Error(t, err)
	assert.Equal(t, serrors.ErrCodeIndexLocked, serrors.GetCode(err))
}

func TestJob_CancelledLeavesCheckpoint(t *testing.T) {
	// Given: a cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j, js, _ := newTestJob(t, threePages(), nil)

	// When
	result, err := j.Run(ctx, JobConfig{})

	// Then
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.False(t, result.Done)

	cp, err := js.LoadCheckpoint(context.Background(), DefaultJobName)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Len(t, cp.Remaining, 3)
}

// cancelOnLoad cancels the run while ref is being loaded.
type cancelOnLoad struct {
	*memSource
	ref    record.Ref
	cancel context.CancelFunc
}

func (s *cancelOnLoad) Load(ctx context.Context, ref record.Ref) (record.Record, error) {
	if ref == s.ref && s.cancel != nil {
		s.cancel()
		s.cancel = nil
		return nil, ctx.Err()
	}
	return s.memSource.Load(ctx, ref)
}

func TestJob_CancelMidStepRequeuesRecord(t *testing.T) {
	// Given: a run cancelled while the second page loads
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	second := record.Ref{Class: "Page", ID: 2}
	src := &cancelOnLoad{memSource: threePages(), ref: second, cancel: cancel}
	j, js, m := newTestJob(t, src, nil)

	// When
	first, err := j.Run(ctx, JobConfig{})

	// Then: the interrupted record is not a failure and stays queued
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, first)
	assert.False(t, first.Done)
	assert.Equal(t, 1, first.Processed)
	assert.Empty(t, first.Failures)

	cp, err := js.LoadCheckpoint(context.Background(), DefaultJobName)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, []record.Ref{second, {Class: "Page", ID: 3}}, cp.Remaining)
	assert.Empty(t, cp.Failures)

	// When: the job resumes
	resumed, err := j.Run(context.Background(), JobConfig{Resume: true})

	// Then: every page is indexed without failures
	require.NoError(t, err)
	assert.True(t, resumed.Resumed)
	assert.True(t, resumed.Done)
	assert.Equal(t, 3, resumed.Processed)
	assert.Empty(t, resumed.Failures)
	assert.Equal(t, uint64(3), docCount(t, m.engine))
}
