package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/sitesearch/internal/record"
)

func TestJobStore_CheckpointRoundTrip(t *testing.T) {
	// Given: an on-disk job store
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobs.db")
	s, err := OpenJobStore(path)
	require.NoError(t, err)

	cp := &Checkpoint{
		Job:       "reindex",
		Full:      true,
		Total:     3,
		Step:      1,
		Remaining: []record.Ref{{Class: "Page", ID: 2}, {Class: "File", ID: 9}},
		Failures:  []FailedStep{{Ref: record.Ref{Class: "Page", ID: 1}, Error: "disk full"}},
	}
	require.NoError(t, s.SaveCheckpoint(ctx, cp))
	require.NoError(t, s.Close())

	// When: reopening and loading
	s, err = OpenJobStore(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.LoadCheckpoint(ctx, "reindex")

	// Then: every field survives
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Full)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 1, got.Step)
	assert.Equal(t, cp.Remaining, got.Remaining)
	assert.Equal(t, cp.Failures, got.Failures)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestJobStore_SaveOverwritesAndClear(t *testing.T) {
	ctx := context.Background()
	s, err := OpenJobStore("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveCheckpoint(ctx, &Checkpoint{Job: "j", Total: 2, Remaining: []record.Ref{{Class: "A", ID: 1}}}))
	require.NoError(t, s.SaveCheckpoint(ctx, &Checkpoint{Job: "j", Total: 2, Step: 2}))

	got, err := s.LoadCheckpoint(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Step)
	assert.Empty(t, got.Remaining)

	require.NoError(t, s.ClearCheckpoint(ctx, "j"))
	got, err = s.LoadCheckpoint(ctx, "j")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestJobStore_State(t *testing.T) {
	ctx := context.Background()
	s, err := OpenJobStore("")
	require.NoError(t, err)
	defer s.Close()

	v, err := s.GetState(ctx, StateKeyLastReindexCount)
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, s.SetState(ctx, StateKeyLastReindexCount, "42"))
	v, err = s.GetState(ctx, StateKeyLastReindexCount)
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestJobStore_Closed(t *testing.T) {
	s, err := OpenJobStore("")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.LoadCheckpoint(context.Background(), "j")
	assert.Error(t, err)
}
