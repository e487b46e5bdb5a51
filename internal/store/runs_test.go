package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRepository_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	repo := s.Runs()
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := &Run{Mode: ModeLive, Variant: "expression", Source: "of2_out.csv", StartedAt: started}
	require.NoError(t, repo.Start(ctx, run))
	require.Len(t, run.ID, 26, "ULID string length")

	open, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, open.EndedAt)
	assert.Equal(t, 0, open.Frames)

	ended := started.Add(90 * time.Second)
	require.NoError(t, repo.Finish(ctx, run.ID, ended, RunCounters{
		Frames: 2700, Skipped: 1, Gated: 120, Regressed: 2, Events: 7,
	}))

	done, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, done.EndedAt)
	assert.True(t, done.EndedAt.Equal(ended))
	assert.Equal(t, 2700, done.Frames)
	assert.Equal(t, 1, done.Skipped)
	assert.Equal(t, 120, done.Gated)
	assert.Equal(t, 2, done.Regressed)
	assert.Equal(t, 7, done.Events)
}

func TestRunRepository_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	repo := s.Runs()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		run := &Run{Mode: ModeReplay, Variant: "pose", Source: "rec.csv", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Start(ctx, run))
		ids = append(ids, run.ID)
	}

	runs, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestRunRepository_ListSameMillisecond(t *testing.T) {
	s := newTestStore(t)
	repo := s.Runs()
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 20; i++ {
		run := &Run{Mode: ModeReplay, Variant: "pose", Source: "rec.csv", StartedAt: started}
		require.NoError(t, repo.Start(ctx, run))
		ids = append(ids, run.ID)
	}

	runs, err := repo.List(ctx, len(ids))
	require.NoError(t, err)
	require.Len(t, runs, len(ids))
	for i, run := range runs {
		assert.Equal(t, ids[len(ids)-1-i], run.ID, "position %d", i)
	}
}

func TestNewRunID_Monotonic(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	prev := NewRunID(at)
	for i := 0; i < 100; i++ {
		next := NewRunID(at)
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestRunRepository_Missing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Runs().Get(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Runs().Finish(ctx, "missing", time.Now(), RunCounters{}), ErrNotFound)
}

func TestRunRepository_ModeConstraint(t *testing.T) {
	s := newTestStore(t)
	err := s.Runs().Start(context.Background(), &Run{Mode: "dream", Variant: "pose", Source: "x"})
	assert.Error(t, err)
}
