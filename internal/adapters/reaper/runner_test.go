package reaper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-outbound/config"
	"github.com/target/mmk-outbound/internal/core"
)

type countingRepo struct {
	released atomic.Int64
	deleted  atomic.Int64
}

func (r *countingRepo) ReleaseExpiredClaims(context.Context, int) (int64, error) {
	r.released.Add(1)
	return 0, nil
}

func (r *countingRepo) DeleteTerminalBefore(context.Context, core.DeleteTerminalJobsParams) (int64, error) {
	r.deleted.Add(1)
	return 0, nil
}

func TestNewRunner_RequiresStorage(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)
}

func TestRunner_RunOnceUsesInjectedRepo(t *testing.T) {
	repo := &countingRepo{}
	r, err := NewRunner(RunnerOptions{
		Repo:   repo,
		Config: config.ReaperConfig{Interval: time.Minute, TerminalMaxAge: time.Hour, BatchSize: 10},
	})
	require.NoError(t, err)

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.ReleasedClaims)
	assert.Equal(t, int64(1), repo.released.Load())
	assert.Equal(t, int64(1), repo.deleted.Load())
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	repo := &countingRepo{}
	r, err := NewRunner(RunnerOptions{
		Repo:   repo,
		Config: config.ReaperConfig{Interval: 20 * time.Millisecond, BatchSize: 10},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err = r.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, repo.released.Load(), int64(2))
}
