package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-outbound/config"
	"github.com/target/mmk-outbound/internal/core"
)

type batchResult struct {
	n   int64
	err error
}

// scriptedReaperRepo replays queued batch results per operation. Once a queue
// is empty every call reports an empty batch, or failErr when it is set.
type scriptedReaperRepo struct {
	mu         sync.Mutex
	release    []batchResult
	del        []batchResult
	failErr    error
	releaseN   int
	deleteN    int
	deleteSeen []core.DeleteTerminalJobsParams
}

func (r *scriptedReaperRepo) next(queue *[]batchResult) (int64, error) {
	if len(*queue) == 0 {
		return 0, r.failErr
	}
	head := (*queue)[0]
	*queue = (*queue)[1:]
	return head.n, head.err
}

func (r *scriptedReaperRepo) ReleaseExpiredClaims(context.Context, int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseN++
	return r.next(&r.release)
}

func (r *scriptedReaperRepo) DeleteTerminalBefore(_ context.Context, p core.DeleteTerminalJobsParams) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteN++
	r.deleteSeen = append(r.deleteSeen, p)
	return r.next(&r.del)
}

func (r *scriptedReaperRepo) counts() (release, del int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releaseN, r.deleteN
}

type countSink struct {
	mu   sync.Mutex
	tags map[string][]map[string]string
}

func (s *countSink) Count(name string, _ int64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tags == nil {
		s.tags = map[string][]map[string]string{}
	}
	s.tags[name] = append(s.tags[name], tags)
}

func (s *countSink) Gauge(string, float64, map[string]string)        {}
func (s *countSink) Timing(string, time.Duration, map[string]string) {}

func reaperFor(t *testing.T, repo core.ReaperRepository, tweak func(*config.ReaperConfig), sink *countSink) *ReaperService {
	t.Helper()
	cfg := config.ReaperConfig{Interval: time.Minute, TerminalMaxAge: 720 * time.Hour, BatchSize: 500}
	if tweak != nil {
		tweak(&cfg)
	}
	opts := ReaperServiceOptions{Repo: repo, Config: cfg}
	if sink != nil {
		opts.Metrics = sink
	}
	svc, err := NewReaperService(opts)
	require.NoError(t, err)
	return svc
}

func TestNewReaperService_RequiresRepo(t *testing.T) {
	_, err := NewReaperService(ReaperServiceOptions{})
	require.ErrorContains(t, err, "ReaperRepository is required")
}

func TestReaperRunOnce_DrainsBatches(t *testing.T) {
	repo := &scriptedReaperRepo{
		release: []batchResult{{n: 500}, {n: 2}},
		del:     []batchResult{{n: 500}, {n: 500}, {n: 7}},
	}
	sink := &countSink{}
	svc := reaperFor(t, repo, nil, sink)

	res, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(502), res.ReleasedClaims)
	assert.Equal(t, int64(1007), res.DeletedJobs)

	// Each drain stops on the first empty batch.
	release, del := repo.counts()
	assert.Equal(t, 3, release)
	assert.Equal(t, 4, del)
	assert.Equal(t, core.DeleteTerminalJobsParams{MaxAge: 720 * time.Hour, BatchSize: 500}, repo.deleteSeen[0])

	require.Len(t, sink.tags["reaper.cleanup"], 1)
	assert.Equal(t, "success", sink.tags["reaper.cleanup"][0]["result"])
	assert.Len(t, sink.tags["reaper.cleanup_operation"], 2)
}

func TestReaperRunOnce_ZeroMaxAgeKeepsTerminalJobs(t *testing.T) {
	repo := &scriptedReaperRepo{}
	svc := reaperFor(t, repo, func(c *config.ReaperConfig) { c.TerminalMaxAge = 0 }, nil)

	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	_, del := repo.counts()
	assert.Zero(t, del)
}

func TestReaperRunOnce_StepFailureDoesNotSkipOthers(t *testing.T) {
	repo := &scriptedReaperRepo{
		release: []batchResult{{err: errors.New("lock timeout")}},
		del:     []batchResult{{n: 4}},
	}
	sink := &countSink{}
	svc := reaperFor(t, repo, nil, sink)

	res, err := svc.RunOnce(context.Background())
	require.ErrorContains(t, err, "release expired claims: lock timeout")
	assert.Equal(t, int64(4), res.DeletedJobs)

	release, del := repo.counts()
	assert.Equal(t, 1, release)
	assert.Equal(t, 2, del)
	assert.Equal(t, "error", sink.tags["reaper.cleanup"][0]["result"])
}

func TestReaperRunOnce_CancellationOnly(t *testing.T) {
	repo := &scriptedReaperRepo{failErr: context.Canceled}
	svc := reaperFor(t, repo, nil, nil)

	_, err := svc.RunOnce(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, err.Error(), "cleanup failed")
}

func TestReaperRun_ReturnsNilOnCancel(t *testing.T) {
	repo := &scriptedReaperRepo{}
	svc := reaperFor(t, repo, func(c *config.ReaperConfig) { c.Interval = 40 * time.Millisecond }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		release, _ := repo.counts()
		return release >= 2
	}, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run kept going after cancel")
	}
}

func TestReaperRun_KeepsTickingThroughErrors(t *testing.T) {
	repo := &scriptedReaperRepo{failErr: errors.New("db down")}
	svc := reaperFor(t, repo, func(c *config.ReaperConfig) { c.Interval = 30 * time.Millisecond }, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, svc.Run(ctx), context.DeadlineExceeded)
	release, _ := repo.counts()
	assert.GreaterOrEqual(t, release, 2)
}
