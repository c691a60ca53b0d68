package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantlab/pkg/logger"
	"github.com/wonny/quantlab/pkg/metrics"
)

type countingJob struct {
	name     string
	schedule string
	failures int32 // 앞의 N번 실패
	calls    atomic.Int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }
func (j *countingJob) Run(ctx context.Context) error {
	if j.calls.Add(1) <= j.failures {
		return errors.New("boom")
	}
	return nil
}

func newTestScheduler(reg *metrics.Registry) *Scheduler {
	return New(reg, logger.Nop()).WithRetry(2, time.Millisecond)
}

func TestAddAndRemoveJob(t *testing.T) {
	s := newTestScheduler(nil)
	job := &countingJob{name: "a", schedule: "0 0 16 * * 1-5"}

	require.NoError(t, s.AddJob(job))
	assert.ErrorContains(t, s.AddJob(job), "already exists")
	assert.ErrorContains(t, s.AddJob(&countingJob{name: "bad", schedule: "every day"}), "failed to schedule")

	require.NoError(t, s.RemoveJob("a"))
	assert.ErrorContains(t, s.RemoveJob("a"), "not found")
}

func TestRunJobRetries(t *testing.T) {
	tests := []struct {
		name         string
		failures     int32
		wantSuccess  bool
		wantAttempts int
	}{
		{"first try", 0, true, 1},
		{"recovers on retry", 2, true, 3},
		{"exhausts retries", 5, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := metrics.New()
			s := newTestScheduler(reg)
			job := &countingJob{name: "job", schedule: "@every 1h", failures: tt.failures}
			require.NoError(t, s.AddJob(job))

			res, err := s.RunJob("job")
			require.NoError(t, err)
			if res.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", res.Success, tt.wantSuccess)
			}
			if res.Attempts != tt.wantAttempts {
				t.Errorf("Attempts = %d, want %d", res.Attempts, tt.wantAttempts)
			}
			if !tt.wantSuccess {
				assert.Equal(t, "boom", res.Error)
			}
			assert.Equal(t, 1, testutil.CollectAndCount(reg.JobDuration))
		})
	}
}

func TestRunJobUnknown(t *testing.T) {
	_, err := newTestScheduler(nil).RunJob("missing")
	assert.ErrorContains(t, err, "not found")
}

func TestStats(t *testing.T) {
	s := newTestScheduler(nil)
	require.NoError(t, s.AddJob(&countingJob{name: "b", schedule: "@every 1h"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@every 1h", failures: 10}))

	_, _ = s.RunJob("a")
	_, _ = s.RunJob("b")
	_, _ = s.RunJob("b")

	stats := s.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "a", stats[0].JobName)
	assert.Equal(t, 1, stats[0].FailureCount)
	assert.Equal(t, 0.0, stats[0].SuccessRate)
	assert.Equal(t, "boom", stats[0].LastError)
	assert.Equal(t, 2, stats[1].TotalRuns)
	assert.Equal(t, 1.0, stats[1].SuccessRate)
	assert.NotNil(t, stats[1].LastRun)
}

func TestStopCancelsRetries(t *testing.T) {
	s := New(nil, nil).WithRetry(3, time.Hour)
	require.NoError(t, s.AddJob(&countingJob{name: "slow", schedule: "@every 1h", failures: 10}))
	s.Start()

	done := make(chan JobResult)
	go func() {
		res, _ := s.RunJob("slow")
		done <- res
	}()
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	select {
	case res := <-done:
		assert.False(t, res.Success)
		assert.Equal(t, 1, res.Attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not interrupt the retry wait")
	}
}

func TestRunJobAfterStop(t *testing.T) {
	s := newTestScheduler(nil)
	job := &countingJob{name: "a", schedule: "@every 1h"}
	require.NoError(t, s.AddJob(job))
	s.Start()
	s.Stop()

	_, err := s.RunJob("a")
	assert.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, int32(0), job.calls.Load(), "stopped scheduler runs nothing")
}

func TestStopWaitsForConcurrentRuns(t *testing.T) {
	s := newTestScheduler(nil)
	job := &countingJob{name: "a", schedule: "@every 1h"}
	require.NoError(t, s.AddJob(job))
	s.Start()

	var ran, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.RunJob("a"); errors.Is(err, ErrStopped) {
				rejected.Add(1)
			} else {
				ran.Add(1)
			}
		}()
	}
	s.Stop()
	after := job.calls.Load()
	wg.Wait()

	assert.Equal(t, int32(20), ran.Load()+rejected.Load())
	assert.Equal(t, after, job.calls.Load(), "no run starts once Stop returned")
	assert.Equal(t, ran.Load(), job.calls.Load())
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.SuccessRate())
	assert.Empty(t, h.Latest(3))

	for i := 0; i < historyLimit+5; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, historyLimit)
	assert.Len(t, h.Latest(3), 3)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
}
