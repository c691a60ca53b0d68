package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/quantlab/pkg/logger"
	"github.com/wonny/quantlab/pkg/metrics"
)

// ErrStopped is returned by RunJob once Stop has been called
var ErrStopped = errors.New("scheduler stopped")

// Scheduler runs jobs on cron schedules in KST
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	metrics *metrics.Registry
	jobs    map[string]Job
	entries map[string]cron.EntryID
	history map[string]*JobHistory
	mu      sync.RWMutex

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool // mu 보호, true 이후 wg.Add 금지

	maxRetries int
	retryDelay time.Duration
}

// New creates a scheduler. Jobs run in Asia/Seoul (UTC+9 when tzdata is missing).
func New(reg *metrics.Registry, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.FixedZone("KST", 9*60*60)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		logger:     log.WithComponent("scheduler"),
		metrics:    reg,
		jobs:       make(map[string]Job),
		entries:    make(map[string]cron.EntryID),
		history:    make(map[string]*JobHistory),
		ctx:        ctx,
		cancel:     cancel,
		maxRetries: 3,
		retryDelay: 1 * time.Minute,
	}
}

// WithRetry sets how often a failed run is retried and the pause between tries
func (s *Scheduler) WithRetry(maxRetries int, delay time.Duration) *Scheduler {
	s.maxRetries = maxRetries
	s.retryDelay = delay
	return s
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() {
		if !s.acquire() {
			return
		}
		defer s.wg.Done()
		s.runJob(job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.entries[name] = id
	s.history[name] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")
	return nil
}

// RemoveJob unschedules a job
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.entries[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	s.cron.Remove(id)
	delete(s.jobs, name)
	delete(s.entries, name)

	s.logger.WithField("job", name).Info("Job removed from scheduler")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return. Later RunJob
// calls fail with ErrStopped.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	stopped := s.cron.Stop()
	s.cancel()
	<-stopped.Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// acquire registers a run with the wait group unless Stop has begun.
// Add and the stopped check share mu so Stop's Wait never races an Add.
func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

// RunJob runs a job immediately and waits for it
func (s *Scheduler) RunJob(name string) (JobResult, error) {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()
	if !exists {
		return JobResult{}, fmt.Errorf("job %s not found", name)
	}
	if !s.acquire() {
		return JobResult{}, fmt.Errorf("run %s: %w", name, ErrStopped)
	}
	defer s.wg.Done()
	return s.runJob(job), nil
}

// runJob executes a job with retry logic. Callers hold a wait group slot.
func (s *Scheduler) runJob(job Job) JobResult {
	name := job.Name()
	start := time.Now()
	s.logger.WithField("job", name).Info("Job started")

	result := JobResult{JobName: name, StartTime: start}
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 && s.ctx.Err() != nil {
			break
		}
		result.Attempts = attempt + 1
		err := job.Run(s.ctx)
		if err == nil {
			result.Success = true
			break
		}
		lastErr = err
		if s.ctx.Err() != nil {
			break
		}

		s.logger.WithError(err).WithFields(map[string]interface{}{
			"job":     name,
			"attempt": attempt + 1,
		}).Warn("Job execution failed, retrying")

		if attempt < s.maxRetries {
			select {
			case <-time.After(s.retryDelay):
			case <-s.ctx.Done():
			}
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(start)
	if !result.Success && lastErr != nil {
		result.Error = lastErr.Error()
	}
	s.metrics.ObserveJob(name, result.Duration)

	s.mu.Lock()
	if h, ok := s.history[name]; ok {
		h.AddResult(result)
	}
	s.mu.Unlock()

	log := s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"duration": result.Duration,
		"attempts": result.Attempts,
	})
	if result.Success {
		log.Info("Job completed successfully")
	} else {
		log.WithError(lastErr).Error("Job failed after all retries")
	}
	return result
}

// JobStats summarises one job's history
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// Stats returns statistics for all jobs, sorted by name
func (s *Scheduler) Stats() []JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStats, 0, len(s.jobs))
	for name, job := range s.jobs {
		h := s.history[name]
		st := JobStats{
			JobName:     name,
			Schedule:    job.Schedule(),
			TotalRuns:   len(h.Results),
			SuccessRate: h.SuccessRate(),
		}
		for _, r := range h.Results {
			if !r.Success {
				st.FailureCount++
			}
		}
		if last := h.Latest(1); len(last) == 1 {
			st.LastRun = &last[0].StartTime
			st.LastError = last[0].Error
		}
		if next := s.cron.Entry(s.entries[name]).Next; !next.IsZero() {
			st.NextRun = &next
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobName < out[j].JobName })
	return out
}
