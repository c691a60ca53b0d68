package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/quantlab/internal/brain"
	"github.com/wonny/quantlab/internal/monitor"
	"github.com/wonny/quantlab/internal/portfolio"
	"github.com/wonny/quantlab/pkg/logger"
)

// PortfolioSource recommends a weighted basket
type PortfolioSource interface {
	RecommendPortfolio(ctx context.Context, req brain.PortfolioRequest) (*portfolio.Portfolio, error)
}

// TargetSaver persists a recommended basket
type TargetSaver interface {
	Save(ctx context.Context, p *portfolio.Portfolio) error
}

// RebalanceJob checks the rebalance schedule every trading morning and, when
// due, rebuilds the target weights from a fresh recommendation
type RebalanceJob struct {
	portfolios PortfolioSource
	rebalancer *monitor.Rebalancer
	mode       portfolio.Mode
	codes      func(ctx context.Context) ([]string, error)
	targets    TargetSaver // nil: 메모리에만 보관
	logger     *logger.Logger
	now        func() time.Time

	mu      sync.RWMutex
	weights map[string]float64
}

// NewRebalanceJob creates a new rebalance job. codes supplies the candidate
// universe at run time.
func NewRebalanceJob(portfolios PortfolioSource, rebalancer *monitor.Rebalancer, mode portfolio.Mode, codes func(ctx context.Context) ([]string, error), log *logger.Logger) *RebalanceJob {
	if log == nil {
		log = logger.Nop()
	}
	return &RebalanceJob{
		portfolios: portfolios,
		rebalancer: rebalancer,
		mode:       mode,
		codes:      codes,
		logger:     log.WithComponent("rebalance_job"),
		now:        time.Now,
		weights:    map[string]float64{},
	}
}

// WithTargets saves every adopted recommendation
func (j *RebalanceJob) WithTargets(t TargetSaver) *RebalanceJob {
	j.targets = t
	return j
}

// Name returns the job name
func (j *RebalanceJob) Name() string {
	return "rebalance"
}

// Schedule returns the cron schedule (평일 08:30, 장 시작 전)
func (j *RebalanceJob) Schedule() string {
	return "0 30 8 * * 1-5"
}

// Weights returns a copy of the current target weights
func (j *RebalanceJob) Weights() map[string]float64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make(map[string]float64, len(j.weights))
	for k, v := range j.weights {
		out[k] = v
	}
	return out
}

// Run executes the rebalance job
func (j *RebalanceJob) Run(ctx context.Context) error {
	now := j.now()
	if !j.rebalancer.Due(now) {
		j.logger.WithField("days_left", j.rebalancer.DaysLeft(now)).Debug("Rebalance not due")
		return nil
	}

	var rec *portfolio.Portfolio
	next, done, err := j.rebalancer.Run(now, j.Weights(), func(cur map[string]float64) (map[string]float64, error) {
		codes, err := j.codes(ctx)
		if err != nil {
			return nil, fmt.Errorf("candidates: %w", err)
		}
		if len(codes) == 0 {
			return nil, errors.New("no candidates")
		}
		p, err := j.portfolios.RecommendPortfolio(ctx, brain.PortfolioRequest{Mode: j.mode, Codes: codes})
		if err != nil {
			return nil, err
		}
		rec = p
		w := make(map[string]float64, len(p.Positions)+1)
		for _, pos := range p.Positions {
			w[pos.Code] = pos.Weight
		}
		if p.Cash > 0 {
			w["CASH"] = p.Cash
		}
		return w, nil
	})
	if err != nil {
		return err
	}
	if !done {
		return nil
	}

	j.mu.Lock()
	j.weights = next
	j.mu.Unlock()

	if j.targets != nil && rec != nil {
		if err := j.targets.Save(ctx, rec); err != nil {
			return fmt.Errorf("save target: %w", err)
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"mode":      j.mode,
		"positions": len(next),
	}).Info("Portfolio rebalanced")
	return nil
}
