package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/pkg/logger"
)

// UniverseSource lists the largest listed stocks of a market
type UniverseSource interface {
	Universe(ctx context.Context, market string, n int) ([]contracts.StockInfo, error)
}

// DefaultWindows are the lookbacks (months) the analyses read
var DefaultWindows = contracts.WarmWindows

// PriceCollectionJob warms the price cache for the market-cap universe after
// the close so daytime analyses hit Redis instead of Naver
type PriceCollectionJob struct {
	universe UniverseSource
	prices   contracts.PriceSource
	markets  []string
	topN     int
	workers  int
	windows  []int
	gate     *QualityGate
	logger   *logger.Logger
	now      func() time.Time
}

// NewPriceCollectionJob creates a new price collection job. prices is
// normally a store.PriceCache so every fetch lands in Redis.
func NewPriceCollectionJob(universe UniverseSource, prices contracts.PriceSource, markets []string, topN, workers int, log *logger.Logger) *PriceCollectionJob {
	if log == nil {
		log = logger.Nop()
	}
	return &PriceCollectionJob{
		universe: universe,
		prices:   prices,
		markets:  markets,
		topN:     topN,
		workers:  max(workers, 1),
		windows:  DefaultWindows,
		logger:   log.WithComponent("price_collection_job"),
		now:      time.Now,
	}
}

// WithQualityGate fails runs whose collected series score below the gate
func (j *PriceCollectionJob) WithQualityGate(g *QualityGate) *PriceCollectionJob {
	j.gate = g
	return j
}

// Name returns the job name
func (j *PriceCollectionJob) Name() string {
	return "price_collection"
}

// Schedule returns the cron schedule (평일 16:00, 장 마감 후)
func (j *PriceCollectionJob) Schedule() string {
	return "0 0 16 * * 1-5"
}

// FetchResult is the outcome for one stock
type FetchResult struct {
	Code   string
	Series int
	Error  error

	longest *contracts.Series
}

// Run executes the price collection job
func (j *PriceCollectionJob) Run(ctx context.Context) error {
	var codes []string
	seen := make(map[string]bool)
	for _, m := range j.markets {
		stocks, err := j.universe.Universe(ctx, m, j.topN)
		if err != nil {
			return fmt.Errorf("universe %s: %w", m, err)
		}
		for _, s := range stocks {
			if !seen[s.Code] {
				seen[s.Code] = true
				codes = append(codes, s.Code)
			}
		}
	}
	if len(codes) == 0 {
		return errors.New("empty universe")
	}

	j.logger.WithFields(map[string]interface{}{
		"stock_count": len(codes),
		"workers":     j.workers,
	}).Info("Starting price collection")

	results := j.collect(ctx, codes)

	success, failed := 0, 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		} else {
			success++
		}
	}
	j.logger.WithFields(map[string]interface{}{
		"success": success,
		"failed":  failed,
	}).Info("Price collection completed")

	if success == 0 {
		return fmt.Errorf("price collection failed for all %d stocks", failed)
	}
	if j.gate == nil {
		return nil
	}

	collected := make(map[string]*contracts.Series, len(results))
	for _, r := range results {
		collected[r.Code] = r.longest
	}
	snap := j.gate.Check(j.now(), collected)
	j.logger.WithFields(map[string]interface{}{
		"score": snap.QualityScore,
		"valid": snap.ValidStocks,
		"total": snap.TotalStocks,
	}).Info("Quality snapshot")
	return j.gate.Passed(snap)
}

func (j *PriceCollectionJob) collect(ctx context.Context, codes []string) []FetchResult {
	codeCh := make(chan string, len(codes))
	resultCh := make(chan FetchResult, len(codes))

	var wg sync.WaitGroup
	for i := 0; i < j.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			j.worker(ctx, workerID, codeCh, resultCh)
		}(i)
	}

	for _, c := range codes {
		codeCh <- c
	}
	close(codeCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]FetchResult, 0, len(codes))
	for r := range resultCh {
		results = append(results, r)
	}
	return results
}

func (j *PriceCollectionJob) worker(ctx context.Context, workerID int, codeCh <-chan string, resultCh chan<- FetchResult) {
	to := j.now()
	for code := range codeCh {
		if ctx.Err() != nil {
			resultCh <- FetchResult{Code: code, Error: ctx.Err()}
			continue
		}

		res := FetchResult{Code: code}
		for _, months := range j.windows {
			s, err := j.prices.FetchSeries(ctx, code, to.AddDate(0, -months, 0), to)
			if err != nil {
				j.logger.WithError(err).WithFields(map[string]interface{}{
					"worker": workerID,
					"code":   code,
					"months": months,
				}).Warn("Failed to fetch prices")
				res.Error = err
				break
			}
			res.Series++
			res.longest = s
		}
		resultCh <- res
	}
}
