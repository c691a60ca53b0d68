// Package brain wires data sources, analysis modules and storage into the
// operations the API, CLI and scheduler expose.
package brain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/quantlab/internal/backtest"
	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/external/dart"
	"github.com/wonny/quantlab/internal/external/krx"
	"github.com/wonny/quantlab/internal/fundamental"
	"github.com/wonny/quantlab/internal/monitor"
	"github.com/wonny/quantlab/internal/portfolio"
	"github.com/wonny/quantlab/internal/profile"
	"github.com/wonny/quantlab/internal/risk"
	"github.com/wonny/quantlab/internal/signals"
	"github.com/wonny/quantlab/internal/stats"
	"github.com/wonny/quantlab/internal/store"
	"github.com/wonny/quantlab/internal/timing"
	"github.com/wonny/quantlab/pkg/config"
	"github.com/wonny/quantlab/pkg/logger"
	"github.com/wonny/quantlab/pkg/metrics"
)

// KOSPI 평균 멀티플 (섹터 비교 기준)
const (
	marketPER = 11.0
	marketPBR = 1.0
)

// ErrNoStore is returned by operations that need the database
var ErrNoStore = errors.New("store not configured")

// DisclosureSource lists company filings
type DisclosureSource interface {
	FetchDisclosures(ctx context.Context, code string, from, to time.Time) ([]dart.Disclosure, error)
}

// IndexSource quotes a market index
type IndexSource interface {
	FetchIndexQuote(ctx context.Context, index string) (*krx.IndexQuote, error)
}

// Sources are the data feeds. Only Prices and Info are required.
type Sources struct {
	Prices      contracts.PriceSource
	Info        contracts.StockInfoSource
	Flows       contracts.InvestorFlowSource
	Financials  contracts.FinancialSource
	Disclosures DisclosureSource
	Index       IndexSource
}

// Orchestrator coordinates every analysis the service exposes
// ⭐ SSOT: 분석 파이프라인 조율은 여기서만
type Orchestrator struct {
	src       Sources
	store     *store.Store
	profiles  *profile.Builder
	evaluator *signals.Evaluator
	backtest  config.BacktestConfig
	metrics   *metrics.Registry
	logger    *logger.Logger
	now       func() time.Time
}

// NewOrchestrator creates an orchestrator. st may be nil; persistence
// operations then fail with ErrNoStore.
func NewOrchestrator(src Sources, st *store.Store, cfg config.BacktestConfig, reg *metrics.Registry, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		src:       src,
		store:     st,
		profiles:  profile.NewBuilder(src.Prices, src.Info, src.Flows, src.Financials, log),
		evaluator: signals.NewEvaluator(log),
		backtest:  cfg,
		metrics:   reg,
		logger:    log.WithComponent("brain"),
		now:       time.Now,
	}
}

// Store returns the repositories, nil when running without a database
func (o *Orchestrator) Store() *store.Store { return o.store }

// series loads the last months of bars. months should be one of
// contracts.WarmWindows so the read lands on a warmed cache key.
func (o *Orchestrator) series(ctx context.Context, code string, months int) (*contracts.Series, error) {
	to := o.now()
	s, err := o.src.Prices.FetchSeries(ctx, code, to.AddDate(0, -months, 0), to)
	if err != nil {
		return nil, fmt.Errorf("fetch prices %s: %w", code, err)
	}
	return s, nil
}

// Profile runs the basic stock analysis
func (o *Orchestrator) Profile(ctx context.Context, code string) (*profile.Profile, error) {
	return o.profiles.Build(ctx, code, nil)
}

// Fundamental analyses the last years annual reports. PER and PBR are
// derived from the current market cap when the source leaves them empty.
func (o *Orchestrator) Fundamental(ctx context.Context, code string, years int) (*fundamental.Report, error) {
	if o.src.Financials == nil {
		return nil, fmt.Errorf("fundamental %s: no financial source", code)
	}
	if years <= 0 {
		years = 4
	}
	last := o.now().Year() - 1
	rows, err := o.src.Financials.FetchFinancials(ctx, code, last-years+1, last)
	if err != nil {
		return nil, fmt.Errorf("fetch financials %s: %w", code, err)
	}
	if len(rows) > 0 {
		o.fillMultiples(ctx, code, &rows[len(rows)-1])
	}
	return fundamental.Analyze(code, rows, fundamental.SectorMetrics{})
}

func (o *Orchestrator) fillMultiples(ctx context.Context, code string, f *contracts.Financials) {
	if f.PER != 0 && f.PBR != 0 {
		return
	}
	info, err := o.src.Info.FetchStockInfo(ctx, code)
	if err != nil {
		o.logger.WithError(err).WithField("code", code).Warn("market cap unavailable, multiples left empty")
		return
	}
	f.MarketCap = info.MarketCap
	if f.PER == 0 && f.NetIncome != 0 {
		f.PER = info.MarketCap / f.NetIncome
	}
	if f.PBR == 0 && f.TotalEquity != 0 {
		f.PBR = info.MarketCap / f.TotalEquity
	}
}

// Signals runs the integrated valuation, technical and news evaluation
func (o *Orchestrator) Signals(ctx context.Context, code string) (*signals.Report, error) {
	s, err := o.series(ctx, code, contracts.SignalsWindow)
	if err != nil {
		return nil, err
	}

	value := signals.ValueMetrics{SectorPER: marketPER, SectorPBR: marketPBR}
	if rep, err := o.Fundamental(ctx, code, 2); err == nil {
		value.PER, value.PBR = rep.PER, rep.PBR
	} else {
		o.logger.WithError(err).WithField("code", code).Debug("valuation leg without financials")
	}

	var headlines []string
	if o.src.Disclosures != nil {
		to := o.now()
		ds, err := o.src.Disclosures.FetchDisclosures(ctx, code, to.AddDate(0, 0, -30), to)
		if err != nil {
			o.logger.WithError(err).WithField("code", code).Warn("disclosures unavailable")
		}
		for _, h := range dart.Headlines(ds) {
			headlines = append(headlines, h.Title)
		}
	}
	return o.evaluator.Evaluate(s, value, headlines)
}

// Timing runs the entry/exit timing analysis over two years of prices
func (o *Orchestrator) Timing(ctx context.Context, code string, phase timing.Phase) (*timing.Report, error) {
	s, err := o.series(ctx, code, contracts.TimingWindow)
	if err != nil {
		return nil, err
	}
	if phase == "" {
		phase = timing.PhaseNeutral
	}
	return timing.Analyze(ctx, s, phase)
}

func (o *Orchestrator) engine(level contracts.RiskLevel) *backtest.Engine {
	cfg := backtest.DefaultConfig()
	if o.backtest.InitialCapital > 0 {
		cfg.InitialCapital = o.backtest.InitialCapital
	}
	if o.backtest.Commission > 0 {
		cfg.Commission = o.backtest.Commission
	}
	if o.backtest.Slippage > 0 {
		cfg.Slippage = o.backtest.Slippage
	}
	if level != "" {
		cfg.Profile.RiskLevel = level
	}
	return backtest.NewEngine(cfg, o.logger)
}

// Backtest replays a named strategy over years of history
func (o *Orchestrator) Backtest(ctx context.Context, code, strategy string, years int, level contracts.RiskLevel) (*backtest.Result, error) {
	strat, err := backtest.StrategyByName(strategy)
	if err != nil {
		return nil, err
	}
	s, err := o.series(ctx, code, backtestMonths(years))
	if err != nil {
		return nil, err
	}
	return o.engine(level).Run(ctx, s, strat)
}

// backtestMonths snaps a year count onto the nearest warmed window at or
// above it; longer requests read uncached
func backtestMonths(years int) int {
	if years <= 0 {
		return contracts.BacktestWindow
	}
	months := years * 12
	for _, w := range contracts.WarmWindows {
		if months <= w {
			return w
		}
	}
	return months
}

// Universe averages buy-and-hold statistics over codes. Codes that fail to
// load are skipped.
func (o *Orchestrator) Universe(ctx context.Context, strategy string, codes []string, years int) (backtest.UniverseSummary, error) {
	if _, err := backtest.StrategyByName(strategy); err != nil {
		return backtest.UniverseSummary{}, err
	}
	months := backtestMonths(years)

	loaded := make([]*contracts.Series, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, code := range codes {
		g.Go(func() error {
			s, err := o.series(gctx, code, months)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				o.logger.WithError(err).WithField("code", code).Warn("universe member skipped")
				return nil
			}
			loaded[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return backtest.UniverseSummary{}, err
	}
	return backtest.SummarizeUniverse(strategy, loaded)
}

// MassiveRequest configures a scenario sweep
type MassiveRequest struct {
	Code      string          `json:"code"`
	Strategy  string          `json:"strategy"`
	Scenarios int             `json:"scenarios"`
	Seed      int64           `json:"seed"`
	Method    risk.PathMethod `json:"method"`
	Top       int             `json:"top"`
}

// MassiveBacktest sweeps synthetic paths drawn from the stock's own
// returns and stores the run when a database is configured
func (o *Orchestrator) MassiveBacktest(ctx context.Context, req MassiveRequest) (*backtest.Run, error) {
	strat, err := backtest.StrategyByName(req.Strategy)
	if err != nil {
		return nil, err
	}
	if req.Scenarios <= 0 {
		req.Scenarios = o.backtest.Scenarios
	}
	if req.Scenarios <= 0 {
		req.Scenarios = 100
	}
	if req.Method == "" {
		req.Method = risk.MethodBootstrap
	}
	if req.Top <= 0 {
		req.Top = 10
	}

	s, err := o.series(ctx, req.Code, contracts.BacktestWindow)
	if err != nil {
		return nil, err
	}
	history := s.Returns()
	if len(history) < 2 {
		return nil, fmt.Errorf("massive backtest %s: %w", req.Code, backtest.ErrNoData)
	}

	mb := backtest.NewMassiveBacktester(o.engine(""), strat, history, o.backtest.Workers, o.metrics, o.logger)
	results, err := mb.Run(ctx, backtest.GenerateScenarios(req.Scenarios, req.Seed, req.Method))
	if err != nil {
		return nil, err
	}
	run := backtest.NewRun(strat.Name(), results, req.Top)

	if o.store != nil {
		if err := o.store.Backtests.Save(ctx, run); err != nil {
			return nil, err
		}
	}
	o.logger.WithFields(map[string]interface{}{
		"run_id":    run.ID.String(),
		"strategy":  run.Strategy,
		"scenarios": run.Scenarios,
		"failed":    run.Summary.Failed,
	}).Info("Massive backtest finished")
	return &run, nil
}

// PortfolioRequest asks for a recommended basket among codes
type PortfolioRequest struct {
	Mode      portfolio.Mode `json:"mode"`
	Codes     []string       `json:"codes"`
	Size      int            `json:"size"`
	Weighting string         `json:"weighting"` // equal, score_risk, correlation
}

type candidateData struct {
	cand    portfolio.Candidate
	returns []float64
}

// RecommendPortfolio scores each code, picks a basket for the mode and
// weights it. Codes that fail to load are skipped.
func (o *Orchestrator) RecommendPortfolio(ctx context.Context, req PortfolioRequest) (*portfolio.Portfolio, error) {
	if len(req.Codes) == 0 {
		return nil, errors.New("portfolio: no candidate codes")
	}
	if req.Mode == "" {
		req.Mode = portfolio.ModeBalanced
	}

	var (
		mu   sync.Mutex
		data = make(map[string]candidateData, len(req.Codes))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, code := range req.Codes {
		g.Go(func() error {
			cd, err := o.candidate(gctx, code)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				o.logger.WithError(err).WithField("code", code).Warn("candidate skipped")
				return nil
			}
			mu.Lock()
			data[code] = cd
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cands := make([]portfolio.Candidate, 0, len(data))
	for _, code := range req.Codes {
		if cd, ok := data[code]; ok {
			cands = append(cands, cd.cand)
		}
	}
	if len(cands) == 0 {
		return nil, errors.New("portfolio: no candidate could be scored")
	}

	picks, err := portfolio.Recommend(cands, req.Mode, req.Size)
	if err != nil {
		return nil, err
	}

	pcfg := portfolio.DefaultPortfolioConfig()
	if req.Weighting != "" {
		pcfg.WeightingMode = req.Weighting
	}
	var corr [][]float64
	if pcfg.WeightingMode == portfolio.WeightCorrelation {
		cols := make([][]float64, len(picks))
		for i, p := range picks {
			cols[i] = data[p.Code].returns
		}
		corr = stats.CorrelationMatrix(alignTails(cols))
	}
	return portfolio.NewConstructor(pcfg, portfolio.DefaultConstraints(), o.logger).Build(req.Mode, picks, corr)
}

// candidate scores one code: 성과 = 통합 점수, 리스크 = 변동성, 성장 = 매출 성장
func (o *Orchestrator) candidate(ctx context.Context, code string) (candidateData, error) {
	p, err := o.Profile(ctx, code)
	if err != nil {
		return candidateData{}, err
	}
	sig, err := o.Signals(ctx, code)
	if err != nil {
		return candidateData{}, err
	}
	s, err := o.series(ctx, code, contracts.SignalsWindow)
	if err != nil {
		return candidateData{}, err
	}

	c := portfolio.Candidate{
		Code:          code,
		Name:          p.Info.Name,
		Score:         sig.TotalScore,
		Risk:          50,
		Growth:        p.Confidence.Score,
		DividendYield: p.Info.DividendYield * 100,
	}
	if p.Volatility != nil {
		c.Risk = *p.Volatility * 100
	}
	return candidateData{cand: c, returns: s.Returns()}, nil
}

// alignTails cuts every column to the shortest length, keeping the latest values
func alignTails(cols [][]float64) [][]float64 {
	n := math.MaxInt
	for _, c := range cols {
		n = min(n, len(c))
	}
	out := make([][]float64, len(cols))
	for i, c := range cols {
		out[i] = c[len(c)-n:]
	}
	return out
}

// Reading assembles a live monitor snapshot from the user's stored history
// and today's KOSPI move
func (o *Orchestrator) Reading(ctx context.Context, userID string) (monitor.Reading, error) {
	r := monitor.Reading{At: o.now()}
	if o.store == nil {
		return r, ErrNoStore
	}

	hist, err := o.store.History.Recent(ctx, userID)
	if err != nil {
		return r, err
	}
	if len(hist) > 0 {
		values := make([]float64, len(hist))
		returns := make([]float64, len(hist))
		for i, h := range hist {
			values[i], returns[i] = h.Value, h.ReturnPct
		}
		r.ReturnPct = returns[len(returns)-1]
		r.Returns = contracts.PctChange(values)
		r.VolatilityPct = stats.StdDev(returns)
		r.ExpectedMDD = stats.MaxDrawdown(values) * 100

		peak := values[0]
		for _, v := range values {
			peak = max(peak, v)
		}
		if peak > 0 {
			r.DrawdownPct = (values[len(values)-1]/peak - 1) * 100
		}

		if runs, err := o.store.Backtests.Latest(ctx, hist[len(hist)-1].Strategy, 1); err == nil && len(runs) > 0 {
			live := (values[len(values)-1]/values[0] - 1) * 100
			r.BacktestGap = live - runs[0].Summary.MedianReturn*100
		}
	}

	if o.src.Index != nil {
		q, err := o.src.Index.FetchIndexQuote(ctx, "KOSPI")
		if err != nil {
			o.logger.WithError(err).Warn("KOSPI quote unavailable")
		} else {
			r.KOSPIChangePct = q.ChangePct
			if len(hist) > 0 {
				r.TrackingError = math.Abs(r.ReturnPct-q.ChangePct) / 100
			}
		}
	}
	return r, nil
}
