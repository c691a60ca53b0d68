package monitor

import (
	"context"
	"time"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/risk"
	"github.com/wonny/quantlab/pkg/logger"
	"github.com/wonny/quantlab/pkg/metrics"
)

// Reading is one monitoring snapshot of the live strategy and market
type Reading struct {
	At             time.Time `json:"at"`
	VIX            float64   `json:"vix"`
	KOSPIChangePct float64   `json:"kospi_change_pct"`
	ExpectedMDD    float64   `json:"expected_mdd"`   // %
	ReturnPct      float64   `json:"return_pct"`     // 오늘 수익률 %
	VolatilityPct  float64   `json:"volatility_pct"` // 일간 변동성 %
	DrawdownPct    float64   `json:"drawdown_pct"`
	TrackingError  float64   `json:"tracking_error"`
	BacktestGap    float64   `json:"backtest_gap"`      // 실전 - 백테스트, %p
	Returns        []float64 `json:"returns,omitempty"` // 일간 수익률 (소수), 리스크 한도 검사용
	Predicted      *float64  `json:"predicted,omitempty"`
	Actual         *float64  `json:"actual,omitempty"`
}

// Report is the outcome of one evaluation
type Report struct {
	Status       string             `json:"status"` // ok, emergency, suspended
	Alerts       []contracts.Alert  `json:"alerts"`
	Emergency    map[string]float64 `json:"emergency_assets,omitempty"`
	Trust        *TrustReport       `json:"trust,omitempty"`
	State        ControlState       `json:"state"`
	Resume       ResumeForecast     `json:"resume"`
	RebalanceDue bool               `json:"rebalance_due"`
	Summary      string             `json:"summary"`
}

// Monitor runs every live check against a reading and dispatches alerts
type Monitor struct {
	hedge      *HedgeTrigger
	conditions *AlertCondition
	deviation  *RiskDeviationDetector
	limits     *RiskLimitChecker
	trust      *TrustMonitor
	control    *AutoController
	rebalancer *Rebalancer
	dispatcher *Dispatcher
	mode       Mode
	logger     *logger.Logger
}

// New wires a monitor with the default thresholds
func New(mode Mode, rebalancer *Rebalancer, reg *metrics.Registry, log *logger.Logger, notifiers ...contracts.Notifier) *Monitor {
	if log == nil {
		log = logger.Nop()
	}
	if rebalancer == nil {
		rebalancer = NewRebalancer(true, DefaultRebalanceInterval)
	}
	return &Monitor{
		hedge:      NewHedgeTrigger(DefaultHedgeThresholds),
		conditions: NewAlertCondition(),
		deviation:  NewRiskDeviationDetector(DefaultDeviationThresholds),
		limits:     NewRiskLimitChecker(risk.DefaultRiskLimits()),
		trust:      NewTrustMonitor(),
		control:    NewAutoController(DefaultControlLimits, log),
		rebalancer: rebalancer,
		dispatcher: NewDispatcher(reg, log, notifiers...),
		mode:       mode,
		logger:     log.WithComponent("monitor"),
	}
}

// Controller exposes the auto-control state machine
func (m *Monitor) Controller() *AutoController { return m.control }

// Rebalancer exposes the rebalance schedule
func (m *Monitor) Rebalancer() *Rebalancer { return m.rebalancer }

// Evaluate checks the hedge trigger first; a tripped hedge short-circuits to
// the emergency allocation. Otherwise alert conditions, deviation, risk
// limits and auto-control run and every alert is dispatched.
func (m *Monitor) Evaluate(ctx context.Context, r Reading) (*Report, error) {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	rep := &Report{Status: "ok"}

	if r.Predicted != nil && r.Actual != nil {
		m.trust.Record(*r.Predicted, *r.Actual)
	}
	trustScore := 1.0
	if tr, err := m.trust.Report(); err == nil {
		rep.Trust = &tr
		trustScore = tr.Score
	}

	if msg, hit := m.hedge.Check(r.VIX, r.KOSPIChangePct, r.ExpectedMDD); hit {
		rep.Status = "emergency"
		rep.Emergency = EmergencyAllocation()
		rep.Alerts = append(rep.Alerts, newAlert(r.At, "hedge", contracts.LevelCritical, msg,
			map[string]interface{}{"vix": r.VIX, "kospi_change_pct": r.KOSPIChangePct, "expected_mdd": r.ExpectedMDD}))
	} else {
		rep.Alerts = append(rep.Alerts, m.conditions.Evaluate(r.At, r.ReturnPct, r.VolatilityPct)...)
		rep.Alerts = append(rep.Alerts, m.deviation.Check(r.At, r.TrackingError, r.DrawdownPct, r.BacktestGap)...)
		rep.Alerts = append(rep.Alerts, m.limits.Check(r.At, r.Returns)...)
	}

	if a, changed := m.control.Evaluate(r.At, r.VIX, trustScore); changed {
		rep.Alerts = append(rep.Alerts, *a)
	}
	rep.State = m.control.State()
	rep.Resume = m.control.Forecast()
	if rep.State == StateSuspended && rep.Status == "ok" {
		rep.Status = "suspended"
	}

	rep.RebalanceDue = rep.State == StateActive && m.rebalancer.Due(r.At)
	summary, err := Summary(m.mode, r.ReturnPct, r.DrawdownPct, m.rebalancer.DaysLeft(r.At))
	if err != nil {
		return nil, err
	}
	rep.Summary = summary

	if err := m.dispatcher.Dispatch(ctx, rep.Alerts...); err != nil {
		m.logger.WithError(err).Warn("일부 알림 전송 실패")
	}
	return rep, nil
}
