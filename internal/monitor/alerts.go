package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/risk"
	"github.com/wonny/quantlab/pkg/logger"
	"github.com/wonny/quantlab/pkg/metrics"
)

// alertLogLimit bounds the in-memory alert history
const alertLogLimit = 200

// AlertCondition fires on user-configurable loss and volatility levels
type AlertCondition struct {
	LossPct       float64 `json:"loss_pct"`       // 수익률 %, 이하이면 경고
	VolatilityPct float64 `json:"volatility_pct"` // 일간 변동성 %, 이상이면 경고

	mu  sync.Mutex
	log []contracts.Alert
}

// NewAlertCondition creates a condition with the default -5% / 3% levels
func NewAlertCondition() *AlertCondition {
	return &AlertCondition{LossPct: -5, VolatilityPct: 3}
}

// Evaluate returns an alert for every tripped level and records them
func (c *AlertCondition) Evaluate(now time.Time, returnPct, volatilityPct float64) []contracts.Alert {
	var out []contracts.Alert
	if returnPct <= c.LossPct {
		out = append(out, newAlert(now, "loss", contracts.LevelWarning,
			fmt.Sprintf("📉 손실 경고: 수익률 %.2f%%", returnPct),
			map[string]interface{}{"return_pct": returnPct}))
	}
	if volatilityPct >= c.VolatilityPct {
		out = append(out, newAlert(now, "volatility", contracts.LevelWarning,
			fmt.Sprintf("⚠️ 변동성 경고: 변동성 %.2f%%", volatilityPct),
			map[string]interface{}{"volatility_pct": volatilityPct}))
	}

	c.mu.Lock()
	c.log = append(c.log, out...)
	if len(c.log) > alertLogLimit {
		c.log = c.log[len(c.log)-alertLogLimit:]
	}
	c.mu.Unlock()
	return out
}

// Recent returns up to n of the latest recorded alerts, oldest first
func (c *AlertCondition) Recent(n int) []contracts.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || n > len(c.log) {
		n = len(c.log)
	}
	return append([]contracts.Alert(nil), c.log[len(c.log)-n:]...)
}

// DeviationThresholds ⭐ SSOT: 실전 vs 백테스트 괴리 기준
type DeviationThresholds struct {
	TrackingError float64 `json:"tracking_error"` // 초과
	DrawdownPct   float64 `json:"drawdown_pct"`   // 이하
	BacktestGap   float64 `json:"backtest_gap"`   // %p, 이하
}

// DefaultDeviationThresholds are TE 0.08, drawdown -15%, gap -10%p
var DefaultDeviationThresholds = DeviationThresholds{TrackingError: 0.08, DrawdownPct: -15, BacktestGap: -10}

// RiskDeviationDetector flags a live strategy drifting from its backtest
type RiskDeviationDetector struct {
	th DeviationThresholds
}

// NewRiskDeviationDetector creates a detector
func NewRiskDeviationDetector(th DeviationThresholds) *RiskDeviationDetector {
	return &RiskDeviationDetector{th: th}
}

// Check evaluates every threshold; drawdown breaches are critical
func (d *RiskDeviationDetector) Check(now time.Time, trackingError, drawdownPct, backtestGap float64) []contracts.Alert {
	var out []contracts.Alert
	if trackingError > d.th.TrackingError {
		out = append(out, newAlert(now, "deviation", contracts.LevelWarning,
			"⚠️ 전략 괴리율 급등 → 추적 오류 가능성",
			map[string]interface{}{"tracking_error": trackingError}))
	}
	if drawdownPct <= d.th.DrawdownPct {
		out = append(out, newAlert(now, "drawdown", contracts.LevelCritical,
			fmt.Sprintf("❗누적 손실 %.2f%% → 전략 위험군 지정", drawdownPct),
			map[string]interface{}{"drawdown_pct": drawdownPct}))
	}
	if backtestGap <= d.th.BacktestGap {
		out = append(out, newAlert(now, "backtest_gap", contracts.LevelWarning,
			"📉 실전 수익률이 백테스트 대비 현저히 낮음",
			map[string]interface{}{"backtest_gap": backtestGap}))
	}
	return out
}

// limitMinSamples is the fewest daily returns a limit check runs on
const limitMinSamples = 20

// RiskLimitChecker flags live daily returns breaching the VaR, CVaR or
// drawdown limits
type RiskLimitChecker struct {
	engine *risk.Engine
	limits risk.RiskLimits
}

// NewRiskLimitChecker creates a checker for limits
func NewRiskLimitChecker(limits risk.RiskLimits) *RiskLimitChecker {
	return &RiskLimitChecker{engine: risk.NewEngine(), limits: limits}
}

// Check returns one alert per violated limit. Short histories are skipped.
func (c *RiskLimitChecker) Check(now time.Time, returns []float64) []contracts.Alert {
	if len(returns) < limitMinSamples {
		return nil
	}
	res := c.engine.CheckLimits(returns, c.limits)
	if res.Passed {
		return nil
	}
	data := map[string]interface{}{"var_95": res.VaR95, "cvar_95": res.CVaR95, "drawdown": res.Drawdown}
	out := make([]contracts.Alert, 0, len(res.Violations))
	for _, v := range res.Violations {
		out = append(out, newAlert(now, "risk_limit", contracts.LevelWarning, "🚨 리스크 한도 초과: "+v, data))
	}
	return out
}

// Mode selects the summary register
type Mode string

const (
	ModeBeginner Mode = "초심자"
	ModeExpert   Mode = "전문가"
)

// ErrUnknownMode is returned for a mode other than beginner or expert
var ErrUnknownMode = errors.New("알 수 없는 모드입니다")

// Summary renders the daily status in the user's register
func Summary(mode Mode, todayReturn, drawdown float64, rebalanceDaysLeft int) (string, error) {
	switch mode {
	case ModeBeginner:
		return fmt.Sprintf("오늘 전략 수익률은 %.2f%%입니다. 누적 손실은 %.2f%%이며, 다음 리밸런싱은 %d일 후입니다.",
			todayReturn, drawdown, rebalanceDaysLeft), nil
	case ModeExpert:
		return fmt.Sprintf("[요약] %+.2f%% | DD: %.2f%% | Rebal T-%d일", todayReturn, drawdown, rebalanceDaysLeft), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// Dispatcher fans alerts out to every notifier
type Dispatcher struct {
	notifiers []contracts.Notifier
	metrics   *metrics.Registry
	logger    *logger.Logger
}

// NewDispatcher creates a dispatcher. Nil notifiers are skipped.
func NewDispatcher(reg *metrics.Registry, log *logger.Logger, notifiers ...contracts.Notifier) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	d := &Dispatcher{metrics: reg, logger: log.WithComponent("alert-dispatcher")}
	for _, n := range notifiers {
		if n != nil {
			d.notifiers = append(d.notifiers, n)
		}
	}
	return d
}

// Dispatch delivers each alert to every notifier. A failing notifier does
// not stop delivery to the rest; all errors are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, alerts ...contracts.Alert) error {
	var errs []error
	for _, a := range alerts {
		d.metrics.ObserveAlert(a.Kind, a.Level)
		d.logger.WithFields(map[string]interface{}{
			"kind":  a.Kind,
			"level": a.Level,
		}).Info(a.Message)

		for _, n := range d.notifiers {
			if err := n.Notify(ctx, a); err != nil {
				d.logger.WithError(err).WithField("alert_id", a.ID).Warn("알림 전송 실패")
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func newAlert(now time.Time, kind, level, msg string, details map[string]interface{}) contracts.Alert {
	return contracts.Alert{
		ID:      uuid.NewString(),
		FiredAt: now,
		Kind:    kind,
		Level:   level,
		Message: msg,
		Details: details,
	}
}
