package monitor

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/stats"
)

// DefaultRebalanceInterval is the automatic rebalance cycle
const DefaultRebalanceInterval = 7 * 24 * time.Hour

// Rebalancer decides when an automatic rebalance is due
type Rebalancer struct {
	mu       sync.Mutex
	enabled  bool
	interval time.Duration
	last     time.Time
}

// NewRebalancer creates a rebalancer. interval <= 0 uses seven days.
func NewRebalancer(enabled bool, interval time.Duration) *Rebalancer {
	if interval <= 0 {
		interval = DefaultRebalanceInterval
	}
	return &Rebalancer{enabled: enabled, interval: interval}
}

// Enabled reports whether automatic rebalancing is on
func (r *Rebalancer) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// SetEnabled toggles automatic rebalancing
func (r *Rebalancer) SetEnabled(on bool) {
	r.mu.Lock()
	r.enabled = on
	r.mu.Unlock()
}

// Due reports whether a rebalance should run at now. The first call after
// creation is always due while enabled.
func (r *Rebalancer) Due(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return false
	}
	if r.last.IsZero() {
		return true
	}
	return now.Sub(r.last) >= r.interval
}

// DaysLeft is the number of whole days until the next rebalance
func (r *Rebalancer) DaysLeft(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last.IsZero() {
		return 0
	}
	left := r.last.Add(r.interval).Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + 24*time.Hour - 1) / (24 * time.Hour))
}

// Run applies fn when a rebalance is due. A failed fn leaves the portfolio
// untouched and does not advance the schedule.
func (r *Rebalancer) Run(now time.Time, weights map[string]float64, fn func(map[string]float64) (map[string]float64, error)) (map[string]float64, bool, error) {
	if !r.Due(now) {
		return weights, false, nil
	}
	next, err := fn(weights)
	if err != nil {
		return weights, false, fmt.Errorf("rebalance: %w", err)
	}
	r.mu.Lock()
	r.last = now
	r.mu.Unlock()
	return next, true, nil
}

// HedgeThresholds ⭐ SSOT: 비상 회피 트리거 기준
type HedgeThresholds struct {
	VIX         float64 `json:"vix"`          // 이상이면 발동
	KOSPIDrop   float64 `json:"kospi_drop"`   // %, 이하이면 발동
	ExpectedMDD float64 `json:"expected_mdd"` // %, 이하이면 발동
}

// DefaultHedgeThresholds are VIX 25, KOSPI -3%, expected MDD -12%
var DefaultHedgeThresholds = HedgeThresholds{VIX: 25, KOSPIDrop: -3, ExpectedMDD: -12}

// HedgeTrigger checks market stress and returns the emergency allocation
type HedgeTrigger struct {
	th HedgeThresholds
}

// NewHedgeTrigger creates a trigger with the given thresholds
func NewHedgeTrigger(th HedgeThresholds) *HedgeTrigger {
	return &HedgeTrigger{th: th}
}

// Check returns the first tripped condition, in VIX, KOSPI, MDD order
func (h *HedgeTrigger) Check(vix, kospiChangePct, expectedMDD float64) (string, bool) {
	switch {
	case vix >= h.th.VIX:
		return "📉 VIX 급등 감지 → 비상 전략 실행", true
	case kospiChangePct <= h.th.KOSPIDrop:
		return "📉 KOSPI 급락 감지 → 안전자산 전환", true
	case expectedMDD <= h.th.ExpectedMDD:
		return fmt.Sprintf("📉 예상 최대 낙폭 %.1f%% → 전략 일시 중단", expectedMDD), true
	}
	return "", false
}

// EmergencyAllocation is the safe-asset mix used while a hedge is active
func EmergencyAllocation() map[string]float64 {
	return map[string]float64{"cash": 0.4, "gold_etf": 0.3, "usd_etf": 0.3}
}

// Trust levels
const (
	TrustLow    = "🔴 낮음"
	TrustMedium = "🟠 보통"
	TrustHigh   = "🟢 높음"
)

// ErrNoPredictions is returned by a trust report with no records
var ErrNoPredictions = errors.New("no prediction records")

// Prediction pairs a predicted return with the realized one
type Prediction struct {
	Predicted float64 `json:"predicted"`
	Actual    float64 `json:"actual"`
}

// AbsError is |actual - predicted|
func (p Prediction) AbsError() float64 {
	return math.Abs(p.Actual - p.Predicted)
}

// TrustReport summarizes prediction error
type TrustReport struct {
	AvgErrorPct float64 `json:"avg_error_pct"`
	Level       string  `json:"level"`
	Message     string  `json:"message"`
	Score       float64 `json:"score"` // 0~1, AutoController 입력
}

// TrustMonitor accumulates predictions and grades the strategy's reliability
type TrustMonitor struct {
	mu      sync.RWMutex
	records []Prediction
}

// NewTrustMonitor creates an empty monitor
func NewTrustMonitor() *TrustMonitor {
	return &TrustMonitor{}
}

// Record stores one prediction/outcome pair
func (m *TrustMonitor) Record(predicted, actual float64) {
	m.mu.Lock()
	m.records = append(m.records, Prediction{Predicted: predicted, Actual: actual})
	m.mu.Unlock()
}

// Report grades the average absolute error as a percentage of |prediction|.
// A zero prediction is treated as 1e-6.
func (m *TrustMonitor) Report() (TrustReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.records) == 0 {
		return TrustReport{}, ErrNoPredictions
	}

	errs := make([]float64, len(m.records))
	for i, p := range m.records {
		pred := math.Abs(p.Predicted)
		if pred == 0 {
			pred = 1e-6
		}
		errs[i] = p.AbsError() / pred * 100
	}
	avg := stats.Mean(errs)

	r := TrustReport{AvgErrorPct: avg, Score: contracts.Clip(1-avg/100, 0, 1)}
	switch {
	case avg > 20:
		r.Level = TrustLow
		r.Message = fmt.Sprintf("예측 실패율 %.1f%% → 전략 재검토 필요", avg)
	case avg > 10:
		r.Level = TrustMedium
		r.Message = fmt.Sprintf("예측 정확도 저하 (%.1f%%) → 전략 조정 권장", avg)
	default:
		r.Level = TrustHigh
		r.Message = fmt.Sprintf("예측 성능 양호 (오차 %.1f%%)", avg)
	}
	return r, nil
}
