package monitor

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/stats"
	"github.com/wonny/quantlab/pkg/logger"
)

// ZoneThresholds ⭐ SSOT: 비매매 구간 판단 기준
type ZoneThresholds struct {
	Volatility float64 `json:"volatility"` // 시장 변동성 (VIX/100 스케일)
	Condition  float64 `json:"condition"`  // 전략 조건 충족률
	Accuracy   float64 `json:"accuracy"`   // 예측 정확도
}

// DefaultZoneThresholds are 0.25 / 0.6 / 0.55
var DefaultZoneThresholds = ZoneThresholds{Volatility: 0.25, Condition: 0.6, Accuracy: 0.55}

// ZoneResult is a non-action zone verdict
type ZoneResult struct {
	Volatility float64 `json:"volatility"`
	Condition  float64 `json:"condition"`
	Accuracy   float64 `json:"accuracy"`
	Advice     string  `json:"advice"`
	Hold       bool    `json:"hold"` // 매매 보류
}

// NonActionZone decides when not to trade
type NonActionZone struct {
	th ZoneThresholds
}

// NewNonActionZone creates a detector
func NewNonActionZone(th ZoneThresholds) *NonActionZone {
	return &NonActionZone{th: th}
}

// Evaluate holds trading when the market is volatile and the strategy's
// conditions are weak; warns when prediction accuracy is low
func (z *NonActionZone) Evaluate(volatility, condition, accuracy float64) ZoneResult {
	r := ZoneResult{Volatility: volatility, Condition: condition, Accuracy: accuracy}
	switch {
	case volatility > z.th.Volatility && condition < z.th.Condition:
		r.Advice = "❌ 시장 변동성↑ + 조건 불충분 → 매매 보류 권고"
		r.Hold = true
	case accuracy < z.th.Accuracy:
		r.Advice = "⚠️ 예측 정확도 낮음 → 진입 신중 권고"
	default:
		r.Advice = "✅ 매매 가능 구간"
	}
	return r
}

// DefaultOpportunityThreshold is the similarity above which a zone is dense
const DefaultOpportunityThreshold = 0.85

// Pattern is a (macro, technical, sentiment) reading, each in 0~1
type Pattern struct {
	Macro     float64 `json:"macro"`
	Technical float64 `json:"technical"`
	Sentiment float64 `json:"sentiment"`
}

func (p Pattern) vector() []float64 {
	return []float64{p.Macro, p.Technical, p.Sentiment}
}

// Opportunity is the match of the current conditions against past wins
type Opportunity struct {
	Score  float64 `json:"score"`
	Dense  bool    `json:"dense"`
	Advice string  `json:"advice"`
}

// OpportunityMatcher scores current conditions against registered
// successful patterns
type OpportunityMatcher struct {
	mu        sync.RWMutex
	patterns  []Pattern
	threshold float64
}

// NewOpportunityMatcher creates a matcher. threshold <= 0 uses 0.85.
func NewOpportunityMatcher(threshold float64) *OpportunityMatcher {
	if threshold <= 0 {
		threshold = DefaultOpportunityThreshold
	}
	return &OpportunityMatcher{threshold: threshold}
}

// Register adds a past successful pattern
func (m *OpportunityMatcher) Register(p Pattern) {
	m.mu.Lock()
	m.patterns = append(m.patterns, p)
	m.mu.Unlock()
}

// Match is the mean cosine similarity to every registered pattern, rounded
// to three places. No patterns scores 0.
func (m *OpportunityMatcher) Match(cur Pattern) Opportunity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var score float64
	if len(m.patterns) > 0 {
		sims := make([]float64, len(m.patterns))
		for i, p := range m.patterns {
			sims[i] = stats.Cosine(cur.vector(), p.vector())
		}
		score = math.Round(stats.Mean(sims)*1000) / 1000
	}

	o := Opportunity{Score: score, Dense: score > m.threshold}
	if o.Dense {
		o.Advice = fmt.Sprintf("🎯 기회 밀집 스코어 %.3f → 집중 매매 전략 실행 권장", score)
	} else {
		o.Advice = fmt.Sprintf("📉 기회 스코어 %.3f → 보수적 접근 권장", score)
	}
	return o
}

// ControlState is the automation state
type ControlState string

const (
	StateActive    ControlState = "ACTIVE"
	StateSuspended ControlState = "SUSPENDED"
)

// ControlLimits ⭐ SSOT: 자동 중단/재개 기준
type ControlLimits struct {
	VIX          float64 `json:"vix"`           // 초과 시 중단
	Trust        float64 `json:"trust"`         // 미만 시 중단
	ExpectedDays int     `json:"expected_days"` // 재개 예상 일수
	RecoveryProb float64 `json:"recovery_prob"`
}

// DefaultControlLimits are VIX 30, trust 0.4, 3 days at 62%
var DefaultControlLimits = ControlLimits{VIX: 30, Trust: 0.4, ExpectedDays: 3, RecoveryProb: 0.62}

// Transition is one state change of the controller
type Transition struct {
	At     time.Time    `json:"at"`
	From   ControlState `json:"from"`
	To     ControlState `json:"to"`
	Reason string       `json:"reason"`
}

// AutoController suspends automated trading under stress and resumes it
// once VIX and trust are back inside their limits
type AutoController struct {
	mu          sync.Mutex
	state       ControlState
	limits      ControlLimits
	suspendedAt time.Time
	history     []Transition
	logger      *logger.Logger
}

// NewAutoController starts in ACTIVE
func NewAutoController(limits ControlLimits, log *logger.Logger) *AutoController {
	if log == nil {
		log = logger.Nop()
	}
	return &AutoController{
		state:  StateActive,
		limits: limits,
		logger: log.WithComponent("auto-control"),
	}
}

// State returns the current state
func (c *AutoController) State() ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Evaluate feeds one reading and returns the alert for a transition, if any
func (c *AutoController) Evaluate(now time.Time, vix, trust float64) (*contracts.Alert, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var reasons []string
	if vix > c.limits.VIX {
		reasons = append(reasons, fmt.Sprintf("VIX %.1f > %.0f", vix, c.limits.VIX))
	}
	if trust < c.limits.Trust {
		reasons = append(reasons, fmt.Sprintf("신뢰도 %.2f < %.2f", trust, c.limits.Trust))
	}

	switch {
	case c.state == StateActive && len(reasons) > 0:
		c.suspendedAt = now
		c.transition(now, StateSuspended, strings.Join(reasons, ", "))
		a := newAlert(now, "suspend", contracts.LevelCritical,
			"⚠️ 자동 매매 중단 → 조건 충족 시 재개 예정",
			map[string]interface{}{"vix": vix, "trust": trust})
		return &a, true
	case c.state == StateSuspended && len(reasons) == 0:
		c.suspendedAt = time.Time{}
		c.transition(now, StateActive, "조건 회복")
		a := newAlert(now, "resume", contracts.LevelInfo,
			"✅ 자동 매매 재개",
			map[string]interface{}{"vix": vix, "trust": trust})
		return &a, true
	}
	return nil, false
}

func (c *AutoController) transition(now time.Time, to ControlState, reason string) {
	t := Transition{At: now, From: c.state, To: to, Reason: reason}
	c.history = append(c.history, t)
	c.state = to
	c.logger.WithFields(map[string]interface{}{
		"from":   string(t.From),
		"to":     string(t.To),
		"reason": reason,
	}).Info("자동 매매 상태 전환")
}

// History returns every transition, oldest first
func (c *AutoController) History() []Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Transition(nil), c.history...)
}

// ResumeForecast is the expected re-entry while suspended
type ResumeForecast struct {
	Suspended   bool      `json:"suspended"`
	ResumeAt    time.Time `json:"resume_at,omitempty"`
	Probability float64   `json:"probability,omitempty"`
	Message     string    `json:"message"`
}

// Forecast estimates when trading may resume
func (c *AutoController) Forecast() ResumeForecast {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSuspended {
		return ResumeForecast{Message: "전략은 현재 정상 작동 중입니다."}
	}
	return ResumeForecast{
		Suspended:   true,
		ResumeAt:    c.suspendedAt.AddDate(0, 0, c.limits.ExpectedDays),
		Probability: c.limits.RecoveryProb,
		Message: fmt.Sprintf("현재는 비매매 구간입니다. 진입 가능성은 %d일 후 %d%%",
			c.limits.ExpectedDays, int(c.limits.RecoveryProb*100)),
	}
}
