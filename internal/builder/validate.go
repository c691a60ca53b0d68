package builder

import (
	"fmt"
	"math"
	"strings"
)

// ValidationError 검증 실패 (저장 거부)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Suggestion is an advisory fix; it never blocks saving
type Suggestion struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// valueRange 지표별 허용 범위
type valueRange struct{ min, max float64 }

// ranges ⭐ SSOT: 지표별 유효 범위
var ranges = map[Indicator]valueRange{
	RSI:      {0, 100},
	MARatio:  {0, 3},
	PER:      {0, 300},
	PBR:      {0, 50},
	ROE:      {-100, 100},
	Momentum: {-100, 300},
}

// maxLogicDepth 진입 조건이 이 수 이상이면 과최적화 경고
const maxLogicDepth = 4

func validOp(op Op) bool {
	switch op {
	case OpLT, OpLE, OpGT, OpGE, OpEQ:
		return true
	}
	return false
}

// Validate checks that a definition can be saved and evaluated
func Validate(d *Definition) error {
	if strings.TrimSpace(d.Name) == "" {
		return ValidationError{"name", "required"}
	}
	if d.EntryLogic != LogicAnd && d.EntryLogic != LogicOr {
		return ValidationError{"entry_logic", "must be 'and' or 'or'"}
	}
	if len(d.Entry) == 0 {
		return ValidationError{"entry", "at least one condition required"}
	}

	for i, c := range d.Entry {
		if err := validateCondition(c); err != nil {
			return ValidationError{fmt.Sprintf("entry[%d]", i), err.Error()}
		}
	}
	for i, c := range d.Exit {
		if err := validateCondition(c); err != nil {
			return ValidationError{fmt.Sprintf("exit[%d]", i), err.Error()}
		}
	}

	if d.EntryLogic == LogicAnd {
		if ind, ok := firstConflict(d.Entry); ok {
			return ValidationError{"entry", fmt.Sprintf("conditions on %s can never hold together", ind)}
		}
	}

	if d.TargetReturn < 1 || d.TargetReturn > 100 {
		return ValidationError{"target_return_pct", "must be in [1, 100]"}
	}
	if d.MaxDrawdown < 1 || d.MaxDrawdown > 50 {
		return ValidationError{"max_drawdown_pct", "must be in [1, 50]"}
	}
	if d.StopLoss < 0 || d.StopLoss > d.MaxDrawdown {
		return ValidationError{"stop_loss_pct", "must be in [0, max_drawdown_pct]"}
	}
	return nil
}

func validateCondition(c Condition) error {
	r, ok := ranges[c.Indicator]
	if !ok {
		return fmt.Errorf("unknown indicator %q", c.Indicator)
	}
	if !validOp(c.Op) {
		return fmt.Errorf("unknown operator %q", c.Op)
	}
	if c.Value < r.min || c.Value > r.max {
		return fmt.Errorf("%s value %.4g outside [%g, %g]", c.Indicator, c.Value, r.min, r.max)
	}
	return nil
}

// bound is the feasible interval implied by AND-ed conditions on one indicator
type bound struct {
	lo, hi             float64
	loStrict, hiStrict bool
}

func (b bound) empty() bool {
	return b.lo > b.hi || (b.lo == b.hi && (b.loStrict || b.hiStrict))
}

func (b *bound) apply(c Condition) {
	switch c.Op {
	case OpLT, OpLE:
		if c.Value < b.hi || (c.Value == b.hi && c.Op == OpLT) {
			b.hi, b.hiStrict = c.Value, c.Op == OpLT
		}
	case OpGT, OpGE:
		if c.Value > b.lo || (c.Value == b.lo && c.Op == OpGT) {
			b.lo, b.loStrict = c.Value, c.Op == OpGT
		}
	case OpEQ:
		b.apply(Condition{c.Indicator, OpLE, c.Value})
		b.apply(Condition{c.Indicator, OpGE, c.Value})
	}
}

// firstConflict returns the first indicator whose AND-ed conditions are unsatisfiable
func firstConflict(conds []Condition) (Indicator, bool) {
	bounds := make(map[Indicator]*bound)
	var order []Indicator
	for _, c := range conds {
		b, ok := bounds[c.Indicator]
		if !ok {
			b = &bound{lo: math.Inf(-1), hi: math.Inf(1)}
			bounds[c.Indicator] = b
			order = append(order, c.Indicator)
		}
		b.apply(c)
	}
	for _, ind := range order {
		if bounds[ind].empty() {
			return ind, true
		}
	}
	return "", false
}

// Suggest lists fixes for conflicting or out-of-range conditions and for
// risky settings. It works on definitions that fail Validate too.
func Suggest(d *Definition) []Suggestion {
	var out []Suggestion

	for _, conds := range [][]Condition{d.Entry, d.Exit} {
		for _, c := range conds {
			r, ok := ranges[c.Indicator]
			if !ok {
				out = append(out, Suggestion{"UNKNOWN_INDICATOR", fmt.Sprintf("%s 지표는 지원되지 않습니다. RSI, MA_RATIO, PER, PBR, ROE, MOMENTUM 중에서 선택하세요.", c.Indicator)})
				continue
			}
			if c.Value < r.min || c.Value > r.max {
				fixed := math.Max(r.min, math.Min(r.max, c.Value))
				out = append(out, Suggestion{"OUT_OF_RANGE", fmt.Sprintf("'%s' 값이 범위를 벗어났습니다 → %s %s %g 로 조정하세요.", c, c.Indicator, c.Op, fixed)})
			}
		}
	}

	if d.EntryLogic != LogicOr {
		if ind, ok := firstConflict(d.Entry); ok {
			out = append(out, Suggestion{"CONFLICT", fmt.Sprintf("%s 조건이 서로 모순됩니다 → 하나를 제거하거나 entry_logic 을 'or' 로 바꾸세요.", ind)})
		}
	}
	if len(d.Entry) >= maxLogicDepth {
		out = append(out, Suggestion{"COMPLEX", "진입 조건이 너무 복잡합니다 → 과최적화 위험이 있습니다."})
	}
	if len(d.Exit) == 0 && d.StopLoss == 0 {
		out = append(out, Suggestion{"NO_STOP", "Stop loss 조건 추가를 고려해보세요."})
	}
	if d.TargetReturn > 30 && d.MaxDrawdown < 10 {
		out = append(out, Suggestion{"TIGHT_DRAWDOWN", "수익률 목표 대비 손실 허용 폭이 너무 작을 수 있습니다."})
	}
	return out
}
