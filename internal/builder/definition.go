package builder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/indicators"
)

// Indicator is a value a condition can test
type Indicator string

const (
	RSI      Indicator = "RSI"
	MARatio  Indicator = "MA_RATIO" // 종가 / 20일 이동평균
	PER      Indicator = "PER"
	PBR      Indicator = "PBR"
	ROE      Indicator = "ROE"      // %
	Momentum Indicator = "MOMENTUM" // 20일 수익률 %
)

// Op is a comparison operator
type Op string

const (
	OpLT Op = "<"
	OpLE Op = "<="
	OpGT Op = ">"
	OpGE Op = ">="
	OpEQ Op = "=="
)

// Logic joins entry conditions
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// Condition is one "indicator op value" test
type Condition struct {
	Indicator Indicator `yaml:"indicator" json:"indicator"`
	Op        Op        `yaml:"op" json:"op"`
	Value     float64   `yaml:"value" json:"value"`
}

// String renders the condition as "RSI < 30"
func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Indicator, c.Op, strconv.FormatFloat(c.Value, 'f', -1, 64))
}

// Holds reports whether v satisfies the condition
func (c Condition) Holds(v float64) bool {
	switch c.Op {
	case OpLT:
		return v < c.Value
	case OpLE:
		return v <= c.Value
	case OpGT:
		return v > c.Value
	case OpGE:
		return v >= c.Value
	case OpEQ:
		return v == c.Value
	}
	return false
}

// ParseCondition parses "RSI < 30"; indicator names are case-insensitive
func ParseCondition(s string) (Condition, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return Condition{}, fmt.Errorf("condition %q: want 'indicator op value'", s)
	}
	v, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Condition{}, fmt.Errorf("condition %q: %w", s, err)
	}
	c := Condition{
		Indicator: Indicator(strings.ToUpper(fields[0])),
		Op:        Op(fields[1]),
		Value:     v,
	}
	if _, ok := ranges[c.Indicator]; !ok {
		return Condition{}, ValidationError{"indicator", fmt.Sprintf("unknown indicator %q", fields[0])}
	}
	if !validOp(c.Op) {
		return Condition{}, ValidationError{"op", fmt.Sprintf("unknown operator %q", fields[1])}
	}
	return c, nil
}

// Definition is a user-built strategy
// ⭐ SSOT: custom_strategies.definition 에 YAML 로 저장
type Definition struct {
	Name         string      `yaml:"name" json:"name"`
	Owner        string      `yaml:"owner" json:"owner"`
	Description  string      `yaml:"description,omitempty" json:"description,omitempty"`
	EntryLogic   Logic       `yaml:"entry_logic" json:"entry_logic"`
	Entry        []Condition `yaml:"entry" json:"entry"`
	Exit         []Condition `yaml:"exit" json:"exit"` // 하나라도 만족하면 청산
	TargetReturn float64     `yaml:"target_return_pct" json:"target_return_pct"`
	MaxDrawdown  float64     `yaml:"max_drawdown_pct" json:"max_drawdown_pct"`
	StopLoss     float64     `yaml:"stop_loss_pct,omitempty" json:"stop_loss_pct,omitempty"` // 0 = 없음
}

// Snapshot is the current value of each indicator for one stock
type Snapshot map[Indicator]float64

// SnapshotFrom computes the builder indicators from prices and the latest
// statement. fin may be nil, leaving PER/PBR/ROE absent.
func SnapshotFrom(s *contracts.Series, fin *contracts.Financials) Snapshot {
	snap := Snapshot{}
	if s != nil && s.Len() > 0 {
		closes := s.Closes()
		last := closes[len(closes)-1]
		if len(closes) > 14 {
			snap[RSI] = indicators.Last(indicators.RSI(closes, 14), 50)
		}
		if len(closes) > 20 {
			if ma := indicators.Last(indicators.SMA(closes, 20), 0); ma > 0 {
				snap[MARatio] = last / ma
			}
			if prev := closes[len(closes)-21]; prev > 0 {
				snap[Momentum] = (last/prev - 1) * 100
			}
		}
	}
	if fin != nil {
		snap[PER] = fin.PER
		snap[PBR] = fin.PBR
		snap[ROE] = fin.ROE() * 100
	}
	return snap
}

// Decision is the outcome of evaluating a definition on a snapshot
type Decision struct {
	Entry   bool        `json:"entry"`
	Exit    bool        `json:"exit"`
	Missing []Indicator `json:"missing,omitempty"`
}

// Evaluate tests the entry and exit conditions. A condition on a missing
// indicator never holds and is reported in Missing.
func Evaluate(d *Definition, snap Snapshot) Decision {
	var dec Decision
	seen := make(map[Indicator]bool)
	test := func(c Condition) bool {
		v, ok := snap[c.Indicator]
		if !ok {
			if !seen[c.Indicator] {
				seen[c.Indicator] = true
				dec.Missing = append(dec.Missing, c.Indicator)
			}
			return false
		}
		return c.Holds(v)
	}

	if len(d.Entry) > 0 {
		if d.EntryLogic == LogicOr {
			for _, c := range d.Entry {
				if test(c) {
					dec.Entry = true
				}
			}
		} else {
			dec.Entry = true
			for _, c := range d.Entry {
				if !test(c) {
					dec.Entry = false
				}
			}
		}
	}
	for _, c := range d.Exit {
		if test(c) {
			dec.Exit = true
		}
	}
	return dec
}
