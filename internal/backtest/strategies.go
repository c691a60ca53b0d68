package backtest

import (
	"errors"
	"fmt"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/indicators"
)

// Signal is a per-bar target: long or flat
type Signal int

const (
	SignalHold Signal = iota
	SignalBuy
	SignalSell
)

// Strategy turns a price series into one signal per bar.
// 신호는 해당 봉 종가 기준이며 체결도 같은 종가로 처리
type Strategy interface {
	Name() string
	Signals(s *contracts.Series) []Signal
}

// BuyAndHold buys on the first bar
type BuyAndHold struct{}

func (BuyAndHold) Name() string { return "buy_and_hold" }

func (BuyAndHold) Signals(s *contracts.Series) []Signal {
	out := make([]Signal, s.Len())
	if len(out) > 0 {
		out[0] = SignalBuy
	}
	return out
}

// MACrossover goes long on a golden cross and flat on a dead cross
type MACrossover struct {
	Short, Long int
}

func (m MACrossover) Name() string { return fmt.Sprintf("ma_cross_%d_%d", m.Short, m.Long) }

func (m MACrossover) Signals(s *contracts.Series) []Signal {
	closes := s.Closes()
	short := indicators.SMA(closes, m.Short)
	long := indicators.SMA(closes, m.Long)

	out := make([]Signal, len(closes))
	for i := m.Long; i < len(closes); i++ {
		switch {
		case short[i-1] <= long[i-1] && short[i] > long[i]:
			out[i] = SignalBuy
		case short[i-1] >= long[i-1] && short[i] < long[i]:
			out[i] = SignalSell
		}
	}
	return out
}

// RSIReversion buys oversold and sells overbought
type RSIReversion struct {
	Period               int
	Oversold, Overbought float64
}

func (r RSIReversion) Name() string { return fmt.Sprintf("rsi_%d", r.Period) }

func (r RSIReversion) Signals(s *contracts.Series) []Signal {
	rsi := indicators.RSI(s.Closes(), r.Period)
	out := make([]Signal, len(rsi))
	for i, v := range rsi {
		switch {
		case i < r.Period:
		case v < r.Oversold:
			out[i] = SignalBuy
		case v > r.Overbought:
			out[i] = SignalSell
		}
	}
	return out
}

// ErrUnknownStrategy is returned for a name StrategyByName does not know
var ErrUnknownStrategy = errors.New("unknown strategy")

// StrategyByName resolves the CLI/API strategy names
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "", "buy_and_hold", "기본전략":
		return BuyAndHold{}, nil
	case "ma_cross", "모멘텀":
		return MACrossover{Short: 5, Long: 20}, nil
	case "rsi", "가치형":
		return RSIReversion{Period: 14, Oversold: 30, Overbought: 70}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownStrategy, name)
	}
}
