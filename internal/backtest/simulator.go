package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientCash   = errors.New("insufficient cash")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// Simulator tracks cash and positions for one backtest
// ⭐ SSOT: 현금/포지션 계산은 decimal 로만 (원 단위 반올림 오차 방지)
type Simulator struct {
	cash       decimal.Decimal
	commission decimal.Decimal // 비율
	slippage   decimal.Decimal // 비율
	positions  map[string]*Position
	trades     []Trade

	winning int
	losing  int
	fees    decimal.Decimal
}

// Position is an open holding
type Position struct {
	Code      string
	Shares    int64
	CostBasis decimal.Decimal // 수수료 포함 총 매입 금액
}

// AvgPrice is the cost basis per share
func (p *Position) AvgPrice() decimal.Decimal {
	if p.Shares == 0 {
		return decimal.Zero
	}
	return p.CostBasis.Div(decimal.NewFromInt(p.Shares))
}

// Side is the trade direction
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade is one executed fill
type Trade struct {
	Date       time.Time       `json:"date"`
	Code       string          `json:"code"`
	Side       Side            `json:"side"`
	Shares     int64           `json:"shares"`
	Price      decimal.Decimal `json:"price"` // 슬리피지 반영 체결가
	Commission decimal.Decimal `json:"commission"`
	PnL        decimal.Decimal `json:"pnl"` // 매도 시
	ReturnPct  float64         `json:"return_pct"`
}

// Stats holds simulation statistics
type Stats struct {
	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	TotalCommission float64 `json:"total_commission"`
}

// NewSimulator creates a simulator with capital and fee rates
func NewSimulator(capital, commission, slippage float64) *Simulator {
	return &Simulator{
		cash:       decimal.NewFromFloat(capital),
		commission: decimal.NewFromFloat(commission),
		slippage:   decimal.NewFromFloat(slippage),
		positions:  make(map[string]*Position),
	}
}

// Cash returns the current cash balance
func (s *Simulator) Cash() decimal.Decimal {
	return s.cash
}

// Position returns the open position for code, if any
func (s *Simulator) Position(code string) (*Position, bool) {
	p, ok := s.positions[code]
	return p, ok
}

// fillPrice applies slippage against the trader
func (s *Simulator) fillPrice(price float64, side Side) decimal.Decimal {
	p := decimal.NewFromFloat(price)
	if side == SideBuy {
		return p.Mul(decimal.NewFromInt(1).Add(s.slippage))
	}
	return p.Mul(decimal.NewFromInt(1).Sub(s.slippage))
}

// MaxShares returns how many shares budget buys at price including costs
func (s *Simulator) MaxShares(price float64, budget decimal.Decimal) int64 {
	unit := s.fillPrice(price, SideBuy).Mul(decimal.NewFromInt(1).Add(s.commission))
	if !unit.IsPositive() {
		return 0
	}
	if budget.GreaterThan(s.cash) {
		budget = s.cash
	}
	return budget.Div(unit).Floor().IntPart()
}

// Buy opens or adds to a position
func (s *Simulator) Buy(date time.Time, code string, price float64, shares int64) (Trade, error) {
	if shares <= 0 {
		return Trade{}, fmt.Errorf("buy %s: shares must be positive", code)
	}
	fill := s.fillPrice(price, SideBuy)
	value := fill.Mul(decimal.NewFromInt(shares))
	fee := value.Mul(s.commission).Ceil()
	total := value.Add(fee)
	if total.GreaterThan(s.cash) {
		return Trade{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientCash, total.StringFixed(0), s.cash.StringFixed(0))
	}

	s.cash = s.cash.Sub(total)
	pos, ok := s.positions[code]
	if !ok {
		pos = &Position{Code: code}
		s.positions[code] = pos
	}
	pos.Shares += shares
	pos.CostBasis = pos.CostBasis.Add(total)

	t := Trade{Date: date, Code: code, Side: SideBuy, Shares: shares, Price: fill, Commission: fee}
	s.record(t)
	return t, nil
}

// Sell closes part or all of a position
func (s *Simulator) Sell(date time.Time, code string, price float64, shares int64) (Trade, error) {
	pos, ok := s.positions[code]
	if !ok || pos.Shares < shares || shares <= 0 {
		have := int64(0)
		if ok {
			have = pos.Shares
		}
		return Trade{}, fmt.Errorf("%w: %s need %d, have %d", ErrInsufficientShares, code, shares, have)
	}

	fill := s.fillPrice(price, SideSell)
	value := fill.Mul(decimal.NewFromInt(shares))
	fee := value.Mul(s.commission).Ceil()
	proceeds := value.Sub(fee)

	cost := pos.CostBasis.Mul(decimal.NewFromInt(shares)).Div(decimal.NewFromInt(pos.Shares))
	pnl := proceeds.Sub(cost)
	ret, _ := pnl.Div(cost).Float64()

	s.cash = s.cash.Add(proceeds)
	pos.Shares -= shares
	pos.CostBasis = pos.CostBasis.Sub(cost)
	if pos.Shares == 0 {
		delete(s.positions, code)
	}

	switch pnl.Sign() {
	case 1:
		s.winning++
	case -1:
		s.losing++
	}

	t := Trade{Date: date, Code: code, Side: SideSell, Shares: shares, Price: fill, Commission: fee, PnL: pnl, ReturnPct: ret}
	s.record(t)
	return t, nil
}

func (s *Simulator) record(t Trade) {
	s.trades = append(s.trades, t)
	s.fees = s.fees.Add(t.Commission)
}

// Equity marks open positions to prices (code → close)
func (s *Simulator) Equity(prices map[string]float64) decimal.Decimal {
	total := s.cash
	for code, pos := range s.positions {
		if p, ok := prices[code]; ok {
			total = total.Add(decimal.NewFromFloat(p).Mul(decimal.NewFromInt(pos.Shares)))
		} else {
			total = total.Add(pos.CostBasis)
		}
	}
	return total
}

// Trades returns the executed fills
func (s *Simulator) Trades() []Trade {
	return append([]Trade(nil), s.trades...)
}

// Stats returns simulation statistics
func (s *Simulator) Stats() Stats {
	fees, _ := s.fees.Float64()
	return Stats{
		TotalTrades:     len(s.trades),
		WinningTrades:   s.winning,
		LosingTrades:    s.losing,
		TotalCommission: fees,
	}
}
