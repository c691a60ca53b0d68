package contracts

import (
	"errors"
	"math"
	"time"
)

// ErrEmptySeries is returned when a calculation needs at least one bar
var ErrEmptySeries = errors.New("empty price series")

// Bar is one daily OHLCV candle
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is a date-ascending price history for one stock
// ⭐ SSOT: 모든 분석 모듈은 이 타입으로 가격을 주고받음
type Series struct {
	Code string `json:"code"`
	Bars []Bar  `json:"bars"`
}

// Len returns the number of bars
func (s *Series) Len() int {
	return len(s.Bars)
}

// Closes returns the close prices
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns the high prices
func (s *Series) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows returns the low prices
func (s *Series) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Volumes returns traded volumes
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// Dates returns bar dates
func (s *Series) Dates() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

// Returns returns simple daily returns (len-1 values). Bars with a zero
// previous close are skipped.
func (s *Series) Returns() []float64 {
	return PctChange(s.Closes())
}

// Last returns the latest bar
func (s *Series) Last() (Bar, error) {
	if len(s.Bars) == 0 {
		return Bar{}, ErrEmptySeries
	}
	return s.Bars[len(s.Bars)-1], nil
}

// Tail returns a series view with the last n bars
func (s *Series) Tail(n int) *Series {
	if n >= len(s.Bars) {
		return s
	}
	return &Series{Code: s.Code, Bars: s.Bars[len(s.Bars)-n:]}
}

// PctChange returns x[i]/x[i-1]-1 for consecutive values
func PctChange(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

// Equity converts a return stream into an equity curve starting at 1
func Equity(returns []float64) []float64 {
	out := make([]float64, len(returns)+1)
	out[0] = 1
	for i, r := range returns {
		out[i+1] = out[i] * (1 + r)
	}
	return out
}

// Clip bounds v to [lo, hi]. NaN becomes lo.
func Clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
