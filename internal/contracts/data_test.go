package contracts

import (
	"errors"
	"math"
	"testing"
	"time"
)

func series(closes ...float64) *Series {
	s := &Series{Code: "005930"}
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		s.Bars = append(s.Bars, Bar{Date: day.AddDate(0, 0, i), Close: c, Volume: 100})
	}
	return s
}

func TestSeriesReturns(t *testing.T) {
	s := series(100, 110, 99)
	got := s.Returns()
	want := []float64{0.1, -0.1}

	if len(got) != len(want) {
		t.Fatalf("Expected %d returns, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("return[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPctChangeSkipsZero(t *testing.T) {
	got := PctChange([]float64{0, 10, 20})
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("PctChange = %v, want [1]", got)
	}
}

func TestLastAndTail(t *testing.T) {
	empty := &Series{}
	if _, err := empty.Last(); !errors.Is(err, ErrEmptySeries) {
		t.Errorf("Expected ErrEmptySeries, got %v", err)
	}

	s := series(1, 2, 3, 4)
	if tail := s.Tail(2); tail.Len() != 2 || tail.Closes()[0] != 3 {
		t.Errorf("Tail(2) = %v", tail.Closes())
	}
	if s.Tail(10) != s {
		t.Error("Tail larger than series should return the series")
	}
	last, _ := s.Last()
	if last.Close != 4 {
		t.Errorf("Last close = %v", last.Close)
	}
}

func TestEquityAndClip(t *testing.T) {
	eq := Equity([]float64{0.1, -0.5})
	if eq[0] != 1 || math.Abs(eq[2]-0.55) > 1e-12 {
		t.Errorf("Equity = %v", eq)
	}

	tests := []struct {
		v, want float64
	}{
		{-1, 0}, {0.5, 0.5}, {2, 1}, {math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := Clip(tt.v, 0, 1); got != tt.want {
			t.Errorf("Clip(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestFinancialRatios(t *testing.T) {
	f := Financials{NetIncome: 10, TotalEquity: 100, TotalLiabilities: 60, TotalAssets: 160}
	if f.ROE() != 0.1 {
		t.Errorf("ROE = %v", f.ROE())
	}
	if f.DebtRatio() != 0.375 {
		t.Errorf("DebtRatio = %v", f.DebtRatio())
	}
	if (Financials{}).DebtRatio() != 0 {
		t.Error("zero assets should give zero debt ratio")
	}
}
