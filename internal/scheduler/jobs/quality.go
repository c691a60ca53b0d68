package jobs

import (
	"fmt"
	"time"

	"github.com/wonny/quantlab/internal/contracts"
)

// QualityConfig holds quality gate thresholds
type QualityConfig struct {
	MinScore     float64       `yaml:"min_score"`     // 0.8
	MinBars      int           `yaml:"min_bars"`      // 20
	MaxStaleness time.Duration `yaml:"max_staleness"` // 7일 (연휴 포함)
}

// DefaultQualityConfig is used when the gate is enabled without tuning
var DefaultQualityConfig = QualityConfig{
	MinScore:     0.8,
	MinBars:      20,
	MaxStaleness: 7 * 24 * time.Hour,
}

// QualitySnapshot summarizes one collection run
type QualitySnapshot struct {
	Date         time.Time          `json:"date"`
	TotalStocks  int                `json:"total_stocks"`
	ValidStocks  int                `json:"valid_stocks"`
	Coverage     map[string]float64 `json:"coverage"`
	QualityScore float64            `json:"quality_score"`
}

// QualityGate scores the series a collection run fetched
// ⭐ SSOT: 수집 → 분석 품질 검증
type QualityGate struct {
	config QualityConfig
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config QualityConfig) *QualityGate {
	if config.MinBars <= 0 {
		config.MinBars = DefaultQualityConfig.MinBars
	}
	if config.MaxStaleness <= 0 {
		config.MaxStaleness = DefaultQualityConfig.MaxStaleness
	}
	return &QualityGate{config: config}
}

// 가중치 (합계 = 1.0)
var qualityWeights = map[string]float64{
	"price":     0.40, // OHLC 정합성
	"volume":    0.20,
	"length":    0.20,
	"freshness": 0.20,
}

// Check scores series collected at date. nil entries count as missing.
func (g *QualityGate) Check(date time.Time, series map[string]*contracts.Series) *QualitySnapshot {
	snap := &QualitySnapshot{
		Date:        date,
		TotalStocks: len(series),
		Coverage:    make(map[string]float64, len(qualityWeights)),
	}
	if len(series) == 0 {
		return snap
	}

	counts := make(map[string]int, len(qualityWeights))
	for _, s := range series {
		ok := g.inspect(date, s)
		valid := true
		for key := range qualityWeights {
			if ok[key] {
				counts[key]++
			} else {
				valid = false
			}
		}
		if valid {
			snap.ValidStocks++
		}
	}

	for key, weight := range qualityWeights {
		cov := float64(counts[key]) / float64(len(series))
		snap.Coverage[key] = cov
		snap.QualityScore += cov * weight
	}
	return snap
}

// Passed reports whether snap clears the configured minimum
func (g *QualityGate) Passed(snap *QualitySnapshot) error {
	if snap.QualityScore < g.config.MinScore {
		return fmt.Errorf("quality score %.2f below %.2f (valid %d/%d)",
			snap.QualityScore, g.config.MinScore, snap.ValidStocks, snap.TotalStocks)
	}
	return nil
}

func (g *QualityGate) inspect(date time.Time, s *contracts.Series) map[string]bool {
	ok := make(map[string]bool, len(qualityWeights))
	if s == nil || s.Len() == 0 {
		return ok
	}

	priceOK, traded := true, 0
	for _, b := range s.Bars {
		if b.Close <= 0 || b.High < b.Low || b.Close > b.High || b.Close < b.Low {
			priceOK = false
		}
		if b.Volume > 0 {
			traded++
		}
	}
	ok["price"] = priceOK
	// 거래정지일 일부는 허용
	ok["volume"] = float64(traded) >= 0.9*float64(s.Len())
	ok["length"] = s.Len() >= g.config.MinBars

	last, _ := s.Last()
	ok["freshness"] = date.Sub(last.Date) <= g.config.MaxStaleness
	return ok
}
