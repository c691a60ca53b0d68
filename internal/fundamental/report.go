package fundamental

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/stats"
)

// SectorMetrics is the peer distribution used for percentiles
type SectorMetrics struct {
	PER  []float64 `json:"per"`
	ROE  []float64 `json:"roe"`
	CAGR []float64 `json:"cagr"`
}

// Report is the financial analysis of one company
type Report struct {
	Code                  string             `json:"code"`
	PER                   float64            `json:"per"`
	PBR                   float64            `json:"pbr"`
	ROE                   float64            `json:"roe"`
	DebtRatio             float64            `json:"debt_ratio"`
	CurrentRatio          float64            `json:"current_ratio"`
	CAGR                  *float64           `json:"cagr,omitempty"`
	GrowthStability       float64            `json:"growth_stability"`
	OperatingMarginChange *float64           `json:"operating_margin_change,omitempty"`
	AltmanZ               *float64           `json:"altman_z,omitempty"`
	AltmanZone            string             `json:"altman_zone,omitempty"`
	PEG                   *float64           `json:"peg,omitempty"`
	Stability             float64            `json:"stability"`
	Warnings              []string           `json:"warnings"`
	Percentiles           map[string]float64 `json:"percentiles"`
	AIScore               float64            `json:"ai_score"`
	Beginner              string             `json:"beginner_summary"`
	Expert                string             `json:"expert_summary"`
}

// Analyze scores annual statements (oldest first). The latest row supplies
// the balance-sheet ratios and multiples.
func Analyze(code string, rows []contracts.Financials, sector SectorMetrics) (*Report, error) {
	if len(rows) == 0 {
		return nil, ErrInsufficientData
	}
	last := rows[len(rows)-1]

	r := &Report{
		Code:        code,
		PER:         last.PER,
		PBR:         last.PBR,
		ROE:         last.ROE(),
		DebtRatio:   last.DebtRatio(),
		Percentiles: map[string]float64{},
	}
	if last.CurrentLiabilities > 0 {
		r.CurrentRatio = last.CurrentAssets / last.CurrentLiabilities
	}

	revenue := make([]float64, len(rows))
	for i, row := range rows {
		revenue[i] = row.Revenue
	}

	// 3년 CAGR: 최소 4개 연도
	if cagr, err := CAGR(revenue, 3); err == nil {
		r.CAGR = &cagr
	} else if !errors.Is(err, ErrInsufficientData) {
		return nil, err
	}
	r.GrowthStability = GrowthStability(revenue)

	if d, ok := OperatingMarginChange(rows); ok {
		r.OperatingMarginChange = &d
	}
	if z, err := AltmanZ(last); err == nil {
		r.AltmanZ = &z
		r.AltmanZone = AltmanZone(z)
	}
	if r.CAGR != nil {
		if peg, ok := PEG(r.PER, *r.CAGR); ok {
			r.PEG = &peg
		}
	}

	r.Stability = StabilityComposite(r.DebtRatio, r.CurrentRatio)
	r.Warnings = Warnings(r.CAGR, r.DebtRatio, rows)

	if len(sector.PER) > 0 && r.PER != 0 {
		r.Percentiles["PER_percentile"] = stats.PercentileRank(sector.PER, r.PER)
	}
	if len(sector.ROE) > 0 {
		r.Percentiles["ROE_percentile"] = stats.PercentileRank(sector.ROE, r.ROE)
	}
	if len(sector.CAGR) > 0 && r.CAGR != nil {
		r.Percentiles["CAGR_percentile"] = stats.PercentileRank(sector.CAGR, *r.CAGR)
	}

	r.AIScore = AIScore(r.Stability, r.CAGR)
	r.Beginner, r.Expert = summaries(r)
	return r, nil
}

func summaries(r *Report) (string, string) {
	growth := "성장률 정보 부족"
	if r.CAGR != nil {
		growth = fmt.Sprintf("최근 3년간 평균 %.2f%%의 매출 성장률", *r.CAGR*100)
	}
	safety := "양호"
	if r.DebtRatio >= 0.6 {
		safety = "주의 필요"
	}
	beginner := fmt.Sprintf("이 기업은 %s을 기록했으며, 부채비율은 %.2f로 안정성은 %s합니다.", growth, r.DebtRatio, safety)

	perPct := "N/A"
	if v, ok := r.Percentiles["PER_percentile"]; ok {
		perPct = fmt.Sprintf("%.1f%%", v)
	}
	risks := "특별한 이상징후 없음"
	if len(r.Warnings) > 0 {
		risks = strings.Join(r.Warnings, ", ")
	}
	expert := fmt.Sprintf("PER는 %.2f, ROE는 %.2f%%이며, 업종 내 PER percentile은 %s입니다. 주요 리스크: %s.",
		r.PER, r.ROE*100, perPct, risks)
	return beginner, expert
}
