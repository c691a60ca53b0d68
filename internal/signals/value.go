package signals

import (
	"github.com/wonny/quantlab/internal/contracts"
)

// ValueMetrics are the multiples compared against the sector
type ValueMetrics struct {
	PER       float64 `json:"per"`
	PBR       float64 `json:"pbr"`
	SectorPER float64 `json:"sector_per"`
	SectorPBR float64 `json:"sector_pbr"`
}

// ValuationScore averages 100·sectorPER/PER and 100·sectorPBR/PBR, clipped to 0..100.
// Non-positive own multiples (적자, 자본잠식) score 0 for that leg.
func ValuationScore(m ValueMetrics) float64 {
	leg := func(sector, own float64) float64 {
		if own <= 0 || sector <= 0 {
			return 0
		}
		return 100 * sector / own
	}
	score := (leg(m.SectorPER, m.PER) + leg(m.SectorPBR, m.PBR)) / 2
	return contracts.Clip(score, 0, 100)
}
