package portfolio

import "slices"

// Constraints limits the final position weights
// ⭐ SSOT: 포트폴리오 제약조건은 여기서만
type Constraints struct {
	MaxWeight float64  // 종목당 최대 비중 (0.0 ~ 1.0)
	MinWeight float64  // 종목당 최소 비중 (0.0 ~ 1.0)
	BlackList []string // 제외 종목 리스트
}

// IsBlackListed checks if a stock code is in the blacklist
func (c *Constraints) IsBlackListed(code string) bool {
	return slices.Contains(c.BlackList, code)
}

// DefaultConstraints returns default constraint configuration
func DefaultConstraints() Constraints {
	return Constraints{
		MaxWeight: 0.20, // 종목당 최대 20%
		MinWeight: 0.01, // 종목당 최소 1%
		BlackList: []string{},
	}
}
