package risk

import (
	"math"

	"github.com/wonny/quantlab/internal/stats"
)

// CalculateVaR historical VaR/CVaR.
// VaR 는 (1-confidence) 분위수 (선형 보간), CVaR 는 그 이하 수익률의 평균.
// 반환값은 손실을 양수로 표현하며 손실이 없으면 0.
func CalculateVaR(returns []float64, confidence float64) VaRResult {
	res := VaRResult{Confidence: confidence}
	if len(returns) == 0 {
		return res
	}

	sorted := stats.Sorted(returns)
	q := stats.Percentile(sorted, (1-confidence)*100)

	var sum float64
	var n int
	for _, r := range sorted {
		if r > q {
			break
		}
		sum += r
		n++
	}

	res.VaR = lossPositive(q)
	if n > 0 {
		res.CVaR = lossPositive(sum / float64(n))
	}
	return res
}

func lossPositive(r float64) float64 {
	if r < 0 {
		return -r
	}
	return 0
}

// CalculateParametricVaR 정규분포 가정 VaR (평균은 무시)
func CalculateParametricVaR(stdDev, confidence float64) VaRResult {
	z := NormInv(confidence)
	v := math.Max(z*stdDev, 0)
	// CVaR = VaR + σ·φ(z)/(1-c)
	cvar := v + stdDev*NormPDF(z)/(1-confidence)
	return VaRResult{Confidence: confidence, VaR: v, CVaR: cvar}
}

// NormInv 정규분포 역함수 (Acklam rational approximation)
func NormInv(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}

	a := [...]float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	b := [...]float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01}
	c := [...]float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	d := [...]float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00}

	const pLow = 0.02425
	switch {
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p <= 1-pLow:
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	default:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}
}

// NormPDF 정규분포 확률밀도함수
func NormPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
