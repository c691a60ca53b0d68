package stats

import (
	"math"
	"testing"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestMeanStdMedian(t *testing.T) {
	v := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if Mean(v) != 5 {
		t.Errorf("Mean = %v", Mean(v))
	}
	if !approx(StdDev(v), 2.138089935) {
		t.Errorf("StdDev = %v", StdDev(v))
	}
	if Median(v) != 4.5 {
		t.Errorf("Median = %v", Median(v))
	}
	if StdDev([]float64{1}) != 0 || Mean(nil) != 0 {
		t.Error("degenerate inputs should be zero")
	}
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	tests := []struct {
		p, want float64
	}{
		{0, 1}, {25, 2}, {50, 3}, {90, 4.6}, {100, 5},
	}
	for _, tt := range tests {
		if got := Percentile(sorted, tt.p); !approx(got, tt.want) {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestPercentileRank(t *testing.T) {
	values := []float64{10, 20, 30, 40}
	if got := PercentileRank(values, 40); got != 100 {
		t.Errorf("rank of max = %v", got)
	}
	if got := PercentileRank(values, 10); got != 25 {
		t.Errorf("rank of min = %v", got)
	}
}

func TestMinMaxAndNormalize(t *testing.T) {
	got := MinMax([]float64{5, 10, 15})
	if got[0] != 0 || got[1] != 0.5 || got[2] != 1 {
		t.Errorf("MinMax = %v", got)
	}
	if c := MinMax([]float64{3, 3}); c[0] != 0 || c[1] != 0 {
		t.Errorf("constant MinMax = %v", c)
	}
	w := Normalize([]float64{1, 3})
	if w[0] != 0.25 || w[1] != 0.75 {
		t.Errorf("Normalize = %v", w)
	}
}

func TestCorrelationAndCosine(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	if !approx(Correlation(x, []float64{2, 4, 6, 8}), 1) {
		t.Error("perfect positive correlation expected")
	}
	if !approx(Correlation(x, []float64{4, 3, 2, 1}), -1) {
		t.Error("perfect negative correlation expected")
	}
	if !approx(Cosine([]float64{1, 0}, []float64{0, 1}), 0) {
		t.Error("orthogonal vectors should have zero cosine")
	}
	if !approx(Cosine([]float64{1, 2}, []float64{2, 4}), 1) {
		t.Error("parallel vectors should have cosine 1")
	}
}

func TestMaxDrawdown(t *testing.T) {
	got := MaxDrawdown([]float64{100, 120, 90, 130, 104})
	if !approx(got, -0.25) {
		t.Errorf("MaxDrawdown = %v, want -0.25", got)
	}
}

func TestSymmetricEigen(t *testing.T) {
	values, vectors := SymmetricEigen([][]float64{{2, 1}, {1, 2}})
	if !approx(values[0], 3) || !approx(values[1], 1) {
		t.Fatalf("eigenvalues = %v", values)
	}
	// 첫 고유벡터는 (1,1)/√2 방향
	if !approx(math.Abs(vectors[0][0]), math.Sqrt2/2) || !approx(vectors[0][0], vectors[0][1]) {
		t.Errorf("eigenvector = %v", vectors[0])
	}
}

func TestPseudoInverse(t *testing.T) {
	m := [][]float64{{4, 0}, {0, 2}}
	inv := PseudoInverse(m, eps)
	if !approx(inv[0][0], 0.25) || !approx(inv[1][1], 0.5) || !approx(inv[0][1], 0) {
		t.Errorf("inverse = %v", inv)
	}

	// 특이행렬: 랭크 1
	singular := [][]float64{{1, 1}, {1, 1}}
	p := PseudoInverse(singular, eps)
	if !approx(p[0][0], 0.25) || !approx(p[0][1], 0.25) {
		t.Errorf("pinv of singular = %v", p)
	}

	got := MatVec(inv, []float64{4, 2})
	if !approx(got[0], 1) || !approx(got[1], 1) {
		t.Errorf("MatVec = %v", got)
	}
}

func TestCovariance(t *testing.T) {
	cov := Covariance([][]float64{{1, 2, 3}, {2, 4, 6}})
	if !approx(cov[0][0], 1) || !approx(cov[0][1], 2) || !approx(cov[1][1], 4) {
		t.Errorf("Covariance = %v", cov)
	}
	corr := CorrelationMatrix([][]float64{{1, 2, 3}, {3, 2, 1}})
	if corr[0][0] != 1 || !approx(corr[0][1], -1) {
		t.Errorf("CorrelationMatrix = %v", corr)
	}
}

func TestPopStdDev(t *testing.T) {
	if got := PopStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}); !approx(got, 2) {
		t.Errorf("PopStdDev = %v, want 2", got)
	}
	if PopStdDev(nil) != 0 {
		t.Error("PopStdDev(nil) should be 0")
	}
}
