package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CorrelationMatrix returns the pairwise Pearson matrix of the given columns.
// 분산이 0인 열과의 상관은 0.
func CorrelationMatrix(columns [][]float64) [][]float64 {
	n := len(columns)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		out[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := Correlation(columns[i], columns[j])
			out[i][j], out[j][i] = c, c
		}
	}
	return out
}

// Covariance returns the sample covariance matrix of the given columns
func Covariance(columns [][]float64) [][]float64 {
	n := len(columns)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	if n == 0 || len(columns[0]) < 2 {
		return out
	}

	rows := len(columns[0])
	x := mat.NewDense(rows, n, nil)
	for j, c := range columns {
		for i := 0; i < rows; i++ {
			x.Set(i, j, c[i])
		}
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i][j] = cov.At(i, j)
		}
	}
	return out
}

// SymmetricEigen diagonalises a symmetric matrix.
// Eigenvalues come back in descending order; vectors[k] is the k-th eigenvector.
func SymmetricEigen(m [][]float64) (values []float64, vectors [][]float64) {
	n := len(m)
	if n == 0 {
		return nil, nil
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, m[i][j])
		}
	}

	var es mat.EigenSym
	if !es.Factorize(sym, true) {
		return make([]float64, n), identity(n)
	}
	asc := es.Values(nil)
	var ev mat.Dense
	es.VectorsTo(&ev)

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return asc[idx[i]] > asc[idx[j]] })

	values = make([]float64, n)
	vectors = make([][]float64, n)
	for k, col := range idx {
		values[k] = asc[col]
		vectors[k] = mat.Col(nil, col, &ev)
	}
	return values, vectors
}

func identity(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		out[i][i] = 1
	}
	return out
}

// PseudoInverse returns the Moore-Penrose inverse of a symmetric matrix,
// dropping eigenvalues below tol
func PseudoInverse(m [][]float64, tol float64) [][]float64 {
	n := len(m)
	values, vectors := SymmetricEigen(m)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for k, lambda := range values {
		if math.Abs(lambda) <= tol {
			continue
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				out[i][j] += vectors[k][i] * vectors[k][j] / lambda
			}
		}
	}
	return out
}

// MatVec returns m·x
func MatVec(m [][]float64, x []float64) []float64 {
	if len(m) == 0 || len(x) == 0 {
		return make([]float64, len(m))
	}
	a := mat.NewDense(len(m), len(x), nil)
	for i, row := range m {
		a.SetRow(i, row)
	}
	var out mat.VecDense
	out.MulVec(a, mat.NewVecDense(len(x), append([]float64(nil), x...)))
	return out.RawVector().Data
}
