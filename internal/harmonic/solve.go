package harmonic

import (
	"errors"
	"math"
)

// solveSinCos solves the least-squares regression of y onto
// {sin(h*omega*t), cos(h*omega*t) : h in harmonics} plus a constant offset
// term, via the normal equations. The returned coefficients are laid out
// as [a_h1, b_h1, a_h2, b_h2, ..., offset].
//
// The system is tiny (2*len(harmonics)+1 unknowns), so plain Gaussian
// elimination with partial pivoting suffices.
func solveSinCos(t, y []float64, harmonics []int, omega float64) ([]float64, error) {
	k := 2*len(harmonics) + 1
	basis := make([]float64, k)

	gram := make([][]float64, k)
	for i := range gram {
		gram[i] = make([]float64, k)
	}
	rhs := make([]float64, k)

	for s := range t {
		for i, h := range harmonics {
			arg := float64(h) * omega * t[s]
			basis[2*i] = math.Sin(arg)
			basis[2*i+1] = math.Cos(arg)
		}
		basis[k-1] = 1

		for i := 0; i < k; i++ {
			for j := i; j < k; j++ {
				gram[i][j] += basis[i] * basis[j]
			}
			rhs[i] += basis[i] * y[s]
		}
	}
	for i := 1; i < k; i++ {
		for j := 0; j < i; j++ {
			gram[i][j] = gram[j][i]
		}
	}

	return solveLinear(gram, rhs)
}

// solveLinear solves a*x = b in place using Gaussian elimination with
// partial pivoting.
func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	k := len(b)

	for col := 0; col < k; col++ {
		pivot := col
		for row := col + 1; row < k; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if a[pivot][col] == 0 {
			return nil, errors.New("solving normal equations: singular system")
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < k; row++ {
			factor := a[row][col] / a[col][col]
			if factor == 0 {
				continue
			}
			for j := col; j < k; j++ {
				a[row][j] -= factor * a[col][j]
			}
			b[row] -= factor * b[col]
		}
	}

	x := make([]float64, k)
	for row := k - 1; row >= 0; row-- {
		sum := b[row]
		for j := row + 1; j < k; j++ {
			sum -= a[row][j] * x[j]
		}
		x[row] = sum / a[row][row]
	}
	return x, nil
}
