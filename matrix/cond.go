// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	opCond = "Cond"

	// machineEps is the float64 unit roundoff 2^-52.
	machineEps = 2.220446049250313e-16
)

// matrixErrorf wraps err with an operation tag, preserving the original error via %w.
// Use only when err != nil.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// Cond returns the 2-norm condition number σmax/σmin of m.
//
// The singular values come from a thin SVD of m itself, so large but finite
// condition numbers (walker clouds mixing 1e-5 and 1e6 magnitudes) are
// reported as they are. Cond returns +Inf only for numerical rank deficiency:
// σmin ≤ eps·max(r, c)·σmax. An all-zero matrix has Cond = +Inf.
//
// Errors:
//   - ErrNilMatrix, ErrNaNInf (non-finite entries), ErrFactorization.
//
// Complexity: O(r·c·min(r, c)).
func Cond(m Matrix) (float64, error) {
	if err := ValidateFinite(m); err != nil {
		return 0, matrixErrorf(opCond, err)
	}

	r, c := m.Rows(), m.Cols()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v, _ := m.At(i, j) // in range
			data = append(data, v)
		}
	}

	var svd mat.SVD
	if !svd.Factorize(mat.NewDense(r, c, data), mat.SVDNone) {
		return 0, matrixErrorf(opCond, ErrFactorization)
	}
	s := svd.Values(nil) // descending
	smax, smin := s[0], s[len(s)-1]
	if smax == 0 || smin <= machineEps*float64(max(r, c))*smax {
		return math.Inf(1), nil
	}

	return smax / smin, nil
}
