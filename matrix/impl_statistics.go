// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Provide the statistical transforms the reconciliation weights need
//     (cross-product covariance, covariance→correlation, complete-case filtering)
//     as deterministic compositions over canonical kernels (Mul/Transpose/Scale).
//
// Exposed API:
//   - CrossCovariance(X) -> Cov           // uncentered: (Xᵀ X)/r
//   - CovToCor(C)        -> R             // D^{-1/2} C D^{-1/2}
//   - CompleteRows(X)    -> (Xo, kept)    // drop rows carrying any NaN
//
// Determinism & Performance:
//   - Fixed i→j traversal for all explicit loops.
//
// AI-Hints:
//   - Residual matrices from forecasting models carry NaN for unobserved steps;
//     call CompleteRows before CrossCovariance.

package matrix

import (
	"fmt"
	"math"
)

// Operation name constants for unified error wrapping and reducing magic strings.
const (
	opCrossCovariance = "CrossCovariance"
	opCovToCor        = "CovToCor"
	opCompleteRows    = "CompleteRows"
)

// crossCovariance computes (Xᵀ X)/r without centering.
// In-sample residuals are already mean-zero by construction of the fitted models,
// so the second moment is the covariance estimate used by the MinT weights.
// Requires r ≥ 1. Complexity: O(r*c^2).
func crossCovariance(X Matrix) (*Dense, error) {
	if err := ValidateNotNil(X); err != nil {
		return nil, matrixErrorf(opCrossCovariance, err)
	}
	r := X.Rows()
	if r < 1 {
		return nil, matrixErrorf(opCrossCovariance, fmt.Errorf("rows=%d: %w", r, ErrDimensionMismatch))
	}
	G, err := CrossProd(X)
	if err != nil {
		return nil, matrixErrorf(opCrossCovariance, err)
	}
	C, err := Scale(G, 1.0/float64(r))
	if err != nil {
		return nil, matrixErrorf(opCrossCovariance, err)
	}

	return C, nil
}

// covToCor rescales a covariance matrix into correlation form: R = D^{-1/2} C D^{-1/2}.
// A zero or negative diagonal entry yields NaN in its row/column, which the caller
// must treat as a degenerate weight (the positive-definiteness check rejects it first).
// Complexity: O(n^2).
func covToCor(C Matrix) (*Dense, error) {
	if err := ValidateSquareNonNil(C); err != nil {
		return nil, matrixErrorf(opCovToCor, err)
	}
	d, err := asDense(C)
	if err != nil {
		return nil, matrixErrorf(opCovToCor, err)
	}
	n := d.r
	inv := make([]float64, n)
	for i := 0; i < n; i++ {
		inv[i] = 1.0 / math.Sqrt(d.data[i*n+i])
	}
	rows, err := ewScaleRows(d, inv)
	if err != nil {
		return nil, matrixErrorf(opCovToCor, err)
	}
	R, err := ewScaleCols(rows, inv)
	if err != nil {
		return nil, matrixErrorf(opCovToCor, err)
	}
	for i := 0; i < n; i++ {
		if !math.IsNaN(R.data[i*n+i]) {
			R.data[i*n+i] = 1 // remove rounding drift on the unit diagonal
		}
	}

	return R, nil
}

// completeRows keeps only rows with no NaN entry (complete-case analysis).
// Returns the filtered copy and the kept original row indices.
// The result may have zero rows. Complexity: O(r*c).
func completeRows(X Matrix) (*Dense, []int, error) {
	if err := ValidateNotNil(X); err != nil {
		return nil, nil, matrixErrorf(opCompleteRows, err)
	}
	d, err := asDense(X)
	if err != nil {
		return nil, nil, matrixErrorf(opCompleteRows, err)
	}
	kept := make([]int, 0, d.r)
	for i := 0; i < d.r; i++ {
		ok := true
		for _, v := range d.data[i*d.c : (i+1)*d.c] {
			if math.IsNaN(v) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, i)
		}
	}
	cols := make([]int, d.c)
	for j := range cols {
		cols[j] = j
	}
	out, err := d.Induced(kept, cols)
	if err != nil {
		return nil, nil, matrixErrorf(opCompleteRows, err)
	}

	return out, kept, nil
}
