// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Provide small, *private* element-wise and broadcast kernels (ew*) to avoid
//     duplicating tight loops across higher-level ops (statistics, weighting).
//   - Keep all loops deterministic and cache-friendly over flat row-major buffers.
//
// Design:
//   - All ew* are UNEXPORTED by design (internal micro-kernels).
//   - Public API uses these via thin wrappers (see api.go, impl_statistics.go).
//
// AI-Hints:
//   - Keep broadcast arrays (colMeans/scale) precomputed and reused across calls.

package matrix

import (
	"math"
)

// ewScaleCols computes out[i,j] = X[i,j] * scale[j].
// Time: O(r*c). Space: O(r*c).
//
// AI-Hint: use factors as 1/std for z-scoring, or 0 for degenerate columns.
func ewScaleCols(X Matrix, scale []float64) (*Dense, error) {
	if err := ValidateNotNil(X); err != nil {
		return nil, matrixErrorf("scaleCols", err)
	}
	d, err := asDense(X)
	if err != nil {
		return nil, matrixErrorf("scaleCols", err)
	}
	if err = ValidateVecLen(scale, d.c); err != nil {
		return nil, matrixErrorf("scaleCols", err)
	}
	out, err := newDenseZeroOK(d.r, d.c)
	if err != nil {
		return nil, matrixErrorf("scaleCols", err)
	}
	for i := 0; i < d.r; i++ {
		base := i * d.c
		for j := 0; j < d.c; j++ {
			out.data[base+j] = d.data[base+j] * scale[j]
		}
	}

	return out, nil
}

// ewScaleRows computes out[i,j] = X[i,j] * scale[i].
// Time: O(r*c). Space: O(r*c).
func ewScaleRows(X Matrix, scale []float64) (*Dense, error) {
	if err := ValidateNotNil(X); err != nil {
		return nil, matrixErrorf("scaleRows", err)
	}
	d, err := asDense(X)
	if err != nil {
		return nil, matrixErrorf("scaleRows", err)
	}
	if err = ValidateVecLen(scale, d.r); err != nil {
		return nil, matrixErrorf("scaleRows", err)
	}
	out, err := newDenseZeroOK(d.r, d.c)
	if err != nil {
		return nil, matrixErrorf("scaleRows", err)
	}
	for i := 0; i < d.r; i++ {
		base := i * d.c
		for j := 0; j < d.c; j++ {
			out.data[base+j] = d.data[base+j] * scale[i]
		}
	}

	return out, nil
}

// ewSquare computes out[i,j] = X[i,j]². Time: O(r*c).
func ewSquare(X Matrix) (*Dense, error) {
	if err := ValidateNotNil(X); err != nil {
		return nil, matrixErrorf("square", err)
	}
	d, err := asDense(X)
	if err != nil {
		return nil, matrixErrorf("square", err)
	}
	out, err := newDenseZeroOK(d.r, d.c)
	if err != nil {
		return nil, matrixErrorf("square", err)
	}
	for idx, v := range d.data {
		out.data[idx] = v * v
	}

	return out, nil
}

// ewAllClose checks element-wise |a-b| ≤ atol + rtol*|b| for identical shapes.
// Returns (true,nil) if all elements satisfy the relation; (false,nil) otherwise.
// NaN != anything. Time: O(r*c). Space: O(1) for Dense inputs.
//
// Policy:
//   - a and b must be non-nil and have identical shapes.
//   - rtol, atol are treated as |rtol|, |atol| (negative values are normalized).
func ewAllClose(a, b Matrix, rtol, atol float64) (bool, error) {
	if math.IsNaN(rtol) || math.IsNaN(atol) || math.IsInf(rtol, 0) || math.IsInf(atol, 0) {
		return false, matrixErrorf("AllClose", ErrNaNInf)
	}
	rtol, atol = math.Abs(rtol), math.Abs(atol)

	if err := ValidateBinarySameShape(a, b); err != nil {
		return false, matrixErrorf("AllClose", err)
	}
	da, err := asDense(a)
	if err != nil {
		return false, matrixErrorf("AllClose", err)
	}
	db, err := asDense(b)
	if err != nil {
		return false, matrixErrorf("AllClose", err)
	}
	for idx := range da.data {
		if !(math.Abs(da.data[idx]-db.data[idx]) <= atol+rtol*math.Abs(db.data[idx])) {
			return false, nil // early-exit on first violation (NaN fails the comparison)
		}
	}

	return true, nil
}
