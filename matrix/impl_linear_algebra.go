// SPDX-License-Identifier: MIT
// Package matrix provides universal operations on any Matrix implementation,
// including element-wise addition, subtraction, matrix multiplication,
// transpose, scaling, triangular factorization and symmetric eigen-decomposition.
// All functions perform strict fail-fast validation and return clear errors on
// dimension mismatches.
//
// Purpose:
//   - Declare canonical linear-algebra kernels used by the reconciliation backends.
//   - Define operation tags and shared constants for determinism and error reporting.
//
// Notes:
//   - Every kernel has a *Dense fast-path; any other Matrix is materialized once
//     through asDense so that inner loops never go through the interface.

package matrix

import (
	"fmt"
	"math"
)

// NormZero is the additive identity for norm and accumulation operations.
const NormZero = 0.0

// ZeroSum is the initial sum value for forward/backward substitution and similar.
const ZeroSum = 0.0

// ZeroPivot is the sentinel for detecting a zero pivot in LU routines.
const ZeroPivot = 0.0

// Operation name constants for unified error wrapping and reducing magic strings.
const (
	opAdd       = "Add"
	opSub       = "Sub"
	opMul       = "Mul"
	opTranspose = "Transpose"
	opScale     = "Scale"
	opEigen     = "Eigen"
	opLU        = "LU"
	opSolve     = "Solve"
	opMatVec    = "MatVec"
)

// matrixErrorf wraps err with an operation tag, preserving the original error via %w.
// The wrapper keeps a stable "Op: underlying" shape for uniform reporting across facades.
// Use only when err != nil to avoid creating a non-nil wrapper around a nil cause.
//
// Complexity:
//   - Time O(1), Space O(1).
//
// AI-Hints:
//   - Always gate calls with `if err != nil { return nil, matrixErrorf(tag, err) }`.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// asDense returns m itself when it is a *Dense, otherwise a materialized copy.
// Fixed i→j read order; the copy never applies the NaN/Inf policy (values are
// copied as stored).
func asDense(m Matrix) (*Dense, error) {
	if d, ok := m.(*Dense); ok {
		return d, nil
	}
	rows, cols := m.Rows(), m.Cols()
	out, err := newDenseZeroOK(rows, cols)
	if err != nil {
		return nil, err
	}
	var (
		i, j int
		v    float64
	)
	for i = 0; i < rows; i++ {
		for j = 0; j < cols; j++ {
			if v, err = m.At(i, j); err != nil {
				return nil, fmt.Errorf("At(%d,%d): %w", i, j, err)
			}
			out.data[i*cols+j] = v
		}
	}

	return out, nil
}

// addSub computes elementwise out = a + sign*b for sign ∈ {+1, -1}.
// Inputs must have identical shapes. A fresh Dense is allocated; operands are not mutated.
//
// Determinism:
//   - Single flat slice walk 0..(r*c−1).
//
// Complexity:
//   - Time O(r*c), Space O(r*c) for the new result.
func addSub(a, b Matrix, sign float64, opTag string) (*Dense, error) {
	if err := ValidateBinarySameShape(a, b); err != nil {
		return nil, matrixErrorf(opTag, err)
	}
	da, err := asDense(a)
	if err != nil {
		return nil, matrixErrorf(opTag, err)
	}
	db, err := asDense(b)
	if err != nil {
		return nil, matrixErrorf(opTag, err)
	}

	res, err := newDenseZeroOK(da.r, da.c)
	if err != nil {
		return nil, matrixErrorf(opTag, err)
	}
	for idx := range res.data { // deterministic 0..n-1
		res.data[idx] = da.data[idx] + sign*db.data[idx]
	}

	return res, nil
}

// Add computes the element-wise sum C = A + B and returns a fresh Dense result.
// Errors: ErrNilMatrix (nil input), ErrDimensionMismatch (shape mismatch).
// Complexity: O(r*c).
func Add(a, b Matrix) (*Dense, error) { return addSub(a, b, +1, opAdd) }

// Sub computes the element-wise difference C = A - B and returns a fresh Dense result.
// Errors: ErrNilMatrix (nil input), ErrDimensionMismatch (shape mismatch).
// Complexity: O(r*c).
func Sub(a, b Matrix) (*Dense, error) { return addSub(a, b, -1, opSub) }

// Mul performs standard matrix multiplication C = A × B (no aliasing).
// Implementation:
//   - Stage 1: Validate A,B (not nil) and inner dimensions (A.Cols == B.Rows).
//   - Stage 2: i→k→j with row-major strides, skipping zero A[i,k].
//
// Behavior highlights:
//   - Deterministic triple loop; one allocation for C.
//   - Skipping zeros matters here: summation matrices are mostly zeros.
//
// Errors:
//   - ErrNilMatrix (nil input), ErrDimensionMismatch (inner mismatch).
//
// Complexity:
//   - Time O(r*n*c), Space O(r*c).
func Mul(a, b Matrix) (*Dense, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	da, err := asDense(a)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	db, err := asDense(b)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}

	aRows, aCols, bCols := da.r, da.c, db.c
	res, err := newDenseZeroOK(aRows, bCols)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}

	var (
		i, j, k                            int
		av                                 float64
		rowOffsetA, rowOffsetB, rowOffsetR int
	)
	for i = 0; i < aRows; i++ {
		rowOffsetA = i * aCols
		rowOffsetR = i * bCols
		for k = 0; k < aCols; k++ {
			av = da.data[rowOffsetA+k]
			if av == 0 {
				continue
			}
			rowOffsetB = k * bCols
			for j = 0; j < bCols; j++ {
				res.data[rowOffsetR+j] += av * db.data[rowOffsetB+j]
			}
		}
	}

	return res, nil
}

// Transpose returns a new matrix with rows and columns swapped (mᵀ).
// Complexity: Time O(r*c), Space O(r*c).
func Transpose(m Matrix) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	dm, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}

	rows, cols := dm.r, dm.c
	res, err := newDenseZeroOK(cols, rows)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	// data[i*cols + j] → res.data[j*rows + i]
	var i, j, baseSrc int
	for i = 0; i < rows; i++ {
		baseSrc = i * cols
		for j = 0; j < cols; j++ {
			res.data[j*rows+i] = dm.data[baseSrc+j]
		}
	}

	return res, nil
}

// Scale returns a new matrix whose elements are alpha * m[i,j].
// Complexity: O(r*c).
func Scale(m Matrix, alpha float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	dm, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	res, err := newDenseZeroOK(dm.r, dm.c)
	if err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	for idx := range res.data {
		res.data[idx] = dm.data[idx] * alpha
	}

	return res, nil
}

// MatVec computes y = m * x for a column vector x.
//
// Contract: m non-nil; len(x) == m.Cols().
// Determinism: fixed i→j loop order.
// Complexity: Time O(r*c), Space O(r) for y.
func MatVec(m Matrix, x []float64) ([]float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	if err := ValidateVecLen(x, m.Cols()); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}

	y := make([]float64, d.r)
	var (
		i, j, base int
		acc, xv    float64
	)
	for i = 0; i < d.r; i++ {
		acc = ZeroSum
		base = i * d.c
		for j = 0; j < d.c; j++ {
			xv = x[j]
			if xv != 0 {
				acc += d.data[base+j] * xv
			}
		}
		y[i] = acc
	}

	return y, nil
}

// Eigen computes eigenvalues and eigenvectors of a symmetric matrix via Jacobi rotations.
// Implementation:
//   - Stage 1: Validate symmetric square input within tol.
//   - Stage 2: Repeatedly pick (p,q) with the largest |A[p,q]| in i→j order and apply a
//     Jacobi rotation, accumulating rotations into Q.
//   - Stage 3: Stop once max|A[p,q]| ≤ tol·scale, scale = max(1, ‖A‖_F).
//
// Inputs:
//   - m: symmetric Matrix (within tol·scale).
//   - tol: relative convergence threshold (typ. 1e-12..1e-14 for float64).
//   - maxIter: cap on rotations; ≤0 selects 100·n² (at least 100).
//
// Returns:
//   - []float64: eigenvalues (diagonal of the rotated matrix, unsorted).
//   - *Dense: Q whose columns are eigenvectors.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrAsymmetry, ErrMatrixEigenFailed (no convergence).
//
// Complexity:
//   - Time O(n) per rotation for the update plus O(n²) pivot scan, Space O(n²).
//
// AI-Hints:
//   - Positive-definiteness checks only need the eigenvalues; see EigenValuesSym.
func Eigen(m Matrix, tol float64, maxIter int) ([]float64, *Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	src, err := asDense(m)
	if err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	tol = math.Abs(tol)
	scale := math.Max(1, frobenius(src))
	if err = ValidateSymmetric(src, tol*scale); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}

	n := src.r
	if maxIter <= 0 {
		maxIter = 100 * n * n
		if maxIter < 100 {
			maxIter = 100
		}
	}
	A := src.Clone().(*Dense)
	Q, err := NewIdentity(n)
	if err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}

	var (
		iter, i, p, q      int
		maxOff             float64
		app, aqq, apq      float64
		aip, aiq, qip, qiq float64
		theta, t, c, s     float64
		limit              = tol * scale
	)
	for iter = 0; iter < maxIter; iter++ {
		maxOff, p, q = maxOffDiagonal(A)
		if maxOff <= limit {
			break
		}

		app = A.data[p*n+p]
		aqq = A.data[q*n+q]
		apq = A.data[p*n+q]
		theta = (aqq - app) / (2 * apq)
		t = math.Copysign(1.0/(math.Abs(theta)+math.Hypot(theta, 1)), theta)
		c = 1.0 / math.Sqrt(t*t+1)
		s = t * c

		for i = 0; i < n; i++ {
			if i == p || i == q {
				continue
			}
			aip = A.data[i*n+p]
			aiq = A.data[i*n+q]
			A.data[i*n+p], A.data[p*n+i] = c*aip-s*aiq, c*aip-s*aiq
			A.data[i*n+q], A.data[q*n+i] = s*aip+c*aiq, s*aip+c*aiq
		}
		A.data[p*n+p] = c*c*app - 2*c*s*apq + s*s*aqq
		A.data[q*n+q] = s*s*app + 2*c*s*apq + c*c*aqq
		A.data[p*n+q], A.data[q*n+p] = 0, 0

		for i = 0; i < n; i++ {
			qip = Q.data[i*n+p]
			qiq = Q.data[i*n+q]
			Q.data[i*n+p] = c*qip - s*qiq
			Q.data[i*n+q] = s*qip + c*qiq
		}
	}
	if maxOff, _, _ = maxOffDiagonal(A); maxOff > limit {
		return nil, nil, matrixErrorf(opEigen, fmt.Errorf("%d rotations, off=%g: %w", maxIter, maxOff, ErrMatrixEigenFailed))
	}

	eigs := make([]float64, n)
	for i = 0; i < n; i++ {
		eigs[i] = A.data[i*n+i]
	}

	return eigs, Q, nil
}

// maxOffDiagonal scans the strict upper triangle in i→j order and returns the
// largest |A[p,q]| with its position (first wins on ties).
func maxOffDiagonal(A *Dense) (float64, int, int) {
	n := A.r
	var (
		i, j, p, q int
		best, off  float64
	)
	for i = 0; i < n; i++ {
		for j = i + 1; j < n; j++ {
			off = math.Abs(A.data[i*n+j])
			if off > best {
				best, p, q = off, i, j
			}
		}
	}

	return best, p, q
}

// frobenius returns ‖d‖_F.
func frobenius(d *Dense) float64 {
	var acc float64
	for _, v := range d.data {
		acc += v * v
	}

	return math.Sqrt(acc)
}

// LU computes P·A = L·U with partial (row) pivoting; L has a unit diagonal.
// Implementation:
//   - Stage 1: Validate m (not nil, square); copy A into a working buffer.
//   - Stage 2: For each column k pick the row with the largest |a[i,k]| (first wins on
//     ties), swap, eliminate below the pivot.
//
// Returns:
//   - L (unit lower), U (upper), perm where row i of P·A is row perm[i] of A.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrSingular (pivot column entirely zero).
//
// Determinism:
//   - Pivot choice depends only on values; ties resolved by lowest row index.
//
// Complexity:
//   - Time O(n^3), Space O(n^2).
func LU(m Matrix) (*Dense, *Dense, []int, error) {
	if err := ValidateSquareNonNil(m); err != nil {
		return nil, nil, nil, matrixErrorf(opLU, err)
	}
	src, err := asDense(m)
	if err != nil {
		return nil, nil, nil, matrixErrorf(opLU, err)
	}
	n := src.r
	work := src.Clone().(*Dense)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	var (
		i, j, k, pivRow int
		best, v, f      float64
	)
	for k = 0; k < n; k++ {
		pivRow, best = k, math.Abs(work.data[k*n+k])
		for i = k + 1; i < n; i++ {
			if v = math.Abs(work.data[i*n+k]); v > best {
				pivRow, best = i, v
			}
		}
		if best == ZeroPivot {
			return nil, nil, nil, matrixErrorf(opLU, fmt.Errorf("column %d: %w", k, ErrSingular))
		}
		if pivRow != k {
			for j = 0; j < n; j++ {
				work.data[k*n+j], work.data[pivRow*n+j] = work.data[pivRow*n+j], work.data[k*n+j]
			}
			perm[k], perm[pivRow] = perm[pivRow], perm[k]
		}
		for i = k + 1; i < n; i++ {
			f = work.data[i*n+k] / work.data[k*n+k]
			work.data[i*n+k] = f // multiplier stored in the strict lower part
			if f == 0 {
				continue
			}
			for j = k + 1; j < n; j++ {
				work.data[i*n+j] -= f * work.data[k*n+j]
			}
		}
	}

	L, _ := NewIdentity(n)
	U, _ := NewDense(n, n)
	for i = 0; i < n; i++ {
		for j = 0; j < n; j++ {
			if j < i {
				L.data[i*n+j] = work.data[i*n+j]
			} else {
				U.data[i*n+j] = work.data[i*n+j]
			}
		}
	}

	return L, U, perm, nil
}

// Solve returns X with A·X = B using the pivoted LU factorization of A.
// One factorization, then B.Cols() triangular solve pairs.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrDimensionMismatch (B.Rows != n), ErrSingular.
//
// Complexity:
//   - Time O(n^3 + n^2·k), Space O(n^2 + n·k).
func Solve(a, b Matrix) (*Dense, error) {
	if err := ValidateNotNil(b); err != nil {
		return nil, matrixErrorf(opSolve, err)
	}
	L, U, perm, err := LU(a)
	if err != nil {
		return nil, matrixErrorf(opSolve, err)
	}
	n := L.r
	if b.Rows() != n {
		return nil, matrixErrorf(opSolve, fmt.Errorf("rhs rows %d want %d: %w", b.Rows(), n, ErrDimensionMismatch))
	}
	db, err := asDense(b)
	if err != nil {
		return nil, matrixErrorf(opSolve, err)
	}

	k := db.c
	X, err := newDenseZeroOK(n, k)
	if err != nil {
		return nil, matrixErrorf(opSolve, err)
	}
	var (
		col, i, j int
		sum       float64
		y         = make([]float64, n)
	)
	for col = 0; col < k; col++ {
		// Forward: L*y = P*b.
		for i = 0; i < n; i++ {
			sum = db.data[perm[i]*k+col]
			for j = 0; j < i; j++ {
				sum -= L.data[i*n+j] * y[j]
			}
			y[i] = sum
		}
		// Backward: U*x = y.
		for i = n - 1; i >= 0; i-- {
			sum = y[i]
			for j = i + 1; j < n; j++ {
				sum -= U.data[i*n+j] * X.data[j*k+col]
			}
			X.data[i*k+col] = sum / U.data[i*n+i]
		}
	}

	return X, nil
}
