// SPDX-License-Identifier: MIT
// Package matrix — public API facades.
//
// Purpose:
//   - Provide thin, well-documented entry points for common tasks across the package.
//   - Avoid any logic duplication — each facade delegates to the canonical implementation.
//   - Keep function names explicit and intention-revealing to improve discoverability.
//
// Determinism & Policy:
//   - Facades never change the loop orders or numeric policy of underlying kernels.
//   - Validation is performed in the kernels; facades only compose or forward.

package matrix

import (
	"sort"
)

// ---------- Constructors & Utilities ----------

// NewIdentity returns I_n (n×n identity; ones on the diagonal, zeros elsewhere).
// Complexity: O(n^2) zeroing (constructor) + O(n) writes on the diagonal.
//
// AI-Hints: The OLS reconciliation weight is exactly this matrix.
func NewIdentity(n int) (*Dense, error) {
	I, err := NewDense(n, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		I.data[i*n+i] = 1.0
	}

	return I, nil
}

// NewDiag returns the n×n diagonal matrix with v on the main diagonal.
// Complexity: O(n^2).
func NewDiag(v []float64) (*Dense, error) {
	n := len(v)
	D, err := NewDense(n, n)
	if err != nil {
		return nil, matrixErrorf("NewDiag", err)
	}
	for i := 0; i < n; i++ {
		D.data[i*n+i] = v[i]
	}

	return D, nil
}

// DiagOf returns a copy of the main diagonal of a square matrix.
// Complexity: O(n).
func DiagOf(m Matrix) ([]float64, error) {
	if err := ValidateSquareNonNil(m); err != nil {
		return nil, matrixErrorf("DiagOf", err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf("DiagOf", err)
	}
	out := make([]float64, d.r)
	for i := range out {
		out[i] = d.data[i*d.c+i]
	}

	return out, nil
}

// ---------- Linear Algebra compositions ----------

// CrossProd returns Xᵀ X (c×c). Deterministic composition: Transpose → Mul.
// Complexity: O(r*c^2).
func CrossProd(X Matrix) (*Dense, error) {
	Xt, err := Transpose(X)
	if err != nil {
		return nil, matrixErrorf("CrossProd", err)
	}
	G, err := Mul(Xt, X)
	if err != nil {
		return nil, matrixErrorf("CrossProd", err)
	}

	return G, nil
}

// EigenValuesSym returns the eigenvalues of a symmetric matrix sorted ascending.
// Complexity: as Eigen.
//
// AI-Hints: eigs[0] is the smallest eigenvalue, the quantity positive-definiteness checks need.
func EigenValuesSym(m Matrix, tol float64) ([]float64, error) {
	eigs, _, err := Eigen(m, tol, 0)
	if err != nil {
		return nil, err
	}
	sort.Float64s(eigs)

	return eigs, nil
}

// Symmetrize returns (m + mᵀ)/2. Deterministic composition: Transpose → Add → Scale.
//
// AI-Hints: Useful to repair asymmetry drift after long multiplication chains.
func Symmetrize(m Matrix) (*Dense, error) {
	mt, err := Transpose(m)
	if err != nil {
		return nil, matrixErrorf("Symmetrize", err)
	}
	sum, err := Add(m, mt)
	if err != nil {
		return nil, matrixErrorf("Symmetrize", err)
	}

	return Scale(sum, 0.5)
}

// RowSums returns vector r where r[i] = sum_j m[i,j].
// Implementation: MatVec(m, ones(cols)). No custom loops.
//
// AI-Hints: On a summation matrix this is the number of leaves each node aggregates.
func RowSums(m Matrix) ([]float64, error) {
	ones := make([]float64, m.Cols())
	for j := range ones {
		ones[j] = 1.0
	}

	return MatVec(m, ones)
}

// DiagQuadForm returns diag(A·diag(v)·Aᵀ), i.e. out[i] = Σ_j A[i,j]²·v[j].
// Avoids materializing the n×n product when only the diagonal is needed.
// Complexity: O(r*c).
func DiagQuadForm(a Matrix, v []float64) ([]float64, error) {
	if err := ValidateNotNil(a); err != nil {
		return nil, matrixErrorf("DiagQuadForm", err)
	}
	if err := ValidateVecLen(v, a.Cols()); err != nil {
		return nil, matrixErrorf("DiagQuadForm", err)
	}
	sq, err := ewSquare(a)
	if err != nil {
		return nil, matrixErrorf("DiagQuadForm", err)
	}

	return MatVec(sq, v)
}

// DiagSandwich returns diag(A·B·Aᵀ) for A (r×n) and square B (n×n).
// Complexity: O(r*n^2).
func DiagSandwich(a, b Matrix) ([]float64, error) {
	AB, err := Mul(a, b)
	if err != nil {
		return nil, matrixErrorf("DiagSandwich", err)
	}
	da, err := asDense(a)
	if err != nil {
		return nil, matrixErrorf("DiagSandwich", err)
	}
	out := make([]float64, da.r)
	var i, k int
	for i = 0; i < da.r; i++ {
		for k = 0; k < da.c; k++ {
			out[i] += AB.data[i*da.c+k] * da.data[i*da.c+k]
		}
	}

	return out, nil
}

// ---------- Sanitization & numeric compare ----------

// AllClose checks element-wise |a-b| ≤ atol + rtol*|b| for identical shapes.
// Returns (true,nil) if all elements satisfy the relation; (false,nil) otherwise.
//
// AI-Hints:
//   - AllClose with small atol/rtol is ideal for invariance tests (dense vs sparse projectors).
func AllClose(a, b Matrix, rtol, atol float64) (bool, error) {
	return ewAllClose(a, b, rtol, atol)
}

// ---------- Statistics (public surface → internal implementations) ----------

// CrossCovariance computes the uncentered second moment (Xᵀ X)/n of columns.
// Requires r >= 1; else ErrDimensionMismatch.
func CrossCovariance(X Matrix) (*Dense, error) { return crossCovariance(X) }

// CovToCor converts a covariance matrix into its correlation form.
func CovToCor(C Matrix) (*Dense, error) { return covToCor(C) }

// CompleteRows drops every row carrying a NaN and returns the kept row indices.
func CompleteRows(X Matrix) (*Dense, []int, error) { return completeRows(X) }

// ScaleCols returns X·diag(s) (column j multiplied by s[j]).
func ScaleCols(X Matrix, s []float64) (*Dense, error) { return ewScaleCols(X, s) }

// ScaleRows returns diag(s)·X (row i multiplied by s[i]).
func ScaleRows(X Matrix, s []float64) (*Dense, error) { return ewScaleRows(X, s) }

// Square returns X ⊙ X.
func Square(X Matrix) (*Dense, error) { return ewSquare(X) }
