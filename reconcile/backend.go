// SPDX-License-Identifier: MIT
// Package: reconcile
//
// Projector backends. Both return the m×n matrix P of the min_trace solution
// ỹ = S·P·ŷ for n nodes and m leaves; they differ only in factorization route.
//
//   - dense:  P = (SᵗW⁻¹S)⁻¹ SᵗW⁻¹, two LU solves on n×n and m×m systems.
//   - sparse: P = J − J·W·Uᵗ·(U·W·Uᵗ)⁻¹·U, where J selects the bottom rows and
//     U = [I | −S_agg] (columns in node order) annihilates coherent vectors; the only
//     solve is an (n−m)×(n−m) Cholesky.
//
// AI-Hints:
//   - The sparse route never forms W⁻¹; it pays off once n grows and S is mostly zeros.

package reconcile

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/coherent/hierarchy"
	"github.com/katalvlaran/coherent/matrix"
)

const (
	opDense  = "denseProjector"
	opSparse = "sparseProjector"
)

// denseProjector computes P = (SᵗW⁻¹S)⁻¹SᵗW⁻¹.
//
// Implementation:
//   - Stage 1: X = W⁻¹S via Solve(W, S); R = Xᵗ = SᵗW⁻¹ (W symmetric).
//   - Stage 2: P = Solve(R·S, R).
//
// Complexity: O(n³ + n²m + m³).
func denseProjector(sum *hierarchy.Summation, W *matrix.Dense) (*matrix.Dense, error) {
	X, err := matrix.Solve(W, sum.S)
	if err != nil {
		return nil, reconcileErrorf(opDense, fmt.Errorf("%v: %w", err, ErrIllConditionedWeight))
	}
	R, err := matrix.Transpose(X)
	if err != nil {
		return nil, reconcileErrorf(opDense, err)
	}
	RS, err := matrix.Mul(R, sum.S)
	if err != nil {
		return nil, reconcileErrorf(opDense, err)
	}
	P, err := matrix.Solve(RS, R)
	if err != nil {
		return nil, reconcileErrorf(opDense, fmt.Errorf("%v: %w", err, ErrIllConditionedWeight))
	}

	return P, nil
}

// selectionMatrices builds J (m×n) and U ((n−m)×n) as CSR.
//   - J[col(leaf), leaf] = 1.
//   - U[k, agg_k] = 1 and U[k, leaf] = −S[agg_k, col(leaf)] for the k-th aggregate row.
func selectionMatrices(sum *hierarchy.Summation) (J, U *matrix.CSR, err error) {
	n, m := sum.S.Rows(), sum.S.Cols()
	jt := make([]matrix.Triplet, 0, m)
	for c, leaf := range sum.Leaves {
		jt = append(jt, matrix.Triplet{Row: c, Col: leaf, Value: 1})
	}
	if J, err = matrix.NewCSR(m, n, jt); err != nil {
		return nil, nil, err
	}

	Ssp, err := sum.Sparse()
	if err != nil {
		return nil, nil, err
	}
	aggs := sum.AggregateRows()
	var ut []matrix.Triplet
	for k, row := range aggs {
		ut = append(ut, matrix.Triplet{Row: k, Col: row, Value: 1})
		Ssp.RowNonZeros(row, func(c int, v float64) {
			ut = append(ut, matrix.Triplet{Row: k, Col: sum.Leaves[c], Value: -v})
		})
	}
	if U, err = matrix.NewCSR(len(aggs), n, ut); err != nil {
		return nil, nil, err
	}

	return J, U, nil
}

// sparseProjector computes P = J − J·W·Uᵗ·(U·W·Uᵗ)⁻¹·U.
//
// Implementation:
//   - Stage 1: build J and U; with no aggregate row P = J.
//   - Stage 2: WUt = (U·W)ᵗ (W symmetric), M = U·WUt, symmetrised.
//   - Stage 3: Cholesky-factor M (gonum) and solve M·X = U.
//   - Stage 4: P = J − (J·WUt)·X.
//
// Errors:
//   - ErrIllConditionedWeight when M is not positive definite.
func sparseProjector(sum *hierarchy.Summation, W *matrix.Dense) (*matrix.Dense, error) {
	// Stage 1
	J, U, err := selectionMatrices(sum)
	if err != nil {
		return nil, reconcileErrorf(opSparse, err)
	}
	k := U.Rows()
	if k == 0 {
		return J.ToDense(), nil
	}

	// Stage 2
	UW, err := U.MulDense(W)
	if err != nil {
		return nil, reconcileErrorf(opSparse, err)
	}
	WUt, err := matrix.Transpose(UW)
	if err != nil {
		return nil, reconcileErrorf(opSparse, err)
	}
	M, err := U.MulDense(WUt)
	if err != nil {
		return nil, reconcileErrorf(opSparse, err)
	}
	if M, err = matrix.Symmetrize(M); err != nil {
		return nil, reconcileErrorf(opSparse, err)
	}

	// Stage 3
	var chol mat.Cholesky
	if ok := chol.Factorize(mat.NewSymDense(k, M.RawRowMajor())); !ok {
		return nil, reconcileErrorf(opSparse, fmt.Errorf("U·W·Uᵗ (%dx%d) is not positive definite: %w", k, k, ErrIllConditionedWeight))
	}
	n := U.Cols()
	var x mat.Dense
	if err = chol.SolveTo(&x, mat.NewDense(k, n, U.ToDense().RawRowMajor())); err != nil {
		return nil, reconcileErrorf(opSparse, fmt.Errorf("%v: %w", err, ErrIllConditionedWeight))
	}
	X, err := fromGonum(&x)
	if err != nil {
		return nil, reconcileErrorf(opSparse, err)
	}

	// Stage 4
	JWUt, err := J.MulDense(WUt)
	if err != nil {
		return nil, reconcileErrorf(opSparse, err)
	}
	corr, err := matrix.Mul(JWUt, X)
	if err != nil {
		return nil, reconcileErrorf(opSparse, err)
	}
	P, err := matrix.Sub(J.ToDense(), corr)
	if err != nil {
		return nil, reconcileErrorf(opSparse, err)
	}

	return P, nil
}

// fromGonum copies a gonum Dense into a matrix.Dense, honouring its stride.
func fromGonum(g *mat.Dense) (*matrix.Dense, error) {
	raw := g.RawMatrix()
	data := make([]float64, raw.Rows*raw.Cols)
	for i := 0; i < raw.Rows; i++ {
		copy(data[i*raw.Cols:(i+1)*raw.Cols], raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols])
	}

	return matrix.NewDenseFrom(raw.Rows, raw.Cols, data)
}
