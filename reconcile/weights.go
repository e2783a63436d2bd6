// SPDX-License-Identifier: MIT
// Package: reconcile
//
// Purpose:
//   - Assemble the residual matrix, estimate its covariance and derive the weight
//     matrix W of every min_trace method.
//   - Reject weights that are not positive definite before any solve.
//
// Determinism:
//   - Residual columns follow KeyData node order; rows keep observation order.

package reconcile

import (
	"fmt"
	"math"

	"github.com/katalvlaran/coherent/forecast"
	"github.com/katalvlaran/coherent/hierarchy"
	"github.com/katalvlaran/coherent/matrix"
)

const (
	opResiduals = "residuals"
	opWeights   = "weights"
	opShrink    = "shrink"
	opPD        = "positiveDefinite"
)

// residualSet is the complete-case residual matrix (obs × nodes).
type residualSet struct {
	R       *matrix.Dense
	Dropped int
}

// residualMatrix stacks the residuals of every model column-wise.
// Non-finite entries count as missing; any observation row with a missing entry is
// dropped (complete-case analysis).
//
// Errors:
//   - ErrResidualAlignment when series lengths differ (names both nodes).
//   - ErrInsufficientResiduals when no complete observation remains.
func residualMatrix(kd hierarchy.KeyData, models []forecast.Model) (*residualSet, error) {
	n := len(models)
	if n == 0 {
		return nil, reconcileErrorf(opResiduals, ErrModelCount)
	}
	cols := make([][]float64, n)
	for i, m := range models {
		r, err := m.Residuals()
		if err != nil {
			return nil, reconcileErrorf(opResiduals, fmt.Errorf("node %s: %w", kd.ID(i), err))
		}
		if i > 0 && len(r) != len(cols[0]) {
			return nil, reconcileErrorf(opResiduals, fmt.Errorf("node %s has %d observations, node %s has %d: %w",
				kd.ID(0), len(cols[0]), kd.ID(i), len(r), ErrResidualAlignment))
		}
		cols[i] = r
	}
	T := len(cols[0])
	if T == 0 {
		return nil, reconcileErrorf(opResiduals, fmt.Errorf("no observations: %w", ErrInsufficientResiduals))
	}

	data := make([]float64, T*n)
	for i, c := range cols {
		for t, v := range c {
			if math.IsInf(v, 0) {
				v = math.NaN()
			}
			data[t*n+i] = v
		}
	}
	raw, err := matrix.NewDenseFrom(T, n, data)
	if err != nil {
		return nil, reconcileErrorf(opResiduals, err)
	}
	R, kept, err := matrix.CompleteRows(raw)
	if err != nil {
		return nil, reconcileErrorf(opResiduals, err)
	}
	if len(kept) == 0 {
		return nil, reconcileErrorf(opResiduals,
			fmt.Errorf("all %d observations have a missing value: %w", T, ErrInsufficientResiduals))
	}

	return &residualSet{R: R, Dropped: T - len(kept)}, nil
}

// weights is a weight matrix and, for mint_shrink, the shrinkage intensity.
type weights struct {
	W      *matrix.Dense
	Lambda float64
}

// weightMatrix builds W for the given method.
//
//   - ols:         I
//   - wls_var:     diag(covm)
//   - wls_struct:  diag(row sums of the dummy summation matrix)
//   - mint_cov:    covm
//   - mint_shrink: λ·diag(covm) + (1-λ)·covm
//
// covm = RᵗR/n over the complete residual rows; res may be nil for ols/wls_struct.
func weightMatrix(method Method, kd hierarchy.KeyData, res *residualSet) (*weights, error) {
	n := len(kd.Nodes)
	switch method {
	case MethodOLS:
		I, err := matrix.NewIdentity(n)
		if err != nil {
			return nil, reconcileErrorf(opWeights, err)
		}

		return &weights{W: I}, nil

	case MethodWLSStruct:
		dummy, err := hierarchy.SummationDummy(kd)
		if err != nil {
			return nil, reconcileErrorf(opWeights, err)
		}
		counts, err := matrix.RowSums(dummy)
		if err != nil {
			return nil, reconcileErrorf(opWeights, err)
		}
		W, err := matrix.NewDiag(counts)
		if err != nil {
			return nil, reconcileErrorf(opWeights, err)
		}

		return &weights{W: W}, nil

	case MethodWLSVar, MethodMinTCov, MethodMinTShrink:
		if res == nil {
			return nil, reconcileErrorf(opWeights, fmt.Errorf("%s: %w", method, ErrInsufficientResiduals))
		}
		covm, err := matrix.CrossCovariance(res.R)
		if err != nil {
			return nil, reconcileErrorf(opWeights, err)
		}
		switch method {
		case MethodWLSVar:
			d, err := matrix.DiagOf(covm)
			if err != nil {
				return nil, reconcileErrorf(opWeights, err)
			}
			W, err := matrix.NewDiag(d)
			if err != nil {
				return nil, reconcileErrorf(opWeights, err)
			}

			return &weights{W: W}, nil
		case MethodMinTCov:
			return &weights{W: covm}, nil
		default:
			return shrinkEstimator(kd, res.R, covm)
		}

	default:
		return nil, reconcileErrorf(opWeights, fmt.Errorf("%q: %w", method, ErrUnknownMethod))
	}
}

// shrinkEstimator shrinks covm toward its diagonal target with the Schäfer–Strimmer
// analytic intensity.
//
// Implementation:
//   - Stage 1: xs = R scaled column-wise by 1/sqrt(diag(covm)) (no centering).
//   - Stage 2: unbiased variance of the correlations,
//     v = ((Xs²)ᵗ(Xs²) − (1/n)(XsᵗXs)²) / (n(n−1)), with diag(v) = 0.
//   - Stage 3: d = (cor(covm) − I)²; λ = Σv / Σd clamped to [0,1] (λ = 1 when Σd = 0,
//     i.e. covm is already diagonal).
//   - Stage 4: W = λ·diag(covm) + (1−λ)·covm.
//
// Errors:
//   - ErrInsufficientResiduals with fewer than two complete observations.
//   - ErrIllConditionedWeight when a node has zero residual variance.
func shrinkEstimator(kd hierarchy.KeyData, R, covm *matrix.Dense) (*weights, error) {
	nObs, p := R.Rows(), R.Cols()
	if nObs < 2 {
		return nil, reconcileErrorf(opShrink, fmt.Errorf("%d complete observations, need 2: %w", nObs, ErrInsufficientResiduals))
	}
	diag, err := matrix.DiagOf(covm)
	if err != nil {
		return nil, reconcileErrorf(opShrink, err)
	}
	inv := make([]float64, p)
	for j, s := range diag {
		if !(s > 0) {
			return nil, reconcileErrorf(opShrink, fmt.Errorf("node %s has zero residual variance: %w", kd.ID(j), ErrIllConditionedWeight))
		}
		inv[j] = 1 / math.Sqrt(s)
	}

	// Stage 1
	xs, err := matrix.ScaleCols(R, inv)
	if err != nil {
		return nil, reconcileErrorf(opShrink, err)
	}
	// Stage 2
	xs2, err := matrix.Square(xs)
	if err != nil {
		return nil, reconcileErrorf(opShrink, err)
	}
	a, err := matrix.CrossProd(xs2)
	if err != nil {
		return nil, reconcileErrorf(opShrink, err)
	}
	b, err := matrix.CrossProd(xs)
	if err != nil {
		return nil, reconcileErrorf(opShrink, err)
	}
	b2, err := matrix.Square(b)
	if err != nil {
		return nil, reconcileErrorf(opShrink, err)
	}
	nf := float64(nObs)
	b2, err = matrix.Scale(b2, 1/nf)
	if err != nil {
		return nil, reconcileErrorf(opShrink, err)
	}
	v, err := matrix.Sub(a, b2)
	if err != nil {
		return nil, reconcileErrorf(opShrink, err)
	}
	// Stage 3
	corm, err := matrix.CovToCor(covm)
	if err != nil {
		return nil, reconcileErrorf(opShrink, err)
	}
	var sumV, sumD, x float64
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			if i == j {
				continue
			}
			x, _ = v.At(i, j)
			sumV += x
			x, _ = corm.At(i, j)
			sumD += x * x
		}
	}
	sumV /= nf * (nf - 1)
	lambda := 1.0
	if sumD > 0 {
		lambda = math.Max(0, math.Min(1, sumV/sumD))
	}

	// Stage 4
	target, err := matrix.NewDiag(diag)
	if err != nil {
		return nil, reconcileErrorf(opShrink, err)
	}
	st, err := matrix.Scale(target, lambda)
	if err != nil {
		return nil, reconcileErrorf(opShrink, err)
	}
	sc, err := matrix.Scale(covm, 1-lambda)
	if err != nil {
		return nil, reconcileErrorf(opShrink, err)
	}
	W, err := matrix.Add(st, sc)
	if err != nil {
		return nil, reconcileErrorf(opShrink, err)
	}

	return &weights{W: W, Lambda: lambda}, nil
}

// checkPositiveDefinite rejects W when its smallest eigenvalue is below threshold.
func checkPositiveDefinite(W *matrix.Dense, tol, threshold float64) error {
	if err := matrix.ValidateFinite(W); err != nil {
		return reconcileErrorf(opPD, fmt.Errorf("%v: %w", err, ErrIllConditionedWeight))
	}
	eigs, err := matrix.EigenValuesSym(W, tol)
	if err != nil {
		return reconcileErrorf(opPD, fmt.Errorf("%v: %w", err, ErrIllConditionedWeight))
	}
	if eigs[0] < threshold {
		return reconcileErrorf(opPD, fmt.Errorf("smallest eigenvalue %.3g < %.3g: %w", eigs[0], threshold, ErrIllConditionedWeight))
	}

	return nil
}
