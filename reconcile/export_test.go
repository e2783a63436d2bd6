// SPDX-License-Identifier: MIT

// Test-only access to unexported reconcile internals; compiled with the test binary.

package reconcile

import (
	"github.com/katalvlaran/coherent/hierarchy"
	"github.com/katalvlaran/coherent/matrix"
)

// WeightMatrixForTest exposes weightMatrix on a raw residual matrix (nil for ols/wls_struct).
func WeightMatrixForTest(method Method, kd hierarchy.KeyData, R *matrix.Dense) (*matrix.Dense, float64, error) {
	var res *residualSet
	if R != nil {
		res = &residualSet{R: R}
	}
	w, err := weightMatrix(method, kd, res)
	if err != nil {
		return nil, 0, err
	}

	return w.W, w.Lambda, nil
}

// DenseProjectorForTest exposes denseProjector.
func DenseProjectorForTest(sum *hierarchy.Summation, W *matrix.Dense) (*matrix.Dense, error) {
	return denseProjector(sum, W)
}

// SparseProjectorForTest exposes sparseProjector.
func SparseProjectorForTest(sum *hierarchy.Summation, W *matrix.Dense) (*matrix.Dense, error) {
	return sparseProjector(sum, W)
}

// CheckPositiveDefiniteForTest exposes checkPositiveDefinite with default tolerances.
func CheckPositiveDefiniteForTest(W *matrix.Dense) error {
	return checkPositiveDefinite(W, DefaultEigenTolerance, DefaultPDThreshold)
}
