// SPDX-License-Identifier: MIT

// Package reconcile makes hierarchical forecasts coherent.
//
// Given a hierarchy (hierarchy.KeyData) and one fitted model per node, Run produces
// forecasts where every aggregate equals the sum of the leaves it covers.
//
// Strategies:
//   - Unreconciled: base forecasts, untouched.
//   - BottomUp: leaves only; means and variances summed through S.
//   - MinTrace{Method}: ỹ = S·(SᵗW⁻¹S)⁻¹SᵗW⁻¹·ŷ with W chosen by Method:
//     ols (I), wls_var (residual variances), wls_struct (leaf counts),
//     mint_cov (residual covariance), mint_shrink (shrunk covariance).
//
// Two projector backends compute the same P. The dense one solves with LU on
// the n×n weight matrix; the sparse one builds selection matrices as CSR and
// needs a single Cholesky solve on the aggregate block. MinTrace.Sparse, then
// WithSparse, then SparseCapable decide which one runs.
//
// Only normal forecasts sharing a single Interval can be reconciled. Every failure is
// fatal for the call and matches one of the exported sentinels with errors.Is.
//
// Example:
//
//	res, err := reconcile.Run(ctx, reconcile.Input{
//		Keys:     kd,
//		Models:   models,
//		Strategy: reconcile.MinTrace{Method: reconcile.MethodMinTShrink},
//		Horizon:  12,
//	}, reconcile.WithLogger(logger))
package reconcile
