// SPDX-License-Identifier: MIT

// Package matrix is the numeric backend of the reconciliation engine.
//
// The matrix package provides:
//
//   - Dense, a row-major float64 matrix with safe accessors and a finite-value
//     policy, plus the kernels built over it (Add, Sub, Mul, Transpose, Scale,
//     MatVec, LU, Solve and a Jacobi Eigen for symmetric input).
//   - Statistical transforms used to derive reconciliation weights from residuals
//     (CompleteRows, CrossCovariance, CovToCor).
//   - CSR, a read-only compressed sparse row matrix for summation and selection
//     matrices, with CSR·Dense products and row-pattern lookups.
//
// All kernels return fresh results, never mutate operands and wrap failures with
// an operation tag around one of the sentinels in errors.go, so callers match
// with errors.Is.
//
// Loops run in fixed i→j (or i→k→j) order, so results are bit-for-bit
// reproducible across runs for the same inputs.
package matrix
