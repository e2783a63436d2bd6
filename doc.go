// SPDX-License-Identifier: MIT

// Package coherent reconciles forecasts made over a hierarchy of time series so that
// every aggregate equals the sum of the series beneath it.
//
// 🚀 What is in the box?
//
//	• mable/     — model tables: keyed rows of fitted models sharing one response
//	• hierarchy/ — aggregation key structure, parent/child forest, summation matrix S
//	• forecast/  — normal forecast distributions, intervals, the Model interface
//	• reconcile/ — bottom_up and min_trace (ols, wls_var, wls_struct, mint_cov,
//	               mint_shrink) on dense or sparse projectors
//	• matrix/    — dense and CSR matrices, LU, Jacobi eigenvalues, covariance helpers
//	• panel/     — YAML panels in, reconciled forecasts out
//	• metrics/   — Prometheus collectors for reconciliation runs
//	• config/    — layered CLI configuration
//
// The coherent command (cmd/coherent) wires them together:
//
//	coherent reconcile --input panel.yaml --strategy min_trace --method mint_shrink --horizon 4
//
// Typical library use:
//
//	mt, _ := mable.Build(frame, []string{"state", "region"}, "ets")
//	mt, _ = mt.Reconcile("ets", reconcile.MinTrace{Method: reconcile.MethodMinTShrink})
//	res, _ := mt.Forecast(ctx, "ets", 8, reconcile.WithLogger(logger))
//	fc, _ := res.Lookup("state=<aggregated>/region=<aggregated>")
//
// Only normal forecasts on a single temporal granularity are reconciled; every
// failure is reported through sentinel errors matched with errors.Is.
package coherent
