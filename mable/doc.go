// SPDX-License-Identifier: MIT

// Package mable provides the model table: one row per series, key columns that
// place the series in a hierarchy, and one or more columns of fitted models that all
// describe the same response variable.
//
// A Frame is the minimal tabular substrate underneath: ordered named columns of
// equal length, with Select, Rename, Mutate and Filter. Verbs applied to a
// ModelTable re-run its invariants (unique key, single response, at least one model
// column); ApplyOrPlain falls back to the plain Frame when the result no longer
// qualifies.
//
// Reconcile tags a model column with a reconcile.Strategy without computing
// anything; Forecast then forecasts the column and reconciles it over the key
// structure of the table.
//
//	mt, _ := mable.Build(frame, []string{"state", "region"}, "ets")
//	mt, _ = mt.Reconcile("ets", reconcile.MinTrace{Method: reconcile.MethodMinTShrink})
//	res, _ := mt.Forecast(ctx, "ets", 12)
package mable
