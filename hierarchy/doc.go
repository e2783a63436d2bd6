// SPDX-License-Identifier: MIT

// Package hierarchy turns a grouped key table into the structures reconciliation
// runs on.
//
// A KeyData lists every node of the hierarchy (one per distinct key combination,
// aggregated levels included). From it the package derives:
//
//   - Levels: nodes grouped by which variables carry the aggregated marker.
//   - Forest: parent/child adjacency built once, with the leaf set of every node.
//   - Summation: the 0/1 matrix S with S·leaves = every node's aggregate.
//
// Nested hierarchies (Total → State → Region) and grouped ones (State × Purpose)
// are both supported. A variable that is never aggregated but takes several levels
// describes separate trees and is rejected with ErrDisjointHierarchy.
//
// Example:
//
//	kd, _ := hierarchy.FromRows([]string{"state"}, [][]hierarchy.Value{
//		{hierarchy.Agg()}, {hierarchy.Level("A")}, {hierarchy.Level("B")},
//	})
//	sum, _ := hierarchy.SummationRows(kd)
//	total, _ := sum.Apply([]float64{10, 5}) // [15 10 5]
package hierarchy
