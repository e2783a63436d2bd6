// SPDX-License-Identifier: MIT

package hierarchy

import (
	"fmt"

	"github.com/katalvlaran/coherent/matrix"
)

// Summation is the structural map from leaf series to every hierarchy node.
type Summation struct {
	// S has one row per node (KeyData order) and one column per leaf.
	S *matrix.Dense

	// Leaves lists leaf node indices in column order.
	Leaves []int

	// LeafColumn maps a leaf node index to its column in S.
	LeafColumn map[int]int

	// Forest is the aggregation structure S was derived from.
	Forest *Forest

	triplets []matrix.Triplet
}

// SummationRows builds S from the aggregation forest of kd.
//
// MAIN DESCRIPTION:
//   - Row i of S marks the leaves node i aggregates; leaf rows are unit vectors.
//   - Columns follow the leaves' first table row.
//
// Implementation:
//   - Stage 1: reject separate trees (a never-aggregated variable with >1 level).
//   - Stage 2: build the forest once and read each node's leaf set off it.
//   - Stage 3: write the 0/1 rows in node order.
//
// Errors:
//   - ErrDisjointHierarchy, ErrInvalidKeyData (see Forest).
//
// Complexity:
//   - Time O(Forest + n·m), Space O(n·m) for n nodes and m leaves.
func SummationRows(kd KeyData) (*Summation, error) {
	const tag = "SummationRows"
	if err := kd.checkNested(tag); err != nil {
		return nil, err
	}
	f, err := kd.Forest()
	if err != nil {
		return nil, hierarchyErrorf(tag, err)
	}

	n, m := len(kd.Nodes), len(f.Leaves)
	S, err := matrix.NewDense(n, m)
	if err != nil {
		return nil, hierarchyErrorf(tag, err)
	}
	sum := &Summation{
		S:          S,
		Leaves:     f.Leaves,
		LeafColumn: make(map[int]int, m),
		Forest:     f,
	}
	for c, leaf := range f.Leaves {
		sum.LeafColumn[leaf] = c
	}
	for i, ls := range f.LeafSets {
		for _, leaf := range ls {
			c := sum.LeafColumn[leaf]
			if err = S.Set(i, c, 1); err != nil {
				return nil, hierarchyErrorf(tag, err)
			}
			sum.triplets = append(sum.triplets, matrix.Triplet{Row: i, Col: c, Value: 1})
		}
	}

	return sum, nil
}

// BottomRows returns the row indices of leaf nodes in column order.
func (s *Summation) BottomRows() []int { return append([]int(nil), s.Leaves...) }

// AggregateRows returns the row indices of non-leaf nodes in node order.
func (s *Summation) AggregateRows() []int {
	out := make([]int, 0, s.S.Rows()-len(s.Leaves))
	for i := 0; i < s.S.Rows(); i++ {
		if _, leaf := s.LeafColumn[i]; !leaf {
			out = append(out, i)
		}
	}

	return out
}

// Apply returns S·leaf, the coherent value of every node.
func (s *Summation) Apply(leaf []float64) ([]float64, error) {
	out, err := matrix.MatVec(s.S, leaf)
	if err != nil {
		return nil, hierarchyErrorf("Summation.Apply", err)
	}

	return out, nil
}

// Sparse returns S in compressed sparse row form.
func (s *Summation) Sparse() (*matrix.CSR, error) {
	csr, err := matrix.NewCSR(s.S.Rows(), s.S.Cols(), s.triplets)
	if err != nil {
		return nil, hierarchyErrorf("Summation.Sparse", err)
	}

	return csr, nil
}

// SummationDummy builds S as a row-wise Kronecker product of per-variable dummy
// encodings: a concrete value is a one-hot row over the variable's levels, the
// aggregated marker is a row of ones. Only columns of observed leaf combinations
// are kept, in the same order as SummationRows, so row sums count the leaves a
// node aggregates.
//
// Errors:
//   - ErrDisjointHierarchy for a variable never aggregated with more than one level,
//     or aggregated in every node.
//   - ErrInvalidKeyData when kd has no leaf.
func SummationDummy(kd KeyData) (*matrix.Dense, error) {
	const tag = "SummationDummy"
	if err := kd.checkNested(tag); err != nil {
		return nil, err
	}
	for j, name := range kd.Vars {
		concrete := false
		for _, n := range kd.Nodes {
			if !n.Values[j].Aggregated {
				concrete = true
				break
			}
		}
		if !concrete {
			return nil, hierarchyErrorf(tag, fmt.Errorf("variable %q is aggregated in every node: %w", name, ErrDisjointHierarchy))
		}
	}

	// Factor levels per variable, first appearance order.
	factors := make([]map[string]int, len(kd.Vars))
	for j := range kd.Vars {
		factors[j] = make(map[string]int)
		for _, n := range kd.Nodes {
			if v := n.Values[j]; !v.Aggregated {
				if _, ok := factors[j][v.Label]; !ok {
					factors[j][v.Label] = len(factors[j])
				}
			}
		}
	}

	leaves := kd.Leaves()
	if len(leaves) == 0 {
		return nil, hierarchyErrorf(tag, fmt.Errorf("no leaf node: %w", ErrInvalidKeyData))
	}
	S, err := matrix.NewDense(len(kd.Nodes), len(leaves))
	if err != nil {
		return nil, hierarchyErrorf(tag, err)
	}
	for i, n := range kd.Nodes {
		for c, leaf := range leaves {
			// Kronecker entry: product of the per-variable dummy entries at the
			// leaf's level of each variable.
			entry := 1.0
			for j, v := range n.Values {
				if v.Aggregated {
					continue
				}
				if factors[j][v.Label] != factors[j][kd.Nodes[leaf].Values[j].Label] {
					entry = 0
					break
				}
			}
			if entry != 0 {
				if err = S.Set(i, c, entry); err != nil {
					return nil, hierarchyErrorf(tag, err)
				}
			}
		}
	}

	return S, nil
}
