// SPDX-License-Identifier: MIT
// Package: matrix
//
// CSR — compressed sparse row storage for 0/1-heavy structural matrices.
//
// Purpose:
//   - Hold summation / selection matrices (S, J, U) whose density is O(depth/leaves)
//     without paying r*c memory.
//   - Offer the CSR·Dense product and the row scans the sparse reconciliation
//     backend needs.
//
// Design:
//   - Immutable after construction (read-only; no Set), therefore it is NOT a Matrix.
//   - Triplets are sorted (row, col) and duplicates are summed at build time.
//   - Deterministic: every product walks rows ascending and nonzeros in column order.
//
// Complexity quicksheet:
//   - NewCSR: O(nnz log nnz); At: O(log rowNNZ); MulDense: O(nnz·k).

package matrix

import (
	"fmt"
	"math"
	"sort"
)

const (
	opNewCSR = "NewCSR"
	opCSRMul = "CSR.MulDense"
)

// Triplet is one (Row, Col, Value) coordinate entry used to build a CSR.
type Triplet struct {
	Row, Col int
	Value    float64
}

// CSR is a read-only compressed-sparse-row matrix.
type CSR struct {
	r, c   int
	indptr []int     // len r+1; row i spans indptr[i]:indptr[i+1]
	cols   []int     // column index per stored value, ascending within a row
	vals   []float64 // stored values (explicit zeros are dropped)
}

// NewCSR builds an r×c CSR from coordinate triplets.
// Duplicated coordinates are summed; entries summing to exactly zero are dropped.
//
// Errors:
//   - ErrInvalidDimensions for negative shapes.
//   - ErrBadTriplet for out-of-range coordinates or non-finite values.
func NewCSR(rows, cols int, entries []Triplet) (*CSR, error) {
	if rows < 0 || cols < 0 {
		return nil, matrixErrorf(opNewCSR, ErrInvalidDimensions)
	}
	ts := make([]Triplet, len(entries))
	copy(ts, entries)
	for _, t := range ts {
		if t.Row < 0 || t.Row >= rows || t.Col < 0 || t.Col >= cols {
			return nil, matrixErrorf(opNewCSR, fmt.Errorf("(%d,%d) in %dx%d: %w", t.Row, t.Col, rows, cols, ErrBadTriplet))
		}
		if math.IsNaN(t.Value) || math.IsInf(t.Value, 0) {
			return nil, matrixErrorf(opNewCSR, fmt.Errorf("(%d,%d): %w", t.Row, t.Col, ErrBadTriplet))
		}
	}
	sort.SliceStable(ts, func(a, b int) bool {
		if ts[a].Row != ts[b].Row {
			return ts[a].Row < ts[b].Row
		}

		return ts[a].Col < ts[b].Col
	})

	m := &CSR{r: rows, c: cols, indptr: make([]int, rows+1)}
	for k := 0; k < len(ts); {
		t := ts[k]
		sum := t.Value
		k++
		for k < len(ts) && ts[k].Row == t.Row && ts[k].Col == t.Col {
			sum += ts[k].Value
			k++
		}
		if sum == 0 {
			continue
		}
		m.cols = append(m.cols, t.Col)
		m.vals = append(m.vals, sum)
		m.indptr[t.Row+1]++
	}
	for i := 0; i < rows; i++ {
		m.indptr[i+1] += m.indptr[i]
	}

	return m, nil
}

// Rows returns the row count.
func (m *CSR) Rows() int { return m.r }

// Cols returns the column count.
func (m *CSR) Cols() int { return m.c }

// NNZ returns the number of stored (nonzero) values.
func (m *CSR) NNZ() int { return len(m.vals) }

// At returns m[i,j] (zero when not stored) or ErrOutOfRange.
func (m *CSR) At(i, j int) (float64, error) {
	if i < 0 || i >= m.r || j < 0 || j >= m.c {
		return 0, fmt.Errorf("CSR.At(%d,%d): %w", i, j, ErrOutOfRange)
	}
	lo, hi := m.indptr[i], m.indptr[i+1]
	k := lo + sort.SearchInts(m.cols[lo:hi], j)
	if k < hi && m.cols[k] == j {
		return m.vals[k], nil
	}

	return 0, nil
}

// RowNonZeros calls f for every stored entry of row i in column order.
func (m *CSR) RowNonZeros(i int, f func(j int, v float64)) {
	for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
		f(m.cols[k], m.vals[k])
	}
}

// MulDense returns m·b as a Dense (r×k). Complexity: O(nnz·k).
func (m *CSR) MulDense(b Matrix) (*Dense, error) {
	if err := ValidateNotNil(b); err != nil {
		return nil, matrixErrorf(opCSRMul, err)
	}
	if m.c != b.Rows() {
		return nil, matrixErrorf(opCSRMul, fmt.Errorf("%dx%d · %dx%d: %w", m.r, m.c, b.Rows(), b.Cols(), ErrDimensionMismatch))
	}
	db, err := asDense(b)
	if err != nil {
		return nil, matrixErrorf(opCSRMul, err)
	}
	k := db.c
	out, err := newDenseZeroOK(m.r, k)
	if err != nil {
		return nil, matrixErrorf(opCSRMul, err)
	}
	var i, p, j, rowOut, rowB int
	var v float64
	for i = 0; i < m.r; i++ {
		rowOut = i * k
		for p = m.indptr[i]; p < m.indptr[i+1]; p++ {
			v = m.vals[p]
			rowB = m.cols[p] * k
			for j = 0; j < k; j++ {
				out.data[rowOut+j] += v * db.data[rowB+j]
			}
		}
	}

	return out, nil
}

// ToDense expands m into a Dense. Complexity: O(r*c + nnz).
func (m *CSR) ToDense() *Dense {
	out, _ := newDenseZeroOK(m.r, m.c) // shapes are non-negative by construction
	for i := 0; i < m.r; i++ {
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			out.data[i*m.c+m.cols[p]] = m.vals[p]
		}
	}

	return out
}
