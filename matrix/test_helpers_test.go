// SPDX-License-Identifier: MIT
// Package matrix_test contains test helpers
//
// Purpose:
//   • Provide small, deterministic test fixtures and utilities for kernels.
//   • Keep all data finite and well-formed to avoid numeric-policy interference.

package matrix_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/katalvlaran/coherent/matrix"
)

// hide wraps any Matrix to hide its concrete type from type assertions.
// Use hide{X} in tests to force the non-*Dense (fallback) paths.
type hide struct{ matrix.Matrix }

// MustDense allocates an r×c *Dense or fails the test.
func MustDense(t *testing.T, r, c int) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDense(r, c)
	if err != nil {
		t.Fatalf("NewDense(%d,%d): %v", r, c, err)
	}

	return m
}

// NewFilledDense builds an r×c *Dense from row-major vals.
func NewFilledDense(t *testing.T, r, c int, vals []float64) *matrix.Dense {
	t.Helper()
	if len(vals) != r*c {
		t.Fatalf("NewFilledDense: len(vals)=%d want %d", len(vals), r*c)
	}
	m := MustDense(t, r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			MustSet(t, m, i, j, vals[i*c+j])
		}
	}

	return m
}

// RandFilledDense returns an r×c *Dense with values in [-1,1) from a seeded RNG.
func RandFilledDense(t *testing.T, r, c int, seed int64) *matrix.Dense {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	m := MustDense(t, r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			MustSet(t, m, i, j, 2*rng.Float64()-1)
		}
	}

	return m
}

// MustSet writes m[i,j]=v or fails the test.
func MustSet(t *testing.T, m matrix.Matrix, i, j int, v float64) {
	t.Helper()
	if err := m.Set(i, j, v); err != nil {
		t.Fatalf("Set(%d,%d,%g): %v", i, j, v, err)
	}
}

// MustAt reads m[i,j] or fails the test.
func MustAt(t *testing.T, m matrix.Matrix, i, j int) float64 {
	t.Helper()
	v, err := m.At(i, j)
	if err != nil {
		t.Fatalf("At(%d,%d): %v", i, j, err)
	}

	return v
}

// CompareClose asserts every element of m equals want within tol.
func CompareClose(t *testing.T, want [][]float64, m matrix.Matrix, tol float64) {
	t.Helper()
	if m.Rows() != len(want) {
		t.Fatalf("rows=%d want %d", m.Rows(), len(want))
	}
	for i := range want {
		if m.Cols() != len(want[i]) {
			t.Fatalf("cols=%d want %d", m.Cols(), len(want[i]))
		}
		for j := range want[i] {
			if got := MustAt(t, m, i, j); math.Abs(got-want[i][j]) > tol {
				t.Fatalf("[%d,%d]=%g want %g", i, j, got, want[i][j])
			}
		}
	}
}
