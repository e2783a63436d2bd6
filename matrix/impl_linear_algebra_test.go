// SPDX-License-Identifier: MIT
// Package matrix_test contains unit tests for the linear-algebra kernels.
package matrix_test

import (
	"errors"
	"math"
	"testing"

	"github.com/katalvlaran/coherent/matrix"
)

const tolTight = 1e-12

func TestMul_FastAndFallback_Match(t *testing.T) {
	t.Parallel()
	a := NewFilledDense(t, 2, 3, []float64{1, 2, 3, 4, 5, 6})
	b := NewFilledDense(t, 3, 2, []float64{7, 8, 9, 10, 11, 12})

	fast, err := matrix.Mul(a, b)
	if err != nil {
		t.Fatalf("Mul: %v", err)
	}
	CompareClose(t, [][]float64{{58, 64}, {139, 154}}, fast, 0)

	slow, err := matrix.Mul(hide{a}, hide{b})
	if err != nil {
		t.Fatalf("Mul(fallback): %v", err)
	}
	if ok, _ := matrix.AllClose(fast, slow, 0, 0); !ok {
		t.Fatalf("fallback differs:\n%v\n%v", fast, slow)
	}
}

func TestMul_DimensionMismatch(t *testing.T) {
	t.Parallel()
	_, err := matrix.Mul(MustDense(t, 2, 3), MustDense(t, 2, 3))
	if !errors.Is(err, matrix.ErrDimensionMismatch) {
		t.Fatalf("want ErrDimensionMismatch, got %v", err)
	}
	if _, err = matrix.Mul(nil, MustDense(t, 1, 1)); !errors.Is(err, matrix.ErrNilMatrix) {
		t.Fatalf("want ErrNilMatrix, got %v", err)
	}
}

func TestAddSubScaleTranspose(t *testing.T) {
	t.Parallel()
	a := NewFilledDense(t, 2, 2, []float64{1, 2, 3, 4})
	b := NewFilledDense(t, 2, 2, []float64{4, 3, 2, 1})

	sum, _ := matrix.Add(a, b)
	CompareClose(t, [][]float64{{5, 5}, {5, 5}}, sum, 0)
	diff, _ := matrix.Sub(a, b)
	CompareClose(t, [][]float64{{-3, -1}, {1, 3}}, diff, 0)
	sc, _ := matrix.Scale(a, 2)
	CompareClose(t, [][]float64{{2, 4}, {6, 8}}, sc, 0)
	tr, _ := matrix.Transpose(hide{a})
	CompareClose(t, [][]float64{{1, 3}, {2, 4}}, tr, 0)

	if _, err := matrix.Add(a, MustDense(t, 1, 2)); !errors.Is(err, matrix.ErrDimensionMismatch) {
		t.Fatalf("Add shape mismatch: got %v", err)
	}
}

func TestSolve(t *testing.T) {
	t.Parallel()
	a := NewFilledDense(t, 2, 2, []float64{4, 3, 6, 3})
	b := NewFilledDense(t, 2, 1, []float64{10, 12})
	x, err := matrix.Solve(a, b)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	CompareClose(t, [][]float64{{1}, {2}}, x, tolTight)

	I, _ := matrix.NewIdentity(2)
	inv, err := matrix.Solve(NewFilledDense(t, 2, 2, []float64{4, 7, 2, 6}), I)
	if err != nil {
		t.Fatalf("Solve(A, I): %v", err)
	}
	CompareClose(t, [][]float64{{0.6, -0.7}, {-0.2, 0.4}}, inv, tolTight)
}

func TestLU_ReconstructsPermutedInput(t *testing.T) {
	t.Parallel()
	a := RandFilledDense(t, 5, 5, 7)
	L, U, perm, err := matrix.LU(a)
	if err != nil {
		t.Fatalf("LU: %v", err)
	}
	lu, _ := matrix.Mul(L, U)
	pa, _ := a.Induced(perm, []int{0, 1, 2, 3, 4})
	if ok, _ := matrix.AllClose(lu, pa, 1e-12, 1e-12); !ok {
		t.Fatalf("L·U != P·A:\n%v\n%v", lu, pa)
	}
}

func TestLU_Singular(t *testing.T) {
	t.Parallel()
	_, _, _, err := matrix.LU(NewFilledDense(t, 2, 2, []float64{1, 2, 2, 4}))
	if !errors.Is(err, matrix.ErrSingular) {
		t.Fatalf("want ErrSingular, got %v", err)
	}
	if _, err = matrix.Solve(MustDense(t, 2, 3), MustDense(t, 2, 1)); !errors.Is(err, matrix.ErrNonSquare) {
		t.Fatalf("want ErrNonSquare, got %v", err)
	}
}

func TestEigen_SymmetricPair(t *testing.T) {
	t.Parallel()
	a := NewFilledDense(t, 2, 2, []float64{2, 1, 1, 2})
	eigs, err := matrix.EigenValuesSym(a, 1e-12)
	if err != nil {
		t.Fatalf("EigenValuesSym: %v", err)
	}
	if math.Abs(eigs[0]-1) > 1e-10 || math.Abs(eigs[1]-3) > 1e-10 {
		t.Fatalf("eigenvalues=%v want [1 3]", eigs)
	}

	vals, Q, err := matrix.Eigen(a, 1e-12, 0)
	if err != nil {
		t.Fatalf("Eigen: %v", err)
	}
	for k := range vals {
		q, _ := Q.Col(k)
		aq, _ := matrix.MatVec(a, q)
		for i := range q {
			if math.Abs(aq[i]-vals[k]*q[i]) > 1e-10 {
				t.Fatalf("A·q != λq for λ=%g", vals[k])
			}
		}
	}
}

func TestEigen_RandomSPDHasPositiveSpectrum(t *testing.T) {
	t.Parallel()
	x := RandFilledDense(t, 20, 6, 42)
	g, _ := matrix.CrossProd(x)
	eigs, err := matrix.EigenValuesSym(g, 1e-13)
	if err != nil {
		t.Fatalf("EigenValuesSym: %v", err)
	}
	if eigs[0] <= 0 {
		t.Fatalf("XᵀX with full column rank must be PD, got min eigenvalue %g", eigs[0])
	}
	var trace, sum float64
	diag, _ := matrix.DiagOf(g)
	for i := range diag {
		trace += diag[i]
		sum += eigs[i]
	}
	if math.Abs(trace-sum) > 1e-9 {
		t.Fatalf("trace %g != Σλ %g", trace, sum)
	}
}

func TestEigen_Errors(t *testing.T) {
	t.Parallel()
	if _, _, err := matrix.Eigen(NewFilledDense(t, 2, 2, []float64{1, 2, 0, 1}), 1e-12, 0); !errors.Is(err, matrix.ErrAsymmetry) {
		t.Fatalf("want ErrAsymmetry, got %v", err)
	}
	if _, _, err := matrix.Eigen(MustDense(t, 2, 3), 1e-12, 0); !errors.Is(err, matrix.ErrNonSquare) {
		t.Fatalf("want ErrNonSquare, got %v", err)
	}
}

func TestRowSumsAndQuadForms(t *testing.T) {
	t.Parallel()
	s := NewFilledDense(t, 3, 2, []float64{1, 1, 1, 0, 0, 1})
	rs, _ := matrix.RowSums(s)
	if rs[0] != 2 || rs[1] != 1 || rs[2] != 1 {
		t.Fatalf("RowSums=%v", rs)
	}

	a := NewFilledDense(t, 2, 2, []float64{1, 1, 1, 0})
	q, _ := matrix.DiagQuadForm(a, []float64{2, 3})
	d, _ := matrix.NewDiag([]float64{2, 3})
	sw, _ := matrix.DiagSandwich(a, d)
	if q[0] != 5 || q[1] != 2 || sw[0] != 5 || sw[1] != 2 {
		t.Fatalf("DiagQuadForm=%v DiagSandwich=%v want [5 2]", q, sw)
	}
}

func TestAllClose_Errors(t *testing.T) {
	t.Parallel()
	a := MustDense(t, 1, 1)
	if _, err := matrix.AllClose(a, a, math.NaN(), 0); !errors.Is(err, matrix.ErrNaNInf) {
		t.Fatalf("want ErrNaNInf, got %v", err)
	}
	if _, err := matrix.AllClose(a, MustDense(t, 1, 2), 0, 0); !errors.Is(err, matrix.ErrDimensionMismatch) {
		t.Fatalf("want ErrDimensionMismatch, got %v", err)
	}
	ok, err := matrix.AllClose(a, a, -1e-9, -1e-9)
	if err != nil || !ok {
		t.Fatalf("negative tolerances must be normalized: %v %v", ok, err)
	}
}
