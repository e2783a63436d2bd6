// SPDX-License-Identifier: MIT
package hierarchy_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/coherent/hierarchy"
	"github.com/katalvlaran/coherent/matrix"
)

var (
	agg = hierarchy.Agg()
	lv  = hierarchy.Level
)

// twoLevel is Total → {A, B} over one key variable.
func twoLevel(t *testing.T) hierarchy.KeyData {
	t.Helper()
	kd, err := hierarchy.FromRows([]string{"state"}, [][]hierarchy.Value{
		{agg}, {lv("A")}, {lv("B")},
	})
	require.NoError(t, err)

	return kd
}

// threeLevel is Total → state → region with regions A1,A2 under A and B1 under B.
func threeLevel(t *testing.T) hierarchy.KeyData {
	t.Helper()
	kd, err := hierarchy.FromRows([]string{"state", "region"}, [][]hierarchy.Value{
		{agg, agg},
		{lv("A"), agg},
		{lv("B"), agg},
		{lv("A"), lv("A1")},
		{lv("A"), lv("A2")},
		{lv("B"), lv("B1")},
	})
	require.NoError(t, err)

	return kd
}

// grouped crosses state {A,B} with purpose {x,y}.
func grouped(t *testing.T) hierarchy.KeyData {
	t.Helper()
	kd, err := hierarchy.FromRows([]string{"state", "purpose"}, [][]hierarchy.Value{
		{agg, agg},
		{lv("A"), agg},
		{lv("B"), agg},
		{agg, lv("x")},
		{agg, lv("y")},
		{lv("A"), lv("x")},
		{lv("A"), lv("y")},
		{lv("B"), lv("x")},
		{lv("B"), lv("y")},
	})
	require.NoError(t, err)

	return kd
}

func rowsOf(t *testing.T, d *matrix.Dense) [][]float64 {
	t.Helper()
	out := make([][]float64, d.Rows())
	for i := range out {
		r, err := d.Row(i)
		require.NoError(t, err)
		out[i] = r
	}

	return out
}

// leafCounts returns the row sums of S: the number of leaves under each node.
func leafCounts(t *testing.T, sum *hierarchy.Summation) []float64 {
	t.Helper()
	counts, err := matrix.RowSums(sum.S)
	require.NoError(t, err)

	return counts
}

func TestSummationRows_TwoLevel(t *testing.T) {
	t.Parallel()
	sum, err := hierarchy.SummationRows(twoLevel(t))
	require.NoError(t, err)

	want := [][]float64{{1, 1}, {1, 0}, {0, 1}}
	if diff := cmp.Diff(want, rowsOf(t, sum.S)); diff != "" {
		t.Fatalf("S mismatch (-want +got):\n%s", diff)
	}

	for _, leaf := range [][]float64{{10, 5}, {-3.5, 7.25}, {0, 0}} {
		got, err := sum.Apply(leaf)
		require.NoError(t, err)
		require.Equal(t, leaf[0]+leaf[1], got[0])
		require.Equal(t, leaf, got[1:])
	}
	require.Equal(t, []int{1, 2}, sum.BottomRows())
	require.Equal(t, []int{0}, sum.AggregateRows())
}

func TestSummationRows_ThreeLevel(t *testing.T) {
	t.Parallel()
	kd := threeLevel(t)
	sum, err := hierarchy.SummationRows(kd)
	require.NoError(t, err)

	want := [][]float64{
		{1, 1, 1},
		{1, 1, 0},
		{0, 0, 1},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	if diff := cmp.Diff(want, rowsOf(t, sum.S)); diff != "" {
		t.Fatalf("S mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []float64{3, 2, 1, 1, 1, 1}, leafCounts(t, sum))

	// B has a single child; it is still an aggregate, not a leaf.
	require.Equal(t, []int{0, 1, 2}, sum.AggregateRows())
	require.Equal(t, []int{0}, sum.Forest.Parents[1])
	require.Equal(t, []int{1}, sum.Forest.Parents[3])
	require.Equal(t, []int{0}, sum.Forest.Roots())
}

func TestSummationRows_GroupedCountsSharedLeavesOnce(t *testing.T) {
	t.Parallel()
	sum, err := hierarchy.SummationRows(grouped(t))
	require.NoError(t, err)

	require.Equal(t, []float64{4, 2, 2, 2, 2, 1, 1, 1, 1}, leafCounts(t, sum))
	// Leaf A/x rolls into both A and x.
	require.Equal(t, []int{1, 3}, sum.Forest.Parents[5])
	require.Equal(t, []int{1, 2, 3, 4}, sum.Forest.Children[0])

	total, err := sum.Apply([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, []float64{10, 3, 7, 4, 6, 1, 2, 3, 4}, total)
}

func TestSummationRows_MissingIntermediateLinksToNearestLevel(t *testing.T) {
	t.Parallel()
	kd, err := hierarchy.FromRows([]string{"state", "region"}, [][]hierarchy.Value{
		{agg, agg},
		{lv("A"), agg},
		{lv("A"), lv("A1")},
		{lv("B"), lv("B1")},
	})
	require.NoError(t, err)
	sum, err := hierarchy.SummationRows(kd)
	require.NoError(t, err)
	require.Equal(t, []int{0}, sum.Forest.Parents[3])
	require.Equal(t, []float64{2, 1, 1, 1}, leafCounts(t, sum))
}

func TestSummationRows_LeafColumnsFollowFirstRow(t *testing.T) {
	t.Parallel()
	kd, err := hierarchy.New([]string{"state"}, []hierarchy.Node{
		{Values: []hierarchy.Value{lv("B")}, Rows: []int{5}},
		{Values: []hierarchy.Value{agg}, Rows: []int{0}},
		{Values: []hierarchy.Value{lv("A")}, Rows: []int{2}},
	})
	require.NoError(t, err)
	sum, err := hierarchy.SummationRows(kd)
	require.NoError(t, err)
	require.Equal(t, []int{2, 0}, sum.Leaves)
	require.Equal(t, 1, sum.LeafColumn[0])
}

func TestSummationRows_DisjointHierarchy(t *testing.T) {
	t.Parallel()
	kd, err := hierarchy.FromRows([]string{"state", "purpose"}, [][]hierarchy.Value{
		{agg, lv("x")},
		{agg, lv("y")},
		{lv("A"), lv("x")},
		{lv("A"), lv("y")},
	})
	require.NoError(t, err)

	_, err = hierarchy.SummationRows(kd)
	require.ErrorIs(t, err, hierarchy.ErrDisjointHierarchy)
	require.Contains(t, err.Error(), `"purpose"`)

	_, err = hierarchy.SummationDummy(kd)
	require.ErrorIs(t, err, hierarchy.ErrDisjointHierarchy)
}

func TestSummationRows_UncoveredAggregate(t *testing.T) {
	t.Parallel()
	kd, err := hierarchy.FromRows([]string{"state", "region"}, [][]hierarchy.Value{
		{agg, agg},
		{lv("C"), agg},
		{lv("A"), lv("A1")},
	})
	require.NoError(t, err)
	_, err = hierarchy.SummationRows(kd)
	require.ErrorIs(t, err, hierarchy.ErrInvalidKeyData)
	require.Contains(t, err.Error(), "state=C/region=<aggregated>")
}

func TestSummationDummy_MatchesRows(t *testing.T) {
	t.Parallel()
	for name, build := range map[string]func(*testing.T) hierarchy.KeyData{
		"two-level":   twoLevel,
		"three-level": threeLevel,
		"grouped":     grouped,
	} {
		build := build
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			kd := build(t)
			rows, err := hierarchy.SummationRows(kd)
			require.NoError(t, err)
			dummy, err := hierarchy.SummationDummy(kd)
			require.NoError(t, err)
			if diff := cmp.Diff(rowsOf(t, rows.S), rowsOf(t, dummy)); diff != "" {
				t.Fatalf("dummy S differs (-rows +dummy):\n%s", diff)
			}
			sums, err := matrix.RowSums(dummy)
			require.NoError(t, err)
			require.Equal(t, leafCounts(t, rows), sums)
		})
	}
}

func TestSummationDummy_AggregatedEverywhere(t *testing.T) {
	t.Parallel()
	kd, err := hierarchy.FromRows([]string{"state", "unit"}, [][]hierarchy.Value{
		{agg, agg},
		{lv("A"), agg},
	})
	require.NoError(t, err)
	_, err = hierarchy.SummationDummy(kd)
	require.ErrorIs(t, err, hierarchy.ErrDisjointHierarchy)
}

func TestSummation_SparseMatchesDense(t *testing.T) {
	t.Parallel()
	sum, err := hierarchy.SummationRows(grouped(t))
	require.NoError(t, err)
	csr, err := sum.Sparse()
	require.NoError(t, err)
	require.Equal(t, 4+2*4+4, csr.NNZ())
	ok, err := matrix.AllClose(csr.ToDense(), sum.S, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestKeyData_Validation(t *testing.T) {
	t.Parallel()
	_, err := hierarchy.New(nil, nil)
	require.ErrorIs(t, err, hierarchy.ErrInvalidKeyData)

	_, err = hierarchy.New([]string{"a", "a"}, nil)
	require.ErrorIs(t, err, hierarchy.ErrInvalidKeyData)

	_, err = hierarchy.New([]string{"a"}, []hierarchy.Node{
		{Values: []hierarchy.Value{lv("x")}},
		{Values: []hierarchy.Value{lv("x")}},
	})
	require.ErrorIs(t, err, hierarchy.ErrInvalidKeyData)

	_, err = hierarchy.FromRows([]string{"a"}, [][]hierarchy.Value{{lv("x"), lv("y")}})
	require.ErrorIs(t, err, hierarchy.ErrInvalidKeyData)
}

func TestFromRows_GroupsRepeatedKeys(t *testing.T) {
	t.Parallel()
	kd, err := hierarchy.FromRows([]string{"state"}, [][]hierarchy.Value{
		{lv("A")}, {agg}, {lv("A")},
	})
	require.NoError(t, err)
	require.Equal(t, 2, kd.Len())
	require.Equal(t, []int{0, 2}, kd.Nodes[0].Rows)
	require.Equal(t, []hierarchy.NodeID{"state=A", "state=<aggregated>"}, kd.IDs())
}

func TestLevels_MostAggregatedFirst(t *testing.T) {
	t.Parallel()
	levels := threeLevel(t).Levels()
	require.Len(t, levels, 3)
	require.IsType(t, hierarchy.Tier{}, levels[0])
	require.Equal(t, 2, levels[0].Depth())
	require.Equal(t, []string{"state", "region"}, levels[0].Aggregated)
	require.Equal(t, []int{0}, levels[0].Nodes)
	require.Equal(t, []string{"region"}, levels[1].Aggregated)
	require.Equal(t, []int{1, 2}, levels[1].Nodes)
	require.Equal(t, 0, levels[2].Depth())
	require.Equal(t, []int{3, 4, 5}, levels[2].Nodes)
}

func TestValue_RoundTrip(t *testing.T) {
	t.Parallel()
	require.Equal(t, "<aggregated>", agg.String())
	require.Equal(t, agg, hierarchy.ParseValue(agg.String()))
	require.Equal(t, lv("NSW"), hierarchy.ParseValue("NSW"))
}
