// SPDX-License-Identifier: MIT
package mable_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/coherent/forecast"
	"github.com/katalvlaran/coherent/hierarchy"
	"github.com/katalvlaran/coherent/mable"
	"github.com/katalvlaran/coherent/reconcile"
)

var monthly = forecast.Interval{Unit: "month", Step: 1}

func static(resp string, mean float64) *forecast.Static {
	return &forecast.Static{
		Resp:     resp,
		Every:    monthly,
		Family:   forecast.FamilyNormal,
		Mean:     []float64{mean},
		Variance: []float64{1},
	}
}

// tourism is Total, A, B with one "ets" model column and a label column.
func tourism(t *testing.T) *mable.Frame {
	t.Helper()
	f, err := mable.NewFrame(
		mable.NewKeyColumn("state", []hierarchy.Value{hierarchy.Agg(), hierarchy.Level("A"), hierarchy.Level("B")}),
		mable.NewModelColumn("ets", []forecast.Model{static("trips", 16), static("trips", 10), static("trips", 5)}),
		mable.NewValueColumn("label", []any{"total", "a", "b"}),
	)
	require.NoError(t, err)

	return f
}

func TestFrame_Verbs(t *testing.T) {
	t.Parallel()
	f := tourism(t)
	require.Equal(t, 3, f.Len())
	if diff := cmp.Diff([]string{"state", "ets", "label"}, f.Names()); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}

	sel, err := f.Select("label", "state")
	require.NoError(t, err)
	require.Equal(t, []string{"label", "state"}, sel.Names())
	require.Equal(t, 3, sel.Len())

	_, err = f.Select("nope")
	require.ErrorIs(t, err, mable.ErrUnknownColumn)

	ren, err := f.Rename("label", "name")
	require.NoError(t, err)
	require.Equal(t, []string{"state", "ets", "name"}, ren.Names())
	require.Equal(t, []string{"state", "ets", "label"}, f.Names(), "receiver untouched")
	_, err = f.Rename("label", "state")
	require.ErrorIs(t, err, mable.ErrDuplicateColumn)

	mut, err := f.Mutate(mable.NewValueColumn("label", []any{1, 2, 3}))
	require.NoError(t, err)
	c, err := mut.Column("label")
	require.NoError(t, err)
	require.Equal(t, []any{1, 2, 3}, c.(*mable.ValueColumn).Values)
	_, err = f.Mutate(mable.NewValueColumn("short", []any{1}))
	require.ErrorIs(t, err, mable.ErrLengthMismatch)

	filt, err := f.Filter(func(row int) bool { return row != 1 })
	require.NoError(t, err)
	require.Equal(t, 2, filt.Len())
	c, _ = filt.Column("label")
	require.Equal(t, []any{"total", "b"}, c.(*mable.ValueColumn).Values)
}

func TestNewFrame_Errors(t *testing.T) {
	t.Parallel()
	_, err := mable.NewFrame(mable.NewValueColumn("a", []any{1}), mable.NewValueColumn("a", []any{2}))
	require.ErrorIs(t, err, mable.ErrDuplicateColumn)
	_, err = mable.NewFrame(mable.NewValueColumn("a", []any{1}), mable.NewValueColumn("b", []any{1, 2}))
	require.ErrorIs(t, err, mable.ErrLengthMismatch)
}

func TestBuild(t *testing.T) {
	t.Parallel()
	mt, err := mable.Build(tourism(t), []string{"state"})
	require.NoError(t, err)
	require.Equal(t, 3, mt.Len())
	require.Equal(t, "trips", mt.Response())
	require.Equal(t, []string{"state"}, mt.KeyVariables())
	require.Equal(t, []string{"ets"}, mt.ModelVariables())
	require.Equal(t, []string{"state", "ets", "label"}, mt.Plain().Names())

	kd, err := mt.KeyData()
	require.NoError(t, err)
	require.Equal(t, []hierarchy.NodeID{"state=<aggregated>", "state=A", "state=B"}, kd.IDs())
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()
	keys := mable.NewKeyColumn("state", []hierarchy.Value{hierarchy.Agg(), hierarchy.Level("A")})

	tests := []struct {
		name   string
		cols   []mable.Column
		keys   []string
		models []string
		want   error
	}{
		{"no model column", []mable.Column{keys}, []string{"state"}, nil, mable.ErrEmptyModelTable},
		{"unknown key", []mable.Column{keys, mable.NewModelColumn("m", []forecast.Model{static("y", 1), static("y", 1)})},
			[]string{"region"}, nil, mable.ErrUnknownColumn},
		{"key not key column", []mable.Column{keys, mable.NewValueColumn("v", []any{1, 2}),
			mable.NewModelColumn("m", []forecast.Model{static("y", 1), static("y", 1)})},
			[]string{"v"}, nil, mable.ErrNotKeyColumn},
		{"model not model column", []mable.Column{keys, mable.NewValueColumn("v", []any{1, 2})},
			[]string{"state"}, []string{"v"}, mable.ErrNotModelColumn},
		{"mixed responses", []mable.Column{keys, mable.NewModelColumn("m", []forecast.Model{static("y", 1), static("z", 1)})},
			[]string{"state"}, nil, mable.ErrInvalidResponse},
		{"nil model", []mable.Column{keys, mable.NewModelColumn("m", []forecast.Model{static("y", 1), nil})},
			[]string{"state"}, nil, mable.ErrInvalidResponse},
		{"duplicate key", []mable.Column{
			mable.NewKeyColumn("state", []hierarchy.Value{hierarchy.Level("A"), hierarchy.Level("A")}),
			mable.NewModelColumn("m", []forecast.Model{static("y", 1), static("y", 1)})},
			[]string{"state"}, nil, mable.ErrNonUniqueKey},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f, err := mable.NewFrame(tc.cols...)
			require.NoError(t, err)
			_, err = mable.Build(f, tc.keys, tc.models...)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestApply_Revalidates(t *testing.T) {
	t.Parallel()
	mt, err := mable.Build(tourism(t), []string{"state"})
	require.NoError(t, err)

	// filtering keeps a model table
	out, err := mt.Apply(mable.Filter(func(f *mable.Frame, row int) bool {
		c, _ := f.Column("state")
		return !c.(*mable.KeyColumn).Values[row].Aggregated
	}))
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	// a new model column is picked up by cell type
	out, err = mt.Apply(mable.Mutate(mable.NewModelColumn("arima",
		[]forecast.Model{static("trips", 1), static("trips", 2), static("trips", 3)})))
	require.NoError(t, err)
	require.Equal(t, []string{"ets", "arima"}, out.ModelVariables())

	// ... and re-checked for its response
	_, err = mt.Apply(mable.Mutate(mable.NewModelColumn("arima",
		[]forecast.Model{static("visitors", 1), static("visitors", 2), static("visitors", 3)})))
	require.ErrorIs(t, err, mable.ErrInvalidResponse)

	_, err = mt.Apply(mable.Select("state", "label"))
	require.ErrorIs(t, err, mable.ErrEmptyModelTable)
	_, err = mt.Apply(mable.Select("ets"))
	require.ErrorIs(t, err, mable.ErrMissingKey)
	_, err = mt.Apply(mable.Mutate(mable.NewValueColumn("state", []any{1, 2, 3})))
	require.ErrorIs(t, err, mable.ErrMissingKey)

	plain, err := mt.ApplyOrPlain(mable.Select("state", "label"))
	require.NoError(t, err)
	_, isFrame := plain.(*mable.Frame)
	require.True(t, isFrame)
	require.Equal(t, []string{"state", "label"}, plain.Plain().Names())

	still, err := mt.ApplyOrPlain(mable.Select("state", "ets"))
	require.NoError(t, err)
	_, isTable := still.(*mable.ModelTable)
	require.True(t, isTable)
}

func TestReconcileAndForecast(t *testing.T) {
	t.Parallel()
	mt, err := mable.Build(tourism(t), []string{"state"})
	require.NoError(t, err)

	tagged, err := mt.Reconcile("ets", reconcile.MinTrace{Method: reconcile.MethodOLS})
	require.NoError(t, err)
	again, err := tagged.Reconcile("ets", reconcile.MinTrace{Method: reconcile.MethodOLS})
	require.NoError(t, err)

	orig, _ := mt.ModelColumn("ets")
	require.Equal(t, reconcile.Unreconciled{}, orig.Strategy, "receiver untouched")
	col, _ := again.ModelColumn("ets")
	require.Equal(t, reconcile.MinTrace{Method: reconcile.MethodOLS}, col.Strategy)
	require.Same(t, orig.Models[0], col.Models[0])

	res, err := again.Forecast(context.Background(), "ets", 1)
	require.NoError(t, err)
	fc, ok := res.Lookup("state=<aggregated>")
	require.True(t, ok)
	require.InDelta(t, 47.0/3, fc.Dist.Mean[0], 1e-9)

	base, err := mt.Forecast(context.Background(), "ets", 1)
	require.NoError(t, err)
	require.Equal(t, []float64{16}, base.Forecasts[0].Dist.Mean)

	_, err = mt.Reconcile("label", reconcile.BottomUp{})
	require.ErrorIs(t, err, mable.ErrNotModelColumn)
	_, err = mt.Forecast(context.Background(), "ets", 2)
	require.ErrorIs(t, err, forecast.ErrHorizon)
}

func TestApply_RenameCarriesKey(t *testing.T) {
	t.Parallel()
	mt, err := mable.Build(tourism(t), []string{"state"})
	require.NoError(t, err)

	renamed, err := mt.Apply(mable.Rename("state", "region"))
	require.NoError(t, err)
	require.Equal(t, []string{"region"}, renamed.KeyVariables())
	kd, err := renamed.KeyData()
	require.NoError(t, err)
	require.Equal(t, hierarchy.NodeID("region=A"), kd.ID(1))

	// a second rename and a row filter still follow the key
	again, err := renamed.Apply(mable.Rename("region", "area"))
	require.NoError(t, err)
	again, err = again.Apply(mable.Filter(func(_ *mable.Frame, row int) bool { return row > 0 }))
	require.NoError(t, err)
	require.Equal(t, []string{"area"}, again.KeyVariables())
	require.Equal(t, 2, again.Len())

	// the original table is untouched
	require.Equal(t, []string{"state"}, mt.KeyVariables())
}
