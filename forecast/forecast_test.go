// SPDX-License-Identifier: MIT
package forecast_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/coherent/forecast"
)

func TestNewNormal_Validation(t *testing.T) {
	t.Parallel()
	_, err := forecast.NewNormal("y", []float64{1, 2}, []float64{1})
	require.ErrorIs(t, err, forecast.ErrInvalidDistribution)

	_, err = forecast.NewNormal("y", []float64{1}, []float64{-1})
	require.ErrorIs(t, err, forecast.ErrInvalidDistribution)

	_, err = forecast.NewNormal("y", []float64{math.NaN()}, []float64{1})
	require.ErrorIs(t, err, forecast.ErrInvalidDistribution)

	d, err := forecast.NewNormal("y", []float64{10, 12}, []float64{1, 4})
	require.NoError(t, err)
	require.Equal(t, 2, d.Horizon())
}

func TestQuantileMatchesDistuv(t *testing.T) {
	t.Parallel()
	d, err := forecast.NewNormal("y", []float64{10, 12}, []float64{1, 4})
	require.NoError(t, err)

	for _, p := range []float64{0.025, 0.5, 0.9} {
		got, err := d.Quantile(1, p)
		require.NoError(t, err)
		want := distuv.Normal{Mu: 12, Sigma: 2}.Quantile(p)
		require.InDelta(t, want, got, 1e-12)
	}

	lo, hi, err := d.Interval(0, 0.95)
	require.NoError(t, err)
	require.InDelta(t, 10-1.959963984540054, lo, 1e-9)
	require.InDelta(t, 10+1.959963984540054, hi, 1e-9)

	_, err = d.Quantile(2, 0.5)
	require.ErrorIs(t, err, forecast.ErrHorizon)
	_, err = d.Quantile(0, 1)
	require.ErrorIs(t, err, forecast.ErrInvalidDistribution)
}

func TestNormals_RejectsOtherFamilies(t *testing.T) {
	t.Parallel()
	d := forecast.Distribution{Family: forecast.FamilySample, Mean: []float64{1}, Variance: []float64{1}}
	_, err := d.Normals()
	require.ErrorIs(t, err, forecast.ErrNotNormal)
	require.Equal(t, forecast.FamilySample, forecast.ParseFamily(forecast.FamilySample.String()))
}

func TestStatic_ForecastAndResiduals(t *testing.T) {
	t.Parallel()
	m := &forecast.Static{
		Resp:     "trips",
		Every:    forecast.Interval{Unit: "quarter", Step: 1},
		Family:   forecast.FamilyNormal,
		Mean:     []float64{1, 2, 3},
		Variance: []float64{0.1, 0.2, 0.3},
		Residual: []float64{math.NaN(), 0.5, -0.5},
	}
	fc, err := m.Forecast(2)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2}, fc.Dist.Mean)
	require.Equal(t, "trips", fc.Dist.Response)
	require.Equal(t, "1 quarter", fc.Interval.String())

	_, err = m.Forecast(4)
	require.ErrorIs(t, err, forecast.ErrHorizon)

	res, err := m.Residuals()
	require.NoError(t, err)
	res[1] = 99
	again, _ := m.Residuals()
	require.Equal(t, 0.5, again[1])
}
