// SPDX-License-Identifier: MIT

package forecast

import (
	"fmt"

	"github.com/katalvlaran/coherent/hierarchy"
)

// Interval is the temporal granularity of a forecast, e.g. {Unit: "month", Step: 1}.
// Two forecasts can only be reconciled when their Intervals are equal.
type Interval struct {
	Unit string
	Step int
}

// String renders "1 month".
func (i Interval) String() string { return fmt.Sprintf("%d %s", i.Step, i.Unit) }

// Forecast is the forecast of one hierarchy node.
type Forecast struct {
	Node     hierarchy.NodeID
	Interval Interval
	Dist     Distribution
}

// Model is a fitted per-series model as seen by reconciliation.
//
// Forecast returns the h-step distribution; the Node field is filled by the caller.
// Residuals returns in-sample one-step errors aligned by observation index; NaN marks
// an observation the model has no residual for.
type Model interface {
	Response() string
	Forecast(h int) (Forecast, error)
	Residuals() ([]float64, error)
}

// Static is a Model whose forecasts and residuals are already known, for example
// read from a panel file produced by an external fitting pipeline.
type Static struct {
	Resp     string
	Every    Interval
	Family   Family
	Mean     []float64
	Variance []float64
	Residual []float64
}

var _ Model = (*Static)(nil)

// Response implements Model.
func (s *Static) Response() string { return s.Resp }

// Forecast implements Model, returning the first h stored steps.
func (s *Static) Forecast(h int) (Forecast, error) {
	if h <= 0 || h > len(s.Mean) {
		return Forecast{}, forecastErrorf("Static.Forecast", fmt.Errorf("h=%d, have %d steps: %w", h, len(s.Mean), ErrHorizon))
	}
	d := Distribution{
		Response: s.Resp,
		Family:   s.Family,
		Mean:     append([]float64(nil), s.Mean[:h]...),
		Variance: append([]float64(nil), s.Variance[:min(h, len(s.Variance))]...),
	}
	if err := d.Validate(); err != nil {
		return Forecast{}, forecastErrorf("Static.Forecast", err)
	}

	return Forecast{Interval: s.Every, Dist: d}, nil
}

// Residuals implements Model.
func (s *Static) Residuals() ([]float64, error) {
	return append([]float64(nil), s.Residual...), nil
}
