// SPDX-License-Identifier: MIT

// Package forecast holds the records exchanged with per-series forecasting models:
// the forecast Distribution, the temporal Interval descriptor, the Forecast object
// and the Model interface the reconciliation engine consumes.
//
// Errors:
//
//	ErrInvalidDistribution - mean/variance length mismatch, negative or non-finite variance.
//	ErrNotNormal           - a normal-only operation on another family.
//	ErrHorizon             - a horizon or step outside what the model can produce.
package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sentinel errors for forecast records.
var (
	ErrInvalidDistribution = errors.New("forecast: invalid distribution")
	ErrNotNormal           = errors.New("forecast: distribution is not normal")
	ErrHorizon             = errors.New("forecast: horizon out of range")
)

func forecastErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// Family names the distributional form of a forecast.
type Family int

const (
	// FamilyUnknown is any distribution the engine cannot propagate.
	FamilyUnknown Family = iota
	// FamilyNormal is N(mean, variance) per horizon step.
	FamilyNormal
	// FamilySample is an empirical (bootstrap) distribution summarised by its moments.
	FamilySample
)

// String implements fmt.Stringer.
func (f Family) String() string {
	switch f {
	case FamilyNormal:
		return "normal"
	case FamilySample:
		return "sample"
	default:
		return "unknown"
	}
}

// ParseFamily maps a family name back to its Family; unknown names map to FamilyUnknown.
func ParseFamily(s string) Family {
	switch s {
	case "normal":
		return FamilyNormal
	case "sample":
		return FamilySample
	default:
		return FamilyUnknown
	}
}

// Distribution is the forecast distribution of one series over the horizon.
// Mean and Variance are indexed by horizon step.
type Distribution struct {
	Response string
	Family   Family
	Mean     []float64
	Variance []float64
}

// NewNormal validates and returns a normal Distribution.
func NewNormal(response string, mean, variance []float64) (Distribution, error) {
	d := Distribution{Response: response, Family: FamilyNormal, Mean: mean, Variance: variance}
	if err := d.Validate(); err != nil {
		return Distribution{}, err
	}

	return d, nil
}

// Validate checks lengths and that every moment is finite with variance ≥ 0.
func (d Distribution) Validate() error {
	if len(d.Mean) != len(d.Variance) {
		return forecastErrorf("Validate", fmt.Errorf("mean has %d steps, variance %d: %w",
			len(d.Mean), len(d.Variance), ErrInvalidDistribution))
	}
	for h := range d.Mean {
		if math.IsNaN(d.Mean[h]) || math.IsInf(d.Mean[h], 0) {
			return forecastErrorf("Validate", fmt.Errorf("mean[%d]=%g: %w", h, d.Mean[h], ErrInvalidDistribution))
		}
		if v := d.Variance[h]; math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return forecastErrorf("Validate", fmt.Errorf("variance[%d]=%g: %w", h, v, ErrInvalidDistribution))
		}
	}

	return nil
}

// Horizon returns the number of forecast steps.
func (d Distribution) Horizon() int { return len(d.Mean) }

// Normals materialises one distuv.Normal per horizon step.
func (d Distribution) Normals() ([]distuv.Normal, error) {
	if d.Family != FamilyNormal {
		return nil, forecastErrorf("Normals", fmt.Errorf("family %s: %w", d.Family, ErrNotNormal))
	}
	out := make([]distuv.Normal, len(d.Mean))
	for h := range d.Mean {
		out[h] = distuv.Normal{Mu: d.Mean[h], Sigma: math.Sqrt(d.Variance[h])}
	}

	return out, nil
}

// Quantile returns the p-quantile at horizon step (0-based) step.
func (d Distribution) Quantile(step int, p float64) (float64, error) {
	if p <= 0 || p >= 1 || math.IsNaN(p) {
		return 0, forecastErrorf("Quantile", fmt.Errorf("p=%g outside (0,1): %w", p, ErrInvalidDistribution))
	}
	ns, err := d.Normals()
	if err != nil {
		return 0, forecastErrorf("Quantile", err)
	}
	if step < 0 || step >= len(ns) {
		return 0, forecastErrorf("Quantile", fmt.Errorf("step %d of %d: %w", step, len(ns), ErrHorizon))
	}
	if ns[step].Sigma == 0 {
		return ns[step].Mu, nil
	}

	return ns[step].Quantile(p), nil
}

// Interval returns the central prediction interval holding the given probability
// mass (level in (0,1), e.g. 0.95) at horizon step.
func (d Distribution) Interval(step int, level float64) (lo, hi float64, err error) {
	if level <= 0 || level >= 1 || math.IsNaN(level) {
		return 0, 0, forecastErrorf("Interval", fmt.Errorf("level=%g outside (0,1): %w", level, ErrInvalidDistribution))
	}
	if lo, err = d.Quantile(step, (1-level)/2); err != nil {
		return 0, 0, err
	}
	if hi, err = d.Quantile(step, (1+level)/2); err != nil {
		return 0, 0, err
	}

	return lo, hi, nil
}
