// SPDX-License-Identifier: MIT

// Package panel reads forecast panels from YAML and writes reconciled forecasts back.
//
// A panel lists every series of one hierarchy with its key values, its base forecast
// and its in-sample residuals:
//
//	response: trips
//	interval: {unit: month, step: 1}
//	keys: [state]
//	series:
//	  - key: {state: <aggregated>}
//	    mean: [16, 17]
//	    variance: [1, 1.2]
//	    residuals: [0.4, -0.1, .nan]
//
// Decode turns it into a mable.ModelTable of forecast.Static models; Encode writes a
// reconcile.Result.
package panel

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/coherent/forecast"
	"github.com/katalvlaran/coherent/hierarchy"
	"github.com/katalvlaran/coherent/mable"
	"github.com/katalvlaran/coherent/reconcile"
)

// DefaultModelColumn names the model column when a panel does not.
const DefaultModelColumn = "model"

// ErrInvalidPanel indicates a structurally invalid panel document.
var ErrInvalidPanel = errors.New("panel: invalid panel")

// Document is the YAML panel layout.
type Document struct {
	Response string   `yaml:"response"`
	Interval Interval `yaml:"interval"`
	Keys     []string `yaml:"keys"`
	Model    string   `yaml:"model,omitempty"`
	Series   []Series `yaml:"series"`
}

// Interval mirrors forecast.Interval.
type Interval struct {
	Unit string `yaml:"unit"`
	Step int    `yaml:"step"`
}

// Series is one row of the panel.
type Series struct {
	Key       map[string]string `yaml:"key"`
	Family    string            `yaml:"family,omitempty"`
	Mean      []float64         `yaml:"mean"`
	Variance  []float64         `yaml:"variance"`
	Residuals []float64         `yaml:"residuals,omitempty"`
}

// Decode reads a panel and builds its model table.
func Decode(r io.Reader) (*mable.ModelTable, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("panel: decode: %v: %w", err, ErrInvalidPanel)
	}

	return doc.Table()
}

// Table builds the model table described by d.
//
// Errors:
//   - ErrInvalidPanel for missing keys, series or key values.
//   - mable.Build errors (duplicate keys, mixed responses).
func (d *Document) Table() (*mable.ModelTable, error) {
	if len(d.Keys) == 0 {
		return nil, fmt.Errorf("panel: no key variables: %w", ErrInvalidPanel)
	}
	if len(d.Series) == 0 {
		return nil, fmt.Errorf("panel: no series: %w", ErrInvalidPanel)
	}
	column := d.Model
	if column == "" {
		column = DefaultModelColumn
	}
	every := forecast.Interval{Unit: d.Interval.Unit, Step: d.Interval.Step}

	keyVals := make([][]hierarchy.Value, len(d.Keys))
	for i := range keyVals {
		keyVals[i] = make([]hierarchy.Value, len(d.Series))
	}
	models := make([]forecast.Model, len(d.Series))
	for row, s := range d.Series {
		if len(s.Key) != len(d.Keys) {
			return nil, fmt.Errorf("panel: series %d has %d key values, want %d: %w", row, len(s.Key), len(d.Keys), ErrInvalidPanel)
		}
		for i, k := range d.Keys {
			v, ok := s.Key[k]
			if !ok {
				return nil, fmt.Errorf("panel: series %d has no value for %q: %w", row, k, ErrInvalidPanel)
			}
			keyVals[i][row] = hierarchy.ParseValue(v)
		}
		family := forecast.FamilyNormal
		if s.Family != "" {
			family = forecast.ParseFamily(s.Family)
		}
		models[row] = &forecast.Static{
			Resp:     d.Response,
			Every:    every,
			Family:   family,
			Mean:     s.Mean,
			Variance: s.Variance,
			Residual: s.Residuals,
		}
	}

	cols := make([]mable.Column, 0, len(d.Keys)+1)
	for i, k := range d.Keys {
		cols = append(cols, mable.NewKeyColumn(k, keyVals[i]))
	}
	cols = append(cols, mable.NewModelColumn(column, models))
	frame, err := mable.NewFrame(cols...)
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}
	mt, err := mable.Build(frame, d.Keys, column)
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}

	return mt, nil
}

// Output is the YAML layout written by Encode.
type Output struct {
	Strategy  string           `yaml:"strategy"`
	Method    string           `yaml:"method,omitempty"`
	Backend   string           `yaml:"backend"`
	Lambda    float64          `yaml:"lambda,omitempty"`
	RunID     string           `yaml:"run_id,omitempty"`
	Forecasts []OutputForecast `yaml:"forecasts"`
}

// OutputForecast is one reconciled node.
type OutputForecast struct {
	Node      string           `yaml:"node"`
	Interval  string           `yaml:"interval"`
	Family    string           `yaml:"family"`
	Mean      []float64        `yaml:"mean,flow"`
	Variance  []float64        `yaml:"variance,flow"`
	Intervals []OutputInterval `yaml:"intervals,omitempty"`
}

// OutputInterval is a central prediction interval per horizon step.
type OutputInterval struct {
	Level float64   `yaml:"level"`
	Lower []float64 `yaml:"lower,flow"`
	Upper []float64 `yaml:"upper,flow"`
}

// NewOutput converts res, adding a central prediction interval for every level in
// (0, 1) when the forecasts are normal.
func NewOutput(res *reconcile.Result, runID string, levels ...float64) (*Output, error) {
	out := &Output{
		Strategy:  res.Strategy,
		Method:    string(res.Method),
		Backend:   string(res.Backend),
		Lambda:    res.Lambda,
		RunID:     runID,
		Forecasts: make([]OutputForecast, len(res.Forecasts)),
	}
	for i, fc := range res.Forecasts {
		of := OutputForecast{
			Node:     string(fc.Node),
			Interval: fc.Interval.String(),
			Family:   fc.Dist.Family.String(),
			Mean:     fc.Dist.Mean,
			Variance: fc.Dist.Variance,
		}
		if fc.Dist.Family == forecast.FamilyNormal {
			for _, level := range levels {
				oi := OutputInterval{Level: level}
				for step := 0; step < fc.Dist.Horizon(); step++ {
					lo, hi, err := fc.Dist.Interval(step, level)
					if err != nil {
						return nil, fmt.Errorf("panel: node %s: %w", fc.Node, err)
					}
					oi.Lower = append(oi.Lower, lo)
					oi.Upper = append(oi.Upper, hi)
				}
				of.Intervals = append(of.Intervals, oi)
			}
		}
		out.Forecasts[i] = of
	}

	return out, nil
}

// Encode writes res as YAML with the given interval levels.
func Encode(w io.Writer, res *reconcile.Result, runID string, levels ...float64) error {
	out, err := NewOutput(res, runID, levels...)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err = enc.Encode(out); err != nil {
		return fmt.Errorf("panel: encode: %w", err)
	}

	return enc.Close()
}
