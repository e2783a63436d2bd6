// SPDX-License-Identifier: MIT

package reconcile

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/katalvlaran/coherent/forecast"
	"github.com/katalvlaran/coherent/hierarchy"
	"github.com/katalvlaran/coherent/matrix"
)

// Input is one reconciliation request. Models[i] forecasts Keys.Nodes[i].
type Input struct {
	Keys     hierarchy.KeyData
	Models   []forecast.Model
	Strategy Strategy
	Horizon  int
}

// Result holds one forecast per hierarchy node, in KeyData order.
type Result struct {
	Nodes     []hierarchy.NodeID
	Forecasts []forecast.Forecast
	Strategy  string
	Method    Method
	Backend   Backend

	// Lambda is the shrinkage intensity applied by mint_shrink (0 otherwise).
	Lambda float64
}

// Lookup returns the forecast of the node with the given identity.
func (r *Result) Lookup(id hierarchy.NodeID) (forecast.Forecast, bool) {
	for i, n := range r.Nodes {
		if n == id {
			return r.Forecasts[i], true
		}
	}

	return forecast.Forecast{}, false
}

// Run forecasts every node of in.Keys and reconciles the forecasts with in.Strategy.
//
// MAIN DESCRIPTION:
//   - Unreconciled: forecasts every node and returns them as produced.
//   - BottomUp: forecasts the leaves only; means and variances are summed up S.
//   - MinTrace: forecasts every node, derives W from the method, projects the means
//     with S·P and propagates variances through W's correlation structure.
//
// Implementation:
//   - Stage 1: validate the request and build S.
//   - Stage 2: forecast the required nodes; require one shared Interval and normal
//     distributions.
//   - Stage 3: apply the strategy.
//
// The context is checked between stages; kernels run to completion.
// The call is all-or-nothing: on error no Result is returned.
//
// Errors:
//   - ErrInvalidHorizon, ErrModelCount, ErrTemporalHierarchy, ErrNonNormalForecast,
//     ErrIllConditionedWeight, ErrUnknownMethod, ErrResidualAlignment,
//     ErrInsufficientResiduals, hierarchy.ErrDisjointHierarchy/ErrInvalidKeyData,
//     or ctx.Err().
func Run(ctx context.Context, in Input, opts ...Option) (*Result, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if in.Strategy == nil {
		in.Strategy = Unreconciled{}
	}

	start := time.Now()
	rep := Report{Strategy: in.Strategy.Name(), Nodes: len(in.Keys.Nodes), Horizon: in.Horizon, Backend: BackendNone}
	res, err := run(ctx, in, &o, &rep)
	rep.Duration = time.Since(start)
	rep.Err = err
	o.Observer.ObserveRun(rep)
	if err != nil {
		o.Logger.Debug("reconciliation failed",
			zap.String("strategy", rep.Strategy),
			zap.String("method", string(rep.Method)),
			zap.Error(err))

		return nil, err
	}
	o.Logger.Debug("reconciliation finished",
		zap.String("strategy", rep.Strategy),
		zap.String("method", string(rep.Method)),
		zap.String("backend", string(rep.Backend)),
		zap.Int("nodes", rep.Nodes),
		zap.Int("leaves", rep.Leaves),
		zap.Float64("lambda", rep.Lambda),
		zap.Duration("elapsed", rep.Duration))

	return res, nil
}

func run(ctx context.Context, in Input, o *Options, rep *Report) (*Result, error) {
	// Stage 1
	if in.Horizon <= 0 {
		return nil, reconcileErrorf("Run", fmt.Errorf("h=%d: %w", in.Horizon, ErrInvalidHorizon))
	}
	if len(in.Models) != len(in.Keys.Nodes) || len(in.Models) == 0 {
		return nil, reconcileErrorf("Run", fmt.Errorf("%d models for %d nodes: %w", len(in.Models), len(in.Keys.Nodes), ErrModelCount))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch s := in.Strategy.(type) {
	case Unreconciled:
		all := make([]int, len(in.Keys.Nodes))
		for i := range all {
			all[i] = i
		}
		fcs, err := forecastNodes(ctx, in, all, false)
		if err != nil {
			return nil, err
		}

		return &Result{Nodes: in.Keys.IDs(), Forecasts: fcs, Strategy: s.Name(), Backend: BackendNone}, nil

	case BottomUp:
		sum, err := hierarchy.SummationRows(in.Keys)
		if err != nil {
			return nil, reconcileErrorf("Run", err)
		}
		rep.Leaves = len(sum.Leaves)
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		return bottomUp(ctx, in, sum)

	case MinTrace:
		sum, err := hierarchy.SummationRows(in.Keys)
		if err != nil {
			return nil, reconcileErrorf("Run", err)
		}
		rep.Leaves = len(sum.Leaves)
		rep.Method = s.method()
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		return minTrace(ctx, in, s, sum, o, rep)

	default:
		return nil, reconcileErrorf("Run", fmt.Errorf("%T: %w", in.Strategy, ErrUnknownStrategy))
	}
}

// forecastNodes forecasts the given nodes, in order, and checks that they share one
// Interval and the requested horizon; normal additionally requires normal distributions.
func forecastNodes(ctx context.Context, in Input, idx []int, normal bool) ([]forecast.Forecast, error) {
	out := make([]forecast.Forecast, len(idx))
	for k, i := range idx {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := in.Keys.ID(i)
		fc, err := in.Models[i].Forecast(in.Horizon)
		if err != nil {
			return nil, reconcileErrorf("forecast", fmt.Errorf("node %s: %w", id, err))
		}
		fc.Node = id
		if fc.Dist.Horizon() != in.Horizon {
			return nil, reconcileErrorf("forecast",
				fmt.Errorf("node %s returned %d steps, want %d: %w", id, fc.Dist.Horizon(), in.Horizon, ErrInvalidHorizon))
		}
		if k > 0 && fc.Interval != out[0].Interval {
			return nil, reconcileErrorf("forecast", fmt.Errorf("node %s has interval %s, node %s has %s: %w",
				out[0].Node, out[0].Interval, id, fc.Interval, ErrTemporalHierarchy))
		}
		if normal && fc.Dist.Family != forecast.FamilyNormal {
			return nil, reconcileErrorf("forecast", fmt.Errorf("node %s is %s: %w", id, fc.Dist.Family, ErrNonNormalForecast))
		}
		out[k] = fc
	}

	return out, nil
}

// stack returns the (n × h) mean and variance matrices of fcs, one row per forecast.
func stack(fcs []forecast.Forecast, h int) (mean, variance *matrix.Dense, err error) {
	md := make([]float64, 0, len(fcs)*h)
	vd := make([]float64, 0, len(fcs)*h)
	for _, fc := range fcs {
		md = append(md, fc.Dist.Mean...)
		vd = append(vd, fc.Dist.Variance...)
	}
	if mean, err = matrix.NewDenseFrom(len(fcs), h, md); err != nil {
		return nil, nil, err
	}
	if variance, err = matrix.NewDenseFrom(len(fcs), h, vd); err != nil {
		return nil, nil, err
	}

	return mean, variance, nil
}

// assemble writes one normal forecast per node from (n × h) mean and variance rows.
func assemble(ids []hierarchy.NodeID, template forecast.Forecast, mean, variance *matrix.Dense) ([]forecast.Forecast, error) {
	out := make([]forecast.Forecast, len(ids))
	for i, id := range ids {
		mu, err := mean.Row(i)
		if err != nil {
			return nil, err
		}
		v, err := variance.Row(i)
		if err != nil {
			return nil, err
		}
		for h := range v {
			if v[h] < 0 && v[h] > -1e-12 {
				v[h] = 0 // rounding below zero on exact-zero variances
			}
		}
		d, err := forecast.NewNormal(template.Dist.Response, mu, v)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		out[i] = forecast.Forecast{Node: id, Interval: template.Interval, Dist: d}
	}

	return out, nil
}

// bottomUp sums leaf forecasts: mean = S·μ and, per step, variance =
// diag(S·diag(σ²)·Sᵗ) (independent leaves).
func bottomUp(ctx context.Context, in Input, sum *hierarchy.Summation) (*Result, error) {
	leaves, err := forecastNodes(ctx, in, sum.BottomRows(), true)
	if err != nil {
		return nil, err
	}
	mean, variance, err := stack(leaves, in.Horizon)
	if err != nil {
		return nil, reconcileErrorf("bottomUp", err)
	}
	ySum, err := matrix.Mul(sum.S, mean)
	if err != nil {
		return nil, reconcileErrorf("bottomUp", err)
	}
	vSum, err := matrix.NewDense(len(in.Keys.Nodes), in.Horizon)
	if err != nil {
		return nil, reconcileErrorf("bottomUp", err)
	}
	for h := 0; h < in.Horizon; h++ {
		v, err := variance.Col(h)
		if err != nil {
			return nil, reconcileErrorf("bottomUp", err)
		}
		vh, err := matrix.DiagQuadForm(sum.S, v)
		if err != nil {
			return nil, reconcileErrorf("bottomUp", err)
		}
		for i, x := range vh {
			if err = vSum.Set(i, h, x); err != nil {
				return nil, reconcileErrorf("bottomUp", err)
			}
		}
	}
	fcs, err := assemble(in.Keys.IDs(), leaves[0], ySum, vSum)
	if err != nil {
		return nil, reconcileErrorf("bottomUp", err)
	}

	return &Result{Nodes: in.Keys.IDs(), Forecasts: fcs, Strategy: NameBottomUp, Backend: BackendNone}, nil
}

// minTrace runs the weighted projection.
//
// Implementation:
//   - Stage 1: forecast every node (normal, shared interval) and stack ŷ, σ².
//   - Stage 2: residuals (if the method needs them) → W → positive-definiteness check.
//   - Stage 3: projector P on the chosen backend; SP = S·P.
//   - Stage 4: ỹ = SP·ŷ; per step, var = diag(SP·W_h·SPᵗ),
//     W_h = diag(σ)·cor(W)·diag(σ).
func minTrace(ctx context.Context, in Input, s MinTrace, sum *hierarchy.Summation, o *Options, rep *Report) (*Result, error) {
	const tag = "minTrace"
	method := s.method()
	n := len(in.Keys.Nodes)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	// Stage 1
	fcs, err := forecastNodes(ctx, in, all, true)
	if err != nil {
		return nil, err
	}
	mean, variance, err := stack(fcs, in.Horizon)
	if err != nil {
		return nil, reconcileErrorf(tag, err)
	}

	// Stage 2
	var res *residualSet
	if method.needsResiduals() {
		if res, err = residualMatrix(in.Keys, in.Models); err != nil {
			return nil, err
		}
		rep.Residuals = res.R.Rows()
		rep.DroppedRows = res.Dropped
		if res.Dropped > 0 {
			o.Logger.Warn("residual observations dropped for missing values",
				zap.Int("dropped", res.Dropped),
				zap.Int("kept", res.R.Rows()))
		}
	}
	w, err := weightMatrix(method, in.Keys, res)
	if err != nil {
		return nil, err
	}
	rep.Lambda = w.Lambda
	if err = checkPositiveDefinite(w.W, o.EigenTolerance, o.PDThreshold); err != nil {
		return nil, reconcileErrorf(tag, fmt.Errorf("%s: %w", method, err))
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3
	backend := BackendDense
	switch {
	case s.Sparse != nil:
		if *s.Sparse {
			backend = BackendSparse
		}
	case o.Sparse != nil:
		if *o.Sparse {
			backend = BackendSparse
		}
	case SparseCapable(n):
		backend = BackendSparse
	}
	rep.Backend = backend
	o.Logger.Debug("min_trace projector",
		zap.String("method", string(method)),
		zap.String("backend", string(backend)),
		zap.Int("nodes", n),
		zap.Int("leaves", len(sum.Leaves)))

	var P *matrix.Dense
	if backend == BackendSparse {
		P, err = sparseProjector(sum, w.W)
	} else {
		P, err = denseProjector(sum, w.W)
	}
	if err != nil {
		return nil, err
	}
	SP, err := matrix.Mul(sum.S, P)
	if err != nil {
		return nil, reconcileErrorf(tag, err)
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 4
	yTilde, err := matrix.Mul(SP, mean)
	if err != nil {
		return nil, reconcileErrorf(tag, err)
	}
	R1, err := matrix.CovToCor(w.W)
	if err != nil {
		return nil, reconcileErrorf(tag, err)
	}
	vTilde, err := matrix.NewDense(n, in.Horizon)
	if err != nil {
		return nil, reconcileErrorf(tag, err)
	}
	for h := 0; h < in.Horizon; h++ {
		sd, err := variance.Col(h)
		if err != nil {
			return nil, reconcileErrorf(tag, err)
		}
		for i := range sd {
			sd[i] = math.Sqrt(sd[i])
		}
		rows, err := matrix.ScaleRows(R1, sd)
		if err != nil {
			return nil, reconcileErrorf(tag, err)
		}
		Wh, err := matrix.ScaleCols(rows, sd)
		if err != nil {
			return nil, reconcileErrorf(tag, err)
		}
		vh, err := matrix.DiagSandwich(SP, Wh)
		if err != nil {
			return nil, reconcileErrorf(tag, err)
		}
		for i, v := range vh {
			if err = vTilde.Set(i, h, v); err != nil {
				return nil, reconcileErrorf(tag, err)
			}
		}
	}

	out, err := assemble(in.Keys.IDs(), fcs[0], yTilde, vTilde)
	if err != nil {
		return nil, reconcileErrorf(tag, err)
	}

	return &Result{
		Nodes:     in.Keys.IDs(),
		Forecasts: out,
		Strategy:  NameMinTrace,
		Method:    method,
		Backend:   backend,
		Lambda:    w.Lambda,
	}, nil
}
