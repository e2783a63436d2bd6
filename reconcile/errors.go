// SPDX-License-Identifier: MIT
// Package reconcile: sentinel error set.
// Every failure is fatal for the call: the engine never returns a partial result.
// Callers match with errors.Is; messages carry the failed precondition.

package reconcile

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/coherent/hierarchy"
)

var (
	// ErrDisjointHierarchy is re-exported from hierarchy for callers matching on this package only.
	ErrDisjointHierarchy = hierarchy.ErrDisjointHierarchy

	// ErrTemporalHierarchy indicates node forecasts with different intervals.
	ErrTemporalHierarchy = errors.New("reconcile: temporal hierarchies are not supported")

	// ErrNonNormalForecast indicates a forecast that is not normally distributed.
	ErrNonNormalForecast = errors.New("reconcile: forecast distribution is not normal")

	// ErrIllConditionedWeight indicates a weight matrix that is not positive definite.
	ErrIllConditionedWeight = errors.New("reconcile: weight matrix is not positive definite")

	// ErrUnknownMethod indicates an unrecognised min_trace method.
	ErrUnknownMethod = errors.New("reconcile: unknown min_trace method")

	// ErrUnknownStrategy indicates an unrecognised strategy name.
	ErrUnknownStrategy = errors.New("reconcile: unknown strategy")

	// ErrResidualAlignment indicates residual series of different lengths.
	ErrResidualAlignment = errors.New("reconcile: residuals are not aligned")

	// ErrInsufficientResiduals indicates too few complete residual observations.
	ErrInsufficientResiduals = errors.New("reconcile: not enough complete residual observations")

	// ErrInvalidHorizon indicates a non-positive horizon or a model returning a different one.
	ErrInvalidHorizon = errors.New("reconcile: invalid forecast horizon")

	// ErrModelCount indicates the model list does not match the hierarchy nodes.
	ErrModelCount = errors.New("reconcile: one model per hierarchy node required")
)

// reconcileErrorf wraps err with an operation tag, preserving it for errors.Is.
func reconcileErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}
