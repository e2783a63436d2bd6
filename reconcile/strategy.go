// SPDX-License-Identifier: MIT

package reconcile

import (
	"fmt"
)

// Strategy is the reconciliation tag carried by a model column.
// The set of strategies is closed: Unreconciled, MinTrace and BottomUp.
type Strategy interface {
	// Name returns the strategy name as accepted by ParseStrategy.
	Name() string
	strategy()
}

// Strategy names.
const (
	NameNone     = "none"
	NameMinTrace = "min_trace"
	NameBottomUp = "bottom_up"
)

// Unreconciled forecasts every node independently.
type Unreconciled struct{}

// MinTrace projects base forecasts onto the coherent subspace minimising the trace
// of the reconciled error covariance under the weight chosen by Method.
// Sparse forces the backend; nil lets the engine decide.
type MinTrace struct {
	Method Method
	Sparse *bool
}

// BottomUp forecasts the leaves and sums them up the hierarchy.
type BottomUp struct{}

func (Unreconciled) strategy() {}
func (MinTrace) strategy()     {}
func (BottomUp) strategy()     {}

// Name implements Strategy.
func (Unreconciled) Name() string { return NameNone }

// Name implements Strategy.
func (MinTrace) Name() string { return NameMinTrace }

// Name implements Strategy.
func (BottomUp) Name() string { return NameBottomUp }

// String renders "min_trace(mint_shrink)".
func (m MinTrace) String() string { return fmt.Sprintf("%s(%s)", NameMinTrace, m.method()) }

// method returns Method, defaulting to wls_var.
func (m MinTrace) method() Method {
	if m.Method == "" {
		return MethodWLSVar
	}

	return m.Method
}

// Method selects the min_trace weight matrix.
type Method string

const (
	// MethodOLS weights every node equally (W = I).
	MethodOLS Method = "ols"
	// MethodWLSVar weights by in-sample residual variance (W = diag(covm)).
	MethodWLSVar Method = "wls_var"
	// MethodWLSStruct weights by the number of leaves a node aggregates.
	MethodWLSStruct Method = "wls_struct"
	// MethodMinTCov uses the full residual covariance (W = covm).
	MethodMinTCov Method = "mint_cov"
	// MethodMinTShrink shrinks covm toward its diagonal.
	MethodMinTShrink Method = "mint_shrink"
)

// Methods lists every supported Method.
var Methods = []Method{MethodOLS, MethodWLSVar, MethodWLSStruct, MethodMinTCov, MethodMinTShrink}

// needsResiduals reports whether the weight is estimated from residuals.
func (m Method) needsResiduals() bool {
	return m == MethodWLSVar || m == MethodMinTCov || m == MethodMinTShrink
}

// ParseMethod maps a method name to a Method.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods {
		if string(m) == s {
			return m, nil
		}
	}

	return "", reconcileErrorf("ParseMethod", fmt.Errorf("%q (want one of %v): %w", s, Methods, ErrUnknownMethod))
}

// ParseStrategy builds a Strategy from its name; method and sparse only apply to
// min_trace (an empty method selects wls_var).
func ParseStrategy(name, method string, sparse *bool) (Strategy, error) {
	switch name {
	case NameNone, "":
		return Unreconciled{}, nil
	case NameBottomUp:
		return BottomUp{}, nil
	case NameMinTrace:
		m := MethodWLSVar
		if method != "" {
			var err error
			if m, err = ParseMethod(method); err != nil {
				return nil, reconcileErrorf("ParseStrategy", err)
			}
		}

		return MinTrace{Method: m, Sparse: sparse}, nil
	default:
		return nil, reconcileErrorf("ParseStrategy", fmt.Errorf("%q: %w", name, ErrUnknownStrategy))
	}
}
