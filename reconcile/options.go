// SPDX-License-Identifier: MIT

package reconcile

import (
	"time"

	"go.uber.org/zap"
)

// Defaults.
const (
	// DefaultPDThreshold is the smallest eigenvalue a weight matrix may have.
	DefaultPDThreshold = 1e-8

	// DefaultEigenTolerance is the relative Jacobi convergence tolerance.
	DefaultEigenTolerance = 1e-12

	// DefaultSparseThreshold is the node count from which the sparse backend is chosen.
	DefaultSparseThreshold = 32
)

// Backend names the projector route.
type Backend string

const (
	BackendNone   Backend = "none"
	BackendDense  Backend = "dense"
	BackendSparse Backend = "sparse"
)

// Report summarises one Run for an Observer.
type Report struct {
	Strategy    string
	Method      Method
	Backend     Backend
	Nodes       int
	Leaves      int
	Horizon     int
	Residuals   int // complete residual observations used
	DroppedRows int // residual observations dropped for missing values
	Lambda      float64
	Duration    time.Duration
	Err         error
}

// Observer receives one Report per Run, successful or not.
type Observer interface {
	ObserveRun(Report)
}

type nopObserver struct{}

func (nopObserver) ObserveRun(Report) {}

// Options configures Run.
//   - Logger: structured logger (default no-op).
//   - Observer: run hook, e.g. metrics (default no-op).
//   - Sparse: forces the backend when the strategy does not (nil = probe).
//   - EigenTolerance: Jacobi tolerance for the positive-definiteness check.
//   - PDThreshold: minimum admissible eigenvalue of W.
type Options struct {
	Logger         *zap.Logger
	Observer       Observer
	Sparse         *bool
	EigenTolerance float64
	PDThreshold    float64
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the defaults listed on Options.
func DefaultOptions() Options {
	return Options{
		Logger:         zap.NewNop(),
		Observer:       nopObserver{},
		EigenTolerance: DefaultEigenTolerance,
		PDThreshold:    DefaultPDThreshold,
	}
}

// WithLogger sets the logger; nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithObserver sets the run observer; nil keeps the no-op observer.
func WithObserver(obs Observer) Option {
	return func(o *Options) {
		if obs != nil {
			o.Observer = obs
		}
	}
}

// WithSparse forces the sparse (true) or dense (false) backend.
func WithSparse(sparse bool) Option {
	return func(o *Options) { o.Sparse = &sparse }
}

// WithEigenTolerance sets the Jacobi tolerance; non-positive values are ignored.
func WithEigenTolerance(tol float64) Option {
	return func(o *Options) {
		if tol > 0 {
			o.EigenTolerance = tol
		}
	}
}

// WithPDThreshold sets the minimum admissible eigenvalue of W.
func WithPDThreshold(eps float64) Option {
	return func(o *Options) { o.PDThreshold = eps }
}

// SparseCapable is the backend probe: large hierarchies take the sparse route.
func SparseCapable(nodes int) bool { return nodes >= DefaultSparseThreshold }
