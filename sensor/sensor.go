package sensor

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/slamlab/go-localise/landmark"
)

// MeasureFunc returns a scalar sensor reading for landmark lm given state x
// and state covariance cov. It must be a pure function of its inputs.
type MeasureFunc func(x mat.Vector, cov mat.Matrix, lm *landmark.Landmark) float64

// JacobianFunc returns the partial derivative of the sensor reading with
// respect to the state, evaluated at x.
type JacobianFunc func(x mat.Vector, cov mat.Matrix, lm *landmark.Landmark) mat.Vector

// Func is a sensor defined by a pair of caller supplied functions.
// It owns its measurement noise source: two sensors never share generator state.
type Func struct {
	// measure is the sensor reading function
	measure MeasureFunc
	// jac is the reading Jacobian row function
	jac JacobianFunc
	// src is the measurement noise source
	src rand.Source
}

// NewFunc creates new Func sensor from the given reading and Jacobian row
// functions and returns it. Its noise source is seeded from the wall clock;
// use NewFuncSeeded for reproducible noise.
// It returns error if either function is nil.
func NewFunc(measure MeasureFunc, jac JacobianFunc) (*Func, error) {
	return NewFuncSeeded(measure, jac, uint64(time.Now().UnixNano()))
}

// NewFuncSeeded creates new Func sensor whose noise source is seeded with seed.
// It returns error if either function is nil.
func NewFuncSeeded(measure MeasureFunc, jac JacobianFunc, seed uint64) (*Func, error) {
	if measure == nil || jac == nil {
		return nil, fmt.Errorf("invalid sensor functions: measure %v, jacobian %v", measure, jac)
	}

	return &Func{
		measure: measure,
		jac:     jac,
		src:     rand.NewSource(seed),
	}, nil
}

// Measure returns the sensor reading for landmark lm given state x and state
// covariance cov. With sigma equal to 0 the reading is deterministic; with
// sigma greater than 0 one fresh zero-mean Gaussian sample with standard
// deviation sigma is added.
// It returns error if sigma is negative.
func (s *Func) Measure(x mat.Vector, cov mat.Matrix, lm *landmark.Landmark, sigma float64) (float64, error) {
	if sigma < 0 {
		return 0, fmt.Errorf("invalid noise sigma: %f", sigma)
	}

	z := s.measure(x, cov, lm)
	if sigma > 0 {
		z += distuv.Normal{Mu: 0, Sigma: sigma, Src: s.src}.Rand()
	}

	return z, nil
}

// JacobianRow returns the partial derivative of the reading with respect to
// the state, evaluated at x.
// It returns error if the row length does not equal the state dimension.
func (s *Func) JacobianRow(x mat.Vector, cov mat.Matrix, lm *landmark.Landmark) (mat.Vector, error) {
	row := s.jac(x, cov, lm)
	if row.Len() != x.Len() {
		return nil, fmt.Errorf("invalid jacobian row length: %d != %d", row.Len(), x.Len())
	}

	return row, nil
}

// Seed reseeds the sensor noise source with seed.
func (s *Func) Seed(seed uint64) {
	s.src = rand.NewSource(seed)
}
