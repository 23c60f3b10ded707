package sensor

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/slamlab/go-localise/landmark"
)

// Range is an analytic sensor measuring the Euclidean distance from the agent
// to a landmark. The first Dim() components of the state are read as the agent
// position; remaining components (e.g. heading) do not affect the reading.
type Range struct {
	// src is the measurement noise source
	src rand.Source
}

// NewRange creates new Range sensor and returns it. Its noise source is
// seeded from the wall clock; use NewRangeSeeded for reproducible noise.
func NewRange() *Range {
	return NewRangeSeeded(uint64(time.Now().UnixNano()))
}

// NewRangeSeeded creates new Range sensor whose noise source is seeded with seed.
func NewRangeSeeded(seed uint64) *Range {
	return &Range{
		src: rand.NewSource(seed),
	}
}

// Measure returns the distance from the position components of x to lm,
// with one zero-mean Gaussian sample of standard deviation sigma added when
// sigma is greater than 0.
// It returns error if sigma is negative or if the state has fewer components
// than the landmark position.
func (s *Range) Measure(x mat.Vector, cov mat.Matrix, lm *landmark.Landmark, sigma float64) (float64, error) {
	if sigma < 0 {
		return 0, fmt.Errorf("invalid noise sigma: %f", sigma)
	}

	delta, err := posDelta(x, lm)
	if err != nil {
		return 0, err
	}

	z := floats.Norm(delta, 2)
	if sigma > 0 {
		z += distuv.Normal{Mu: 0, Sigma: sigma, Src: s.src}.Rand()
	}

	return z, nil
}

// JacobianRow returns the derivative of the distance with respect to the
// state at x: (x_i - p_i)/d on the position components, 0 elsewhere.
// The row is zero when the agent sits on the landmark.
// It returns error if the state has fewer components than the landmark position.
func (s *Range) JacobianRow(x mat.Vector, cov mat.Matrix, lm *landmark.Landmark) (mat.Vector, error) {
	delta, err := posDelta(x, lm)
	if err != nil {
		return nil, err
	}

	row := mat.NewVecDense(x.Len(), nil)
	d := floats.Norm(delta, 2)
	if d == 0 {
		return row, nil
	}

	for i := range delta {
		row.SetVec(i, delta[i]/d)
	}

	return row, nil
}

// Seed reseeds the sensor noise source with seed.
func (s *Range) Seed(seed uint64) {
	s.src = rand.NewSource(seed)
}

func posDelta(x mat.Vector, lm *landmark.Landmark) ([]float64, error) {
	pos := lm.Position()
	if x.Len() < pos.Len() {
		return nil, fmt.Errorf("invalid state dimension: %d < %d", x.Len(), pos.Len())
	}

	delta := make([]float64, pos.Len())
	for i := range delta {
		delta[i] = x.AtVec(i) - pos.AtVec(i)
	}

	return delta, nil
}
