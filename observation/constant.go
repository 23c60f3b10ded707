package observation

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/slamlab/go-localise/landmark"
	"github.com/slamlab/go-localise/matrix"
)

// ConstantNoise is an observation model whose sensors all share one constant
// noise level: Nk = sigma * I.
type ConstantNoise struct {
	Base
	// sigma is the constant sensor noise level
	sigma float64
}

// NewConstantNoise creates new ConstantNoise model with the given noise level
// and returns it.
// It returns error if sigma is negative.
func NewConstantNoise(sigma float64) (*ConstantNoise, error) {
	if sigma < 0 {
		return nil, fmt.Errorf("invalid noise sigma: %f", sigma)
	}

	return &ConstantNoise{
		Base:  *NewBase(),
		sigma: sigma,
	}, nil
}

// NewConstantNoiseSeeded creates new ConstantNoise model whose landmark
// sampling source is seeded with seed.
// It returns error if sigma is negative.
func NewConstantNoiseSeeded(sigma float64, seed uint64) (*ConstantNoise, error) {
	m, err := NewConstantNoise(sigma)
	if err != nil {
		return nil, err
	}
	m.Seed(seed)

	return m, nil
}

// Measurement returns the stacked measurement vector for landmark lm, one
// entry per sensor in sensor order. With withNoise each sensor adds one fresh
// Gaussian sample at the model noise level. A nil at evaluates at the bound
// state, otherwise at the supplied state.
// It returns error if no state is bound or lm is not registered.
func (m *ConstantNoise) Measurement(lm landmark.Handle, withNoise bool, at mat.Vector) (mat.Vector, error) {
	sigma := 0.0
	if withNoise {
		sigma = m.sigma
	}

	return m.measurement(lm, sigma, at)
}

// NoiseCov returns the measurement noise covariance Nk = sigma * I.
func (m *ConstantNoise) NoiseCov() mat.Matrix {
	nk := matrix.Eye(len(m.sensors))
	nk.Scale(m.sigma, nk)

	return nk
}

// Sigma returns the model noise level.
func (m *ConstantNoise) Sigma() float64 {
	return m.sigma
}
