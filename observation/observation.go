package observation

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"

	localise "github.com/slamlab/go-localise"
	"github.com/slamlab/go-localise/landmark"
	"github.com/slamlab/go-localise/matrix"
)

// Base aggregates sensors and landmarks and stacks their readings into
// measurement vectors and Jacobians. It does not define a measurement noise
// covariance: concrete models embedding Base do, the way ConstantNoise does.
//
// Base owns its landmark sampling source: two models never share generator state.
type Base struct {
	// sensors is the ordered sensor stack
	sensors []localise.Sensor
	// reg is the landmark registry the model reads from
	reg *landmark.Registry
	// x is the bound state
	x *mat.VecDense
	// cov is the bound state covariance
	cov *mat.Dense
	// rnd is the landmark sampling source
	rnd *rand.Rand
}

// NewBase creates new Base model and returns it. Its sampling source is
// seeded from the wall clock; use Seed for reproducible sampling.
func NewBase() *Base {
	return &Base{
		reg: landmark.NewRegistry(),
		rnd: rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

// AddSensor appends s to the model sensor stack.
func (b *Base) AddSensor(s localise.Sensor) {
	b.sensors = append(b.sensors, s)
}

// SetLandmarks replaces the landmark registry the model reads from.
func (b *Base) SetLandmarks(reg *landmark.Registry) {
	if reg == nil {
		reg = landmark.NewRegistry()
	}
	b.reg = reg
}

// Landmarks returns the landmark registry the model reads from.
func (b *Base) Landmarks() *landmark.Registry {
	return b.reg
}

// SetState binds the model to the given state and covariance. The binding is
// a snapshot: it must be re-established before each estimation cycle if the
// estimate has moved.
// It returns error if cov is not square or does not match the state dimension.
func (b *Base) SetState(x mat.Vector, cov mat.Matrix) error {
	r, c := cov.Dims()
	if r != c || r != x.Len() {
		return fmt.Errorf("%w: state %d, covariance [%d x %d]", localise.ErrDimension, x.Len(), r, c)
	}

	xx := &mat.VecDense{}
	xx.CloneFromVec(x)

	cc := &mat.Dense{}
	cc.CloneFrom(cov)

	b.x, b.cov = xx, cc

	return nil
}

// Seed reseeds the landmark sampling source with seed.
func (b *Base) Seed(seed uint64) {
	b.rnd = rand.New(rand.NewSource(seed))
}

// Sample draws one landmark uniformly at random from the registry and
// returns its handle.
// It returns error if no landmarks are registered.
func (b *Base) Sample() (landmark.Handle, error) {
	if b.reg.Len() == 0 {
		return landmark.None, localise.ErrNoLandmarks
	}

	return landmark.Handle(b.rnd.Intn(b.reg.Len())), nil
}

// Jacobian returns the m x n measurement Jacobian for landmark lm: its i-th
// row is the i-th sensor Jacobian row. A nil at evaluates at the bound state,
// otherwise at the supplied state.
// It returns error if no state is bound, if lm is not registered or if a
// sensor row does not match the state dimension.
func (b *Base) Jacobian(lm landmark.Handle, at mat.Vector) (*mat.Dense, error) {
	if len(b.sensors) == 0 {
		return nil, fmt.Errorf("no sensors registered")
	}

	x, err := b.evalState(at)
	if err != nil {
		return nil, err
	}

	l, err := b.reg.Get(lm)
	if err != nil {
		return nil, err
	}

	jac := mat.NewDense(len(b.sensors), x.Len(), nil)
	for i, s := range b.sensors {
		row, err := s.JacobianRow(x, b.cov, l)
		if err != nil {
			return nil, err
		}
		if row.Len() != x.Len() {
			return nil, fmt.Errorf("%w: jacobian row %d length %d != %d", localise.ErrDimension, i, row.Len(), x.Len())
		}
		for j := 0; j < row.Len(); j++ {
			jac.Set(i, j, row.AtVec(j))
		}
	}

	return jac, nil
}

// NoiseTransform returns the noise transformation matrix Vk: the identity
// mapping of noise into measurement space.
func (b *Base) NoiseTransform() mat.Matrix {
	return matrix.Eye(len(b.sensors))
}

// Dims returns the measurement and state dimensions of the model.
// The state dimension is 0 until a state is bound.
func (b *Base) Dims() (m, n int) {
	if b.x == nil {
		return len(b.sensors), 0
	}

	return len(b.sensors), b.x.Len()
}

// measurement stacks the sensor readings for landmark lm in sensor order,
// passing sigma to every sensor. A nil at evaluates at the bound state.
func (b *Base) measurement(lm landmark.Handle, sigma float64, at mat.Vector) (mat.Vector, error) {
	if len(b.sensors) == 0 {
		return nil, fmt.Errorf("no sensors registered")
	}

	x, err := b.evalState(at)
	if err != nil {
		return nil, err
	}

	l, err := b.reg.Get(lm)
	if err != nil {
		return nil, err
	}

	z := mat.NewVecDense(len(b.sensors), nil)
	for i, s := range b.sensors {
		zi, err := s.Measure(x, b.cov, l, sigma)
		if err != nil {
			return nil, err
		}
		z.SetVec(i, zi)
	}

	return z, nil
}

func (b *Base) evalState(at mat.Vector) (mat.Vector, error) {
	if at != nil {
		return at, nil
	}
	if b.x == nil {
		return nil, fmt.Errorf("no state bound to observation model")
	}

	return b.x, nil
}
