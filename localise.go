package localise

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/slamlab/go-localise/landmark"
)

var (
	// ErrNoLandmarks is returned when an operation needs at least one
	// registered landmark and none is available.
	ErrNoLandmarks = errors.New("no landmarks available")
	// ErrSingular is returned when a matrix inversion fails within
	// numerical tolerance.
	ErrSingular = errors.New("singular matrix")
	// ErrDimension is returned when vector or matrix shapes are inconsistent.
	ErrDimension = errors.New("dimension mismatch")
)

// Sensor maps agent state and a landmark to a single scalar reading.
type Sensor interface {
	// Measure returns the sensor reading for landmark lm given state x and state covariance cov.
	// With sigma equal to 0 the reading is a pure function of its inputs.
	// With sigma greater than 0 one fresh zero-mean Gaussian sample with
	// standard deviation sigma is added to the reading.
	Measure(x mat.Vector, cov mat.Matrix, lm *landmark.Landmark, sigma float64) (float64, error)
	// JacobianRow returns the partial derivative of the reading with respect
	// to the state, evaluated at x. Its length equals the state dimension.
	JacobianRow(x mat.Vector, cov mat.Matrix, lm *landmark.Landmark) (mat.Vector, error)
}

// ObservationModel aggregates sensors and landmarks and produces stacked
// measurements, Jacobians and measurement noise matrices.
type ObservationModel interface {
	// AddSensor appends s to the model sensor stack.
	AddSensor(s Sensor)
	// SetLandmarks replaces the landmark registry the model reads from.
	SetLandmarks(reg *landmark.Registry)
	// Landmarks returns the landmark registry the model reads from.
	Landmarks() *landmark.Registry
	// SetState binds the model to the given state and covariance.
	// The binding is a snapshot: it must be re-established before each
	// estimation cycle if the estimate has moved.
	SetState(x mat.Vector, cov mat.Matrix) error
	// Sample draws one landmark uniformly at random from the registry.
	Sample() (landmark.Handle, error)
	// Measurement returns the stacked measurement vector for landmark lm,
	// one entry per sensor in sensor order. With withNoise the model noise
	// is added to each reading. A nil at evaluates at the bound state,
	// otherwise at the supplied state.
	Measurement(lm landmark.Handle, withNoise bool, at mat.Vector) (mat.Vector, error)
	// Jacobian returns the stacked measurement Jacobian for landmark lm.
	// A nil at evaluates at the bound state, otherwise at the supplied state.
	Jacobian(lm landmark.Handle, at mat.Vector) (*mat.Dense, error)
	// NoiseCov returns the measurement noise covariance Nk.
	NoiseCov() mat.Matrix
	// NoiseTransform returns the noise transformation matrix Vk.
	NoiseTransform() mat.Matrix
	// Dims returns the measurement and state dimensions of the model.
	Dims() (m, n int)
}

// Estimator owns a state estimate and corrects it from landmark observations.
type Estimator interface {
	// Update corrects the estimate from the predicted state and covariance
	// and returns the new estimate.
	Update(x mat.Vector, cov mat.Matrix) (Estimate, error)
	// State returns the current state estimate.
	State() mat.Vector
	// Cov returns the current state covariance estimate.
	Cov() mat.Symmetric
	// SetObservationModel attaches the observation model the estimator reads from.
	SetObservationModel(m ObservationModel)
}

// Estimate is a state estimate.
type Estimate interface {
	// Val returns estimate value
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}

// Mahalanobis returns the Mahalanobis distance of delta under cov:
//
//	d = delta' * cov^-1 * delta
//
// It returns error if the dimensions of delta and cov do not agree or
// if cov is singular.
func Mahalanobis(delta mat.Vector, cov mat.Matrix) (float64, error) {
	r, c := cov.Dims()
	if r != c || delta.Len() != r {
		return 0, fmt.Errorf("%w: delta %d, cov [%d x %d]", ErrDimension, delta.Len(), r, c)
	}

	inv := &mat.Dense{}
	if err := inv.Inverse(cov); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	res := &mat.Dense{}
	res.Mul(inv, delta)

	return mat.Dot(delta, res.ColView(0)), nil
}
