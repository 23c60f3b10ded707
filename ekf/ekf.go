package ekf

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	localise "github.com/slamlab/go-localise"
	"github.com/slamlab/go-localise/estimate"
	"github.com/slamlab/go-localise/landmark"
	"github.com/slamlab/go-localise/matrix"
)

// ErrNoMatch is returned by Match when every candidate landmark scores
// beyond the association gate.
var ErrNoMatch = errors.New("no landmark within association gate")

// EKF is an Extended Kalman Filter estimating agent state from landmark
// observations with unknown correspondence. It implements the correction
// half of the predict-update cycle: the caller supplies the predicted state
// and covariance on every Update, there is no internal motion model.
type EKF struct {
	// x is the current state estimate
	x *mat.VecDense
	// cov is the current state covariance estimate
	cov *mat.SymDense
	// dim is the state dimension
	dim int
	// om is the attached observation model
	om localise.ObservationModel
	// gate is the association gate on the Mahalanobis score
	gate float64
}

// Option configures an EKF.
type Option func(*EKF)

// WithGate sets the association gate: Match rejects a best candidate whose
// Mahalanobis score exceeds d. The default gate is +Inf, i.e. pure
// nearest-neighbour association that always returns a landmark.
func WithGate(d float64) Option {
	return func(f *EKF) {
		f.gate = d
	}
}

// New creates new EKF with a zero initial estimate of the given state
// dimension and returns it.
// It returns error if dim is not a positive integer.
func New(dim int, opts ...Option) (*EKF, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid state dimension: %d", dim)
	}

	f := &EKF{
		x:    mat.NewVecDense(dim, nil),
		cov:  mat.NewSymDense(dim, nil),
		dim:  dim,
		gate: math.Inf(1),
	}
	for _, o := range opts {
		o(f)
	}

	return f, nil
}

// NewWithEstimate creates new EKF with the given initial state and covariance
// and returns it.
// It returns error if x is empty or the dimensions of x and cov do not agree.
func NewWithEstimate(x mat.Vector, cov mat.Matrix, opts ...Option) (*EKF, error) {
	if x == nil || x.Len() == 0 {
		return nil, fmt.Errorf("invalid initial state: %v", x)
	}

	r, c := cov.Dims()
	if r != c || r != x.Len() {
		return nil, fmt.Errorf("%w: state %d, covariance [%d x %d]", localise.ErrDimension, x.Len(), r, c)
	}

	xx := &mat.VecDense{}
	xx.CloneFromVec(x)

	sym, err := matrix.ToSym(cov)
	if err != nil {
		return nil, err
	}

	f := &EKF{
		x:    xx,
		cov:  sym,
		dim:  x.Len(),
		gate: math.Inf(1),
	}
	for _, o := range opts {
		o(f)
	}

	return f, nil
}

// SetObservationModel attaches the observation model the filter reads from.
func (f *EKF) SetObservationModel(m localise.ObservationModel) {
	f.om = m
}

// State returns the current state estimate.
func (f *EKF) State() mat.Vector {
	x := &mat.VecDense{}
	x.CloneFromVec(f.x)

	return x
}

// Cov returns the current state covariance estimate.
func (f *EKF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(f.cov.SymmetricDim(), nil)
	cov.CopySym(f.cov)

	return cov
}

// Match associates the real measurement zReal with one of the registered
// landmarks given the predicted state and covariance. For every landmark it
// scores the innovation against the innovation covariance by Mahalanobis
// distance and returns the handle of the minimising landmark; ties keep the
// first-encountered landmark. With the default gate a landmark is always
// returned, however poor the best score.
// It returns error if no observation model is attached, if no landmarks are
// registered, if zReal does not match the model measurement dimension, if an
// innovation covariance is singular or if the best score exceeds the gate.
func (f *EKF) Match(zReal mat.Vector, xPred mat.Vector, cPred mat.Matrix) (landmark.Handle, error) {
	if f.om == nil {
		return landmark.None, fmt.Errorf("no observation model attached")
	}

	if err := f.validate(xPred, cPred); err != nil {
		return landmark.None, err
	}

	m, _ := f.om.Dims()
	if zReal.Len() != m {
		return landmark.None, fmt.Errorf("%w: measurement %d, model %d", localise.ErrDimension, zReal.Len(), m)
	}

	handles := f.om.Landmarks().Handles()
	if len(handles) == 0 {
		return landmark.None, localise.ErrNoLandmarks
	}

	nk, vk := f.om.NoiseCov(), f.om.NoiseTransform()

	best := landmark.None
	minDist := math.Inf(1)
	for _, h := range handles {
		zHat, err := f.om.Measurement(h, false, xPred)
		if err != nil {
			return landmark.None, err
		}

		hk, err := f.om.Jacobian(h, xPred)
		if err != nil {
			return landmark.None, err
		}

		sk := Sk(hk, cPred, nk, vk)

		nu := &mat.VecDense{}
		nu.SubVec(zReal, zHat)

		dist, err := localise.Mahalanobis(nu, sk)
		if err != nil {
			return landmark.None, err
		}

		if dist < minDist {
			minDist = dist
			best = h
		}
	}

	if minDist > f.gate {
		return landmark.None, fmt.Errorf("%w: best score %f", ErrNoMatch, minDist)
	}

	return best, nil
}

// Update corrects the estimate given the predicted state and covariance and
// returns the new estimate. It draws a random landmark from the observation
// model, reads a noisy measurement of it, re-associates the measurement
// against all registered landmarks and applies the Kalman correction:
//
//	K = C*Hk' * Sk^-1
//	x = xPred + K*(zReal - zHat)
//	C = cPred - K*Sk*K'
//
// It returns error if no observation model is attached, if no landmarks are
// registered, if dimensions are inconsistent or if the innovation covariance
// is singular. On error the estimate is left unchanged.
func (f *EKF) Update(xPred mat.Vector, cPred mat.Matrix) (localise.Estimate, error) {
	if f.om == nil {
		return nil, fmt.Errorf("no observation model attached")
	}

	if err := f.validate(xPred, cPred); err != nil {
		return nil, err
	}

	sampled, err := f.om.Sample()
	if err != nil {
		return nil, err
	}

	// simulated real sensor reading of the sampled landmark
	zReal, err := f.om.Measurement(sampled, true, nil)
	if err != nil {
		return nil, err
	}

	// the true source of zReal is unknown to the filter: re-derive it
	matched, err := f.Match(zReal, xPred, cPred)
	if err != nil {
		return nil, err
	}

	zHat, err := f.om.Measurement(matched, false, xPred)
	if err != nil {
		return nil, err
	}

	hk, err := f.om.Jacobian(matched, xPred)
	if err != nil {
		return nil, err
	}

	sk := Sk(hk, cPred, f.om.NoiseCov(), f.om.NoiseTransform())

	gain, err := KalmanGain(hk, cPred, sk)
	if err != nil {
		return nil, err
	}

	// innovation vector
	inn := &mat.VecDense{}
	inn.SubVec(zReal, zHat)

	// x = xPred + K*inn
	corr := &mat.Dense{}
	corr.Mul(gain, inn)
	xNew := &mat.VecDense{}
	xNew.AddVec(xPred, corr.ColView(0))

	// C = cPred - K*Sk*K'
	ksk := &mat.Dense{}
	ksk.Mul(gain, sk)
	kskt := &mat.Dense{}
	kskt.Mul(ksk, gain.T())
	cNew := &mat.Dense{}
	cNew.Sub(cPred, kskt)

	sym, err := matrix.ToSym(cNew)
	if err != nil {
		return nil, err
	}

	f.x.CopyVec(xNew)
	f.cov.CopySym(sym)

	return estimate.NewBaseWithCov(xNew, sym)
}

func (f *EKF) validate(x mat.Vector, cov mat.Matrix) error {
	r, c := cov.Dims()
	if x.Len() != f.dim || r != c || r != f.dim {
		return fmt.Errorf("%w: state %d, covariance [%d x %d], filter %d", localise.ErrDimension, x.Len(), r, c, f.dim)
	}

	return nil
}

// Sk returns the innovation covariance matrix:
//
//	Sk = Hk*C*Hk' + Vk*Nk*Vk'
//
// where Hk is the m x n measurement Jacobian, c the n x n predicted state
// covariance, nk the m x m measurement noise covariance and vk the m x m
// noise transformation matrix.
func Sk(hk mat.Matrix, c mat.Matrix, nk mat.Matrix, vk mat.Matrix) *mat.Dense {
	hc := &mat.Dense{}
	hc.Mul(hk, c)
	hch := &mat.Dense{}
	hch.Mul(hc, hk.T())

	vn := &mat.Dense{}
	vn.Mul(vk, nk)
	vnv := &mat.Dense{}
	vnv.Mul(vn, vk.T())

	sk := &mat.Dense{}
	sk.Add(hch, vnv)

	return sk
}

// KalmanGain returns the Kalman gain:
//
//	K = C*Hk' * Sk^-1
//
// It returns error if sk is singular.
func KalmanGain(hk mat.Matrix, c mat.Matrix, sk mat.Matrix) (*mat.Dense, error) {
	skInv := &mat.Dense{}
	if err := skInv.Inverse(sk); err != nil {
		return nil, fmt.Errorf("%w: %v", localise.ErrSingular, err)
	}

	ch := &mat.Dense{}
	ch.Mul(c, hk.T())

	gain := &mat.Dense{}
	gain.Mul(ch, skInv)

	return gain, nil
}
