package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/slamlab/go-localise/matrix"
)

// Robot is a differential drive robot with pose (x, y, theta), wheels mounted
// at distance l from the centre and wheel slip constants kl, kr. Its odometry
// supplies the predicted pose and covariance an estimator corrects each cycle.
//
// Path integration and error propagation follow Siegwart/Nourbakhsh,
// Introduction to Autonomous Mobile Robots, pp. 188-189.
type Robot struct {
	// pose is the robot pose (x, y, theta)
	pose *mat.VecDense
	// cov is the odometry pose covariance
	cov *mat.SymDense
	// l is the wheel offset from the robot centre
	l float64
	// kl and kr are the left and right wheel slip constants
	kl, kr float64
}

// NewRobot creates new Robot with the given initial pose and pose covariance
// and returns it. A nil cov starts the robot with zero pose uncertainty.
// It returns error if pose is not 3-dimensional, if cov does not agree with
// it, if l is not positive or if either slip constant is negative.
func NewRobot(pose mat.Vector, cov mat.Matrix, l, kl, kr float64) (*Robot, error) {
	if pose == nil || pose.Len() != 3 {
		return nil, fmt.Errorf("invalid robot pose: %v", pose)
	}

	if l <= 0 {
		return nil, fmt.Errorf("invalid wheel offset: %f", l)
	}

	if kl < 0 || kr < 0 {
		return nil, fmt.Errorf("invalid slip constants: kl %f, kr %f", kl, kr)
	}

	p := &mat.VecDense{}
	p.CloneFromVec(pose)

	c := mat.NewSymDense(3, nil)
	if cov != nil {
		sym, err := matrix.ToSym(cov)
		if err != nil {
			return nil, err
		}
		if sym.SymmetricDim() != 3 {
			return nil, fmt.Errorf("invalid covariance dimension: %d", sym.SymmetricDim())
		}
		c.CopySym(sym)
	}

	return &Robot{
		pose: p,
		cov:  c,
		l:    l,
		kl:   kl,
		kr:   kr,
	}, nil
}

// Pose returns the robot pose.
func (r *Robot) Pose() mat.Vector {
	p := &mat.VecDense{}
	p.CloneFromVec(r.pose)

	return p
}

// Cov returns the odometry pose covariance.
func (r *Robot) Cov() mat.Symmetric {
	c := mat.NewSymDense(3, nil)
	c.CopySym(r.cov)

	return c
}

// SetPose replaces the robot pose and pose covariance, e.g. with a corrected
// estimate. A nil cov leaves the covariance unchanged.
// It returns error if the dimensions do not agree.
func (r *Robot) SetPose(pose mat.Vector, cov mat.Matrix) error {
	if pose == nil || pose.Len() != 3 {
		return fmt.Errorf("invalid robot pose: %v", pose)
	}

	if cov != nil {
		sym, err := matrix.ToSym(cov)
		if err != nil {
			return err
		}
		if sym.SymmetricDim() != 3 {
			return fmt.Errorf("invalid covariance dimension: %d", sym.SymmetricDim())
		}
		r.cov.CopySym(sym)
	}

	r.pose.CopyVec(pose)

	return nil
}

// Step advances the pose by integrating left and right wheel speeds vl, vr
// over the timestep dt and propagates the odometry covariance:
//
//	C = Fp*C*Fp' + Fd*Cd*Fd'
//
// where Fp is the pose Jacobian, Fd the motion Jacobian and Cd the motion
// covariance of the step.
func (r *Robot) Step(vl, vr, dt float64) {
	theta := r.pose.AtVec(2)

	fp := PoseJacobian(theta, vl, vr, dt, r.l)
	fd := MotionJacobian(theta, vl, vr, dt, r.l)
	cd := MotionCov(vl, vr, dt, r.kl, r.kr)

	fpc := &mat.Dense{}
	fpc.Mul(fp, r.cov)
	fpcfp := &mat.Dense{}
	fpcfp.Mul(fpc, fp.T())

	fdc := &mat.Dense{}
	fdc.Mul(fd, cd)
	fdcfd := &mat.Dense{}
	fdcfd.Mul(fdc, fd.T())

	cNext := &mat.Dense{}
	cNext.Add(fpcfp, fdcfd)

	// cNext is symmetric by construction
	sym, _ := matrix.ToSym(cNext)
	r.cov.CopySym(sym)

	sl, sr := dt*vl, dt*vr
	b := 2.0 * r.l
	ds := (sl + sr) / 2.0
	half := (sr - sl) / (2.0 * b)

	r.pose.SetVec(0, r.pose.AtVec(0)+ds*math.Cos(theta+half))
	r.pose.SetVec(1, r.pose.AtVec(1)+ds*math.Sin(theta+half))
	r.pose.SetVec(2, theta+2.0*half)
}

// PoseJacobian returns the 3x3 Jacobian of the pose update with respect to
// the previous pose.
func PoseJacobian(theta, vl, vr, dt, l float64) *mat.Dense {
	sl, sr := dt*vl, dt*vr
	b := 2.0 * l
	ds := (sl + sr) / 2.0
	dtheta := (sr - sl) / b
	tt := theta + dtheta/2.0

	return mat.NewDense(3, 3, []float64{
		1.0, 0.0, -ds * math.Sin(tt),
		0.0, 1.0, ds * math.Cos(tt),
		0.0, 0.0, 1.0,
	})
}

// MotionJacobian returns the 3x2 Jacobian of the pose update with respect to
// the right and left wheel travel.
func MotionJacobian(theta, vl, vr, dt, l float64) *mat.Dense {
	sl, sr := dt*vl, dt*vr
	b := 2.0 * l
	ds := (sl + sr) / 2.0
	dtheta := (sr - sl) / b
	tt := theta + dtheta/2.0
	ss := ds / b
	c := 0.5 * math.Cos(tt)
	s := 0.5 * math.Sin(tt)

	return mat.NewDense(3, 2, []float64{
		c - ss*s, c + ss*s,
		s + ss*c, s - ss*c,
		1.0 / b, -1.0 / b,
	})
}

// MotionCov returns the 2x2 covariance of the wheel travel over one step:
// slip grows with the distance each wheel covered.
func MotionCov(vl, vr, dt, kl, kr float64) *mat.Dense {
	sl, sr := dt*vl, dt*vr

	return mat.NewDense(2, 2, []float64{
		kr * math.Abs(sr), 0.0,
		0.0, kl * math.Abs(sl),
	})
}
