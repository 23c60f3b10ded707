package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewRobot(t *testing.T) {
	assert := assert.New(t)

	pose := mat.NewVecDense(3, []float64{2.0, 2.0, 0.0})

	r, err := NewRobot(pose, nil, 0.23, 0.001, 0.001)
	assert.NotNil(r)
	assert.NoError(err)
	assert.Equal(0.0, r.Cov().At(0, 0))

	cov := mat.NewDense(3, 3, []float64{0.1, 0, 0, 0, 0.1, 0, 0, 0, 0.1})
	r, err = NewRobot(pose, cov, 0.23, 0.001, 0.001)
	assert.NoError(err)
	assert.Equal(0.1, r.Cov().At(1, 1))

	// invalid pose
	r, err = NewRobot(mat.NewVecDense(2, nil), nil, 0.23, 0.001, 0.001)
	assert.Nil(r)
	assert.Error(err)

	// invalid wheel offset
	r, err = NewRobot(pose, nil, 0.0, 0.001, 0.001)
	assert.Nil(r)
	assert.Error(err)

	// invalid slip constants
	r, err = NewRobot(pose, nil, 0.23, -1.0, 0.001)
	assert.Nil(r)
	assert.Error(err)

	// invalid covariance
	r, err = NewRobot(pose, mat.NewDense(2, 2, nil), 0.23, 0.001, 0.001)
	assert.Nil(r)
	assert.Error(err)
}

func TestRobotStepStraight(t *testing.T) {
	assert := assert.New(t)

	r, err := NewRobot(mat.NewVecDense(3, nil), nil, 0.5, 0, 0)
	assert.NoError(err)

	// equal wheel speeds: straight line along x, heading unchanged
	r.Step(1.0, 1.0, 1.0)
	pose := r.Pose()
	assert.InDelta(1.0, pose.AtVec(0), 1e-10)
	assert.InDelta(0.0, pose.AtVec(1), 1e-10)
	assert.InDelta(0.0, pose.AtVec(2), 1e-10)
}

func TestRobotStepTurn(t *testing.T) {
	assert := assert.New(t)

	r, err := NewRobot(mat.NewVecDense(3, nil), nil, 0.5, 0, 0)
	assert.NoError(err)

	// opposite wheel speeds: turn in place
	r.Step(-1.0, 1.0, 1.0)
	pose := r.Pose()
	assert.InDelta(0.0, pose.AtVec(0), 1e-10)
	assert.InDelta(0.0, pose.AtVec(1), 1e-10)
	assert.InDelta(2.0, pose.AtVec(2), 1e-10)
}

func TestRobotCovGrowth(t *testing.T) {
	assert := assert.New(t)

	r, err := NewRobot(mat.NewVecDense(3, nil), nil, 0.5, 0.01, 0.01)
	assert.NoError(err)

	var prev float64
	for i := 0; i < 5; i++ {
		r.Step(1.0, 1.0, 1.0)
		cur := r.Cov().At(0, 0)
		assert.Greater(cur, prev)
		prev = cur
	}
}

func TestRobotSetPose(t *testing.T) {
	assert := assert.New(t)

	r, err := NewRobot(mat.NewVecDense(3, nil), nil, 0.5, 0.01, 0.01)
	assert.NoError(err)

	corrected := mat.NewVecDense(3, []float64{1.0, 2.0, 0.5})
	cov := mat.NewDense(3, 3, []float64{0.2, 0, 0, 0, 0.2, 0, 0, 0, 0.2})

	assert.NoError(r.SetPose(corrected, cov))
	assert.Equal(2.0, r.Pose().AtVec(1))
	assert.Equal(0.2, r.Cov().At(2, 2))

	// nil covariance leaves the covariance unchanged
	assert.NoError(r.SetPose(mat.NewVecDense(3, nil), nil))
	assert.Equal(0.2, r.Cov().At(0, 0))

	assert.Error(r.SetPose(mat.NewVecDense(2, nil), nil))
	assert.Error(r.SetPose(corrected, mat.NewDense(2, 2, nil)))
}

func TestJacobians(t *testing.T) {
	assert := assert.New(t)

	// no motion: pose Jacobian is identity
	fp := PoseJacobian(0, 0, 0, 1.0, 0.5)
	r, c := fp.Dims()
	assert.Equal(3, r)
	assert.Equal(3, c)
	assert.InDelta(1.0, fp.At(0, 0), 1e-10)
	assert.InDelta(0.0, fp.At(0, 2), 1e-10)

	// straight motion: translation enters the heading column
	fp = PoseJacobian(math.Pi/2, 1.0, 1.0, 1.0, 0.5)
	assert.InDelta(-1.0, fp.At(0, 2), 1e-10)
	assert.InDelta(0.0, fp.At(1, 2), 1e-10)

	fd := MotionJacobian(0, 1.0, 1.0, 1.0, 0.5)
	r, c = fd.Dims()
	assert.Equal(3, r)
	assert.Equal(2, c)
	assert.InDelta(1.0, fd.At(2, 0), 1e-10)
	assert.InDelta(-1.0, fd.At(2, 1), 1e-10)

	cd := MotionCov(2.0, 3.0, 1.0, 0.1, 0.2)
	assert.InDelta(0.6, cd.At(0, 0), 1e-10) // kr*|sr|
	assert.InDelta(0.2, cd.At(1, 1), 1e-10) // kl*|sl|
	assert.Equal(0.0, cd.At(0, 1))
}
