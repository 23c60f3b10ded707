package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/slamlab/go-localise/landmark"
)

var (
	constMeasure MeasureFunc
	onesJac      JacobianFunc
	lm           *landmark.Landmark
	x            *mat.VecDense
	cov          *mat.Dense
)

func setup() {
	constMeasure = func(x mat.Vector, cov mat.Matrix, lm *landmark.Landmark) float64 {
		return 100.0
	}
	onesJac = func(x mat.Vector, cov mat.Matrix, lm *landmark.Landmark) mat.Vector {
		row := mat.NewVecDense(x.Len(), nil)
		for i := 0; i < x.Len(); i++ {
			row.SetVec(i, 1.0)
		}
		return row
	}
	lm = landmark.New(mat.NewVecDense(2, []float64{0.0, 0.0}))
	x = mat.NewVecDense(2, []float64{1.0, 1.0})
	cov = mat.NewDense(2, 2, []float64{1, 0, 0, 1})
}

func TestMain(m *testing.M) {
	setup()
	m.Run()
}

func TestNewFunc(t *testing.T) {
	assert := assert.New(t)

	s, err := NewFunc(constMeasure, onesJac)
	assert.NotNil(s)
	assert.NoError(err)

	s, err = NewFunc(nil, onesJac)
	assert.Nil(s)
	assert.Error(err)

	s, err = NewFunc(constMeasure, nil)
	assert.Nil(s)
	assert.Error(err)
}

func TestFuncMeasure(t *testing.T) {
	assert := assert.New(t)

	s, err := NewFuncSeeded(constMeasure, onesJac, 1)
	assert.NoError(err)

	// zero sigma: deterministic
	for i := 0; i < 10; i++ {
		z, err := s.Measure(x, cov, lm, 0)
		assert.NoError(err)
		assert.Equal(100.0, z)
	}

	// negative sigma
	_, err = s.Measure(x, cov, lm, -1.0)
	assert.Error(err)
}

func TestFuncMeasureNoise(t *testing.T) {
	assert := assert.New(t)

	s, err := NewFuncSeeded(constMeasure, onesJac, 42)
	assert.NoError(err)

	sigma := 2.0
	samples := make([]float64, 400)
	for i := range samples {
		z, err := s.Measure(x, cov, lm, sigma)
		assert.NoError(err)
		samples[i] = z
	}

	assert.InDelta(100.0, stat.Mean(samples, nil), 0.5)
	assert.InDelta(sigma*sigma, stat.Variance(samples, nil), 2.0)
}

func TestFuncSeedReplay(t *testing.T) {
	assert := assert.New(t)

	s, err := NewFuncSeeded(constMeasure, onesJac, 7)
	assert.NoError(err)

	z1, err := s.Measure(x, cov, lm, 1.0)
	assert.NoError(err)

	s.Seed(7)
	z2, err := s.Measure(x, cov, lm, 1.0)
	assert.NoError(err)
	assert.Equal(z1, z2)
}

func TestFuncJacobianRow(t *testing.T) {
	assert := assert.New(t)

	s, err := NewFuncSeeded(constMeasure, onesJac, 1)
	assert.NoError(err)

	row, err := s.JacobianRow(x, cov, lm)
	assert.NoError(err)
	assert.Equal(x.Len(), row.Len())
	assert.Equal(1.0, row.AtVec(0))

	// row length must match the state dimension
	badJac := func(x mat.Vector, cov mat.Matrix, lm *landmark.Landmark) mat.Vector {
		return mat.NewVecDense(5, nil)
	}
	s, err = NewFuncSeeded(constMeasure, badJac, 1)
	assert.NoError(err)
	_, err = s.JacobianRow(x, cov, lm)
	assert.Error(err)
}

func TestRangeMeasure(t *testing.T) {
	assert := assert.New(t)

	s := NewRangeSeeded(1)

	// distance from (3,4,theta) to origin
	pose := mat.NewVecDense(3, []float64{3.0, 4.0, 0.5})
	z, err := s.Measure(pose, cov, lm, 0)
	assert.NoError(err)
	assert.InDelta(5.0, z, 1e-10)

	// state shorter than landmark position
	_, err = s.Measure(mat.NewVecDense(1, nil), cov, lm, 0)
	assert.Error(err)
}

func TestRangeJacobianRow(t *testing.T) {
	assert := assert.New(t)

	s := NewRangeSeeded(1)

	pose := mat.NewVecDense(3, []float64{3.0, 4.0, 0.5})
	row, err := s.JacobianRow(pose, cov, lm)
	assert.NoError(err)
	assert.Equal(3, row.Len())
	assert.InDelta(3.0/5.0, row.AtVec(0), 1e-10)
	assert.InDelta(4.0/5.0, row.AtVec(1), 1e-10)
	assert.Equal(0.0, row.AtVec(2))

	// sitting on the landmark: zero row
	onTop := mat.NewVecDense(3, nil)
	row, err = s.JacobianRow(onTop, cov, lm)
	assert.NoError(err)
	assert.Equal(0.0, mat.Norm(row, 2))
}
